/*
Package ports defines the driven ports (interfaces) of the chat backend.

These interfaces decouple the session lifecycle from external implementations,
allowing it to work with various storage backends, lock services and AI providers.

# Key Interfaces

  - SessionStore: Persists, loads and sweeps session records (file, Redis, SQL, memory).
  - DistributedLocker: Provides distributed locking for concurrent session access across replicas.
  - Generator: Produces an answer for a prompt (Groq, OpenAI, Anthropic).
  - DocumentProcessor: Turns an uploaded document into a domain.DocumentIndex.
*/
package ports
