/*
Package domain contains the core domain models of the chat backend.

It defines the persisted unit of conversational state and the rules that keep it
consistent, independent of any storage or transport. This package is kept pure
and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Session: The record persisted per session identifier (filename set, chat history, timestamps).
  - Message: One turn in a conversation (user or assistant).
  - DocumentIndex: Opaque, collaborator-produced content of the uploaded documents.
  - StorageError: Read/write failures raised by a session store.
*/
package domain
