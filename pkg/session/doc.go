/*
Package session implements the session lifecycle and its persistence orchestration.

It composes a process-local Cache with a durable ports.SessionStore into one
consistent contract: every mutation is serialized per session, written through to
the store, and only then published to the cache. A Sweeper ages idle sessions out
of both layers on a schedule.

Concurrent access across replicas can be coordinated with a ports.DistributedLocker;
the cache itself is never shared between processes.
*/
package session
