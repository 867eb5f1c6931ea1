// Package chat routes a user message to the personal, document or general
// answering strategy and records both sides of the exchange in the session.
package chat
