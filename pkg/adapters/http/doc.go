/*
Package http exposes the chat backend over HTTP.

Routes:

	POST   /upload-pdf                 multipart "file" (+ optional "session_id")
	POST   /chat                       {"message", "session_id"}
	GET    /chat-history/{session_id}
	DELETE /session/{session_id}
	GET    /events?session_id=...      server-sent session updates
	GET    /health
	GET    /info
	GET    /metrics                    when a metrics handler is configured

Errors are returned as {"detail": "..."}.
*/
package http
