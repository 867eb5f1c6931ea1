/*
Package chatbot is a session-scoped chat backend: users upload PDF documents and
ask questions, and every conversation is kept as a durable session.

# Concept

A session holds a bounded chat history (the newest 100 messages), an optional
document index and a display label listing the attached files. Sessions live
in a write-through cache in front of a durable store (files, Redis or SQL).
Every mutation is persisted before it becomes visible, and idle sessions are
swept after a configurable age (7 days by default).

# Usage

The App type wires the whole stack from a config.Config:

	cfg, err := config.Load("chatbot.yaml")
	if err != nil {
		log.Fatal(err)
	}
	app, err := chatbot.New(context.Background(), cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	// Blocks until ctx is cancelled, then shuts down gracefully.
	if err := app.Serve(ctx); err != nil {
		log.Fatal(err)
	}

The session layer can also be used on its own:

	mgr := session.NewManager(session.NewCache(memory.NewStore()))
	mgr.Create(ctx, "s1", nil, "")
	mgr.AppendMessage(ctx, "s1", domain.RoleUser, "hello")

# Packages

  - pkg/domain: session model, history cap, filename merge rule and errors.
  - pkg/session: cache, lifecycle manager and background sweeper.
  - pkg/adapters: memory and redis stores, the HTTP API and the MCP server.
  - internal/adapters: file and SQL stores.
  - internal/chat: message routing and prompting.
*/
package chatbot
