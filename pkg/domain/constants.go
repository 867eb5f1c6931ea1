package domain

const (
	// DefaultFilename is the sentinel label of a session without attached documents.
	DefaultFilename = "General Chat"

	// MaxChatHistory caps the number of messages kept per session.
	MaxChatHistory = 100

	// filenameSeparator joins the names of several attached documents.
	filenameSeparator = ", "
)
