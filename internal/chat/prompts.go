package chat

import "regexp"

// Route names the strategy chosen for a message.
type Route string

const (
	RoutePersonal Route = "personal"
	RouteDocument Route = "document"
	RouteGeneral  Route = "general"
	// RouteRejected marks input answered without touching the session.
	RouteRejected Route = "rejected"
)

const (
	msgEmpty    = "Please enter a valid question or message."
	msgTooShort = "Please enter a more detailed question."

	msgUnknownName = "I don't know your name yet. Please tell me!"
	msgUnknownAge  = "I don't know your age. Please tell me!"
	msgNoPersonal  = "I don't have that information about you yet."

	// Apology is returned in place of an answer when generation fails.
	Apology = "I'm having trouble responding right now. This could be due to a temporary connection issue or high server load. Please try asking your question again in a moment, and I'll do my best to provide you with a helpful and detailed response."
)

const (
	documentContextRunes = 2000
	personalWindow       = 50
	personalFacts        = 5
	nameWords            = 3
)

var personalKeywords = []string{
	"my name", "what is my", "who am i", "remember", "i told you",
	"what did i say", "do you know my", "about me", "my age",
	"my job", "my work", "my hobby", "my favorite", "where do i",
}

var documentKeywords = []string{
	"document", "pdf", "file", "text", "according to", "based on",
	"in the document", "what does it say", "from the file", "provided",
	"paper says", "assignment", "students should",
}

var selfDescriptions = []string{"my", "i am", "i work", "i like"}

var agePattern = regexp.MustCompile(`(\d+)\s*years?\s*old`)

func personalPrompt(context, message string) string {
	return "Personal info: " + context + "\nQuestion: " + message + "\nAnswer briefly:"
}

func documentPrompt(filename, context, message string) string {
	return "You are a knowledgeable AI assistant helping users understand documents. Based on the context provided from " + filename +
		", give a detailed and comprehensive explanation. Provide 4-5 lines of explanation, include relevant details, examples, and context to help the user fully understand the topic.\n\n" +
		"Context from " + filename + ":\n" + context + "\n\n" +
		"Question: " + message + "\n\n" +
		"Provide a thorough, well-explained answer based on the context above. Include specific details and elaborate on key points:"
}

func generalPrompt(message string) string {
	return "You are a helpful and knowledgeable AI assistant. Provide detailed, informative responses that are 4-5 lines long when appropriate. Explain concepts clearly, provide context, and give comprehensive answers that help users understand the topic fully.\n\n" +
		"User: " + message + "\n\nProvide a detailed and helpful response:"
}
