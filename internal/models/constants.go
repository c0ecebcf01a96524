package models

import "time"

const (
	DefaultEmbeddingDimension = 768
	DefaultChunkSize          = 1000
	DefaultChunkOverlap       = 200
	DefaultRetrievedDocuments = 4
	DefaultChatMemoryLength   = 4
	DefaultTimeout            = 30 * time.Second

	// SessionKeyLayout formats timestamp-derived session keys.
	SessionKeyLayout = "2006-01-02 15:04:05"

	// AllModelsFailedMessage is returned as the answer when every model in the
	// primary backend's fallback list fails.
	AllModelsFailedMessage = "All models failed. Please check your API key and permissions."

	ContextSeparator = "\n"
)

var (
	AugmentedPromptTemplate = "Answer the user question based on this context: %s\nUser Question: %s"

	HelpText = `Available commands:
- /help: Show this help message
- /models: List available models`
)
