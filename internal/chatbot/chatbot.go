package chatbot

// ContextItem is one entry of a chatbot's ordered knowledge base. Order
// matters: earlier items win when the plan's context ceiling forces
// truncation.
type ContextItem struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	SizeKB  int    `json:"size_kb"`
	// SourceType records where the item came from (file, url, text, question).
	SourceType string `json:"source_type"`
}

// Definition is the tenant-owned chatbot configuration, created and edited
// through the dashboard. Read-only to the agent core.
type Definition struct {
	ID                 string        `json:"id"`
	TenantID           string        `json:"tenant_id"`
	Name               string        `json:"name"`
	Slug               string        `json:"slug"`
	Instructions       string        `json:"instructions"`
	CustomInstructions string        `json:"custom_instructions"`
	Personality        string        `json:"personality"`
	AIModel            string        `json:"ai_model"`
	Temperature        float64       `json:"temperature"`
	MaxTokens          int           `json:"max_tokens"`
	WelcomeMessage     string        `json:"welcome_message"`
	GoodbyeMessage     string        `json:"goodbye_message"`
	PrimaryColor       string        `json:"primary_color"`
	Contexts           []ContextItem `json:"contexts"`
}
