package models

type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

type ChatMessage struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}

type ChatRequest struct {
	SystemPrompt string        `json:"systemPrompt"`
	Messages     []ChatMessage `json:"messages"`
}
