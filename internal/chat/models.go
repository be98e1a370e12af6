package chat

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ModelConfig is the per-session generation config. It is merged field by
// field and range-checked on update.
type ModelConfig struct {
	Temperature      float64 `gorm:"not null" json:"temperature"`
	MaxTokens        int     `gorm:"not null" json:"max_tokens"`
	TopP             float64 `gorm:"not null" json:"top_p"`
	FrequencyPenalty float64 `gorm:"not null" json:"frequency_penalty"`
	PresencePenalty  float64 `gorm:"not null" json:"presence_penalty"`
	SystemPrompt     string  `gorm:"type:text;not null" json:"system_prompt"`
}

func DefaultConfig() ModelConfig {
	return ModelConfig{
		Temperature:      0.7,
		MaxTokens:        2048,
		TopP:             1,
		FrequencyPenalty: 0,
		PresencePenalty:  0,
		SystemPrompt:     "You are a helpful AI assistant.",
	}
}

type Session struct {
	ID        uint64      `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID string      `gorm:"type:varchar(26);uniqueIndex;not null" json:"session_id"`
	UserID    uint64      `gorm:"index;not null" json:"-"`
	Model     string      `gorm:"type:varchar(64);not null" json:"model"`
	Config    ModelConfig `gorm:"embedded;embeddedPrefix:cfg_" json:"config"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (Session) TableName() string { return "chat_sessions" }

type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"type:varchar(26);not null;index:idx_chat_msg_user_session_id,priority:2" json:"session_id"`
	UserID    uint64    `gorm:"not null;index:idx_chat_msg_user_session_id,priority:1" json:"-"`
	Role      string    `gorm:"type:varchar(16);index;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Model     *string   `gorm:"type:varchar(64)" json:"model,omitempty"`
	Tokens    *int      `json:"tokens,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (Message) TableName() string { return "chat_messages" }

// ModelInfo is one entry of the selectable model catalog.
type ModelInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// Models returns the selectable catalog. The entries are descriptive only;
// every completion is mocked regardless of the pick.
func Models() []ModelInfo {
	return []ModelInfo{
		{ID: "gpt-4", Name: "GPT-4", Provider: "OpenAI"},
		{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", Provider: "OpenAI"},
		{ID: "claude-3-opus", Name: "Claude 3 Opus", Provider: "Anthropic"},
		{ID: "claude-3-sonnet", Name: "Claude 3 Sonnet", Provider: "Anthropic"},
		{ID: "gemini-pro", Name: "Gemini Pro", Provider: "Google"},
		{ID: "llama-2-70b", Name: "Llama 2 70B", Provider: "Meta"},
	}
}

func LookupModel(id string) (ModelInfo, bool) {
	for _, m := range Models() {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}
