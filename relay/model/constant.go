package model

const (
	ContentTypeText     = "text"
	ContentTypeImageURL = "image_url"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

type APIModel struct {
	Provider    string   `json:"provider"`
	Name        string   `json:"name"`
	Tags        []string `json:"tags"`
	Description string   `json:"description"`
}
