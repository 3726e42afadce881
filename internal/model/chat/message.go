package chat

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// AudioResource is a locally playable copy of synthesised speech.
type AudioResource struct {
	Path string `json:"path"`
	Size int    `json:"size"`
}

// Message is one entry of the client transcript.
type Message struct {
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Audio     *AudioResource `json:"audio,omitempty"`
	ImageURL  string         `json:"imageUrl,omitempty"`
	Revealing bool           `json:"revealing,omitempty"`
}
