package chat

// Session holds the identifiers handed back by the gateway for one client run.
type Session struct {
	AssistantID string `json:"assistantId"`
	ThreadID    string `json:"sessionId"`
}

// Ready reports whether both identifiers are known.
func (s Session) Ready() bool {
	return s.AssistantID != "" && s.ThreadID != ""
}
