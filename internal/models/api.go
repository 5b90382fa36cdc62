package models

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Query string `json:"query"`
	Mode  string `json:"mode,omitempty"`
}

// ChatResponse is the reply to a chat request.
type ChatResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// ExamResponse is the reply to an exam-prediction request.
type ExamResponse struct {
	Questions string `json:"questions"`
}
