package api

// CreateSessionRequest is the payload for creating a conversation session.
type CreateSessionRequest struct {
	Language string `json:"language"`
}

// CreateSessionResponse returns the new session's coordinates. StreamToken
// is present only when stream auth is enabled.
type CreateSessionResponse struct {
	SessionID      string `json:"session_id"`
	Language       string `json:"language"`
	CreatedAt      int64  `json:"created_at"`
	StreamEndpoint string `json:"stream_endpoint"`
	StreamToken    string `json:"stream_token,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
