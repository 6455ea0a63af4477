package appwrite

import "encoding/json"

// errorResponse is the body of every non-2xx response
type errorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Version string `json:"version"`
}

// sessionRequest creates an email/password session
type sessionRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse is the subset of the session model the login flow reads
type sessionResponse struct {
	ID       string `json:"$id"`
	UserID   string `json:"userId"`
	Secret   string `json:"secret"`
	Provider string `json:"provider"`
	Expire   string `json:"expire"`
}

// versionResponse is returned by GET /health/version
type versionResponse struct {
	Version string `json:"version"`
}

// Realtime message types
const (
	msgConnected      = "connected"
	msgEvent          = "event"
	msgError          = "error"
	msgResponse       = "response"
	msgPong           = "pong"
	msgPing           = "ping"
	msgAuthentication = "authentication"
)

// realtimeMessage is the envelope for every frame in both directions
type realtimeMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type realtimeConnected struct {
	Channels []string        `json:"channels"`
	User     json.RawMessage `json:"user"`
}

type realtimeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type realtimeAuth struct {
	Session string `json:"session"`
}
