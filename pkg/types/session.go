package types

// ConnectRequest is the payload for establishing a new session with a
// target MongoDB deployment.
type ConnectRequest struct {
	// URI is the MongoDB connection string of the deployment to explore.
	// It is exchanged for a session ID and never returned by any API.
	URI string `json:"uri" binding:"required"`
}

// ConnectResponse returns the opaque session token the client must send
// in the X-Session-Id header on subsequent requests.
type ConnectResponse struct {
	SessionID string `json:"session_id"`
}

// SessionSummary describes one active session for the admin API.
// The connection URI is deliberately absent.
type SessionSummary struct {
	SessionID      string `json:"session_id"`
	CreatedAt      string `json:"created_at"`
	LastAccessedAt string `json:"last_accessed_at"`
	ExpiresInSec   int64  `json:"expires_in_sec"`
}

// PoolSummary describes one pooled connection for the admin API.
// Only a prefix of the fingerprint is exposed, never the URI itself.
type PoolSummary struct {
	FingerprintPrefix string `json:"fingerprint_prefix"`
	CreatedAt         string `json:"created_at"`
	LastUsedAt        string `json:"last_used_at"`
	IdleSec           int64  `json:"idle_sec"`
}
