package types

// SuccessEnvelope wraps admin payloads under "data".
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the client-visible error body. RequestID echoes X-Request-Id so
// a failed checkout can be traced to its log lines.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
