package domain

// LogEvent is one protocol message pushed by the daemon's event stream,
// timestamped implicitly by arrival order.
type LogEvent struct {
	Prefix  string `json:"prefix"`
	Message string `json:"message"`
}
