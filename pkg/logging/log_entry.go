package logging

// LogEntry represents a structured log record with fields relevant to
// constrained assembly runs.
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// Assembly-specific fields
	DocumentID string // The document being assembled
	Decision   int    // Decision counter at the time of the entry
	Latency    int64  // Operation duration in milliseconds

	// General structured data
	Fields map[string]interface{}
}
