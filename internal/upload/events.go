package upload

import "time"

// Event types published for each run that reached the processor.
const (
	EventProcessed = "video.processed"
	EventFailed    = "video.failed"
)

// ProcessingEvent is emitted after the external processor finishes.
type ProcessingEvent struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	TargetPath  string    `json:"target_path"`
	OutputPath  string    `json:"output_path"`
	ExitCode    int       `json:"exit_code"`
	Succeeded   bool      `json:"succeeded"`
	ArchivedKey string    `json:"archived_key,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// Type is the event_type header value for the event.
func (e ProcessingEvent) Type() string {
	if e.Succeeded {
		return EventProcessed
	}
	return EventFailed
}
