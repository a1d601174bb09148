package evidence

import (
	"time"

	"github.com/your-org/evidenceflow/internal/sanitizer"
)

// EventType labels the event emitted once a submission is stored.
const EventType = "evidence.sanitized"

// EvidenceEvent is emitted when a sanitized submission has been persisted.
type EvidenceEvent struct {
	ID          string            `json:"id"`
	Items       []Item            `json:"items"`
	Summary     sanitizer.Summary `json:"summary"`
	NeedsReview bool              `json:"needs_review"`
	CreatedAt   time.Time         `json:"created_at"`
}
