// internal/chat/state.go
package chat

import (
	"time"

	"github.com/mwiater/foundrychat/internal/catalog"
	"github.com/mwiater/foundrychat/internal/inference"
)

// Record is one entry of the visible conversation. Text is the raw content
// sent to the model; Display is what a front-end shows.
type Record struct {
	ID          string
	Text        string
	Display     string
	IsUser      bool
	IsError     bool
	IsTruncated bool
	Timestamp   time.Time
	Elapsed     time.Duration
	Usage       *inference.Usage
	UsageText   string
	Image       []byte
}

// Field names a piece of orchestrator state.
type Field string

// State fields reported in a Change.
const (
	FieldInput      Field = "input"
	FieldAttachment Field = "attachment"
	FieldModel      Field = "model"
	FieldRecords    Field = "records"
	FieldSending    Field = "sending"
	FieldTokens     Field = "estimatedTokens"
	FieldOverBudget Field = "overBudget"
)

// Attachment is the file waiting to go out with the next message. Exactly one
// of Text or Image is set.
type Attachment struct {
	Name  string
	Text  string
	Image []byte
}

// IsImage reports whether the attachment is an image.
func (a *Attachment) IsImage() bool { return a != nil && a.Image != nil }

// Snapshot is a copy of the orchestrator state at one point in time.
type Snapshot struct {
	Input           string
	Attachment      *Attachment
	Model           *catalog.ActiveModel
	Records         []Record
	Sending         bool
	EstimatedTokens int
	OverBudget      bool
}

// Change is emitted after every mutation. Changed lists the fields that were
// set directly and Derived the fields recomputed from them.
type Change struct {
	Snapshot Snapshot
	Changed  []Field
	Derived  []Field
}

// Observer receives every Change in order.
type Observer func(Change)

// Has reports whether f appears in Changed or Derived.
func (c Change) Has(f Field) bool {
	for _, x := range c.Changed {
		if x == f {
			return true
		}
	}
	for _, x := range c.Derived {
		if x == f {
			return true
		}
	}
	return false
}
