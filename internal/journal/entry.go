package journal

import (
	"fmt"
	"time"

	"github.com/roach88/autotap/internal/engine"
	"github.com/roach88/autotap/internal/gesture"
)

// Entry is one journaled dispatch.
type Entry struct {
	Seq         int64     `json:"seq"`
	SessionID   string    `json:"session_id"`
	DispatchID  int64     `json:"dispatch_id"`
	Kind        string    `json:"kind"`
	Action      string    `json:"action"`
	Request     string    `json:"request"`
	Fingerprint string    `json:"fingerprint"`
	Outcome     string    `json:"outcome"`
	Reason      string    `json:"reason,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

// Latency is the time from submission to resolution.
func (e Entry) Latency() time.Duration {
	return e.ResolvedAt.Sub(e.SubmittedAt)
}

// EntryFromRecord converts an engine record. The request is stored as
// canonical JSON with its fingerprint; gate rejections have neither.
func EntryFromRecord(r engine.Record) (Entry, error) {
	e := Entry{
		SessionID:   r.SessionID,
		DispatchID:  r.ID,
		Kind:        string(r.Kind),
		Action:      r.Action,
		Outcome:     r.Outcome.String(),
		Reason:      string(r.Reason),
		SubmittedAt: r.SubmittedAt,
		ResolvedAt:  r.ResolvedAt,
	}
	if r.ID == 0 {
		return e, nil
	}

	data, err := gesture.MarshalCanonical(r.Request)
	if err != nil {
		return Entry{}, fmt.Errorf("journal entry %d: %w", r.ID, err)
	}
	fp, err := gesture.Fingerprint(r.Request)
	if err != nil {
		return Entry{}, fmt.Errorf("journal entry %d: %w", r.ID, err)
	}
	e.Request = string(data)
	e.Fingerprint = fp
	return e, nil
}
