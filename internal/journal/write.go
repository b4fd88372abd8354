package journal

import (
	"context"
	"fmt"
	"time"
)

// Write appends an entry. A second entry for the same session and dispatch
// id is silently ignored.
func (s *Store) Write(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dispatches
		(session_id, dispatch_id, kind, action, request, fingerprint, outcome, reason, submitted_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		e.SessionID,
		e.DispatchID,
		e.Kind,
		e.Action,
		e.Request,
		e.Fingerprint,
		e.Outcome,
		e.Reason,
		e.SubmittedAt.UnixMilli(),
		e.ResolvedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("write dispatch: %w", err)
	}
	return nil
}

// WriteSession records a connected session. Reconnecting with the same id
// keeps the first row.
func (s *Store) WriteSession(ctx context.Context, id string, hostVersion int, connectedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, host_version, connected_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, hostVersion, connectedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}
