package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Filter narrows List results. Zero values match everything.
type Filter struct {
	SessionID string
	Outcome   string
	Limit     int
}

// List returns journaled entries in insertion order.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	var where []string
	var args []any
	if f.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, f.SessionID)
	}
	if f.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, f.Outcome)
	}

	query := `
		SELECT seq, session_id, dispatch_id, kind, action, request, fingerprint, outcome, reason, submitted_at, resolved_at
		FROM dispatches`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query dispatches: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatches: %w", err)
	}
	return entries, nil
}

// OutcomeCounts returns the number of entries per outcome for a session,
// or for the whole journal when sessionID is empty.
func (s *Store) OutcomeCounts(ctx context.Context, sessionID string) (map[string]int64, error) {
	query := "SELECT outcome, COUNT(*) FROM dispatches"
	var args []any
	if sessionID != "" {
		query += " WHERE session_id = ?"
		args = append(args, sessionID)
	}
	query += " GROUP BY outcome ORDER BY outcome"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outcome counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var outcome string
		var n int64
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scan outcome count: %w", err)
		}
		counts[outcome] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome counts: %w", err)
	}
	return counts, nil
}

// Sessions lists journaled session ids, oldest first.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM sessions ORDER BY connected_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return ids, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var e Entry
	var submitted, resolved int64
	if err := rows.Scan(
		&e.Seq,
		&e.SessionID,
		&e.DispatchID,
		&e.Kind,
		&e.Action,
		&e.Request,
		&e.Fingerprint,
		&e.Outcome,
		&e.Reason,
		&submitted,
		&resolved,
	); err != nil {
		return Entry{}, fmt.Errorf("scan dispatch: %w", err)
	}
	e.SubmittedAt = time.UnixMilli(submitted).UTC()
	e.ResolvedAt = time.UnixMilli(resolved).UTC()
	return e, nil
}
