package store

import (
	"fmt"
	"time"

	"github.com/crossrealm/xrealmd/pkg/xrealm"
)

// InsertDecisionEntry appends one decision to the decision log.
// Implements xrealm.DecisionStore.
func (s *Store) InsertDecisionEntry(entry *xrealm.DecisionEntry) (int64, error) {
	enforcing := 0
	if entry.Enforcing {
		enforcing = 1
	}

	result, err := s.db.Exec(
		`INSERT INTO decision_log (timestamp, request_id, client, origin_realm, service, edge, outcome, reason, rule, enforcing, duration_us)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Timestamp.Unix(), entry.RequestID, entry.Client, entry.OriginRealm,
		entry.Service, entry.Edge, entry.Outcome, entry.Reason, entry.Rule,
		enforcing, entry.DurationUS,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert decision entry: %w", err)
	}
	return result.LastInsertId()
}

// ListDecisionEntries returns the most recent decisions, newest first.
// limit <= 0 means a default of 100.
func (s *Store) ListDecisionEntries(limit int) ([]*xrealm.DecisionEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(
		`SELECT timestamp, request_id, client, origin_realm, service, edge, outcome, reason, rule, enforcing, duration_us
		 FROM decision_log ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list decision entries: %w", err)
	}
	defer rows.Close()

	var entries []*xrealm.DecisionEntry
	for rows.Next() {
		var e xrealm.DecisionEntry
		var ts int64
		var enforcing int
		if err := rows.Scan(&ts, &e.RequestID, &e.Client, &e.OriginRealm, &e.Service,
			&e.Edge, &e.Outcome, &e.Reason, &e.Rule, &enforcing, &e.DurationUS); err != nil {
			return nil, fmt.Errorf("failed to scan decision entry: %w", err)
		}
		e.Timestamp = time.Unix(ts, 0)
		e.Enforcing = enforcing != 0
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
