package sqlite

import (
	"context"
	"encoding/json"

	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/records"
)

// RecordConflict keeps a remote version that lost a merge. A remote version
// already kept for the same local record is not stored again.
func (s *Store) RecordConflict(ctx context.Context, conflict records.Conflict) error {
	payload, err := json.Marshal(conflict.Remote)
	if err != nil {
		return errors.NewParseError("json", "conflict", err.Error(), err)
	}
	fields, err := json.Marshal(conflict.Fields)
	if err != nil {
		return errors.NewParseError("json", "conflict", err.Error(), err)
	}

	detectedAt := conflict.DetectedAt
	if detectedAt.IsZero() {
		detectedAt = s.clock()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conflicts (session_id, local_id, local_updated_at, remote_id, remote_updated_at, remote_payload, fields, detected_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(local_id, remote_id, remote_updated_at) DO NOTHING`,
		conflict.SessionID, int64(conflict.LocalID), formatTime(conflict.LocalUpdatedAt),
		int64(conflict.Remote.RemoteID), formatTime(conflict.Remote.UpdatedAt),
		string(payload), string(fields), formatTime(detectedAt),
	)
	return errors.WrapResource("insert", "conflict", conflict.LocalID.String(), err)
}

// Conflicts returns preserved conflicts, newest first.
func (s *Store) Conflicts(ctx context.Context) ([]records.Conflict, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, local_id, local_updated_at, remote_payload, fields, detected_at
		 FROM conflicts ORDER BY id DESC`)
	if err != nil {
		return nil, errors.WrapResource("fetch", "conflict", "", err)
	}
	defer rows.Close()

	var out []records.Conflict
	for rows.Next() {
		var (
			c                          records.Conflict
			localID                    int64
			localUpdatedAt, detectedAt string
			payload, fields            string
		)
		if err := rows.Scan(&c.ID, &c.SessionID, &localID, &localUpdatedAt, &payload, &fields, &detectedAt); err != nil {
			return nil, errors.WrapResource("scan", "conflict", "", err)
		}
		c.LocalID = records.LocalID(localID)
		if err := json.Unmarshal([]byte(payload), &c.Remote); err != nil {
			return nil, errors.NewParseError("json", "conflicts.remote_payload", err.Error(), err)
		}
		if err := json.Unmarshal([]byte(fields), &c.Fields); err != nil {
			return nil, errors.NewParseError("json", "conflicts.fields", err.Error(), err)
		}
		if c.LocalUpdatedAt, err = parseTime(localUpdatedAt); err != nil {
			return nil, err
		}
		if c.DetectedAt, err = parseTime(detectedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
