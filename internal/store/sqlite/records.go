package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/records"
)

const recordColumns = `local_id, remote_id, name, description, external_code, unit_cost, active, created_at, updated_at`

// FetchAll returns every record in ascending local id order.
func (s *Store) FetchAll(ctx context.Context) ([]records.CatalogRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM catalog_records ORDER BY local_id`)
	if err != nil {
		return nil, errors.WrapResource("fetch", "catalog", "", err)
	}
	defer rows.Close()

	var out []records.CatalogRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapResource("fetch", "catalog", "", err)
	}
	return out, nil
}

// Get returns the record with localID.
func (s *Store) Get(ctx context.Context, localID records.LocalID) (records.CatalogRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM catalog_records WHERE local_id = ?`, int64(localID))
	rec, err := scanRecord(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return records.CatalogRecord{}, errors.NewNotFoundError("record", localID.String())
	}
	return rec, err
}

func (s *Store) getByRemote(ctx context.Context, remoteID records.RemoteID) (records.CatalogRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM catalog_records WHERE remote_id = ?`, int64(remoteID))
	rec, err := scanRecord(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return records.CatalogRecord{}, errors.NewNotFoundError("record with remote id", remoteID.String())
	}
	return rec, err
}

// Insert stores rec under a new local id. Inserting a remote id that is
// already linked fails with a *errors.ConstraintError.
func (s *Store) Insert(ctx context.Context, rec records.NewRecord) (records.CatalogRecord, error) {
	now := s.clock()
	createdAt, updatedAt := rec.CreatedAt, rec.UpdatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	if updatedAt.IsZero() {
		updatedAt = now
	}

	var remoteID sql.NullInt64
	if rec.RemoteID != nil {
		remoteID = sql.NullInt64{Int64: int64(*rec.RemoteID), Valid: true}
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO catalog_records (remote_id, name, description, external_code, unit_cost, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		remoteID, rec.Name, nullString(rec.Description), nullString(rec.ExternalCode),
		rec.UnitCost, records.Flag(rec.Active).Int(), formatTime(createdAt), formatTime(updatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) && rec.RemoteID != nil {
			return records.CatalogRecord{}, errors.NewConstraintError("unique_remote_id", rec.RemoteID.String(), nil, err)
		}
		return records.CatalogRecord{}, errors.WrapResource("insert", "record", "", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return records.CatalogRecord{}, errors.WrapResource("insert", "record", "", err)
	}
	return s.Get(ctx, records.LocalID(id))
}

// Update applies a local edit and sets updated_at from the store clock.
// The remote id is never touched.
func (s *Store) Update(ctx context.Context, localID records.LocalID, fields records.Fields) (records.CatalogRecord, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE catalog_records
		 SET name = ?, description = ?, external_code = ?, unit_cost = ?, active = ?, updated_at = ?
		 WHERE local_id = ?`,
		fields.Name, nullString(fields.Description), nullString(fields.ExternalCode),
		fields.UnitCost, records.Flag(fields.Active).Int(), formatTime(s.clock()), int64(localID),
	)
	if err != nil {
		return records.CatalogRecord{}, errors.WrapResource("update", "record", localID.String(), err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return records.CatalogRecord{}, errors.NewNotFoundError("record", localID.String())
	}
	return s.Get(ctx, localID)
}

// ApplyRemoteUpdate overwrites the record linked to remoteID with remote
// fields and timestamp. A non-zero expected makes the write conditional on
// the stored updated_at.
func (s *Store) ApplyRemoteUpdate(ctx context.Context, remoteID records.RemoteID, fields records.Fields, remoteUpdatedAt, expected utc.Time) (records.CatalogRecord, error) {
	query := `UPDATE catalog_records
		 SET name = ?, description = ?, external_code = ?, unit_cost = ?, active = ?, updated_at = ?
		 WHERE remote_id = ?`
	args := []any{
		fields.Name, nullString(fields.Description), nullString(fields.ExternalCode),
		fields.UnitCost, records.Flag(fields.Active).Int(), formatTime(remoteUpdatedAt), int64(remoteID),
	}
	if !expected.IsZero() {
		query += ` AND updated_at = ?`
		args = append(args, formatTime(expected))
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return records.CatalogRecord{}, errors.WrapResource("update", "record", remoteID.String(), err)
	}

	current, err := s.getByRemote(ctx, remoteID)
	if err != nil {
		return records.CatalogRecord{}, err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return current, errors.WrapResource("update", "record", current.LocalID.String(), errors.ErrStale)
	}
	return current, nil
}

// LinkRemoteID sets the remote id of an unlinked record. The write is
// guarded by remote_id IS NULL, so an already linked record is returned
// unchanged and updated_at is never modified.
func (s *Store) LinkRemoteID(ctx context.Context, localID records.LocalID, remoteID records.RemoteID) (records.CatalogRecord, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE catalog_records SET remote_id = ? WHERE local_id = ? AND remote_id IS NULL`,
		int64(remoteID), int64(localID),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return records.CatalogRecord{}, errors.NewConstraintError("unique_remote_id", remoteID.String(), []int64{int64(localID)}, err)
		}
		return records.CatalogRecord{}, errors.WrapResource("link", "record", localID.String(), err)
	}
	return s.Get(ctx, localID)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (records.CatalogRecord, error) {
	var (
		rec                  records.CatalogRecord
		localID              int64
		remoteID             sql.NullInt64
		description, code    sql.NullString
		active               int
		createdAt, updatedAt string
	)
	err := row.Scan(&localID, &remoteID, &rec.Name, &description, &code, &rec.UnitCost, &active, &createdAt, &updatedAt)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, errors.WrapResource("scan", "record", "", err)
	}

	rec.LocalID = records.LocalID(localID)
	if remoteID.Valid {
		rec.RemoteID = records.RemoteIDPtr(records.RemoteID(remoteID.Int64))
	}
	if description.Valid {
		rec.Description = records.Ptr(description.String)
	}
	if code.Valid {
		rec.ExternalCode = records.Ptr(code.String)
	}
	rec.Active = active != 0

	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return rec, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return rec, err
	}
	return rec, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func formatTime(t utc.Time) string {
	return t.Time.UTC().Format(constants.TimeFormatStorage)
}

func parseTime(s string) (utc.Time, error) {
	t, err := time.Parse(constants.TimeFormatStorage, s)
	if err != nil {
		return utc.Time{}, errors.NewParseError("timestamp", "catalog_records", err.Error(), err)
	}
	return utc.New(t), nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
