package db

import (
	"context"
	"errors"
	"fmt"

	"warikanbot/internal/split"
)

// ErrInvalidAmount rejects non-positive amounts before anything is written.
var ErrInvalidAmount = errors.New("amount must be positive")

// RecordLine is one row of a participant's recent history.
type RecordLine struct {
	Category string `json:"category"`
	Amount   int64  `json:"amount"`
}

// AddRecord appends an expense record and returns its id.
func (db *DB) AddRecord(ctx context.Context, sourceID, userID, userName, category string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	var id int64
	err := db.pool.QueryRow(ctx,
		`INSERT INTO records (source_id, user_id, user_name, category, amount)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING id`,
		sourceID, userID, userName, category, amount,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	return id, nil
}

// DeleteLastRecord removes the caller's most recent record in the scope.
// Returns false when the caller has no records there. Other participants'
// records are never eligible.
func (db *DB) DeleteLastRecord(ctx context.Context, sourceID, userID string) (bool, error) {
	ct, err := db.pool.Exec(ctx,
		`DELETE FROM records
         WHERE id = (
             SELECT id FROM records
             WHERE source_id = $1 AND user_id = $2
             ORDER BY id DESC LIMIT 1
         )`,
		sourceID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// ClearRecords deletes every record in the scope, regardless of participant.
func (db *DB) ClearRecords(ctx context.Context, sourceID string) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM records WHERE source_id = $1`, sourceID); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	return nil
}

// RecentRecords returns the caller's records in the scope, most recent first.
func (db *DB) RecentRecords(ctx context.Context, sourceID, userID string, limit int) ([]RecordLine, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.pool.Query(ctx,
		`SELECT category, amount FROM records
         WHERE source_id = $1 AND user_id = $2
         ORDER BY id DESC LIMIT $3`,
		sourceID, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent records: %w", err)
	}
	defer rows.Close()

	var out []RecordLine
	for rows.Next() {
		var line RecordLine
		if err := rows.Scan(&line.Category, &line.Amount); err != nil {
			return nil, fmt.Errorf("scan recent record: %w", err)
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

// TotalsByName sums amounts per captured display name, ordered by first
// appearance so settlement output is deterministic. A participant whose
// display name changed mid-history shows up once per name.
func (db *DB) TotalsByName(ctx context.Context, sourceID string) ([]split.ParticipantTotal, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT user_name, SUM(amount) FROM records
         WHERE source_id = $1
         GROUP BY user_name
         ORDER BY MIN(id)`,
		sourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}
	defer rows.Close()

	var out []split.ParticipantTotal
	for rows.Next() {
		var t split.ParticipantTotal
		if err := rows.Scan(&t.Name, &t.Total); err != nil {
			return nil, fmt.Errorf("scan total: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
