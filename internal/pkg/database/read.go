package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/anicoll/fancontrol/internal/pkg/model"
)

const defaultHistory = 48 * time.Hour

// GetSamples returns the samples of one entity between from and to, newest
// first. A missing to means now; a missing from means two days before to.
func (db *Database) GetSamples(ctx context.Context, device, name string, from, to *time.Time) (model.Samples, error) {
	from, to = sampleRange(from, to, time.Now())
	const query = `
	SELECT id, time_stamp, kind, device, name, value, unit
	FROM sample
	WHERE device = $1 AND name = $2 AND time_stamp BETWEEN $3 AND $4
	ORDER BY time_stamp DESC;
	`
	rows, err := db.pool.Query(ctx, query, device, name, *from, *to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSamples(rows)
}

func sampleRange(from, to *time.Time, now time.Time) (*time.Time, *time.Time) {
	if to == nil {
		to = &now
	}
	if from == nil {
		f := to.Add(-defaultHistory)
		from = &f
	}
	return from, to
}

func (db *Database) GetLatestSamples(ctx context.Context) (model.Samples, error) {
	const query = `
	SELECT DISTINCT ON (device, name) id, time_stamp, kind, device, name, value, unit
	FROM sample
	ORDER BY device, name, time_stamp DESC;
	`
	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSamples(rows)
}

func scanSamples(rows pgx.Rows) (model.Samples, error) {
	var samples model.Samples
	for rows.Next() {
		var s model.Sample
		var kind string
		if err := rows.Scan(&s.ID, &s.TimeStamp, &kind, &s.Device, &s.Name, &s.Value, &s.Unit); err != nil {
			return nil, err
		}
		s.Kind = model.EntityKind(kind)
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	return samples, nil
}
