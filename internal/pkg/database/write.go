package database

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/anicoll/fancontrol/internal/pkg/model"
)

// Write stores the report's readings and applied outputs as samples.
func (db *Database) Write(ctx context.Context, report *model.TickReport) error {
	samples := model.SamplesFromReport(report)
	if len(samples) == 0 {
		return nil
	}
	_, err := db.pool.CopyFrom(ctx,
		pgx.Identifier{"sample"},
		[]string{"time_stamp", "kind", "device", "name", "value", "unit"},
		pgx.CopyFromSlice(len(samples), func(i int) ([]any, error) {
			s := samples[i]
			return []any{s.TimeStamp, string(s.Kind), s.Device, s.Name, s.Value, s.Unit}, nil
		}),
	)
	return err
}

func (db *Database) RegisterEntities(ctx context.Context, entities []model.Entity) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, e := range entities {
		if _, err := tx.Exec(ctx, `
			INSERT INTO entity (device, name, kind, unit)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (device, name) DO UPDATE SET kind = EXCLUDED.kind, unit = EXCLUDED.unit;`,
			e.Device, e.Name, string(e.Kind), e.Unit); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
