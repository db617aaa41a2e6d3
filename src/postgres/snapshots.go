package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/waxfusion/fusiond/src/fusion"
)

// PutSnapshot persists the full engine state so the daemon can restart
// without replaying history.
func PutSnapshot(ctx context.Context, s *fusion.State, takenAt uint64) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "failed serializing state snapshot")
	}
	return DoQuery(ctx, func(conn *pgx.Conn) error {
		_, err := conn.Exec(context.Background(),
			`INSERT into snapshots(id, taken, taken_unix, state) VALUES ($1, $2, $3, $4)`,
			uuid.New(), time.Now().UTC(), takenAt, raw)
		return errors.Wrap(err, "failed writing state snapshot")
	})
}

// GetLatestSnapshot loads the most recent persisted state, or (nil, nil)
// when none exists yet.
func GetLatestSnapshot(ctx context.Context) (*fusion.State, error) {
	var out *fusion.State
	return out, DoQuery(ctx, func(conn *pgx.Conn) error {
		raw := []byte{}
		err := conn.QueryRow(context.Background(),
			`SELECT state FROM snapshots ORDER BY taken_unix DESC LIMIT 1`).Scan(&raw)
		if err == pgx.ErrNoRows {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "failed reading latest snapshot")
		}
		st := &fusion.State{}
		if err := json.Unmarshal(raw, st); err != nil {
			return errors.Wrap(err, "failed deserializing snapshot")
		}
		out = st
		return nil
	})
}

// PruneSnapshots keeps the newest `keep` snapshots.
func PruneSnapshots(ctx context.Context, keep uint64) error {
	return DoQuery(ctx, func(conn *pgx.Conn) error {
		_, err := conn.Exec(context.Background(),
			`DELETE FROM snapshots WHERE taken_unix <
				(SELECT MIN(taken_unix) FROM
					(SELECT s.taken_unix FROM snapshots s ORDER BY taken_unix DESC LIMIT $1) as raw)`, keep)
		return errors.Wrap(err, "failed pruning snapshots")
	})
}
