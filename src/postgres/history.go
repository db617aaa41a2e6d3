package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/waxfusion/fusiond/src/model"
)

// PutOperations batch inserts operation history rows.
func PutOperations(ctx context.Context, events []model.OperationEvent) error {
	if len(events) == 0 {
		return nil
	}
	return DoQuery(ctx, func(conn *pgx.Conn) error {
		rows := [][]any{}
		for _, ev := range events {
			// id, op, actor, amount, symbol, memo, status, detail, timestamp
			rows = append(rows, []any{
				ev.Id, ev.Op, string(ev.Actor), ev.Quantity.Amount, string(ev.Quantity.Symbol),
				ev.Memo, string(ev.Status), ev.Detail, ev.Timestamp,
			})
		}

		_, err := conn.CopyFrom(context.Background(), pgx.Identifier{"operations"},
			[]string{"id", "op", "actor", "amount", "symbol", "memo", "status", "detail", "timestamp"},
			pgx.CopyFromRows(rows))
		if err != nil {
			return errors.Wrap(err, "failed to write to operation history")
		}
		return nil
	})
}

// GetOperationsForActor fetches recent history for one account, newest
// first.
func GetOperationsForActor(ctx context.Context, actor model.AccountName, limit int) ([]model.OperationEvent, error) {
	out := []model.OperationEvent{}
	return out, DoQuery(ctx, func(conn *pgx.Conn) error {
		res, err := conn.Query(context.Background(),
			`SELECT id, op, actor, amount, symbol, memo, status, detail, timestamp
			FROM operations WHERE actor = $1 ORDER BY timestamp DESC LIMIT $2`, string(actor), limit)
		if err != nil {
			return errors.Wrap(err, "failed to fetch operation history")
		}
		defer res.Close()
		for res.Next() {
			ev := model.OperationEvent{}
			actorStr, symbolStr, statusStr := "", "", ""
			if err := res.Scan(&ev.Id, &ev.Op, &actorStr, &ev.Quantity.Amount, &symbolStr,
				&ev.Memo, &statusStr, &ev.Detail, &ev.Timestamp); err != nil {
				return errors.Wrap(err, "failed unmarshalling operation row")
			}
			ev.Actor = model.AccountName(actorStr)
			ev.Quantity.Symbol = model.Symbol(symbolStr)
			ev.Status = model.OperationStatus(statusStr)
			out = append(out, ev)
		}
		return nil
	})
}

// CreateSchema sets up the tables, used by tests against the docker pg.
func CreateSchema(ctx context.Context) {
	DoExecOrDie(ctx, `CREATE TABLE IF NOT EXISTS snapshots (
		id uuid PRIMARY KEY,
		taken timestamptz NOT NULL,
		taken_unix bigint NOT NULL,
		state jsonb NOT NULL)`)
	DoExecOrDie(ctx, `CREATE TABLE IF NOT EXISTS operations (
		id uuid PRIMARY KEY,
		op text NOT NULL,
		actor text NOT NULL,
		amount bigint NOT NULL,
		symbol text NOT NULL,
		memo text NOT NULL,
		status text NOT NULL,
		detail text NOT NULL,
		timestamp bigint NOT NULL)`)
}
