package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"TurtleStock/internal/domain/errs"
	"TurtleStock/internal/domain/models"
	"TurtleStock/pkg/clickhouse"
)

// signalSchema is idempotent. ReplacingMergeTree keyed on (scope, symbol,
// date) gives the upsert semantics the batch run needs: re-running a date
// replaces the old row at merge time, and reads use FINAL.
var signalSchema = []string{
	`CREATE TABLE IF NOT EXISTS signals (
		symbol     LowCardinality(String),
		date       Date,
		scope      LowCardinality(String),
		close      Float64,
		high_20d   Nullable(Float64),
		sma_50     Nullable(Float64),
		sma_200    Nullable(Float64),
		high_52w   Nullable(Float64),
		atr        Nullable(Float64),
		evaluable  UInt8,
		triggered  UInt8,
		updated_at DateTime DEFAULT now()
	) ENGINE = ReplacingMergeTree(updated_at)
	ORDER BY (scope, symbol, date)`,
}

// SignalStore persists per-symbol evaluation rows in ClickHouse.
type SignalStore struct {
	client *clickhouse.Client
}

// NewSignalStore creates the store and ensures the schema exists.
func NewSignalStore(ctx context.Context, client *clickhouse.Client) (*SignalStore, error) {
	if err := client.InitSchema(ctx, signalSchema); err != nil {
		return nil, errs.System("signal schema").WithError(err)
	}
	return &SignalStore{client: client}, nil
}

// UpsertBatch writes one row per signal. Rows with the same (symbol, date,
// scope) replace earlier versions rather than duplicating them.
func (s *SignalStore) UpsertBatch(ctx context.Context, signals []*models.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	tx, err := s.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return errs.System("signal batch begin").WithError(err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO signals
		(symbol, date, scope, close, high_20d, sma_50, sma_200, high_52w, atr, evaluable, triggered, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return errs.System("signal batch prepare").WithError(err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, sig := range signals {
		_, err := stmt.ExecContext(ctx,
			sig.Symbol,
			sig.Date,
			sig.Scope.Key(),
			sig.Indicators.Close,
			nullable(sig.Indicators.High20d),
			nullable(sig.Indicators.SMA50),
			nullable(sig.Indicators.SMA200),
			nullable(sig.Indicators.High52w),
			nullable(sig.Indicators.ATR),
			boolByte(sig.Evaluable),
			boolByte(sig.Triggered),
			now,
		)
		if err != nil {
			_ = tx.Rollback()
			return errs.System("signal batch insert %s", sig.Symbol).WithError(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errs.System("signal batch commit").WithError(err)
	}
	return nil
}

// List returns the rows for one date and scope, triggered signals first and
// symbols alphabetical within each group.
func (s *SignalStore) List(ctx context.Context, date time.Time, scope models.Scope) ([]*models.Signal, error) {
	rows, err := s.client.DB().QueryContext(ctx, `SELECT
			symbol, date, close, high_20d, sma_50, sma_200, high_52w, atr, evaluable, triggered
		FROM signals FINAL
		WHERE date = ? AND scope = ?
		ORDER BY triggered DESC, symbol ASC`,
		date, scope.Key())
	if err != nil {
		return nil, errs.System("signal list").WithError(err)
	}
	defer rows.Close()

	var out []*models.Signal
	for rows.Next() {
		var (
			sig       models.Signal
			high20d   sql.NullFloat64
			sma50     sql.NullFloat64
			sma200    sql.NullFloat64
			high52w   sql.NullFloat64
			atr       sql.NullFloat64
			evaluable uint8
			triggered uint8
		)
		err := rows.Scan(&sig.Symbol, &sig.Date, &sig.Indicators.Close,
			&high20d, &sma50, &sma200, &high52w, &atr, &evaluable, &triggered)
		if err != nil {
			return nil, errs.System("signal scan").WithError(err)
		}
		sig.Scope = scope
		sig.Indicators.Symbol = sig.Symbol
		sig.Indicators.Date = sig.Date
		sig.Indicators.High20d = fromNull(high20d)
		sig.Indicators.SMA50 = fromNull(sma50)
		sig.Indicators.SMA200 = fromNull(sma200)
		sig.Indicators.High52w = fromNull(high52w)
		sig.Indicators.ATR = fromNull(atr)
		sig.Evaluable = evaluable != 0
		sig.Triggered = triggered != 0
		out = append(out, &sig)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.System("signal rows").WithError(err)
	}
	return out, nil
}

// LatestDate returns the most recent trading day that has rows for scope.
func (s *SignalStore) LatestDate(ctx context.Context, scope models.Scope) (time.Time, error) {
	var date time.Time
	err := s.client.DB().QueryRowContext(ctx, `SELECT date
			FROM signals FINAL
			WHERE scope = ?
			ORDER BY date DESC
			LIMIT 1`,
		scope.Key()).Scan(&date)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, errs.DataUnavailable("no signal rows for scope %s", scope.Key())
	}
	if err != nil {
		return time.Time{}, errs.System("signal latest date").WithError(err)
	}
	return date, nil
}

// Health pings the signal database.
func (s *SignalStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func nullable(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
