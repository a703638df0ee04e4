package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/openquant-labs/signalfan/internal/logger"
	"github.com/openquant-labs/signalfan/internal/types"
	"github.com/openquant-labs/signalfan/pkg/errors"
)

// DuckDBStore persists executions, positions and the strategy configuration
// in a DuckDB database. Pass ":memory:" as the path for an ephemeral store.
// The executions table's composite primary key backs the atomic
// insert-if-absent that enforces at-most-once execution per subscriber.
type DuckDBStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBStore opens (or creates) the database at path and ensures the
// schema exists.
func NewDuckDBStore(path string, log *logger.Logger) (*DuckDBStore, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		log.Error("Failed to open database", zap.Error(err))

		return nil, errors.Wrap(errors.ErrCodeStoreInitFailed, "failed to open database", err)
	}

	// DuckDB aborts one of two writers that touch the same table in parallel
	// transactions. A single pooled connection serializes writes instead, so
	// concurrent insert-if-absent calls resolve to one winner and one no-op.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeStoreInitFailed, "failed to connect to database", err)
	}

	store := &DuckDBStore{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := store.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return store, nil
}

// initialize creates the tables when they do not exist.
func (s *DuckDBStore) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS executions (
			signal_id TEXT NOT NULL,
			subscriber_id TEXT NOT NULL,
			status TEXT NOT NULL,
			position_id TEXT,
			slippage_pct DOUBLE,
			latency_ms BIGINT,
			error TEXT,
			created_at TIMESTAMP,
			updated_at TIMESTAMP,
			PRIMARY KEY (signal_id, subscriber_id)
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreInitFailed, "failed to create executions table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS positions (
			id TEXT PRIMARY KEY,
			subscriber_id TEXT NOT NULL,
			signal_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			entry_price DOUBLE,
			entry_time TIMESTAMP,
			quantity DOUBLE,
			leverage INTEGER,
			stop_loss DOUBLE,
			take_profit DOUBLE,
			signal_stop_loss DOUBLE,
			signal_take_profit DOUBLE,
			trailing_profit_active BOOLEAN,
			trailing_loss_active BOOLEAN,
			peak_profit_pct DOUBLE,
			trough_loss_pct DOUBLE,
			status TEXT NOT NULL,
			exit_reason TEXT,
			exit_price DOUBLE,
			exit_time TIMESTAMP,
			realized_pnl DOUBLE,
			fee DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreInitFailed, "failed to create positions table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS strategy_config (
			id INTEGER PRIMARY KEY,
			document TEXT NOT NULL,
			updated_at TIMESTAMP
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreInitFailed, "failed to create strategy_config table", err)
	}

	return nil
}

// RecordExecutionIfAbsent implements Store. The insert relies on the
// composite primary key: a conflicting row leaves the table untouched and
// reports zero affected rows.
func (s *DuckDBStore) RecordExecutionIfAbsent(ctx context.Context, record types.ExecutionRecord) (bool, error) {
	if record.SignalID == "" || record.SubscriberID == "" {
		return false, errors.New(errors.ErrCodeInvalidParameter, "execution record needs signal and subscriber ids")
	}

	status := record.Status
	if status == "" {
		status = types.ExecutionStatusPending
	}

	now := time.Now().UTC()

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	insertQuery := s.sq.
		Insert("executions").
		Columns("signal_id", "subscriber_id", "status", "position_id",
			"slippage_pct", "latency_ms", "error", "created_at", "updated_at").
		Values(record.SignalID, record.SubscriberID, string(status), record.PositionID,
			record.SlippagePct, record.LatencyMs, record.Error, createdAt, now).
		Suffix("ON CONFLICT (signal_id, subscriber_id) DO NOTHING").
		RunWith(s.db)

	result, err := insertQuery.ExecContext(ctx)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert execution record", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read affected rows", err)
	}

	return affected > 0, nil
}

// MarkExecutionExecuted implements Store.
func (s *DuckDBStore) MarkExecutionExecuted(ctx context.Context, signalID, subscriberID, positionID string, slippagePct float64, latencyMs int64) error {
	updateQuery := s.sq.
		Update("executions").
		Set("status", string(types.ExecutionStatusExecuted)).
		Set("position_id", positionID).
		Set("slippage_pct", slippagePct).
		Set("latency_ms", latencyMs).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"signal_id": signalID, "subscriber_id": subscriberID}).
		RunWith(s.db)

	return s.execExpectingRow(ctx, updateQuery, signalID, subscriberID)
}

// MarkExecutionFailed implements Store.
func (s *DuckDBStore) MarkExecutionFailed(ctx context.Context, signalID, subscriberID string, status types.ExecutionStatus, reason string) error {
	if status != types.ExecutionStatusFailed && status != types.ExecutionStatusRejected {
		return errors.Newf(errors.ErrCodeInvalidParameter, "status %s is not a failure status", status)
	}

	updateQuery := s.sq.
		Update("executions").
		Set("status", string(status)).
		Set("error", reason).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"signal_id": signalID, "subscriber_id": subscriberID}).
		RunWith(s.db)

	return s.execExpectingRow(ctx, updateQuery, signalID, subscriberID)
}

func (s *DuckDBStore) execExpectingRow(ctx context.Context, query squirrel.UpdateBuilder, signalID, subscriberID string) error {
	result, err := query.ExecContext(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to update execution record", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to read affected rows", err)
	}

	if affected == 0 {
		return errors.Newf(errors.ErrCodeExecutionNotFound,
			"no execution record for signal %s subscriber %s", signalID, subscriberID)
	}

	return nil
}

// HasExecuted implements Store.
func (s *DuckDBStore) HasExecuted(ctx context.Context, signalID, subscriberID string) (bool, error) {
	selectQuery := s.sq.
		Select("COUNT(*)").
		From("executions").
		Where(squirrel.Eq{"signal_id": signalID, "subscriber_id": subscriberID}).
		RunWith(s.db)

	var count int
	if err := selectQuery.QueryRowContext(ctx).Scan(&count); err != nil {
		return false, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query execution record", err)
	}

	return count > 0, nil
}

// GetExecution implements Store.
func (s *DuckDBStore) GetExecution(ctx context.Context, signalID, subscriberID string) (types.ExecutionRecord, error) {
	selectQuery := s.sq.
		Select("signal_id", "subscriber_id", "status", "position_id",
			"slippage_pct", "latency_ms", "error", "created_at", "updated_at").
		From("executions").
		Where(squirrel.Eq{"signal_id": signalID, "subscriber_id": subscriberID}).
		RunWith(s.db)

	var (
		record types.ExecutionRecord
		status string
	)

	err := selectQuery.QueryRowContext(ctx).Scan(
		&record.SignalID, &record.SubscriberID, &status, &record.PositionID,
		&record.SlippagePct, &record.LatencyMs, &record.Error,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return types.ExecutionRecord{}, errors.Newf(errors.ErrCodeExecutionNotFound,
			"no execution record for signal %s subscriber %s", signalID, subscriberID)
	}

	if err != nil {
		return types.ExecutionRecord{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query execution record", err)
	}

	record.Status = types.ExecutionStatus(status)

	return record, nil
}

// SavePosition implements Store.
func (s *DuckDBStore) SavePosition(ctx context.Context, position types.Position) error {
	if position.ID == "" {
		return errors.New(errors.ErrCodeInvalidParameter, "position has no id")
	}

	insertQuery := s.sq.
		Insert("positions").
		Columns("id", "subscriber_id", "signal_id", "symbol", "side",
			"entry_price", "entry_time", "quantity", "leverage",
			"stop_loss", "take_profit", "signal_stop_loss", "signal_take_profit",
			"trailing_profit_active", "trailing_loss_active", "peak_profit_pct", "trough_loss_pct",
			"status", "exit_reason", "exit_price", "exit_time", "realized_pnl", "fee").
		Values(position.ID, position.SubscriberID, position.SignalID, position.Symbol, string(position.Side),
			position.EntryPrice, position.EntryTime, position.Quantity, position.Leverage,
			position.StopLoss, position.TakeProfit, position.SignalStopLoss, position.SignalTakeProfit,
			position.TrailingProfitActive, position.TrailingLossActive, position.PeakProfitPct, position.TroughLossPct,
			string(position.Status), string(position.ExitReason), position.ExitPrice, position.ExitTime,
			position.RealizedPnL, position.Fee).
		RunWith(s.db)

	if _, err := insertQuery.ExecContext(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert position", err)
	}

	return nil
}

// UpdatePosition implements Store.
func (s *DuckDBStore) UpdatePosition(ctx context.Context, position types.Position) error {
	updateQuery := s.sq.
		Update("positions").
		Set("stop_loss", position.StopLoss).
		Set("take_profit", position.TakeProfit).
		Set("trailing_profit_active", position.TrailingProfitActive).
		Set("trailing_loss_active", position.TrailingLossActive).
		Set("peak_profit_pct", position.PeakProfitPct).
		Set("trough_loss_pct", position.TroughLossPct).
		Set("status", string(position.Status)).
		Set("exit_reason", string(position.ExitReason)).
		Set("exit_price", position.ExitPrice).
		Set("exit_time", position.ExitTime).
		Set("realized_pnl", position.RealizedPnL).
		Set("fee", position.Fee).
		Where(squirrel.Eq{"id": position.ID}).
		RunWith(s.db)

	result, err := updateQuery.ExecContext(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to update position", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to read affected rows", err)
	}

	if affected == 0 {
		return errors.Newf(errors.ErrCodePositionNotFound, "position %s not found", position.ID)
	}

	return nil
}

// GetPosition implements Store.
func (s *DuckDBStore) GetPosition(ctx context.Context, id string) (types.Position, error) {
	selectQuery := s.positionSelect().
		Where(squirrel.Eq{"id": id}).
		RunWith(s.db)

	position, err := scanPosition(selectQuery.QueryRowContext(ctx))
	if err == sql.ErrNoRows {
		return types.Position{}, errors.Newf(errors.ErrCodePositionNotFound, "position %s not found", id)
	}

	if err != nil {
		return types.Position{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query position", err)
	}

	return position, nil
}

// OpenPositions implements Store.
func (s *DuckDBStore) OpenPositions(ctx context.Context, subscriberID string) ([]types.Position, error) {
	selectQuery := s.positionSelect().
		Where(squirrel.Eq{"subscriber_id": subscriberID, "status": string(types.PositionStatusOpen)}).
		OrderBy("entry_time").
		RunWith(s.db)

	rows, err := selectQuery.QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query open positions", err)
	}
	defer rows.Close()

	positions := make([]types.Position, 0)

	for rows.Next() {
		position, err := scanPosition(rows)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan position", err)
		}

		positions = append(positions, position)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate positions", err)
	}

	return positions, nil
}

// ClosedPositions implements Store.
func (s *DuckDBStore) ClosedPositions(ctx context.Context, subscriberID string, since time.Time) ([]types.Position, error) {
	selectQuery := s.positionSelect().
		Where(squirrel.Eq{"subscriber_id": subscriberID, "status": string(types.PositionStatusClosed)}).
		Where(squirrel.GtOrEq{"exit_time": since}).
		OrderBy("exit_time DESC").
		RunWith(s.db)

	rows, err := selectQuery.QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query closed positions", err)
	}
	defer rows.Close()

	positions := make([]types.Position, 0)

	for rows.Next() {
		position, err := scanPosition(rows)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan position", err)
		}

		positions = append(positions, position)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate positions", err)
	}

	return positions, nil
}

func (s *DuckDBStore) positionSelect() squirrel.SelectBuilder {
	return s.sq.
		Select("id", "subscriber_id", "signal_id", "symbol", "side",
			"entry_price", "entry_time", "quantity", "leverage",
			"stop_loss", "take_profit", "signal_stop_loss", "signal_take_profit",
			"trailing_profit_active", "trailing_loss_active", "peak_profit_pct", "trough_loss_pct",
			"status", "exit_reason", "exit_price", "exit_time", "realized_pnl", "fee").
		From("positions")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosition(row rowScanner) (types.Position, error) {
	var (
		position              types.Position
		side, status, exitWhy string
	)

	err := row.Scan(
		&position.ID, &position.SubscriberID, &position.SignalID, &position.Symbol, &side,
		&position.EntryPrice, &position.EntryTime, &position.Quantity, &position.Leverage,
		&position.StopLoss, &position.TakeProfit, &position.SignalStopLoss, &position.SignalTakeProfit,
		&position.TrailingProfitActive, &position.TrailingLossActive, &position.PeakProfitPct, &position.TroughLossPct,
		&status, &exitWhy, &position.ExitPrice, &position.ExitTime, &position.RealizedPnL, &position.Fee,
	)
	if err != nil {
		return types.Position{}, err
	}

	position.Side = types.PositionSide(side)
	position.Status = types.PositionStatus(status)
	position.ExitReason = types.ExitReason(exitWhy)

	return position, nil
}

// StrategyConfig implements Store.
func (s *DuckDBStore) StrategyConfig(ctx context.Context) (string, error) {
	selectQuery := s.sq.
		Select("document").
		From("strategy_config").
		Where(squirrel.Eq{"id": 1}).
		RunWith(s.db)

	var doc string

	err := selectQuery.QueryRowContext(ctx).Scan(&doc)
	if err == sql.ErrNoRows {
		return "", nil
	}

	if err != nil {
		return "", errors.Wrap(errors.ErrCodeQueryFailed, "failed to query strategy config", err)
	}

	return doc, nil
}

// SaveStrategyConfig implements Store.
func (s *DuckDBStore) SaveStrategyConfig(ctx context.Context, doc string) error {
	insertQuery := s.sq.
		Insert("strategy_config").
		Columns("id", "document", "updated_at").
		Values(1, doc, time.Now().UTC()).
		Suffix("ON CONFLICT (id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at").
		RunWith(s.db)

	if _, err := insertQuery.ExecContext(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to save strategy config", err)
	}

	return nil
}

// Close implements Store.
func (s *DuckDBStore) Close() error {
	return s.db.Close()
}
