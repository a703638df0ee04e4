package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/openquant-labs/signalfan/internal/logger"
	"github.com/openquant-labs/signalfan/internal/types"
	"github.com/openquant-labs/signalfan/pkg/errors"
)

// StoreBehaviorTestSuite exercises the Store contract. It runs once against
// the in-memory store and once against an in-memory DuckDB database.
type StoreBehaviorTestSuite struct {
	suite.Suite

	newStore func() Store
	store    Store
	ctx      context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, &StoreBehaviorTestSuite{
		newStore: func() Store { return NewMemoryStore() },
	})
}

func TestDuckDBStoreSuite(t *testing.T) {
	suite.Run(t, &StoreBehaviorTestSuite{
		newStore: func() Store {
			store, err := NewDuckDBStore(":memory:", logger.NewNopLogger())
			if err != nil {
				t.Fatalf("failed to open duckdb store: %v", err)
			}

			return store
		},
	})
}

func (suite *StoreBehaviorTestSuite) SetupTest() {
	suite.store = suite.newStore()
	suite.ctx = context.Background()
}

func (suite *StoreBehaviorTestSuite) TearDownTest() {
	suite.NoError(suite.store.Close())
}

func (suite *StoreBehaviorTestSuite) record(signalID, subscriberID string) types.ExecutionRecord {
	return types.ExecutionRecord{
		SignalID:     signalID,
		SubscriberID: subscriberID,
		Status:       types.ExecutionStatusPending,
	}
}

func (suite *StoreBehaviorTestSuite) position(id, subscriberID string) types.Position {
	return types.Position{
		ID:           id,
		SubscriberID: subscriberID,
		SignalID:     "sig-1",
		Symbol:       "BTCUSDT",
		Side:         types.PositionSideLong,
		EntryPrice:   100,
		EntryTime:    time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC),
		Quantity:     50,
		Leverage:     5,
		StopLoss:     98,
		TakeProfit:   104,
		Status:       types.PositionStatusOpen,
	}
}

func (suite *StoreBehaviorTestSuite) TestRecordExecutionIfAbsentIsAtomic() {
	inserted, err := suite.store.RecordExecutionIfAbsent(suite.ctx, suite.record("sig-1", "sub-1"))
	suite.Require().NoError(err)
	suite.True(inserted)

	again, err := suite.store.RecordExecutionIfAbsent(suite.ctx, suite.record("sig-1", "sub-1"))
	suite.Require().NoError(err)
	suite.False(again)

	// A different subscriber gets its own slot for the same signal.
	other, err := suite.store.RecordExecutionIfAbsent(suite.ctx, suite.record("sig-1", "sub-2"))
	suite.Require().NoError(err)
	suite.True(other)
}

func (suite *StoreBehaviorTestSuite) TestConcurrentInsertResolvesToOneWinner() {
	const attempts = 16

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			inserted, err := suite.store.RecordExecutionIfAbsent(suite.ctx, suite.record("sig-race", "sub-1"))
			suite.NoError(err)

			if inserted {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	suite.Equal(1, wins)
}

func (suite *StoreBehaviorTestSuite) TestMarkExecutedUpdatesRecord() {
	_, err := suite.store.RecordExecutionIfAbsent(suite.ctx, suite.record("sig-1", "sub-1"))
	suite.Require().NoError(err)

	err = suite.store.MarkExecutionExecuted(suite.ctx, "sig-1", "sub-1", "pos-1", 0.05, 120)
	suite.Require().NoError(err)

	record, err := suite.store.GetExecution(suite.ctx, "sig-1", "sub-1")
	suite.Require().NoError(err)
	suite.Equal(types.ExecutionStatusExecuted, record.Status)
	suite.Equal("pos-1", record.PositionID)
	suite.InDelta(0.05, record.SlippagePct, 1e-9)
	suite.Equal(int64(120), record.LatencyMs)
}

func (suite *StoreBehaviorTestSuite) TestMarkFailedKeepsDedupSlot() {
	_, err := suite.store.RecordExecutionIfAbsent(suite.ctx, suite.record("sig-1", "sub-1"))
	suite.Require().NoError(err)

	err = suite.store.MarkExecutionFailed(suite.ctx, "sig-1", "sub-1", types.ExecutionStatusFailed, "order rejected")
	suite.Require().NoError(err)

	record, err := suite.store.GetExecution(suite.ctx, "sig-1", "sub-1")
	suite.Require().NoError(err)
	suite.Equal(types.ExecutionStatusFailed, record.Status)
	suite.Equal("order rejected", record.Error)

	// The failed attempt still occupies the slot: no automatic retry.
	inserted, err := suite.store.RecordExecutionIfAbsent(suite.ctx, suite.record("sig-1", "sub-1"))
	suite.Require().NoError(err)
	suite.False(inserted)

	executed, err := suite.store.HasExecuted(suite.ctx, "sig-1", "sub-1")
	suite.Require().NoError(err)
	suite.True(executed)
}

func (suite *StoreBehaviorTestSuite) TestMarkFailedRejectsNonFailureStatus() {
	_, err := suite.store.RecordExecutionIfAbsent(suite.ctx, suite.record("sig-1", "sub-1"))
	suite.Require().NoError(err)

	err = suite.store.MarkExecutionFailed(suite.ctx, "sig-1", "sub-1", types.ExecutionStatusExecuted, "oops")
	suite.Require().Error(err)
}

func (suite *StoreBehaviorTestSuite) TestMarkWithoutRecordFails() {
	err := suite.store.MarkExecutionExecuted(suite.ctx, "missing", "sub-1", "pos-1", 0, 0)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeExecutionNotFound))
}

func (suite *StoreBehaviorTestSuite) TestPositionRoundTrip() {
	position := suite.position("pos-1", "sub-1")
	suite.Require().NoError(suite.store.SavePosition(suite.ctx, position))

	loaded, err := suite.store.GetPosition(suite.ctx, "pos-1")
	suite.Require().NoError(err)
	suite.Equal(position.Symbol, loaded.Symbol)
	suite.Equal(position.Side, loaded.Side)
	suite.InDelta(position.EntryPrice, loaded.EntryPrice, 1e-9)
	suite.Equal(types.PositionStatusOpen, loaded.Status)
}

func (suite *StoreBehaviorTestSuite) TestUpdatePositionPersistsTrailingState() {
	position := suite.position("pos-1", "sub-1")
	suite.Require().NoError(suite.store.SavePosition(suite.ctx, position))

	position.TrailingProfitActive = true
	position.PeakProfitPct = 1.8
	position.StopLoss = 99.5
	suite.Require().NoError(suite.store.UpdatePosition(suite.ctx, position))

	loaded, err := suite.store.GetPosition(suite.ctx, "pos-1")
	suite.Require().NoError(err)
	suite.True(loaded.TrailingProfitActive)
	suite.InDelta(1.8, loaded.PeakProfitPct, 1e-9)
	suite.InDelta(99.5, loaded.StopLoss, 1e-9)
}

func (suite *StoreBehaviorTestSuite) TestOpenPositionsFiltersBySubscriberAndStatus() {
	suite.Require().NoError(suite.store.SavePosition(suite.ctx, suite.position("pos-1", "sub-1")))
	suite.Require().NoError(suite.store.SavePosition(suite.ctx, suite.position("pos-2", "sub-2")))

	closed := suite.position("pos-3", "sub-1")
	closed.Status = types.PositionStatusClosed
	closed.ExitReason = types.ExitReasonTakeProfit
	suite.Require().NoError(suite.store.SavePosition(suite.ctx, closed))

	open, err := suite.store.OpenPositions(suite.ctx, "sub-1")
	suite.Require().NoError(err)
	suite.Require().Len(open, 1)
	suite.Equal("pos-1", open[0].ID)
}

func (suite *StoreBehaviorTestSuite) TestClosedPositionsFiltersBySubscriberAndExitTime() {
	day := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)

	yesterday := suite.position("pos-1", "sub-1")
	yesterday.Status = types.PositionStatusClosed
	yesterday.ExitReason = types.ExitReasonStopLoss
	yesterday.ExitTime = day.Add(-2 * time.Hour)
	yesterday.RealizedPnL = -30
	suite.Require().NoError(suite.store.SavePosition(suite.ctx, yesterday))

	today := suite.position("pos-2", "sub-1")
	today.Status = types.PositionStatusClosed
	today.ExitReason = types.ExitReasonTrailingLoss
	today.ExitTime = day.Add(4 * time.Hour)
	today.RealizedPnL = -12
	suite.Require().NoError(suite.store.SavePosition(suite.ctx, today))

	suite.Require().NoError(suite.store.SavePosition(suite.ctx, suite.position("pos-3", "sub-1")))

	other := suite.position("pos-4", "sub-2")
	other.Status = types.PositionStatusClosed
	other.ExitTime = day.Add(4 * time.Hour)
	suite.Require().NoError(suite.store.SavePosition(suite.ctx, other))

	closed, err := suite.store.ClosedPositions(suite.ctx, "sub-1", day)
	suite.Require().NoError(err)
	suite.Require().Len(closed, 1)
	suite.Equal("pos-2", closed[0].ID)
	suite.InDelta(-12.0, closed[0].RealizedPnL, 1e-9)
}

func (suite *StoreBehaviorTestSuite) TestGetMissingPositionFails() {
	_, err := suite.store.GetPosition(suite.ctx, "missing")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodePositionNotFound))
}

func (suite *StoreBehaviorTestSuite) TestStrategyConfigRoundTrip() {
	doc, err := suite.store.StrategyConfig(suite.ctx)
	suite.Require().NoError(err)
	suite.Empty(doc)

	suite.Require().NoError(suite.store.SaveStrategyConfig(suite.ctx, "version: \"1.0.0\""))

	doc, err = suite.store.StrategyConfig(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal("version: \"1.0.0\"", doc)

	// Saving again replaces the single document.
	suite.Require().NoError(suite.store.SaveStrategyConfig(suite.ctx, "version: \"1.0.1\""))

	doc, err = suite.store.StrategyConfig(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal("version: \"1.0.1\"", doc)
}
