package store

import (
	"context"
	"sync"
	"time"

	"github.com/openquant-labs/signalfan/internal/types"
	"github.com/openquant-labs/signalfan/pkg/errors"
)

type executionKey struct {
	signalID     string
	subscriberID string
}

// MemoryStore is an in-process Store used by tests and dry runs. The mutex
// makes RecordExecutionIfAbsent atomic under concurrent delivery.
type MemoryStore struct {
	mu         sync.Mutex
	executions map[executionKey]types.ExecutionRecord
	positions  map[string]types.Position
	configDoc  string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		executions: make(map[executionKey]types.ExecutionRecord),
		positions:  make(map[string]types.Position),
	}
}

// RecordExecutionIfAbsent implements Store.
func (s *MemoryStore) RecordExecutionIfAbsent(_ context.Context, record types.ExecutionRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := executionKey{record.SignalID, record.SubscriberID}
	if _, exists := s.executions[key]; exists {
		return false, nil
	}

	if record.Status == "" {
		record.Status = types.ExecutionStatusPending
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	record.UpdatedAt = now
	s.executions[key] = record

	return true, nil
}

// MarkExecutionExecuted implements Store.
func (s *MemoryStore) MarkExecutionExecuted(_ context.Context, signalID, subscriberID, positionID string, slippagePct float64, latencyMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := executionKey{signalID, subscriberID}

	record, exists := s.executions[key]
	if !exists {
		return errors.Newf(errors.ErrCodeExecutionNotFound,
			"no execution record for signal %s subscriber %s", signalID, subscriberID)
	}

	record.Status = types.ExecutionStatusExecuted
	record.PositionID = positionID
	record.SlippagePct = slippagePct
	record.LatencyMs = latencyMs
	record.UpdatedAt = time.Now().UTC()
	s.executions[key] = record

	return nil
}

// MarkExecutionFailed implements Store.
func (s *MemoryStore) MarkExecutionFailed(_ context.Context, signalID, subscriberID string, status types.ExecutionStatus, reason string) error {
	if status != types.ExecutionStatusFailed && status != types.ExecutionStatusRejected {
		return errors.Newf(errors.ErrCodeInvalidParameter, "status %s is not a failure status", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := executionKey{signalID, subscriberID}

	record, exists := s.executions[key]
	if !exists {
		return errors.Newf(errors.ErrCodeExecutionNotFound,
			"no execution record for signal %s subscriber %s", signalID, subscriberID)
	}

	record.Status = status
	record.Error = reason
	record.UpdatedAt = time.Now().UTC()
	s.executions[key] = record

	return nil
}

// HasExecuted implements Store.
func (s *MemoryStore) HasExecuted(_ context.Context, signalID, subscriberID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.executions[executionKey{signalID, subscriberID}]

	return exists, nil
}

// GetExecution implements Store.
func (s *MemoryStore) GetExecution(_ context.Context, signalID, subscriberID string) (types.ExecutionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.executions[executionKey{signalID, subscriberID}]
	if !exists {
		return types.ExecutionRecord{}, errors.Newf(errors.ErrCodeExecutionNotFound,
			"no execution record for signal %s subscriber %s", signalID, subscriberID)
	}

	return record, nil
}

// SavePosition implements Store.
func (s *MemoryStore) SavePosition(_ context.Context, position types.Position) error {
	if position.ID == "" {
		return errors.New(errors.ErrCodeInvalidParameter, "position has no id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.positions[position.ID] = position

	return nil
}

// UpdatePosition implements Store.
func (s *MemoryStore) UpdatePosition(_ context.Context, position types.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.positions[position.ID]; !exists {
		return errors.Newf(errors.ErrCodePositionNotFound, "position %s not found", position.ID)
	}

	s.positions[position.ID] = position

	return nil
}

// GetPosition implements Store.
func (s *MemoryStore) GetPosition(_ context.Context, id string) (types.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	position, exists := s.positions[id]
	if !exists {
		return types.Position{}, errors.Newf(errors.ErrCodePositionNotFound, "position %s not found", id)
	}

	return position, nil
}

// OpenPositions implements Store.
func (s *MemoryStore) OpenPositions(_ context.Context, subscriberID string) ([]types.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	open := make([]types.Position, 0)

	for _, p := range s.positions {
		if p.SubscriberID == subscriberID && p.Status == types.PositionStatusOpen {
			open = append(open, p)
		}
	}

	return open, nil
}

// ClosedPositions implements Store.
func (s *MemoryStore) ClosedPositions(_ context.Context, subscriberID string, since time.Time) ([]types.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	closed := make([]types.Position, 0)

	for _, p := range s.positions {
		if p.SubscriberID == subscriberID && p.Status == types.PositionStatusClosed && !p.ExitTime.Before(since) {
			closed = append(closed, p)
		}
	}

	return closed, nil
}

// StrategyConfig implements Store.
func (s *MemoryStore) StrategyConfig(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.configDoc, nil
}

// SaveStrategyConfig implements Store.
func (s *MemoryStore) SaveStrategyConfig(_ context.Context, doc string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.configDoc = doc

	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
