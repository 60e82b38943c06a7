package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"stacksIndexer/internal/model"
)

// MemoryStore is an in-process EventStore and CheckpointStore.
type MemoryStore struct {
	mu          sync.RWMutex
	now         func() time.Time
	events      []memoryEvent
	byTxID      map[string]int
	checkpoints map[checkpointKey]model.ContractCheckpoint
	seq         uint64
}

type memoryEvent struct {
	seq   uint64
	event model.Event
}

type checkpointKey struct {
	address string
	name    string
}

var (
	_ EventStore      = (*MemoryStore)(nil)
	_ CheckpointStore = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:         func() time.Time { return time.Now().UTC() },
		byTxID:      make(map[string]int),
		checkpoints: make(map[checkpointKey]model.ContractCheckpoint),
	}
}

func (s *MemoryStore) InsertIfAbsent(ctx context.Context, event model.Event) (InsertResult, error) {
	if err := ctx.Err(); err != nil {
		return Inserted, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byTxID[event.TxID]; ok {
		return AlreadyExists, nil
	}

	now := s.now()
	event.CreatedAt = now
	event.UpdatedAt = now
	s.seq++
	s.byTxID[event.TxID] = len(s.events)
	s.events = append(s.events, memoryEvent{seq: s.seq, event: event})
	return Inserted, nil
}

func (s *MemoryStore) Find(ctx context.Context, filter EventFilter, page Page) ([]model.Event, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	s.mu.RLock()
	matched := make([]memoryEvent, 0)
	for _, me := range s.events {
		if filter.Matches(me.event) {
			matched = append(matched, me)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].event.BlockHeight != matched[j].event.BlockHeight {
			return matched[i].event.BlockHeight > matched[j].event.BlockHeight
		}
		return matched[i].seq > matched[j].seq
	})

	total := int64(len(matched))
	start := page.Offset
	if start < 0 {
		start = 0
	}
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if page.Limit > 0 && start+page.Limit < end {
		end = start + page.Limit
	}

	out := make([]model.Event, 0, end-start)
	for _, me := range matched[start:end] {
		out = append(out, me.event)
	}
	return out, total, nil
}

func (s *MemoryStore) FindByTxID(ctx context.Context, txID string) (model.Event, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.Event{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byTxID[txID]
	if !ok {
		return model.Event{}, false, nil
	}
	return s.events[idx].event, true, nil
}

func (s *MemoryStore) EventsSince(ctx context.Context, since time.Time) ([]model.Event, error) {
	events, _, err := s.Find(ctx, EventFilter{Since: since}, Page{})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events, nil
}

func (s *MemoryStore) CountEvents(ctx context.Context, filter EventFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, me := range s.events {
		if filter.Matches(me.event) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Advance(ctx context.Context, address, contractName string, blockHeight uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := checkpointKey{address: address, name: contractName}
	now := s.now()
	cp, ok := s.checkpoints[key]
	if !ok {
		cp = model.ContractCheckpoint{
			Address:      address,
			ContractName: contractName,
			CreatedAt:    now,
		}
	}
	cp.LastProcessedBlock = blockHeight
	cp.UpdatedAt = now
	s.checkpoints[key] = cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, address, contractName string) (model.ContractCheckpoint, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.ContractCheckpoint{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.checkpoints[checkpointKey{address: address, name: contractName}]
	return cp, ok, nil
}

func (s *MemoryStore) TopByProgress(ctx context.Context, limit int) ([]model.ContractCheckpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]model.ContractCheckpoint, 0, len(s.checkpoints))
	for _, cp := range s.checkpoints {
		out = append(out, cp)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].LastProcessedBlock != out[j].LastProcessedBlock {
			return out[i].LastProcessedBlock > out[j].LastProcessedBlock
		}
		return out[i].ContractID() < out[j].ContractID()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) CountContracts(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.checkpoints)), nil
}
