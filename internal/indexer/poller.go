package indexer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"stacksIndexer/internal/metrics"
	"stacksIndexer/internal/model"
	"stacksIndexer/internal/storage"
)

const (
	DefaultInterval  = 10 * time.Second
	DefaultPageLimit = 50
	DefaultMaxPages  = 10
)

// Upstream is the part of the chain API client the poller depends on.
type Upstream interface {
	FetchEvents(ctx context.Context, contractID string, offset, limit int) ([]model.RawEvent, error)
	FetchTransaction(ctx context.Context, txID string) model.TransactionDetail
}

// PollerConfig holds runtime settings for the poller.
type PollerConfig struct {
	Interval  time.Duration
	PageLimit int
	MaxPages  int
	// Resume seeds progress from the checkpoint store and the cursor file on
	// start. Without it a contract is re-scanned from offset zero. The stored
	// checkpoint is the floor for every advance either way.
	Resume bool
}

// Progress is a snapshot of one contract's in-memory ingestion state.
type Progress struct {
	LastProcessedBlock uint64
	Offset             int
}

// Poller runs one periodic ingestion task per tracked contract. Tasks are
// independent of each other; cycles of the same contract never overlap.
type Poller struct {
	cfg         PollerConfig
	upstream    Upstream
	events      storage.EventStore
	checkpoints storage.CheckpointStore
	cursors     *CursorStore
	logger      *zap.Logger
	now         func() time.Time

	mu     sync.Mutex
	tasks  map[string]*task
	cycles map[string]*sync.Mutex
	wg     sync.WaitGroup
}

type task struct {
	contract model.Contract
	stop     chan struct{}

	// state guards the fields below it.
	state         sync.Mutex
	lastProcessed uint64
	offset        int
	checkpointed  bool
}

// NewPoller builds a Poller with its dependencies. cursors may be nil.
func NewPoller(cfg PollerConfig, upstream Upstream, events storage.EventStore, checkpoints storage.CheckpointStore, cursors *CursorStore, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = DefaultPageLimit
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	return &Poller{
		cfg:         cfg,
		upstream:    upstream,
		events:      events,
		checkpoints: checkpoints,
		cursors:     cursors,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		tasks:       make(map[string]*task),
		cycles:      make(map[string]*sync.Mutex),
	}
}

// Start begins polling contract: one cycle immediately, then one per interval
// until Stop or ctx is done. Starting an already active contract is a no-op.
func (p *Poller) Start(ctx context.Context, contract model.Contract) error {
	if p.upstream == nil {
		return fmt.Errorf("upstream client is nil")
	}
	if p.events == nil || p.checkpoints == nil {
		return fmt.Errorf("event and checkpoint stores are required")
	}

	id := contract.ID()
	if p.isActive(id) {
		return nil
	}

	t := p.newTask(ctx, contract)

	p.mu.Lock()
	if _, ok := p.tasks[id]; ok {
		p.mu.Unlock()
		return nil
	}
	p.tasks[id] = t
	p.wg.Add(1)
	p.mu.Unlock()

	p.logger.Info("start polling",
		zap.String("contract_id", id),
		zap.Duration("interval", p.cfg.Interval),
		zap.Uint64("last_processed", t.lastProcessed),
		zap.Int("offset", t.offset),
	)

	go p.loop(ctx, t)
	return nil
}

// Stop cancels polling for contractID. An in-flight cycle runs to completion
// and a task started afterwards waits for it. It reports whether the contract
// was active.
func (p *Poller) Stop(contractID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.tasks[contractID]
	if !ok {
		return false
	}
	close(t.stop)
	delete(p.tasks, contractID)
	p.logger.Info("stop polling", zap.String("contract_id", contractID))
	return true
}

// Active returns the ids of contracts currently being polled.
func (p *Poller) Active() []string {
	p.mu.Lock()
	ids := make([]string, 0, len(p.tasks))
	for id := range p.tasks {
		ids = append(ids, id)
	}
	p.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Progress returns the in-memory state of an active contract.
func (p *Poller) Progress(contractID string) (Progress, bool) {
	p.mu.Lock()
	t, ok := p.tasks[contractID]
	p.mu.Unlock()
	if !ok {
		return Progress{}, false
	}
	return t.progress(), true
}

// Wait blocks until every polling task has exited.
func (p *Poller) Wait() {
	p.wg.Wait()
}

// PollOnce runs a single cycle for contract. An active contract reuses its
// task state; otherwise a fresh state is seeded the same way Start does.
func (p *Poller) PollOnce(ctx context.Context, contract model.Contract) (int, error) {
	p.mu.Lock()
	t, ok := p.tasks[contract.ID()]
	p.mu.Unlock()
	if !ok {
		t = p.newTask(ctx, contract)
	}
	return p.poll(ctx, t)
}

// cycleLock returns the lock serialising cycles of one contract across tasks.
func (p *Poller) cycleLock(id string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.cycles[id]
	if !ok {
		l = &sync.Mutex{}
		p.cycles[id] = l
	}
	return l
}

// release drops t from the registry unless it was already replaced.
func (p *Poller) release(t *task) {
	id := t.contract.ID()
	p.mu.Lock()
	defer p.mu.Unlock()
	if cur, ok := p.tasks[id]; ok && cur == t {
		delete(p.tasks, id)
		p.logger.Info("polling ended", zap.String("contract_id", id))
	}
}

func (p *Poller) isActive(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.tasks[id]
	return ok
}

func (p *Poller) newTask(ctx context.Context, contract model.Contract) *task {
	t := &task{contract: contract, stop: make(chan struct{})}
	id := contract.ID()

	if p.cfg.Resume {
		cp, ok, err := p.checkpoints.Get(ctx, contract.Address, contract.Name)
		switch {
		case err != nil:
			p.logger.Warn("load checkpoint failed, starting from zero", zap.Error(err), zap.String("contract_id", id))
		case ok:
			t.lastProcessed = cp.LastProcessedBlock
			t.checkpointed = true
			p.logger.Info("resume from checkpoint", zap.String("contract_id", id), zap.Uint64("last_processed", cp.LastProcessedBlock))
		}
	}

	if p.cfg.Resume {
		offset, ok, err := p.cursors.Load(id)
		switch {
		case err != nil:
			p.logger.Warn("load cursor failed, starting from offset zero", zap.Error(err), zap.String("contract_id", id))
		case ok:
			t.offset = offset
		}
	}

	metrics.LastProcessedBlock.WithLabelValues(id).Set(float64(t.lastProcessed))
	metrics.PageOffset.WithLabelValues(id).Set(float64(t.offset))
	return t
}

func (p *Poller) loop(ctx context.Context, t *task) {
	defer p.wg.Done()
	defer p.release(t)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		default:
		}

		p.runCycle(ctx, t)

		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-ticker.C:
		}
	}
}

// runCycle executes one cycle and absorbs its failure.
func (p *Poller) runCycle(ctx context.Context, t *task) {
	id := t.contract.ID()
	start := time.Now()

	n, err := p.poll(ctx, t)
	metrics.PollDuration.WithLabelValues(id).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.PollCycles.WithLabelValues(id, "error").Inc()
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			p.logger.Debug("poll cycle canceled", zap.String("contract_id", id))
			return
		}
		metrics.ErrorsTotal.WithLabelValues("poller", "cycle").Inc()
		p.logger.Error("poll cycle failed", zap.Error(err), zap.String("contract_id", id), zap.Int("processed", n))
		return
	}

	metrics.PollCycles.WithLabelValues(id, "ok").Inc()
	progress := t.progress()
	p.logger.Info("poll cycle complete",
		zap.String("contract_id", id),
		zap.Int("events", n),
		zap.Uint64("last_processed", progress.LastProcessedBlock),
		zap.Int("offset", progress.Offset),
	)
}

// poll fetches pages starting at the task's offset and ingests them in order.
// The offset only moves past a page once every event on it has been stored,
// so a failed cycle re-reads the same page next time.
func (p *Poller) poll(ctx context.Context, t *task) (int, error) {
	id := t.contract.ID()
	lock := p.cycleLock(id)
	lock.Lock()
	defer lock.Unlock()

	if err := p.loadFloor(ctx, t); err != nil {
		metrics.ErrorsTotal.WithLabelValues("store", "load_checkpoint").Inc()
		return 0, err
	}

	processed := 0

	for page := 0; page < p.cfg.MaxPages; page++ {
		progress := t.progress()
		p.logger.Debug("fetch events",
			zap.String("contract_id", id),
			zap.Int("offset", progress.Offset),
			zap.Uint64("from_block", progress.LastProcessedBlock+1),
		)

		raws, err := p.upstream.FetchEvents(ctx, id, progress.Offset, p.cfg.PageLimit)
		if err != nil {
			metrics.ErrorsTotal.WithLabelValues("upstream", "fetch_events").Inc()
			return processed, fmt.Errorf("fetch events at offset %d: %w", progress.Offset, err)
		}
		if len(raws) == 0 {
			return processed, nil
		}
		metrics.EventsFetched.WithLabelValues(id).Add(float64(len(raws)))

		for _, raw := range raws {
			if err := p.ingest(ctx, t, raw); err != nil {
				return processed, err
			}
			processed++
		}

		next := progress.Offset + len(raws)
		t.setOffset(next)
		metrics.PageOffset.WithLabelValues(id).Set(float64(next))
		if err := p.cursors.Save(id, next); err != nil {
			p.logger.Warn("save cursor failed", zap.Error(err), zap.String("contract_id", id))
		}

		if len(raws) < p.cfg.PageLimit {
			return processed, nil
		}
	}
	return processed, nil
}

// loadFloor reads the stored checkpoint so no advance in this cycle can go
// below it, whatever the task was seeded with.
func (p *Poller) loadFloor(ctx context.Context, t *task) error {
	cp, ok, err := p.checkpoints.Get(ctx, t.contract.Address, t.contract.Name)
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}
	t.state.Lock()
	defer t.state.Unlock()
	t.checkpointed = ok
	if ok && cp.LastProcessedBlock > t.lastProcessed {
		t.lastProcessed = cp.LastProcessedBlock
	}
	return nil
}

func (p *Poller) ingest(ctx context.Context, t *task, raw model.RawEvent) error {
	id := t.contract.ID()
	if strings.TrimSpace(raw.TxID) == "" {
		metrics.ErrorsTotal.WithLabelValues("decoder", "missing_tx_id").Inc()
		p.logger.Warn("skip event without tx id", zap.String("contract_id", id), zap.String("event_type", raw.EventType))
		return nil
	}

	detail := p.upstream.FetchTransaction(ctx, raw.TxID)
	event := DecodeEvent(raw, t.contract.Address, t.contract.Name, detail, p.now())

	result, err := p.events.InsertIfAbsent(ctx, event)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("store", "insert_event").Inc()
		return fmt.Errorf("store event %s: %w", event.TxID, err)
	}
	metrics.EventsStored.WithLabelValues(id, result.String()).Inc()

	progress := t.progress()
	target := progress.LastProcessedBlock
	if event.BlockHeight > target {
		target = event.BlockHeight
	}
	if target != progress.LastProcessedBlock || !t.hasCheckpoint() {
		if err := p.checkpoints.Advance(ctx, t.contract.Address, t.contract.Name, target); err != nil {
			metrics.ErrorsTotal.WithLabelValues("store", "advance_checkpoint").Inc()
			return fmt.Errorf("advance checkpoint to %d: %w", target, err)
		}
		t.setLastProcessed(target)
		metrics.LastProcessedBlock.WithLabelValues(id).Set(float64(target))
	}

	p.logger.Debug("event ingested",
		zap.String("contract_id", event.ContractID),
		zap.String("tx_id", event.TxID),
		zap.String("event_name", event.EventName),
		zap.Uint64("block_height", event.BlockHeight),
		zap.String("result", result.String()),
	)
	return nil
}

func (t *task) progress() Progress {
	t.state.Lock()
	defer t.state.Unlock()
	return Progress{LastProcessedBlock: t.lastProcessed, Offset: t.offset}
}

func (t *task) hasCheckpoint() bool {
	t.state.Lock()
	defer t.state.Unlock()
	return t.checkpointed
}

func (t *task) setLastProcessed(height uint64) {
	t.state.Lock()
	defer t.state.Unlock()
	if height > t.lastProcessed {
		t.lastProcessed = height
	}
	t.checkpointed = true
}

func (t *task) setOffset(offset int) {
	t.state.Lock()
	defer t.state.Unlock()
	t.offset = offset
}
