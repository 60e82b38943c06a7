package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stacksIndexer/internal/model"
	"stacksIndexer/internal/storage"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

const (
	DefaultPage       = 1
	DefaultLimit      = 20
	MaxLimit          = 100
	TopContractsLimit = 10
)

// ListParams selects a page of events. Page is 1-based.
type ListParams struct {
	Page       int
	Limit      int
	ContractID string
	EventName  string
	Filter     string
}

type EventPage struct {
	Events []model.Event `json:"events"`
	Total  int64         `json:"total"`
}

type Contract struct {
	ContractID         string    `json:"contractId"`
	Address            string    `json:"address"`
	ContractName       string    `json:"contractName"`
	LastProcessedBlock uint64    `json:"lastProcessedBlock"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type Stats struct {
	TotalEvents        int64  `json:"totalEvents"`
	UniqueContracts    int64  `json:"uniqueContracts"`
	LastProcessedBlock uint64 `json:"lastProcessedBlock"`
}

type ContractStats struct {
	ContractID         string `json:"contractId"`
	Address            string `json:"address"`
	ContractName       string `json:"contractName"`
	LastProcessedBlock uint64 `json:"lastProcessedBlock"`
	EventCount         int64  `json:"eventCount"`
}

// Service answers read-only queries over the event and checkpoint stores.
type Service struct {
	events      storage.EventStore
	checkpoints storage.CheckpointStore
	logger      *zap.Logger
	now         func() time.Time
}

func NewService(events storage.EventStore, checkpoints storage.CheckpointStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		events:      events,
		checkpoints: checkpoints,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ListEvents returns one page of events, highest block first, plus the total
// number of events matching the filters.
func (s *Service) ListEvents(ctx context.Context, params ListParams) (EventPage, error) {
	page := params.Page
	if page < 1 {
		page = DefaultPage
	}
	limit := params.Limit
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	filter := storage.EventFilter{
		ContractID: strings.TrimSpace(params.ContractID),
		EventName:  strings.TrimSpace(params.EventName),
		Search:     strings.TrimSpace(params.Filter),
	}
	events, total, err := s.events.Find(ctx, filter, storage.Page{Offset: (page - 1) * limit, Limit: limit})
	if err != nil {
		return EventPage{}, fmt.Errorf("list events: %w", err)
	}
	return EventPage{Events: events, Total: total}, nil
}

// GetEvent looks up an event by transaction id.
func (s *Service) GetEvent(ctx context.Context, txID string) (model.Event, error) {
	txID = model.NormalizeTxID(txID)
	if txID == "" {
		return model.Event{}, fmt.Errorf("%w: tx id is required", ErrInvalidArgument)
	}
	event, ok, err := s.events.FindByTxID(ctx, txID)
	if err != nil {
		return model.Event{}, fmt.Errorf("get event: %w", err)
	}
	if !ok {
		return model.Event{}, fmt.Errorf("event %s: %w", txID, ErrNotFound)
	}
	return event, nil
}

// GetContract returns the checkpoint of contractID (address.name).
func (s *Service) GetContract(ctx context.Context, contractID string) (Contract, error) {
	contract, err := model.ParseContractID(contractID)
	if err != nil {
		return Contract{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	cp, ok, err := s.checkpoints.Get(ctx, contract.Address, contract.Name)
	if err != nil {
		return Contract{}, fmt.Errorf("get contract: %w", err)
	}
	if !ok {
		return Contract{}, fmt.Errorf("contract %s: %w", contract.ID(), ErrNotFound)
	}
	return Contract{
		ContractID:         contract.ID(),
		Address:            cp.Address,
		ContractName:       cp.ContractName,
		LastProcessedBlock: cp.LastProcessedBlock,
		CreatedAt:          cp.CreatedAt,
		UpdatedAt:          cp.UpdatedAt,
	}, nil
}

// Stats returns totals and the highest checkpoint across all contracts.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	totalEvents, err := s.events.CountEvents(ctx, storage.EventFilter{})
	if err != nil {
		return Stats{}, fmt.Errorf("count events: %w", err)
	}
	contracts, err := s.checkpoints.CountContracts(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count contracts: %w", err)
	}
	top, err := s.checkpoints.TopByProgress(ctx, 1)
	if err != nil {
		return Stats{}, fmt.Errorf("latest checkpoint: %w", err)
	}

	stats := Stats{TotalEvents: totalEvents, UniqueContracts: contracts}
	if len(top) > 0 {
		stats.LastProcessedBlock = top[0].LastProcessedBlock
	}
	return stats, nil
}

// TopContracts returns the most advanced checkpoints with their live event counts.
func (s *Service) TopContracts(ctx context.Context) ([]ContractStats, error) {
	checkpoints, err := s.checkpoints.TopByProgress(ctx, TopContractsLimit)
	if err != nil {
		return nil, fmt.Errorf("top contracts: %w", err)
	}

	out := make([]ContractStats, len(checkpoints))
	g, gctx := errgroup.WithContext(ctx)
	for i, cp := range checkpoints {
		g.Go(func() error {
			id := cp.ContractID()
			n, err := s.events.CountEvents(gctx, storage.EventFilter{ContractID: id})
			if err != nil {
				return fmt.Errorf("count events for %s: %w", id, err)
			}
			out[i] = ContractStats{
				ContractID:         id,
				Address:            cp.Address,
				ContractName:       cp.ContractName,
				LastProcessedBlock: cp.LastProcessedBlock,
				EventCount:         n,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
