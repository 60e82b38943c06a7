package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"stacksIndexer/internal/model"
	"stacksIndexer/internal/storage"
)

const eventColumns = `contract_id, tx_id, event_name, event_data, block_height, block_hash, nonce, fees, timestamp, created_at, updated_at`

// Store provides Postgres persistence for events and contract checkpoints.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ storage.EventStore      = (*Store)(nil)
	_ storage.CheckpointStore = (*Store)(nil)
)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates tables and indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// InsertIfAbsent inserts the event unless its tx id is already stored.
func (s *Store) InsertIfAbsent(ctx context.Context, event model.Event) (storage.InsertResult, error) {
	data, err := json.Marshal(event.EventData)
	if err != nil {
		return storage.Inserted, fmt.Errorf("marshal event data: %w", err)
	}

	var nonce *int64
	if event.Nonce != nil {
		n := int64(*event.Nonce)
		nonce = &n
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO events (
			contract_id, tx_id, event_name, event_data, block_height, block_hash, nonce, fees, timestamp, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		ON CONFLICT (tx_id) DO NOTHING
	`,
		event.ContractID,
		event.TxID,
		event.EventName,
		data,
		int64(event.BlockHeight),
		event.BlockHash,
		nonce,
		decimalText(event.Fees),
		event.Timestamp.UTC(),
	)
	if err != nil {
		return storage.Inserted, fmt.Errorf("insert event %s: %w", event.TxID, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.AlreadyExists, nil
	}
	return storage.Inserted, nil
}

func (s *Store) Find(ctx context.Context, filter storage.EventFilter, page storage.Page) ([]model.Event, int64, error) {
	where, args := buildWhere(filter)

	total, err := s.countWhere(ctx, where, args)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + eventColumns + ` FROM events` + where + ` ORDER BY block_height DESC, id DESC`
	if page.Offset > 0 {
		args = append(args, page.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	if page.Limit > 0 {
		args = append(args, page.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("find events: %w", err)
	}
	events, err := collectEvents(rows)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (s *Store) FindByTxID(ctx context.Context, txID string) (model.Event, bool, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+eventColumns+` FROM events WHERE tx_id = $1`, txID)
	if err != nil {
		return model.Event{}, false, fmt.Errorf("find event %s: %w", txID, err)
	}
	events, err := collectEvents(rows)
	if err != nil {
		return model.Event{}, false, err
	}
	if len(events) == 0 {
		return model.Event{}, false, nil
	}
	return events[0], true, nil
}

func (s *Store) EventsSince(ctx context.Context, since time.Time) ([]model.Event, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+eventColumns+` FROM events WHERE timestamp >= $1 ORDER BY timestamp ASC`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("events since: %w", err)
	}
	return collectEvents(rows)
}

func (s *Store) CountEvents(ctx context.Context, filter storage.EventFilter) (int64, error) {
	where, args := buildWhere(filter)
	return s.countWhere(ctx, where, args)
}

// Advance upserts the checkpoint and sets last_processed_block unconditionally.
func (s *Store) Advance(ctx context.Context, address, contractName string, blockHeight uint64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO contracts (address, contract_name, last_processed_block, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (address, contract_name) DO UPDATE
		SET last_processed_block = EXCLUDED.last_processed_block, updated_at = now()
	`, address, contractName, int64(blockHeight))
	if err != nil {
		return fmt.Errorf("advance checkpoint %s.%s: %w", address, contractName, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, address, contractName string) (model.ContractCheckpoint, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT address, contract_name, last_processed_block, created_at, updated_at
		FROM contracts WHERE address = $1 AND contract_name = $2
	`, address, contractName)

	cp, err := scanCheckpoint(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ContractCheckpoint{}, false, nil
		}
		return model.ContractCheckpoint{}, false, fmt.Errorf("get checkpoint %s.%s: %w", address, contractName, err)
	}
	return cp, true, nil
}

func (s *Store) TopByProgress(ctx context.Context, limit int) ([]model.ContractCheckpoint, error) {
	query := `
		SELECT address, contract_name, last_processed_block, created_at, updated_at
		FROM contracts ORDER BY last_processed_block DESC, address ASC, contract_name ASC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("top checkpoints: %w", err)
	}
	defer rows.Close()

	out := make([]model.ContractCheckpoint, 0)
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top checkpoints: %w", err)
	}
	return out, nil
}

func (s *Store) CountContracts(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM contracts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count contracts: %w", err)
	}
	return n, nil
}

func (s *Store) countWhere(ctx context.Context, where string, args []any) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM events`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func buildWhere(filter storage.EventFilter) (string, []any) {
	var conds []string
	var args []any

	if filter.ContractID != "" {
		args = append(args, filter.ContractID)
		conds = append(conds, fmt.Sprintf("contract_id = $%d", len(args)))
	}
	if filter.EventName != "" {
		args = append(args, filter.EventName)
		conds = append(conds, fmt.Sprintf("event_name = $%d", len(args)))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since.UTC())
		conds = append(conds, fmt.Sprintf("timestamp >= $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, strings.ToLower(filter.Search))
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(strpos(lower(contract_id), $%d) > 0 OR strpos(lower(event_name), $%d) > 0 OR strpos(lower(tx_id), $%d) > 0)",
			n, n, n,
		))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func collectEvents(rows pgx.Rows) ([]model.Event, error) {
	defer rows.Close()

	out := make([]model.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return out, nil
}

func scanEvent(row pgx.Row) (model.Event, error) {
	var (
		ev     model.Event
		data   []byte
		height int64
		nonce  *int64
		fees   *string
	)
	if err := row.Scan(
		&ev.ContractID,
		&ev.TxID,
		&ev.EventName,
		&data,
		&height,
		&ev.BlockHash,
		&nonce,
		&fees,
		&ev.Timestamp,
		&ev.CreatedAt,
		&ev.UpdatedAt,
	); err != nil {
		return model.Event{}, err
	}

	ev.BlockHeight = uint64(height)
	if nonce != nil {
		n := uint64(*nonce)
		ev.Nonce = &n
	}
	if fees != nil {
		if d, err := decimal.NewFromString(*fees); err == nil {
			ev.Fees = &d
		}
	}
	ev.EventData = model.EmptyMap()
	if len(data) > 0 {
		if err := json.Unmarshal(data, &ev.EventData); err != nil {
			return model.Event{}, fmt.Errorf("decode event data: %w", err)
		}
	}
	return ev, nil
}

func scanCheckpoint(row pgx.Row) (model.ContractCheckpoint, error) {
	var (
		cp     model.ContractCheckpoint
		height int64
	)
	if err := row.Scan(&cp.Address, &cp.ContractName, &height, &cp.CreatedAt, &cp.UpdatedAt); err != nil {
		return model.ContractCheckpoint{}, err
	}
	cp.LastProcessedBlock = uint64(height)
	return cp, nil
}

func decimalText(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
