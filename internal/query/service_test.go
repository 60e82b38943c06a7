package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stacksIndexer/internal/model"
	"stacksIndexer/internal/storage"
)

var fixedNow = time.Date(2024, 5, 2, 0, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	svc := NewService(store, store, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc, store
}

func insert(t *testing.T, store *storage.MemoryStore, contractID, txID, name string, height uint64, ts time.Time) {
	t.Helper()
	_, err := store.InsertIfAbsent(context.Background(), model.Event{
		ContractID:  contractID,
		TxID:        txID,
		EventName:   name,
		EventData:   model.EmptyMap(),
		BlockHeight: height,
		Timestamp:   ts,
	})
	require.NoError(t, err)
}

func TestListEventsFilters(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	insert(t, store, "X.a", "tx1", "mint", 5, fixedNow)
	insert(t, store, "Y.b", "tx2", "burn", 9, fixedNow)

	page, err := svc.ListEvents(ctx, ListParams{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	require.Len(t, page.Events, 2)
	assert.Equal(t, "tx2", page.Events[0].TxID)

	page, err = svc.ListEvents(ctx, ListParams{ContractID: "X.a"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, "tx1", page.Events[0].TxID)

	page, err = svc.ListEvents(ctx, ListParams{EventName: "burn"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, "tx2", page.Events[0].TxID)

	page, err = svc.ListEvents(ctx, ListParams{Filter: "mint"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	require.Len(t, page.Events, 1)
	assert.Equal(t, "tx1", page.Events[0].TxID)

	page, err = svc.ListEvents(ctx, ListParams{Filter: "TX1"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, "tx1", page.Events[0].TxID)
}

func TestListEventsPaging(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	for i := 1; i <= 5; i++ {
		insert(t, store, "X.a", "tx"+string(rune('0'+i)), "mint", uint64(i), fixedNow)
	}

	page, err := svc.ListEvents(ctx, ListParams{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.Total)
	require.Len(t, page.Events, 2)
	assert.EqualValues(t, 3, page.Events[0].BlockHeight)
	assert.EqualValues(t, 2, page.Events[1].BlockHeight)

	page, err = svc.ListEvents(ctx, ListParams{Page: 4, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, page.Events)
	assert.NotNil(t, page.Events)

	page, err = svc.ListEvents(ctx, ListParams{Page: -1, Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, page.Events, 5)
}

func TestGetEvent(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	insert(t, store, "X.a", "tx1", "mint", 5, fixedNow)

	ev, err := svc.GetEvent(ctx, "tx1")
	require.NoError(t, err)
	assert.Equal(t, "X.a", ev.ContractID)

	_, err = svc.GetEvent(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = svc.GetEvent(ctx, "  ")
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestGetContract(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	require.NoError(t, store.Advance(ctx, "SP1", "token", 42))

	c, err := svc.GetContract(ctx, "SP1.token")
	require.NoError(t, err)
	assert.Equal(t, "SP1.token", c.ContractID)
	assert.Equal(t, "SP1", c.Address)
	assert.Equal(t, "token", c.ContractName)
	assert.EqualValues(t, 42, c.LastProcessedBlock)

	_, err = svc.GetContract(ctx, "SP1.other")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = svc.GetContract(ctx, "nodot")
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)

	insert(t, store, "X.a", "tx1", "mint", 5, fixedNow)
	insert(t, store, "X.a", "tx2", "mint", 10, fixedNow)
	insert(t, store, "Y.b", "tx3", "burn", 25, fixedNow)
	require.NoError(t, store.Advance(ctx, "X", "a", 10))
	require.NoError(t, store.Advance(ctx, "Y", "b", 25))

	stats, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{TotalEvents: 3, UniqueContracts: 2, LastProcessedBlock: 25}, stats)
}

func TestTopContracts(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	insert(t, store, "X.a", "tx1", "mint", 5, fixedNow)
	insert(t, store, "X.a", "tx2", "mint", 10, fixedNow)
	insert(t, store, "Y.b", "tx3", "burn", 25, fixedNow)
	require.NoError(t, store.Advance(ctx, "X", "a", 10))
	require.NoError(t, store.Advance(ctx, "Y", "b", 25))

	top, err := svc.TopContracts(ctx)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, ContractStats{ContractID: "Y.b", Address: "Y", ContractName: "b", LastProcessedBlock: 25, EventCount: 1}, top[0])
	assert.Equal(t, ContractStats{ContractID: "X.a", Address: "X", ContractName: "a", LastProcessedBlock: 10, EventCount: 2}, top[1])
}

func TestTopContractsCapped(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	for i := 0; i < TopContractsLimit+3; i++ {
		require.NoError(t, store.Advance(ctx, "SP", "c"+string(rune('a'+i)), uint64(i)))
	}

	top, err := svc.TopContracts(ctx)
	require.NoError(t, err)
	assert.Len(t, top, TopContractsLimit)
	assert.EqualValues(t, TopContractsLimit+2, top[0].LastProcessedBlock)
}
