package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	cases := map[string]Range{
		"day":   RangeDay,
		"Week":  RangeWeek,
		"month": RangeMonth,
		"":      RangeWeek,
		"year":  RangeWeek,
	}
	for in, want := range cases {
		if got := ParseRange(in); got != want {
			t.Fatalf("ParseRange(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEventCountsDayBucketsByHour(t *testing.T) {
	svc, store := newTestService(t)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	insert(t, store, "X.a", "tx1", "mint", 1, day.Add(1*time.Hour+10*time.Minute))
	insert(t, store, "X.a", "tx2", "mint", 2, day.Add(1*time.Hour+40*time.Minute))
	insert(t, store, "X.a", "tx3", "mint", 3, day.Add(5*time.Hour))
	// outside the 24h window
	insert(t, store, "X.a", "tx4", "mint", 4, fixedNow.Add(-25*time.Hour))

	buckets, err := svc.EventCounts(context.Background(), RangeDay)
	require.NoError(t, err)
	assert.Equal(t, []Bucket{
		{Label: "2024-05-01 01:00", Count: 2},
		{Label: "2024-05-01 05:00", Count: 1},
	}, buckets)
}

func TestEventCountsWeekBucketsByDay(t *testing.T) {
	svc, store := newTestService(t)
	insert(t, store, "X.a", "tx1", "mint", 1, fixedNow.Add(-1*time.Hour))
	insert(t, store, "X.a", "tx2", "mint", 2, fixedNow.Add(-3*24*time.Hour))
	insert(t, store, "X.a", "tx3", "mint", 3, fixedNow.Add(-3*24*time.Hour+time.Hour))
	insert(t, store, "X.a", "tx4", "mint", 4, fixedNow.Add(-10*24*time.Hour))

	buckets, err := svc.EventCounts(context.Background(), RangeWeek)
	require.NoError(t, err)
	assert.Equal(t, []Bucket{
		{Label: "2024-04-29", Count: 2},
		{Label: "2024-05-01", Count: 1},
	}, buckets)

	buckets, err = svc.EventCounts(context.Background(), RangeMonth)
	require.NoError(t, err)
	require.Len(t, buckets, 3)
	assert.Equal(t, "2024-04-22", buckets[0].Label)
}

func TestEventCountsEmpty(t *testing.T) {
	svc, _ := newTestService(t)
	buckets, err := svc.EventCounts(context.Background(), Range("bogus"))
	require.NoError(t, err)
	assert.Empty(t, buckets)
}

func TestSortBucketsChronological(t *testing.T) {
	buckets := []Bucket{
		{Label: "2024-05-10", Count: 1},
		{Label: "2024-04-30", Count: 1},
		{Label: "2024-05-02", Count: 1},
	}
	sortBuckets(buckets, dayLayout)
	if buckets[0].Label != "2024-04-30" || buckets[2].Label != "2024-05-10" {
		t.Fatalf("unexpected order: %+v", buckets)
	}
}
