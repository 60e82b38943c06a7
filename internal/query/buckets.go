package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Range names a time-series window.
type Range string

const (
	RangeDay   Range = "day"
	RangeWeek  Range = "week"
	RangeMonth Range = "month"
)

const (
	hourLayout = "2006-01-02 15:00"
	dayLayout  = "2006-01-02"
)

type rangeWindow struct {
	window time.Duration
	layout string
}

var rangeWindows = map[Range]rangeWindow{
	RangeDay:   {window: 24 * time.Hour, layout: hourLayout},
	RangeWeek:  {window: 7 * 24 * time.Hour, layout: dayLayout},
	RangeMonth: {window: 30 * 24 * time.Hour, layout: dayLayout},
}

// ParseRange maps a range name to a Range. Unknown or empty names mean week.
func ParseRange(name string) Range {
	r := Range(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := rangeWindows[r]; ok {
		return r
	}
	return RangeWeek
}

// Bucket is the event count of one labelled period.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// EventCounts groups events newer than now minus the range into hourly (day)
// or daily (week, month) UTC buckets, oldest first. Empty periods are omitted.
func (s *Service) EventCounts(ctx context.Context, r Range) ([]Bucket, error) {
	w, ok := rangeWindows[r]
	if !ok {
		w = rangeWindows[RangeWeek]
	}

	since := s.now().Add(-w.window)
	events, err := s.events.EventsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("events since %s: %w", since.Format(time.RFC3339), err)
	}

	counts := make(map[string]int)
	for _, ev := range events {
		counts[ev.Timestamp.UTC().Format(w.layout)]++
	}

	buckets := make([]Bucket, 0, len(counts))
	for label, count := range counts {
		buckets = append(buckets, Bucket{Label: label, Count: count})
	}
	sortBuckets(buckets, w.layout)
	return buckets, nil
}

func sortBuckets(buckets []Bucket, layout string) {
	sort.Slice(buckets, func(i, j int) bool {
		ti, erri := time.Parse(layout, buckets[i].Label)
		tj, errj := time.Parse(layout, buckets[j].Label)
		if erri != nil || errj != nil {
			return buckets[i].Label < buckets[j].Label
		}
		return ti.Before(tj)
	})
}
