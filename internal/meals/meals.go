// Package meals aggregates swipe counts per canteen over trailing day windows.
package meals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"mealtrack/internal/models"
)

// ErrCanteenRequired is returned by Summarize when no canteen is given.
var ErrCanteenRequired = errors.New("canteen is required")

// Period selects a trailing window of whole UTC days ending today.
type Period int

const (
	Today Period = iota
	Week
	Month
)

func (p Period) days() int {
	switch p {
	case Week:
		return 7
	case Month:
		return 30
	default:
		return 1
	}
}

// String returns the lower-case period name used in logs.
func (p Period) String() string {
	switch p {
	case Week:
		return "week"
	case Month:
		return "month"
	default:
		return "today"
	}
}

// Window is a closed interval of swipe creation times.
type Window struct {
	Start time.Time
	End   time.Time
}

// TrailingDays returns the window covering n calendar days in UTC: from
// midnight n-1 days before now up to the last millisecond of now's day.
func TrailingDays(now time.Time, n int) Window {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return Window{
		Start: midnight.AddDate(0, 0, -(n - 1)),
		End:   midnight.Add(24*time.Hour - time.Millisecond),
	}
}

// WindowFor returns the window of p relative to now.
func WindowFor(p Period, now time.Time) Window {
	return TrailingDays(now, p.days())
}

// Counter counts swipes of one meal type at a canteen within [start, end].
type Counter interface {
	Count(ctx context.Context, canteen string, mealType models.MealType, start, end time.Time) (int64, error)
}

// Lister lists the canteen codes present in the swipe feed.
type Lister interface {
	Canteens(ctx context.Context) ([]string, error)
}

// Summary holds the per-meal counts of one canteen over one window.
type Summary struct {
	Canteen   string
	Window    Window
	Breakfast int64
	Lunch     int64
	Dinner    int64
}

// Total is the sum of the three meal counts.
func (s Summary) Total() int64 { return s.Breakfast + s.Lunch + s.Dinner }

// Canteen is a canteen code with its display label.
type Canteen struct {
	Code        string
	DisplayName string
}

// Aggregator computes meal summaries and the canteen list.
type Aggregator struct {
	counter Counter
	lister  Lister
	now     func() time.Time
}

// NewAggregator returns an Aggregator over the given swipe feed.
func NewAggregator(counter Counter, lister Lister) *Aggregator {
	return &Aggregator{counter: counter, lister: lister, now: time.Now}
}

// Summarize counts breakfast, lunch and dinner for canteen over p. The three
// counts run concurrently against the same window; the first failure cancels
// the rest.
func (a *Aggregator) Summarize(ctx context.Context, canteen string, p Period) (Summary, error) {
	canteen = strings.TrimSpace(canteen)
	if canteen == "" {
		return Summary{}, ErrCanteenRequired
	}
	w := WindowFor(p, a.now())

	counts := make([]int64, len(models.MealTypes))
	g, gctx := errgroup.WithContext(ctx)
	for i, mt := range models.MealTypes {
		i, mt := i, mt
		g.Go(func() error {
			n, err := a.counter.Count(gctx, canteen, mt, w.Start, w.End)
			if err != nil {
				return err
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("summarizing %s for %s: %w", p, canteen, err)
	}

	return Summary{
		Canteen:   canteen,
		Window:    w,
		Breakfast: counts[0],
		Lunch:     counts[1],
		Dinner:    counts[2],
	}, nil
}

// Canteens returns every canteen, labelled "Canteen 1".."Canteen n" in code
// order.
func (a *Aggregator) Canteens(ctx context.Context) ([]Canteen, error) {
	codes, err := a.lister.Canteens(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Canteen, 0, len(codes))
	for i, code := range codes {
		out = append(out, Canteen{Code: code, DisplayName: fmt.Sprintf("Canteen %d", i+1)})
	}
	return out, nil
}
