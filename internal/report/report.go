// Package report exports raw swipe records for a date range.
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mealtrack/internal/models"
)

const (
	dateLayout = "2006-01-02"
	notAvail   = "N/A"

	// maxDays is how far back a report may reach, counting today.
	maxDays = 30
)

// Date parameter errors returned by Build.
var (
	ErrInvalidDate  = errors.New("dates must be formatted as YYYY-MM-DD")
	ErrInvalidRange = errors.New("startDate must not be after endDate")
)

// Source returns swipes created within [start, end], oldest first.
type Source interface {
	Between(ctx context.Context, start, end time.Time) ([]models.MealRecord, error)
}

// Entry is one projected swipe.
type Entry struct {
	Date       string `json:"date"`
	DinnerType string `json:"dinnerType"`
	PersonID   string `json:"personId"`
	PersonName string `json:"personName"`
	MealType   string `json:"mealType"`
}

// Report is the projected record list for a clamped date range.
type Report struct {
	Start   time.Time
	End     time.Time
	Entries []Entry
}

// StartDate and EndDate format the clamped range as YYYY-MM-DD.
func (r *Report) StartDate() string { return r.Start.Format(dateLayout) }
func (r *Report) EndDate() string   { return r.End.Format(dateLayout) }

// FileName is the attachment name used for the PDF download.
func (r *Report) FileName() string {
	return fmt.Sprintf("Meal_Report_%s_to_%s.pdf", r.StartDate(), r.EndDate())
}

// Exporter builds reports from a Source.
type Exporter struct {
	src Source
	now func() time.Time
}

// NewExporter returns an Exporter reading from src.
func NewExporter(src Source) *Exporter {
	return &Exporter{src: src, now: time.Now}
}

// Build fetches and projects the swipes between startDate and endDate
// (YYYY-MM-DD, UTC, both optional). The range is clamped to the last 30 days
// including today and the end date covers its whole day.
func (e *Exporter) Build(ctx context.Context, startDate, endDate string) (*Report, error) {
	now := e.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	earliest := today.AddDate(0, 0, -(maxDays - 1))
	latest := endOfDay(today)

	start := earliest
	if startDate = strings.TrimSpace(startDate); startDate != "" {
		d, err := time.Parse(dateLayout, startDate)
		if err != nil {
			return nil, fmt.Errorf("%w: startDate %q", ErrInvalidDate, startDate)
		}
		if d.After(start) {
			start = d
		}
	}

	end := latest
	if endDate = strings.TrimSpace(endDate); endDate != "" {
		d, err := time.Parse(dateLayout, endDate)
		if err != nil {
			return nil, fmt.Errorf("%w: endDate %q", ErrInvalidDate, endDate)
		}
		if d = endOfDay(d); d.Before(end) {
			end = d
		}
	}

	if start.After(end) {
		return nil, ErrInvalidRange
	}

	records, err := e.src.Between(ctx, start, end)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, project(rec))
	}
	return &Report{Start: start, End: end, Entries: entries}, nil
}

func project(rec models.MealRecord) Entry {
	e := Entry{
		Date:       rec.CreatedAt.UTC().Format(dateLayout),
		DinnerType: orNA(rec.Type),
		PersonID:   notAvail,
		PersonName: notAvail,
		MealType:   orNA(rec.MealType),
	}
	if rec.Sensor != nil {
		e.PersonID = orNA(rec.Sensor.PersonID)
		e.PersonName = orNA(rec.Sensor.PersonName)
	}
	return e
}

func orNA(s string) string {
	if s == "" {
		return notAvail
	}
	return s
}

func endOfDay(d time.Time) time.Time {
	return d.Add(24*time.Hour - time.Millisecond)
}
