package report

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealtrack/internal/models"
)

type fakeSource struct {
	records    []models.MealRecord
	err        error
	start, end time.Time
	calls      int
}

func (f *fakeSource) Between(_ context.Context, start, end time.Time) ([]models.MealRecord, error) {
	f.calls++
	f.start, f.end = start, end
	return f.records, f.err
}

var now = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

func newExporter(src Source) *Exporter {
	e := NewExporter(src)
	e.now = func() time.Time { return now }
	return e
}

func TestBuild_Range(t *testing.T) {
	todayEnd := time.Date(2024, 3, 15, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	earliest := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		start, end string
		wantStart  time.Time
		wantEnd    time.Time
	}{
		{"defaults", "", "", earliest, todayEnd},
		{"start clamped up", "2023-12-01", "", earliest, todayEnd},
		{"end clamped down", "", "2024-12-31", earliest, todayEnd},
		{"inside window", "2024-03-01", "2024-03-10",
			time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 10, 23, 59, 59, int(999*time.Millisecond), time.UTC)},
		{"single day", "2024-03-15", "2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), todayEnd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{}
			r, err := newExporter(src).Build(context.Background(), tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, r.Start)
			assert.Equal(t, tt.wantEnd, r.End)
			assert.Equal(t, tt.wantStart, src.start)
			assert.Equal(t, tt.wantEnd, src.end)
			assert.NotNil(t, r.Entries)
		})
	}
}

func TestBuild_Errors(t *testing.T) {
	ctx := context.Background()

	src := &fakeSource{}
	_, err := newExporter(src).Build(ctx, "15/03/2024", "")
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = newExporter(src).Build(ctx, "", "2024-02-30")
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = newExporter(src).Build(ctx, "2024-03-10", "2024-03-01")
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = newExporter(src).Build(ctx, "", "2024-01-01")
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.Zero(t, src.calls)

	boom := errors.New("cursor killed")
	_, err = newExporter(&fakeSource{err: boom}).Build(ctx, "", "")
	assert.ErrorIs(t, err, boom)
}

func TestBuild_Projection(t *testing.T) {
	src := &fakeSource{records: []models.MealRecord{
		{
			Canteen:   "MS003",
			MealType:  "Lunch",
			CreatedAt: time.Date(2024, 3, 14, 23, 30, 0, 0, time.UTC),
			Type:      "Veg",
			Sensor:    &models.SensorAttributes{PersonID: "E42", PersonName: "Ravi"},
		},
		{
			CreatedAt: time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC),
			Sensor:    &models.SensorAttributes{PersonID: "E43"},
		},
	}}
	r, err := newExporter(src).Build(context.Background(), "", "")
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{Date: "2024-03-14", DinnerType: "Veg", PersonID: "E42", PersonName: "Ravi", MealType: "Lunch"},
		{Date: "2024-03-15", DinnerType: "N/A", PersonID: "E43", PersonName: "N/A", MealType: "N/A"},
	}, r.Entries)
	assert.Equal(t, "2024-02-15", r.StartDate())
	assert.Equal(t, "2024-03-15", r.EndDate())
	assert.Equal(t, "Meal_Report_2024-02-15_to_2024-03-15.pdf", r.FileName())
}

func TestWritePDF(t *testing.T) {
	r := &Report{
		Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 2, 23, 59, 59, 0, time.UTC),
	}
	for i := 0; i < 80; i++ {
		r.Entries = append(r.Entries, Entry{
			Date: "2024-03-01", DinnerType: "N/A", PersonID: "E1", PersonName: "José", MealType: "Dinner",
		})
	}

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, r))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Contains(t, buf.String(), "%%EOF")
}
