package scheduler

import (
	"testing"
	"time"

	"TurtleStock/pkg/config"
)

func TestNextSlot(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	slots := []config.Clock{
		{Hour: 16, Minute: 30},
		{Hour: 9, Minute: 0},
	}

	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			"morning picks backup slot",
			time.Date(2025, 6, 2, 8, 0, 0, 0, ny),
			time.Date(2025, 6, 2, 9, 0, 0, 0, ny),
		},
		{
			"midday picks close slot",
			time.Date(2025, 6, 2, 12, 0, 0, 0, ny),
			time.Date(2025, 6, 2, 16, 30, 0, 0, ny),
		},
		{
			"evening rolls to tomorrow's backup",
			time.Date(2025, 6, 2, 20, 0, 0, 0, ny),
			time.Date(2025, 6, 3, 9, 0, 0, 0, ny),
		},
		{
			"exactly on a slot rolls past it",
			time.Date(2025, 6, 2, 16, 30, 0, 0, ny),
			time.Date(2025, 6, 3, 9, 0, 0, 0, ny),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NextSlot(tc.now, slots)
			if !got.Equal(tc.want) {
				t.Fatalf("NextSlot(%v) = %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}
