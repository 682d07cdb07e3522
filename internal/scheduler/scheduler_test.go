package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPreviousMonth(t *testing.T) {
	cases := []struct {
		name  string
		now   time.Time
		start time.Time
		end   time.Time
	}{
		{
			name:  "mid month",
			now:   time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC),
			start: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "january wraps to december",
			now:   time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
			start: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "first instant of month",
			now:   time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
			start: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start, end := PreviousMonth(tc.now)
			assert.Equal(t, tc.start, start)
			assert.Equal(t, tc.end, end)
		})
	}
}
