package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/mediassist/resource-api/internal/model"
)

// SlotGranularity is the fixed bookable unit of the calendar.
const SlotGranularity = 30 * time.Minute

const clockLayout = "15:04"

func parseClock(value string) (time.Duration, error) {
	t, err := time.Parse(clockLayout, value)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", value, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func formatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

// slotTimes expands the windows matching weekday into slot start times at
// the calendar granularity. A slot fits only if it ends within its window.
func slotTimes(windows []*model.AvailabilityWindow, weekday time.Weekday, granularity time.Duration) []string {
	seen := make(map[string]bool)
	var times []string

	for _, w := range windows {
		if w.Weekday != weekday {
			continue
		}
		start, err := parseClock(w.StartTime)
		if err != nil {
			continue
		}
		end, err := parseClock(w.EndTime)
		if err != nil || end <= start {
			continue
		}
		for t := start; t+granularity <= end; t += granularity {
			clock := formatClock(t)
			if !seen[clock] {
				seen[clock] = true
				times = append(times, clock)
			}
		}
	}

	sort.Strings(times)
	return times
}

// withinWindows reports whether a slot starting at clock fits one of the
// weekday's windows at the calendar granularity.
func withinWindows(windows []*model.AvailabilityWindow, weekday time.Weekday, clock string) bool {
	for _, t := range slotTimes(windows, weekday, SlotGranularity) {
		if t == clock {
			return true
		}
	}
	return false
}

// slotStart combines a civil date and a clock value into a wall time.
func slotStart(date time.Time, clock string) (time.Time, error) {
	offset, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return day.Add(offset), nil
}
