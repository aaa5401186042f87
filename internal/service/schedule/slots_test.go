package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mediassist/resource-api/internal/model"
)

func window(day time.Weekday, start, end string) *model.AvailabilityWindow {
	return &model.AvailabilityWindow{Weekday: day, StartTime: start, EndTime: end}
}

func TestSlotTimesExpandsWindow(t *testing.T) {
	windows := []*model.AvailabilityWindow{window(time.Monday, "09:00", "11:00")}

	times := slotTimes(windows, time.Monday, SlotGranularity)
	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30"}, times)
}

func TestSlotTimesDropsPartialTrailingSlot(t *testing.T) {
	windows := []*model.AvailabilityWindow{window(time.Tuesday, "09:00", "09:45")}

	times := slotTimes(windows, time.Tuesday, SlotGranularity)
	assert.Equal(t, []string{"09:00"}, times)
}

func TestSlotTimesIgnoresOtherWeekdays(t *testing.T) {
	windows := []*model.AvailabilityWindow{window(time.Monday, "09:00", "10:00")}

	assert.Empty(t, slotTimes(windows, time.Friday, SlotGranularity))
}

func TestSlotTimesMergesOverlappingWindows(t *testing.T) {
	windows := []*model.AvailabilityWindow{
		window(time.Monday, "09:00", "10:30"),
		window(time.Monday, "10:00", "11:00"),
	}

	times := slotTimes(windows, time.Monday, SlotGranularity)
	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30"}, times)
}

func TestSlotTimesSkipsDegenerateWindows(t *testing.T) {
	windows := []*model.AvailabilityWindow{
		window(time.Monday, "10:00", "10:00"),
		window(time.Monday, "12:00", "11:00"),
		window(time.Monday, "bad", "13:00"),
	}

	assert.Empty(t, slotTimes(windows, time.Monday, SlotGranularity))
}

func TestWithinWindows(t *testing.T) {
	windows := []*model.AvailabilityWindow{window(time.Wednesday, "14:00", "16:00")}

	assert.True(t, withinWindows(windows, time.Wednesday, "14:00"))
	assert.True(t, withinWindows(windows, time.Wednesday, "15:30"))
	assert.False(t, withinWindows(windows, time.Wednesday, "16:00"))
	assert.False(t, withinWindows(windows, time.Wednesday, "14:15"))
	assert.False(t, withinWindows(windows, time.Thursday, "14:00"))
}

func TestSlotStart(t *testing.T) {
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	start, err := slotStart(date, "09:30")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC), start)

	_, err = slotStart(date, "25:00")
	assert.Error(t, err)
}
