package core

import (
	"strconv"
	"time"
)

// WeekRange is a span of days inside one month, both ends inclusive.
type WeekRange struct {
	StartDay int `json:"startDay"`
	EndDay   int `json:"endDay"`
}

// Contains reports whether day falls inside the range.
func (w WeekRange) Contains(day int) bool {
	return day >= w.StartDay && day <= w.EndDay
}

// Len returns the number of days in the range.
func (w WeekRange) Len() int {
	return w.EndDay - w.StartDay + 1
}

// Label renders the range as "D-D".
func (w WeekRange) Label() string {
	return strconv.Itoa(w.StartDay) + "-" + strconv.Itoa(w.EndDay)
}

// DaysInMonth returns the number of days of month in year.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Partition splits a month into week buckets clipped to the month.
//
// The first bucket starts at the Monday on or before day 1, clipped to day 1,
// and every bucket ends six days after its clipped start. Saved months and
// the day-to-week matching depend on exactly this output, including the
// [1,7] first bucket for months that begin on a Sunday.
func Partition(year, month int) []WeekRange {
	days := DaysInMonth(year, month)
	firstWeekday := int(time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Weekday())

	offset := 1 - firstWeekday
	if firstWeekday == 0 {
		offset = -6
	}

	start := max(1, 1+offset)
	var weeks []WeekRange
	for start <= days {
		end := min(start+6, days)
		weeks = append(weeks, WeekRange{StartDay: start, EndDay: end})
		start = end + 1
	}
	return weeks
}

func newWeekCells(weeks []WeekRange) []WeekCell {
	cells := make([]WeekCell, len(weeks))
	for i, w := range weeks {
		cells[i] = WeekCell{
			StartDay:  w.StartDay,
			EndDay:    w.EndDay,
			DateRange: w.Label(),
			Cells:     []CategoryCell{},
		}
	}
	return cells
}

// Range returns the bucket a week cell covers.
func (w WeekCell) Range() WeekRange {
	return WeekRange{StartDay: w.StartDay, EndDay: w.EndDay}
}
