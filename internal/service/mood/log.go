package mood

import (
	"time"

	"github.com/wellbeingchat/backend/internal/model/mood"
)

// DayPoint is one day of the weekly series. Average is zero for days
// without entries and Mood then reads mood.NotTracked.
type DayPoint struct {
	Date    string  `json:"date"`
	Label   string  `json:"label"`
	Average float64 `json:"average"`
	Mood    string  `json:"mood"`
	Tracked bool    `json:"tracked"`
}

// AverageForDay averages the ordinals of every entry whose timestamp falls
// on the calendar day of date in loc. It reports false for untracked days.
func AverageForDay(entries []mood.Entry, date time.Time, loc *time.Location) (float64, bool) {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := date.In(loc).Date()

	sum, count := 0, 0
	for _, entry := range entries {
		ey, em, ed := entry.Timestamp.In(loc).Date()
		if ey != y || em != m || ed != d {
			continue
		}
		ordinal := entry.Mood.Ordinal()
		if ordinal == 0 {
			continue
		}
		sum += ordinal
		count++
	}
	if count == 0 {
		return 0, false
	}
	return float64(sum) / float64(count), true
}

// WeeklySeries returns the seven days of the calendar week containing now,
// starting on weekStart.
func WeeklySeries(entries []mood.Entry, now time.Time, weekStart time.Weekday, loc *time.Location) []DayPoint {
	if loc == nil {
		loc = time.Local
	}
	start := StartOfWeek(now, weekStart, loc)

	points := make([]DayPoint, 0, 7)
	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i)
		point := DayPoint{
			Date:  day.Format("2006-01-02"),
			Label: day.Weekday().String()[:3],
			Mood:  mood.NotTracked,
		}
		if avg, ok := AverageForDay(entries, day, loc); ok {
			point.Average = avg
			point.Tracked = true
			if label, ok := mood.FromAverage(avg); ok {
				point.Mood = string(label)
			}
		}
		points = append(points, point)
	}
	return points
}

// StartOfWeek returns local midnight of the first day of the week holding now.
func StartOfWeek(now time.Time, weekStart time.Weekday, loc *time.Location) time.Time {
	local := now.In(loc)
	offset := (int(local.Weekday()) - int(weekStart) + 7) % 7
	y, m, d := local.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
}

// Latest returns the most recent entry, if any.
func Latest(entries []mood.Entry) (mood.Entry, bool) {
	if len(entries) == 0 {
		return mood.Entry{}, false
	}
	latest := entries[0]
	for _, entry := range entries[1:] {
		if !entry.Timestamp.Before(latest.Timestamp) {
			latest = entry
		}
	}
	return latest, true
}
