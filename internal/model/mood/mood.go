// Package mood defines the enumerated mood scale recorded by users.
package mood

import (
	"math"
	"strings"
	"time"
)

// Mood is one of the five selectable moods.
type Mood string

const (
	Happy   Mood = "Happy"
	Calm    Mood = "Calm"
	Neutral Mood = "Neutral"
	Sad     Mood = "Sad"
	Anxious Mood = "Anxious"
)

// NotTracked labels a day without entries.
const NotTracked = "Not tracked"

// All lists moods from highest to lowest ordinal.
var All = []Mood{Happy, Calm, Neutral, Sad, Anxious}

// Entry is an append-only mood selection.
type Entry struct {
	ID        string    `json:"id"`
	Mood      Mood      `json:"mood"`
	Timestamp time.Time `json:"timestamp"`
}

// Parse accepts a mood name case-insensitively.
func Parse(raw string) (Mood, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	for _, m := range All {
		if strings.ToLower(string(m)) == normalized {
			return m, true
		}
	}
	return "", false
}

// Ordinal maps a mood onto 1..5. Zero is reserved for "no data" and is only
// returned for values outside the enumeration.
func (m Mood) Ordinal() int {
	switch m {
	case Happy:
		return 5
	case Calm:
		return 4
	case Neutral:
		return 3
	case Sad:
		return 2
	case Anxious:
		return 1
	default:
		return 0
	}
}

// FromAverage rounds an average ordinal back to a mood label.
func FromAverage(avg float64) (Mood, bool) {
	rounded := int(math.Round(avg))
	for _, m := range All {
		if m.Ordinal() == rounded {
			return m, true
		}
	}
	return "", false
}
