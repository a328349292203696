// Package safety scores free text for crisis language. It backs the
// response gateway when the model does not return an explicit flag.
package safety

import "strings"

// Level grades how strongly a text signals risk.
type Level string

const (
	None     Level = "none"
	Elevated Level = "elevated"
	Crisis   Level = "crisis"
)

// Assessment is the heuristic result for one utterance.
type Assessment struct {
	Level   Level
	Score   int
	Matches []string
}

// Triggering reports whether the assessment should surface the emergency prompt.
func (a Assessment) Triggering() bool {
	return a.Level == Crisis
}

var keywordWeights = map[string]int{
	"kill myself":         6,
	"end my life":         6,
	"suicide":             6,
	"suicidal":            6,
	"want to die":         6,
	"better off dead":     6,
	"take my own life":    6,
	"hurt myself":         5,
	"self harm":           5,
	"self-harm":           5,
	"cut myself":          5,
	"overdose":            5,
	"no reason to live":   5,
	"can't go on":         3,
	"cant go on":          3,
	"hopeless":            2,
	"worthless":           2,
	"give up on life":     4,
	"nobody would miss":   4,
	"disappear forever":   3,
	"goodbye forever":     3,
	"can't take it":       2,
	"cant take it":        2,
	"empty inside":        1,
	"no way out":          3,
}

var negations = []string{
	"not suicidal",
	"never hurt myself",
	"wouldn't hurt myself",
	"would never kill myself",
}

// Analyze scores text. Scores of 5 or more are a crisis; 2 to 4 elevated.
func Analyze(text string) Assessment {
	normalized := normalize(text)
	if normalized == "" {
		return Assessment{Level: None}
	}

	for _, phrase := range negations {
		normalized = strings.ReplaceAll(normalized, phrase, " ")
	}

	score := 0
	var matches []string
	for phrase, weight := range keywordWeights {
		if strings.Contains(normalized, phrase) {
			score += weight
			matches = append(matches, phrase)
		}
	}

	switch {
	case score >= 5:
		return Assessment{Level: Crisis, Score: score, Matches: matches}
	case score >= 2:
		return Assessment{Level: Elevated, Score: score, Matches: matches}
	default:
		return Assessment{Level: None, Score: score, Matches: matches}
	}
}

func normalize(text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	lowered = strings.ReplaceAll(lowered, "’", "'")
	return strings.Join(strings.Fields(lowered), " ")
}
