package wellbeing

import "time"

// Task is the focus activity of one weekday.
type Task struct {
	Day         string `json:"day"`
	Name        string `json:"task"`
	Description string `json:"description"`
}

var weeklyPlan = [7]Task{
	time.Sunday:    {Day: "Sunday", Name: "Light Exercise", Description: "Engage in some light physical activity like stretching or a gentle yoga flow."},
	time.Monday:    {Day: "Monday", Name: "Meditation", Description: "Practice mindfulness or guided meditation to center your thoughts."},
	time.Tuesday:   {Day: "Tuesday", Name: "Breathing Exercise", Description: "Focus on deep, controlled breathing to calm your nervous system."},
	time.Wednesday: {Day: "Wednesday", Name: "Brisk Walk", Description: "Go for a walk outdoors to get your body moving and enjoy some fresh air."},
	time.Thursday:  {Day: "Thursday", Name: "Laughing Yoga", Description: "Engage in laughter exercises to boost your mood and reduce stress."},
	time.Friday:    {Day: "Friday", Name: "Light Exercise", Description: "Engage in some light physical activity like stretching or a gentle yoga flow."},
	time.Saturday:  {Day: "Saturday", Name: "Meditation", Description: "Practice mindfulness or guided meditation to reflect on your week."},
}

// Plan returns the fixed weekly plan, Sunday first.
func Plan() []Task {
	out := make([]Task, len(weeklyPlan))
	copy(out, weeklyPlan[:])
	return out
}

// TaskFor returns the task scheduled on weekday.
func TaskFor(weekday time.Weekday) Task {
	return weeklyPlan[weekday]
}

// CompletionKey is the completedTasks key of day's task on date.
func CompletionKey(date time.Time, day string) string {
	return date.Format("2006-01-02") + "-" + day
}
