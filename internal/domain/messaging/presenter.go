package messaging

import (
	"fmt"
	"sort"
	"time"
)

// DayGroup is one calendar day of messages, in send order, for rendering a
// conversation with date separators.
type DayGroup struct {
	Day      time.Time
	Label    string
	Messages []Message
}

// GroupByDay splits messages into calendar-day buckets in the given
// location. Messages arrive in any order; groups and their contents come
// back oldest first.
func GroupByDay(messages []Message, loc *time.Location, now time.Time) []DayGroup {
	if loc == nil {
		loc = time.Local
	}
	sorted := append([]Message(nil), messages...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	groups := make([]DayGroup, 0)
	for _, msg := range sorted {
		day := dayOf(msg.CreatedAt.In(loc))
		if len(groups) > 0 && groups[len(groups)-1].Day.Equal(day) {
			last := len(groups) - 1
			groups[last].Messages = append(groups[last].Messages, msg)
			continue
		}
		groups = append(groups, DayGroup{
			Day:      day,
			Label:    dayLabel(day, dayOf(now.In(loc))),
			Messages: []Message{msg},
		})
	}
	return groups
}

func dayOf(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func dayLabel(day, today time.Time) string {
	switch {
	case day.Equal(today):
		return "Today"
	case day.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	case day.After(today.AddDate(0, 0, -6)):
		return day.Format("Monday")
	default:
		return day.Format("Jan 2, 2006")
	}
}

// FormatTimestamp renders the compact relative time shown next to a thread
// in the list: recent activity collapses to minutes/hours, older activity
// falls back to weekday and then date.
func FormatTimestamp(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	delta := now.Sub(t)
	switch {
	case delta < time.Minute:
		return "Just now"
	case delta < time.Hour:
		return fmt.Sprintf("%dm", int(delta.Minutes()))
	case delta < 24*time.Hour && dayOf(t.In(now.Location())).Equal(dayOf(now)):
		return fmt.Sprintf("%dh", int(delta.Hours()))
	case delta < 7*24*time.Hour:
		return t.In(now.Location()).Format("Mon")
	default:
		return t.In(now.Location()).Format("Jan 2")
	}
}
