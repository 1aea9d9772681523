package messaging

import (
	"testing"
	"time"
)

func TestGroupByDay(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, loc)
	msgs := []Message{
		{ID: "c", Content: "late today", CreatedAt: time.Date(2026, 3, 10, 12, 0, 0, 0, loc)},
		{ID: "a", Content: "two days ago", CreatedAt: time.Date(2026, 3, 8, 9, 0, 0, 0, loc)},
		{ID: "b", Content: "yesterday", CreatedAt: time.Date(2026, 3, 9, 23, 0, 0, 0, loc)},
		{ID: "d", Content: "early today", CreatedAt: time.Date(2026, 3, 10, 8, 0, 0, 0, loc)},
	}

	groups := GroupByDay(msgs, loc, now)
	if len(groups) != 3 {
		t.Fatalf("expected 3 day groups, got %d", len(groups))
	}
	if groups[0].Messages[0].ID != "a" {
		t.Fatalf("groups must come oldest first, got %q", groups[0].Messages[0].ID)
	}
	if groups[1].Label != "Yesterday" {
		t.Fatalf("expected Yesterday label, got %q", groups[1].Label)
	}
	if groups[2].Label != "Today" {
		t.Fatalf("expected Today label, got %q", groups[2].Label)
	}
	if len(groups[2].Messages) != 2 || groups[2].Messages[0].ID != "d" {
		t.Fatalf("same-day messages must stay in send order: %+v", groups[2].Messages)
	}
}

func TestGroupByDayOlderLabels(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, loc)
	msgs := []Message{
		{ID: "w", CreatedAt: time.Date(2026, 3, 6, 10, 0, 0, 0, loc)},  // within the week
		{ID: "o", CreatedAt: time.Date(2026, 1, 15, 10, 0, 0, 0, loc)}, // older
	}
	groups := GroupByDay(msgs, loc, now)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Label != "Jan 15, 2026" {
		t.Fatalf("old days use full dates, got %q", groups[0].Label)
	}
	if groups[1].Label != "Friday" {
		t.Fatalf("recent days use weekday names, got %q", groups[1].Label)
	}
}

func TestFormatTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	cases := []struct {
		at   time.Time
		want string
	}{
		{now.Add(-30 * time.Second), "Just now"},
		{now.Add(-5 * time.Minute), "5m"},
		{now.Add(-3 * time.Hour), "3h"},
		{now.Add(-2 * 24 * time.Hour), "Sun"},
		{now.Add(-30 * 24 * time.Hour), "Feb 8"},
		{time.Time{}, ""},
	}
	for _, tc := range cases {
		if got := FormatTimestamp(tc.at, now); got != tc.want {
			t.Fatalf("FormatTimestamp(%v): got %q want %q", tc.at, got, tc.want)
		}
	}
}
