package messenger

import (
	"sort"
	"time"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/messaging"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/participant"
)

// Every mutation to the view collection is expressed as a pure transform of
// the prior slice: read, copy, replace whole. Two in-flight operations then
// compose under last-write-wins as long as each transform recomputes derived
// fields (preview, unread, last activity) from the message collection
// instead of trusting a stale delta.

// appendMessage adds msg to every view projecting threadID and refreshes
// derived fields.
func appendMessage(views []messaging.ThreadView, threadID messaging.ThreadID, msg messaging.Message) []messaging.ThreadView {
	return transformThread(views, threadID, func(view messaging.ThreadView) messaging.ThreadView {
		view.Messages = append(append([]messaging.Message(nil), view.Messages...), msg)
		return refreshView(view, view.LastMessageAt)
	})
}

// substituteMessage swaps the entry carrying localID for replacement in
// every view of the thread. Substitution, never addition: at most one live
// copy of a send attempt exists per view.
func substituteMessage(views []messaging.ThreadView, threadID messaging.ThreadID, localID string, replacement messaging.Message, baseline time.Time) []messaging.ThreadView {
	return transformThread(views, threadID, func(view messaging.ThreadView) messaging.ThreadView {
		messages := make([]messaging.Message, 0, len(view.Messages))
		for _, msg := range view.Messages {
			if msg.LocalID == localID {
				messages = append(messages, replacement)
				continue
			}
			messages = append(messages, msg)
		}
		view.Messages = messages
		return refreshView(view, baseline)
	})
}

// removeMessage drops one message (by display ID) from every view of the
// thread and recomputes the tail-derived fields.
func removeMessage(views []messaging.ThreadView, threadID messaging.ThreadID, messageID string, baseline time.Time) []messaging.ThreadView {
	return transformThread(views, threadID, func(view messaging.ThreadView) messaging.ThreadView {
		messages := make([]messaging.Message, 0, len(view.Messages))
		for _, msg := range view.Messages {
			if msg.ID == messageID {
				continue
			}
			messages = append(messages, msg)
		}
		view.Messages = messages
		return refreshView(view, baseline)
	})
}

// removeThread drops every view projecting threadID.
func removeThread(views []messaging.ThreadView, threadID messaging.ThreadID) []messaging.ThreadView {
	out := make([]messaging.ThreadView, 0, len(views))
	for _, view := range views {
		if view.Key.ThreadID == threadID {
			continue
		}
		out = append(out, view)
	}
	return out
}

// zeroUnread applies the transient optimistic zero to exactly one view.
func zeroUnread(views []messaging.ThreadView, key messaging.ViewKey) []messaging.ThreadView {
	out := append([]messaging.ThreadView(nil), views...)
	for i, view := range out {
		if view.Key == key {
			view.Unread = 0
			out[i] = view
		}
	}
	return out
}

// applyReadStamps patches read timestamps onto every unread message sent by
// sender across all views of the thread and recomputes unread counts from
// the patched state.
func applyReadStamps(views []messaging.ThreadView, threadID messaging.ThreadID, sender participant.Ref, at time.Time) []messaging.ThreadView {
	return transformThread(views, threadID, func(view messaging.ThreadView) messaging.ThreadView {
		messages := make([]messaging.Message, 0, len(view.Messages))
		for _, msg := range view.Messages {
			if msg.Sender.Equal(sender) && !msg.IsRead() {
				readAt := at
				msg.ReadAt = &readAt
			}
			messages = append(messages, msg)
		}
		view.Messages = messages
		return refreshView(view, view.LastMessageAt)
	})
}

// carryUnconfirmed folds the pending and failed entries still held locally
// into a freshly derived collection. An attempt whose local ID already
// appears in the derived views (the confirmation landed first) is skipped;
// an attempt whose thread no longer exists is dropped with it.
func carryUnconfirmed(derived, prior []messaging.ThreadView) []messaging.ThreadView {
	carried := make(map[string]bool)
	for _, view := range prior {
		for _, msg := range view.Messages {
			if msg.Status == messaging.StatusConfirmed || carried[msg.LocalID] {
				continue
			}
			if _, ok := findByLocalID(derived, msg.LocalID); ok {
				continue
			}
			carried[msg.LocalID] = true
			derived = appendMessage(derived, msg.ThreadID, msg)
		}
	}
	return derived
}

// transformThread maps fn over the views of one thread, copying the slice.
func transformThread(views []messaging.ThreadView, threadID messaging.ThreadID, fn func(messaging.ThreadView) messaging.ThreadView) []messaging.ThreadView {
	out := append([]messaging.ThreadView(nil), views...)
	for i, view := range out {
		if view.Key.ThreadID == threadID {
			out[i] = fn(view)
		}
	}
	return out
}

// refreshView recomputes preview, unread and last activity from the message
// collection. Failed messages stay in the collection for retry rendering
// but never contribute to derived fields, so a failed send leaves the
// thread's preview and activity at their pre-send values. baseline is the
// activity timestamp to fall back to when no live message remains.
func refreshView(view messaging.ThreadView, baseline time.Time) messaging.ThreadView {
	var tail *messaging.Message
	unread := 0
	for i := range view.Messages {
		msg := view.Messages[i]
		if msg.Status == messaging.StatusFailed {
			continue
		}
		if msg.Sender.Equal(view.Counterpart.Ref) && !msg.IsRead() {
			unread++
		}
		if tail == nil || !msg.CreatedAt.Before(tail.CreatedAt) {
			tail = &view.Messages[i]
		}
	}
	view.Unread = unread
	if tail != nil {
		view.Preview = messaging.Preview(tail.Content, tail.Sender.Equal(view.Owner))
		view.LastMessageAt = tail.CreatedAt
	} else {
		view.Preview = ""
		view.LastMessageAt = baseline
	}
	return view
}

// sortViews orders the collection by last activity, newest first.
func sortViews(views []messaging.ThreadView) []messaging.ThreadView {
	out := append([]messaging.ThreadView(nil), views...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out
}

// findView locates a view by key.
func findView(views []messaging.ThreadView, key messaging.ViewKey) (messaging.ThreadView, bool) {
	for _, view := range views {
		if view.Key == key {
			return view, true
		}
	}
	return messaging.ThreadView{}, false
}

// findMessage locates a message by display ID within one view.
func findMessage(view messaging.ThreadView, messageID string) (messaging.Message, bool) {
	for _, msg := range view.Messages {
		if msg.ID == messageID {
			return msg, true
		}
	}
	return messaging.Message{}, false
}

// findByLocalID locates a message by its logical send-attempt ID anywhere in
// the collection.
func findByLocalID(views []messaging.ThreadView, localID string) (messaging.Message, bool) {
	for _, view := range views {
		for _, msg := range view.Messages {
			if msg.LocalID == localID {
				return msg, true
			}
		}
	}
	return messaging.Message{}, false
}
