package messaging

import (
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/participant"
)

const (
	previewRuneLimit = 35
	previewEllipsis  = "..."
	previewYouPrefix = "You: "

	viewKeySeparator = "-as-"
)

// ViewKey identifies one directional projection of a thread. ActingOrg is
// set when the viewing identity is an organization, so that the personal
// view and each managed-organization view of the same thread stay distinct.
type ViewKey struct {
	ThreadID  ThreadID
	ActingOrg string
}

// String renders the routing form of the key: the bare thread ID for a
// personal view, "{threadID}-as-{orgID}" for an organization view.
func (k ViewKey) String() string {
	if k.ActingOrg == "" {
		return string(k.ThreadID)
	}
	return string(k.ThreadID) + viewKeySeparator + k.ActingOrg
}

// ParseViewKey inverts String.
func ParseViewKey(raw string) ViewKey {
	raw = strings.TrimSpace(raw)
	if idx := strings.LastIndex(raw, viewKeySeparator); idx > 0 {
		return ViewKey{
			ThreadID:  ThreadID(raw[:idx]),
			ActingOrg: raw[idx+len(viewKeySeparator):],
		}
	}
	return ViewKey{ThreadID: ThreadID(raw)}
}

// KeyFor builds the view key for an acting identity on a thread.
func KeyFor(threadID ThreadID, acting participant.Ref) ViewKey {
	key := ViewKey{ThreadID: threadID}
	if acting.IsOrg() {
		key.ActingOrg = acting.ID
	}
	return key
}

// ThreadView is a read-only projection of a thread from the perspective of
// one acting identity. Unread and Preview are always recomputed from the
// message collection, never stored.
type ThreadView struct {
	Key           ViewKey
	Owner         participant.Ref
	Counterpart   participant.Profile
	LastMessageAt time.Time
	Preview       string
	Unread        int
	Messages      []Message
}

// Resolver answers display profiles for participant references, usually the
// session's participant cache.
type Resolver func(participant.Ref) (participant.Profile, bool)

// DeriveViews projects raw threads into one view per acting identity that
// occupies a slot. Threads with an unresolvable slot are skipped rather than
// failing the batch. Views are deduplicated by key and sorted by last
// activity, newest first. The input threads are never mutated.
func DeriveViews(threads []Thread, acting []participant.Ref, resolve Resolver, logger *slog.Logger) []ThreadView {
	views := make([]ThreadView, 0, len(threads))
	seen := make(map[ViewKey]struct{})

	for _, thread := range threads {
		if _, ok := resolve(thread.ParticipantA); !ok {
			logSkippedThread(logger, thread, thread.ParticipantA)
			continue
		}
		if _, ok := resolve(thread.ParticipantB); !ok {
			logSkippedThread(logger, thread, thread.ParticipantB)
			continue
		}
		for _, identity := range acting {
			counterpartRef, ok := thread.Counterpart(identity)
			if !ok {
				continue
			}
			key := KeyFor(thread.ID, identity)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			counterpart, _ := resolve(counterpartRef)
			views = append(views, projectView(thread, key, identity, counterpart))
		}
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].LastMessageAt.After(views[j].LastMessageAt)
	})
	return views
}

func projectView(thread Thread, key ViewKey, owner participant.Ref, counterpart participant.Profile) ThreadView {
	messages := thread.SortedMessages()
	view := ThreadView{
		Key:           key,
		Owner:         owner,
		Counterpart:   counterpart,
		LastMessageAt: thread.LastMessageAt,
		Unread:        countUnread(messages, counterpart.Ref),
		Messages:      messages,
	}
	if last, ok := lastOf(messages); ok {
		view.Preview = Preview(last.Content, last.Sender.Equal(owner))
		if last.CreatedAt.After(view.LastMessageAt) {
			view.LastMessageAt = last.CreatedAt
		}
	}
	return view
}

func countUnread(messages []Message, counterpart participant.Ref) int {
	unread := 0
	for _, msg := range messages {
		if msg.Sender.Equal(counterpart) && !msg.IsRead() {
			unread++
		}
	}
	return unread
}

func lastOf(messages []Message) (Message, bool) {
	if len(messages) == 0 {
		return Message{}, false
	}
	return messages[len(messages)-1], true
}

// Preview renders the truncated thread-list snippet for a message body.
// Bodies longer than 35 runes are cut at the limit, backed off to the last
// word boundary, and marked with an ellipsis. fromOwner adds the "You: "
// prefix shown when the view owner sent the newest message.
func Preview(content string, fromOwner bool) string {
	snippet := strings.TrimSpace(content)
	if utf8.RuneCountInString(snippet) > previewRuneLimit {
		runes := []rune(snippet)
		cut := string(runes[:previewRuneLimit])
		if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
			cut = cut[:idx]
		}
		snippet = strings.TrimRight(cut, " ") + previewEllipsis
	}
	if fromOwner {
		return previewYouPrefix + snippet
	}
	return snippet
}

// TotalUnread sums unread counts across views for badge display.
func TotalUnread(views []ThreadView) int {
	total := 0
	for _, view := range views {
		total += view.Unread
	}
	return total
}

func logSkippedThread(logger *slog.Logger, thread Thread, missing participant.Ref) {
	if logger == nil {
		return
	}
	logger.Warn("skipping thread with unresolved participant",
		"thread_id", thread.ID,
		"participant_kind", missing.Kind,
		"participant_id", missing.ID,
	)
}
