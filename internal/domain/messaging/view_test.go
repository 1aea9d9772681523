package messaging

import (
	"reflect"
	"testing"
	"time"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/participant"
)

var (
	testUser = participant.UserRef("user-1")
	testOrg  = participant.OrgRef("org-1")
)

func resolveAll(ref participant.Ref) (participant.Profile, bool) {
	return participant.Profile{Ref: ref, Name: "name-" + ref.ID}, true
}

func testThread(t *testing.T, id string, msgs ...Message) Thread {
	t.Helper()
	thread, err := NewThread(ThreadID(id), testUser, testOrg, Metadata{}, time.Unix(1000, 0))
	if err != nil {
		t.Fatalf("new thread: %v", err)
	}
	thread.Messages = msgs
	for _, msg := range msgs {
		if msg.CreatedAt.After(thread.LastMessageAt) {
			thread.LastMessageAt = msg.CreatedAt
		}
	}
	return thread
}

func confirmedMessage(id string, sender participant.Ref, content string, at time.Time, read bool) Message {
	msg := Message{
		ID:        id,
		LocalID:   "local-" + id,
		Content:   content,
		Sender:    sender,
		Status:    StatusConfirmed,
		CreatedAt: at,
	}
	if read {
		readAt := at.Add(time.Second)
		msg.ReadAt = &readAt
	}
	return msg
}

func TestDeriveViewsBasicProjection(t *testing.T) {
	base := time.Unix(2000, 0).UTC()
	thread := testThread(t, "t1",
		confirmedMessage("m1", testOrg, "hello there", base, false),
		confirmedMessage("m2", testUser, "hi back", base.Add(time.Minute), false),
	)

	views := DeriveViews([]Thread{thread}, []participant.Ref{testUser}, resolveAll, nil)
	if len(views) != 1 {
		t.Fatalf("expected 1 view, got %d", len(views))
	}
	view := views[0]
	if view.Key.String() != "t1" {
		t.Fatalf("personal view key should be the bare thread id, got %q", view.Key.String())
	}
	if !view.Counterpart.Ref.Equal(testOrg) {
		t.Fatalf("counterpart should be the org, got %v", view.Counterpart.Ref)
	}
	if view.Unread != 1 {
		t.Fatalf("one unread counterpart message expected, got %d", view.Unread)
	}
	if view.Preview != "You: hi back" {
		t.Fatalf("unexpected preview %q", view.Preview)
	}
}

func TestDeriveViewsOrgKeySuffix(t *testing.T) {
	thread := testThread(t, "t1")
	views := DeriveViews([]Thread{thread}, []participant.Ref{testOrg}, resolveAll, nil)
	if len(views) != 1 {
		t.Fatalf("expected 1 view, got %d", len(views))
	}
	if got := views[0].Key.String(); got != "t1-as-org-1" {
		t.Fatalf("expected org-suffixed key, got %q", got)
	}
	parsed := ParseViewKey("t1-as-org-1")
	if parsed.ThreadID != "t1" || parsed.ActingOrg != "org-1" {
		t.Fatalf("parse round trip failed: %+v", parsed)
	}
}

func TestDeriveViewsIsDeterministic(t *testing.T) {
	base := time.Unix(3000, 0).UTC()
	threads := []Thread{
		testThread(t, "t1", confirmedMessage("m1", testOrg, "first thread", base, false)),
		testThread(t, "t2", confirmedMessage("m2", testOrg, "second thread", base.Add(time.Hour), true)),
	}
	acting := []participant.Ref{testUser, testOrg}

	first := DeriveViews(threads, acting, resolveAll, nil)
	second := DeriveViews(threads, acting, resolveAll, nil)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("derivation is not deterministic:\n%+v\nvs\n%+v", first, second)
	}
}

func TestDeriveViewsSortsByActivityDescending(t *testing.T) {
	base := time.Unix(4000, 0).UTC()
	older := testThread(t, "older", confirmedMessage("m1", testOrg, "old", base, true))
	newer := testThread(t, "newer", confirmedMessage("m2", testOrg, "new", base.Add(time.Hour), true))

	views := DeriveViews([]Thread{older, newer}, []participant.Ref{testUser}, resolveAll, nil)
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}
	if views[0].Key.ThreadID != "newer" {
		t.Fatalf("most recent thread should come first, got %q", views[0].Key.ThreadID)
	}
}

func TestDeriveViewsSkipsUnresolvableThreads(t *testing.T) {
	thread := testThread(t, "t1")
	resolveNone := func(participant.Ref) (participant.Profile, bool) {
		return participant.Profile{}, false
	}
	views := DeriveViews([]Thread{thread}, []participant.Ref{testUser}, resolveNone, nil)
	if len(views) != 0 {
		t.Fatalf("unresolvable threads must be skipped, got %d views", len(views))
	}
}

func TestDeriveViewsDeduplicatesByKey(t *testing.T) {
	thread := testThread(t, "t1")
	acting := []participant.Ref{testUser, testUser}
	views := DeriveViews([]Thread{thread}, acting, resolveAll, nil)
	if len(views) != 1 {
		t.Fatalf("duplicate acting identities must not duplicate views, got %d", len(views))
	}
}

func TestDeriveViewsOneViewPerManagedIdentity(t *testing.T) {
	// The user and a managed org each occupy a slot: both projections exist
	// and stay distinct.
	thread := testThread(t, "t1")
	views := DeriveViews([]Thread{thread}, []participant.Ref{testUser, testOrg}, resolveAll, nil)
	if len(views) != 2 {
		t.Fatalf("expected a view per acting identity, got %d", len(views))
	}
	keys := map[string]bool{}
	for _, v := range views {
		keys[v.Key.String()] = true
	}
	if !keys["t1"] || !keys["t1-as-org-1"] {
		t.Fatalf("unexpected view keys: %v", keys)
	}
}

func TestPreviewTruncation(t *testing.T) {
	long := "This is a moderately long test message that exceeds thirty five characters"
	got := Preview(long, true)
	if got != "You: This is a moderately long test..." {
		t.Fatalf("unexpected preview %q", got)
	}

	plain := Preview(long, false)
	if len([]rune(plain)) > previewRuneLimit+len(previewEllipsis) {
		t.Fatalf("preview too long: %q (%d runes)", plain, len([]rune(plain)))
	}
	if plain[len(plain)-3:] != "..." {
		t.Fatalf("long preview must end with ellipsis, got %q", plain)
	}

	short := Preview("short one", false)
	if short != "short one" {
		t.Fatalf("short content must pass through, got %q", short)
	}
	if Preview("short one", true) != "You: short one" {
		t.Fatal("owner prefix missing on short content")
	}
}

func TestTotalUnread(t *testing.T) {
	views := []ThreadView{{Unread: 2}, {Unread: 0}, {Unread: 5}}
	if got := TotalUnread(views); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
}

func TestNewThreadNormalizesSlots(t *testing.T) {
	thread, err := NewThread("t1", testUser, testOrg, Metadata{}, time.Now())
	if err != nil {
		t.Fatalf("new thread: %v", err)
	}
	swapped, err := NewThread("t2", testOrg, testUser, Metadata{}, time.Now())
	if err != nil {
		t.Fatalf("new thread swapped: %v", err)
	}
	if !thread.ParticipantA.Equal(swapped.ParticipantA) || !thread.ParticipantB.Equal(swapped.ParticipantB) {
		t.Fatal("slot order must not depend on argument order")
	}
	if _, err := NewThread("t3", testUser, testUser, Metadata{}, time.Now()); err != ErrSameParticipant {
		t.Fatalf("expected ErrSameParticipant, got %v", err)
	}
}
