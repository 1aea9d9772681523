package messaging

import (
	"strings"
	"testing"
	"time"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/participant"
)

func TestValidateContent(t *testing.T) {
	if _, err := ValidateContent("   "); err != ErrContentRequired {
		t.Fatalf("expected ErrContentRequired, got %v", err)
	}
	if _, err := ValidateContent(strings.Repeat("x", MaxContentRunes+1)); err != ErrContentTooLong {
		t.Fatalf("expected ErrContentTooLong, got %v", err)
	}
	got, err := ValidateContent("  hello  ")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got != "hello" {
		t.Fatalf("expected trimmed content, got %q", got)
	}
}

func TestMessageLifecycleTransitions(t *testing.T) {
	at := time.Unix(5000, 0).UTC()
	pending := NewPending("local-1", "t1", participant.UserRef("u1"), "hi", at)
	if pending.Status != StatusPending || pending.ID != "local-1" {
		t.Fatalf("unexpected pending message: %+v", pending)
	}

	failed := pending.Fail()
	if failed.Status != StatusFailed || failed.LocalID != "local-1" {
		t.Fatalf("unexpected failed message: %+v", failed)
	}

	reissued := failed.Reissue()
	if reissued.Status != StatusPending || reissued.ID != "local-1" {
		t.Fatalf("retry must re-enter pending with the original local id: %+v", reissued)
	}

	confirmed := reissued.Confirm("srv-9", at.Add(time.Second))
	if confirmed.Status != StatusConfirmed || confirmed.ID != "srv-9" {
		t.Fatalf("unexpected confirmed message: %+v", confirmed)
	}
	if confirmed.LocalID != "local-1" {
		t.Fatal("confirmation must keep the logical local id")
	}
	if !confirmed.CreatedAt.Equal(at.Add(time.Second)) {
		t.Fatal("confirmation must adopt the authoritative timestamp")
	}
}
