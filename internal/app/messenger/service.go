package messenger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/app/directory"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/app/policies"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/app/session"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/messaging"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/participant"
)

var (
	ErrNoActiveView    = errors.New("messenger: no active conversation selected")
	ErrViewNotFound    = errors.New("messenger: conversation view not found")
	ErrNotMessageOwner = errors.New("messenger: not allowed to act for this sender")
	ErrNotFailed       = errors.New("messenger: message is not in a retryable state")
	ErrUnknownAttempt  = errors.New("messenger: unknown send attempt")
)

// NoticeLevel grades user-facing notices.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeWarn  NoticeLevel = "warn"
	NoticeError NoticeLevel = "error"
)

// Notice is a non-blocking message for the surrounding UI (the toast
// collaborator).
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Service drives the per-session conversation state: it derives thread
// views for every identity the session acts as, and runs the optimistic
// send/retry/delete pipeline against the persistence port.
//
// All view mutations are pure transforms committed under the service mutex
// with last-write-wins semantics. In-flight persistence work is keyed by
// thread ID and the message's logical local ID, never by the currently
// active view, so late completions land correctly after navigation.
// Stats receives lifecycle counters; implementations must not block.
type Stats interface {
	MessageConfirmed()
	MessageFailed()
	MessageRetried()
	ThreadCreated()
}

type Service struct {
	Logger   *slog.Logger
	OnNotice func(Notice)
	Stats    Stats

	// Now and NewLocalID are test seams; NewService sets real defaults.
	Now        func() time.Time
	NewLocalID func() string

	repo     messaging.Repository
	cache    *directory.Cache
	identity session.Identity
	notifier policies.Notifier

	mu       sync.Mutex
	views    []messaging.ThreadView
	active   *messaging.ViewKey
	draft    string
	attempts map[string]*attempt

	wg sync.WaitGroup
}

// attempt tracks one message lifecycle. Its lock serializes the send and
// any retries of the same local ID so overlapping writes cannot interleave.
type attempt struct {
	mu           sync.Mutex
	threadID     messaging.ThreadID
	sender       participant.Ref
	content      string
	prevActivity time.Time
}

// NewService wires a session-scoped messenger. The cache is seeded with the
// session's own profiles, which are known locally.
func NewService(repo messaging.Repository, cache *directory.Cache, identity session.Identity, notifier policies.Notifier, logger *slog.Logger) *Service {
	cache.Seed(identity.Profiles()...)
	return &Service{
		Logger:     logger,
		Now:        time.Now,
		NewLocalID: func() string { return "local-" + uuid.NewString() },
		repo:       repo,
		cache:      cache,
		identity:   identity,
		notifier:   notifier,
		attempts:   make(map[string]*attempt),
	}
}

// Refresh re-fetches every thread visible to the session, resolves all
// referenced participants and re-derives the view collection.
func (s *Service) Refresh(ctx context.Context) error {
	if err := s.identity.Validate(); err != nil {
		return err
	}
	threads, err := s.repo.ThreadsFor(ctx, s.identity.Acting())
	if err != nil {
		return fmt.Errorf("messenger: load threads: %w", err)
	}

	refs := make([]participant.Ref, 0, len(threads)*2)
	for _, thread := range threads {
		refs = append(refs, thread.ParticipantA, thread.ParticipantB)
	}
	s.cache.Resolve(ctx, refs)

	views := messaging.DeriveViews(threads, s.identity.Acting(), s.cache.Get, s.Logger)
	s.commit(func(prior []messaging.ThreadView) []messaging.ThreadView {
		// The store only knows confirmed messages; a list poll between a
		// failed send and its retry must not drop the retryable entry.
		return sortViews(carryUnconfirmed(views, prior))
	})
	return nil
}

// Views returns a snapshot of the current view collection.
func (s *Service) Views() []messaging.ThreadView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]messaging.ThreadView(nil), s.views...)
}

// View returns one view by key.
func (s *Service) View(key messaging.ViewKey) (messaging.ThreadView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return findView(s.views, key)
}

// ActiveKey reports the current selection, if any.
func (s *Service) ActiveKey() (messaging.ViewKey, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return messaging.ViewKey{}, false
	}
	return *s.active, true
}

// Draft returns the composed-but-unsent input text.
func (s *Service) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SetDraft stores the input text so a failed send can restore it.
func (s *Service) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = text
}

// TotalUnread is the badge count across every view.
func (s *Service) TotalUnread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return messaging.TotalUnread(s.views)
}

// Select makes a view the active selection and marks it read: the unread
// count zeroes immediately, then the store write stamps the counterpart's
// unread messages. A failed write keeps the optimistic zero; read state is
// low stakes.
func (s *Service) Select(ctx context.Context, key messaging.ViewKey) error {
	s.mu.Lock()
	view, ok := findView(s.views, key)
	if !ok {
		s.mu.Unlock()
		return ErrViewNotFound
	}
	selected := key
	s.active = &selected
	hadUnread := view.Unread > 0
	s.views = zeroUnread(s.views, key)
	s.mu.Unlock()

	if !hadUnread {
		return nil
	}

	counterpart := view.Counterpart.Ref
	threadID := key.ThreadID
	now := s.Now().UTC()
	// The stamp must outlive the caller's request context.
	bg := context.WithoutCancel(ctx)
	s.spawn(func() {
		if _, err := s.repo.MarkRead(bg, threadID, counterpart, now); err != nil {
			s.logWarn("mark read failed", "thread_id", threadID, "error", err)
			s.notify(NoticeWarn, "Could not sync read state")
			return
		}
		s.commit(func(views []messaging.ThreadView) []messaging.ThreadView {
			return applyReadStamps(views, threadID, counterpart, now)
		})
	})
	return nil
}

// Send runs the optimistic send pipeline for the active view. The pending
// message appears in every view sharing the thread immediately; the store
// write happens asynchronously and either confirms the message in place or
// flips it to the retryable failed state and rolls the thread's derived
// fields back.
func (s *Service) Send(ctx context.Context, content string) (string, error) {
	content, err := messaging.ValidateContent(content)
	if err != nil {
		return "", err
	}
	if err := s.identity.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.active == nil {
		s.mu.Unlock()
		return "", ErrNoActiveView
	}
	key := *s.active
	view, ok := findView(s.views, key)
	if !ok {
		s.mu.Unlock()
		return "", ErrViewNotFound
	}
	sender := view.Owner
	if !s.identity.Owns(sender) {
		s.mu.Unlock()
		return "", ErrNotMessageOwner
	}

	localID := s.NewLocalID()
	now := s.Now().UTC()
	pending := messaging.NewPending(localID, key.ThreadID, sender, content, now)
	att := &attempt{
		threadID:     key.ThreadID,
		sender:       sender,
		content:      content,
		prevActivity: view.LastMessageAt,
	}
	s.attempts[localID] = att
	s.views = sortViews(appendMessage(s.views, key.ThreadID, pending))
	s.draft = ""
	s.mu.Unlock()

	// Sender resolution is best effort; display degrades if it fails.
	s.cache.Resolve(ctx, []participant.Ref{sender})

	// In-flight sends are never cancelled; the write must land or fail on
	// its own terms even after the caller's request context is gone.
	bg := context.WithoutCancel(ctx)
	s.spawn(func() { s.persistSend(bg, localID, att) })
	return localID, nil
}

// Retry re-issues a failed send attempt. It is a state transition on the
// existing entry: the message re-enters pending under its original local ID
// and the identical write is replayed, never appended twice.
func (s *Service) Retry(ctx context.Context, localID string) error {
	s.mu.Lock()
	msg, ok := findByLocalID(s.views, localID)
	if !ok {
		s.mu.Unlock()
		return ErrUnknownAttempt
	}
	if msg.Status != messaging.StatusFailed {
		s.mu.Unlock()
		return ErrNotFailed
	}
	att, ok := s.attempts[localID]
	if !ok {
		// Rebuilt after a refresh; the failed entry itself carries
		// everything the replay needs.
		att = &attempt{
			threadID:     msg.ThreadID,
			sender:       msg.Sender,
			content:      msg.Content,
			prevActivity: msg.CreatedAt,
		}
		s.attempts[localID] = att
	}
	reissued := msg.Reissue()
	reissued.CreatedAt = s.Now().UTC()
	s.views = sortViews(substituteMessage(s.views, att.threadID, localID, reissued, att.prevActivity))
	s.mu.Unlock()

	if s.Stats != nil {
		s.Stats.MessageRetried()
	}
	bg := context.WithoutCancel(ctx)
	s.spawn(func() { s.persistSend(bg, localID, att) })
	return nil
}

// persistSend writes one send attempt. The attempt lock serializes retries
// of the same local ID against any still-running write.
func (s *Service) persistSend(ctx context.Context, localID string, att *attempt) {
	att.mu.Lock()
	defer att.mu.Unlock()

	stored, err := s.repo.InsertMessage(ctx, att.threadID, att.sender, att.content, s.Now().UTC())
	if err != nil {
		s.logWarn("send failed", "thread_id", att.threadID, "local_id", localID, "error", err)
		s.commit(func(views []messaging.ThreadView) []messaging.ThreadView {
			msg, ok := findByLocalID(views, localID)
			if !ok {
				return views
			}
			return substituteMessage(views, att.threadID, localID, msg.Fail(), att.prevActivity)
		})
		s.mu.Lock()
		if s.draft == "" {
			s.draft = att.content
		}
		s.mu.Unlock()
		s.notify(NoticeError, "Message failed to send")
		if s.Stats != nil {
			s.Stats.MessageFailed()
		}
		return
	}

	stored.LocalID = localID
	stored.Status = messaging.StatusConfirmed
	s.commit(func(views []messaging.ThreadView) []messaging.ThreadView {
		if _, ok := findByLocalID(views, localID); !ok {
			// The consuming view is gone (navigation, deletion); drop the
			// update silently.
			return views
		}
		return sortViews(substituteMessage(views, att.threadID, localID, stored, att.prevActivity))
	})
	s.mu.Lock()
	delete(s.attempts, localID)
	s.mu.Unlock()
	if s.Stats != nil {
		s.Stats.MessageConfirmed()
	}
}

// DeleteMessage optimistically removes a message from every view sharing
// the thread. A failed store delete restores the prior view state verbatim.
// Pending and failed entries are local only and are simply discarded.
func (s *Service) DeleteMessage(ctx context.Context, key messaging.ViewKey, messageID string) error {
	s.mu.Lock()
	view, ok := findView(s.views, key)
	if !ok {
		s.mu.Unlock()
		return ErrViewNotFound
	}
	msg, ok := findMessage(view, messageID)
	if !ok {
		s.mu.Unlock()
		return messaging.ErrMessageNotFound
	}
	if !s.identity.Owns(msg.Sender) {
		s.mu.Unlock()
		return ErrNotMessageOwner
	}

	snapshot := append([]messaging.ThreadView(nil), s.views...)
	baseline := deleteBaseline(view, messageID)
	s.views = sortViews(removeMessage(s.views, key.ThreadID, messageID, baseline))
	if msg.Status != messaging.StatusConfirmed {
		delete(s.attempts, msg.LocalID)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	s.spawn(func() {
		if err := s.repo.DeleteMessage(bg, key.ThreadID, messageID); err != nil {
			s.logWarn("delete failed", "thread_id", key.ThreadID, "message_id", messageID, "error", err)
			s.commit(func([]messaging.ThreadView) []messaging.ThreadView { return snapshot })
			s.notify(NoticeError, "Could not delete message")
		}
	})
	return nil
}

// DeleteThread removes the conversation and everything in it, for every
// acting identity. The store delete cascades to messages; on failure the
// prior view state is restored verbatim.
func (s *Service) DeleteThread(ctx context.Context, key messaging.ViewKey) error {
	s.mu.Lock()
	view, ok := findView(s.views, key)
	if !ok {
		s.mu.Unlock()
		return ErrViewNotFound
	}
	if !s.identity.Owns(view.Owner) {
		s.mu.Unlock()
		return ErrNotMessageOwner
	}
	snapshot := append([]messaging.ThreadView(nil), s.views...)
	s.views = removeThread(s.views, key.ThreadID)
	if s.active != nil && s.active.ThreadID == key.ThreadID {
		s.active = nil
	}
	s.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	s.spawn(func() {
		if err := s.repo.DeleteThread(bg, key.ThreadID); err != nil {
			s.logWarn("thread delete failed", "thread_id", key.ThreadID, "error", err)
			s.commit(func([]messaging.ThreadView) []messaging.ThreadView { return snapshot })
			s.notify(NoticeError, "Could not delete conversation")
		}
	})
	return nil
}

// Resolver exposes the session's participant cache for presentation
// mapping.
func (s *Service) Resolver() messaging.Resolver {
	return s.cache.Get
}

// Wait blocks until every in-flight persistence operation has settled.
func (s *Service) Wait() {
	s.wg.Wait()
}

// commit applies a pure transform to the latest known view collection.
func (s *Service) commit(transform func([]messaging.ThreadView) []messaging.ThreadView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views = transform(s.views)
}

func (s *Service) spawn(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *Service) notify(level NoticeLevel, message string) {
	if s.OnNotice != nil {
		s.OnNotice(Notice{Level: level, Message: message})
	}
}

func (s *Service) logWarn(msg string, args ...any) {
	if s.Logger != nil {
		s.Logger.Warn(msg, args...)
	}
}

// deleteBaseline picks the activity timestamp to fall back to when the
// deleted message was the thread's only live entry.
func deleteBaseline(view messaging.ThreadView, messageID string) time.Time {
	baseline := time.Time{}
	for _, msg := range view.Messages {
		if msg.ID == messageID || msg.Status == messaging.StatusFailed {
			continue
		}
		if msg.CreatedAt.After(baseline) {
			baseline = msg.CreatedAt
		}
	}
	if baseline.IsZero() {
		return view.LastMessageAt
	}
	return baseline
}
