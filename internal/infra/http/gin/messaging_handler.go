package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/app/dto"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/app/messenger"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/messaging"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/participant"
)

type MessagingHTTP interface {
	List(c *gin.Context)
	Start(c *gin.Context)
	Get(c *gin.Context)
	Select(c *gin.Context)
	Send(c *gin.Context)
	Retry(c *gin.Context)
	DeleteMessage(c *gin.Context)
	DeleteThread(c *gin.Context)
	Unread(c *gin.Context)
}

// MessagingHandler exposes the per-session messenger over HTTP. Every
// route requires an authenticated session; the hub hands out the session's
// service instance.
type MessagingHandler struct {
	Hub      *messenger.Hub
	Location *time.Location
	Logger   *slog.Logger
}

type startConversationRequest struct {
	CounterpartKind string `json:"counterpart_kind"`
	CounterpartID   string `json:"counterpart_id"`
	ProjectID       string `json:"project_id"`
	AsOrg           string `json:"as_org"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (h MessagingHandler) List(c *gin.Context) {
	svc, ok := h.messenger(c)
	if !ok {
		return
	}
	if err := svc.Refresh(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapConversationList(svc.Views(), svc.Resolver(), time.Now()))
}

func (h MessagingHandler) Start(c *gin.Context) {
	svc, ok := h.messenger(c)
	if !ok {
		return
	}
	var req startConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	kind, err := participant.ParseKind(req.CounterpartKind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	counterpart, err := participant.NewRef(kind, req.CounterpartID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, _ := currentPrincipal(c)
	initiator := p.Identity.User.Ref
	if req.AsOrg != "" {
		initiator = participant.OrgRef(req.AsOrg)
	}

	key, err := svc.FindOrStart(c.Request.Context(), initiator, counterpart, req.ProjectID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	view, found := svc.View(key)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not visible"})
		return
	}
	c.JSON(http.StatusOK, dto.MapConversationDetail(view, svc.Resolver(), h.location(), time.Now()))
}

func (h MessagingHandler) Get(c *gin.Context) {
	svc, key, ok := h.conversation(c)
	if !ok {
		return
	}
	view, found := svc.View(key)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}
	c.JSON(http.StatusOK, dto.MapConversationDetail(view, svc.Resolver(), h.location(), time.Now()))
}

// Select makes the conversation active and marks it read.
func (h MessagingHandler) Select(c *gin.Context) {
	svc, key, ok := h.conversation(c)
	if !ok {
		return
	}
	if err := svc.Select(c.Request.Context(), key); err != nil {
		h.respondError(c, err)
		return
	}
	view, found := svc.View(key)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}
	c.JSON(http.StatusOK, dto.MapConversationDetail(view, svc.Resolver(), h.location(), time.Now()))
}

func (h MessagingHandler) Send(c *gin.Context) {
	svc, key, ok := h.conversation(c)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if active, has := svc.ActiveKey(); !has || active != key {
		if err := svc.Select(c.Request.Context(), key); err != nil {
			h.respondError(c, err)
			return
		}
	}
	localID, err := svc.Send(c.Request.Context(), req.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"local_id": localID})
}

func (h MessagingHandler) Retry(c *gin.Context) {
	svc, _, ok := h.conversation(c)
	if !ok {
		return
	}
	if err := svc.Retry(c.Request.Context(), c.Param("local_id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (h MessagingHandler) DeleteMessage(c *gin.Context) {
	svc, key, ok := h.conversation(c)
	if !ok {
		return
	}
	if err := svc.DeleteMessage(c.Request.Context(), key, c.Param("message_id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h MessagingHandler) DeleteThread(c *gin.Context) {
	svc, key, ok := h.conversation(c)
	if !ok {
		return
	}
	if err := svc.DeleteThread(c.Request.Context(), key); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h MessagingHandler) Unread(c *gin.Context) {
	svc, ok := h.messenger(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_unread": svc.TotalUnread()})
}

func (h MessagingHandler) messenger(c *gin.Context) (*messenger.Service, bool) {
	p, ok := requireSession(c)
	if !ok {
		return nil, false
	}
	svc, err := h.Hub.Acquire(c.Request.Context(), p.Token, p.Identity)
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return svc, true
}

func (h MessagingHandler) conversation(c *gin.Context) (*messenger.Service, messaging.ViewKey, bool) {
	svc, ok := h.messenger(c)
	if !ok {
		return nil, messaging.ViewKey{}, false
	}
	key := messaging.ParseViewKey(c.Param("key"))
	if key.ThreadID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation key"})
		return nil, messaging.ViewKey{}, false
	}
	return svc, key, true
}

func (h MessagingHandler) location() *time.Location {
	if h.Location != nil {
		return h.Location
	}
	return time.UTC
}

func (h MessagingHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, messaging.ErrContentRequired),
		errors.Is(err, messaging.ErrContentTooLong),
		errors.Is(err, messaging.ErrSameParticipant),
		errors.Is(err, participant.ErrInvalidKind),
		errors.Is(err, participant.ErrIDRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, messenger.ErrNotMessageOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, messenger.ErrViewNotFound),
		errors.Is(err, messenger.ErrUnknownAttempt),
		errors.Is(err, messaging.ErrThreadNotFound),
		errors.Is(err, messaging.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, messenger.ErrNotFailed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error("messaging operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ MessagingHTTP = MessagingHandler{}
