package ginserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/app/dto"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/account"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/infra/storage/s3"
)

type ProfileHTTP interface {
	UploadAvatar(c *gin.Context)
}

// ProfileHandler manages the account's display profile.
type ProfileHandler struct {
	Accounts account.Repository
	Uploader s3.Uploader
	Logger   *slog.Logger
}

const maxAvatarBytes = 5 << 20

// UploadAvatar stores a new profile image and records its public URL.
func (h ProfileHandler) UploadAvatar(c *gin.Context) {
	p, ok := requireSession(c)
	if !ok {
		return
	}
	if h.Accounts == nil || h.Uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "profile storage unavailable"})
		return
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file is required"})
		return
	}
	if file.Size > maxAvatarBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "avatar exceeds 5MB"})
		return
	}
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read avatar"})
		return
	}
	defer src.Close()

	accountID := p.Identity.User.Ref.ID
	key := s3.AvatarKey(accountID, fmt.Sprintf("%d-%s", time.Now().UnixMilli(), file.Filename))
	url, err := h.Uploader.Upload(c.Request.Context(), key, src, file.Header.Get("Content-Type"))
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("avatar upload failed", "account_id", accountID, "error", err)
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "upload failed"})
		return
	}

	acct, err := h.Accounts.ByID(c.Request.Context(), account.ID(accountID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	acct.SetAvatarURL(url, time.Now())
	if err := h.Accounts.Save(c.Request.Context(), acct); err != nil {
		if h.Logger != nil {
			h.Logger.Error("avatar save failed", "account_id", accountID, "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, dto.MapAccountProfile(acct))
}

var _ ProfileHTTP = ProfileHandler{}
