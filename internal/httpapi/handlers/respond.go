package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huangzx96/llm-workbench/internal/chat"
	"github.com/huangzx96/llm-workbench/internal/common"
	"github.com/huangzx96/llm-workbench/internal/httpapi/middleware"
	"github.com/huangzx96/llm-workbench/internal/identity"
	"github.com/huangzx96/llm-workbench/internal/prompt"
	"github.com/huangzx96/llm-workbench/internal/workbench"
	"gorm.io/gorm"
)

func ok(c *gin.Context, data any) {
	common.OK(c, data)
}

func fail(c *gin.Context, httpStatus int, code int, msg string) {
	common.Fail(c, httpStatus, code, msg)
}

// failErr maps service errors onto the response envelope.
func failErr(c *gin.Context, err error) {
	var ve *common.ValidationError
	var pe *prompt.ImportParseError
	switch {
	case errors.As(err, &ve):
		fail(c, http.StatusBadRequest, 10002, ve.Error())
	case errors.As(err, &pe):
		fail(c, http.StatusBadRequest, 10005, "invalid import file")
	case errors.Is(err, common.ErrNotAuthenticated):
		fail(c, http.StatusUnauthorized, 40103, "login required")
	case errors.Is(err, identity.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, 40104, "invalid username or password")
	case errors.Is(err, common.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		fail(c, http.StatusNotFound, 40400, "not found")
	case errors.Is(err, workbench.ErrUnknownModule):
		fail(c, http.StatusNotFound, 40403, "unknown module")
	case errors.Is(err, prompt.ErrBuiltIn):
		fail(c, http.StatusForbidden, 40300, "built-in templates cannot be modified")
	case errors.Is(err, chat.ErrStaleRequest):
		fail(c, http.StatusConflict, 40900, "request superseded by a newer send")
	default:
		fail(c, http.StatusInternalServerError, 50001, "internal error")
	}
}

// userIDFromContext returns the authenticated user id, or 0 for guests.
func userIDFromContext(c *gin.Context) uint64 {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return 0
	}
	id, _ := v.(uint64)
	return id
}

func requireUserID(c *gin.Context) (uint64, bool) {
	uid := userIDFromContext(c)
	if uid == 0 {
		fail(c, http.StatusUnauthorized, 40101, "authorization required")
		return 0, false
	}
	return uid, true
}

func (h *Handler) Ping(c *gin.Context) {
	ok(c, gin.H{"status": "ok"})
}
