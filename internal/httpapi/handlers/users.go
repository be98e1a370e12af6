package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangzx96/llm-workbench/internal/auth"
	"github.com/huangzx96/llm-workbench/internal/identity"
	"go.uber.org/zap"
)

const tokenTTL = 24 * time.Hour

func userView(u *identity.User) gin.H {
	return gin.H{
		"id":            u.ID,
		"username":      u.Username,
		"email":         u.Email,
		"role":          u.Role,
		"preferences":   u.Preferences,
		"created_at":    u.CreatedAt,
		"last_login_at": u.LastLoginAt,
	}
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	u, err := h.Users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		failErr(c, err)
		return
	}

	token, err := auth.SignJWT(u.ID, h.Cfg.JWTSecret, tokenTTL)
	if err != nil {
		h.Log.Error("sign token failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}

	h.Sessions.StateFor(u.ID).Login(u)

	ok(c, gin.H{"token": token, "user": userView(u)})
}

func (h *Handler) Register(c *gin.Context) {
	var form identity.RegisterForm
	if err := c.ShouldBindJSON(&form); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	u, err := h.Users.Register(c.Request.Context(), form)
	if err != nil {
		failErr(c, err)
		return
	}

	// Registration logs the new user straight in.
	token, err := auth.SignJWT(u.ID, h.Cfg.JWTSecret, tokenTTL)
	if err != nil {
		h.Log.Error("sign token failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}
	h.Sessions.StateFor(u.ID).Login(u)

	ok(c, gin.H{"token": token, "user": userView(u)})
}

func (h *Handler) QuickLoginAccounts(c *gin.Context) {
	ok(c, gin.H{"accounts": h.Users.QuickLoginAccounts()})
}

func (h *Handler) Logout(c *gin.Context) {
	uid := userIDFromContext(c)
	st := h.Sessions.StateFor(uid)
	st.Logout()
	ok(c, gin.H{"active_module": st.ActiveModule()})
}

func (h *Handler) Me(c *gin.Context) {
	uid, okk := requireUserID(c)
	if !okk {
		return
	}
	u, err := h.Users.GetUser(c.Request.Context(), uid)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, userView(u))
}

func (h *Handler) UpdatePreferences(c *gin.Context) {
	uid, okk := requireUserID(c)
	if !okk {
		return
	}

	var patch identity.PreferencesPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	u, err := h.Users.UpdatePreferences(c.Request.Context(), uid, patch)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, userView(u))
}
