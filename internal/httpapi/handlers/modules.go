package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huangzx96/llm-workbench/internal/workbench"
)

func (h *Handler) ListModules(c *gin.Context) {
	uid := userIDFromContext(c)
	st := h.Sessions.StateFor(uid)

	infos := h.Sessions.Registry().List()
	out := make([]gin.H, 0, len(infos))
	for _, m := range infos {
		out = append(out, gin.H{
			"id":            m.ID,
			"name":          m.Name,
			"description":   m.Description,
			"requires_auth": m.RequiresAuth,
			"badge":         m.Badge,
			"available":     h.Sessions.Registry().Available(m.ID, st.IsAuthenticated()),
		})
	}
	ok(c, gin.H{"modules": out, "active_module": st.ActiveModule()})
}

type switchModuleReq struct {
	Module string `json:"module" binding:"required"`
}

func (h *Handler) SwitchModule(c *gin.Context) {
	var req switchModuleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	uid := userIDFromContext(c)
	st := h.Sessions.StateFor(uid)
	if err := st.SwitchModule(workbench.ModuleID(req.Module)); err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"active_module": st.ActiveModule()})
}

func (h *Handler) WorkbenchState(c *gin.Context) {
	uid := userIDFromContext(c)
	st := h.Sessions.StateFor(uid)

	ok(c, gin.H{
		"active_module":       st.ActiveModule(),
		"authenticated":       st.IsAuthenticated(),
		"auth_prompt_signals": st.AuthPromptSignals(),
	})
}
