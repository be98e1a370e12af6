package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListAgentTools(c *gin.Context) {
	if _, okk := requireUserID(c); !okk {
		return
	}
	ok(c, gin.H{"tools": h.AgentSvc.Tools()})
}

func (h *Handler) ListAgentTemplates(c *gin.Context) {
	if _, okk := requireUserID(c); !okk {
		return
	}
	ok(c, gin.H{"templates": h.AgentSvc.Templates()})
}

func (h *Handler) ListAgents(c *gin.Context) {
	uid, okk := requireUserID(c)
	if !okk {
		return
	}
	ok(c, gin.H{"agents": h.AgentSvc.Agents(uid)})
}

type createAgentReq struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ToolIDs     []string `json:"tool_ids"`
	TemplateID  string   `json:"template_id"`
}

func (h *Handler) CreateAgent(c *gin.Context) {
	uid, okk := requireUserID(c)
	if !okk {
		return
	}

	var req createAgentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	if req.TemplateID != "" {
		a, err := h.AgentSvc.CreateFromTemplate(uid, req.TemplateID)
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"agent": a})
		return
	}

	a, err := h.AgentSvc.CreateAgent(uid, req.Name, req.Description, req.ToolIDs)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"agent": a})
}

type executeAgentReq struct {
	Input string `json:"input"`
}

func (h *Handler) ExecuteAgent(c *gin.Context) {
	uid, okk := requireUserID(c)
	if !okk {
		return
	}

	var req executeAgentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	exec, err := h.AgentSvc.Execute(c.Request.Context(), uid, c.Param("agent_id"), req.Input)
	if err != nil {
		// A failed run still has a history entry worth returning.
		if exec != nil {
			ok(c, gin.H{"execution": exec})
			return
		}
		failErr(c, err)
		return
	}
	ok(c, gin.H{"execution": exec})
}

func (h *Handler) ListAgentExecutions(c *gin.Context) {
	uid, okk := requireUserID(c)
	if !okk {
		return
	}
	ok(c, gin.H{"executions": h.AgentSvc.History(uid, c.Query("agent_id"))})
}
