package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/logger"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/orchestrator"
)

type TurnHandler struct {
	log  *logger.Logger
	orch *orchestrator.Orchestrator
}

func NewTurnHandler(log *logger.Logger, orch *orchestrator.Orchestrator) *TurnHandler {
	return &TurnHandler{
		log:  log.With("handler", "TurnHandler"),
		orch: orch,
	}
}

type turnRequest struct {
	SessionID  string `json:"session_id" binding:"required"`
	UserID     string `json:"user_id" binding:"required"`
	Text       string `json:"text"`
	SystemText string `json:"system_text"`
}

// POST /api/turn
// { session_id, user_id, text, system_text? } -> Directive
func (h *TurnHandler) ProcessTurn(c *gin.Context) {
	var req turnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	directive, err := h.orch.ProcessTurn(c.Request.Context(), orchestrator.TurnInput{
		SessionID:  req.SessionID,
		UserID:     req.UserID,
		Text:       req.Text,
		SystemText: req.SystemText,
	})
	if err != nil {
		h.log.Error("turn processing rejected", "error", err)
		RespondError(c, http.StatusBadRequest, "invalid_turn", fmt.Errorf("turn could not be processed"))
		return
	}
	RespondOK(c, directive)
}
