package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/compliance"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/logger"
)

type ComplianceHandler struct {
	log      *logger.Logger
	verifier *compliance.Verifier
}

func NewComplianceHandler(log *logger.Logger, verifier *compliance.Verifier) *ComplianceHandler {
	return &ComplianceHandler{
		log:      log.With("handler", "ComplianceHandler"),
		verifier: verifier,
	}
}

// GET /api/compliance/verify?session_id=
// Omitting session_id verifies every stored record.
func (h *ComplianceHandler) Verify(c *gin.Context) {
	scope := compliance.Scope{SessionID: c.Query("session_id")}
	report := h.verifier.Verify(c.Request.Context(), scope)
	RespondOK(c, report)
}
