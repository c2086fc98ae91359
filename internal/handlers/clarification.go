package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/clarify"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/logger"
	pkgerrors "github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/pkg/errors"
)

type ClarificationHandler struct {
	log   *logger.Logger
	store *clarify.Store
}

func NewClarificationHandler(log *logger.Logger, store *clarify.Store) *ClarificationHandler {
	return &ClarificationHandler{
		log:   log.With("handler", "ClarificationHandler"),
		store: store,
	}
}

// GET /api/clarifications/lookup?phrase=
func (h *ClarificationHandler) Lookup(c *gin.Context) {
	phrase := c.Query("phrase")
	if phrase == "" {
		RespondError(c, http.StatusBadRequest, "missing_phrase", fmt.Errorf("phrase query parameter is required"))
		return
	}
	clarification := h.store.Lookup(c.Request.Context(), phrase)
	if clarification == nil {
		RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("clarification: %w", pkgerrors.ErrNotFound))
		return
	}
	RespondOK(c, clarification)
}

// POST /api/clarifications/reconcile
// Purges fallback lines that have since gained an authoritative DB row.
func (h *ClarificationHandler) Reconcile(c *gin.Context) {
	if err := h.store.Reconcile(c.Request.Context()); err != nil {
		h.log.Error("reconciliation failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "reconcile_failed", fmt.Errorf("reconciliation failed"))
		return
	}
	RespondOK(c, gin.H{"status": "reconciled"})
}
