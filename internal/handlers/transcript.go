package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/logger"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/repos"
)

type TranscriptHandler struct {
	log  *logger.Logger
	repo repos.ConsentTranscriptRepo
}

func NewTranscriptHandler(log *logger.Logger, repo repos.ConsentTranscriptRepo) *TranscriptHandler {
	return &TranscriptHandler{
		log:  log.With("handler", "TranscriptHandler"),
		repo: repo,
	}
}

// GET /api/transcripts?session_id=
// Operator review of consent-dialog transitions; rows carry hashed ids
// and derived labels only.
func (h *TranscriptHandler) GetBySession(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		RespondError(c, http.StatusBadRequest, "missing_session_id", fmt.Errorf("session_id query parameter is required"))
		return
	}
	transcripts, err := h.repo.GetBySessionID(c.Request.Context(), nil, sessionID)
	if err != nil {
		h.log.Error("transcript read failed", "session_id", sessionID, "error", err)
		RespondError(c, http.StatusInternalServerError, "read_failed", fmt.Errorf("could not read transcripts"))
		return
	}
	RespondOK(c, transcripts)
}
