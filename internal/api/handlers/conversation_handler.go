package handlers

import (
	"net/http"

	"github.com/Kazorio/translation-app/internal/models"
	"github.com/Kazorio/translation-app/internal/services"
	"github.com/Kazorio/translation-app/internal/utils"
	"github.com/gin-gonic/gin"
)

type ConversationHandler struct {
	svc services.ConversationService
}

func NewConversationHandler(svc services.ConversationService) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

type AppendEntryRequest struct {
	Speaker        models.SpeakerRole `json:"speaker"`
	SpeakerID      string             `json:"speaker_id"`
	OriginalText   string             `json:"original_text" binding:"required"`
	TranslatedText string             `json:"translated_text"`
	SourceLanguage string             `json:"source_language" binding:"required"`
	TargetLanguage string             `json:"target_language" binding:"required"`
}

func (h *ConversationHandler) List(c *gin.Context) {
	roomID, ok := roomParam(c, "ConversationHandler.List")
	if !ok {
		return
	}

	rows, err := h.svc.History(c.Request.Context(), roomID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room_id": roomID,
		"entries": rows,
	})
}

func (h *ConversationHandler) Append(c *gin.Context) {
	const op = "ConversationHandler.Append"

	roomID, ok := roomParam(c, op)
	if !ok {
		return
	}

	var req AppendEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	speakerID := req.SpeakerID
	if id := callerSpeakerID(c); id != "" {
		speakerID = id
	}

	row, err := h.svc.Append(c.Request.Context(), &models.ConversationEntry{
		RoomID:         roomID,
		Speaker:        req.Speaker,
		SpeakerID:      speakerID,
		OriginalText:   req.OriginalText,
		TranslatedText: req.TranslatedText,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, row)
}

func (h *ConversationHandler) Get(c *gin.Context) {
	const op = "ConversationHandler.Get"

	roomID, ok := roomParam(c, op)
	if !ok {
		return
	}
	row, err := h.svc.Get(c.Request.Context(), c.Param("entry_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if row.RoomID != roomID {
		writeError(c, utils.E(utils.CodeNotFound, op, "entry not found", nil))
		return
	}
	c.JSON(http.StatusOK, row)
}
