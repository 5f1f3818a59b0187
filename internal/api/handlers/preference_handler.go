package handlers

import (
	"net/http"

	"github.com/Kazorio/translation-app/internal/services"
	"github.com/Kazorio/translation-app/internal/utils"
	"github.com/gin-gonic/gin"
)

type PreferenceHandler struct {
	svc services.PreferenceService
}

func NewPreferenceHandler(svc services.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{svc: svc}
}

func (h *PreferenceHandler) Get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("device_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type UpdatePreferencesRequest struct {
	Language     *string `json:"language,omitempty"`
	AudioEnabled *bool   `json:"audio_enabled,omitempty"`
}

// Update applies a partial update and returns the stored preferences.
func (h *PreferenceHandler) Update(c *gin.Context) {
	const op = "PreferenceHandler.Update"

	deviceID := c.Param("device_id")

	var req UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	ctx := c.Request.Context()
	// creates the device record (and its speaker id) on first use
	if _, err := h.svc.Get(ctx, deviceID); err != nil {
		writeError(c, err)
		return
	}

	if req.Language != nil {
		if _, err := h.svc.SetLanguage(ctx, deviceID, *req.Language); err != nil {
			writeError(c, err)
			return
		}
	}
	if req.AudioEnabled != nil {
		if err := h.svc.SetAudioEnabled(ctx, deviceID, *req.AudioEnabled); err != nil {
			writeError(c, err)
			return
		}
	}

	p, err := h.svc.Get(ctx, deviceID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
