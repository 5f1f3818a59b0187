package handlers

import (
	"errors"
	"net/http"

	"github.com/Kazorio/translation-app/internal/utils"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)

	var ae *utils.AppError
	if errors.As(err, &ae) {
		c.JSON(status, APIError{
			Code:    ae.Code,
			Message: ae.Message,
		})
		return
	}

	c.JSON(status, APIError{
		Code:    utils.CodeInternal,
		Message: http.StatusText(status),
	})
}

// callerSpeakerID is the authenticated speaker id, or "" for anonymous
// callers.
func callerSpeakerID(c *gin.Context) string {
	if v, ok := c.Get("speaker_id"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func roomParam(c *gin.Context, op string) (string, bool) {
	roomID := c.Param("room_id")
	if roomID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing room_id", nil))
		return "", false
	}
	return roomID, true
}
