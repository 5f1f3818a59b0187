package handlers

import (
	"io"
	"net/http"

	"github.com/Kazorio/translation-app/internal/services"
	"github.com/Kazorio/translation-app/internal/utils"
	"github.com/gin-gonic/gin"
)

const maxUploadBytes = 10 << 20

type UtteranceHandler struct {
	svc services.UtteranceService
}

func NewUtteranceHandler(svc services.UtteranceService) *UtteranceHandler {
	return &UtteranceHandler{svc: svc}
}

// readAudioForm reads the multipart "audio" field.
func readAudioForm(c *gin.Context, op string) ([]byte, bool) {
	fh, err := c.FormFile("audio")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing multipart field 'audio'", err))
		return nil, false
	}
	if fh.Size <= 0 || fh.Size > maxUploadBytes {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "file too large (max 10MB)", nil))
		return nil, false
	}

	file, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to open upload", err))
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to read upload", err))
		return nil, false
	}

	ct := http.DetectContentType(data)
	if ct != "audio/wave" && ct != "audio/wav" && ct != "audio/x-wav" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid content type (must be wav)", nil))
		return nil, false
	}
	return data, true
}

func (h *UtteranceHandler) Upload(c *gin.Context) {
	const op = "UtteranceHandler.Upload"

	roomID, ok := roomParam(c, op)
	if !ok {
		return
	}
	data, ok := readAudioForm(c, op)
	if !ok {
		return
	}

	speakerID := c.PostForm("speaker_id")
	if id := callerSpeakerID(c); id != "" {
		speakerID = id
	}

	u, err := h.svc.Submit(c.Request.Context(), roomID, speakerID, c.PostForm("language"), data)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, u)
}

func (h *UtteranceHandler) List(c *gin.Context) {
	roomID, ok := roomParam(c, "UtteranceHandler.List")
	if !ok {
		return
	}
	rows, err := h.svc.List(c.Request.Context(), roomID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room_id": roomID, "utterances": rows})
}

func (h *UtteranceHandler) Get(c *gin.Context) {
	u, err := h.svc.Get(c.Request.Context(), c.Param("room_id"), c.Param("utterance_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UtteranceHandler) PlaybackURL(c *gin.Context) {
	url, err := h.svc.PlaybackURL(c.Request.Context(), c.Param("room_id"), c.Param("utterance_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
