package handlers

import (
	"net/http"

	"github.com/Kazorio/translation-app/internal/languages"
	"github.com/Kazorio/translation-app/internal/services"
	"github.com/Kazorio/translation-app/internal/utils"
	"github.com/gin-gonic/gin"
)

// SpeechHandler exposes the pipeline stages as stateless endpoints.
type SpeechHandler struct {
	speech      services.SpeechService
	translation services.TranslationService
}

func NewSpeechHandler(speech services.SpeechService, translation services.TranslationService) *SpeechHandler {
	return &SpeechHandler{speech: speech, translation: translation}
}

func (h *SpeechHandler) Transcribe(c *gin.Context) {
	const op = "SpeechHandler.Transcribe"

	lang, err := languages.Find(c.PostForm("language"))
	if err != nil {
		writeError(c, err)
		return
	}
	data, ok := readAudioForm(c, op)
	if !ok {
		return
	}

	text, conf, err := h.speech.Transcribe(c.Request.Context(), data, lang)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text, "confidence": conf})
}

type TranslateRequest struct {
	Text           string `json:"text" binding:"required"`
	SourceLanguage string `json:"sourceLanguage" binding:"required"`
	TargetLanguage string `json:"targetLanguage" binding:"required"`
}

func (h *SpeechHandler) Translate(c *gin.Context) {
	const op = "SpeechHandler.Translate"

	var req TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "text, sourceLanguage and targetLanguage are required", err))
		return
	}

	out, err := h.translation.Translate(c.Request.Context(), req.Text,
		languages.Resolve(req.SourceLanguage), languages.Resolve(req.TargetLanguage))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"translatedText": out})
}

type SynthesizeRequest struct {
	Text     string `json:"text" binding:"required"`
	Language string `json:"language" binding:"required"`
}

func (h *SpeechHandler) Synthesize(c *gin.Context) {
	const op = "SpeechHandler.Synthesize"

	var req SynthesizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "text and language are required", err))
		return
	}

	payload, mime, err := h.speech.Synthesize(c.Request.Context(), req.Text, req.Language)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, mime, payload)
}

func (h *SpeechHandler) Languages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"languages": languages.Supported()})
}
