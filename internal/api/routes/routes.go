package routes

import (
	"github.com/Kazorio/translation-app/internal/api/handlers"
	"github.com/Kazorio/translation-app/internal/api/middleware"
	"github.com/Kazorio/translation-app/internal/metrics"
	"github.com/gin-gonic/gin"
)

type Deps struct {
	Speech       *handlers.SpeechHandler
	Conversation *handlers.ConversationHandler
	Preference   *handlers.PreferenceHandler
	Utterance    *handlers.UtteranceHandler // nil when archiving is not configured
	WS           *handlers.WSHandler

	JWT     middleware.JWTConfig
	Metrics *metrics.Metrics
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	// JWT is enforced only when a secret is configured
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth(d.JWT))

	api := auth.Group("/api")
	api.GET("/languages", d.Speech.Languages)
	api.POST("/transcribe", d.Speech.Transcribe)
	api.POST("/translate", d.Speech.Translate)
	api.POST("/tts", d.Speech.Synthesize)

	auth.GET("/rooms/:room_id/entries", d.Conversation.List)
	auth.POST("/rooms/:room_id/entries", d.Conversation.Append)
	auth.GET("/rooms/:room_id/entries/:entry_id", d.Conversation.Get)

	if d.Utterance != nil {
		auth.POST("/rooms/:room_id/utterances", d.Utterance.Upload)
		auth.GET("/rooms/:room_id/utterances", d.Utterance.List)
		auth.GET("/rooms/:room_id/utterances/:utterance_id", d.Utterance.Get)
		auth.GET("/rooms/:room_id/utterances/:utterance_id/url", d.Utterance.PlaybackURL)
	}

	auth.GET("/devices/:device_id/preferences", d.Preference.Get)
	auth.PUT("/devices/:device_id/preferences", d.Preference.Update)

	// WebSocket
	auth.GET("/ws/rooms/:room_id", d.WS.RoomWS)
}
