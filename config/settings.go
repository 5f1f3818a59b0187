package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Settings is everything the server reads from the environment.
type Settings struct {
	Port     string
	LogLevel string

	GCPProject     string
	VertexLocation string
	VertexModel    string
	GCSBucket      string

	MinRecordingSeconds float64
	ConfigErrorDelay    time.Duration
	PipelineErrorDelay  time.Duration
	PlaybackGap         time.Duration
	CacheTTL            time.Duration

	// ArchiveUtterances keeps recordings and uploads them to GCS.
	ArchiveUtterances bool
	ArchiveWorkers    int
	UtteranceTTL      time.Duration

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	AllowedOrigins []string
}

func Load() Settings {
	return Settings{
		Port:     env("PORT", "8080"),
		LogLevel: env("LOG_LEVEL", "info"),

		GCPProject:     env("GCP_PROJECT_ID", os.Getenv("GOOGLE_CLOUD_PROJECT")),
		VertexLocation: env("VERTEX_LOCATION", "us-central1"),
		VertexModel:    env("VERTEX_MODEL", "gemini-1.5-flash"),
		GCSBucket:      os.Getenv("GCS_BUCKET"),

		MinRecordingSeconds: envFloat("MIN_RECORDING_SECONDS", 0.5),
		ConfigErrorDelay:    envDuration("CONFIG_ERROR_DELAY", 2*time.Second),
		PipelineErrorDelay:  envDuration("PIPELINE_ERROR_DELAY", 1200*time.Millisecond),
		PlaybackGap:         envDuration("PLAYBACK_GAP", 100*time.Millisecond),
		CacheTTL:            envDuration("CACHE_TTL", 24*time.Hour),

		ArchiveUtterances: envBool("ARCHIVE_UTTERANCES", false),
		ArchiveWorkers:    envInt("ARCHIVE_WORKERS", 2),
		UtteranceTTL:      envDuration("UTTERANCE_TTL", 7*24*time.Hour),

		JWTSecret:   os.Getenv("SUPABASE_JWT_SECRET"),
		JWTIssuer:   os.Getenv("SUPABASE_JWT_ISSUER"),
		JWTAudience: os.Getenv("SUPABASE_JWT_AUDIENCE"),

		AllowedOrigins: envList("WS_ALLOWED_ORIGINS"),
	}
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if n, err := strconv.Atoi(env(key, "")); err == nil && n > 0 {
		return n
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if f, err := strconv.ParseFloat(env(key, ""), 64); err == nil && f >= 0 {
		return f
	}
	return def
}

func envBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(env(key, "")); err == nil {
		return b
	}
	return def
}

// envDuration accepts Go durations ("1500ms") or plain milliseconds.
func envDuration(key string, def time.Duration) time.Duration {
	v := env(key, "")
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}

func envList(key string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
