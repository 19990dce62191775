package model

import "time"

// ================ Config ================
type GenerationConfig struct {
	Model       string        `envconfig:"GENERATION_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int           `envconfig:"GENERATION_MAX_TOKENS" default:"4096"`
	Temperature float32       `envconfig:"GENERATION_TEMPERATURE" default:"0.3"`
	Timeout     time.Duration `envconfig:"GENERATION_TIMEOUT" default:"45s"`
}

type SessionConfig struct {
	Store string        `envconfig:"SESSION_STORE" default:"memory"`
	TTL   time.Duration `envconfig:"SESSION_TTL" default:"30m"`
}

type ImageConfig struct {
	MaxUploadBytes int64 `envconfig:"IMAGE_MAX_UPLOAD_BYTES" default:"20971520"`
}

const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)
