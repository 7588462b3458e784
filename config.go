package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Configuration constants
var (
	// OpenRouterAPIKey is the API key for OpenRouter
	OpenRouterAPIKey string

	// ChairmanModel is the model used for final synthesis when no chairman
	// archetype is requested
	ChairmanModel = "google/gemini-3-pro-preview"

	// TitleModel is the fast model used for conversation titles
	TitleModel = "google/gemini-2.5-flash"

	// OpenRouterAPIURL is the endpoint for OpenRouter API
	OpenRouterAPIURL = "https://openrouter.ai/api/v1/chat/completions"

	// CouncilConfigPath is the optional YAML file describing the roster and queue
	CouncilConfigPath = "council.yaml"

	// DBPath is the SQLite database holding conversations
	DBPath = "data/council.db"

	// Timeout constants
	ModelQueryTimeout = 120 * time.Second
	TitleGenTimeout   = 30 * time.Second

	// max_tokens per call purpose
	DeliberationMaxTokens = 4096
	DispatchMaxTokens     = 1024
	TitleMaxTokens        = 32

	// Request queue tuning
	QueueMaxConcurrent = 4
	QueueRequestDelay  = 250 * time.Millisecond
	QueueMaxRetries    = 3
	QueueBaseBackoff   = time.Second

	// QueueCleanupCron is the cron expression for discarding finished queue history
	QueueCleanupCron = "*/10 * * * *"

	// RankingScope decides who votes in stage 2
	RankingScope = RankParticipants

	// StructuredVerdict asks the chairman for the JSON verdict variant
	StructuredVerdict = false

	// NATSURL enables publishing council events to NATS when set
	NATSURL string

	// ServerPort is the HTTP listen port
	ServerPort = "8001"

	// CORS allowed origins (configurable via environment)
	// In development (empty/default), allows any localhost port
	// In production, set CORS_ALLOWED_ORIGINS environment variable
	CORSAllowedOrigins = []string{}

	// MaxRequestBodySize is the maximum allowed request body size (1MB)
	MaxRequestBodySize int64 = 1 << 20

	// ReferenceCacheTTL is how long fetched URL content stays cached
	ReferenceCacheTTL = 5 * time.Minute
)

// ConfigError is a startup configuration problem the operator has to fix.
type ConfigError struct {
	Setting string
	Hint    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Setting, e.Hint)
}

// ErrMissingAPIKey is returned when no OpenRouter credential is configured.
var ErrMissingAPIKey = &ConfigError{
	Setting: "OPENROUTER_API_KEY",
	Hint:    "set it in the environment or in a .env file",
}

// IsConfigError reports whether err is a configuration failure.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// CouncilFile is the on-disk shape of council.yaml.
type CouncilFile struct {
	Chairman string          `yaml:"chairman"`
	Members  []CouncilMember `yaml:"members"`
	Queue    struct {
		MaxConcurrent  int    `yaml:"max_concurrent"`
		RequestDelayMs int    `yaml:"request_delay_ms"`
		MaxRetries     *int   `yaml:"max_retries"`
		CleanupCron    string `yaml:"cleanup_cron"`
	} `yaml:"queue"`
	RankingScope      string `yaml:"ranking_scope"`
	StructuredVerdict *bool  `yaml:"structured_verdict"`
}

// LoadConfig loads configuration from .env, the environment and council.yaml.
// The returned roster is the default roster unless council.yaml lists members.
func LoadConfig() (*Roster, error) {
	// Load .env file - try multiple locations
	envLocations := []string{
		".env",    // Current directory
		"../.env", // Parent directory
	}

	envLoaded := false
	for _, envPath := range envLocations {
		absPath, err := filepath.Abs(envPath)
		if err != nil {
			continue
		}

		if _, err := os.Stat(absPath); err == nil {
			if err := godotenv.Load(absPath); err == nil {
				log.Printf("Loaded .env from: %s", absPath)
				envLoaded = true
				break
			}
		}
	}

	if !envLoaded {
		log.Printf("Warning: .env file not found in any expected location")
	}

	// Get OpenRouter API key
	OpenRouterAPIKey = os.Getenv("OPENROUTER_API_KEY")
	if OpenRouterAPIKey == "" {
		return nil, ErrMissingAPIKey
	}

	applyEnv()

	roster := DefaultRoster()
	file, err := loadCouncilFile(CouncilConfigPath)
	if err != nil {
		return nil, err
	}
	if file != nil {
		if roster, err = applyCouncilFile(file); err != nil {
			return nil, err
		}
	}

	// Environment wins over the file for tuning knobs
	applyQueueEnv()

	log.Println("Configuration loaded successfully")
	return roster, nil
}

func applyEnv() {
	if v := os.Getenv("OPENROUTER_API_URL"); v != "" {
		OpenRouterAPIURL = v
	}
	if v := os.Getenv("COUNCIL_CONFIG"); v != "" {
		CouncilConfigPath = v
	}
	if v := os.Getenv("COUNCIL_DB_PATH"); v != "" {
		DBPath = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		NATSURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		ServerPort = v
	}

	// Load CORS origins from environment if provided
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		CORSAllowedOrigins = []string{}
		for _, origin := range strings.Split(corsOrigins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				CORSAllowedOrigins = append(CORSAllowedOrigins, origin)
			}
		}
	}
}

func applyQueueEnv() {
	if v := os.Getenv("QUEUE_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			QueueMaxConcurrent = n
		}
	}
	if v := os.Getenv("QUEUE_REQUEST_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			QueueRequestDelay = time.Duration(n) * time.Millisecond
		}
	}
	if v := os.Getenv("QUEUE_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			QueueMaxRetries = n
		}
	}
	if v := os.Getenv("QUEUE_CLEANUP_CRON"); v != "" {
		QueueCleanupCron = v
	}
	if v := os.Getenv("COUNCIL_RANKING_SCOPE"); v != "" {
		if scope, err := ParseRankingScope(v); err == nil {
			RankingScope = scope
		} else {
			log.Printf("Ignoring COUNCIL_RANKING_SCOPE: %v", err)
		}
	}
	if v := os.Getenv("COUNCIL_STRUCTURED_VERDICT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			StructuredVerdict = b
		}
	}
}

// loadCouncilFile reads council.yaml. A missing file is not an error.
func loadCouncilFile(path string) (*CouncilFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read council config: %w", err)
	}

	var file CouncilFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &file); err != nil {
		return nil, fmt.Errorf("parse council config: %w", err)
	}
	log.Printf("Loaded council config from: %s", path)
	return &file, nil
}

func applyCouncilFile(file *CouncilFile) (*Roster, error) {
	roster := DefaultRoster()
	if len(file.Members) > 0 {
		var err error
		if roster, err = NewRoster(file.Members); err != nil {
			return nil, fmt.Errorf("council config: %w", err)
		}
	}
	if file.Chairman != "" {
		ChairmanModel = file.Chairman
	}
	if file.Queue.MaxConcurrent > 0 {
		QueueMaxConcurrent = file.Queue.MaxConcurrent
	}
	if file.Queue.RequestDelayMs > 0 {
		QueueRequestDelay = time.Duration(file.Queue.RequestDelayMs) * time.Millisecond
	}
	if file.Queue.MaxRetries != nil {
		QueueMaxRetries = *file.Queue.MaxRetries
	}
	if file.Queue.CleanupCron != "" {
		QueueCleanupCron = file.Queue.CleanupCron
	}
	if file.RankingScope != "" {
		scope, err := ParseRankingScope(file.RankingScope)
		if err != nil {
			return nil, fmt.Errorf("council config: %w", err)
		}
		RankingScope = scope
	}
	if file.StructuredVerdict != nil {
		StructuredVerdict = *file.StructuredVerdict
	}
	return roster, nil
}
