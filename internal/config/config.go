package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenAddr      string
	DBPath          string
	LogLevel        string
	LogFormat       string
	LogFile         string
	ShutdownTimeout time.Duration

	LocationsFile    string
	ReferenceFile    string
	LocationPolicy   string
	FuzzyThreshold   float64
	MinGroupSize     int
	NormalizeWorkers int

	// Geocoder fallback for locations the tables cannot place.
	GeocoderBackend   string
	GeocoderTimeout   time.Duration
	GeocoderCacheSize int
	GeocoderMissTTL   time.Duration
	ClaudeAPIKey      string
	ClaudeModel       string
	OllamaHost        string
	OllamaModel       string

	// Submission events. Publishing is disabled when KafkaBrokers is empty.
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:     getEnv("LISTEN_ADDR", ":8080"),
		DBPath:         getEnv("DB_PATH", "/data/mahrfyi.db"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		LogFile:        getEnv("LOG_FILE", ""),
		LocationsFile:  getEnv("LOCATIONS_FILE", ""),
		ReferenceFile:  getEnv("REFERENCE_FILE", ""),
		LocationPolicy: getEnv("LOCATION_POLICY", "strict"),

		GeocoderBackend: getEnv("GEOCODER_BACKEND", "none"),
		ClaudeAPIKey:    getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:     getEnv("CLAUDE_MODEL", "claude-3-5-haiku-latest"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:     getEnv("OLLAMA_MODEL", "llama3.2"),

		KafkaBrokers: parseBrokers(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "mahr-submissions"),
	}

	var err error
	if cfg.ShutdownTimeout, err = parseDuration("SHUTDOWN_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.GeocoderTimeout, err = parseDuration("GEOCODER_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.GeocoderMissTTL, err = parseDuration("GEOCODER_MISS_TTL", "10m"); err != nil {
		return nil, err
	}
	if cfg.FuzzyThreshold, err = parseFloat("FUZZY_THRESHOLD", 0.7); err != nil {
		return nil, err
	}
	if cfg.FuzzyThreshold <= 0 || cfg.FuzzyThreshold >= 1 {
		return nil, fmt.Errorf("invalid FUZZY_THRESHOLD: must be between 0 and 1")
	}
	if cfg.MinGroupSize, err = parsePositiveInt("MIN_GROUP_SIZE", 3); err != nil {
		return nil, err
	}
	if cfg.NormalizeWorkers, err = parsePositiveInt("NORMALIZE_WORKERS", 8); err != nil {
		return nil, err
	}
	if cfg.GeocoderCacheSize, err = parsePositiveInt("GEOCODER_CACHE_SIZE", 1000); err != nil {
		return nil, err
	}

	switch cfg.LogFormat {
	case "json", "text":
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: want json or text", cfg.LogFormat)
	}

	switch cfg.GeocoderBackend {
	case "none", "ollama":
	case "claude":
		if cfg.ClaudeAPIKey == "" {
			return nil, fmt.Errorf("CLAUDE_API_KEY is required when GEOCODER_BACKEND=claude")
		}
	default:
		return nil, fmt.Errorf("invalid GEOCODER_BACKEND %q: want none, claude or ollama", cfg.GeocoderBackend)
	}

	return cfg, nil
}

func (c *Config) GeocoderEnabled() bool {
	return c.GeocoderBackend != "none"
}

func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseDuration(key, defaultVal string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, defaultVal))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parseFloat(key string, defaultVal float64) (float64, error) {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func parsePositiveInt(key string, defaultVal int) (int, error) {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}
