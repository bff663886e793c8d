package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"uiforge/internal/design"
	"uiforge/internal/filestore"
)

// Config is everything the service reads from the environment.
type Config struct {
	Port string
	Env  string

	Oracle   OracleConfig
	Pipeline PipelineConfig
	Cache    CacheConfig
	Artifact ArtifactConfig
}

type OracleConfig struct {
	// Provider selects the client: "gemini" or "rest".
	Provider string
	Model    string
	// RESTBaseURL and RESTAPIKey configure the OpenAI-compatible
	// provider; Gemini reads GEMINI_API_KEY itself.
	RESTBaseURL string
	RESTAPIKey  string

	MaxAttempts int
	RetryBase   time.Duration
	RPS         float64
	Burst       int
	CallTimeout time.Duration
}

type PipelineConfig struct {
	NodeThreshold int
	Capacity      int
	MaxSplitDepth int
	Concurrency   int
}

type CacheConfig struct {
	// Dir enables the disk cache when non-empty.
	Dir        string
	MemEntries int
	TTL        time.Duration
}

type ArtifactConfig struct {
	// Enabled switches file persistence from memory to S3.
	Enabled bool
	S3      filestore.S3Config
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = ":8080"
	} else if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	cfg := &Config{
		Port: port,
		Env:  env,
		Oracle: OracleConfig{
			Provider:    firstNonEmpty(os.Getenv("ORACLE_PROVIDER"), "gemini"),
			Model:       firstNonEmpty(os.Getenv("ORACLE_MODEL"), "gemini-2.5-pro"),
			RESTBaseURL: strings.TrimSpace(os.Getenv("ORACLE_REST_URL")),
			RESTAPIKey:  strings.TrimSpace(os.Getenv("ORACLE_REST_API_KEY")),
			MaxAttempts: envInt("ORACLE_MAX_ATTEMPTS", 3),
			RetryBase:   envDuration("ORACLE_RETRY_BASE", 500*time.Millisecond),
			RPS:         envFloat("ORACLE_RPS", 0.5),
			Burst:       envInt("ORACLE_BURST", 1),
			CallTimeout: envDuration("ORACLE_CALL_TIMEOUT", 5*time.Minute),
		},
		Pipeline: PipelineConfig{
			NodeThreshold: envInt("NODE_THRESHOLD", design.DefaultNodeThreshold),
			Capacity:      envInt("SCREEN_CAPACITY", design.DefaultNodeThreshold),
			MaxSplitDepth: envInt("MAX_SPLIT_DEPTH", 3),
			Concurrency:   envInt("SCREEN_CONCURRENCY", 4),
		},
		Cache: CacheConfig{
			Dir:        strings.TrimSpace(os.Getenv("RESPONSE_CACHE_DIR")),
			MemEntries: envInt("RESPONSE_CACHE_ENTRIES", 256),
			TTL:        envDuration("RESPONSE_CACHE_TTL", 24*time.Hour),
		},
		Artifact: loadArtifactConfig(env),
	}
	return cfg, nil
}

func loadArtifactConfig(env string) ArtifactConfig {
	endpoint := strings.TrimSpace(os.Getenv("ARTIFACT_S3_ENDPOINT"))
	if endpoint == "" && strings.EqualFold(env, "local") {
		endpoint = strings.TrimSpace(os.Getenv("ARTIFACT_MINIO_ENDPOINT"))
	}
	return ArtifactConfig{
		Enabled: endpoint != "",
		S3: filestore.S3Config{
			Endpoint:  endpoint,
			Region:    firstNonEmpty(os.Getenv("ARTIFACT_S3_REGION"), "us-east-1"),
			AccessKey: firstNonEmpty(os.Getenv("ARTIFACT_S3_ACCESS_KEY"), os.Getenv("MINIO_ROOT_USER")),
			SecretKey: firstNonEmpty(os.Getenv("ARTIFACT_S3_SECRET_KEY"), os.Getenv("MINIO_ROOT_PASSWORD")),
			Bucket:    firstNonEmpty(os.Getenv("ARTIFACT_S3_BUCKET"), "uiforge-artifacts"),
			UseSSL:    envBool("ARTIFACT_S3_USE_SSL", !strings.EqualFold(env, "local")),
		},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64); err == nil {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return def
}
