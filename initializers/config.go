package initializers

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process configuration, read from the environment.
type Config struct {
	DatabaseURL   string
	Port          string
	JWTSecret     string
	RunMigrations bool
	MigrationsURL string

	StorageBackend string
	UploadDir      string
	MaxFileSize    int64

	SupabaseRegion     string
	SupabaseEndpoint   string
	SupabaseAccessKey  string
	SupabaseSecretKey  string
	SupabaseBucketName string

	ElasticsearchURL string

	OCRSpaceAPIKey   string
	OCRSpaceEndpoint string

	LLMBaseURL           string
	LLMAPIKey            string
	LLMModel             string
	LLMRequestsPerMinute int

	ExtractionTimeout time.Duration
	AnalysisTimeout   time.Duration

	AnalysisCache    string
	AnalysisCacheTTL time.Duration
	RedisURL         string

	LogLevel  string
	LogFormat string
}

// LoadConfig reads Config from the environment, applying defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		DatabaseURL:        os.Getenv("DIRECT_URL"),
		Port:               getEnv("PORT", "8080"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		MigrationsURL:      getEnv("MIGRATIONS_URL", "file://db/migrations"),
		StorageBackend:     strings.ToLower(getEnv("STORAGE_BACKEND", "disk")),
		UploadDir:          getEnv("UPLOAD_DIR", "./uploads"),
		SupabaseRegion:     os.Getenv("SUPABASE_REGION"),
		SupabaseEndpoint:   os.Getenv("SUPABASE_S3_ENDPOINT"),
		SupabaseAccessKey:  os.Getenv("SUPABASE_ACCESS_KEY"),
		SupabaseSecretKey:  os.Getenv("SUPABASE_SECRET_KEY"),
		SupabaseBucketName: os.Getenv("SUPABASE_BUCKET"),
		ElasticsearchURL:   os.Getenv("ELASTICSEARCH_URL"),
		OCRSpaceAPIKey:     os.Getenv("OCR_SPACE_API_KEY"),
		OCRSpaceEndpoint:   getEnv("OCR_SPACE_ENDPOINT", "https://api.ocr.space/parse/image"),
		LLMBaseURL:         getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		LLMAPIKey:          os.Getenv("LLM_API_KEY"),
		LLMModel:           getEnv("LLM_MODEL", "llama3-8b-8192"),
		AnalysisCache:      strings.ToLower(getEnv("ANALYSIS_CACHE", "memory")),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379/0"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.RunMigrations, err = getBool("RUN_MIGRATIONS", true); err != nil {
		return nil, err
	}
	if cfg.MaxFileSize, err = getInt64("MAX_FILE_SIZE", 50*1024*1024); err != nil {
		return nil, err
	}
	rpm, err := getInt64("LLM_REQUESTS_PER_MINUTE", 30)
	if err != nil {
		return nil, err
	}
	cfg.LLMRequestsPerMinute = int(rpm)
	if cfg.ExtractionTimeout, err = getDuration("EXTRACTION_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.AnalysisTimeout, err = getDuration("ANALYSIS_TIMEOUT", 90*time.Second); err != nil {
		return nil, err
	}
	if cfg.AnalysisCacheTTL, err = getDuration("ANALYSIS_CACHE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("env variable DIRECT_URL is empty")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("env variable JWT_SECRET is empty")
	}
	switch c.StorageBackend {
	case "disk":
	case "s3":
		if c.SupabaseBucketName == "" || c.SupabaseEndpoint == "" {
			return fmt.Errorf("s3 storage requires SUPABASE_BUCKET and SUPABASE_S3_ENDPOINT")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	switch c.AnalysisCache {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("unknown ANALYSIS_CACHE %q", c.AnalysisCache)
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive")
	}
	if c.LLMRequestsPerMinute <= 0 {
		return fmt.Errorf("LLM_REQUESTS_PER_MINUTE must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
