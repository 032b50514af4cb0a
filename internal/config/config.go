package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	Storage    StorageConfig
	Separation SeparationConfig
	Analysis   AnalysisConfig
	Limits     LimitsConfig
	Retention  RetentionConfig
	Worker     WorkerConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	ResultsDir string
}

type SeparationConfig struct {
	ServiceURL     string
	Timeout        int // seconds
	SegmentSeconds float64
	OverlapSeconds float64
}

type AnalysisConfig struct {
	ServiceURL string
	Timeout    int // seconds
}

type LimitsConfig struct {
	MaxUploadMB     int
	SeparatePerHour int
	AnalyzePerMin   int
}

type RetentionConfig struct {
	TTLMinutes           int
	SweepIntervalSeconds int
}

type WorkerConfig struct {
	Concurrency int
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("storage.results_dir", "RESULTS_DIR")
	_ = viper.BindEnv("separation.service_url", "SEPARATION_SERVICE_URL")
	_ = viper.BindEnv("separation.timeout", "SEPARATION_SERVICE_TIMEOUT")
	_ = viper.BindEnv("separation.segment_seconds", "SEPARATION_SEGMENT_SECONDS")
	_ = viper.BindEnv("separation.overlap_seconds", "SEPARATION_OVERLAP_SECONDS")
	_ = viper.BindEnv("analysis.service_url", "ANALYSIS_SERVICE_URL")
	_ = viper.BindEnv("analysis.timeout", "ANALYSIS_SERVICE_TIMEOUT")
	_ = viper.BindEnv("limits.max_upload_mb", "MAX_UPLOAD_MB")
	_ = viper.BindEnv("limits.separate_per_hour", "SEPARATE_PER_HOUR")
	_ = viper.BindEnv("limits.analyze_per_min", "ANALYZE_PER_MIN")
	_ = viper.BindEnv("retention.ttl_minutes", "JOB_TTL_MINUTES")
	_ = viper.BindEnv("retention.sweep_interval_seconds", "REAPER_INTERVAL_SECONDS")
	_ = viper.BindEnv("worker.concurrency", "WORKER_CONCURRENCY")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("storage.results_dir", "./results")

	// Separation defaults mirror the HDemucs chunking setup:
	// 10 second windows with 1 second of overlap.
	viper.SetDefault("separation.service_url", "http://localhost:8084")
	viper.SetDefault("separation.timeout", 120)
	viper.SetDefault("separation.segment_seconds", 10.0)
	viper.SetDefault("separation.overlap_seconds", 1.0)

	viper.SetDefault("analysis.service_url", "http://localhost:8085")
	viper.SetDefault("analysis.timeout", 60)

	viper.SetDefault("limits.max_upload_mb", 50)
	viper.SetDefault("limits.separate_per_hour", 10)
	viper.SetDefault("limits.analyze_per_min", 30)

	viper.SetDefault("retention.ttl_minutes", 30)
	viper.SetDefault("retention.sweep_interval_seconds", 300)

	viper.SetDefault("worker.concurrency", 4)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Storage: StorageConfig{
			ResultsDir: viper.GetString("storage.results_dir"),
		},
		Separation: SeparationConfig{
			ServiceURL:     viper.GetString("separation.service_url"),
			Timeout:        viper.GetInt("separation.timeout"),
			SegmentSeconds: viper.GetFloat64("separation.segment_seconds"),
			OverlapSeconds: viper.GetFloat64("separation.overlap_seconds"),
		},
		Analysis: AnalysisConfig{
			ServiceURL: viper.GetString("analysis.service_url"),
			Timeout:    viper.GetInt("analysis.timeout"),
		},
		Limits: LimitsConfig{
			MaxUploadMB:     viper.GetInt("limits.max_upload_mb"),
			SeparatePerHour: viper.GetInt("limits.separate_per_hour"),
			AnalyzePerMin:   viper.GetInt("limits.analyze_per_min"),
		},
		Retention: RetentionConfig{
			TTLMinutes:           viper.GetInt("retention.ttl_minutes"),
			SweepIntervalSeconds: viper.GetInt("retention.sweep_interval_seconds"),
		},
		Worker: WorkerConfig{
			Concurrency: viper.GetInt("worker.concurrency"),
		},
	}

	return cfg, nil
}
