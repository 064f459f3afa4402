package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Render    RenderConfig
	Tools     ToolsConfig
	Cleanup   CleanupConfig
}

type ServerConfig struct {
	Port        string
	Env         string
	LogLevel    string
	ServiceName string
	BodyLimitMB int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	RenderPerHour int // 0 disables the limiter
}

type RenderConfig struct {
	WorkDir           string
	SoundfontPath     string
	SampleRate        int
	MP3Quality        int
	Timeout           int // seconds, 0 = unbounded
	CleanupOnComplete bool
}

type ToolsConfig struct {
	Fluidsynth string
	FFmpeg     string
	FFprobe    string
}

type CleanupConfig struct {
	Enabled  bool
	Schedule string
	MaxAge   int // minutes
}

func Load() (*Config, error) {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	readSecret("REDIS_PASSWORD")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables
	v.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.env", "SERVER_ENV")
	_ = v.BindEnv("server.log_level", "LOG_LEVEL")
	_ = v.BindEnv("server.service_name", "SERVICE_NAME")
	_ = v.BindEnv("server.body_limit_mb", "BODY_LIMIT_MB")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("ratelimit.render_per_hour", "RATELIMIT_RENDER_PER_HOUR")
	_ = v.BindEnv("render.work_dir", "RENDER_WORK_DIR")
	_ = v.BindEnv("render.soundfont_path", "SOUNDFONT_PATH")
	_ = v.BindEnv("render.sample_rate", "RENDER_SAMPLE_RATE")
	_ = v.BindEnv("render.mp3_quality", "RENDER_MP3_QUALITY")
	_ = v.BindEnv("render.timeout", "RENDER_TIMEOUT")
	_ = v.BindEnv("render.cleanup_on_complete", "RENDER_CLEANUP_ON_COMPLETE")
	_ = v.BindEnv("tools.fluidsynth", "FLUIDSYNTH_BIN")
	_ = v.BindEnv("tools.ffmpeg", "FFMPEG_BIN")
	_ = v.BindEnv("tools.ffprobe", "FFPROBE_BIN")
	_ = v.BindEnv("cleanup.enabled", "CLEANUP_ENABLED")
	_ = v.BindEnv("cleanup.schedule", "CLEANUP_SCHEDULE")
	_ = v.BindEnv("cleanup.max_age", "CLEANUP_MAX_AGE")

	// Defaults
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.service_name", "midi-render-api")
	v.SetDefault("server.body_limit_mb", 50)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("ratelimit.render_per_hour", 0)

	// Render defaults
	v.SetDefault("render.work_dir", os.TempDir())
	v.SetDefault("render.soundfont_path", "/app/soundfont.sf2")
	v.SetDefault("render.sample_rate", 44100)
	v.SetDefault("render.mp3_quality", 4)
	v.SetDefault("render.timeout", 0)
	v.SetDefault("render.cleanup_on_complete", false)

	// External tools, resolved through PATH unless absolute
	v.SetDefault("tools.fluidsynth", "fluidsynth")
	v.SetDefault("tools.ffmpeg", "ffmpeg")
	v.SetDefault("tools.ffprobe", "ffprobe")

	// Housekeeping defaults
	v.SetDefault("cleanup.enabled", false)
	v.SetDefault("cleanup.schedule", "@every 30m")
	v.SetDefault("cleanup.max_age", 60)

	// Try to read config file (optional)
	_ = v.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:        v.GetString("server.port"),
			Env:         v.GetString("server.env"),
			LogLevel:    v.GetString("server.log_level"),
			ServiceName: v.GetString("server.service_name"),
			BodyLimitMB: v.GetInt("server.body_limit_mb"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			RenderPerHour: v.GetInt("ratelimit.render_per_hour"),
		},
		Render: RenderConfig{
			WorkDir:           v.GetString("render.work_dir"),
			SoundfontPath:     v.GetString("render.soundfont_path"),
			SampleRate:        v.GetInt("render.sample_rate"),
			MP3Quality:        v.GetInt("render.mp3_quality"),
			Timeout:           v.GetInt("render.timeout"),
			CleanupOnComplete: v.GetBool("render.cleanup_on_complete"),
		},
		Tools: ToolsConfig{
			Fluidsynth: v.GetString("tools.fluidsynth"),
			FFmpeg:     v.GetString("tools.ffmpeg"),
			FFprobe:    v.GetString("tools.ffprobe"),
		},
		Cleanup: CleanupConfig{
			Enabled:  v.GetBool("cleanup.enabled"),
			Schedule: v.GetString("cleanup.schedule"),
			MaxAge:   v.GetInt("cleanup.max_age"),
		},
	}

	return cfg, nil
}
