package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the dismissal service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	// LiveChannel prefixes the Redis channel and NATS subject used for live fan-out.
	LiveChannel string

	JWTSecret   string
	StaffTTL    time.Duration
	AdminCode   string
	SchoolName  string
	SchoolShort string
	MenuURL     string
	TimeZone    string
	Location    *time.Location
	SeedRoster  bool
	DeletionTTL time.Duration

	SubmitRateLimit  int
	SubmitRateWindow time.Duration

	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAISearchModel string

	LunchMemoryMB int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("DISMISSAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Hwayang Dismissal API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("live.channel", "dismissal:live")
	v.SetDefault("staff.token_ttl", "12h")
	v.SetDefault("school.name", "화양초등학교")
	v.SetDefault("school.short_name", "화양초")
	v.SetDefault("school.menu_url", "https://ys-hwayang.es.jne.kr/ys-hwayang_es/ad/fm/foodmenu/selectFoodMenuView.do?mi=155714")
	v.SetDefault("school.timezone", "Asia/Seoul")
	v.SetDefault("roster.seed", true)
	v.SetDefault("deletion.confirm_ttl", "2m")
	v.SetDefault("submit.rate_limit", 20)
	v.SetDefault("submit.rate_window", "1m")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.search_model", "gpt-4o-mini-search-preview")
	v.SetDefault("lunch.memory_mb", 8)

	staffTTL, err := parseDuration(v.GetString("staff.token_ttl"), 12*time.Hour)
	if err != nil {
		return Config{}, fmt.Errorf("invalid staff token ttl: %w", err)
	}

	deletionTTL, err := parseDuration(v.GetString("deletion.confirm_ttl"), 2*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid deletion confirm ttl: %w", err)
	}

	rateWindow, err := parseDuration(v.GetString("submit.rate_window"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid submit rate window: %w", err)
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		DatabaseURL:       v.GetString("database.url"),
		RedisURL:          v.GetString("redis.url"),
		NATSURL:           v.GetString("nats.url"),
		LiveChannel:       v.GetString("live.channel"),
		JWTSecret:         v.GetString("jwt.secret"),
		StaffTTL:          staffTTL,
		AdminCode:         strings.TrimSpace(v.GetString("admin.code")),
		SchoolName:        v.GetString("school.name"),
		SchoolShort:       v.GetString("school.short_name"),
		MenuURL:           v.GetString("school.menu_url"),
		TimeZone:          v.GetString("school.timezone"),
		SeedRoster:        v.GetBool("roster.seed"),
		DeletionTTL:       deletionTTL,
		SubmitRateLimit:   v.GetInt("submit.rate_limit"),
		SubmitRateWindow:  rateWindow,
		OpenAIAPIKey:      v.GetString("openai_api_key"),
		OpenAIModel:       v.GetString("openai.model"),
		OpenAISearchModel: v.GetString("openai.search_model"),
		LunchMemoryMB:     v.GetInt("lunch.memory_mb"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.AdminCode == "" {
		return Config{}, fmt.Errorf("admin code must be provided")
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return Config{}, fmt.Errorf("invalid school timezone %q: %w", cfg.TimeZone, err)
	}
	cfg.Location = loc

	if cfg.LunchMemoryMB <= 0 {
		cfg.LunchMemoryMB = 8
	}
	if cfg.SubmitRateLimit <= 0 {
		cfg.SubmitRateLimit = 20
	}

	return cfg, nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}
