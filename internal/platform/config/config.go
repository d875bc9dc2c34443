package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config reúne la configuración del proceso. Las claves son los nombres de
// env (PORT, DB_DSN, ...); un archivo YAML opcional usa las mismas claves en
// minúscula.
type Config struct {
	Port      string
	DBDSN     string
	LogLevel  string
	LogFormat string
	AppName   string

	Auth         AuthConfig
	Redis        RedisConfig
	Interactions InteractionsConfig
	Conflicts    ConflictsConfig
}

// AuthConfig vacío => modo dev (header X-Debug-User-ID).
type AuthConfig struct {
	BaseURL string
	APIKey  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type InteractionsConfig struct {
	BaseURL    string
	APIKey     string
	RatePerSec float64
	CacheTTL   time.Duration
	Timeout    time.Duration
	// Static: pares "medA:medB[:severity]" separados por coma (modo dev).
	Static []StaticPair
}

type StaticPair struct {
	A, B     string
	Severity string
}

type ConflictsConfig struct {
	WindowDays int
	MinGap     time.Duration
	SafetyGap  time.Duration
	Workers    int
}

var keys = []string{
	"port", "db_dsn", "log_level", "log_format", "app_name",
	"auth_base_url", "auth_api_key",
	"redis_addr", "redis_password", "redis_db",
	"interactions_base_url", "interactions_api_key", "interactions_rate_per_sec",
	"interactions_cache_ttl", "oracle_timeout", "static_interactions",
	"conflict_window_days", "conflict_min_gap_minutes", "conflict_safety_gap_minutes",
	"detector_workers",
}

// New arma un viper con defaults y env. file puede venir vacío.
func New(file string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("app_name", "medication-schedule")
	v.SetDefault("redis_db", 0)
	v.SetDefault("interactions_rate_per_sec", 5.0)
	v.SetDefault("interactions_cache_ttl", "24h")
	v.SetDefault("oracle_timeout", "2s")
	v.SetDefault("conflict_window_days", 7)
	v.SetDefault("conflict_min_gap_minutes", 60)
	v.SetDefault("conflict_safety_gap_minutes", 15)
	v.SetDefault("detector_workers", 4)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	// AutomaticEnv solo resuelve claves conocidas por Get; Unmarshal necesita BindEnv.
	for _, k := range keys {
		if err := v.BindEnv(k, strings.ToUpper(k)); err != nil {
			return nil, err
		}
	}

	if strings.TrimSpace(file) != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	return v, nil
}

func Load(v *viper.Viper) (Config, error) {
	pairs, err := ParseStaticPairs(v.GetString("static_interactions"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:      strings.TrimPrefix(v.GetString("port"), ":"),
		DBDSN:     v.GetString("db_dsn"),
		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		AppName:   v.GetString("app_name"),
		Auth: AuthConfig{
			BaseURL: strings.TrimRight(v.GetString("auth_base_url"), "/"),
			APIKey:  v.GetString("auth_api_key"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis_addr"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
		},
		Interactions: InteractionsConfig{
			BaseURL:    strings.TrimRight(v.GetString("interactions_base_url"), "/"),
			APIKey:     v.GetString("interactions_api_key"),
			RatePerSec: v.GetFloat64("interactions_rate_per_sec"),
			CacheTTL:   v.GetDuration("interactions_cache_ttl"),
			Timeout:    v.GetDuration("oracle_timeout"),
			Static:     pairs,
		},
		Conflicts: ConflictsConfig{
			WindowDays: v.GetInt("conflict_window_days"),
			MinGap:     time.Duration(v.GetInt("conflict_min_gap_minutes")) * time.Minute,
			SafetyGap:  time.Duration(v.GetInt("conflict_safety_gap_minutes")) * time.Minute,
			Workers:    v.GetInt("detector_workers"),
		},
	}

	if cfg.Conflicts.WindowDays < 1 {
		return Config{}, fmt.Errorf("conflict_window_days must be >= 1, got %d", cfg.Conflicts.WindowDays)
	}
	if cfg.Conflicts.MinGap < 0 || cfg.Conflicts.SafetyGap < 0 {
		return Config{}, fmt.Errorf("conflict gaps must be >= 0")
	}
	return cfg, nil
}

// ParseStaticPairs lee "warfarin:aspirin:major, a:b".
func ParseStaticPairs(raw string) ([]StaticPair, error) {
	var out []StaticPair
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("static interaction %q: want medA:medB[:severity]", item)
		}
		p := StaticPair{A: strings.TrimSpace(parts[0]), B: strings.TrimSpace(parts[1])}
		if len(parts) == 3 {
			p.Severity = strings.TrimSpace(parts[2])
		}
		if p.A == "" || p.B == "" {
			return nil, fmt.Errorf("static interaction %q: empty medication", item)
		}
		out = append(out, p)
	}
	return out, nil
}
