package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
)

// Config ...
type Config struct {
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	DB      string `yaml:"db_dsn"`
	Service struct {
		Host       string `yaml:"host"`
		PublicPort int    `yaml:"public_port"`
		AdminPort  int    `yaml:"admin_port"`
	} `yaml:"service"`
	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	// Liveness protocol: max silence before a peer is unreachable.
	// Env-only (PEER_TTL), yaml.v2 can't decode duration strings.
	PeerTTL time.Duration `yaml:"-"`
	// Sweeper: how long a SENT fire may wait for a confirmation (CONFIRM_WAIT).
	ConfirmWait time.Duration `yaml:"-"`
	// Sweeper tick interval (SWEEP_INTERVAL).
	SweepInterval time.Duration `yaml:"-"`

	// Internal fire queue between dispatcher and router.
	FireQueueMax int

	// Defaults applied when provisioning creates a user without explicit
	// risk settings.
	DefaultRiskPct       float64 `yaml:"risk_pct"`
	DefaultMaxConcurrent int     `yaml:"max_concurrent"`
	DefaultDailyDDLimit  float64       `yaml:"daily_dd_limit"`
	DefaultCooldown      time.Duration `yaml:"-"` // FIRE_COOLDOWN
	DefaultLot           float64       `yaml:"default_lot"`
}

func NewConfig() (*Config, error) {

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		log.Fatalf("Failed to open config file: %v", err)
	}

	defer func() {
		_ = file.Close()
	}()

	decoder := yaml.NewDecoder(file)
	config := Config{
		PeerTTL:       durationFromEnv("PEER_TTL", "120s"),
		ConfirmWait:   durationFromEnv("CONFIRM_WAIT", "5m"),
		SweepInterval: durationFromEnv("SWEEP_INTERVAL", "60s"),
		FireQueueMax:  intFromEnv("FIRE_QUEUE_MAX", 64),

		DefaultRiskPct:       floatFromEnv("RISK_PCT", 1.0),
		DefaultMaxConcurrent: intFromEnv("MAX_CONCURRENT_FIRES", 3),
		DefaultDailyDDLimit:  floatFromEnv("DAILY_DD_LIMIT", 200),
		DefaultCooldown:      durationFromEnv("FIRE_COOLDOWN", "30s"),
		DefaultLot:           floatFromEnv("DEFAULT_LOT", 0.01),
	}
	err = decoder.Decode(&config)
	if err != nil {
		log.Fatalf("Failed to decode config file: %v", err)
	}

	token := os.Getenv(tokenTelegramENV)
	if token != "" {
		config.Telegram.Token = token
	}

	dsn := os.Getenv(databaseDSN)
	if dsn != "" {
		config.DB = dsn
	}

	return &config, nil
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
