package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the bridge.
type Config struct {
	App         AppConfig
	Logger      LoggerConfig
	ConnectWise ConnectWiseConfig
	PagerDuty   PagerDutyConfig
	Sync        SyncConfig
	Lock        LockConfig
	Redis       RedisConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// ConnectWiseConfig holds ticketing API connection values.
type ConnectWiseConfig struct {
	SiteURL    string
	CompanyID  string
	PublicKey  string
	PrivateKey string
	ClientID   string
	TimeoutSec int
}

// PagerDutyService describes one paging service the bridge routes into,
// together with the webhook signing secret that service uses and the
// ticketing board whose tickets it receives.
type PagerDutyService struct {
	ID            string
	Name          string
	WebhookSecret string
	Board         string
}

// PagerDutyConfig holds alerting API connection values.
type PagerDutyConfig struct {
	APIURL     string
	AuthToken  string
	FromEmail  string
	TimeoutSec int
	Services   []PagerDutyService
	// PriorityIDs maps bridge priority codes (P1..P5) to the alerting
	// platform's priority reference IDs.
	PriorityIDs map[string]string
}

// PriorityAdmission selects which ticket priorities may open incidents.
type PriorityAdmission string

const (
	// AdmitUrgentOnly creates incidents for P1-P3 tickets only.
	AdmitUrgentOnly PriorityAdmission = "strict"
	// AdmitAll creates incidents for every priority down to P5.
	AdmitAll PriorityAdmission = "all"
)

// SyncConfig carries the orchestration policy switches and delays.
type SyncConfig struct {
	KeywordGateEnabled bool
	PriorityAdmission  PriorityAdmission
	RecheckDelay       time.Duration
	GuardWaitDelay     time.Duration
}

// LockConfig selects the dedup guard backend.
type LockConfig struct {
	Backend    string
	TTLSeconds int
}

// RedisConfig holds Redis connection values for the redis lock backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	admission := PriorityAdmission(strings.ToLower(getEnv("SYNC_PRIORITY_ADMISSION", string(AdmitUrgentOnly))))
	if admission != AdmitUrgentOnly && admission != AdmitAll {
		return nil, fmt.Errorf("invalid SYNC_PRIORITY_ADMISSION: %q", admission)
	}

	services, err := loadServices()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "incident-bridge"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		ConnectWise: ConnectWiseConfig{
			SiteURL:    getEnv("CW_SITE_URL", ""),
			CompanyID:  getEnv("CW_COMPANY_ID", ""),
			PublicKey:  getEnv("CW_PUBLIC_KEY", ""),
			PrivateKey: os.Getenv("CW_PRIVATE_KEY"),
			ClientID:   getEnv("CW_CLIENT_ID", ""),
			TimeoutSec: getEnvAsInt("CW_TIMEOUT_SECONDS", 15),
		},
		PagerDuty: PagerDutyConfig{
			APIURL:     getEnv("PD_API_URL", "https://api.pagerduty.com"),
			AuthToken:  os.Getenv("PD_AUTH_TOKEN"),
			FromEmail:  getEnv("PD_FROM_EMAIL", ""),
			TimeoutSec: getEnvAsInt("PD_TIMEOUT_SECONDS", 15),
			Services:   services,
			PriorityIDs: map[string]string{
				"P1": getEnv("PD_PRIORITY_P1_ID", ""),
				"P2": getEnv("PD_PRIORITY_P2_ID", ""),
				"P3": getEnv("PD_PRIORITY_P3_ID", ""),
				"P4": getEnv("PD_PRIORITY_P4_ID", ""),
				"P5": getEnv("PD_PRIORITY_P5_ID", ""),
			},
		},
		Sync: SyncConfig{
			KeywordGateEnabled: getEnvAsBool("SYNC_KEYWORD_GATE_ENABLED", true),
			PriorityAdmission:  admission,
			RecheckDelay:       time.Duration(getEnvAsInt("SYNC_RECHECK_DELAY_MS", 2000)) * time.Millisecond,
			GuardWaitDelay:     time.Duration(getEnvAsInt("SYNC_GUARD_WAIT_MS", 5000)) * time.Millisecond,
		},
		Lock: LockConfig{
			Backend:    getEnv("LOCK_BACKEND", "memory"),
			TTLSeconds: getEnvAsInt("LOCK_TTL_SECONDS", 60),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
	}

	return cfg, nil
}

// loadServices reads the routed paging services from PD_SERVICE_{1..3}_*.
// A slot without an ID is treated as unconfigured and skipped.
func loadServices() ([]PagerDutyService, error) {
	var services []PagerDutyService
	for i := 1; i <= 3; i++ {
		prefix := fmt.Sprintf("PD_SERVICE_%d_", i)
		svc := PagerDutyService{
			ID:            os.Getenv(prefix + "ID"),
			Name:          os.Getenv(prefix + "NAME"),
			WebhookSecret: os.Getenv(prefix + "SECRET"),
			Board:         os.Getenv(prefix + "BOARD"),
		}
		if svc.ID == "" {
			continue
		}
		if svc.Board == "" {
			return nil, fmt.Errorf("%sBOARD required when %sID is set", prefix, prefix)
		}
		services = append(services, svc)
	}
	return services, nil
}

// BoardRoutes returns the board name to service ID routing table.
func (p PagerDutyConfig) BoardRoutes() map[string]string {
	routes := make(map[string]string, len(p.Services))
	for _, svc := range p.Services {
		routes[svc.Board] = svc.ID
	}
	return routes
}

// PriorityCodes returns the inverse of PriorityIDs: alerting priority
// reference ID to bridge priority code.
func (p PagerDutyConfig) PriorityCodes() map[string]string {
	codes := make(map[string]string, len(p.PriorityIDs))
	for code, id := range p.PriorityIDs {
		if id != "" {
			codes[id] = code
		}
	}
	return codes
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the ticketing API client timeout.
func (c ConnectWiseConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Timeout returns the alerting API client timeout.
func (p PagerDutyConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSec) * time.Second
}

// TTL returns the redis lock expiry.
func (l LockConfig) TTL() time.Duration {
	return time.Duration(l.TTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
