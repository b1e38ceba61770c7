package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Backend BackendConfig
	Polling PollingConfig
	Alerts  AlertsConfig
	Display DisplayConfig
	Storage StorageConfig
	Export  ExportConfig
}

type BackendConfig struct {
	BaseURL        string `toml:"base_url"`
	APIURL         string `toml:"api_url"`
	APIV1URL       string `toml:"api_v1_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type PollingConfig struct {
	AlertsIntervalSeconds    int `toml:"alerts_interval_seconds"`
	DashboardIntervalSeconds int `toml:"dashboard_interval_seconds"`
	HistoryLimit             int `toml:"history_limit"`
	DashboardHistoryLimit    int `toml:"dashboard_history_limit"`
	DetailHistoryLimit       int `toml:"detail_history_limit"`
	RecordsPageSize          int `toml:"records_page_size"`
	UsersPageSize            int `toml:"users_page_size"`
}

type AlertsConfig struct {
	MaxToastsPerPoll int                `toml:"max_toasts_per_poll"`
	FeedSize         int                `toml:"feed_size"`
	ToastSeconds     int                `toml:"toast_seconds"`
	SeenCap          int                `toml:"seen_cap"`
	Notifications    NotificationConfig `toml:"notifications"`
}

type NotificationConfig struct {
	SystemNotify bool `toml:"system_notify"`
}

type DisplayConfig struct {
	RefreshRateMS int `toml:"refresh_rate_ms"`
}

type StorageConfig struct {
	Driver string `toml:"driver"`
	DBPath string `toml:"db_path"`
	DSN    string `toml:"dsn"`
}

type ExportConfig struct {
	OTLPEndpoint  string   `toml:"otlp_endpoint"`
	KafkaBrokers  []string `toml:"kafka_brokers"`
	KafkaTopic    string   `toml:"kafka_topic"`
	KafkaEncoding string   `toml:"kafka_encoding"` // "json" or "otlp"
}

// Timeout returns the per-request backend timeout.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

func (p PollingConfig) AlertsInterval() time.Duration {
	return time.Duration(p.AlertsIntervalSeconds) * time.Second
}

func (p PollingConfig) DashboardInterval() time.Duration {
	return time.Duration(p.DashboardIntervalSeconds) * time.Second
}

func (a AlertsConfig) ToastDuration() time.Duration {
	return time.Duration(a.ToastSeconds) * time.Second
}

func (d DisplayConfig) RefreshRate() time.Duration {
	return time.Duration(d.RefreshRateMS) * time.Millisecond
}

type LoadResult struct {
	Config   Config
	Warnings []string
}

var knownTopLevel = map[string]bool{
	"backend": true,
	"polling": true,
	"alerts":  true,
	"display": true,
	"storage": true,
	"export":  true,
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "mixwatch", "config.toml")
}

func Load() (*LoadResult, error) {
	return LoadFrom(defaultConfigPath())
}

func LoadFrom(path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &LoadResult{Config: DefaultConfig()}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	result, err := decode(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := validate(&result.Config); err != nil {
		return nil, err
	}
	return result, nil
}

func LoadFromString(data string) (*LoadResult, error) {
	if data == "" {
		return &LoadResult{Config: DefaultConfig()}, nil
	}

	result, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := validate(&result.Config); err != nil {
		return nil, err
	}
	return result, nil
}

// decode overlays the keys present in data onto the defaults and collects
// warnings for unknown top-level keys.
func decode(data string) (*LoadResult, error) {
	result := &LoadResult{Config: DefaultConfig()}

	var raw map[string]any
	if _, err := toml.Decode(data, &raw); err != nil {
		return nil, err
	}
	for key := range raw {
		if !knownTopLevel[key] {
			result.Warnings = append(result.Warnings, fmt.Sprintf("unknown config key: %q", key))
		}
	}

	var tf tomlFile
	if _, err := toml.Decode(data, &tf); err != nil {
		return nil, err
	}
	mergeFromRaw(&result.Config, &tf, raw)
	return result, nil
}

type tomlFile struct {
	Backend *BackendConfig `toml:"backend"`
	Polling *PollingConfig `toml:"polling"`
	Alerts  *AlertsConfig  `toml:"alerts"`
	Display *DisplayConfig `toml:"display"`
	Storage *StorageConfig `toml:"storage"`
	Export  *ExportConfig  `toml:"export"`
}

func mergeFromRaw(cfg *Config, tf *tomlFile, raw map[string]any) {
	if tf.Backend != nil {
		if section, ok := rawSection(raw, "backend"); ok {
			if _, exists := section["base_url"]; exists {
				cfg.Backend.BaseURL = tf.Backend.BaseURL
			}
			if _, exists := section["api_url"]; exists {
				cfg.Backend.APIURL = tf.Backend.APIURL
			}
			if _, exists := section["api_v1_url"]; exists {
				cfg.Backend.APIV1URL = tf.Backend.APIV1URL
			}
			if _, exists := section["timeout_seconds"]; exists {
				cfg.Backend.TimeoutSeconds = tf.Backend.TimeoutSeconds
			}
		}
	}
	if tf.Polling != nil {
		if section, ok := rawSection(raw, "polling"); ok {
			if _, exists := section["alerts_interval_seconds"]; exists {
				cfg.Polling.AlertsIntervalSeconds = tf.Polling.AlertsIntervalSeconds
			}
			if _, exists := section["dashboard_interval_seconds"]; exists {
				cfg.Polling.DashboardIntervalSeconds = tf.Polling.DashboardIntervalSeconds
			}
			if _, exists := section["history_limit"]; exists {
				cfg.Polling.HistoryLimit = tf.Polling.HistoryLimit
			}
			if _, exists := section["dashboard_history_limit"]; exists {
				cfg.Polling.DashboardHistoryLimit = tf.Polling.DashboardHistoryLimit
			}
			if _, exists := section["detail_history_limit"]; exists {
				cfg.Polling.DetailHistoryLimit = tf.Polling.DetailHistoryLimit
			}
			if _, exists := section["records_page_size"]; exists {
				cfg.Polling.RecordsPageSize = tf.Polling.RecordsPageSize
			}
			if _, exists := section["users_page_size"]; exists {
				cfg.Polling.UsersPageSize = tf.Polling.UsersPageSize
			}
		}
	}
	if tf.Alerts != nil {
		if section, ok := rawSection(raw, "alerts"); ok {
			if _, exists := section["max_toasts_per_poll"]; exists {
				cfg.Alerts.MaxToastsPerPoll = tf.Alerts.MaxToastsPerPoll
			}
			if _, exists := section["feed_size"]; exists {
				cfg.Alerts.FeedSize = tf.Alerts.FeedSize
			}
			if _, exists := section["toast_seconds"]; exists {
				cfg.Alerts.ToastSeconds = tf.Alerts.ToastSeconds
			}
			if _, exists := section["seen_cap"]; exists {
				cfg.Alerts.SeenCap = tf.Alerts.SeenCap
			}
			if _, exists := section["notifications"]; exists {
				cfg.Alerts.Notifications = tf.Alerts.Notifications
			}
		}
	}
	if tf.Display != nil {
		if section, ok := rawSection(raw, "display"); ok {
			if _, exists := section["refresh_rate_ms"]; exists {
				cfg.Display.RefreshRateMS = tf.Display.RefreshRateMS
			}
		}
	}
	if tf.Storage != nil {
		if section, ok := rawSection(raw, "storage"); ok {
			if _, exists := section["driver"]; exists {
				cfg.Storage.Driver = tf.Storage.Driver
			}
			if _, exists := section["db_path"]; exists {
				cfg.Storage.DBPath = tf.Storage.DBPath
			}
			if _, exists := section["dsn"]; exists {
				cfg.Storage.DSN = tf.Storage.DSN
			}
		}
	}
	if tf.Export != nil {
		if section, ok := rawSection(raw, "export"); ok {
			if _, exists := section["otlp_endpoint"]; exists {
				cfg.Export.OTLPEndpoint = tf.Export.OTLPEndpoint
			}
			if _, exists := section["kafka_brokers"]; exists {
				cfg.Export.KafkaBrokers = tf.Export.KafkaBrokers
			}
			if _, exists := section["kafka_topic"]; exists {
				cfg.Export.KafkaTopic = tf.Export.KafkaTopic
			}
			if _, exists := section["kafka_encoding"]; exists {
				cfg.Export.KafkaEncoding = tf.Export.KafkaEncoding
			}
		}
	}
}

func rawSection(raw map[string]any, key string) (map[string]any, bool) {
	v, ok := raw[key]
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

func validate(cfg *Config) error {
	var errs []string

	for _, u := range []struct {
		key, value string
	}{
		{"base_url", cfg.Backend.BaseURL},
		{"api_url", cfg.Backend.APIURL},
		{"api_v1_url", cfg.Backend.APIV1URL},
	} {
		if err := validateURL(u.value); err != nil {
			errs = append(errs, fmt.Sprintf("backend %s %v", u.key, err))
		}
	}
	if cfg.Backend.TimeoutSeconds < 1 {
		errs = append(errs, fmt.Sprintf("backend timeout_seconds must be positive, got %d", cfg.Backend.TimeoutSeconds))
	}

	if cfg.Polling.AlertsIntervalSeconds < 1 {
		errs = append(errs, fmt.Sprintf("alerts_interval_seconds must be positive, got %d", cfg.Polling.AlertsIntervalSeconds))
	}
	if cfg.Polling.DashboardIntervalSeconds < 1 {
		errs = append(errs, fmt.Sprintf("dashboard_interval_seconds must be positive, got %d", cfg.Polling.DashboardIntervalSeconds))
	}
	if cfg.Polling.HistoryLimit < 1 {
		errs = append(errs, fmt.Sprintf("history_limit must be positive, got %d", cfg.Polling.HistoryLimit))
	}
	if cfg.Polling.DashboardHistoryLimit < 1 {
		errs = append(errs, fmt.Sprintf("dashboard_history_limit must be positive, got %d", cfg.Polling.DashboardHistoryLimit))
	}
	if cfg.Polling.DetailHistoryLimit < 1 {
		errs = append(errs, fmt.Sprintf("detail_history_limit must be positive, got %d", cfg.Polling.DetailHistoryLimit))
	}
	if cfg.Polling.RecordsPageSize < 1 {
		errs = append(errs, fmt.Sprintf("records_page_size must be positive, got %d", cfg.Polling.RecordsPageSize))
	}
	if cfg.Polling.UsersPageSize < 1 {
		errs = append(errs, fmt.Sprintf("users_page_size must be positive, got %d", cfg.Polling.UsersPageSize))
	}

	if cfg.Alerts.MaxToastsPerPoll < 1 {
		errs = append(errs, fmt.Sprintf("max_toasts_per_poll must be positive, got %d", cfg.Alerts.MaxToastsPerPoll))
	}
	if cfg.Alerts.FeedSize < 1 {
		errs = append(errs, fmt.Sprintf("feed_size must be positive, got %d", cfg.Alerts.FeedSize))
	}
	if cfg.Alerts.ToastSeconds < 1 {
		errs = append(errs, fmt.Sprintf("toast_seconds must be positive, got %d", cfg.Alerts.ToastSeconds))
	}
	if cfg.Alerts.SeenCap < 1 {
		errs = append(errs, fmt.Sprintf("seen_cap must be positive, got %d", cfg.Alerts.SeenCap))
	}

	if cfg.Display.RefreshRateMS < 1 {
		errs = append(errs, fmt.Sprintf("refresh_rate_ms must be positive, got %d", cfg.Display.RefreshRateMS))
	}

	switch strings.ToLower(cfg.Storage.Driver) {
	case "", "sqlite", "memory":
	case "postgres", "postgresql":
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			errs = append(errs, "storage dsn is required for the postgres driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage driver must be sqlite, postgres or memory, got %q", cfg.Storage.Driver))
	}

	if len(cfg.Export.KafkaBrokers) > 0 && strings.TrimSpace(cfg.Export.KafkaTopic) == "" {
		errs = append(errs, "export kafka_topic is required when kafka_brokers is set")
	}
	switch cfg.Export.KafkaEncoding {
	case "", "json", "otlp":
	default:
		errs = append(errs, fmt.Sprintf("export kafka_encoding must be json or otlp, got %q", cfg.Export.KafkaEncoding))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation error: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("is not a valid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must be an http or https URL, got %q", raw)
	}
	return nil
}
