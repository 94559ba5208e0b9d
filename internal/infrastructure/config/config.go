package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/wooms/storesync/internal/domain/shared"
)

// Config holds all application configuration
type Config struct {
	ERP        ERPConfig
	Storefront StorefrontConfig
	Sync       SyncConfig
	Orders     OrdersConfig
	Log        LogConfig
}

// ERPConfig holds the system-of-record API settings
type ERPConfig struct {
	BaseURL           string
	Login             string
	Password          string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// StorefrontConfig holds the storefront API settings
type StorefrontConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Timeout        time.Duration
	PerPage        int
	ReadOnly       bool
}

// SyncConfig holds the reconciliation settings
type SyncConfig struct {
	// CustomerGroupTag selects the group whose discounts price the
	// storefront and tags created counterparties
	CustomerGroupTag string
	// PhoneRegion is the default region hint for phone parsing
	PhoneRegion string
	// SaveFile is the path of the local blacklist file
	SaveFile string
}

// OrdersConfig holds the order ingestion mappings
type OrdersConfig struct {
	// StoreName is the fulfilling warehouse, matched by display name
	StoreName string
	// PaymentStates maps payment-method codes to ERP order state names
	PaymentStates map[string]string
	// PickupProjects maps pickup-store hints to ERP project names
	PickupProjects map[string]string
	// ShippingServices maps shipping method titles to ERP service item ids
	ShippingServices map[string]string
	// TaskAssigneeID is the employee follow-up tasks are assigned to
	TaskAssigneeID string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// Load loads configuration from a YAML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with STORESYNC_ prefix (e.g. STORESYNC_ERP_PASSWORD)
// 2. storesync.yaml (or the explicit path when non-empty)
// 3. Built-in defaults
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("storesync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/storesync")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("STORESYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		ERP: ERPConfig{
			BaseURL:           v.GetString("erp.base_url"),
			Login:             v.GetString("erp.login"),
			Password:          v.GetString("erp.password"),
			Timeout:           v.GetDuration("erp.timeout"),
			RequestsPerSecond: v.GetFloat64("erp.requests_per_second"),
		},
		Storefront: StorefrontConfig{
			BaseURL:        v.GetString("storefront.base_url"),
			ConsumerKey:    v.GetString("storefront.consumer_key"),
			ConsumerSecret: v.GetString("storefront.consumer_secret"),
			Timeout:        v.GetDuration("storefront.timeout"),
			PerPage:        v.GetInt("storefront.per_page"),
			ReadOnly:       v.GetBool("storefront.read_only"),
		},
		Sync: SyncConfig{
			CustomerGroupTag: v.GetString("sync.customer_group_tag"),
			PhoneRegion:      v.GetString("sync.phone_region"),
			SaveFile:         v.GetString("sync.save_file"),
		},
		Orders: OrdersConfig{
			StoreName:        v.GetString("orders.store_name"),
			PaymentStates:    v.GetStringMapString("orders.payment_states"),
			PickupProjects:   v.GetStringMapString("orders.pickup_projects"),
			ShippingServices: v.GetStringMapString("orders.shipping_services"),
			TaskAssigneeID:   v.GetString("orders.task_assignee_id"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.ERP.Timeout == 0 {
		cfg.ERP.Timeout = 30 * time.Second
	}
	if cfg.ERP.RequestsPerSecond == 0 {
		cfg.ERP.RequestsPerSecond = 5
	}
	if cfg.Storefront.Timeout == 0 {
		cfg.Storefront.Timeout = 30 * time.Second
	}
	if cfg.Storefront.PerPage == 0 {
		cfg.Storefront.PerPage = 50
	}
	if cfg.Sync.PhoneRegion == "" {
		cfg.Sync.PhoneRegion = "RU"
	}
	if cfg.Sync.SaveFile == "" {
		cfg.Sync.SaveFile = "saves.json"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.ERP.BaseURL == "" {
		return shared.NewConfigurationError("erp.base_url", "required")
	}
	if c.ERP.Login == "" {
		return shared.NewConfigurationError("erp.login", "required")
	}
	if c.ERP.Password == "" {
		return shared.NewConfigurationError("erp.password", "required")
	}
	if c.Storefront.BaseURL == "" {
		return shared.NewConfigurationError("storefront.base_url", "required")
	}
	if c.Storefront.ConsumerKey == "" || c.Storefront.ConsumerSecret == "" {
		return shared.NewConfigurationError("storefront", "consumer key and secret are required")
	}
	if c.Sync.CustomerGroupTag == "" {
		return shared.NewConfigurationError("sync.customer_group_tag", "required")
	}
	if c.Orders.StoreName == "" {
		return shared.NewConfigurationError("orders.store_name", "required")
	}
	if c.ERP.RequestsPerSecond <= 0 {
		return shared.NewConfigurationError("erp.requests_per_second", "must be positive")
	}
	if c.Storefront.PerPage <= 0 || c.Storefront.PerPage > 100 {
		return shared.NewConfigurationError("storefront.per_page", "must be between 1 and 100")
	}
	return nil
}
