package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	Workers               int    `mapstructure:"WORKERS"`
	ImportIntervalMinutes int    `mapstructure:"IMPORT_INTERVAL_MINUTES"`
	SameHospitalGapHours  int    `mapstructure:"SAME_HOSPITAL_GAP_HOURS"`
	OtherHospitalGapHours int    `mapstructure:"OTHER_HOSPITAL_GAP_HOURS"`
	MaxExtensionHours     int    `mapstructure:"MAX_PROCEDURE_EXTENSION_HOURS"`
	SentinelHospitalCode  string `mapstructure:"SENTINEL_HOSPITAL_CODE"`
	KnownDiagnosisTypes   string `mapstructure:"KNOWN_DIAGNOSIS_TYPES"`
	KnownProcedureTypes   string `mapstructure:"KNOWN_PROCEDURE_TYPES"`

	RegistryBaseURL        string `mapstructure:"REGISTRY_BASE_URL"`
	RegistryTimeoutSeconds int    `mapstructure:"REGISTRY_TIMEOUT_SECONDS"`

	SMTPHost        string `mapstructure:"SMTP_HOST"`
	SMTPPort        int    `mapstructure:"SMTP_PORT"`
	SMTPFrom        string `mapstructure:"SMTP_FROM"`
	AlertRecipients string `mapstructure:"ALERT_RECIPIENTS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("WORKERS", 4)
	v.SetDefault("IMPORT_INTERVAL_MINUTES", 60)
	v.SetDefault("SAME_HOSPITAL_GAP_HOURS", 4)
	v.SetDefault("OTHER_HOSPITAL_GAP_HOURS", 12)
	v.SetDefault("MAX_PROCEDURE_EXTENSION_HOURS", 24)
	v.SetDefault("SENTINEL_HOSPITAL_CODE", "3800")
	v.SetDefault("KNOWN_DIAGNOSIS_TYPES", "A,B,+,H,M,G,T")
	v.SetDefault("KNOWN_PROCEDURE_TYPES", "P,V,D,U")
	v.SetDefault("REGISTRY_TIMEOUT_SECONDS", 10)
	v.SetDefault("SMTP_PORT", 25)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("WORKERS")
	v.BindEnv("IMPORT_INTERVAL_MINUTES")
	v.BindEnv("SAME_HOSPITAL_GAP_HOURS")
	v.BindEnv("OTHER_HOSPITAL_GAP_HOURS")
	v.BindEnv("MAX_PROCEDURE_EXTENSION_HOURS")
	v.BindEnv("SENTINEL_HOSPITAL_CODE")
	v.BindEnv("KNOWN_DIAGNOSIS_TYPES")
	v.BindEnv("KNOWN_PROCEDURE_TYPES")
	v.BindEnv("REGISTRY_BASE_URL")
	v.BindEnv("REGISTRY_TIMEOUT_SECONDS")
	v.BindEnv("SMTP_HOST")
	v.BindEnv("SMTP_PORT")
	v.BindEnv("SMTP_FROM")
	v.BindEnv("ALERT_RECIPIENTS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the rule thresholds make sense before a run starts.
func (c *Config) Validate() error {
	if c.SameHospitalGapHours < 1 {
		return fmt.Errorf("SAME_HOSPITAL_GAP_HOURS must be at least 1, got %d", c.SameHospitalGapHours)
	}
	if c.OtherHospitalGapHours < c.SameHospitalGapHours {
		return fmt.Errorf("OTHER_HOSPITAL_GAP_HOURS (%d) must not be shorter than SAME_HOSPITAL_GAP_HOURS (%d)",
			c.OtherHospitalGapHours, c.SameHospitalGapHours)
	}
	if c.MaxExtensionHours < 1 {
		return fmt.Errorf("MAX_PROCEDURE_EXTENSION_HOURS must be at least 1, got %d", c.MaxExtensionHours)
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be at least 1, got %d", c.Workers)
	}
	if c.ImportIntervalMinutes < 1 {
		return fmt.Errorf("IMPORT_INTERVAL_MINUTES must be at least 1, got %d", c.ImportIntervalMinutes)
	}
	if c.SMTPHost != "" && c.SMTPFrom == "" {
		return fmt.Errorf("SMTP_FROM is required when SMTP_HOST is set")
	}
	return nil
}

// SameHospitalGap is the bridgeable gap between contacts within one hospital.
func (c *Config) SameHospitalGap() time.Duration {
	return time.Duration(c.SameHospitalGapHours) * time.Hour
}

// OtherHospitalGap is the bridgeable gap between contacts at different hospitals.
func (c *Config) OtherHospitalGap() time.Duration {
	return time.Duration(c.OtherHospitalGapHours) * time.Hour
}

// MaxExtension is how far a procedure may push a contact's end time.
func (c *Config) MaxExtension() time.Duration {
	return time.Duration(c.MaxExtensionHours) * time.Hour
}

// ImportInterval is the pause between scheduled import runs.
func (c *Config) ImportInterval() time.Duration {
	return time.Duration(c.ImportIntervalMinutes) * time.Minute
}

// RegistryTimeout bounds a single hospital registry lookup.
func (c *Config) RegistryTimeout() time.Duration {
	return time.Duration(c.RegistryTimeoutSeconds) * time.Second
}

// DiagnosisTypeSet returns the known diagnosis classification types.
func (c *Config) DiagnosisTypeSet() map[string]bool {
	return csvSet(c.KnownDiagnosisTypes)
}

// ProcedureTypeSet returns the known procedure classification types.
func (c *Config) ProcedureTypeSet() map[string]bool {
	return csvSet(c.KnownProcedureTypes)
}

// Recipients returns the alert mail recipients.
func (c *Config) Recipients() []string {
	if c.AlertRecipients == "" {
		return nil
	}
	var out []string
	for _, r := range strings.Split(c.AlertRecipients, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func csvSet(raw string) map[string]bool {
	set := make(map[string]bool)
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			set[s] = true
		}
	}
	return set
}
