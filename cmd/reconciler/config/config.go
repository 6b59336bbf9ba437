// Package config loads the CLI configuration from file, environment and
// flags through viper and exposes it as a typed struct.
package config

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"invoice-ledger-reconciler/internal/parsers"
)

// Config is the full CLI configuration.
type Config struct {
	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`

	// Document parsing
	HeaderMarker       string  `mapstructure:"header_marker"`
	CreditNoteMarker   string  `mapstructure:"credit_note_marker"`
	ReferencePrefix    string  `mapstructure:"reference_prefix"`
	RegistrationPrefix string  `mapstructure:"registration_prefix"`
	VATRate            float64 `mapstructure:"vat_rate"`
	PageConcurrency    int     `mapstructure:"page_concurrency"`

	// Reporting
	OutputFormat      string `mapstructure:"output_format"`
	IncludeCandidates bool   `mapstructure:"include_candidates"`
	ShowMatchedRows   bool   `mapstructure:"show_matched_rows"`
}

// SetDefaults registers every setting's default on the viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	v.SetDefault("header_marker", "Artículo")
	v.SetDefault("credit_note_marker", "ABONO")
	v.SetDefault("reference_prefix", "ALBARAN")
	v.SetDefault("registration_prefix", "A:")
	v.SetDefault("vat_rate", 0.21)
	v.SetDefault("page_concurrency", 1)

	v.SetDefault("output_format", "console")
	v.SetDefault("include_candidates", true)
	v.SetDefault("show_matched_rows", true)
}

// Load builds a Config from the viper instance.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.HeaderMarker == "" {
		return fmt.Errorf("header_marker cannot be empty")
	}
	if c.VATRate < 0 || c.VATRate >= 1 {
		return fmt.Errorf("vat_rate must be in [0, 1), got %g", c.VATRate)
	}
	if c.PageConcurrency < 1 {
		return fmt.Errorf("page_concurrency must be at least 1, got %d", c.PageConcurrency)
	}

	switch c.OutputFormat {
	case "console", "json", "csv":
	default:
		return fmt.Errorf("output_format must be console, json or csv, got %q", c.OutputFormat)
	}
	return nil
}

// ParserConfig converts the document-parsing settings to the parsers
// package's config type.
func (c *Config) ParserConfig() *parsers.Config {
	return &parsers.Config{
		HeaderMarker:       c.HeaderMarker,
		CreditNoteMarker:   c.CreditNoteMarker,
		ReferencePrefix:    c.ReferencePrefix,
		RegistrationPrefix: c.RegistrationPrefix,
		VATRate:            decimal.NewFromFloat(c.VATRate),
	}
}
