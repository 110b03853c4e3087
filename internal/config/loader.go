package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt": {"backend", "openai"},
	"tts": {"backend", "backend-stream"},
	"ocr": {"tessd"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("stt", cfg.Providers.STTFallback.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("ocr", cfg.Providers.OCR.Name)

	// Required capabilities
	if cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt.name is required"))
	}
	if cfg.Providers.TTS.Name == "" {
		errs = append(errs, errors.New("providers.tts.name is required"))
	}
	if cfg.Providers.OCR.Name == "" {
		errs = append(errs, errors.New("providers.ocr.name is required"))
	}
	if cfg.Providers.STTFallback.Name == cfg.Providers.STT.Name && cfg.Providers.STTFallback.Name != "" {
		slog.Warn("stt_fallback names the same provider as stt; the fallback adds nothing")
	}

	// Scan
	if cfg.Scan.DefaultMode != "" && !cfg.Scan.DefaultMode.IsValid() {
		errs = append(errs, fmt.Errorf("scan.default_mode %q is invalid; valid values: generalText, errorCode, barcode", cfg.Scan.DefaultMode))
	}

	return errors.Join(errs...)
}

// validateProviderName warns when a provider name is set but unrecognised.
// Unknown names are not fatal: custom providers may be registered at startup.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	if !slices.Contains(ValidProviderNames[kind], name) {
		slog.Warn("unrecognised provider name", "kind", kind, "name", name)
	}
}

// applyDefaults fills zero values after validation passed.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Scan.DefaultMode == "" {
		cfg.Scan.DefaultMode = ScanErrorCode
	}
}
