// Package config provides the configuration schema, loader, and provider
// registry for the fieldscan capture service.
package config

// LogLevel controls log verbosity for the fieldscan server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// ScanMode selects the default recognition heuristic for the scan dialog.
type ScanMode string

const (
	ScanGeneralText ScanMode = "generalText"
	ScanErrorCode   ScanMode = "errorCode"
	ScanBarcode     ScanMode = "barcode"
)

// IsValid reports whether m is a recognised scan mode.
func (m ScanMode) IsValid() bool {
	switch m {
	case ScanGeneralText, ScanErrorCode, ScanBarcode:
		return true
	}
	return false
}

// Config is the root configuration structure for fieldscan.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Scan      ScanConfig      `yaml:"scan"`
	ScanLog   ScanLogConfig   `yaml:"scanlog"`
}

// ServerConfig holds network and logging settings for the fieldscan server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ProvidersConfig declares which provider implementation to use for each
// capability. Each field selects a named provider registered in the [Registry].
type ProvidersConfig struct {
	// STT is the primary transcription provider.
	STT ProviderEntry `yaml:"stt"`

	// STTFallback, when named, backs up the primary transcription provider
	// behind a circuit breaker.
	STTFallback ProviderEntry `yaml:"stt_fallback"`

	// TTS is the speech-synthesis provider.
	TTS ProviderEntry `yaml:"tts"`

	// OCR is the text-recognition engine.
	OCR ProviderEntry `yaml:"ocr"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "backend",
	// "openai", "tessd").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "whisper-1").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above.
	Options map[string]any `yaml:"options"`
}

// StringOption returns the named option as a string, or "" when absent or
// not a string.
func (p ProviderEntry) StringOption(key string) string {
	if v, ok := p.Options[key].(string); ok {
		return v
	}
	return ""
}

// ScanConfig tunes the capture pipeline.
type ScanConfig struct {
	// DefaultMode is the recognition heuristic applied when the scan request
	// does not name one. Defaults to errorCode.
	DefaultMode ScanMode `yaml:"default_mode"`

	// Codebook lists known equipment error codes used to fuzzily correct
	// recognized codes. Empty disables correction.
	Codebook []string `yaml:"codebook"`
}

// ScanLogConfig configures the scan journal.
type ScanLogConfig struct {
	// DatabaseURL is the PostgreSQL connection string. Empty disables the
	// journal.
	DatabaseURL string `yaml:"database_url"`
}
