package config

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tanklink/fieldscan/pkg/provider/stt"
	sttmock "github.com/tanklink/fieldscan/pkg/provider/stt/mock"
)

const validYAML = `
server:
  listen_addr: ":9090"
  log_level: debug
providers:
  stt:
    name: backend
    base_url: https://api.tanklink.example
  stt_fallback:
    name: openai
    api_key: sk-test
    model: whisper-1
  tts:
    name: backend
    base_url: https://api.tanklink.example
  ocr:
    name: tessd
    base_url: http://localhost:7000
    options:
      language: eng
scan:
  default_mode: errorCode
  codebook:
    - E101
    - E105
scanlog:
  database_url: ""
`

func TestLoadFromReaderValid(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Providers.STTFallback.Model != "whisper-1" {
		t.Errorf("fallback model = %q", cfg.Providers.STTFallback.Model)
	}
	if got := cfg.Providers.OCR.StringOption("language"); got != "eng" {
		t.Errorf("ocr language option = %q", got)
	}
	if len(cfg.Scan.Codebook) != 2 {
		t.Errorf("codebook = %v", cfg.Scan.Codebook)
	}
}

func TestLoadFromReaderDefaults(t *testing.T) {
	minimal := `
providers:
  stt: {name: backend}
  tts: {name: backend}
  ocr: {name: tessd}
`
	cfg, err := LoadFromReader(strings.NewReader(minimal))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("default ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != LogInfo {
		t.Errorf("default LogLevel = %q", cfg.Server.LogLevel)
	}
	if cfg.Scan.DefaultMode != ScanErrorCode {
		t.Errorf("default scan mode = %q", cfg.Scan.DefaultMode)
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	bad := `
providers:
  stt: {name: backend}
  tts: {name: backend}
  ocr: {name: tessd}
sever:
  listen_addr: ":8080"
`
	if _, err := LoadFromReader(strings.NewReader(bad)); err == nil {
		t.Fatal("misspelled top-level key should be rejected")
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{}
	cfg.Server.LogLevel = "verbose"
	cfg.Scan.DefaultMode = "qr"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate should fail")
	}
	msg := err.Error()
	for _, want := range []string{"log_level", "default_mode", "providers.stt.name", "providers.tts.name", "providers.ocr.name"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

func TestValidateTLSRequiresBothFiles(t *testing.T) {
	cfg := &Config{}
	cfg.Providers.STT.Name = "backend"
	cfg.Providers.TTS.Name = "backend"
	cfg.Providers.OCR.Name = "tessd"
	cfg.Server.TLS = &TLSConfig{CertFile: "cert.pem"}

	if err := Validate(cfg); err == nil {
		t.Fatal("TLS with missing key_file should fail validation")
	}
}

func TestRegistryCreateAndMiss(t *testing.T) {
	r := NewRegistry()
	r.RegisterSTT("mock", func(ProviderEntry) (stt.Transcriber, error) {
		return &sttmock.Transcriber{Result: "ok"}, nil
	})

	tr, err := r.CreateSTT(ProviderEntry{Name: "mock"})
	if err != nil {
		t.Fatalf("CreateSTT: %v", err)
	}
	if tr == nil {
		t.Fatal("CreateSTT returned nil provider")
	}

	if _, err := r.CreateSTT(ProviderEntry{Name: "nope"}); !errors.Is(err, ErrProviderNotRegistered) {
		t.Fatalf("err = %v, want ErrProviderNotRegistered", err)
	}
	if _, err := r.CreateTTS(ProviderEntry{Name: "nope"}); !errors.Is(err, ErrProviderNotRegistered) {
		t.Fatalf("err = %v, want ErrProviderNotRegistered", err)
	}
	if _, err := r.CreateOCR(ProviderEntry{Name: "nope"}); !errors.Is(err, ErrProviderNotRegistered) {
		t.Fatalf("err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestExampleConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "example.yaml"))
	if err != nil {
		t.Fatalf("Load example config: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Providers.STT.Name != "backend" || cfg.Providers.OCR.Name != "tessd" {
		t.Errorf("providers = %q/%q", cfg.Providers.STT.Name, cfg.Providers.OCR.Name)
	}
	if cfg.Scan.DefaultMode != ScanErrorCode {
		t.Errorf("default_mode = %q", cfg.Scan.DefaultMode)
	}
	if len(cfg.Scan.Codebook) == 0 {
		t.Error("example codebook is empty")
	}
}
