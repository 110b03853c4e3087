// Command fieldscan is the main entry point for the fieldscan voice and
// scan server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tanklink/fieldscan/internal/app"
	"github.com/tanklink/fieldscan/internal/config"
	"github.com/tanklink/fieldscan/internal/observe"
	"github.com/tanklink/fieldscan/internal/resilience"
	"github.com/tanklink/fieldscan/pkg/audio/nullout"
	"github.com/tanklink/fieldscan/pkg/media/filedev"
	"github.com/tanklink/fieldscan/pkg/provider/ocrengine"
	"github.com/tanklink/fieldscan/pkg/provider/ocrengine/tessd"
	"github.com/tanklink/fieldscan/pkg/provider/stt"
	"github.com/tanklink/fieldscan/pkg/provider/stt/httpstt"
	oaistt "github.com/tanklink/fieldscan/pkg/provider/stt/openai"
	"github.com/tanklink/fieldscan/pkg/provider/tts"
	"github.com/tanklink/fieldscan/pkg/provider/tts/httptts"
	"github.com/tanklink/fieldscan/pkg/provider/tts/wstts"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	framesDir := flag.String("frames-dir", "", "directory of still images served as the development camera")
	audioFile := flag.String("audio-file", "", "raw s16le PCM file replayed as the development microphone")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "fieldscan: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "fieldscan: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("fieldscan starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Telemetry ─────────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := buildProviders(cfg, reg, *framesDir, *audioFile)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the provider
// from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── STT ───────────────────────────────────────────────────────────────────

	// "backend" is the multipart upload endpoint of the companion backend.
	reg.RegisterSTT("backend", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		return httpstt.New(entry.BaseURL)
	})

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []oaistt.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaistt.WithBaseURL(entry.BaseURL))
		}
		return oaistt.New(entry.APIKey, entry.Model, opts...)
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("backend", func(entry config.ProviderEntry) (tts.Synthesizer, error) {
		return httptts.New(entry.BaseURL)
	})

	// "backend-stream" synthesizes over the backend's websocket endpoint and
	// assembles the chunk stream into one payload for playback.
	reg.RegisterTTS("backend-stream", func(entry config.ProviderEntry) (tts.Synthesizer, error) {
		var opts []wstts.Option
		if voice := entry.StringOption("voice"); voice != "" {
			opts = append(opts, wstts.WithVoice(voice))
		}
		c, err := wstts.New(entry.BaseURL, opts...)
		if err != nil {
			return nil, err
		}
		mimeType := entry.StringOption("mime_type")
		if mimeType == "" {
			mimeType = "audio/mpeg"
		}
		return tts.Collect(c, mimeType), nil
	})

	// ── OCR ───────────────────────────────────────────────────────────────────

	reg.RegisterOCR("tessd", func(entry config.ProviderEntry) (ocrengine.Engine, error) {
		var opts []tessd.Option
		if lang := entry.StringOption("language"); lang != "" {
			opts = append(opts, tessd.WithLanguage(lang))
		}
		return tessd.New(entry.BaseURL, opts...)
	})
}

// buildProviders instantiates every configured provider and the platform
// adapters. When a fallback transcription provider is named, the primary is
// wrapped in a circuit-breaking fallback chain.
func buildProviders(cfg *config.Config, reg *config.Registry, framesDir, audioFile string) (app.Providers, error) {
	var p app.Providers

	primary, err := reg.CreateSTT(cfg.Providers.STT)
	if err != nil {
		return p, fmt.Errorf("stt provider: %w", err)
	}
	p.STT = primary

	if fb := cfg.Providers.STTFallback; fb.Name != "" {
		secondary, err := reg.CreateSTT(fb)
		if err != nil {
			return p, fmt.Errorf("stt fallback provider: %w", err)
		}
		chain := resilience.NewTranscriberFallback(primary, cfg.Providers.STT.Name,
			resilience.BreakerConfig{Name: "stt"})
		chain.Add(fb.Name, secondary)
		p.STT = chain
		slog.Info("transcription fallback enabled",
			"primary", cfg.Providers.STT.Name, "fallback", fb.Name)
	}

	p.TTS, err = reg.CreateTTS(cfg.Providers.TTS)
	if err != nil {
		return p, fmt.Errorf("tts provider: %w", err)
	}

	p.OCR, err = reg.CreateOCR(cfg.Providers.OCR)
	if err != nil {
		return p, fmt.Errorf("ocr provider: %w", err)
	}

	p.Device, err = filedev.New(framesDir, audioFile)
	if err != nil {
		return p, fmt.Errorf("media device: %w", err)
	}
	p.Speaker = nullout.New(slog.Default())

	return p, nil
}

// newLogger builds the process logger at the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var l slog.Level
	switch level {
	case config.LogDebug:
		l = slog.LevelDebug
	case config.LogWarn:
		l = slog.LevelWarn
	case config.LogError:
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
