// Package app wires configuration, providers, and subsystems into a running
// fieldscan server.
//
// The wiring order matters: the scan journal comes up first so every later
// subsystem can record into it, the OCR service wraps the engine before the
// capture orchestrator borrows it, and the HTTP server is built last so its
// handlers see fully-initialised dependencies. Shutdown runs the closers in
// init order under the caller's deadline.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/tanklink/fieldscan/internal/capture"
	"github.com/tanklink/fieldscan/internal/config"
	"github.com/tanklink/fieldscan/internal/health"
	"github.com/tanklink/fieldscan/internal/observe"
	"github.com/tanklink/fieldscan/internal/ocr"
	"github.com/tanklink/fieldscan/internal/scanlog"
	"github.com/tanklink/fieldscan/internal/voice"
	"github.com/tanklink/fieldscan/pkg/audio"
	"github.com/tanklink/fieldscan/pkg/media"
	"github.com/tanklink/fieldscan/pkg/provider/ocrengine"
	"github.com/tanklink/fieldscan/pkg/provider/stt"
	"github.com/tanklink/fieldscan/pkg/provider/tts"
)

// Providers bundles the external capabilities the app is built on. All fields
// are required; main populates them from the config registry and the platform
// adapter, tests inject mocks.
type Providers struct {
	STT     stt.Transcriber
	TTS     tts.Synthesizer
	OCR     ocrengine.Engine
	Speaker audio.Output
	Device  media.Device
}

func (p Providers) validate() error {
	var missing []string
	if p.STT == nil {
		missing = append(missing, "stt")
	}
	if p.TTS == nil {
		missing = append(missing, "tts")
	}
	if p.OCR == nil {
		missing = append(missing, "ocr")
	}
	if p.Speaker == nil {
		missing = append(missing, "speaker")
	}
	if p.Device == nil {
		missing = append(missing, "device")
	}
	if len(missing) > 0 {
		return fmt.Errorf("app: missing providers: %v", missing)
	}
	return nil
}

// App owns every subsystem of the fieldscan server and their teardown.
type App struct {
	cfg       *config.Config
	providers Providers

	metrics    *observe.Metrics
	journal    scanlog.Journal
	acquirer   *media.Acquirer
	recognizer *ocr.Service
	voice      *voice.Session
	scan       *capture.Orchestrator
	srv        *http.Server

	closers  []func() error
	stopOnce sync.Once
}

// Option customises App construction. Used by tests to inject doubles for
// subsystems that New would otherwise build from config.
type Option func(*App)

// WithJournal injects a scan journal, bypassing the database setup.
func WithJournal(j scanlog.Journal) Option {
	return func(a *App) { a.journal = j }
}

// WithMetrics injects a metrics bundle instead of the process-wide default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New constructs the application from cfg and providers. It connects the scan
// journal, builds the OCR service on top of the engine, creates the voice
// session and capture orchestrator, and assembles the HTTP server. The engine
// itself is warmed lazily on the first scan (or via the readiness probe), so
// New does not block on the OCR daemon.
func New(ctx context.Context, cfg *config.Config, providers Providers, opts ...Option) (*App, error) {
	if err := providers.validate(); err != nil {
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 1. Scan journal ─────────────────────────────────────────────────────
	if err := a.initJournal(ctx); err != nil {
		return nil, err
	}

	// ── 2. OCR service ──────────────────────────────────────────────────────
	a.initRecognizer()

	// ── 3. Voice session ────────────────────────────────────────────────────
	a.initVoice()

	// ── 4. Capture orchestrator ─────────────────────────────────────────────
	a.initScan()

	// ── 5. HTTP server ──────────────────────────────────────────────────────
	a.initServer()

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initJournal connects the PostgreSQL journal, or falls back to the no-op
// journal when no database is configured.
func (a *App) initJournal(ctx context.Context) error {
	if a.journal != nil {
		return nil // injected
	}

	dsn := a.cfg.ScanLog.DatabaseURL
	if dsn == "" {
		slog.Info("scan journal disabled, no database configured")
		a.journal = scanlog.Noop{}
		return nil
	}

	store, err := scanlog.NewStore(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect scan journal: %w", err)
	}
	a.journal = store
	a.closers = append(a.closers, func() error {
		store.Close()
		return nil
	})
	slog.Info("scan journal connected")
	return nil
}

// initRecognizer builds the OCR service on the instrumented engine, loading
// the codebook from config when one is declared.
func (a *App) initRecognizer() {
	engine := observe.WrapEngine(a.providers.OCR, a.cfg.Providers.OCR.Name, a.metrics)

	svcOpts := []ocr.Option{ocr.WithLogger(slog.Default())}
	if len(a.cfg.Scan.Codebook) > 0 {
		svcOpts = append(svcOpts, ocr.WithCodebook(ocr.NewCodebook(a.cfg.Scan.Codebook)))
		slog.Info("loaded error-code codebook", "codes", len(a.cfg.Scan.Codebook))
	}
	a.recognizer = ocr.New(engine, svcOpts...)

	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.recognizer.Close(ctx)
	})
}

// initVoice creates the voice session over the microphone and the
// instrumented speech providers.
func (a *App) initVoice() {
	transcriber := observe.WrapTranscriber(a.providers.STT, a.cfg.Providers.STT.Name, a.metrics)
	synth := observe.WrapSynthesizer(a.providers.TTS, a.cfg.Providers.TTS.Name, a.metrics)

	a.voice = voice.NewSession(a.providers.Device, transcriber, synth, a.providers.Speaker, slog.Default())
	a.closers = append(a.closers, func() error {
		a.voice.Close()
		return nil
	})
}

// initScan creates the capture orchestrator with its own acquirer so camera
// and microphone lifetimes stay independent.
func (a *App) initScan() {
	a.acquirer = media.NewAcquirer(a.providers.Device)
	a.scan = capture.New(a.acquirer, a.recognizer, scanMode(a.cfg.Scan.DefaultMode), slog.Default())
	a.closers = append(a.closers, func() error {
		a.scan.Close()
		return nil
	})
}

// initServer assembles the mux and wraps it in the observability middleware.
func (a *App) initServer() {
	mux := http.NewServeMux()
	a.routes(mux)

	mux.Handle("GET /metrics", promhttp.Handler())

	checks := []health.Check{
		health.Ping("ocr", a.recognizer.Warmup),
	}
	if store, ok := a.journal.(*scanlog.Store); ok {
		checks = append(checks, health.Ping("scanlog", store.Ping))
	}
	health.New(checks...).Register(mux)

	a.srv = &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           observe.Middleware(a.metrics)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves HTTP until ctx is cancelled or the listener fails. On
// cancellation the server drains in-flight requests before Run returns
// ctx's error.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.srv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.srv.Shutdown(drainCtx); err != nil {
			slog.Warn("http drain error", "err", err)
		}
		return ctx.Err()
	})

	slog.Info("listening", "addr", a.cfg.Server.ListenAddr, "tls", a.cfg.Server.TLS != nil)
	return g.Wait()
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in init order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// scanMode converts the config mode string to the OCR service mode.
func scanMode(m config.ScanMode) ocr.Mode {
	switch m {
	case config.ScanErrorCode:
		return ocr.ModeErrorCode
	case config.ScanBarcode:
		return ocr.ModeBarcode
	default:
		return ocr.ModeGeneralText
	}
}
