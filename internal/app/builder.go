package app

import (
	"context"
	"fmt"

	pwcfg "github.com/nickelsound/3DprinterMonitor/internal/config"
	"github.com/nickelsound/3DprinterMonitor/internal/gateway/camera"
	"github.com/nickelsound/3DprinterMonitor/internal/gateway/notifier"
	"github.com/nickelsound/3DprinterMonitor/internal/gateway/printer"
	"github.com/nickelsound/3DprinterMonitor/internal/gateway/provider"
	"github.com/nickelsound/3DprinterMonitor/internal/logger"
	"github.com/nickelsound/3DprinterMonitor/internal/monitor"
	"github.com/nickelsound/3DprinterMonitor/internal/prompt"
	"github.com/nickelsound/3DprinterMonitor/internal/store/sqlite"
	livehttp "github.com/nickelsound/3DprinterMonitor/internal/transport/http/live"
)

type AppBuilder struct {
	cfg *pwcfg.Config

	printerFn  func(pwcfg.PrinterConfig) (monitor.PrinterAPI, error)
	sourceFn   func(pwcfg.CameraConfig) (monitor.SnapshotSource, error)
	uploaderFn func(pwcfg.UploadConfig) (monitor.SnapshotUploader, error)
	notifierFn func(pwcfg.NotifyConfig) (notifier.EventNotifier, error)
	visionFn   func(pwcfg.VisionConfig) (provider.VisionProvider, error)
	promptsFn  func(string) (monitor.PromptSource, error)
	historyFn  func(string) (*sqlite.HistoryStore, error)
	liveHTTPFn func(pwcfg.AppConfig, livehttp.StatusSource, *sqlite.HistoryStore) (*livehttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *pwcfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		printerFn:  buildPrinterClient,
		sourceFn:   buildSnapshotSource,
		uploaderFn: buildSnapshotUploader,
		notifierFn: buildNotifier,
		visionFn:   buildVisionProvider,
		promptsFn:  buildPromptRegistry,
		historyFn:  buildHistoryStore,
		liveHTTPFn: buildLiveHTTPServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	printerClient, err := b.printerFn(cfg.Printer)
	if err != nil {
		return nil, fmt.Errorf("printer client init failed: %w", err)
	}
	source, err := b.sourceFn(cfg.Camera)
	if err != nil {
		return nil, fmt.Errorf("camera source init failed: %w", err)
	}
	uploader, err := b.uploaderFn(cfg.Upload)
	if err != nil {
		return nil, fmt.Errorf("snapshot uploader init failed: %w", err)
	}
	events, err := b.notifierFn(cfg.Notify)
	if err != nil {
		return nil, fmt.Errorf("notifier init failed: %w", err)
	}
	vision, err := b.visionFn(cfg.Vision)
	if err != nil {
		return nil, fmt.Errorf("vision provider init failed: %w", err)
	}
	prompts, err := b.promptsFn(cfg.Vision.PromptsPath)
	if err != nil {
		return nil, fmt.Errorf("prompt registry init failed: %w", err)
	}

	// History persists best effort. A broken database must not keep the
	// loop from watching the printer.
	var history *sqlite.HistoryStore
	if store, err := b.historyFn(cfg.App.HistoryDBPath); err != nil {
		logger.Warnf("history store unavailable, continuing without it: %v", err)
	} else {
		history = store
	}

	statusCache := newTickStatusCache()

	mon, err := monitor.New(monitor.Params{
		Printer:   printerClient,
		Source:    source,
		Uploader:  uploader,
		Notifier:  events,
		Vision:    vision,
		Prompts:   prompts,
		History:   historyRecorder(history),
		Observer:  statusCache,
		Slots:     cfg.Camera.SlotPaths,
		Monitor:   cfg.Monitor,
		MaxTokens: cfg.Vision.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("monitor init failed: %w", err)
	}

	liveHTTP, err := b.liveHTTPFn(cfg.App, statusCache, history)
	if err != nil {
		return nil, fmt.Errorf("live http server init failed: %w", err)
	}

	return &App{
		cfg:      cfg,
		monitor:  mon,
		liveHTTP: liveHTTP,
		Summary: &StartupSummary{
			Printer: PrinterSummary{
				StatusURL: cfg.Printer.StatusURL,
				JobURL:    cfg.Printer.JobURL,
			},
			Camera: CameraSummary{
				SnapshotURL: cfg.Camera.SnapshotURL,
				SlotPaths:   cfg.Camera.SlotPaths,
				UploadURL:   cfg.Upload.URL,
			},
			Notify: NotifySummary{
				StatusChangedEvent: cfg.Notify.StatusChangedEvent,
				StopPrintingEvent:  cfg.Notify.StopPrintingEvent,
			},
			Vision: VisionSummary{
				Model:         cfg.Vision.Model,
				AnalysisEvery: cfg.Monitor.AnalysisEvery,
			},
			IntervalSeconds: cfg.Monitor.IntervalSeconds,
			HistoryEnabled:  history != nil,
		},
	}, nil
}

// historyRecorder avoids handing the monitor a typed nil interface.
func historyRecorder(store *sqlite.HistoryStore) monitor.HistoryRecorder {
	if store == nil {
		return nil
	}
	return store
}

func buildPrinterClient(cfg pwcfg.PrinterConfig) (monitor.PrinterAPI, error) {
	return printer.NewClient(cfg)
}

func buildSnapshotSource(cfg pwcfg.CameraConfig) (monitor.SnapshotSource, error) {
	return camera.NewSource(cfg)
}

func buildSnapshotUploader(cfg pwcfg.UploadConfig) (monitor.SnapshotUploader, error) {
	return camera.NewUploader(cfg)
}

func buildNotifier(cfg pwcfg.NotifyConfig) (notifier.EventNotifier, error) {
	return notifier.NewWebhook(cfg)
}

func buildVisionProvider(cfg pwcfg.VisionConfig) (provider.VisionProvider, error) {
	return &provider.OpenAIChatClient{
		BaseURL: cfg.APIURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: cfg.Timeout(),
	}, nil
}

func buildPromptRegistry(path string) (monitor.PromptSource, error) {
	return prompt.NewRegistry(path)
}

func buildHistoryStore(path string) (*sqlite.HistoryStore, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	return sqlite.NewHistoryStore(db), nil
}

func buildLiveHTTPServer(appCfg pwcfg.AppConfig, status livehttp.StatusSource, history *sqlite.HistoryStore) (*livehttp.Server, error) {
	return livehttp.NewServer(livehttp.ServerConfig{
		Addr:    appCfg.HTTPAddr,
		Status:  status,
		History: history,
	})
}

func WithPrinterClient(fn func(pwcfg.PrinterConfig) (monitor.PrinterAPI, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.printerFn = fn
		}
	}
}

func WithSnapshotSource(fn func(pwcfg.CameraConfig) (monitor.SnapshotSource, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.sourceFn = fn
		}
	}
}

func WithSnapshotUploader(fn func(pwcfg.UploadConfig) (monitor.SnapshotUploader, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.uploaderFn = fn
		}
	}
}

func WithNotifier(fn func(pwcfg.NotifyConfig) (notifier.EventNotifier, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.notifierFn = fn
		}
	}
}

func WithVisionProvider(fn func(pwcfg.VisionConfig) (provider.VisionProvider, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.visionFn = fn
		}
	}
}

func WithPromptRegistry(fn func(string) (monitor.PromptSource, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.promptsFn = fn
		}
	}
}

func WithHistoryStore(fn func(string) (*sqlite.HistoryStore, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.historyFn = fn
		}
	}
}

func WithLiveHTTP(fn func(pwcfg.AppConfig, livehttp.StatusSource, *sqlite.HistoryStore) (*livehttp.Server, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.liveHTTPFn = fn
		}
	}
}
