package monitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/nickelsound/3DprinterMonitor/internal/config"
	"github.com/nickelsound/3DprinterMonitor/internal/gateway/notifier"
	"github.com/nickelsound/3DprinterMonitor/internal/gateway/printer"
	"github.com/nickelsound/3DprinterMonitor/internal/gateway/provider"
	"github.com/nickelsound/3DprinterMonitor/internal/logger"
	"github.com/nickelsound/3DprinterMonitor/internal/prompt"
	"github.com/nickelsound/3DprinterMonitor/internal/scheduler"
)

// PrinterAPI is the subset of the printer client the loop consumes.
type PrinterAPI interface {
	Status(ctx context.Context) (string, error)
	Job(ctx context.Context) (printer.Job, error)
}

type SnapshotSource interface {
	Capture(ctx context.Context, destPath string) error
}

type SnapshotUploader interface {
	Upload(ctx context.Context, path string) error
}

type PromptSource interface {
	Snapshot() prompt.Snapshot
}

const (
	EventStatusChanged = "status_changed"
	EventStopPrinting  = "stop_printing"
)

// EventRecord is one webhook emission written to the history store.
type EventRecord struct {
	Kind        string
	State       string
	DisplayName string
	SendError   string
	At          time.Time
}

// AnalysisRecord is one vision analysis pass written to the history store.
type AnalysisRecord struct {
	TraceID          string
	Verdict          Verdict
	PreviousVerdict  Verdict
	ConfirmedFailure bool
	StopFired        bool
	ResponseExcerpt  string
	Note             string
	At               time.Time
}

// HistoryRecorder persists records best effort; failures are logged by the
// loop and never affect a tick.
type HistoryRecorder interface {
	RecordEvent(ctx context.Context, rec EventRecord) error
	RecordAnalysis(ctx context.Context, rec AnalysisRecord) error
}

// TickStatus is the read-only view published after every tick.
type TickStatus struct {
	At                  time.Time
	PrinterState        string
	LastSentState       *string
	LastSentDisplayName *string
	SlotIndex           int
	CycleCount          int
	PrevVerdict         Verdict
	ConfirmedFailure    bool
	LastError           string
}

type StatusObserver interface {
	Publish(TickStatus)
}

// Monitor drives the polling loop: change detection, snapshot cadence and the
// two-strike failure escalation. Single goroutine; one tick runs fully before
// the next wait starts.
type Monitor struct {
	printer  PrinterAPI
	source   SnapshotSource
	uploader SnapshotUploader
	notifier notifier.EventNotifier
	vision   provider.VisionProvider
	prompts  PromptSource
	history  HistoryRecorder
	observer StatusObserver

	slots         []string
	interval      time.Duration
	analysisEvery int
	printingState string
	maxTokens     int

	state State
	nowFn func() time.Time
}

// Params bundles the monitor's collaborators. History and Observer are
// optional.
type Params struct {
	Printer  PrinterAPI
	Source   SnapshotSource
	Uploader SnapshotUploader
	Notifier notifier.EventNotifier
	Vision   provider.VisionProvider
	Prompts  PromptSource
	History  HistoryRecorder
	Observer StatusObserver

	Slots     []string
	Monitor   config.MonitorConfig
	MaxTokens int
}

func New(p Params) (*Monitor, error) {
	if p.Printer == nil {
		return nil, fmt.Errorf("monitor requires a printer client")
	}
	if p.Source == nil || p.Uploader == nil {
		return nil, fmt.Errorf("monitor requires a snapshot source and uploader")
	}
	if p.Notifier == nil {
		return nil, fmt.Errorf("monitor requires a notifier")
	}
	if p.Vision == nil {
		return nil, fmt.Errorf("monitor requires a vision provider")
	}
	if p.Prompts == nil {
		return nil, fmt.Errorf("monitor requires a prompt source")
	}
	if len(p.Slots) == 0 {
		return nil, fmt.Errorf("monitor requires snapshot slots")
	}
	if p.Monitor.AnalysisEvery <= 0 {
		return nil, fmt.Errorf("monitor.analysis_every must be > 0")
	}
	return &Monitor{
		printer:       p.Printer,
		source:        p.Source,
		uploader:      p.Uploader,
		notifier:      p.Notifier,
		vision:        p.Vision,
		prompts:       p.Prompts,
		history:       p.History,
		observer:      p.Observer,
		slots:         append([]string(nil), p.Slots...),
		interval:      p.Monitor.Interval(),
		analysisEvery: p.Monitor.AnalysisEvery,
		printingState: p.Monitor.PrintingState,
		maxTokens:     p.MaxTokens,
		nowFn:         time.Now,
	}, nil
}

// Run polls until ctx is cancelled. A failed tick is logged and the loop
// sleeps the same fixed interval before trying again.
func (m *Monitor) Run(ctx context.Context) error {
	sched := scheduler.NewFixedScheduler(ctx, "monitor", m.interval)
	sched.Start(func() {
		if err := m.RunTick(ctx); err != nil {
			logger.Errorf("tick failed: %v", err)
		}
	})
	return nil
}

// RunTick executes one poll cycle and publishes the resulting status.
func (m *Monitor) RunTick(ctx context.Context) error {
	printerState, err := m.tick(ctx)
	if m.observer != nil {
		st := TickStatus{
			At:                  m.nowFn(),
			PrinterState:        printerState,
			LastSentState:       m.state.LastSentState,
			LastSentDisplayName: m.state.LastSentDisplayName,
			SlotIndex:           m.state.SlotIndex,
			CycleCount:          m.state.CycleCount,
			PrevVerdict:         m.state.PrevVerdict,
			ConfirmedFailure:    m.state.ConfirmedFailure,
		}
		if err != nil {
			st.LastError = err.Error()
		}
		m.observer.Publish(st)
	}
	return err
}

// State returns a copy of the loop state. Only safe from the loop goroutine
// or in tests that drive RunTick directly.
func (m *Monitor) State() State {
	return m.state
}

func (m *Monitor) tick(ctx context.Context) (string, error) {
	status, err := m.printer.Status(ctx)
	if err != nil {
		return "", fmt.Errorf("printer status unavailable: %w", err)
	}
	logger.Debugf("printer status: %s", status)

	if status == m.printingState {
		return status, m.printingTick(ctx)
	}
	if m.state.NeedsStateNotify(status) {
		m.sendStatus(ctx, status, nil)
	} else {
		logger.Debugf("printer status unchanged and not printing; no notification")
	}
	return status, nil
}

func (m *Monitor) printingTick(ctx context.Context) error {
	job, err := m.printer.Job(ctx)
	if err != nil {
		return fmt.Errorf("printer job unavailable: %w", err)
	}
	name := job.DisplayName
	if m.state.NeedsNotify(job.State, &name) {
		m.sendStatus(ctx, job.State, &name)
	} else {
		logger.Debugf("job state and display name unchanged; skipping notification")
	}

	slot := m.slots[m.state.SlotIndex]
	if err := m.source.Capture(ctx, slot); err != nil {
		return err
	}
	if err := m.uploader.Upload(ctx, slot); err != nil {
		return err
	}
	m.state.CycleCount++
	m.state.SlotIndex = (m.state.SlotIndex + 1) % len(m.slots)

	if m.state.CycleCount >= m.analysisEvery {
		m.state.CycleCount = 0
		return m.runAnalysis(ctx)
	}
	return nil
}

// sendStatus issues the status webhook and advances the stored pair no matter
// how the send went: a lost notification is acceptable, repeated ones are not.
func (m *Monitor) sendStatus(ctx context.Context, state string, displayName *string) {
	name := ""
	if displayName != nil {
		name = *displayName
	}
	sendErr := m.notifier.StatusChanged(ctx, state, name)
	m.state.MarkSent(state, displayName)

	rec := EventRecord{Kind: EventStatusChanged, State: state, DisplayName: name, At: m.nowFn()}
	if sendErr != nil {
		rec.SendError = sendErr.Error()
		logger.Warnf("status notification failed: %v", sendErr)
	}
	m.recordEvent(ctx, rec)
}

func (m *Monitor) runAnalysis(ctx context.Context) error {
	traceID := uuid.NewString()
	logger.Infof("running failure analysis over %d snapshots (trace=%s)", len(m.slots), traceID)

	images := make([]provider.ImagePayload, 0, len(m.slots))
	for _, path := range m.slots {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading snapshot %s failed: %w", path, err)
		}
		images = append(images, provider.ImagePayload{DataURI: provider.JPEGDataURI(data), RawSize: len(data)})
	}
	prompts := m.prompts.Snapshot()
	content, err := m.vision.Call(ctx, provider.ChatPayload{
		System:    prompts.System,
		User:      prompts.User,
		Images:    images,
		MaxTokens: m.maxTokens,
	})
	if errors.Is(err, provider.ErrNoChoices) {
		// Inconclusive: verdict and flag stay exactly as they were.
		logger.Warnf("vision response missing result field; keeping previous verdict (trace=%s)", traceID)
		m.recordAnalysis(ctx, AnalysisRecord{
			TraceID:          traceID,
			Verdict:          m.state.PrevVerdict,
			PreviousVerdict:  m.state.PrevVerdict,
			ConfirmedFailure: m.state.ConfirmedFailure,
			Note:             "inconclusive: response missing choices",
			At:               m.nowFn(),
		})
		return nil
	}
	if err != nil {
		return fmt.Errorf("vision analysis failed: %w", err)
	}

	verdict := ClassifyVerdict(content)
	prev := m.state.PrevVerdict
	rec := AnalysisRecord{
		TraceID:         traceID,
		Verdict:         verdict,
		PreviousVerdict: prev,
		ResponseExcerpt: excerpt(content),
		At:              m.nowFn(),
	}

	switch {
	case verdict == VerdictYes && prev == VerdictYes:
		// Second consecutive strike: escalate. PrevVerdict stays YES so
		// every further YES fires the stop webhook again.
		if stopErr := m.notifier.StopPrinting(ctx); stopErr != nil {
			rec.ConfirmedFailure = m.state.ConfirmedFailure
			rec.Note = "stop webhook failed: " + stopErr.Error()
			m.recordAnalysis(ctx, rec)
			return fmt.Errorf("stop escalation failed: %w", stopErr)
		}
		m.state.ConfirmedFailure = true
		rec.StopFired = true
		m.recordEvent(ctx, EventRecord{Kind: EventStopPrinting, At: m.nowFn()})
	case verdict == VerdictYes:
		m.state.PrevVerdict = VerdictYes
		m.state.ConfirmedFailure = false
	case verdict == VerdictNo:
		m.state.PrevVerdict = VerdictNo
		m.state.ConfirmedFailure = false
	default:
		m.state.PrevVerdict = VerdictEmpty
		m.state.ConfirmedFailure = false
	}
	rec.ConfirmedFailure = m.state.ConfirmedFailure
	m.recordAnalysis(ctx, rec)
	return nil
}

func (m *Monitor) recordEvent(ctx context.Context, rec EventRecord) {
	if m.history == nil {
		return
	}
	if err := m.history.RecordEvent(ctx, rec); err != nil {
		logger.Warnf("recording event failed: %v", err)
	}
}

func (m *Monitor) recordAnalysis(ctx context.Context, rec AnalysisRecord) {
	if m.history == nil {
		return
	}
	if err := m.history.RecordAnalysis(ctx, rec); err != nil {
		logger.Warnf("recording analysis failed: %v", err)
	}
}

const maxExcerptLen = 500

func excerpt(content string) string {
	if len(content) > maxExcerptLen {
		return content[:maxExcerptLen] + "..."
	}
	return content
}
