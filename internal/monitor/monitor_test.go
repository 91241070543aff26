package monitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nickelsound/3DprinterMonitor/internal/config"
	"github.com/nickelsound/3DprinterMonitor/internal/gateway/printer"
	"github.com/nickelsound/3DprinterMonitor/internal/gateway/provider"
	"github.com/nickelsound/3DprinterMonitor/internal/prompt"
)

type MockPrinter struct {
	mock.Mock
}

func (m *MockPrinter) Status(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPrinter) Job(ctx context.Context) (printer.Job, error) {
	args := m.Called(ctx)
	return args.Get(0).(printer.Job), args.Error(1)
}

type MockSource struct {
	mock.Mock
	// Captured collects destination paths in call order.
	Captured []string
}

func (m *MockSource) Capture(ctx context.Context, destPath string) error {
	m.Captured = append(m.Captured, destPath)
	args := m.Called(ctx, destPath)
	if args.Error(0) == nil {
		os.WriteFile(destPath, []byte("frame"), 0o644)
	}
	return args.Error(0)
}

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) StatusChanged(ctx context.Context, state, displayName string) error {
	args := m.Called(ctx, state, displayName)
	return args.Error(0)
}

func (m *MockNotifier) StopPrinting(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockVision struct {
	mock.Mock
	// Payloads collects the requests in call order.
	Payloads []provider.ChatPayload
}

func (m *MockVision) ID() string { return "mock" }

func (m *MockVision) Call(ctx context.Context, payload provider.ChatPayload) (string, error) {
	m.Payloads = append(m.Payloads, payload)
	args := m.Called(ctx, payload)
	return args.String(0), args.Error(1)
}

type staticPrompts struct{}

func (staticPrompts) Snapshot() prompt.Snapshot {
	return prompt.Snapshot{System: prompt.DefaultSystem, User: prompt.DefaultUser}
}

type fixture struct {
	printer  *MockPrinter
	source   *MockSource
	uploader *MockUploader
	notifier *MockNotifier
	vision   *MockVision
	monitor  *Monitor
	slots    []string
}

func newFixture(t *testing.T, analysisEvery int) *fixture {
	t.Helper()
	dir := t.TempDir()
	slots := []string{
		filepath.Join(dir, "snapshot1.jpg"),
		filepath.Join(dir, "snapshot2.jpg"),
		filepath.Join(dir, "snapshot3.jpg"),
	}
	for i, slot := range slots {
		require.NoError(t, os.WriteFile(slot, []byte(fmt.Sprintf("seed-%d", i)), 0o644))
	}

	f := &fixture{
		printer:  new(MockPrinter),
		source:   new(MockSource),
		uploader: new(MockUploader),
		notifier: new(MockNotifier),
		vision:   new(MockVision),
		slots:    slots,
	}
	m, err := New(Params{
		Printer:  f.printer,
		Source:   f.source,
		Uploader: f.uploader,
		Notifier: f.notifier,
		Vision:   f.vision,
		Prompts:  staticPrompts{},
		Slots:    slots,
		Monitor: config.MonitorConfig{
			IntervalSeconds: 10,
			AnalysisEvery:   analysisEvery,
			PrintingState:   "PRINTING",
		},
		MaxTokens: 4000,
	})
	require.NoError(t, err)
	f.monitor = m
	return f
}

func (f *fixture) expectPrintingTick(job printer.Job) {
	f.printer.On("Status", mock.Anything).Return("PRINTING", nil).Once()
	f.printer.On("Job", mock.Anything).Return(job, nil).Once()
}

func TestNotifiesOnlyWhenSentPairChanges(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	f.source.On("Capture", mock.Anything, mock.Anything).Return(nil)
	f.uploader.On("Upload", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("StatusChanged", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	// Same pair twice in a row, then a name change, then the same again.
	jobs := []printer.Job{
		{State: "PRINTING", DisplayName: "benchy.gcode"},
		{State: "PRINTING", DisplayName: "benchy.gcode"},
		{State: "PRINTING", DisplayName: "vase.gcode"},
		{State: "PRINTING", DisplayName: "vase.gcode"},
	}
	for _, job := range jobs {
		f.expectPrintingTick(job)
		require.NoError(t, f.monitor.RunTick(ctx))
	}

	f.notifier.AssertNumberOfCalls(t, "StatusChanged", 2)
	f.notifier.AssertCalled(t, "StatusChanged", mock.Anything, "PRINTING", "benchy.gcode")
	f.notifier.AssertCalled(t, "StatusChanged", mock.Anything, "PRINTING", "vase.gcode")
}

func TestNonPrintingNotifiesOnStateChangeOnly(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	f.notifier.On("StatusChanged", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	for _, status := range []string{"IDLE", "IDLE", "FINISHED", "IDLE"} {
		f.printer.On("Status", mock.Anything).Return(status, nil).Once()
		require.NoError(t, f.monitor.RunTick(ctx))
	}

	// IDLE, FINISHED, IDLE: three transitions, the duplicate IDLE is silent.
	f.notifier.AssertNumberOfCalls(t, "StatusChanged", 3)
	f.notifier.AssertCalled(t, "StatusChanged", mock.Anything, "IDLE", "")
	f.notifier.AssertCalled(t, "StatusChanged", mock.Anything, "FINISHED", "")
}

func TestDisplayNameClearingAloneIsNoTrigger(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	f.source.On("Capture", mock.Anything, mock.Anything).Return(nil)
	f.uploader.On("Upload", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("StatusChanged", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	// Job-level state happens to match the next printer-level state.
	f.expectPrintingTick(printer.Job{State: "IDLE", DisplayName: "benchy.gcode"})
	require.NoError(t, f.monitor.RunTick(ctx))

	// Printer-level state unchanged, display name goes absent: no send.
	f.printer.On("Status", mock.Anything).Return("IDLE", nil).Once()
	require.NoError(t, f.monitor.RunTick(ctx))

	f.notifier.AssertNumberOfCalls(t, "StatusChanged", 1)
}

func TestFailedSendStillAdvancesSentPair(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	f.notifier.On("StatusChanged", mock.Anything, "IDLE", "").Return(errors.New("webhook down")).Once()

	f.printer.On("Status", mock.Anything).Return("IDLE", nil).Twice()
	require.NoError(t, f.monitor.RunTick(ctx))
	require.NoError(t, f.monitor.RunTick(ctx))

	// The failed send advanced the stored pair, so no second attempt.
	f.notifier.AssertNumberOfCalls(t, "StatusChanged", 1)
}

func TestSlotIndexCyclesRoundRobin(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	f.source.On("Capture", mock.Anything, mock.Anything).Return(nil)
	f.uploader.On("Upload", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("StatusChanged", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	for i := 0; i < 5; i++ {
		f.expectPrintingTick(printer.Job{State: "PRINTING", DisplayName: "benchy.gcode"})
		require.NoError(t, f.monitor.RunTick(ctx))
	}

	want := []string{f.slots[0], f.slots[1], f.slots[2], f.slots[0], f.slots[1]}
	assert.Equal(t, want, f.source.Captured)
}

func TestUploadTargetsTheFreshSlot(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	f.source.On("Capture", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("StatusChanged", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.uploader.On("Upload", mock.Anything, f.slots[0]).Return(nil).Once()
	f.uploader.On("Upload", mock.Anything, f.slots[1]).Return(nil).Once()

	for i := 0; i < 2; i++ {
		f.expectPrintingTick(printer.Job{State: "PRINTING", DisplayName: "benchy.gcode"})
		require.NoError(t, f.monitor.RunTick(ctx))
	}
	f.uploader.AssertExpectations(t)
}

func TestCaptureFailureSkipsUploadAndCounter(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	f.notifier.On("StatusChanged", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.source.On("Capture", mock.Anything, mock.Anything).Return(errors.New("camera offline"))

	f.expectPrintingTick(printer.Job{State: "PRINTING", DisplayName: "benchy.gcode"})
	err := f.monitor.RunTick(ctx)
	require.Error(t, err)

	f.uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	assert.Equal(t, 0, f.monitor.State().CycleCount)
	assert.Equal(t, 0, f.monitor.State().SlotIndex)
}

func TestStatusErrorHasNoSideEffects(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	f.printer.On("Status", mock.Anything).Return("", errors.New("connection refused")).Once()
	err := f.monitor.RunTick(ctx)
	require.Error(t, err)

	f.notifier.AssertNotCalled(t, "StatusChanged", mock.Anything, mock.Anything, mock.Anything)
	f.source.AssertNotCalled(t, "Capture", mock.Anything, mock.Anything)
	assert.Equal(t, State{}, f.monitor.State())
}

func TestAnalysisRunsEveryNthPrintingCycle(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	f.source.On("Capture", mock.Anything, mock.Anything).Return(nil)
	f.uploader.On("Upload", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("StatusChanged", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.vision.On("Call", mock.Anything, mock.Anything).Return("NO issues visible", nil)

	for i := 0; i < 6; i++ {
		f.expectPrintingTick(printer.Job{State: "PRINTING", DisplayName: "benchy.gcode"})
		require.NoError(t, f.monitor.RunTick(ctx))
	}

	f.vision.AssertNumberOfCalls(t, "Call", 2)
	assert.Equal(t, 0, f.monitor.State().CycleCount)

	// Each pass carries the current contents of all three slots in order.
	require.Len(t, f.vision.Payloads, 2)
	for _, payload := range f.vision.Payloads {
		assert.Len(t, payload.Images, 3)
		assert.Equal(t, prompt.DefaultSystem, payload.System)
		assert.Equal(t, 4000, payload.MaxTokens)
	}
}

func TestTwoStrikeEscalation(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	f.source.On("Capture", mock.Anything, mock.Anything).Return(nil)
	f.uploader.On("Upload", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("StatusChanged", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("StopPrinting", mock.Anything).Return(nil)

	runTick := func(response string) {
		f.expectPrintingTick(printer.Job{State: "PRINTING", DisplayName: "benchy.gcode"})
		f.vision.On("Call", mock.Anything, mock.Anything).Return(response, nil).Once()
		require.NoError(t, f.monitor.RunTick(ctx))
	}

	// First strike arms; no stop yet.
	runTick("YES, spaghetti everywhere")
	f.notifier.AssertNotCalled(t, "StopPrinting", mock.Anything)
	assert.Equal(t, VerdictYes, f.monitor.State().PrevVerdict)
	assert.False(t, f.monitor.State().ConfirmedFailure)

	// Second strike fires the stop webhook.
	runTick("YES, still failing")
	f.notifier.AssertNumberOfCalls(t, "StopPrinting", 1)
	assert.True(t, f.monitor.State().ConfirmedFailure)

	// Third consecutive YES fires again: no suppression after confirmation.
	runTick("YES")
	f.notifier.AssertNumberOfCalls(t, "StopPrinting", 2)
	assert.True(t, f.monitor.State().ConfirmedFailure)
}

func TestSingleYesThenNoDoesNotEscalate(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	f.source.On("Capture", mock.Anything, mock.Anything).Return(nil)
	f.uploader.On("Upload", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("StatusChanged", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	for _, response := range []string{"YES, looks bad", "NO, recovered"} {
		f.expectPrintingTick(printer.Job{State: "PRINTING", DisplayName: "benchy.gcode"})
		f.vision.On("Call", mock.Anything, mock.Anything).Return(response, nil).Once()
		require.NoError(t, f.monitor.RunTick(ctx))
	}

	f.notifier.AssertNotCalled(t, "StopPrinting", mock.Anything)
	assert.Equal(t, VerdictNo, f.monitor.State().PrevVerdict)
	assert.False(t, f.monitor.State().ConfirmedFailure)
}

func TestMissingChoicesKeepsVerdictUnchanged(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	f.source.On("Capture", mock.Anything, mock.Anything).Return(nil)
	f.uploader.On("Upload", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("StatusChanged", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	// Arm one strike first.
	f.expectPrintingTick(printer.Job{State: "PRINTING", DisplayName: "benchy.gcode"})
	f.vision.On("Call", mock.Anything, mock.Anything).Return("YES", nil).Once()
	require.NoError(t, f.monitor.RunTick(ctx))

	// A response without the result field is a soft failure, not an error.
	f.expectPrintingTick(printer.Job{State: "PRINTING", DisplayName: "benchy.gcode"})
	f.vision.On("Call", mock.Anything, mock.Anything).Return("", provider.ErrNoChoices).Once()
	require.NoError(t, f.monitor.RunTick(ctx))

	f.notifier.AssertNotCalled(t, "StopPrinting", mock.Anything)
	assert.Equal(t, VerdictYes, f.monitor.State().PrevVerdict)
	assert.False(t, f.monitor.State().ConfirmedFailure)
}

func TestVisionHardErrorSurfacesButKeepsState(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	f.source.On("Capture", mock.Anything, mock.Anything).Return(nil)
	f.uploader.On("Upload", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("StatusChanged", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	f.expectPrintingTick(printer.Job{State: "PRINTING", DisplayName: "benchy.gcode"})
	f.vision.On("Call", mock.Anything, mock.Anything).Return("", errors.New("status=500")).Once()
	require.Error(t, f.monitor.RunTick(ctx))

	assert.Equal(t, VerdictEmpty, f.monitor.State().PrevVerdict)
	assert.False(t, f.monitor.State().ConfirmedFailure)
	// The cadence counter was already reset, same as a completed pass.
	assert.Equal(t, 0, f.monitor.State().CycleCount)
}
