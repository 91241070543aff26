package app

import (
	"fmt"
	"strings"
)

type StartupSummary struct {
	Printer         PrinterSummary
	Camera          CameraSummary
	Notify          NotifySummary
	Vision          VisionSummary
	IntervalSeconds int
	HistoryEnabled  bool
}

type PrinterSummary struct {
	StatusURL string
	JobURL    string
}

type CameraSummary struct {
	SnapshotURL string
	SlotPaths   []string
	UploadURL   string
}

type NotifySummary struct {
	StatusChangedEvent string
	StopPrintingEvent  string
}

type VisionSummary struct {
	Model         string
	AnalysisEvery int
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("STARTUP SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("[PRINTER]")
	fmt.Printf("  status endpoint: %s\n", s.Printer.StatusURL)
	fmt.Printf("  job endpoint:    %s\n", s.Printer.JobURL)
	fmt.Println()

	fmt.Println("[CAMERA]")
	fmt.Printf("  snapshot source: %s\n", s.Camera.SnapshotURL)
	fmt.Printf("  slots:           %s\n", formatList(s.Camera.SlotPaths))
	fmt.Printf("  upload target:   %s\n", s.Camera.UploadURL)
	fmt.Println()

	fmt.Println("[WEBHOOKS]")
	fmt.Printf("  status changed event: %s\n", s.Notify.StatusChangedEvent)
	fmt.Printf("  stop printing event:  %s\n", s.Notify.StopPrintingEvent)
	fmt.Println()

	fmt.Println("[VISION]")
	fmt.Printf("  model:          %s\n", s.Vision.Model)
	fmt.Printf("  analysis every: %d printing cycles\n", s.Vision.AnalysisEvery)
	fmt.Println()

	fmt.Printf("poll interval: %ds | history store: %s\n", s.IntervalSeconds, onOff(s.HistoryEnabled))
	fmt.Println(strings.Repeat("=", 80))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
