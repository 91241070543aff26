package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	if err := c.Printer.validate(); err != nil {
		return err
	}
	if err := c.Camera.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	if err := c.Vision.validate(); err != nil {
		return err
	}
	if err := c.Monitor.validate(); err != nil {
		return err
	}
	return nil
}

func (p *PrinterConfig) validate() error {
	if strings.TrimSpace(p.StatusURL) == "" {
		return fmt.Errorf("printer.status_url cannot be empty")
	}
	if strings.TrimSpace(p.JobURL) == "" {
		return fmt.Errorf("printer.job_url cannot be empty")
	}
	return nil
}

func (c *CameraConfig) validate() error {
	if strings.TrimSpace(c.SnapshotURL) == "" {
		return fmt.Errorf("camera.snapshot_url cannot be empty")
	}
	// The analysis batch is a fixed ordered triple, so the slot ring must
	// hold exactly three files.
	if len(c.SlotPaths) != 3 {
		return fmt.Errorf("camera.slot_paths requires exactly 3 paths, got %d", len(c.SlotPaths))
	}
	for i, path := range c.SlotPaths {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("camera.slot_paths[%d] cannot be empty", i)
		}
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if strings.TrimSpace(n.BaseURL) == "" {
		return fmt.Errorf("notify.base_url cannot be empty")
	}
	if strings.TrimSpace(n.StatusChangedEvent) == "" {
		return fmt.Errorf("notify.status_changed_event cannot be empty")
	}
	if strings.TrimSpace(n.StopPrintingEvent) == "" {
		return fmt.Errorf("notify.stop_printing_event cannot be empty")
	}
	return nil
}

func (v *VisionConfig) validate() error {
	if strings.TrimSpace(v.APIURL) == "" {
		return fmt.Errorf("vision.api_url cannot be empty")
	}
	if strings.TrimSpace(v.Model) == "" {
		return fmt.Errorf("vision.model cannot be empty")
	}
	return nil
}

func (m *MonitorConfig) validate() error {
	if m.IntervalSeconds <= 0 {
		return fmt.Errorf("monitor.interval_seconds must be > 0")
	}
	if m.AnalysisEvery <= 0 {
		return fmt.Errorf("monitor.analysis_every must be > 0")
	}
	if strings.TrimSpace(m.PrintingState) == "" {
		return fmt.Errorf("monitor.printing_state cannot be empty")
	}
	return nil
}
