package config

import "strings"

// Defaults mirror the endpoints and cadence the monitor shipped with.
const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppHTTPAddr      = ":9981"
	defaultAppLogPath       = "/data/logs/printwatch.log"
	defaultAppLLMLogPath    = "/data/logs/printwatch-llm.log"
	defaultAppHistoryDB     = "/data/db/printwatch-history.db"
	defaultPrinterStatusURL = "http://printer/api/v1/status"
	defaultPrinterJobURL    = "http://printer/api/v1/job"
	defaultPrinterTimeout   = 10
	defaultCameraURL        = "http://camera/images/snapshot0.jpg"
	defaultCameraTimeout    = 15
	defaultUploadURL        = "https://connect.prusa3d.com/c/snapshot"
	defaultUploadTimeout    = 30
	defaultNotifyBaseURL    = "https://maker.ifttt.com"
	defaultNotifyStatusEvt  = "status_changed"
	defaultNotifyStopEvt    = "should_stop_printing"
	defaultNotifyTimeout    = 15
	defaultVisionAPIURL     = "https://api.openai.com/v1/chat/completions"
	defaultVisionModel      = "gpt-4o"
	defaultVisionMaxTokens  = 4000
	defaultVisionTimeout    = 120
	defaultMonitorInterval  = 10
	defaultAnalysisEvery    = 20
	defaultPrintingState    = "PRINTING"
)

func defaultSlotPaths() []string {
	return []string{"/tmp/snapshot1.jpg", "/tmp/snapshot2.jpg", "/tmp/snapshot3.jpg"}
}

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Printer.applyDefaults(keys)
	c.Camera.applyDefaults(keys)
	c.Upload.applyDefaults(keys)
	c.Notify.applyDefaults(keys)
	c.Vision.applyDefaults(keys)
	c.Monitor.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.llm_log_path", &a.LLMLog, defaultAppLLMLogPath),
		stringFieldDefault("app.history_db_path", &a.HistoryDBPath, defaultAppHistoryDB),
	)
}

func (p *PrinterConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("printer.status_url", &p.StatusURL, defaultPrinterStatusURL),
		stringFieldDefault("printer.job_url", &p.JobURL, defaultPrinterJobURL),
		fieldDefault{
			key:   "printer.timeout_seconds",
			need:  func() bool { return p.TimeoutSeconds <= 0 },
			apply: func() { p.TimeoutSeconds = defaultPrinterTimeout },
		},
	)
}

func (c *CameraConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("camera.snapshot_url", &c.SnapshotURL, defaultCameraURL),
		fieldDefault{
			key:   "camera.slot_paths",
			need:  func() bool { return len(c.SlotPaths) == 0 },
			apply: func() { c.SlotPaths = defaultSlotPaths() },
		},
		fieldDefault{
			key:   "camera.timeout_seconds",
			need:  func() bool { return c.TimeoutSeconds <= 0 },
			apply: func() { c.TimeoutSeconds = defaultCameraTimeout },
		},
	)
}

func (u *UploadConfig) applyDefaults(keys keySet) {
	if u == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("upload.url", &u.URL, defaultUploadURL),
		fieldDefault{
			key:   "upload.timeout_seconds",
			need:  func() bool { return u.TimeoutSeconds <= 0 },
			apply: func() { u.TimeoutSeconds = defaultUploadTimeout },
		},
	)
}

func (n *NotifyConfig) applyDefaults(keys keySet) {
	if n == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("notify.base_url", &n.BaseURL, defaultNotifyBaseURL),
		stringFieldDefault("notify.status_changed_event", &n.StatusChangedEvent, defaultNotifyStatusEvt),
		stringFieldDefault("notify.stop_printing_event", &n.StopPrintingEvent, defaultNotifyStopEvt),
		fieldDefault{
			key:   "notify.timeout_seconds",
			need:  func() bool { return n.TimeoutSeconds <= 0 },
			apply: func() { n.TimeoutSeconds = defaultNotifyTimeout },
		},
	)
}

func (v *VisionConfig) applyDefaults(keys keySet) {
	if v == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("vision.api_url", &v.APIURL, defaultVisionAPIURL),
		stringFieldDefault("vision.model", &v.Model, defaultVisionModel),
		fieldDefault{
			key:   "vision.max_tokens",
			need:  func() bool { return v.MaxTokens <= 0 },
			apply: func() { v.MaxTokens = defaultVisionMaxTokens },
		},
		fieldDefault{
			key:   "vision.timeout_seconds",
			need:  func() bool { return v.TimeoutSeconds <= 0 },
			apply: func() { v.TimeoutSeconds = defaultVisionTimeout },
		},
	)
}

func (m *MonitorConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "monitor.interval_seconds",
			need:  func() bool { return m.IntervalSeconds <= 0 },
			apply: func() { m.IntervalSeconds = defaultMonitorInterval },
		},
		fieldDefault{
			key:   "monitor.analysis_every",
			need:  func() bool { return m.AnalysisEvery <= 0 },
			apply: func() { m.AnalysisEvery = defaultAnalysisEvery },
		},
		stringFieldDefault("monitor.printing_state", &m.PrintingState, defaultPrintingState),
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
