package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the main configuration carrier for the monitor daemon.
type Config struct {
	App     AppConfig     `toml:"app"`
	Printer PrinterConfig `toml:"printer"`
	Camera  CameraConfig  `toml:"camera"`
	Upload  UploadConfig  `toml:"upload"`
	Notify  NotifyConfig  `toml:"notify"`
	Vision  VisionConfig  `toml:"vision"`
	Monitor MonitorConfig `toml:"monitor"`
}

type AppConfig struct {
	Env           string `toml:"env"`
	LogLevel      string `toml:"log_level"`
	HTTPAddr      string `toml:"http_addr"`
	LogPath       string `toml:"log_path"`
	LLMLog        string `toml:"llm_log_path"`
	LLMDump       bool   `toml:"llm_dump_payload"`
	HistoryDBPath string `toml:"history_db_path"`
}

// PrinterConfig describes the printer's local HTTP API (PrusaLink style).
type PrinterConfig struct {
	StatusURL      string `toml:"status_url"`
	JobURL         string `toml:"job_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// CameraConfig describes the snapshot source and the rotating local slots the
// downloaded frames cycle through.
type CameraConfig struct {
	SnapshotURL    string   `toml:"snapshot_url"`
	SlotPaths      []string `toml:"slot_paths"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

type UploadConfig struct {
	URL            string `toml:"url"`
	Token          string `toml:"token"`
	Fingerprint    string `toml:"fingerprint"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// NotifyConfig describes the maker-webhook endpoints. Full URLs are composed
// from base_url + event name + auth key.
type NotifyConfig struct {
	BaseURL            string `toml:"base_url"`
	AuthKey            string `toml:"auth_key"`
	StatusChangedEvent string `toml:"status_changed_event"`
	StopPrintingEvent  string `toml:"stop_printing_event"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
}

type VisionConfig struct {
	APIURL         string `toml:"api_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	MaxTokens      int    `toml:"max_tokens"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	PromptsPath    string `toml:"prompts_path"`
}

type MonitorConfig struct {
	IntervalSeconds int    `toml:"interval_seconds"`
	AnalysisEvery   int    `toml:"analysis_every"`
	PrintingState   string `toml:"printing_state"`
}

// Interval returns the poll cadence as a duration.
func (m MonitorConfig) Interval() time.Duration {
	return time.Duration(m.IntervalSeconds) * time.Second
}

func (p PrinterConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

func (c CameraConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (u UploadConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutSeconds) * time.Second
}

func (n NotifyConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds) * time.Second
}

func (v VisionConfig) Timeout() time.Duration {
	return time.Duration(v.TimeoutSeconds) * time.Second
}

// StatusChangedURL composes the JSON-payload webhook URL for state changes.
func (n NotifyConfig) StatusChangedURL() string {
	base := strings.TrimRight(n.BaseURL, "/")
	return fmt.Sprintf("%s/trigger/%s/json/with/key/%s", base, n.StatusChangedEvent, n.AuthKey)
}

// StopPrintingURL composes the bodyless webhook URL for the stop escalation.
func (n NotifyConfig) StopPrintingURL() string {
	base := strings.TrimRight(n.BaseURL, "/")
	return fmt.Sprintf("%s/trigger/%s/with/key/%s", base, n.StopPrintingEvent, n.AuthKey)
}

// keySet records which config keys the user set explicitly, so defaults only
// fill the gaps.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
