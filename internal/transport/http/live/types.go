package livehttp

import "time"

// monitorStateResponse mirrors the loop's published status for the API.
type monitorStateResponse struct {
	At                  time.Time `json:"at"`
	PrinterState        string    `json:"printer_state"`
	LastSentState       *string   `json:"last_sent_state"`
	LastSentDisplayName *string   `json:"last_sent_display_name"`
	SlotIndex           int       `json:"slot_index"`
	CycleCount          int       `json:"cycle_count"`
	PrevVerdict         string    `json:"prev_verdict"`
	ConfirmedFailure    bool      `json:"confirmed_failure"`
	LastError           string    `json:"last_error,omitempty"`
}

type eventResponse struct {
	ID          uint      `json:"id"`
	Kind        string    `json:"kind"`
	State       string    `json:"state,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	SendError   string    `json:"send_error,omitempty"`
	At          time.Time `json:"at"`
}

type analysisResponse struct {
	ID               uint      `json:"id"`
	TraceID          string    `json:"trace_id"`
	Verdict          string    `json:"verdict"`
	PreviousVerdict  string    `json:"previous_verdict"`
	ConfirmedFailure bool      `json:"confirmed_failure"`
	StopFired        bool      `json:"stop_fired"`
	ResponseExcerpt  string    `json:"response_excerpt,omitempty"`
	Note             string    `json:"note,omitempty"`
	At               time.Time `json:"at"`
}
