package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

var (
	llmMu          sync.Mutex
	llmLog         *log.Logger
	llmDumpPayload bool
)

// SetLLMWriter routes raw vision-model traffic to a dedicated writer.
// Passing nil disables the dump entirely.
func SetLLMWriter(w io.Writer) {
	llmMu.Lock()
	defer llmMu.Unlock()
	if w == nil {
		llmLog = nil
		return
	}
	llmLog = log.New(w, "", log.LstdFlags)
}

func EnableLLMPayloadDump(enabled bool) {
	llmMu.Lock()
	llmDumpPayload = enabled
	llmMu.Unlock()
}

type llmSection struct {
	Title string
	Body  string
}

func logLLM(kind, provider string, sections []llmSection) {
	llmMu.Lock()
	logger := llmLog
	llmMu.Unlock()
	if logger == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[LLM]")
	if kind != "" {
		b.WriteString("[")
		b.WriteString(kind)
		b.WriteString("]")
	}
	if provider != "" {
		b.WriteString("[")
		b.WriteString(provider)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		t := strings.TrimSpace(sec.Title)
		if t == "" {
			t = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(t)
		b.WriteString(" ---\n")
		b.WriteString(sec.Body)
		if !strings.HasSuffix(sec.Body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	logger.Print(b.String())
}

// LogLLMRequest records the prompts sent to the vision model. Image bodies are
// summarized by size only; the full JSON payload is appended when payload dump
// is enabled.
func LogLLMRequest(provider, systemPrompt, userPrompt string, imageSizes []int, payload string) {
	sections := []llmSection{
		{Title: "SYSTEM", Body: systemPrompt},
		{Title: "USER", Body: userPrompt},
	}
	for i, size := range imageSizes {
		sections = append(sections, llmSection{
			Title: fmt.Sprintf("IMAGE#%d", i+1),
			Body:  fmt.Sprintf("jpeg, %d bytes", size),
		})
	}
	if llmDumpPayload && strings.TrimSpace(payload) != "" {
		sections = append(sections, llmSection{Title: "PAYLOAD", Body: payload})
	}
	logLLM("request", provider, sections)
}

func LogLLMResponse(provider, raw string) {
	logLLM("response", provider, []llmSection{{Title: "RAW", Body: raw}})
}
