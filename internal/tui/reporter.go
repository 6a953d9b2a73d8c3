package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"scenereel/internal/voice"
)

// Column headers of the compose table.
const (
	ColStep   = "STEP"
	ColStatus = "STATUS"
	ColDetail = "DETAIL"
)

// sceneStatus maps a fitted scene track to its row status and detail.
func sceneStatus(provider string, audio voice.SceneAudio) (string, string) {
	if audio.Silent {
		return StatusSilent, fmt.Sprintf("%s: no narration, slot %.2fs", provider, audio.Slot)
	}
	detail := fmt.Sprintf("%s: raw %.2fs / slot %.2fs", provider, audio.Raw, audio.Slot)
	switch {
	case audio.Clipped:
		return StatusClipped, detail
	case audio.CacheHit:
		return StatusCached, detail
	default:
		return StatusVoiced, detail
	}
}

// PipelineReporter forwards pipeline progress to a running ProgressModel.
type PipelineReporter struct {
	send           func(tea.Msg)
	narrationStage string
}

// NewPipelineReporter constructs a reporter that emits model messages
// through send.
func NewPipelineReporter(send func(tea.Msg), narrationStage string) *PipelineReporter {
	return &PipelineReporter{send: send, narrationStage: narrationStage}
}

func (r *PipelineReporter) update(key, status, detail string) {
	r.send(RowUpdateMsg{Key: key, Status: status, Detail: detail})
}

// StageStarted marks a stage as running.
func (r *PipelineReporter) StageStarted(stage string) {
	r.update(StageKey(stage), StatusRunning, "")
}

// StageDone marks a stage as finished.
func (r *PipelineReporter) StageDone(stage, detail string) {
	r.update(StageKey(stage), StatusDone, detail)
}

// StageFailed marks a stage as failed.
func (r *PipelineReporter) StageFailed(stage string, err error) {
	r.update(StageKey(stage), StatusFailed, firstLine(err.Error()))
}

// ProviderStarted announces a fresh provider attempt.
func (r *PipelineReporter) ProviderStarted(provider string) {
	r.send(ProviderMsg{Provider: provider})
}

// SceneDone records the fitted track of one scene.
func (r *PipelineReporter) SceneDone(provider string, audio voice.SceneAudio) {
	status, detail := sceneStatus(provider, audio)
	r.update(SceneKey(audio.Index), status, detail)
}

// ProviderFailed shows why the current provider was abandoned.
func (r *PipelineReporter) ProviderFailed(provider, reason string) {
	r.update(StageKey(r.narrationStage), StatusTrying, fmt.Sprintf("%s failed: %s", provider, firstLine(reason)))
}

// PlainReporter writes one line per progress event. It is used when stdout
// is not a terminal or progress rendering is disabled.
type PlainReporter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewPlainReporter constructs a line-oriented reporter.
func NewPlainReporter(out io.Writer) *PlainReporter {
	return &PlainReporter{out: out}
}

func (r *PlainReporter) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format+"\n", args...)
}

// StageStarted implements the pipeline reporter.
func (r *PlainReporter) StageStarted(stage string) {
	r.printf("[%s] started", stage)
}

// StageDone implements the pipeline reporter.
func (r *PlainReporter) StageDone(stage, detail string) {
	if detail == "" {
		r.printf("[%s] done", stage)
		return
	}
	r.printf("[%s] done: %s", stage, detail)
}

// StageFailed implements the pipeline reporter.
func (r *PlainReporter) StageFailed(stage string, err error) {
	r.printf("[%s] failed: %v", stage, err)
}

// ProviderStarted implements the pipeline reporter.
func (r *PlainReporter) ProviderStarted(provider string) {
	r.printf("[narration] trying %s", provider)
}

// SceneDone implements the pipeline reporter.
func (r *PlainReporter) SceneDone(provider string, audio voice.SceneAudio) {
	status, detail := sceneStatus(provider, audio)
	r.printf("[narration] scene %02d %s %s (%s)", audio.Index, audio.ID, status, detail)
}

// ProviderFailed implements the pipeline reporter.
func (r *PlainReporter) ProviderFailed(provider, reason string) {
	r.printf("[narration] %s failed: %s", provider, reason)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
