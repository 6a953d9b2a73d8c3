package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"scenereel/internal/captions"
	"scenereel/internal/project"
	"scenereel/internal/voice"
)

// Record is the build metadata written beside the final video.
type Record struct {
	RunID           string          `json:"run_id"`
	GeneratedAt     time.Time       `json:"generated_at"`
	Output          string          `json:"output"`
	SceneCount      int             `json:"scene_count"`
	DurationSeconds float64         `json:"duration_seconds"`
	TimelineSeconds []TimelineEntry `json:"timeline_seconds"`
	Size            FrameSize       `json:"size"`

	VoiceProvider             string             `json:"voice_provider"`
	RequestedVoiceProvider    string             `json:"requested_voice_provider"`
	VoiceProviderAvailability map[string]bool    `json:"voice_provider_availability"`
	AttemptedVoiceProviders   []voice.Attempt    `json:"attempted_voice_providers"`
	StrictVoice               bool               `json:"strict_voice"`
	VoiceProviderMeta         map[string]any     `json:"voice_provider_meta"`
	Voiceover                 *string            `json:"voiceover"`
	SceneAudio                []voice.SceneAudio `json:"scene_audio"`
	VoiceCache                voice.CacheStats   `json:"voice_cache"`
	VoiceAudio                AudioSettings      `json:"voice_audio"`
	Captions                  CaptionsRecord     `json:"captions"`

	FadeSeconds               float64  `json:"fade_seconds"`
	ClipTrimStartSeconds      float64  `json:"clip_trim_start_seconds"`
	ClipFirstTrimStartSeconds float64  `json:"clip_first_trim_start_seconds"`
	ClipSettlePadSeconds      float64  `json:"clip_settle_pad_seconds"`
	Transitions               []string `json:"transitions"`
	ManifestGeneratedAt       string   `json:"manifest_generated_at,omitempty"`
	BaseURL                   string   `json:"base_url,omitempty"`
}

// TimelineEntry is one scene's span, 1-based.
type TimelineEntry struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// FrameSize is the output frame geometry.
type FrameSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// AudioSettings echoes the narration fitting policy.
type AudioSettings struct {
	TargetSceneGapSeconds float64 `json:"target_scene_gap_seconds"`
	ClipFadeOutSeconds    float64 `json:"clip_fade_out_seconds"`
	MasteringFilter       string  `json:"mastering_filter"`
	SilenceTrimming       bool    `json:"silence_trimming"`
	JoinMode              string  `json:"join_mode"`
	SpeedWarping          bool    `json:"speed_warping"`
}

// CaptionsRecord points at the caption artifacts.
type CaptionsRecord struct {
	File     string        `json:"file"`
	CueCount int           `json:"cue_count"`
	Mode     captions.Mode `json:"mode"`
	CuesJSON string        `json:"cues_json"`
}

func timelineEntries(segs []project.Segment) []TimelineEntry {
	out := make([]TimelineEntry, len(segs))
	for i, s := range segs {
		out[i] = TimelineEntry{Index: s.Index + 1, Start: round(s.Start, 3), End: round(s.End, 3)}
	}
	return out
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// SaveRecord writes the record atomically.
func SaveRecord(path string, rec Record) error {
	return writeJSON(path, rec)
}

// LoadRecord reads a previously written record.
func LoadRecord(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return rec, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit %s: %w", filepath.Base(path), err)
	}
	return nil
}
