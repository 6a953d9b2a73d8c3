package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"scenereel/internal/captions"
	"scenereel/internal/config"
)

const maxErrorBody = 400

// ElevenLabs calls the text-to-speech with-timestamps endpoint, which returns
// audio and per-character alignment in one response.
type ElevenLabs struct {
	cfg    config.ElevenLabsConfig
	media  Media
	client *http.Client
}

// NewElevenLabs creates a client. The request timeout comes from cfg.
func NewElevenLabs(cfg config.ElevenLabsConfig, media Media) *ElevenLabs {
	return &ElevenLabs{
		cfg:    cfg,
		media:  media,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (e *ElevenLabs) Name() string { return config.ProviderElevenLabs }

func (e *ElevenLabs) Available(context.Context) bool {
	return strings.TrimSpace(e.cfg.APIKey) != ""
}

func (e *ElevenLabs) Settings() map[string]any {
	return map[string]any{
		"voice_id":          e.cfg.VoiceID,
		"model_id":          e.cfg.ModelID,
		"output_format":     e.cfg.OutputFormat,
		"endpoint":          e.cfg.Endpoint,
		"stability":         e.cfg.Stability,
		"similarity_boost":  e.cfg.SimilarityBoost,
		"style":             e.cfg.Style,
		"use_speaker_boost": e.cfg.SpeakerBoostValue(),
		"speed":             e.cfg.Speed,
	}
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	OutputFormat  string                  `json:"output_format"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
	Speed           float64 `json:"speed"`
}

type elevenLabsResponse struct {
	AudioBase64         string               `json:"audio_base64"`
	Alignment           *elevenLabsAlignment `json:"alignment"`
	NormalizedAlignment *elevenLabsAlignment `json:"normalized_alignment"`
}

// elevenLabsAlignment accepts both the documented field names and the
// shorter variants some API versions return, in seconds or milliseconds.
type elevenLabsAlignment struct {
	Characters       []string  `json:"characters"`
	Chars            []string  `json:"chars"`
	CharStartSeconds []float64 `json:"character_start_times_seconds"`
	CharEndSeconds   []float64 `json:"character_end_times_seconds"`
	ShortStartSec    []float64 `json:"char_start_times_seconds"`
	ShortEndSec      []float64 `json:"char_end_times_seconds"`
	CharStartMs      []float64 `json:"character_start_times_ms"`
	CharEndMs        []float64 `json:"character_end_times_ms"`
	ShortStartMs     []float64 `json:"char_start_times_ms"`
	ShortEndMs       []float64 `json:"char_end_times_ms"`
}

func (a *elevenLabsAlignment) toAlignment() *captions.Alignment {
	if a == nil {
		return nil
	}
	chars := a.Characters
	if len(chars) == 0 {
		chars = a.Chars
	}
	if len(chars) == 0 {
		return nil
	}
	starts := firstSeries(a.CharStartSeconds, a.ShortStartSec, millis(a.CharStartMs), millis(a.ShortStartMs))
	ends := firstSeries(a.CharEndSeconds, a.ShortEndSec, millis(a.CharEndMs), millis(a.ShortEndMs))
	if starts == nil || ends == nil {
		return nil
	}
	return &captions.Alignment{Characters: chars, Starts: starts, Ends: ends}
}

func firstSeries(series ...[]float64) []float64 {
	for _, s := range series {
		if s != nil {
			return s
		}
	}
	return nil
}

func millis(values []float64) []float64 {
	if values == nil {
		return nil
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v / 1000
	}
	return out
}

func (e *ElevenLabs) Synthesize(ctx context.Context, text, out string) (Synthesis, error) {
	if !e.Available(ctx) {
		return Synthesis{}, errors.New("missing ELEVENLABS_API_KEY")
	}

	payload, err := json.Marshal(elevenLabsRequest{
		Text:         text,
		ModelID:      e.cfg.ModelID,
		OutputFormat: e.cfg.OutputFormat,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       e.cfg.Stability,
			SimilarityBoost: e.cfg.SimilarityBoost,
			Style:           e.cfg.Style,
			UseSpeakerBoost: e.cfg.SpeakerBoostValue(),
			Speed:           e.cfg.Speed,
		},
	})
	if err != nil {
		return Synthesis{}, fmt.Errorf("encode request: %w", err)
	}

	url := strings.TrimRight(e.cfg.Endpoint, "/") + "/v1/text-to-speech/" + e.cfg.VoiceID + "/with-timestamps"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Synthesis{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return Synthesis{}, fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Synthesis{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		details := strings.TrimSpace(string(body))
		if len(details) > maxErrorBody {
			details = details[:maxErrorBody]
		}
		return Synthesis{}, fmt.Errorf("elevenlabs API error (status %d): %s", resp.StatusCode, details)
	}

	var result elevenLabsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return Synthesis{}, fmt.Errorf("decode response: %w", err)
	}
	if result.AudioBase64 == "" {
		return Synthesis{}, errors.New("elevenlabs did not return audio_base64")
	}
	audio, err := base64.StdEncoding.DecodeString(result.AudioBase64)
	if err != nil {
		return Synthesis{}, fmt.Errorf("decode audio: %w", err)
	}

	encoded := strings.TrimSuffix(out, ".wav") + ".elevenlabs.mp3"
	if err := os.WriteFile(encoded, audio, 0o644); err != nil {
		return Synthesis{}, fmt.Errorf("write audio: %w", err)
	}
	defer os.Remove(encoded)
	if err := e.media.Transcode(ctx, encoded, out); err != nil {
		return Synthesis{}, err
	}

	alignment := result.NormalizedAlignment
	if alignment == nil {
		alignment = result.Alignment
	}
	return Synthesis{
		Alignment: alignment.toAlignment(),
		Meta: map[string]any{
			"voice_id":      e.cfg.VoiceID,
			"model_id":      e.cfg.ModelID,
			"output_format": e.cfg.OutputFormat,
		},
	}, nil
}
