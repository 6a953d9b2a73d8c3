package captions

import (
	"math"
	"sort"
	"strings"

	"scenereel/internal/config"
	"scenereel/internal/project"
)

const (
	// MinCueSeconds is the shortest cue the finalizer will emit.
	MinCueSeconds    = 0.05
	terminalPunct    = ".!?"
	defaultCueLength = 0.75
)

// Cue is one subtitle entry on the output timeline.
type Cue struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Mode describes where caption timing came from.
type Mode string

const (
	ModeAligned   Mode = "aligned"
	ModeHybrid    Mode = "hybrid"
	ModeEstimated Mode = "estimated"
	// ModeScene is reported when no narration was produced.
	ModeScene Mode = "scene"
)

// ModeFor classifies a run by how many of its voiced scenes had alignment.
func ModeFor(alignedScenes, totalScenes int) Mode {
	switch {
	case totalScenes > 0 && alignedScenes >= totalScenes:
		return ModeAligned
	case alignedScenes > 0:
		return ModeHybrid
	default:
		return ModeEstimated
	}
}

// Chunk groups words into cues for one scene. A chunk closes on the word
// budget, the time budget, or sentence-terminal punctuation once it holds at
// least MinBreakWords words. Word times are relative to the scene; cue times
// are shifted by sceneStart.
func Chunk(words []Word, sceneStart, sceneDuration float64, opts config.CaptionsConfig) []Cue {
	if len(words) == 0 {
		return nil
	}
	maxWords := max(opts.MaxWords, 1)
	minBreak := max(opts.MinBreakWords, 1)

	var (
		out   []Cue
		chunk []Word
	)
	flush := func() {
		if len(chunk) == 0 {
			return
		}
		rawStart := clamp(chunk[0].Start, 0, sceneDuration)
		rawEnd := clamp(chunk[len(chunk)-1].End, 0, sceneDuration)
		end := math.Max(rawEnd, math.Min(sceneDuration, rawStart+opts.MinSec))

		parts := make([]string, len(chunk))
		for i, w := range chunk {
			parts[i] = w.Text
		}
		text := NormalizeCueText(strings.Join(parts, " "))
		if text != "" && end-rawStart > MinCueSeconds {
			out = append(out, Cue{Start: sceneStart + rawStart, End: sceneStart + end, Text: text})
		}
		chunk = chunk[:0]
	}

	for _, w := range words {
		chunk = append(chunk, w)
		overWords := len(chunk) >= maxWords
		overTime := opts.MaxSec > 0 && w.End-chunk[0].Start >= opts.MaxSec
		sentenceEnd := len(chunk) >= minBreak && endsWithAny(w.Text, terminalPunct)
		if overWords || overTime || sentenceEnd {
			flush()
		}
	}
	flush()
	return out
}

// SceneCues chunks a scene's words and, when nothing survives, falls back
// to a single cue covering the whole slot.
func SceneCues(words []Word, seg project.Segment, slot float64, text string, opts config.CaptionsConfig) []Cue {
	if cues := Chunk(words, seg.Start, slot, opts); len(cues) > 0 {
		return cues
	}
	return []Cue{{Start: seg.Start, End: seg.Start + slot, Text: NormalizeCueText(text)}}
}

// SceneText is the caption source for one scene when no narration exists.
type SceneText struct {
	Text string
	Slot float64
}

// FallbackCues estimates cues for every scene from its text alone.
func FallbackCues(scenes []SceneText, segments []project.Segment, opts config.CaptionsConfig) []Cue {
	var cues []Cue
	for i, seg := range segments {
		if i >= len(scenes) {
			break
		}
		sc := scenes[i]
		words := EstimateWords(sc.Text, sc.Slot)
		cues = append(cues, SceneCues(words, seg, sc.Slot, sc.Text, opts)...)
	}
	return cues
}

// Finalize drops empty cues, enforces a minimum length, sorts by start and
// stretches the last cue to the end of the video.
func Finalize(cues []Cue, total float64) []Cue {
	out := make([]Cue, 0, len(cues))
	for _, c := range cues {
		text := NormalizeCueText(c.Text)
		if text == "" {
			continue
		}
		start := c.Start
		if math.IsNaN(start) || start < 0 {
			start = 0
		}
		end := c.End
		if math.IsNaN(end) {
			end = start + defaultCueLength
		}
		end = math.Max(end, start+MinCueSeconds)
		out = append(out, Cue{Start: start, End: end, Text: text})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })

	if len(out) > 0 && total > 0 {
		last := &out[len(out)-1]
		last.End = math.Max(last.End, total)
	}
	return out
}

func endsWithAny(text, chars string) bool {
	return text != "" && strings.ContainsAny(text[len(text)-1:], chars)
}
