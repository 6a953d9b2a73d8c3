package project

import (
	"errors"
	"fmt"
	"math"
)

// MinSlotSeconds is the shortest audio slot a non-terminal scene may own.
const MinSlotSeconds = 0.1

// Segment is the span one scene occupies in the composed video.
// Consecutive segments overlap by exactly the cross-fade duration.
type Segment struct {
	Index    int     `json:"index"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

// BuildTimeline places each clip so that segment i starts at the cumulative
// duration of the prior clips minus i*fade and lasts exactly its own clip.
// Every clip but the last must outlast the fade by at least MinSlotSeconds,
// otherwise its narration slot could not match its place in the video.
func BuildTimeline(durations []float64, fade float64) ([]Segment, error) {
	if len(durations) == 0 {
		return nil, errors.New("timeline requires at least one clip")
	}
	if fade < 0 || math.IsNaN(fade) {
		return nil, fmt.Errorf("invalid cross-fade duration %v", fade)
	}

	segments := make([]Segment, len(durations))
	cursor := 0.0
	for i, d := range durations {
		if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return nil, fmt.Errorf("clip %d has invalid duration %v", i+1, d)
		}
		if i < len(durations)-1 && d-fade < MinSlotSeconds {
			return nil, fmt.Errorf("clip %d lasts %.3fs, too short for a %.3fs cross-fade", i+1, d, fade)
		}
		segments[i] = Segment{Index: i, Start: cursor, End: cursor + d, Duration: d}
		cursor += d - fade
	}
	return segments, nil
}

// SlotDuration is the time scene i owns on the narration track: its clip
// minus the fade hidden under the next transition, or the full clip for the
// last scene.
func SlotDuration(segments []Segment, i int, fade float64) float64 {
	if i < 0 || i >= len(segments) {
		return 0
	}
	d := segments[i].Duration
	if i == len(segments)-1 {
		return d
	}
	return d - fade
}

// TotalDuration is the end of the final segment.
func TotalDuration(segments []Segment) float64 {
	if len(segments) == 0 {
		return 0
	}
	return segments[len(segments)-1].End
}
