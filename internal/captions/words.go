package captions

import (
	"math"
	"strings"
	"unicode"
)

const (
	minWordSeconds     = 0.02
	defaultCharSeconds = 0.04
	maxWordWeight      = 12
)

// Word is one timed token relative to the start of its scene's voice track.
type Word struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Alignment holds per-character timings reported by a speech provider.
// Starts and Ends may be shorter than Characters; missing entries are
// inferred from neighbours.
type Alignment struct {
	Characters []string  `json:"characters"`
	Starts     []float64 `json:"starts"`
	Ends       []float64 `json:"ends"`
}

// Empty reports whether the alignment carries no characters.
func (a *Alignment) Empty() bool {
	return a == nil || len(a.Characters) == 0
}

// WordsFromAlignment groups aligned characters into words. Whitespace ends
// a word and so does trailing clause punctuation.
func WordsFromAlignment(a *Alignment) []Word {
	if a.Empty() {
		return nil
	}

	var (
		out     []Word
		current strings.Builder
		start   = math.NaN()
		end     = math.NaN()
	)
	flush := func() {
		text := NormalizeCueText(current.String())
		if text != "" && !math.IsNaN(start) && !math.IsNaN(end) && end > start {
			out = append(out, Word{Text: text, Start: start, End: end})
		}
		current.Reset()
		start, end = math.NaN(), math.NaN()
	}

	for i, ch := range a.Characters {
		prev := end
		if math.IsNaN(prev) {
			prev = 0
		}
		s := valueAt(a.Starts, i, prev)
		e := math.Max(s+minWordSeconds, valueAt(a.Ends, i, s+defaultCharSeconds))

		if strings.TrimSpace(ch) == "" {
			flush()
			continue
		}
		if math.IsNaN(start) {
			start = s
		}
		current.WriteString(ch)
		end = e

		if strings.ContainsAny(ch[len(ch)-1:], ".!?;:") {
			flush()
		}
	}
	flush()
	return out
}

func valueAt(values []float64, i int, fallback float64) float64 {
	if i < len(values) && !math.IsNaN(values[i]) && !math.IsInf(values[i], 0) {
		return values[i]
	}
	return fallback
}

// EstimateWords spreads duration across the words of text in proportion to
// their letter counts, capped so long words do not dominate.
func EstimateWords(text string, duration float64) []Word {
	words := strings.Fields(NormalizeText(text))
	if len(words) == 0 || duration <= 0 {
		return nil
	}

	weights := make([]float64, len(words))
	total := 0.0
	for i, w := range words {
		weights[i] = float64(min(max(wordCore(w), 1), maxWordWeight))
		total += weights[i]
	}

	out := make([]Word, len(words))
	cursor := 0.0
	for i, w := range words {
		start := cursor
		cursor += duration * weights[i] / total
		out[i] = Word{Text: w, Start: start, End: math.Min(duration, cursor)}
	}
	return out
}

func wordCore(w string) int {
	n := 0
	for _, r := range w {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			n++
		}
	}
	return n
}

// ClampWords confines words to [0, limit], keeps each at least a sliver
// long, and drops any that collapse.
func ClampWords(words []Word, limit float64) []Word {
	out := make([]Word, 0, len(words))
	for _, w := range words {
		start := clamp(w.Start, 0, limit)
		end := clamp(w.End, start+minWordSeconds, limit)
		if end-start > minWordSeconds {
			out = append(out, Word{Text: w.Text, Start: start, End: end})
		}
	}
	return out
}

// clamp bounds v to [lo, hi]; hi wins when the bounds cross.
func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
