// Package captions turns spoken text and word timings into subtitle cues.
package captions

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRun    = regexp.MustCompile(`\s+`)
	spaceBeforePunct = regexp.MustCompile(`\s+([,.;:!?])`)
)

// NormalizeText composes the text to NFC and collapses whitespace runs.
func NormalizeText(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(norm.NFC.String(text), " "))
}

// NormalizeCueText is NormalizeText with spaces before punctuation removed.
func NormalizeCueText(text string) string {
	return spaceBeforePunct.ReplaceAllString(NormalizeText(text), "$1")
}
