package manifest

import (
	"errors"
	"strconv"
	"strings"
)

// ErrNoScenes is returned when a manifest parses but lists no scenes.
var ErrNoScenes = errors.New("manifest contains no scenes")

// ValidationError captures a single scene-level validation problem.
type ValidationError struct {
	Scene   int
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	parts := []string{formatScene(e.Scene)}
	if e.Field != "" {
		parts = append(parts, e.Field)
	}
	parts = append(parts, e.Message)
	return strings.TrimSpace(strings.Join(parts, " "))
}

// ValidationErrors aggregates multiple validation issues.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return "manifest validation failed"
	}
	messages := make([]string, len(errs))
	for i, err := range errs {
		messages[i] = err.Error()
	}
	return strings.Join(messages, "; ")
}

// Issues returns a copy of the underlying validation errors.
func (errs ValidationErrors) Issues() []ValidationError {
	return append([]ValidationError(nil), errs...)
}

func formatScene(index int) string {
	if index <= 0 {
		return "manifest"
	}
	return "scene " + strconv.Itoa(index)
}
