package tools

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrMissing is wrapped by MissingError.
var ErrMissing = errors.New("required tool unavailable")

// MissingError lists required tools that could not be satisfied.
type MissingError struct {
	Statuses []Status
}

func (e *MissingError) Error() string {
	parts := make([]string, 0, len(e.Statuses))
	for _, st := range e.Statuses {
		msg := st.Tool
		if st.Error != "" {
			msg = fmt.Sprintf("%s (%s)", st.Tool, st.Error)
		}
		parts = append(parts, msg)
	}
	return "required tools unavailable: " + strings.Join(parts, ", ")
}

func (e *MissingError) Unwrap() error { return ErrMissing }

// Test seams.
var (
	lookPath    = exec.LookPath
	readVersion = execVersion
)

const versionTimeout = 5 * time.Second

// Detect resolves every known tool.
func Detect(ctx context.Context) []Status {
	names := KnownTools()
	statuses := make([]Status, 0, len(names))
	for _, name := range names {
		statuses = append(statuses, Lookup(ctx, name))
	}
	return statuses
}

// Lookup resolves a single tool by name.
func Lookup(ctx context.Context, name string) Status {
	if ctx == nil {
		ctx = context.Background()
	}
	def, ok := Definition(name)
	if !ok {
		return Status{Tool: name, Error: "unknown tool"}
	}

	status := Status{
		Tool:     def.Name,
		Purpose:  def.Purpose,
		Minimum:  def.MinimumVersion,
		Required: def.Required,
	}

	found := make(map[string]string, len(def.Binaries))
	for _, bin := range def.Binaries {
		path, err := lookPath(bin.Executable)
		if err != nil {
			status.Error = fmt.Sprintf("%s not found in PATH", bin.Executable)
			status.Hints = installHints(def.Name)
			return status
		}
		found[bin.ID] = path
	}
	primary := def.Binaries[0]
	status.Paths = found
	status.Path = found[primary.ID]

	if primary.VersionSwitch != "" {
		vctx, cancel := context.WithTimeout(ctx, versionTimeout)
		line, err := readVersion(vctx, status.Path, primary.VersionSwitch)
		cancel()
		if err != nil {
			status.Error = fmt.Sprintf("%s version: %v", def.Name, err)
			return status
		}
		status.Version = normalizeVersion(def.Name, line)
	}

	status.Satisfied = meetsMinimum(status.Version, def.MinimumVersion)
	if !status.Satisfied {
		status.Error = fmt.Sprintf("version %s below minimum %s", status.Version, def.MinimumVersion)
	}
	return status
}

// Available reports whether the named tool resolves and satisfies its minimum.
func Available(ctx context.Context, name string) bool {
	return Lookup(ctx, name).Satisfied
}

// Require resolves the named tools and returns binary paths keyed by binary
// ID. Any unsatisfied tool yields a *MissingError.
func Require(ctx context.Context, names ...string) (map[string]string, error) {
	paths := make(map[string]string)
	var missing []Status
	for _, name := range names {
		st := Lookup(ctx, name)
		if !st.Satisfied {
			missing = append(missing, st)
			continue
		}
		for id, path := range st.Paths {
			paths[id] = path
		}
	}
	if len(missing) > 0 {
		return nil, &MissingError{Statuses: missing}
	}
	return paths, nil
}

func execVersion(ctx context.Context, path, versionSwitch string) (string, error) {
	output, err := exec.CommandContext(ctx, path, versionSwitch).Output()
	if err != nil {
		return "", err
	}
	return firstLine(strings.TrimSpace(string(output))), nil
}
