package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultWidth  = 1280
	DefaultHeight = 720
)

// Size is the declared output frame size.
type Size struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Scene is one ordered manifest entry. Scenes are never reordered.
type Scene struct {
	Index     int    `json:"index" yaml:"index"`
	ID        string `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	Caption   string `json:"caption" yaml:"caption"`
	Voiceover string `json:"voiceover" yaml:"voiceover"`
	Clip      string `json:"clip" yaml:"clip"`
	Frame     string `json:"frame" yaml:"frame"`
}

// Manifest describes the captured scenes handed to the composer.
type Manifest struct {
	GeneratedAt string  `json:"generated_at" yaml:"generated_at"`
	BaseURL     string  `json:"base_url" yaml:"base_url"`
	Size        Size    `json:"size" yaml:"size"`
	Scenes      []Scene `json:"scenes" yaml:"scenes"`
}

// Load reads and validates a manifest file. JSON is the native format;
// files ending in .yaml or .yml are decoded as YAML.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes manifest bytes using the format implied by ext.
func Parse(data []byte, ext string) (Manifest, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Manifest{}, errors.New("manifest file is empty")
	}

	var m Manifest
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return Manifest{}, fmt.Errorf("parse manifest yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &m); err != nil {
			return Manifest{}, fmt.Errorf("parse manifest json: %w", err)
		}
	}

	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return m, err
	}
	return m, nil
}

func (m *Manifest) applyDefaults() {
	if m.Size.Width <= 0 {
		m.Size.Width = DefaultWidth
	}
	if m.Size.Height <= 0 {
		m.Size.Height = DefaultHeight
	}
	for i := range m.Scenes {
		s := &m.Scenes[i]
		s.ID = strings.TrimSpace(s.ID)
		s.Clip = strings.TrimSpace(s.Clip)
		if s.Index <= 0 {
			s.Index = i + 1
		}
	}
}

// Validate reports structural problems. A manifest with no scenes yields
// ErrNoScenes; per-scene problems are returned as ValidationErrors.
func (m Manifest) Validate() error {
	if len(m.Scenes) == 0 {
		return ErrNoScenes
	}

	var errs ValidationErrors
	seen := make(map[string]int, len(m.Scenes))
	for i, s := range m.Scenes {
		pos := i + 1
		if s.ID == "" {
			errs = append(errs, ValidationError{Scene: pos, Field: "id", Message: "is required"})
		} else if prev, ok := seen[s.ID]; ok {
			errs = append(errs, ValidationError{Scene: pos, Field: "id", Message: fmt.Sprintf("duplicates scene %d", prev)})
		} else {
			seen[s.ID] = pos
		}
		if s.Clip == "" {
			errs = append(errs, ValidationError{Scene: pos, Field: "clip", Message: "is required"})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SpokenText is the text narrated for the scene: voiceover, then caption, then title.
func (s Scene) SpokenText() string {
	return firstNonEmpty(s.Voiceover, s.Caption, s.Title)
}

// Label is the text shown when a scene has nothing to narrate.
func (s Scene) Label(position int) string {
	if label := firstNonEmpty(s.Caption, s.Title); label != "" {
		return label
	}
	return "Scene " + strconv.Itoa(position)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
