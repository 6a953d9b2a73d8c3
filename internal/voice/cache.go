package voice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"scenereel/internal/captions"
)

const lockRetry = 50 * time.Millisecond

// Entry is the metadata stored beside each cached audio file.
type Entry struct {
	Provider  string              `json:"provider"`
	CacheKey  string              `json:"cache_key"`
	Text      string              `json:"text"`
	Settings  map[string]any      `json:"settings"`
	Duration  float64             `json:"duration"`
	Alignment *captions.Alignment `json:"alignment"`
	Meta      map[string]any      `json:"meta"`
	CreatedAt time.Time           `json:"created_at"`
}

// Store is a content-addressed cache of synthesized audio laid out as
// <root>/<provider>/<key>.wav with a <key>.json sidecar. Entries are never
// rewritten in place.
type Store struct {
	Root string
	now  func() time.Time
}

// NewStore opens a cache rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Root: dir, now: time.Now}
}

type keyDescriptor struct {
	Provider string         `json:"provider"`
	Text     string         `json:"text"`
	Settings map[string]any `json:"settings"`
}

// Key derives the cache key for text spoken by provider with settings.
// Equal inputs always produce the same key.
func Key(provider, text string, settings map[string]any) (string, error) {
	if settings == nil {
		settings = map[string]any{}
	}
	data, err := json.Marshal(keyDescriptor{Provider: provider, Text: text, Settings: settings})
	if err != nil {
		return "", fmt.Errorf("encode cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func (s *Store) audioPath(provider, key string) string {
	return filepath.Join(s.Root, provider, key+".wav")
}

func (s *Store) metaPath(provider, key string) string {
	return filepath.Join(s.Root, provider, key+".json")
}

// Lookup copies a cached entry's audio to dst. A missing or unreadable
// sidecar counts as a miss.
func (s *Store) Lookup(provider, key, dst string) (Entry, bool, error) {
	audio := s.audioPath(provider, key)
	if _, err := os.Stat(audio); err != nil {
		return Entry{}, false, nil
	}
	data, err := os.ReadFile(s.metaPath(provider, key))
	if err != nil {
		return Entry{}, false, nil
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, false, nil
	}
	if err := copyAtomic(audio, dst); err != nil {
		return Entry{}, false, fmt.Errorf("restore cached audio: %w", err)
	}
	return entry, true, nil
}

// Put stores audio and its sidecar under the provider's lock. The audio is
// published before the sidecar so a visible sidecar implies complete audio.
func (s *Store) Put(ctx context.Context, entry Entry, audio string) error {
	if entry.Provider == "" || entry.CacheKey == "" {
		return errors.New("cache entry requires provider and key")
	}
	dir := filepath.Join(s.Root, entry.Provider)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	lock := flock.New(filepath.Join(dir, ".lock"))
	locked, err := lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("lock voice cache: %w", err)
	}
	if !locked {
		return errors.New("lock voice cache: not acquired")
	}
	defer lock.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if err := copyAtomic(audio, s.audioPath(entry.Provider, entry.CacheKey)); err != nil {
		return fmt.Errorf("store cached audio: %w", err)
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	data = append(data, '\n')
	return writeAtomic(s.metaPath(entry.Provider, entry.CacheKey), data)
}

// Listing is one cached entry with its on-disk footprint.
type Listing struct {
	Entry
	AudioPath string
	Bytes     int64
}

// List returns every readable entry, newest first. provider filters when
// non-empty.
func (s *Store) List(provider string) ([]Listing, error) {
	pattern := filepath.Join(s.Root, "*", "*.json")
	if provider != "" {
		pattern = filepath.Join(s.Root, provider, "*.json")
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}

	var out []Listing
	for _, meta := range matches {
		data, err := os.ReadFile(meta)
		if err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		audio := strings.TrimSuffix(meta, ".json") + ".wav"
		info, err := os.Stat(audio)
		if err != nil {
			continue
		}
		out = append(out, Listing{Entry: entry, AudioPath: audio, Bytes: info.Size() + int64(len(data))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Find returns the entry whose key starts with prefix. Ambiguous prefixes
// are an error.
func (s *Store) Find(prefix string) (Listing, error) {
	entries, err := s.List("")
	if err != nil {
		return Listing{}, err
	}
	var found []Listing
	for _, e := range entries {
		if strings.HasPrefix(e.CacheKey, prefix) {
			found = append(found, e)
		}
	}
	switch len(found) {
	case 0:
		return Listing{}, fmt.Errorf("no cache entry matches %q", prefix)
	case 1:
		return found[0], nil
	default:
		return Listing{}, fmt.Errorf("%d cache entries match %q", len(found), prefix)
	}
}

// PruneOptions selects entries to delete.
type PruneOptions struct {
	Provider  string
	OlderThan time.Duration
	DryRun    bool
}

// PruneResult summarises a prune.
type PruneResult struct {
	Removed int
	Bytes   int64
}

// Prune deletes matching entries. A zero OlderThan matches everything.
func (s *Store) Prune(ctx context.Context, opts PruneOptions) (PruneResult, error) {
	entries, err := s.List(opts.Provider)
	if err != nil {
		return PruneResult{}, err
	}
	cutoff := time.Time{}
	if opts.OlderThan > 0 {
		cutoff = s.now().Add(-opts.OlderThan)
	}

	var res PruneResult
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !cutoff.IsZero() && e.CreatedAt.After(cutoff) {
			continue
		}
		if !opts.DryRun {
			if err := os.Remove(strings.TrimSuffix(e.AudioPath, ".wav") + ".json"); err != nil && !errors.Is(err, os.ErrNotExist) {
				return res, err
			}
			if err := os.Remove(e.AudioPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				return res, err
			}
		}
		res.Removed++
		res.Bytes += e.Bytes
	}
	return res, nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func copyAtomic(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
