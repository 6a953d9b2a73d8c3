package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "scenereel"

// runMetrics collects one run's figures for a node_exporter textfile.
type runMetrics struct {
	registry *prometheus.Registry

	duration    prometheus.Gauge
	scenes      prometheus.Gauge
	cues        prometheus.Gauge
	cache       *prometheus.GaugeVec
	attempts    *prometheus.GaugeVec
	stepSeconds *prometheus.GaugeVec
	success     *prometheus.GaugeVec
	lastRun     prometheus.Gauge
}

func newRunMetrics() *runMetrics {
	m := &runMetrics{
		registry: prometheus.NewRegistry(),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "output_duration_seconds",
			Help:      "Duration of the composed video.",
		}),
		scenes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "scenes",
			Help:      "Scenes in the manifest.",
		}),
		cues: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "caption_cues",
			Help:      "Caption cues written.",
		}),
		cache: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "voice_cache_lookups",
			Help:      "Voice cache lookups for the winning provider.",
		}, []string{"result"}),
		attempts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "voice_provider_attempt",
			Help:      "1 if the provider voiced every scene, 0 if it was abandoned.",
		}, []string{"provider"}),
		stepSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time per pipeline stage.",
		}, []string{"stage"}),
		success: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "run_success",
			Help:      "1 if the last run produced a video.",
		}, []string{"voice_provider", "caption_mode"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
	m.registry.MustRegister(m.duration, m.scenes, m.cues, m.cache, m.attempts, m.stepSeconds, m.success, m.lastRun)
	return m
}

func (m *runMetrics) observeRecord(rec Record) {
	m.duration.Set(rec.DurationSeconds)
	m.scenes.Set(float64(rec.SceneCount))
	m.cues.Set(float64(rec.Captions.CueCount))
	m.cache.WithLabelValues("hit").Set(float64(rec.VoiceCache.Hits))
	m.cache.WithLabelValues("miss").Set(float64(rec.VoiceCache.Misses))
	for _, a := range rec.AttemptedVoiceProviders {
		v := 0.0
		if a.OK {
			v = 1
		}
		m.attempts.WithLabelValues(a.Provider).Set(v)
	}
	m.success.WithLabelValues(rec.VoiceProvider, string(rec.Captions.Mode)).Set(1)
	m.lastRun.Set(float64(rec.GeneratedAt.Unix()))
}

// write renders the registry in text exposition format to path.
func (m *runMetrics) write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
