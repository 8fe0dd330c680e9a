package bufferpool

import "github.com/prometheus/client_golang/prometheus"

// Recorder mirrors a BufferPool's I/O counters and eviction activity out to
// Prometheus. BufferPool.GetNumReadIO/GetNumWriteIO remain the authoritative
// in-process counters; a Recorder only republishes them for scraping and
// never influences pool behaviour. A nil *Recorder is valid and records
// nothing, so a pool built without WithMetrics still returns correct stats.
type Recorder struct {
	readIO    prometheus.Counter
	writeIO   prometheus.Counter
	evictions *prometheus.CounterVec
	pinned    prometheus.Gauge
}

// NewRecorder registers a pool's counters under reg, labelled by pageFile.
// Pass a prometheus.NewRegistry() in tests to avoid collisions with the
// default global registry.
func NewRecorder(reg prometheus.Registerer, pageFile string) (*Recorder, error) {
	r := &Recorder{
		readIO: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "pagestore_buffer_pool_read_io_total",
			Help:        "Pages read from disk on a buffer pool miss.",
			ConstLabels: prometheus.Labels{"page_file": pageFile},
		}),
		writeIO: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "pagestore_buffer_pool_write_io_total",
			Help:        "Pages written to disk (eviction, forcePage, or flush).",
			ConstLabels: prometheus.Labels{"page_file": pageFile},
		}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pagestore_buffer_pool_evictions_total",
			Help:        "Victim frames selected, by replacement strategy.",
			ConstLabels: prometheus.Labels{"page_file": pageFile},
		}, []string{"strategy"}),
		pinned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "pagestore_buffer_pool_pinned_frames",
			Help:        "Frames currently pinned (fixCount > 0).",
			ConstLabels: prometheus.Labels{"page_file": pageFile},
		}),
	}
	for _, c := range []prometheus.Collector{r.readIO, r.writeIO, r.evictions, r.pinned} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) recordRead() {
	if r == nil {
		return
	}
	r.readIO.Inc()
}

func (r *Recorder) recordWrite() {
	if r == nil {
		return
	}
	r.writeIO.Inc()
}

func (r *Recorder) recordEviction(strategy Strategy) {
	if r == nil {
		return
	}
	r.evictions.WithLabelValues(strategy.String()).Inc()
}

func (r *Recorder) setPinned(n int) {
	if r == nil {
		return
	}
	r.pinned.Set(float64(n))
}
