package app

import (
	"bpcd/pkg/bpc"
	"bpcd/pkg/raspberry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the prometheus collectors of the decoder.
// Each app has its own registry.
type metrics struct {
	registry *prometheus.Registry

	frames  *prometheus.CounterVec // frames by status
	dropped prometheus.Counter     // frames the service couldn't take
	diff    prometheus.Gauge       // marker deviation of the last valid frame
	last    prometheus.Gauge       // unix time of the last valid frame
}

func newMetrics(h *bpc.Handle, l *raspberry.Link) *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := metrics{
		registry: reg,
		frames: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bpc_frames_total",
			Help: "Decoded frames by status",
		}, []string{"status"}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "bpc_frames_dropped_total",
			Help: "Decoded frames dropped because the service was busy",
		}),
		diff: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bpc_marker_diff_seconds",
			Help: "Deviation of the last frame marker from the expected time",
		}),
		last: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bpc_last_frame_timestamp_seconds",
			Help: "Decoded time of the last valid frame",
		}),
	}

	for _, s := range []bpc.Status{bpc.StatusOK, bpc.StatusParityError, bpc.StatusFrameInvalid} {
		m.frames.WithLabelValues(s.String())
	}

	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "bpc_edges_total",
		Help: "Edges seen on the gpio line",
	}, func() float64 { return float64(l.Edges()) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "bpc_trace_valid",
		Help: "1 if the decoder is synchronized to the frame marker",
	}, func() float64 { return boolToFloat(h.Snapshot().TraceValid) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "bpc_decode_valid",
		Help: "1 if the last frame was decoded",
	}, func() float64 { return boolToFloat(h.Snapshot().DecodeValid) })

	return &m
}

func (m *metrics) observe(r bpc.Result) {
	m.frames.WithLabelValues(r.Status.String()).Inc()
	if r.Status == bpc.StatusOK {
		m.diff.Set(r.Diff.Seconds())
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
