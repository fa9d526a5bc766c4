package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/tubededentifrice/zigbee-herdsman/internal/controller"
	"github.com/tubededentifrice/zigbee-herdsman/internal/device"
)

const (
	defaultStatsInterval = 60 * time.Second

	// statsTimeout bounds the device listing behind each network gauge.
	statsTimeout = 5 * time.Second
)

// Writer is the telemetry sink. Implemented by the influxdb client; all
// methods must be non-blocking.
type Writer interface {
	WriteLinkQuality(ieeeAddress string, linkQuality uint8)
	WriteMessageCount(ieeeAddress string, kind string)
	WriteNetworkStats(deviceCount int, permitJoin bool)
}

// Source is the controller surface the recorder consumes.
type Source interface {
	Subscribe() (<-chan controller.Event, func())
	GetDevices(ctx context.Context) ([]device.Device, error)
	GetPermitJoin() bool
}

// Logger is the minimal logging interface used by the recorder.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Options configures the recorder.
type Options struct {
	Writer Writer
	Source Source

	// StatsInterval is how often network gauges are sampled. Default: 60s.
	StatsInterval time.Duration

	Logger Logger
}

// Recorder passively records link quality and message rates from the
// controller event stream. It subscribes to its own bus channel, so a
// slow telemetry backend degrades to dropped events rather than a
// stalled event loop.
type Recorder struct {
	writer Writer
	source Source

	statsInterval time.Duration

	unsubscribe func()

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger Logger
}

// New creates a recorder. Call Start to begin recording.
func New(opts Options) *Recorder {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	interval := opts.StatsInterval
	if interval == 0 {
		interval = defaultStatsInterval
	}

	return &Recorder{
		writer:        opts.Writer,
		source:        opts.Source,
		statsInterval: interval,
		done:          make(chan struct{}),
		logger:        logger,
	}
}

// Start subscribes to the controller event bus and begins recording.
func (r *Recorder) Start(ctx context.Context) {
	events, cancel := r.source.Subscribe()
	r.unsubscribe = cancel

	r.wg.Add(2)
	go r.recordLoop(events)
	go r.statsLoop(ctx)

	r.logger.Info("telemetry recorder started", "stats_interval", r.statsInterval)
}

// Stop stops recording. Safe to call multiple times.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		if r.unsubscribe != nil {
			r.unsubscribe()
		}
		r.wg.Wait()
		r.logger.Info("telemetry recorder stopped")
	})
}

// recordLoop drains the event subscription until it closes.
func (r *Recorder) recordLoop(events <-chan controller.Event) {
	defer r.wg.Done()

	for {
		select {
		case <-r.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Type == controller.EventMessage && ev.Message != nil {
				r.writer.WriteLinkQuality(ev.Message.IEEEAddress, ev.Message.LinkQuality)
				r.writer.WriteMessageCount(ev.Message.IEEEAddress, string(ev.Message.Kind))
			}
		}
	}
}

// statsLoop samples network gauges at the configured interval.
func (r *Recorder) statsLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.statsInterval)
	defer ticker.Stop()

	r.sampleStats()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-ticker.C:
			r.sampleStats()
		}
	}
}

func (r *Recorder) sampleStats() {
	ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
	defer cancel()

	devices, err := r.source.GetDevices(ctx)
	if err != nil {
		r.logger.Warn("network stats sample failed", "error", err)
		return
	}

	r.writer.WriteNetworkStats(len(devices), r.source.GetPermitJoin())
}
