package live

import (
	"encoding/json"
	"sync"

	"github.com/kestrel-data/driving.report/internal/detect"
	"github.com/kestrel-data/driving.report/internal/monitoring"
	"github.com/kestrel-data/driving.report/internal/telemetry"
)

// RunnerOptions configures a live detection loop.
type RunnerOptions struct {
	SampleTopic    string
	ViolationTopic string
}

// Runner subscribes to a sample topic, feeds each sample to the detector,
// and publishes any violation to the violation topic. Samples arrive through
// the broker callback one at a time; the detector requires ordered delivery,
// which MQTT QoS 0 on a single topic provides per connection.
type Runner struct {
	client   Client
	detector *detect.Detector
	opts     RunnerOptions

	mu       sync.Mutex
	running  bool
	stopOnce sync.Once
}

// NewRunner builds a runner. Zero-value topics fall back to the defaults.
func NewRunner(client Client, detector *detect.Detector, opts RunnerOptions) *Runner {
	if opts.SampleTopic == "" {
		opts.SampleTopic = DefaultSampleTopic
	}
	if opts.ViolationTopic == "" {
		opts.ViolationTopic = DefaultViolationTopic
	}
	return &Runner{client: client, detector: detector, opts: opts}
}

// Start connects, resets the detector, and subscribes. It returns once the
// subscription is established; samples are handled on the client's callback
// goroutine until Stop.
func (r *Runner) Start() error {
	if err := r.client.Connect(); err != nil {
		return err
	}

	r.mu.Lock()
	r.detector.StartCalibration()
	r.running = true
	r.mu.Unlock()

	if err := r.client.Subscribe(r.opts.SampleTopic, r.handleSample); err != nil {
		r.client.Disconnect()
		return err
	}
	monitoring.Logf("[live] subscribed to %s, publishing violations to %s",
		r.opts.SampleTopic, r.opts.ViolationTopic)
	return nil
}

// Stop disconnects and marks the detector's stream finished. Idempotent.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.running = false
		r.detector.End()
		r.mu.Unlock()
		r.client.Disconnect()
		monitoring.Logf("[live] stopped")
	})
}

// handleSample is the broker callback for one inbound sample.
func (r *Runner) handleSample(_ string, payload []byte) {
	var s telemetry.SensorSample
	if err := json.Unmarshal(payload, &s); err != nil {
		monitoring.Logf("[live] dropping malformed sample: %v", err)
		return
	}

	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	v := r.detector.ProcessSample(s)
	r.mu.Unlock()

	if v == nil {
		return
	}
	out, err := json.Marshal(v)
	if err != nil {
		monitoring.Logf("[live] encoding violation: %v", err)
		return
	}
	if err := r.client.Publish(r.opts.ViolationTopic, out); err != nil {
		monitoring.Logf("[live] publishing violation: %v", err)
		return
	}
	monitoring.Debugf("[live] %s at %dms value=%.2f", v.Type, v.TimestampMs, v.Value)
}
