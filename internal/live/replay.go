package live

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kestrel-data/driving.report/internal/monitoring"
	"github.com/kestrel-data/driving.report/internal/telemetry"
	"github.com/kestrel-data/driving.report/internal/timeutil"
)

// ReplayOptions configures dataset replay onto a sample topic.
type ReplayOptions struct {
	Topic string

	// Speed multiplies playback rate; 2.0 halves inter-sample waits.
	// Zero or negative means real time.
	Speed float64

	// Clock paces the replay; nil uses the real clock.
	Clock timeutil.Clock
}

// Replay publishes a recorded dataset's samples in order, pacing them by
// their timestamp gaps. ctx cancellation stops the replay between samples.
func Replay(ctx context.Context, client Client, ds *telemetry.Dataset, opts ReplayOptions) error {
	if ds == nil || len(ds.Samples) == 0 {
		return fmt.Errorf("replay requires a non-empty dataset")
	}
	if opts.Topic == "" {
		opts.Topic = DefaultSampleTopic
	}
	if opts.Speed <= 0 {
		opts.Speed = 1.0
	}
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	monitoring.Logf("[replay] %s: %d samples to %s at %.1fx",
		ds.Name, len(ds.Samples), opts.Topic, opts.Speed)

	var prevTs int64
	for i, s := range ds.Samples {
		if i > 0 {
			gap := s.TimestampMs - prevTs
			if gap > 0 {
				wait := time.Duration(float64(gap)/opts.Speed) * time.Millisecond
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-clock.After(wait):
				}
			}
		}
		prevTs = s.TimestampMs

		payload, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encoding sample %d: %w", i, err)
		}
		if err := client.Publish(opts.Topic, payload); err != nil {
			return fmt.Errorf("publishing sample %d: %w", i, err)
		}
	}

	monitoring.Logf("[replay] %s: done", ds.Name)
	return nil
}
