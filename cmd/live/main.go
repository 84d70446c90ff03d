// Command live runs the detector against an MQTT sample stream, publishing
// violations as they fire. With -replay it instead publishes a recorded
// session onto the sample topic at its original pace, which is useful for
// exercising a running detector end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kestrel-data/driving.report/internal/config"
	"github.com/kestrel-data/driving.report/internal/dataset"
	"github.com/kestrel-data/driving.report/internal/detect"
	"github.com/kestrel-data/driving.report/internal/live"
	"github.com/kestrel-data/driving.report/internal/monitoring"
)

func main() {
	var (
		broker         string
		clientID       string
		profileName    string
		sampleTopic    string
		violationTopic string
		replayDir      string
		replaySpeed    float64
		verbose        bool
	)

	flag.StringVar(&broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	flag.StringVar(&clientID, "client-id", "driving-report-live", "MQTT client ID")
	flag.StringVar(&profileName, "profile", config.ProfileDefault, "profile name (default|legacy) or .json path")
	flag.StringVar(&sampleTopic, "sample-topic", live.DefaultSampleTopic, "topic carrying sensor samples")
	flag.StringVar(&violationTopic, "violation-topic", live.DefaultViolationTopic, "topic to publish violations on")
	flag.StringVar(&replayDir, "replay", "", "replay mode: session directory to publish instead of detecting")
	flag.Float64Var(&replaySpeed, "speed", 1.0, "replay speed multiplier")
	flag.BoolVar(&verbose, "v", false, "verbose logging")
	flag.Parse()

	monitoring.SetVerbose(verbose)

	client := live.NewPahoClient(broker, clientID)

	if replayDir != "" {
		if err := runReplay(client, replayDir, sampleTopic, replaySpeed); err != nil {
			log.Fatalf("replay: %v", err)
		}
		return
	}

	profile, err := config.LoadProfile(profileName)
	if err != nil {
		log.Fatalf("loading profile: %v", err)
	}
	cfg, err := profile.DetectConfig()
	if err != nil {
		log.Fatalf("invalid profile %s: %v", profileName, err)
	}

	runner := live.NewRunner(client, detect.NewDetector(cfg), live.RunnerOptions{
		SampleTopic:    sampleTopic,
		ViolationTopic: violationTopic,
	})
	if err := runner.Start(); err != nil {
		log.Fatalf("starting live runner: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	runner.Stop()
}

func runReplay(client live.Client, dir, topic string, speed float64) error {
	loader := &dataset.Loader{}
	ds, stats, err := loader.LoadSession(dir)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	if stats.MalformedRows > 0 {
		monitoring.Logf("[live] %s: skipped %d malformed rows", ds.Name, stats.MalformedRows)
	}

	if err := client.Connect(); err != nil {
		return err
	}
	defer client.Disconnect()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return live.Replay(ctx, client, ds, live.ReplayOptions{Topic: topic, Speed: speed})
}
