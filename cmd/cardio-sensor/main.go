// Command cardio-sensor measures pulse from a PPG sample stream, analyzes
// each recording session, and publishes the results to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vitalsense/cardio-sensor/internal/config"
	"github.com/vitalsense/cardio-sensor/internal/frame"
	"github.com/vitalsense/cardio-sensor/internal/logger"
	"github.com/vitalsense/cardio-sensor/internal/metrics"
	"github.com/vitalsense/cardio-sensor/internal/mqtt"
	"github.com/vitalsense/cardio-sensor/internal/pulse"
	"github.com/vitalsense/cardio-sensor/internal/session"
	"github.com/vitalsense/cardio-sensor/internal/status"
	"github.com/vitalsense/cardio-sensor/internal/stream"
	"github.com/vitalsense/cardio-sensor/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Flags override environment values.
	httpAddr := flag.String("http", cfg.HTTPAddr, "HTTP listen address (empty to disable)")
	source := flag.String("source", cfg.Source, "sample source: synthetic or nats")
	sample := flag.Duration("sample", cfg.SampleInterval, "sampling interval")
	maxSession := flag.Duration("max-session", cfg.MaxSession, "recording cap per session")
	defaultAge := flag.Int("age", cfg.DefaultAge, "default subject age")
	broker := flag.String("broker", cfg.MQTTBroker, "MQTT broker address")
	heartbeat := flag.Duration("heartbeat", cfg.Heartbeat, "heartbeat event interval (0 to disable)")
	natsURL := flag.String("nats", cfg.NATSURL, "NATS server URL (source=nats)")
	natsSubject := flag.String("nats-subject", cfg.NATSSubject, "NATS subject carrying PPG samples")
	logLevel := flag.String("log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	logFormat := flag.String("log-format", cfg.LogFormat, "log format: text or json")
	synthBPM := flag.Float64("synth-bpm", 65, "simulated heart rate for the synthetic source")
	flag.Parse()

	cfg.HTTPAddr = *httpAddr
	cfg.Source = *source
	cfg.SampleInterval = *sample
	cfg.MaxSession = *maxSession
	cfg.DefaultAge = *defaultAge
	cfg.MQTTBroker = *broker
	cfg.Heartbeat = *heartbeat
	cfg.NATSURL = *natsURL
	cfg.NATSSubject = *natsSubject
	cfg.LogLevel = *logLevel
	cfg.LogFormat = *logFormat

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	if err := run(cfg, *synthBPM, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, synthBPM float64, log *slog.Logger) error {
	src, natsURL, err := openSource(cfg, synthBPM)
	if err != nil {
		return err
	}
	defer src.Close()

	pulseCfg := pulse.DefaultConfig()
	pulseCfg.SampleInterval = cfg.SampleInterval
	monitor := pulse.NewMonitor(src, pulseCfg)

	tracker := status.NewTracker(time.Now(), status.Config{
		SampleMs:     cfg.SampleInterval.Milliseconds(),
		MaxSessionMs: cfg.MaxSession.Milliseconds(),
		Broker:       cfg.MQTTBroker,
		HTTPAddr:     cfg.HTTPAddr,
		NATSURL:      natsURL,
		Source:       cfg.Source,
	})

	publisher, err := mqtt.NewRealPublisher(cfg.MQTTBroker, tracker.SetMQTTConnected)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()
	tracker.SetMQTTConnected(publisher.IsConnected())

	m := metrics.New()

	sessCfg := session.DefaultConfig()
	sessCfg.MaxDuration = cfg.MaxSession
	sessCfg.DefaultAge = cfg.DefaultAge
	ctrl := session.NewController(sessCfg)

	ctrl.OnBeat = func(b pulse.BeatEvent, intervalKept bool) {
		tracker.ObserveBeat(b.BPM, b.Confidence, intervalKept)
		m.IncBeatsDetected()
		if !intervalKept {
			m.IncIntervalsRejected()
		}
		m.ObserveBeat(b.BPM, b.Confidence)
		log.Debug("beat", "bpm", b.BPM, "confidence", b.Confidence, "kept", intervalKept)
	}
	ctrl.OnSignal = func(err error) {
		log.Warn("signal quality", "error", err)
	}
	ctrl.OnStateChange = func(s session.State, reason string) {
		tracker.SetSessionState(s, reason)
		m.SetSessionActive(s == session.StateRecording)
		switch s {
		case session.StateRecording:
			m.IncSessionsStarted()
			log.Info("session recording")
		case session.StateComplete:
			m.IncSessionsCompleted()
			publishSessionEvent(publisher, tracker, "SESSION_COMPLETE", "", log)
		case session.StateError:
			m.IncSessionsFailed()
			log.Error("session failed", "reason", reason)
			publishSessionEvent(publisher, tracker, "SESSION_ERROR", reason, log)
		}
	}
	ctrl.OnResult = func(res session.Result) {
		tracker.SetLastResult(res.ID)
		log.Info("session result",
			"id", res.ID,
			"bpm", res.HeartRate,
			"stress", res.HRV.Stress,
			"risk", res.Risk.Level)
		if err := publisher.PublishResult(res); err != nil {
			log.Error("publish result", "error", err)
		}
	}

	if err := ctrl.Attach(monitor); err != nil {
		return fmt.Errorf("attach source: %w", err)
	}

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, ctrl, cfg.DefaultAge, m.Handler(), log)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("http server", "error", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				log.Warn("http shutdown", "error", err)
			}
		}()
		log.Info("http server listening", "addr", cfg.HTTPAddr)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		log.Warn("publish startup event", "error", err)
	}

	log.Info("started",
		"source", cfg.Source,
		"sample", cfg.SampleInterval,
		"max_session", cfg.MaxSession,
		"broker", cfg.MQTTBroker)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var tick <-chan time.Time
	if cfg.Heartbeat > 0 {
		ticker := time.NewTicker(cfg.Heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}

	signalName := waitForShutdown(sigCh, tick, publisher, publisher, tracker, log)
	log.Info("shutting down", "signal", signalName)

	ctrl.Stop()

	snap = tracker.Snapshot()
	shutdown := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "SHUTDOWN",
		Reason:     signalName,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
	}
	if err := publisher.PublishSystem(shutdown); err != nil {
		log.Warn("publish shutdown event", "error", err)
	}
	return nil
}

// waitForShutdown blocks until an exit signal arrives, publishing a
// HEARTBEAT event with a fresh status snapshot on every tick. A nil tick
// channel disables heartbeats. Returns the signal name for the shutdown
// event.
func waitForShutdown(sig <-chan os.Signal, tick <-chan time.Time, pub mqtt.Publisher, conn mqtt.ConnectionStatus, tracker *status.Tracker, log *slog.Logger) string {
	for {
		select {
		case s := <-sig:
			if s == syscall.SIGTERM {
				return "SIGTERM"
			}
			return "SIGINT"

		case <-tick:
			tracker.SetMQTTConnected(conn.IsConnected())
			snap := tracker.Snapshot()
			hb := mqtt.SystemEvent{
				Timestamp:  snap.Now,
				Event:      "HEARTBEAT",
				RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
			}
			if err := pub.PublishSystem(hb); err != nil {
				log.Warn("publish heartbeat", "error", err)
				continue
			}
			log.Debug("heartbeat", "uptime", snap.Uptime())
		}
	}
}

// publishSessionEvent sends a lifecycle event carrying the full status
// snapshot on the system topic.
func publishSessionEvent(pub mqtt.Publisher, tracker *status.Tracker, event, reason string, log *slog.Logger) {
	snap := tracker.Snapshot()
	evt := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := pub.PublishSystem(evt); err != nil {
		log.Warn("publish system event", "event", event, "error", err)
	}
}

// openSource builds the configured sample source. The returned string is
// the NATS URL when that source is active, for status display.
func openSource(cfg *config.Config, synthBPM float64) (frame.Source, string, error) {
	if cfg.Source == config.SourceNATS {
		nc, err := stream.Connect(cfg.NATSURL)
		if err != nil {
			return nil, "", fmt.Errorf("connect nats: %w", err)
		}
		src, err := stream.NewSource(nc, cfg.NATSSubject)
		if err != nil {
			nc.Close()
			return nil, "", fmt.Errorf("subscribe %s: %w", cfg.NATSSubject, err)
		}
		return &natsSource{Source: src, nc: nc}, cfg.NATSURL, nil
	}

	sampleHz := 1.0 / cfg.SampleInterval.Seconds()
	return frame.NewSynthetic(sampleHz, synthBPM, 0.1), "", nil
}

// natsSource closes the underlying connection along with the subscription.
type natsSource struct {
	*stream.Source
	nc interface{ Drain() error }
}

func (s *natsSource) Close() error {
	err := s.Source.Close()
	if derr := s.nc.Drain(); err == nil {
		err = derr
	}
	return err
}
