// Command gesture-sensor arms gesture sensors according to screen state and
// user preferences, and publishes the resulting actions to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/gesture-sensor/internal/config"
	"github.com/sweeney/gesture-sensor/internal/gpio"
	"github.com/sweeney/gesture-sensor/internal/logic"
	"github.com/sweeney/gesture-sensor/internal/metrics"
	"github.com/sweeney/gesture-sensor/internal/mqtt"
	"github.com/sweeney/gesture-sensor/internal/platform"
	"github.com/sweeney/gesture-sensor/internal/prefs"
	"github.com/sweeney/gesture-sensor/internal/status"
	"github.com/sweeney/gesture-sensor/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	broker := flag.String("broker", "", "MQTT broker address (overrides config)")
	httpAddr := flag.String("http", "", "HTTP status address, empty to disable (overrides config)")
	prefsPath := flag.String("prefs", "", "Preferences YAML file, empty for in-memory (overrides config)")
	settingsPath := flag.String("settings", "", "Platform settings env file (overrides config)")
	screenSource := flag.String("screen-source", "", `Screen source "mqtt" or "dbus" (overrides config)`)
	printState := flag.Bool("print-state", false, "Print preference flags and platform state and exit")

	flag.Parse()

	overrides := flagOverrides(flag.CommandLine, broker, httpAddr, prefsPath, settingsPath, screenSource)
	cfg, err := loadConfig(*configPath, overrides)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// flagOverrides returns overrides for the flags given on the command line.
// Flags left at their defaults do not override the config file.
func flagOverrides(fs *flag.FlagSet, broker, httpAddr, prefsPath, settingsPath, screenSource *string) config.FlagOverrides {
	var o config.FlagOverrides
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "broker":
			o.Broker = broker
		case "http":
			o.HTTPAddr = httpAddr
		case "prefs":
			o.PrefsPath = prefsPath
		case "settings":
			o.SettingsPath = settingsPath
		case "screen-source":
			o.ScreenSource = screenSource
		}
	})
	return o
}

func loadConfig(path string, overrides config.FlagOverrides) (config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		cfg, err = config.LoadConfigFile(path)
		if err != nil {
			return config.Config{}, err
		}
	}
	overrides.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func run(cfg config.Config, printState bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Preferences
	store, closeStore, err := openPreferences(ctx, cfg.Preferences.Path)
	if err != nil {
		return fmt.Errorf("init preferences: %w", err)
	}
	defer closeStore()

	settings := platform.Settings{Path: config.ExpandPath(cfg.Settings.Path)}

	// Initialize MQTT. With the D-Bus screen source the screen topic is
	// not followed.
	topics := mqtt.NewTopics(cfg.MQTT.TopicPrefix)
	if cfg.Screen.Source != config.ScreenSourceMQTT {
		topics.Screen = ""
	}
	client, err := mqtt.NewRealClient(mqtt.ClientConfig{
		Broker:      cfg.MQTT.Broker,
		ClientID:    cfg.MQTT.ClientID,
		Topics:      topics,
		InitialWait: cfg.Screen.InitialWait(),
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer client.Close()

	var screen platform.ScreenSource = client
	if cfg.Screen.Source == config.ScreenSourceDBus {
		d, err := platform.NewDBusScreen()
		if err != nil {
			return fmt.Errorf("init dbus screen: %w", err)
		}
		defer d.Close()
		screen = d
	}
	sys := platform.System{Display: screen, Doze: settings}

	// Print state mode
	if printState {
		fmt.Print(formatState(store, sys))
		return nil
	}

	// Initialize GPIO
	watcher, err := gpio.NewRealWatcher(cfg.GPIO.Chip, cfg.GPIO.Debounce(), cfg.GPIO.ActiveLow)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer watcher.Close()

	reg := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)

	ctrl := logic.NewController(store, sys, buildWiring(watcher, cfg.GPIO, client, recorder))
	// Runs before closeStore so a preference reload stuck in Post can finish.
	defer ctrl.Stop()
	if err := screen.Notify(ctx, ctrl.Post); err != nil {
		return fmt.Errorf("subscribe screen events: %w", err)
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Broker:       cfg.MQTT.Broker,
		TopicPrefix:  cfg.MQTT.TopicPrefix,
		HTTPAddr:     cfg.HTTP.Addr,
		ScreenSource: cfg.Screen.Source,
		PrefsPath:    cfg.Preferences.Path,
		SettingsPath: cfg.Settings.Path,
		GPIOChip:     cfg.GPIO.Chip,
		DebounceMs:   cfg.GPIO.Debounce().Milliseconds(),
	})
	tracker.Update(ctrl.Snapshot(), ctrl.Sensors())
	tracker.SetMQTTConnected(client.IsConnected())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := client.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, recorder.Handler())
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: broker=%s topics=%s/# screen=%s chip=%s", cfg.MQTT.Broker, cfg.MQTT.TopicPrefix, cfg.Screen.Source, cfg.GPIO.Chip)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ctrl, client, client, tracker, recorder, time.Now, sigCh)
}

// openPreferences returns a watched file store, or an in-memory store when
// path is empty.
func openPreferences(ctx context.Context, path string) (logic.PreferenceStore, func(), error) {
	if path == "" {
		return prefs.NewMemoryStore(nil), func() {}, nil
	}
	fs, err := prefs.OpenFileStore(config.ExpandPath(path))
	if err != nil {
		return nil, nil, err
	}
	if err := fs.Watch(ctx); err != nil {
		return nil, nil, err
	}
	log.Printf("preferences: %s", fs.Path())
	return fs, func() { fs.Close() }, nil
}

// runLoop handles controller events in order until a signal arrives.
func runLoop(ctrl *logic.Controller, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, recorder metrics.Recorder, now func() time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case ev := <-ctrl.Events():
			if ev.Key != "" {
				log.Printf("event: %s key=%s", ev.Kind, ev.Key)
			} else {
				log.Printf("event: %s", ev.Kind)
			}
			ctrl.Handle(ev)

			switch ev.Kind {
			case logic.EventScreenOn:
				recorder.ScreenTransition(true)
			case logic.EventScreenOff:
				recorder.ScreenTransition(false)
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(ctrl.Snapshot(), ctrl.Sensors())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}

// formatState renders the -print-state report.
func formatState(store logic.PreferenceStore, sys platform.System) string {
	out := fmt.Sprintf("%s: %t\n%s: %t\n%s: %t\n",
		logic.KeyGestureCamera, store.Bool(logic.KeyGestureCamera, true),
		logic.KeyGestureIRWake, store.Bool(logic.KeyGestureIRWake, true),
		logic.KeyGestureIRSilence, store.Bool(logic.KeyGestureIRSilence, true))

	if on, err := sys.DisplayInteractive(); err != nil {
		out += fmt.Sprintf("display: UNKNOWN (%v)\n", err)
	} else {
		out += fmt.Sprintf("display: %s\n", stateString(on))
	}
	if doze, err := sys.DozeEnabled(); err != nil {
		out += fmt.Sprintf("doze: UNKNOWN (%v)\n", err)
	} else {
		out += fmt.Sprintf("doze: %s\n", stateString(doze))
	}
	return out
}

func stateString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
