package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/gesture-sensor/internal/action"
	"github.com/sweeney/gesture-sensor/internal/config"
	"github.com/sweeney/gesture-sensor/internal/gpio"
	"github.com/sweeney/gesture-sensor/internal/logic"
	"github.com/sweeney/gesture-sensor/internal/metrics"
	"github.com/sweeney/gesture-sensor/internal/mqtt"
	"github.com/sweeney/gesture-sensor/internal/platform"
	"github.com/sweeney/gesture-sensor/internal/prefs"
	"github.com/sweeney/gesture-sensor/internal/status"
)

// --- flags and config ---

func parseFlags(t *testing.T, args ...string) config.FlagOverrides {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	broker := fs.String("broker", "", "")
	httpAddr := fs.String("http", "", "")
	prefsPath := fs.String("prefs", "", "")
	settingsPath := fs.String("settings", "", "")
	screenSource := fs.String("screen-source", "", "")
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return flagOverrides(fs, broker, httpAddr, prefsPath, settingsPath, screenSource)
}

func TestFlagOverridesOnlySetFlags(t *testing.T) {
	o := parseFlags(t, "-broker", "tcp://other:1883", "-prefs", "")

	if o.Broker == nil || *o.Broker != "tcp://other:1883" {
		t.Errorf("expected broker override, got %v", o.Broker)
	}
	if o.PrefsPath == nil || *o.PrefsPath != "" {
		t.Errorf("expected empty prefs override, got %v", o.PrefsPath)
	}
	if o.HTTPAddr != nil {
		t.Errorf("expected no http override, got %q", *o.HTTPAddr)
	}
	if o.ScreenSource != nil {
		t.Errorf("expected no screen-source override, got %q", *o.ScreenSource)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("", config.FlagOverrides{})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.MQTT.TopicPrefix != mqtt.DefaultTopicPrefix {
		t.Errorf("expected prefix %q, got %q", mqtt.DefaultTopicPrefix, cfg.MQTT.TopicPrefix)
	}
}

func TestLoadConfigFlagBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("http:\n  addr: \":9000\"\nscreen:\n  source: dbus\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path, parseFlags(t, "-http", ":9100"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.HTTP.Addr != ":9100" {
		t.Errorf("expected http addr :9100, got %q", cfg.HTTP.Addr)
	}
	if cfg.Screen.Source != config.ScreenSourceDBus {
		t.Errorf("expected screen source from file, got %q", cfg.Screen.Source)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	if _, err := loadConfig("", parseFlags(t, "-screen-source", "x11")); err == nil {
		t.Error("expected error for unknown screen source")
	}
}

// --- print-state ---

func TestFormatState(t *testing.T) {
	store := prefs.NewMemoryStore(map[string]bool{logic.KeyGestureCamera: false})
	display := platform.NewFakePlatform()
	doze := platform.NewFakePlatform()
	doze.SetDoze(true, errors.New("bad value"))

	out := formatState(store, platform.System{Display: display, Doze: doze})

	for _, want := range []string{
		"gesture_camera: false\n",
		"gesture_ir_wake: true\n",
		"gesture_ir_silence: true\n",
		"display: ON\n",
		"doze: UNKNOWN (bad value)\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

// --- runLoop ---

// fakeRecorder counts screen transitions.
type fakeRecorder struct {
	metrics.NoopRecorder
	mu  sync.Mutex
	on  int
	off int
}

func (r *fakeRecorder) ScreenTransition(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if on {
		r.on++
	} else {
		r.off++
	}
}

type loopHarness struct {
	watcher  *gpio.FakeWatcher
	client   *mqtt.FakeClient
	store    *prefs.MemoryStore
	platform *platform.FakePlatform
	tracker  *status.Tracker
	recorder *fakeRecorder
	ctrl     *logic.Controller
	lines    config.GPIOConfig

	sig  chan os.Signal
	done chan error
}

func startLoop(t *testing.T, interactive bool) *loopHarness {
	t.Helper()
	h := &loopHarness{
		watcher:  gpio.NewFakeWatcher(),
		client:   mqtt.NewFakeClient(),
		store:    prefs.NewMemoryStore(nil),
		platform: platform.NewFakePlatform(),
		tracker:  status.NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), status.Config{Broker: "tcp://test:1883"}),
		recorder: &fakeRecorder{},
		lines:    config.DefaultConfig().GPIO,
		sig:      make(chan os.Signal, 1),
		done:     make(chan error, 1),
	}
	h.client.Connected = true
	h.platform.Interactive = interactive

	h.ctrl = logic.NewController(h.store, h.platform, buildWiring(h.watcher, h.lines, h.client, h.recorder))
	h.tracker.Update(h.ctrl.Snapshot(), h.ctrl.Sensors())

	go func() {
		h.done <- runLoop(h.ctrl, h.client, h.client, h.tracker, h.recorder, time.Now, h.sig)
	}()
	return h
}

// waitFor polls the tracker until cond holds.
func (h *loopHarness) waitFor(t *testing.T, cond func(status.Snapshot) bool) status.Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if snap := h.tracker.Snapshot(); cond(snap) {
			return snap
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for tracker state")
	return status.Snapshot{}
}

func (h *loopHarness) stop(t *testing.T, s os.Signal) {
	t.Helper()
	h.sig <- s
	select {
	case err := <-h.done:
		if err != nil {
			t.Fatalf("runLoop returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("runLoop did not stop")
	}
}

func TestRunLoopShutdown(t *testing.T) {
	h := startLoop(t, true)
	h.stop(t, syscall.SIGTERM)

	if len(h.client.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(h.client.SystemEvents))
	}
	ev := h.client.SystemEvents[0]
	if ev.Event != "SHUTDOWN" || ev.Reason != "SIGTERM" {
		t.Errorf("expected SHUTDOWN/SIGTERM, got %s/%s", ev.Event, ev.Reason)
	}
	if !ev.Retained {
		t.Error("expected shutdown event to be retained")
	}
	if !strings.Contains(string(h.client.SystemPayloads[0]), `"reason":"SIGTERM"`) {
		t.Errorf("expected reason in payload, got %s", h.client.SystemPayloads[0])
	}
}

func TestRunLoopShutdownSIGINT(t *testing.T) {
	h := startLoop(t, true)
	h.stop(t, syscall.SIGINT)

	if h.client.SystemEvents[0].Reason != "SIGINT" {
		t.Errorf("expected reason SIGINT, got %q", h.client.SystemEvents[0].Reason)
	}
}

func TestRunLoopScreenOffArmsDozeSensors(t *testing.T) {
	h := startLoop(t, true)
	defer h.stop(t, syscall.SIGTERM)

	if h.watcher.Watching(h.lines.FlatUp) {
		t.Fatal("flat-up should be disarmed with the screen on")
	}

	h.ctrl.Post(logic.Event{Kind: logic.EventScreenOff})
	snap := h.waitFor(t, func(s status.Snapshot) bool { return s.Controller.ScreenOffCount == 1 })

	if snap.Controller.ScreenOn {
		t.Error("expected screen off in tracker")
	}
	if !snap.Sensors.FlatUp || !snap.Sensors.Stow {
		t.Errorf("expected flat-up and stow armed, got %+v", snap.Sensors)
	}
	if !snap.MQTTConnected {
		t.Error("expected MQTT connected in tracker")
	}

	h.watcher.Fire(h.lines.FlatUp, true)
	h.watcher.Fire(h.lines.FlatUp, false)
	h.watcher.Fire(h.lines.IRWake, true)

	got := h.client.ActionNames()
	want := []string{action.NameDozePulse, action.NameDozePulse}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected actions %v, got %v", want, got)
	}

	h.recorder.mu.Lock()
	off := h.recorder.off
	h.recorder.mu.Unlock()
	if off != 1 {
		t.Errorf("expected 1 recorded screen-off transition, got %d", off)
	}
}

func TestRunLoopScreenOnDisarmsDozeSensors(t *testing.T) {
	h := startLoop(t, false)
	defer h.stop(t, syscall.SIGTERM)

	h.ctrl.Post(logic.Event{Kind: logic.EventScreenOn})
	snap := h.waitFor(t, func(s status.Snapshot) bool { return s.Controller.ScreenOnCount == 1 })

	if snap.Sensors.FlatUp || snap.Sensors.Stow {
		t.Errorf("expected flat-up and stow disarmed, got %+v", snap.Sensors)
	}
	if !snap.Sensors.IRWake {
		t.Error("IR wake should stay armed across screen transitions")
	}

	h.watcher.Fire(h.lines.IRWake, true)
	if n := len(h.client.ActionNames()); n != 0 {
		t.Errorf("expected no doze pulse with screen on, got %d actions", n)
	}
}

func TestRunLoopPreferenceChange(t *testing.T) {
	h := startLoop(t, true)
	defer h.stop(t, syscall.SIGTERM)

	if !h.watcher.Watching(h.lines.Camera) {
		t.Fatal("camera should be armed by default")
	}

	h.store.Set(logic.KeyGestureCamera, false)
	snap := h.waitFor(t, func(s status.Snapshot) bool { return s.Controller.PrefChangeCount == 1 })

	if snap.Controller.Flags.Camera {
		t.Error("expected camera flag false")
	}
	if snap.Sensors.Camera || h.watcher.Watching(h.lines.Camera) {
		t.Error("expected camera disarmed")
	}
	if h.watcher.Fire(h.lines.Camera, true) {
		t.Error("camera edge delivered while disarmed")
	}
}

func TestRunLoopDozeDisabledAtScreenOff(t *testing.T) {
	h := startLoop(t, true)
	defer h.stop(t, syscall.SIGTERM)

	h.platform.SetDoze(false, nil)
	h.ctrl.Post(logic.Event{Kind: logic.EventScreenOff})
	snap := h.waitFor(t, func(s status.Snapshot) bool { return s.Controller.ScreenOffCount == 1 })

	if snap.Controller.DozeEnabled {
		t.Error("expected doze disabled in snapshot")
	}
	if snap.Sensors.FlatUp || snap.Sensors.Stow {
		t.Errorf("expected doze sensors disarmed, got %+v", snap.Sensors)
	}
}

// --- wiring ---

func TestBuildWiringUsesConfiguredLines(t *testing.T) {
	lines := config.GPIOConfig{Camera: 5, FlatUp: 6, Stow: 7, IRWake: 8, IRSilence: 9}
	w := gpio.NewFakeWatcher()
	client := mqtt.NewFakeClient()
	p := platform.NewFakePlatform()
	p.Interactive = false

	logic.NewController(prefs.NewMemoryStore(nil), p, buildWiring(w, lines, client, metrics.NoopRecorder{}))

	for _, offset := range []int{5, 6, 7, 8, 9} {
		if !w.Watching(offset) {
			t.Errorf("expected line %d watched", offset)
		}
	}

	w.Fire(5, true)
	w.Fire(9, true)
	w.Fire(8, true)
	w.Fire(7, false)

	want := []string{action.NameCameraActivation, action.NameSilence, action.NameDozePulse, action.NameDozePulse}
	got := client.ActionNames()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected actions %v, got %v", want, got)
	}
}

func TestStateString(t *testing.T) {
	if stateString(true) != "ON" || stateString(false) != "OFF" {
		t.Error("unexpected state strings")
	}
}
