// Command plant-irrigator waters a potted plant from a soil moisture probe and
// serves a small HTTP configuration API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/joho/godotenv"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/sweeney/plant-irrigator/internal/display"
	"github.com/sweeney/plant-irrigator/internal/gpio"
	"github.com/sweeney/plant-irrigator/internal/metrics"
	"github.com/sweeney/plant-irrigator/internal/mqtt"
	"github.com/sweeney/plant-irrigator/internal/netrole"
	"github.com/sweeney/plant-irrigator/internal/orchestrator"
	"github.com/sweeney/plant-irrigator/internal/pwm"
	"github.com/sweeney/plant-irrigator/internal/sensor"
	"github.com/sweeney/plant-irrigator/internal/state"
	"github.com/sweeney/plant-irrigator/internal/store"
	"github.com/sweeney/plant-irrigator/internal/strip"
	"github.com/sweeney/plant-irrigator/internal/web"
)

type options struct {
	dataDir     string
	httpAddr    string
	metricsAddr string
	broker      string
	device      string
	mqttUser    string
	mqttPass    string
	probe       string
	adcChannel  int
	soilDry     int
	soilWet     int
	pixels      int
	brightness  int
	iface       string
	apSSID      string
	apPassword  string
	joinRetries int
	printState  bool
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("env file: %v", err)
	}

	var o options
	flag.StringVar(&o.dataDir, "data-dir", env("PLANT_DATA_DIR", "/var/lib/plant-irrigator"), "Directory holding persisted configuration")
	flag.StringVar(&o.httpAddr, "http", env("PLANT_HTTP", ":80"), "HTTP API address")
	flag.StringVar(&o.metricsAddr, "metrics", env("PLANT_METRICS", ":9100"), "Prometheus metrics address (empty to disable)")
	flag.StringVar(&o.broker, "broker", env("PLANT_BROKER", "tcp://192.168.1.200:1883"), "MQTT broker address")
	flag.StringVar(&o.device, "device", env("PLANT_DEVICE", hostname()), "Device name used in MQTT topics")
	flag.StringVar(&o.probe, "probe", env("PLANT_PROBE", sensor.ProbeBME280), "Ambient probe (bme280 or ds18b20)")
	flag.IntVar(&o.adcChannel, "adc-channel", envInt("PLANT_ADC_CHANNEL", 0), "ADS1115 channel of the soil probe")
	flag.IntVar(&o.soilDry, "soil-dry", envInt("PLANT_SOIL_DRY", int(sensor.DefaultCalibration.Dry)), "Raw ADC reading of dry soil")
	flag.IntVar(&o.soilWet, "soil-wet", envInt("PLANT_SOIL_WET", int(sensor.DefaultCalibration.Wet)), "Raw ADC reading of saturated soil")
	flag.IntVar(&o.pixels, "strip-pixels", envInt("PLANT_STRIP_PIXELS", strip.DefaultPixels), "Number of LEDs on the strip")
	flag.IntVar(&o.brightness, "strip-brightness", envInt("PLANT_STRIP_BRIGHTNESS", strip.DefaultBrightness), "Strip brightness 0..255")
	flag.StringVar(&o.iface, "iface", env("PLANT_IFACE", netrole.DefaultInterface), "Wireless interface")
	flag.StringVar(&o.apSSID, "ap-ssid", env("PLANT_AP_SSID", "plant-setup"), "Access point name in provisioning mode")
	flag.IntVar(&o.joinRetries, "join-retries", envInt("PLANT_JOIN_RETRIES", 5), "Station join retries before running offline")
	flag.BoolVar(&o.printState, "print-state", false, "Print sensor readings and exit")
	flag.Parse()

	o.mqttUser = os.Getenv("PLANT_MQTT_USER")
	o.mqttPass = os.Getenv("PLANT_MQTT_PASSWORD")
	o.apPassword = os.Getenv("PLANT_AP_PASSWORD")

	if err := run(o); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(o options) error {
	st, err := store.New(o.dataDir)
	if err != nil {
		return err
	}
	cfg, creds := loadState(st)

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("init periph: %w", err)
	}
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("open i2c: %w", err)
	}
	defer bus.Close()

	sensors, err := sensor.NewHardware(bus, sensor.Config{
		ADCChannel:  o.adcChannel,
		Probe:       o.probe,
		Calibration: sensor.Calibration{Dry: int32(o.soilDry), Wet: int32(o.soilWet)},
	})
	if err != nil {
		return fmt.Errorf("init sensors: %w", err)
	}
	defer sensors.Close()

	if o.printState {
		return printState(sensors)
	}

	pump, err := pwm.NewRealPump(pwm.PinPump)
	if err != nil {
		return fmt.Errorf("init pump: %w", err)
	}
	defer pump.Close()

	outputs, err := gpio.NewRealOutputs(gpio.PinIndicator1, gpio.PinIndicator2, gpio.PinMode)
	if err != nil {
		return fmt.Errorf("init outputs: %w", err)
	}
	defer outputs.Close()

	panel, err := display.NewSSD1306(bus)
	if err != nil {
		return fmt.Errorf("init display: %w", err)
	}
	defer panel.Close()

	port, err := spireg.Open("")
	if err != nil {
		return fmt.Errorf("open spi: %w", err)
	}
	nrz, err := strip.NewNRZ(port, o.pixels)
	if err != nil {
		port.Close()
		return fmt.Errorf("init strip: %w", err)
	}
	led := strip.New(nrz, o.pixels, uint8(o.brightness))
	defer led.Close()

	m := metrics.New()
	if o.metricsAddr != "" {
		ms := &http.Server{Addr: o.metricsAddr, Handler: m.Handler()}
		go func() {
			if err := ms.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("metrics server error: %v", err)
			}
		}()
		defer ms.Shutdown(context.Background())
		log.Printf("metrics listening on %s", o.metricsAddr)
	}

	tracker := state.NewTracker(time.Now(), cfg, creds)

	queue := gpio.NewEdgeQueue(gpio.EdgeQueueSize, m.EdgesDropped.Inc)
	buttons, err := gpio.NewRealButtons(gpio.PinButtonA, gpio.PinButtonB, queue)
	if err != nil {
		return fmt.Errorf("init buttons: %w", err)
	}
	defer buttons.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	reason := make(chan string, 1)
	go func() {
		s := <-sigCh
		log.Printf("received %v, shutting down", s)
		reason <- signalName(s)
		cancel()
	}()

	publisher := mqtt.NewRealPublisher(mqtt.Config{
		Broker:   o.broker,
		Device:   o.device,
		Username: o.mqttUser,
		Password: o.mqttPass,
		OnDrop:   m.TelemetryDropped.Inc,
	})
	defer publisher.Close()
	go func() {
		if err := publisher.Connect(ctx); err != nil {
			log.Printf("mqtt: %v; telemetry stays buffered", err)
		}
	}()

	publishSystem(publisher, tracker, "STARTUP", "")
	log.Printf("started: data=%s threshold=%d%% duration=%ds device=%s", o.dataDir, cfg.Threshold, cfg.PumpSeconds, o.device)

	mgr := netrole.NewNMCLI(o.iface, nil)

	if creds == nil {
		log.Printf("no wifi credentials stored, starting provisioning")
		tracker.LatchAPMode()
		outputs.SetModeIndicator(true)
		return finish(provision(ctx, provisionDeps{
			tracker:   tracker,
			store:     st,
			manager:   mgr,
			display:   panel,
			publisher: publisher,
			metrics:   m,
			addr:      o.httpAddr,
			ssid:      o.apSSID,
			password:  o.apPassword,
		}), publisher, tracker, reason)
	}

	orch := orchestrator.New(orchestrator.Deps{
		Tracker:    tracker,
		Sensors:    sensors,
		Pump:       pump,
		Outputs:    outputs,
		Display:    panel,
		Publisher:  publisher,
		MQTTStatus: publisher,
		Metrics:    m,
	})

	api := web.New(o.httpAddr, tracker, st, led, orch, m)
	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(o.joinRetries))
	stopStation := startStation(ctx, tracker, mgr, *creds, bo, api, o.httpAddr)

	fast := time.NewTicker(orchestrator.FastInterval)
	defer fast.Stop()
	slow := time.NewTicker(orchestrator.SlowInterval)
	defer slow.Stop()

	err = orch.Run(ctx, orchestrator.Ticks{Fast: fast.C, Slow: slow.C}, queue.C())
	stopStation()

	if errors.Is(err, orchestrator.ErrProvisioning) {
		log.Printf("provisioning requested from the panel")
		err = provision(ctx, provisionDeps{
			tracker:   tracker,
			store:     st,
			manager:   mgr,
			display:   panel,
			publisher: publisher,
			metrics:   m,
			addr:      o.httpAddr,
			ssid:      o.apSSID,
			password:  o.apPassword,
		})
	}
	return finish(err, publisher, tracker, reason)
}

// finish publishes the SHUTDOWN event and passes err through.
func finish(err error, publisher mqtt.Publisher, tracker *state.Tracker, reason <-chan string) error {
	r := "EXIT"
	select {
	case r = <-reason:
	default:
		if err != nil {
			r = "ERROR"
		}
	}
	publishSystem(publisher, tracker, "SHUTDOWN", r)
	return err
}

// stationAPI is the configuration server as the station role drives it.
type stationAPI interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// startStation joins the stored network and then serves api, in the
// background. The returned stop cancels a join still in progress, shuts the
// API down and waits until the station role no longer touches the network.
func startStation(ctx context.Context, tracker *state.Tracker, mgr netrole.Manager, creds state.Credentials, bo backoff.BackOff, api stationAPI, addr string) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if !joinStation(ctx, tracker, mgr, creds, bo) || ctx.Err() != nil {
			return
		}
		log.Printf("http api listening on %s", addr)
		if err := api.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()
	return func() {
		cancel()
		if err := api.Shutdown(context.Background()); err != nil {
			log.Printf("http server shutdown: %v", err)
		}
		<-done
	}
}

// joinStation joins the stored network and reports progress in the network
// info line. It returns false when the controller has to run without a network.
func joinStation(ctx context.Context, tracker *state.Tracker, mgr netrole.Manager, creds state.Credentials, bo backoff.BackOff) bool {
	tracker.SetNetwork(&state.NetworkInfo{Role: netrole.RoleStation, Status: "connecting...", SSID: creds.SSID})

	info, err := netrole.JoinWithRetry(ctx, mgr, creds, bo)
	tracker.SetNetwork(&info)
	if err != nil {
		log.Printf("wifi: %v; running offline", err)
		return false
	}
	log.Printf("wifi: joined %q as %s", info.SSID, info.IP)
	return true
}

type provisionDeps struct {
	tracker   *state.Tracker
	store     web.CredentialStore
	manager   netrole.Manager
	display   display.Display
	publisher mqtt.Publisher
	metrics   *metrics.Metrics
	addr      string
	listener  net.Listener // overrides addr when set
	ssid      string
	password  string
	refresh   time.Duration
}

// provision runs the access point and credentials form until credentials are
// saved or ctx is done. The controller must be restarted to join the network.
func provision(ctx context.Context, d provisionDeps) error {
	d.tracker.LatchAPMode()
	publishSystem(d.publisher, d.tracker, "PROVISIONING", "")

	info, err := d.manager.StartAccessPoint(ctx, d.ssid, d.password)
	if err != nil {
		d.tracker.SetStatus("wifi: access point failed")
		show(d.display, d.tracker)
		return fmt.Errorf("provisioning: %w", err)
	}
	d.tracker.SetNetwork(&info)
	d.tracker.SetStatus("join " + info.SSID + " and open http://" + info.IP)

	ln := d.listener
	if ln == nil {
		ln, err = net.Listen("tcp", d.addr)
		if err != nil {
			return fmt.Errorf("provisioning listen: %w", err)
		}
	}
	srv := web.NewProvisioning(d.addr, d.tracker, d.store, d.metrics)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("provisioning server error: %v", err)
		}
	}()
	defer srv.Shutdown(context.Background())
	log.Printf("provisioning: access point %q at %s", info.SSID, info.IP)

	refresh := d.refresh
	if refresh <= 0 {
		refresh = orchestrator.FastInterval
	}
	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	show(d.display, d.tracker)
	for {
		select {
		case <-ctx.Done():
			return nil
		case creds := <-srv.Saved():
			log.Printf("provisioning: credentials saved for %q, restart to join", creds.SSID)
			d.tracker.SetStatus("saved, restarting")
			show(d.display, d.tracker)
			return nil
		case <-ticker.C:
			show(d.display, d.tracker)
		}
	}
}

func show(d display.Display, tracker *state.Tracker) {
	if err := d.Show(display.Build(tracker.Snapshot())); err != nil {
		log.Printf("display: %v", err)
	}
}

func publishSystem(p mqtt.Publisher, tracker *state.Tracker, event, reason string) {
	snap := tracker.Snapshot()
	err := p.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: state.FormatSystemEvent(snap, event, reason),
	})
	if err != nil {
		log.Printf("failed to publish %s event: %v", strings.ToLower(event), err)
	}
}

// loadState reads persisted config and credentials. Unreadable files fall
// back to defaults (config) or provisioning (credentials).
func loadState(st *store.Store) (state.RuntimeConfig, *state.Credentials) {
	cfg, err := st.LoadConfig()
	if err != nil {
		log.Printf("config: %v; using defaults", err)
	}
	creds, err := st.LoadCredentials()
	if err != nil {
		log.Printf("wifi config: %v; provisioning", err)
		creds = nil
	}
	return cfg, creds
}

func printState(s sensor.Port) error {
	m, err := s.ReadMoisture()
	if err != nil {
		return fmt.Errorf("read moisture: %w", err)
	}
	a, err := s.ReadAmbient()
	if err != nil {
		return fmt.Errorf("read ambient: %w", err)
	}
	fmt.Printf("moisture: %d%%, temperature: %.1fC, humidity: %s\n", m, a.TemperatureC, humidityString(a.Humidity))
	return nil
}

func humidityString(h *float64) string {
	if h == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.0f%%", *h)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "plant"
	}
	return h
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("%s=%q is not a number, using %d", key, v, def)
	}
	return def
}
