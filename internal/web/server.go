// Package web serves the controller's HTTP interfaces: the station-mode
// configuration API and the access-point credentials form.
package web

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/net/netutil"

	"github.com/sweeney/plant-irrigator/internal/metrics"
	"github.com/sweeney/plant-irrigator/internal/state"
	"github.com/sweeney/plant-irrigator/internal/strip"
)

const (
	contentText = "text/plain; charset=utf-8"
	contentHTML = "text/html; charset=utf-8"
	contentJSON = "application/json"
)

// ConfigStore persists configuration changes.
type ConfigStore interface {
	SavePumpConfig(threshold, seconds int) error
	SavePlantData(date, name string) error
}

// LEDStrip is the cosmetic strip controlled from the API.
type LEDStrip interface {
	SetColor(c strip.RGB) error
	TurnOff() error
	RunRainbow(interval time.Duration)
}

// PumpSwitch toggles the operator's pump enable flag.
type PumpSwitch interface {
	TogglePump() bool
}

// response is what a route produces. Only 200 and 400 are used.
type response struct {
	code        int
	contentType string
	body        []byte
}

func ok(text string) response {
	return response{code: http.StatusOK, contentType: contentText, body: []byte(text)}
}

func badRequest(err error) response {
	return response{code: http.StatusBadRequest, contentType: contentText, body: []byte(err.Error())}
}

type route func(Request) response

func unsupportedMethod(req Request) response {
	return badRequest(fmt.Errorf("unsupported method: %s", req.Method))
}

// listener holds the shared serving machinery of both roles.
type listener struct {
	httpServer *http.Server
	routes     map[string]route
	fallback   route
	metrics    *metrics.Metrics
}

func newListener(addr string, m *metrics.Metrics) *listener {
	l := &listener{routes: make(map[string]route), metrics: m}
	l.httpServer = &http.Server{
		Addr:              addr,
		Handler:           l,
		ReadHeaderTimeout: 5 * time.Second,
	}
	// one client at a time: a kept-alive connection would hold the only slot
	l.httpServer.SetKeepAlivesEnabled(false)
	return l
}

// ServeHTTP dispatches on the exact path. Routes only answer GET; any other
// method on a route path is a 400.
func (l *listener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := ParseRequest(r)

	h, found := l.routes[req.Path]
	label := req.Path
	switch {
	case !found:
		h = l.fallback
		label = "other"
	case req.Method != http.MethodGet:
		h = unsupportedMethod
	}
	resp := h(req)

	if l.metrics != nil {
		l.metrics.HTTPRequests.WithLabelValues(label, strconv.Itoa(resp.code)).Inc()
	}
	if resp.code != http.StatusOK {
		log.Printf("web: %s %s: %d %s", req.Method, req.Path, resp.code, resp.body)
	}

	w.Header().Set("Content-Type", resp.contentType)
	w.WriteHeader(resp.code)
	w.Write(resp.body)
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (l *listener) ListenAndServe() error {
	ln, err := net.Listen("tcp", l.httpServer.Addr)
	if err != nil {
		return err
	}
	return l.Serve(ln)
}

// Serve accepts connections on ln, one at a time.
func (l *listener) Serve(ln net.Listener) error {
	return l.httpServer.Serve(netutil.LimitListener(ln, 1))
}

// Shutdown gracefully shuts down the server.
func (l *listener) Shutdown(ctx context.Context) error {
	return l.httpServer.Shutdown(ctx)
}

// Handler returns the dispatching handler. Useful for tests.
func (l *listener) Handler() http.Handler {
	return l
}

// Server is the station-mode configuration API.
type Server struct {
	*listener

	tracker *state.Tracker
	store   ConfigStore
	strip   LEDStrip
	pump    PumpSwitch

	mu sync.Mutex // serialises config read-modify-write
}

// New creates the station API server.
func New(addr string, tracker *state.Tracker, store ConfigStore, led LEDStrip, pump PumpSwitch, m *metrics.Metrics) *Server {
	s := &Server{
		listener: newListener(addr, m),
		tracker:  tracker,
		store:    store,
		strip:    led,
		pump:     pump,
	}
	s.routes["/set_strip_color"] = s.handleSetStripColor
	s.routes["/turn_off_strip"] = s.handleTurnOffStrip
	s.routes["/run_animation_a"] = s.handleRunAnimation
	s.routes["/switch_pump"] = s.handleSwitchPump
	s.routes["/set_plant_data"] = s.handleSetPlantData
	s.routes["/set_pump_config"] = s.handleSetPumpConfig
	s.routes["/get_backend_data"] = s.handleBackendData
	s.fallback = s.handleFallback
	return s
}

func (s *Server) handleSetStripColor(req Request) response {
	v, err := req.String("rgb")
	if err != nil {
		return badRequest(err)
	}
	c, err := strip.ParseRGB(v)
	if err != nil {
		return badRequest(&paramError{name: "rgb", reason: "invalid"})
	}
	if err := s.strip.SetColor(c); err != nil {
		log.Printf("web: set strip colour: %v", err)
	}
	return ok("strip colour set")
}

func (s *Server) handleTurnOffStrip(Request) response {
	if err := s.strip.TurnOff(); err != nil {
		log.Printf("web: turn off strip: %v", err)
	}
	return ok("strip off")
}

func (s *Server) handleRunAnimation(Request) response {
	s.strip.RunRainbow(strip.RainbowInterval)
	return ok("animation started")
}

func (s *Server) handleSwitchPump(Request) response {
	if s.pump.TogglePump() {
		return ok("pump active")
	}
	return ok("pump inactive")
}

func (s *Server) handleSetPlantData(req Request) response {
	date, err := req.String("date")
	if err != nil {
		return badRequest(err)
	}
	name, err := req.String("name")
	if err != nil {
		return badRequest(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SavePlantData(date, name); err != nil {
		log.Printf("web: save plant data: %v", err)
		return badRequest(err)
	}
	cfg := s.tracker.Config()
	cfg.PlantDate = date
	cfg.PlantName = name
	s.tracker.SetConfig(cfg)
	return ok("plant data saved")
}

func (s *Server) handleSetPumpConfig(req Request) response {
	seconds, err := req.Int("time", 1, math.MaxInt32)
	if err != nil {
		return badRequest(err)
	}
	threshold, err := req.Int("treshold", 0, 100)
	if err != nil {
		return badRequest(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SavePumpConfig(threshold, seconds); err != nil {
		log.Printf("web: save pump config: %v", err)
		return badRequest(err)
	}
	cfg := s.tracker.Config()
	cfg.Threshold = threshold
	cfg.PumpSeconds = seconds
	s.tracker.SetConfig(cfg)
	log.Printf("web: pump config threshold=%d%% duration=%ds", threshold, seconds)
	return ok("pump config saved")
}

func (s *Server) handleBackendData(Request) response {
	return response{
		code:        http.StatusOK,
		contentType: contentJSON,
		body:        state.FormatJSON(s.tracker.Snapshot()),
	}
}

func (s *Server) handleFallback(Request) response {
	var buf bytes.Buffer
	renderStatus(&buf, s.tracker.Snapshot())
	return response{code: http.StatusOK, contentType: contentHTML, body: buf.Bytes()}
}
