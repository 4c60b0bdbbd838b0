// Package server exposes the dashboard over HTTP: JSON for the snapshot and
// the live reading, a websocket pushing live readings, and the rendered SVG,
// HTML and CSV documents.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"git.sr.ht/~whereswaldon/watt-wealth/backend"
	"git.sr.ht/~whereswaldon/watt-wealth/flow"
	"git.sr.ht/~whereswaldon/watt-wealth/render"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Frame is the live payload: a reading and what the diagram makes of it.
type Frame struct {
	Reading     flow.Reading     `json:"reading"`
	Intensities flow.Intensities `json:"intensities"`
	Mix         backend.Mix      `json:"mix"`
}

func NewFrame(r flow.Reading) Frame {
	return Frame{
		Reading:     r,
		Intensities: flow.Normalize(r),
		Mix:         backend.EnergyMix(r),
	}
}

type Server struct {
	ds    *backend.Datasource
	nudge int

	latest backend.RWBox[Frame]

	subsLock sync.Mutex
	subs     map[chan Frame]struct{}

	upgrader websocket.Upgrader
}

func New(ds *backend.Datasource, nudge int) *Server {
	s := &Server{
		ds:    ds,
		nudge: nudge,
		subs:  map[chan Frame]struct{}{},
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.latest.Set(NewFrame(ds.Latest()))
	return s
}

// Run publishes every reading from readings to HTTP clients until the channel
// closes or ctx ends.
func (s *Server) Run(ctx context.Context, readings <-chan flow.Reading) {
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-readings:
			if !ok {
				return
			}
			f := NewFrame(r)
			s.latest.Set(f)
			s.broadcast(f)
		}
	}
}

func (s *Server) broadcast(f Frame) {
	s.subsLock.Lock()
	defer s.subsLock.Unlock()
	for sub := range s.subs {
		// Slow clients skip frames rather than stall the others.
		select {
		case sub <- f:
		default:
		}
	}
}

func (s *Server) subscribe() chan Frame {
	sub := make(chan Frame, 4)
	s.subsLock.Lock()
	s.subs[sub] = struct{}{}
	s.subsLock.Unlock()
	return sub
}

func (s *Server) unsubscribe(sub chan Frame) {
	s.subsLock.Lock()
	delete(s.subs, sub)
	s.subsLock.Unlock()
}

// Handler returns the router for every endpoint.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/snapshot", s.getSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/api/reading", s.getReading).Methods(http.MethodGet)
	r.HandleFunc("/api/live", s.live).Methods(http.MethodGet)
	r.HandleFunc("/flow.svg", s.getFlowSVG).Methods(http.MethodGet)
	r.HandleFunc("/report.html", s.getReport).Methods(http.MethodGet)
	r.HandleFunc("/forecast.csv", s.getForecastCSV).Methods(http.MethodGet)
	r.Handle("/", http.RedirectHandler("/report.html", http.StatusFound))
	return r
}

// ListenAndServe serves Handler on addr with request logging until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	logWriter := log.StandardLogger().WriterLevel(log.InfoLevel)
	defer logWriter.Close()
	srv := &http.Server{
		Addr:    addr,
		Handler: handlers.LoggingHandler(logWriter, s.Handler()),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	log.Infof("listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("failed writing response: %v", err)
	}
}

func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.ds.Snapshot())
}

func (s *Server) getReading(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.latest.Get())
}

func (s *Server) getFlowSVG(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	if err := render.FlowSVG(w, s.latest.Get().Reading, s.nudge); err != nil {
		log.Warnf("failed writing flow diagram: %v", err)
	}
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.Report(w, s.ds.Snapshot()); err != nil {
		log.Warnf("failed writing report: %v", err)
	}
}

func (s *Server) getForecastCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="forecast.csv"`)
	if err := backend.WriteForecastCSV(w, s.ds.Snapshot().Dataset()); err != nil {
		log.Warnf("failed writing forecast: %v", err)
	}
}

func (s *Server) live(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debugf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := s.subscribe()
	defer s.unsubscribe(sub)

	// The client never sends anything we use, but reading is how a close
	// from its side is noticed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debugf("websocket closed: %v", err)
				}
				return
			}
		}
	}()

	if err := conn.WriteJSON(s.latest.Get()); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case f := <-sub:
			if err := conn.WriteJSON(f); err != nil {
				return
			}
		}
	}
}
