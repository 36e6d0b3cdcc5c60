package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-flowviz/pkg/engine"
	"github.com/dd0wney/cluso-flowviz/pkg/flowgraph"
	"github.com/dd0wney/cluso-flowviz/pkg/health"
	"github.com/dd0wney/cluso-flowviz/pkg/logging"
	"github.com/dd0wney/cluso-flowviz/pkg/metrics"
	"github.com/dd0wney/cluso-flowviz/pkg/pools"
	"github.com/dd0wney/cluso-flowviz/pkg/render"
)

const defaultMaxBody = 8 << 20

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Code    int      `json:"code"`
	Reasons []string `json:"reasons,omitempty"`
}

// server renders descriptors posted over HTTP. Each request gets its own
// engine, settled and disposed before the reply is written.
type server struct {
	config    engine.Config
	logger    logging.Logger
	metrics   *metrics.Registry
	health    *health.Checker
	buffers   *pools.BufferPool
	maxBody   int64
	maxTicks  int
	maxEngine int64
	started   time.Time

	inFlight atomic.Int64
	draining atomic.Bool
}

func newServer(cfg engine.Config, logger logging.Logger, reg *metrics.Registry) *server {
	s := &server{
		config:    cfg,
		logger:    logger.With(logging.Component("http")),
		metrics:   reg,
		buffers:   pools.NewBufferPool(),
		maxBody:   defaultMaxBody,
		maxTicks:  3000,
		maxEngine: int64(4 * runtime.GOMAXPROCS(0)),
		started:   time.Now(),
	}

	s.health = health.NewChecker(version, s.started)
	s.health.Register(health.KindHealth, "engines", health.CapacityCheck(s.inFlight.Load, s.maxEngine))
	s.health.Register(health.KindHealth, "memory", health.MemoryCheck(1<<30))
	s.health.Register(health.KindReadiness, "surface", health.ProbeCheck("surface", probeSurfaces))
	s.health.Register(health.KindReadiness, "drain", health.DrainCheck(s.draining.Load))
	s.health.Register(health.KindLiveness, "metrics", health.ProbeCheck("metrics", func() error {
		_, err := s.metrics.GetPrometheusRegistry().Gather()
		return err
	}))
	return s
}

// probeSurfaces draws an empty frame on every raster and vector surface
func probeSurfaces() error {
	frame := &render.Frame{Width: 1, Height: 1, Background: "#ffffff"}
	for _, format := range []string{formatSVG, formatPNG} {
		surface, err := surfaceFor(format)
		if err != nil {
			return err
		}
		if err := surface.Draw(io.Discard, frame); err != nil {
			return fmt.Errorf("%s surface: %w", format, err)
		}
	}
	return nil
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/layout", s.handleRender(formatLayout))
	mux.HandleFunc("POST /v1/frame", s.handleRender(formatFrame))
	mux.HandleFunc("POST /v1/render.svg", s.handleRender(formatSVG))
	mux.HandleFunc("POST /v1/render.png", s.handleRender(formatPNG))
	mux.HandleFunc("POST /v1/validate", s.handleValidate)
	mux.HandleFunc("GET /healthz", s.health.Handler(health.KindHealth))
	mux.HandleFunc("GET /readyz", s.health.Handler(health.KindReadiness))
	mux.HandleFunc("GET /livez", s.health.Handler(health.KindLiveness))
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	return s.metrics.Middleware(mux)
}

// renderParams are the query parameters shared by the render endpoints
type renderParams struct {
	ticks  int
	focus  string
	fit    bool
	width  float64
	height float64
}

func (s *server) parseParams(r *http.Request) (renderParams, error) {
	q := r.URL.Query()
	p := renderParams{ticks: s.maxTicks, focus: q.Get("focus")}

	if v := q.Get("ticks"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, fmt.Errorf("ticks must be a positive integer, got %q", v)
		}
		p.ticks = min(n, s.maxTicks)
	}
	if v := q.Get("fit"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return p, fmt.Errorf("fit must be a boolean, got %q", v)
		}
		p.fit = b
	}
	for name, dst := range map[string]*float64{"width": &p.width, "height": &p.height} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 || f > 8192 {
			return p, fmt.Errorf("%s must be in (0, 8192], got %q", name, v)
		}
		*dst = f
	}
	return p, nil
}

func (s *server) decodeDescriptor(w http.ResponseWriter, r *http.Request) (flowgraph.Descriptor, error) {
	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	defer body.Close()

	format := flowgraph.FormatJSON
	ct := r.Header.Get("Content-Type")
	if strings.Contains(ct, "yaml") {
		format = flowgraph.FormatYAML
	}
	return flowgraph.DecodeDescriptor(body, format)
}

func (s *server) handleRender(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := s.parseParams(r)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		desc, err := s.decodeDescriptor(w, r)
		if err != nil {
			s.respondDecodeError(w, err)
			return
		}

		cfg := s.config
		if params.width > 0 {
			cfg.Width = params.width
		}
		if params.height > 0 {
			cfg.Height = params.height
		}

		e, err := engine.New(desc, engine.Options{
			Config:             &cfg,
			Logger:             s.logger,
			Metrics:            s.metrics,
			InitialFocusNodeID: params.focus,
		})
		if err != nil {
			s.respondBuildError(w, err)
			return
		}
		s.inFlight.Add(1)
		defer s.inFlight.Add(-1)
		defer e.Dispose()

		buf := s.buffers.Get(pools.SizeHint(format, len(desc.Nodes), len(desc.Links)))
		defer s.buffers.Put(buf)
		if err := settleAndDraw(e, params.ticks, params.fit, format, buf); err != nil {
			s.logger.Error("render failed", logging.String("format", format), logging.Error(err))
			s.respondError(w, http.StatusInternalServerError, "render failed")
			return
		}

		w.Header().Set("Content-Type", contentTypeFor(format))
		w.Header().Set("X-Engine-Id", e.ID())
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(buf.Bytes()); err != nil {
			s.logger.Warn("write response", logging.Error(err))
		}
	}
}

func (s *server) handleValidate(w http.ResponseWriter, r *http.Request) {
	desc, err := s.decodeDescriptor(w, r)
	if err != nil {
		s.respondDecodeError(w, err)
		return
	}
	g, err := flowgraph.Build(desc)
	if err != nil {
		s.respondBuildError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{
		"nodes": len(g.Nodes),
		"links": len(g.Links),
	})
}

func (s *server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encode response", logging.Error(err))
	}
}

func (s *server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

func (s *server) respondDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("descriptor exceeds %d bytes", tooLarge.Limit))
		return
	}
	s.respondError(w, http.StatusBadRequest, err.Error())
}

// respondBuildError answers 422 with one reason per defect for a rejected
// descriptor and 400 for anything else
func (s *server) respondBuildError(w http.ResponseWriter, err error) {
	var defects flowgraph.ConstructionErrors
	if !errors.As(err, &defects) {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := http.StatusUnprocessableEntity
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: err.Error(),
		Code:    status,
		Reasons: defects.Reasons(),
	})
}
