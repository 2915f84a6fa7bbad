package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mailru/easyjson/jwriter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sanonone/travelsdb/internal/protocol"
	"github.com/sanonone/travelsdb/pkg/core"
	"github.com/sanonone/travelsdb/pkg/core/types"
)

// maxBodyBytes bounds POST payloads. Records are a handful of short fields.
const maxBodyBytes = 1 << 20

// routes registers the API endpoints.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, core.KindNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, core.KindBadRequest)
	})

	r.Get("/users/{id}/visits", s.handleListVisits)
	r.Get("/locations/{id}/avg", s.handleLocationAverage)
	r.Get("/{entity}/{id}", s.handleFetch)
	r.Post("/{entity}/{id}", s.handlePost)

	return r
}

// adminRoutes registers health, metrics and profiling endpoints.
func (s *Server) adminRoutes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/debug", middleware.Profiler())
	return r
}

// --- Response helpers ---

func statusFor(kind core.Kind) int {
	switch kind {
	case core.KindNone:
		return http.StatusOK
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindInvalid, core.KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON sends the buffered body. POST responses close the connection.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, jw *jwriter.Writer) {
	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Content-Length", strconv.Itoa(jw.Size()))
	if r.Method == http.MethodPost {
		h.Set("Connection", "close")
	}
	w.WriteHeader(status)
	jw.DumpTo(w)
}

// writeError sends {"error":"<kind>"} with the status mapped from kind.
func writeError(w http.ResponseWriter, r *http.Request, kind core.Kind) {
	var jw jwriter.Writer
	encodeError(&jw, kind.String())
	writeJSON(w, r, statusFor(kind), &jw)
}

// fail maps err to a response. Internal errors have already been logged by the engine.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := core.KindOf(err)
	if kind == core.KindInternal && !errors.Is(err, core.ErrInternal) {
		s.logger.Error("Unclassified request error", "path", r.URL.Path, "error", err)
	}
	writeError(w, r, kind)
}

// --- GET handlers ---

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	req, err := protocol.ParseFetch(chi.URLParam(r, "entity"), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var jw jwriter.Writer
	switch req.Entity {
	case types.EntityUser:
		u, err := s.Engine.User(types.UserID(req.ID))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		encodeUser(&jw, u)
	case types.EntityLocation:
		l, err := s.Engine.Location(types.LocationID(req.ID))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		encodeLocation(&jw, l)
	case types.EntityVisit:
		v, err := s.Engine.Visit(types.VisitID(req.ID))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		encodeVisit(&jw, v)
	}
	writeJSON(w, r, http.StatusOK, &jw)
}

func (s *Server) handleListVisits(w http.ResponseWriter, r *http.Request) {
	req, err := protocol.ParseListVisits(chi.URLParam(r, "id"), r.URL.RawQuery)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	list, err := s.Engine.UserVisits(req.User, req.Filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var jw jwriter.Writer
	encodeVisitList(&jw, list)
	writeJSON(w, r, http.StatusOK, &jw)
}

func (s *Server) handleLocationAverage(w http.ResponseWriter, r *http.Request) {
	req, err := protocol.ParseAverage(chi.URLParam(r, "id"), r.URL.RawQuery)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	avg, err := s.Engine.LocationAverage(req.Location, req.Filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var jw jwriter.Writer
	encodeAverage(&jw, avg)
	writeJSON(w, r, http.StatusOK, &jw)
}

// --- POST handler ---

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.fail(w, r, fmt.Errorf("read body: %v: %w", err, core.ErrBadRequest))
		return
	}

	req, err := protocol.ParsePost(chi.URLParam(r, "entity"), chi.URLParam(r, "id"), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.apply(req); err != nil {
		s.fail(w, r, err)
		return
	}

	var jw jwriter.Writer
	encodeEmpty(&jw)
	writeJSON(w, r, http.StatusOK, &jw)
}

// apply executes a create or update against the engine.
func (s *Server) apply(req protocol.Request) error {
	switch req := req.(type) {
	case protocol.CreateEntity:
		switch rec := req.Record.(type) {
		case types.User:
			return s.Engine.CreateUser(rec)
		case types.Location:
			return s.Engine.CreateLocation(rec)
		case types.Visit:
			return s.Engine.CreateVisit(rec)
		}
	case protocol.UpdateEntity:
		switch patch := req.Patch.(type) {
		case types.UserPatch:
			return s.Engine.UpdateUser(types.UserID(req.ID), patch)
		case types.LocationPatch:
			return s.Engine.UpdateLocation(types.LocationID(req.ID), patch)
		case types.VisitPatch:
			return s.Engine.UpdateVisit(types.VisitID(req.ID), patch)
		}
	}
	return fmt.Errorf("unsupported request %T: %w", req, core.ErrBadRequest)
}

// --- Admin ---

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Status string     `json:"status"`
		Now    int64      `json:"now"`
		Stats  core.Stats `json:"stats"`
	}{
		Status: "ok",
		Now:    s.Engine.DB.Now(),
		Stats:  s.Engine.Stats(),
	})
}
