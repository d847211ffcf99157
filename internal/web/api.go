package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/fpang/thumbnail-studio/internal/studio"
	"github.com/go-chi/chi/v5"
)

// maxFormBody bounds PUT /api/form payloads.
const maxFormBody = 64 << 10

func (s *Server) respondState(w http.ResponseWriter, status int, sess *studio.Session, st studio.State, version uint64) {
	respondJSON(w, status, newStateView(sess.ID(), st, version, s.exporter != nil))
}

// handleState returns the session state. With since and wait it long-polls
// until the version passes since or wait elapses.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	q := r.URL.Query()

	if q.Get("since") == "" {
		st, v := sess.Snapshot()
		s.respondState(w, http.StatusOK, sess, st, v)
		return
	}
	since, err := strconv.ParseUint(q.Get("since"), 10, 64)
	if err != nil {
		httpError(w, http.StatusBadRequest, "since must be a non-negative integer")
		return
	}
	wait := s.maxWait
	if raw := q.Get("wait"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			httpError(w, http.StatusBadRequest, "wait must be a duration such as 10s")
			return
		}
		wait = min(d, s.maxWait)
	}

	ctx, cancel := context.WithTimeout(r.Context(), wait)
	defer cancel()
	st, v, _ := sess.Watch(ctx, since)
	s.respondState(w, http.StatusOK, sess, st, v)
}

type formRequest struct {
	VideoLink   *string `json:"videoLink"`
	Description *string `json:"description"`
	ImageCount  *int    `json:"imageCount"`
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	var req formRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBody)).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sess := s.session(w, r)
	if req.VideoLink != nil {
		sess.SetVideoLink(*req.VideoLink)
	}
	if req.Description != nil {
		sess.SetDescription(*req.Description)
	}
	if req.ImageCount != nil {
		sess.SetImageCount(*req.ImageCount)
	}
	st, v := sess.Snapshot()
	s.respondState(w, http.StatusOK, sess, st, v)
}

func (s *Server) handleToggleStyle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := studio.LookupStyle(id); !ok {
		httpError(w, http.StatusNotFound, "unknown style: "+id)
		return
	}
	sess := s.session(w, r)
	sess.ToggleStyle(id)
	st, v := sess.Snapshot()
	s.respondState(w, http.StatusOK, sess, st, v)
}

func (s *Server) handleSelectSuggestion(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	i, ok := parseIndex(chi.URLParam(r, "index"))
	if !ok {
		httpError(w, http.StatusBadRequest, "index must be a non-negative integer")
		return
	}
	if err := sess.SelectSuggestion(i); err != nil {
		httpError(w, http.StatusNotFound, "no suggestion at that index")
		return
	}
	st, v := sess.Snapshot()
	s.respondState(w, http.StatusOK, sess, st, v)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	s.startOperation(w, r, (*studio.Session).AnalyzeLink)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	s.startOperation(w, r, (*studio.Session).SuggestPrompts)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	s.startOperation(w, r, (*studio.Session).Generate)
}

// startOperation starts an operation and answers 202 with the busy state. With
// ?wait=true it blocks until the call settles and answers 200; operation
// failures are reported in the state, not the HTTP status.
func (s *Server) startOperation(w http.ResponseWriter, r *http.Request, start func(*studio.Session, context.Context) *studio.Call) {
	sess := s.session(w, r)
	call := start(sess, opContext(r))

	status := http.StatusAccepted
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		if err := call.Wait(r.Context()); err != nil && r.Context().Err() != nil {
			return
		}
		status = http.StatusOK
	} else {
		select {
		case <-call.Done():
			status = http.StatusOK
		default:
		}
	}
	st, v := sess.Snapshot()
	s.respondState(w, status, sess, st, v)
}
