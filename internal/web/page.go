package web

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/fpang/thumbnail-studio/internal/studio"
	"github.com/rs/zerolog/log"
)

// pageData is what templates/index.html renders.
type pageData struct {
	stateView
	// Notice reports a rejected intent that has no operation status of its own.
	Notice string
}

// handlePage renders the caller's session, or a fresh form without
// registering one; the first POST creates the session.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	var id string
	st, version := studio.NewState(), uint64(0)
	if sess, ok := s.existingSession(r); ok {
		id = sess.ID()
		st, version = sess.Snapshot()
	}
	s.renderPage(w, pageData{stateView: newStateView(id, st, version, s.exporter != nil), Notice: r.URL.Query().Get("notice")})
}

func (s *Server) renderPage(w http.ResponseWriter, data pageData) {
	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		log.Error().Err(err).Msg("Failed to render page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// handlePageAction applies the posted form fields, then at most one intent,
// and redirects back to the page.
func (s *Server) handlePageAction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	sess := s.session(w, r)
	applyFormFields(sess, r)

	target := "/"
	switch {
	case r.PostForm.Has("toggle"):
		sess.ToggleStyle(r.PostForm.Get("toggle"))
	case r.PostForm.Has("suggestion"):
		i, ok := parseIndex(r.PostForm.Get("suggestion"))
		if !ok || sess.SelectSuggestion(i) != nil {
			target = "/?notice=suggestion"
		}
	default:
		switch action := r.PostForm.Get("action"); action {
		case "analyze":
			sess.AnalyzeLink(opContext(r))
		case "suggest":
			sess.SuggestPrompts(opContext(r))
		case "generate":
			sess.Generate(opContext(r))
		case "", "save":
		default:
			log.Debug().Str("action", action).Msg("Ignoring unknown form action")
		}
	}

	http.Redirect(w, r, target, http.StatusSeeOther)
}

// applyFormFields copies the editable fields present in the request. Absent
// fields are left alone. An unparsable count is stored as 0 so generation
// reports the range error.
func applyFormFields(sess *studio.Session, r *http.Request) {
	if r.PostForm.Has("video_link") {
		sess.SetVideoLink(r.PostForm.Get("video_link"))
	}
	if r.PostForm.Has("description") {
		sess.SetDescription(normalizeNewlines(r.PostForm.Get("description")))
	}
	if r.PostForm.Has("image_count") {
		n, err := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("image_count")))
		if err != nil {
			n = 0
		}
		sess.SetImageCount(n)
	}
}

// normalizeNewlines undoes the CRLF that browsers submit for textareas.
func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
