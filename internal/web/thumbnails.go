package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fpang/thumbnail-studio/internal/imaging"
	"github.com/fpang/thumbnail-studio/internal/s3util"
	"github.com/fpang/thumbnail-studio/internal/studio"
	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog/log"
)

// lookupThumbnail finds a result of the caller's current session.
func (s *Server) lookupThumbnail(r *http.Request) (studio.Thumbnail, bool) {
	sess, ok := s.existingSession(r)
	if !ok {
		return studio.Thumbnail{}, false
	}
	st, _ := sess.Snapshot()
	return st.Thumbnail(chi.URLParam(r, "id"))
}

func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookupThumbnail(r)
	if !ok {
		httpError(w, http.StatusNotFound, "thumbnail not found")
		return
	}
	writeImage(w, t.Image.MIMEType, t.Image.Data)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookupThumbnail(r)
	if !ok {
		httpError(w, http.StatusNotFound, "thumbnail not found")
		return
	}
	if data, ok := s.previews.get(t.ID); ok {
		writeImage(w, "image/jpeg", data)
		return
	}
	data, err := imaging.Preview(t.Image.Data, imaging.DefaultPreviewMaxDimension)
	if err != nil {
		log.Warn().Err(err).Str("thumbnail", t.ID).Msg("Preview failed, serving original")
		writeImage(w, t.Image.MIMEType, t.Image.Data)
		return
	}
	s.previews.put(t.ID, data)
	writeImage(w, "image/jpeg", data)
}

// writeImage serves immutable image bytes; ids change on every generation.
func writeImage(w http.ResponseWriter, mimeType string, data []byte) {
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=86400, immutable")
	_, _ = w.Write(data)
}

// handleZip streams every current result as one archive.
func (s *Server) handleZip(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.existingSession(r)
	if !ok {
		httpError(w, http.StatusNotFound, "no thumbnails to download")
		return
	}
	st, _ := sess.Snapshot()
	if len(st.Results) == 0 {
		httpError(w, http.StatusNotFound, "no thumbnails to download")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="thumbnails.zip"`)

	zw := zip.NewWriter(w)
	modified := time.Now()
	for i, t := range st.Results {
		header := &zip.FileHeader{
			Name:     fmt.Sprintf("thumbnail-%d%s", i+1, imaging.Extension(t.Image.MIMEType)),
			Method:   zip.Store,
			Modified: modified,
			Comment:  t.Caption,
		}
		fw, err := zw.CreateHeader(header)
		if err != nil {
			log.Error().Err(err).Msg("Failed to add zip entry")
			return
		}
		if _, err := fw.Write(t.Image.Data); err != nil {
			log.Warn().Err(err).Msg("Zip download interrupted")
			return
		}
	}
	if err := zw.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to finish zip download")
	}
}

type exportResponse struct {
	Bucket  string                  `json:"bucket,omitempty"`
	Objects []s3util.ExportedObject `json:"objects"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		httpError(w, http.StatusNotImplemented, "export is not configured")
		return
	}
	sess := s.session(w, r)
	st, _ := sess.Snapshot()
	if len(st.Results) == 0 {
		httpError(w, http.StatusConflict, "there are no thumbnails to export")
		return
	}

	objects, err := s.exporter.Export(r.Context(), sess.ID(), st.Results)
	if err != nil {
		log.Error().Err(err).Str("session", sess.ID()).Msg("Export failed")
		httpError(w, http.StatusBadGateway, "export failed")
		return
	}

	resp := exportResponse{Objects: objects}
	if b, ok := s.exporter.(interface{ Bucket() string }); ok {
		resp.Bucket = b.Bucket()
	}
	log.Info().Str("session", sess.ID()).Int("objects", len(objects)).Msg("Thumbnails exported")
	respondJSON(w, http.StatusOK, resp)
}
