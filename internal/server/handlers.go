package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/jmmpc/lisfy/internal/metrics"
	"github.com/jmmpc/lisfy/internal/models"
	"github.com/jmmpc/lisfy/internal/pathutil"
	"github.com/jmmpc/lisfy/internal/storage"
)

// handlerFunc returns the status and a client-facing error; the error text
// becomes the plain-text response body.
type handlerFunc func(http.ResponseWriter, *http.Request) (status int, err error)

func (h handlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status, err := h(w, r)
	if err != nil {
		http.Error(w, err.Error(), status)
	}
}

// Client-facing errors
var (
	errInvalidPath      = errors.New("invalid URL path")
	errNotFound         = errors.New("no such file or directory")
	errPermission       = errors.New("permission denied")
	errInternal         = errors.New("internal server error")
	errNoSuchFile       = errors.New("no such file")
	errTransferCanceled = errors.New("file transfer is canceled")
	errSaveFailed       = errors.New("failed to save file")
	errLengthRequired   = errors.New("content length required")
)

// requestPath returns the stripped URL path as a rooted tree path.
func requestPath(r *http.Request) string {
	p := r.URL.Path
	if p == "" || p[0] != '/' {
		p = "/" + p
	}
	return p
}

func respondWithJSON(w http.ResponseWriter, data interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(data)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "ok\n")
}

// listHandler answers a folder with its sorted entries and a file with its
// own entry.
func (s *Server) listHandler(w http.ResponseWriter, r *http.Request) (int, error) {
	p := requestPath(r)
	if pathutil.ContainsDotDot(p) {
		return http.StatusBadRequest, errInvalidPath
	}
	log := s.requestLogger(r)

	entry, err := s.backend.Stat(r.Context(), p)
	switch {
	case errors.Is(err, storage.ErrNotExist):
		log.Debug().Err(err).Str("path", p).Msg("failed to read file stat")
		return http.StatusNotFound, errNotFound
	case errors.Is(err, storage.ErrPermission):
		log.Warn().Err(err).Str("path", p).Msg("failed to read file stat")
		return http.StatusForbidden, errPermission
	case err != nil:
		log.Error().Err(err).Str("path", p).Msg("failed to read file stat")
		return http.StatusInternalServerError, errInternal
	}

	var data interface{}
	switch {
	case entry.IsDir:
		entries, err := s.backend.ReadDir(r.Context(), p)
		if errors.Is(err, storage.ErrPermission) {
			return http.StatusForbidden, errPermission
		}
		if err != nil {
			log.Error().Err(err).Str("path", p).Msg("failed to read directory")
			return http.StatusInternalServerError, errInternal
		}
		if entries == nil {
			entries = []models.DirectoryEntry{}
		}
		data = entries
	case entry.Mode == 0 || entry.Mode.IsRegular():
		data = entry
	default:
		return http.StatusInternalServerError, errInternal
	}

	if err := respondWithJSON(w, data); err != nil {
		log.Error().Err(err).Msg("failed to marshal json")
		return http.StatusInternalServerError, errInternal
	}
	return http.StatusOK, nil
}

// downloadHandler streams a file. Seekable bodies go through
// http.ServeContent so range and conditional requests work.
func (s *Server) downloadHandler(w http.ResponseWriter, r *http.Request) {
	p := requestPath(r)
	log := s.requestLogger(r)
	log.Info().Str("client", r.RemoteAddr).Str("path", p).Msg("file requested")

	if pathutil.ContainsDotDot(p) {
		http.Error(w, errInvalidPath.Error(), http.StatusBadRequest)
		s.recordDownload(metrics.StatusError)
		return
	}

	obj, err := s.backend.Open(r.Context(), p)
	if err != nil {
		if !errors.Is(err, storage.ErrNotExist) && !errors.Is(err, storage.ErrIsDir) {
			log.Error().Err(err).Str("path", p).Msg("failed to open file")
		}
		http.Error(w, errNoSuchFile.Error(), http.StatusNotFound)
		s.recordDownload(metrics.StatusError)
		return
	}
	defer obj.Close()

	if rs, ok := obj.Body.(io.ReadSeeker); ok {
		http.ServeContent(w, r, obj.Name, obj.ModTime, rs)
		s.recordDownload(metrics.StatusOK)
		return
	}

	if ct := mime.TypeByExtension(path.Ext(obj.Name)); ct != "" {
		w.Header().Set("Content-Type", ct)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	if obj.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	if !obj.ModTime.IsZero() {
		w.Header().Set("Last-Modified", obj.ModTime.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		s.recordDownload(metrics.StatusOK)
		return
	}
	if _, err := io.Copy(w, obj.Body); err != nil {
		log.Warn().Err(err).Str("path", p).Msg("download interrupted")
		s.recordDownload(metrics.StatusCanceled)
		return
	}
	s.recordDownload(metrics.StatusOK)
}

// uploadHandler stores the request body under a time-stamped variant of
// the requested name so existing files are never replaced.
func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) (int, error) {
	p := requestPath(r)
	if pathutil.ContainsDotDot(p) {
		return http.StatusBadRequest, errInvalidPath
	}
	dir, name := path.Split(p)
	if name == "" {
		return http.StatusBadRequest, errInvalidPath
	}
	log := s.requestLogger(r)

	target := path.Join(dir, pathutil.UniqueName(name, s.now()))
	n, err := s.backend.Create(r.Context(), target, r.Body, r.ContentLength)

	switch {
	case err == nil:
		stored := path.Base(target)
		log.Info().Msgf("file %q received from %s and saved to %q", stored, r.RemoteAddr, dir)
		s.recordUpload(n, metrics.StatusOK)
		return http.StatusOK, nil

	case errors.Is(err, context.Canceled), errors.Is(err, io.ErrUnexpectedEOF):
		log.Info().Err(err).Msgf("%s transfer is canceled", path.Base(target))
		s.recordUpload(0, metrics.StatusCanceled)
		return http.StatusInternalServerError, errTransferCanceled

	case errors.Is(err, storage.ErrLengthRequired):
		s.recordUpload(0, metrics.StatusError)
		return http.StatusLengthRequired, errLengthRequired

	case errors.Is(err, storage.ErrNotExist), errors.Is(err, storage.ErrPermission), errors.Is(err, storage.ErrExist):
		log.Error().Err(err).Str("path", target).Msg("failed to create file")
		s.recordUpload(0, metrics.StatusError)
		return http.StatusInternalServerError, errInternal

	default:
		log.Error().Err(err).Str("path", target).Msg("failed to save file")
		s.recordUpload(0, metrics.StatusError)
		return http.StatusInternalServerError, errSaveFailed
	}
}

func (s *Server) recordUpload(n int64, status string) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordUpload(n, status)
	}
}

func (s *Server) recordDownload(status string) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordDownload(status)
	}
}
