package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/ssargent/howfar/pkg/archive"
	"github.com/ssargent/howfar/pkg/export"
	"github.com/ssargent/howfar/pkg/ringfs"
)

// Server holds the API server state
type Server struct {
	store   ArchiveStore
	config  ServerConfig
	metrics *Metrics
	logger  *logrus.Entry
}

// NewServer creates a new API server
func NewServer(store ArchiveStore, config ServerConfig, metrics *Metrics) *Server {
	logger := config.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if config.MaxUploadSize <= 0 {
		config.MaxUploadSize = DefaultMaxUploadSize
	}
	return &Server{
		store:   store,
		config:  config,
		metrics: metrics,
		logger:  logger.WithField("component", "api"),
	}
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API and archive
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]interface{}
//	@Failure		503	{object}	APIResponse
//	@Router			/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		sendError(w, "Archive unavailable", http.StatusServiceUnavailable)
		return
	}
	s.metrics.UpdateArchiveStats(stats)
	sendSuccess(w, map[string]interface{}{"status": "healthy", "archive": stats})
}

// handleListCaptures godoc
//
//	@Summary		List captures
//	@Description	List every archived capture in import order
//	@Tags			captures
//	@Produce		json
//	@Success		200	{array}		archive.Capture
//	@Failure		500	{object}	APIResponse
//	@Router			/captures [get]
func (s *Server) handleListCaptures(w http.ResponseWriter, r *http.Request) {
	captures, err := s.store.Captures()
	if err != nil {
		s.logger.WithError(err).Error("list captures")
		sendError(w, "Failed to list captures", http.StatusInternalServerError)
		return
	}
	if captures == nil {
		captures = []*archive.Capture{}
	}
	sendSuccess(w, captures)
}

// handleGetCapture godoc
//
//	@Summary		Get a capture
//	@Tags			captures
//	@Produce		json
//	@Param			id	path		string	true	"Capture ID"
//	@Success		200	{object}	archive.Capture
//	@Failure		400	{object}	APIResponse
//	@Failure		404	{object}	APIResponse
//	@Router			/captures/{id} [get]
func (s *Server) handleGetCapture(w http.ResponseWriter, r *http.Request) {
	capture, err := s.store.Capture(chi.URLParam(r, "id"))
	if err != nil {
		s.sendLookupError(w, err)
		return
	}
	sendSuccess(w, capture)
}

// handleGetRaw godoc
//
//	@Summary		Download the original UF2 stream of a capture
//	@Tags			captures
//	@Produce		octet-stream
//	@Param			id	path		string	true	"Capture ID"
//	@Success		200	{file}		binary
//	@Failure		404	{object}	APIResponse
//	@Router			/captures/{id}/raw [get]
func (s *Server) handleGetRaw(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	capture, err := s.store.Capture(id)
	if err != nil {
		s.sendLookupError(w, err)
		return
	}
	raw, err := s.store.Raw(id)
	if err != nil {
		s.sendLookupError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName(capture)))
	w.Header().Set("Content-Length", strconv.Itoa(len(raw)))
	_, _ = w.Write(raw)
}

func downloadName(c *archive.Capture) string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID.String() + ".uf2"
}

// handleImport godoc
//
//	@Summary		Upload a capture
//	@Description	Decode a UF2 dump of the measurement flash and archive it
//	@Tags			captures
//	@Accept			octet-stream
//	@Produce		json
//	@Param			name	query		string	false	"Capture name"
//	@Param			body	body		[]byte	true	"UF2 stream"
//	@Success		201		{object}	ImportResponse
//	@Failure		409		{object}	APIResponse
//	@Failure		413		{object}	APIResponse
//	@Failure		422		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/captures [post]
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxUploadSize))
	if err != nil {
		s.metrics.RecordImportFailure("")
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(w, fmt.Sprintf("Upload exceeds %d bytes", s.config.MaxUploadSize), http.StatusRequestEntityTooLarge)
			return
		}
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		s.metrics.RecordImportFailure("")
		sendError(w, "Request body is empty", http.StatusBadRequest)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload-" + time.Now().UTC().Format("20060102T150405Z")
	}

	capture, err := s.store.Import(name, body)
	if errors.Is(err, archive.ErrDuplicateCapture) {
		s.metrics.RecordImportFailure("")
		sendError(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		class := decodeFailureClass(err)
		s.metrics.RecordImportFailure(class)
		if class != "" {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"name":  name,
				"class": class,
			}).Warn("rejected capture")
			sendError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		s.logger.WithError(err).Error("import capture")
		sendError(w, "Failed to import capture", http.StatusInternalServerError)
		return
	}

	s.metrics.RecordImport(capture)
	sendJSON(w, http.StatusCreated, ImportResponse{Capture: capture})
}

// handleDeleteCapture godoc
//
//	@Summary		Delete a capture
//	@Description	Remove a capture and its stream; archived measurements are kept
//	@Tags			captures
//	@Produce		json
//	@Param			id	path		string	true	"Capture ID"
//	@Success		200	{object}	map[string]string
//	@Failure		404	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/captures/{id} [delete]
func (s *Server) handleDeleteCapture(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteCapture(id); err != nil {
		s.sendLookupError(w, err)
		return
	}
	sendSuccess(w, map[string]string{"deleted": id})
}

// handleRecords godoc
//
//	@Summary		Query archived measurements
//	@Description	Measurements of one record version in timestamp order
//	@Tags			records
//	@Produce		json,text/csv,application/x-ndjson
//	@Param			version	query		int		false	"Record version, newest when omitted"
//	@Param			from	query		int		false	"First unix timestamp"
//	@Param			to		query		int		false	"Last unix timestamp (inclusive)"
//	@Param			format	query		string	false	"json (default), csv or jsonl"
//	@Success		200		{object}	RecordsResponse
//	@Failure		400		{object}	APIResponse
//	@Router			/records [get]
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var (
		q   archive.Query
		err error
	)
	if q.Version, err = parseUint32(query.Get("version")); err != nil {
		sendError(w, "Invalid version", http.StatusBadRequest)
		return
	}
	if q.From, err = parseUint32(query.Get("from")); err != nil {
		sendError(w, "Invalid from timestamp", http.StatusBadRequest)
		return
	}
	if q.To, err = parseUint32(query.Get("to")); err != nil {
		sendError(w, "Invalid to timestamp", http.StatusBadRequest)
		return
	}

	set, err := s.store.Records(q)
	if err != nil {
		if errors.Is(err, ringfs.ErrUnsupportedVersion) {
			sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.logger.WithError(err).Error("query records")
		sendError(w, "Failed to query records", http.StatusInternalServerError)
		return
	}

	format := query.Get("format")
	if format == "" || format == "json" {
		rows := set.Rows
		if rows == nil {
			rows = [][]any{}
		}
		sendSuccess(w, RecordsResponse{Version: set.Version, Columns: set.Columns, Rows: rows})
		return
	}

	f, err := export.ParseFormat(format)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	writer, err := export.NewWriter(w, f)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := export.WriteRows(writer, set.Columns, set.Rows); err != nil {
		s.logger.WithError(err).Warn("stream records")
	}
}

// handleStats godoc
//
//	@Summary		Archive statistics
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	archive.Stats
//	@Router			/stats [get]
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		s.logger.WithError(err).Error("archive stats")
		sendError(w, "Failed to read archive stats", http.StatusInternalServerError)
		return
	}
	s.metrics.UpdateArchiveStats(stats)
	sendSuccess(w, stats)
}

func (s *Server) sendLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, archive.ErrInvalidCaptureID):
		sendError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, archive.ErrCaptureNotFound):
		sendError(w, err.Error(), http.StatusNotFound)
	default:
		s.logger.WithError(err).Error("capture lookup")
		sendError(w, "Failed to read capture", http.StatusInternalServerError)
	}
}

func parseUint32(s string) (uint32, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	return uint32(n), err
}

// startMetricsUpdater periodically updates archive metrics until ctx is done
func (s *Server) startMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := s.store.Stats()
			if err != nil {
				s.logger.WithError(err).Warn("refresh archive metrics")
				continue
			}
			s.metrics.UpdateArchiveStats(stats)
		}
	}
}
