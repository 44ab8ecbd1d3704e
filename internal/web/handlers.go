package web

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/logging"
)

// multipartMemory caps how much of a multipart form is buffered in memory;
// larger parts spill to temporary files.
const multipartMemory = 32 << 20

var (
	errFileTooLarge = errors.New("file too large")
	errTooManyFiles = errors.New("too many files")
)

// UploadResponse is the body returned by a successful ingestion.
type UploadResponse struct {
	Message      string               `json:"message"`
	IngestID     string               `json:"ingestId"`
	Accepted     int                  `json:"accepted"`
	Written      int                  `json:"written"`
	Duplicates   int                  `json:"duplicates"`
	Rejected     int                  `json:"rejected"`
	RejectedRows []core.RejectedRow   `json:"rejectedRows"`
	Sources      []core.SourceSummary `json:"sources"`
}

// HealthResponse is the body of a successful health check.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uploads LimiterStatus `json:"uploads"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, rootMessage)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.service.Store().(core.Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			s.respondError(w, r, &core.StoreError{Op: "ping", Err: err})
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Uploads: s.limiter.status()})
}

// handleUpload ingests every file part of a multipart request as one
// tabular source. The field name of a part does not matter.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(min(maxSize, multipartMemory)); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.respondError(w, r, fmt.Errorf("%w: limit %d bytes", errFileTooLarge, maxSize))
		case errors.Is(err, http.ErrNotMultipart):
			s.respondError(w, r, &core.MalformedInputError{Source: "request", Reason: "no file provided", Err: err})
		default:
			s.respondError(w, r, &core.MalformedInputError{Source: "request", Reason: "invalid multipart form", Err: err})
		}
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := fileParts(r.MultipartForm)
	if len(headers) > s.cfg.Upload.MaxFiles {
		s.respondError(w, r, fmt.Errorf("%w: got %d, limit %d", errTooManyFiles, len(headers), s.cfg.Upload.MaxFiles))
		return
	}

	sources := make([]core.Source, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			s.respondError(w, r, &core.MalformedInputError{Source: fh.Filename, Reason: "cannot read upload", Err: err})
			return
		}
		defer f.Close()
		sources = append(sources, core.Source{Name: fh.Filename, Reader: f})
	}

	if err := s.limiter.acquire(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	defer s.limiter.release()

	result, err := s.service.Ingest(r.Context(), sources)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	rejected := result.RejectedRows
	if rejected == nil {
		rejected = []core.RejectedRow{}
	}
	writeJSON(w, http.StatusOK, UploadResponse{
		Message:      fmt.Sprintf("Successfully uploaded %d students!", result.Written),
		IngestID:     result.IngestID,
		Accepted:     result.Accepted,
		Written:      result.Written,
		Duplicates:   result.Duplicates,
		Rejected:     result.Rejected,
		RejectedRows: rejected,
		Sources:      result.Sources,
	})
}

// fileParts returns the form's file headers ordered by field name, keeping
// the submission order within a field.
func fileParts(form *multipart.Form) []*multipart.FileHeader {
	names := make([]string, 0, len(form.File))
	for name := range form.File {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []*multipart.FileHeader
	for _, name := range names {
		out = append(out, form.File[name]...)
	}
	return out
}

func (s *Server) handleAddStudent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	row, err := core.DecodeRecord(r.Body)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	id, err := s.service.AddOne(r.Context(), row)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"studentId": id})
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.ListAll(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Debug("students listed", "count", len(records))
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, err := studentIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.service.DeleteOne(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// studentIDParam returns the decoded {studentId} segment. chi matches on
// RawPath when the request has one, so the parameter is still escaped in
// exactly that case (ids containing "/" arrive as %2F).
func studentIDParam(r *http.Request) (string, error) {
	id := chi.URLParam(r, "studentId")
	if r.URL.RawPath == "" {
		return id, nil
	}
	decoded, err := url.PathUnescape(id)
	if err != nil {
		return "", &core.InvalidRecordError{Reason: "studentId in path is not valid URL encoding"}
	}
	return decoded, nil
}
