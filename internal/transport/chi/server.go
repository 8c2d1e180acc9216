package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/livetable/internal/domain"
	"github.com/kailas-cloud/livetable/internal/domain/batch"
	"github.com/kailas-cloud/livetable/internal/domain/document"
	domview "github.com/kailas-cloud/livetable/internal/domain/view"
	"github.com/kailas-cloud/livetable/internal/logger"
	"github.com/kailas-cloud/livetable/internal/transport/wire"
	healthuc "github.com/kailas-cloud/livetable/internal/usecase/health"
	viewuc "github.com/kailas-cloud/livetable/internal/usecase/view"
)

const maxBatchSize = 500

// DocumentWriter applies corpus changes; every effective change advances the index version.
type DocumentWriter interface {
	Put(ctx context.Context, docs ...document.Document) (uint64, error)
	Delete(ctx context.Context, paths ...string) (uint64, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves table queries, live views and corpus writes over HTTP.
type Server struct {
	views         *viewuc.Manager
	documents     DocumentWriter
	health        *healthuc.Service
	logger        *zap.Logger
	upgrader      websocket.Upgrader
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	views *viewuc.Manager,
	documents DocumentWriter,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		views:     views,
		documents: documents,
		health:    health,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeInvalidQuery),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeViewNotFound),
		sentinelHandler(domain.ErrTooManyViews, http.StatusTooManyRequests, CodeTooManyViews),
		queryErrorHandler,
	}
	return s
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/tables/execute", s.ExecuteTable)
		r.Post("/tables/render", s.RenderTable)
		r.Post("/views", s.OpenView)
		r.Get("/views/{id}", s.GetView)
		r.Delete("/views/{id}", s.CloseView)
		r.Get("/views/{id}/stream", s.StreamView)
		r.Put("/documents", s.PutDocuments)
		r.Delete("/documents", s.DeleteDocuments)
	})
}

// TableRequest is the body of execute and open-view requests.
type TableRequest struct {
	Query      wire.Query `json:"query"`
	SourcePath string     `json:"source_path,omitempty"`
}

// ViewResponse describes an open live view.
type ViewResponse struct {
	ID    uuid.UUID  `json:"id"`
	State wire.State `json:"state"`
}

// DocumentsRequest is the body of PUT /v1/documents.
type DocumentsRequest struct {
	Documents []wire.Document `json:"documents"`
}

// DocumentError describes one rejected document of a write.
type DocumentError struct {
	Index   int    `json:"index"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

// DocumentsErrorResponse is returned when a write contains invalid documents. Nothing is stored.
type DocumentsErrorResponse struct {
	ErrorResponse
	Documents []DocumentError `json:"documents"`
}

func rejectedDocuments(report batch.Report) DocumentsErrorResponse {
	rejected := report.Rejected()
	resp := DocumentsErrorResponse{
		ErrorResponse: ErrorResponse{
			Code:    CodeValidationFailed,
			Message: fmt.Sprintf("%d of %d documents are invalid", len(rejected), len(report.Results())),
		},
		Documents: make([]DocumentError, 0, len(rejected)),
	}
	for _, r := range rejected {
		resp.Documents = append(resp.Documents, DocumentError{Index: r.Index(), Path: r.Path(), Message: r.Err().Error()})
	}
	return resp
}

// VersionResponse reports the index version after a write.
type VersionResponse struct {
	Version uint64 `json:"version"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status       string            `json:"status"`
	Checks       map[string]string `json:"checks"`
	IndexVersion uint64            `json:"index_version"`
	Documents    int               `json:"documents"`
}

// ExecuteTable handles POST /v1/tables/execute.
func (s *Server) ExecuteTable(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeTableRequest(w, r)
	if !ok {
		return
	}
	q, err := req.Query.ToDomain()
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	st := s.views.Execute(r.Context(), q, req.SourcePath)
	if st.Status() == domview.StatusError {
		logger.FromContext(r.Context()).Info("table query failed", zap.String("error", st.Error()))
		writeError(w, http.StatusUnprocessableEntity, CodeQueryFailed, st.Error())
		return
	}
	writeJSON(w, http.StatusOK, wire.FromState(st, s.views.Settings()))
}

// RenderTable handles POST /v1/tables/render.
func (s *Server) RenderTable(w http.ResponseWriter, r *http.Request) {
	var req wire.FixedTable
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	for i, row := range req.Values {
		if len(row) != len(req.Headings) {
			writeError(w, http.StatusBadRequest, CodeValidationFailed,
				"row "+strconv.Itoa(i)+" does not match the number of headings")
			return
		}
	}

	st := s.views.Render(req.Headings, req.Values)
	writeJSON(w, http.StatusOK, wire.FromState(st, s.views.Settings()))
}

// OpenView handles POST /v1/views.
func (s *Server) OpenView(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeTableRequest(w, r)
	if !ok {
		return
	}
	q, err := req.Query.ToDomain()
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	id, v, err := s.views.Open(q, req.SourcePath)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ViewResponse{ID: id, State: wire.FromState(v.State(), v.Settings())})
}

// GetView handles GET /v1/views/{id}.
func (s *Server) GetView(w http.ResponseWriter, r *http.Request) {
	id, ok := viewID(w, r)
	if !ok {
		return
	}
	v, err := s.views.Get(id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ViewResponse{ID: id, State: wire.FromState(v.State(), v.Settings())})
}

// CloseView handles DELETE /v1/views/{id}.
func (s *Server) CloseView(w http.ResponseWriter, r *http.Request) {
	id, ok := viewID(w, r)
	if !ok {
		return
	}
	if err := s.views.Close(id); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PutDocuments handles PUT /v1/documents.
func (s *Server) PutDocuments(w http.ResponseWriter, r *http.Request) {
	var req DocumentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "documents must not be empty")
		return
	}
	if len(req.Documents) > maxBatchSize {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "too many documents in one request")
		return
	}

	// The write is all or nothing; every invalid document is reported.
	var report batch.Report
	docs := make([]document.Document, 0, len(req.Documents))
	for i := range req.Documents {
		d, err := req.Documents[i].ToDomain()
		if err != nil {
			report.Add(batch.Rejected(i, req.Documents[i].Path, err))
			continue
		}
		report.Add(batch.Accepted(i, d.Path()))
		docs = append(docs, d)
	}
	if !report.OK() {
		writeJSON(w, http.StatusBadRequest, rejectedDocuments(report))
		return
	}

	v, err := s.documents.Put(r.Context(), docs...)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VersionResponse{Version: v})
}

// DeleteDocuments handles DELETE /v1/documents?path=...
func (s *Server) DeleteDocuments(w http.ResponseWriter, r *http.Request) {
	var paths []string
	if err := runtime.BindQueryParameter("form", true, true, "path", r.URL.Query(), &paths); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid format for parameter path: "+err.Error())
		return
	}

	v, err := s.documents.Delete(r.Context(), paths...)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VersionResponse{Version: v})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:       string(report.Status),
		Checks:       checks,
		IndexVersion: report.IndexVersion,
		Documents:    report.Documents,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) decodeTableRequest(w http.ResponseWriter, r *http.Request) (TableRequest, bool) {
	var req TableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return TableRequest{}, false
	}
	return req, true
}

func viewID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var id uuid.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid format for parameter id: "+err.Error())
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

// safeDomainMessage returns a client message without exposing storage internals.
// Query errors are user-facing by construction and pass through unchanged.
func safeDomainMessage(err error) string {
	var qe *domain.QueryError
	if errors.As(err, &qe) {
		return qe.Message
	}
	if errors.Is(err, domain.ErrInvalidQuery) {
		return err.Error()
	}
	for _, s := range []error{domain.ErrNotFound, domain.ErrTooManyViews} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func queryErrorHandler(w http.ResponseWriter, err error, msg string) bool {
	if !domain.IsQueryError(err) {
		return false
	}
	writeError(w, http.StatusUnprocessableEntity, CodeQueryFailed, msg)
	return true
}
