package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/weave/internal/apperr"
	"github.com/starford/weave/internal/parser"
	"github.com/starford/weave/internal/sectionservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *sectionservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *sectionservice.Service) *Handler {
	return &Handler{svc: svc}
}

// documentPath extracts the document path from the URL (everything after
// /api/documents/). Encoded slashes from OpenAPI clients are accepted.
func documentPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// writeError maps service errors onto status codes.
func writeError(w http.ResponseWriter, op string, err error, attrs ...slog.Attr) {
	var perr *parser.DiagnosticsError
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("already exists"))
	case errors.Is(err, apperr.ErrInvalidDocument):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	case errors.As(err, &perr):
		writeJSON(w, http.StatusUnprocessableEntity, DiagnosticsResponse{Diagnostics: perr.Diagnostics})
	default:
		args := []any{slog.String("error", err.Error())}
		for _, a := range attrs {
			args = append(args, a)
		}
		slog.Error(op+" failed", args...)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListSections handles GET /api/sections.
//
//	@Summary		List sections with pagination
//	@Tags			sections
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	SectionListResponse
//	@Security		BearerAuth
//	@Router			/sections [get]
func (h *Handler) ListSections(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListSections(r.Context(), limit, offset)
	if err != nil {
		writeError(w, "list sections", err)
		return
	}
	writeJSON(w, http.StatusOK, SectionListResponse{Sections: items, Total: total})
}

// GetSection handles GET /api/sections/{id}.
//
//	@Summary		Get a section by id
//	@Tags			sections
//	@Produce		json
//	@Param			id	path		string	true	"Section id"
//	@Success		200	{object}	SectionDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sections/{id} [get]
func (h *Handler) GetSection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sec, err := h.svc.GetSection(r.Context(), id)
	if err != nil {
		writeError(w, "get section", err, slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, sec)
}

// Backlinks handles GET /api/sections/{id}/backlinks.
//
//	@Summary		List the sections linking to a section
//	@Tags			sections
//	@Produce		json
//	@Param			id	path		string	true	"Section id"
//	@Success		200	{object}	BacklinksResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sections/{id}/backlinks [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	bl, err := h.svc.Backlinks(r.Context(), id)
	if err != nil {
		writeError(w, "backlinks", err, slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{ID: id, Backlinks: bl})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across sections
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err, slog.String("query", q))
		return
	}
	out := make([]SearchResult, len(results))
	for i, res := range results {
		out[i] = SearchResult{ID: res.ID, Path: res.Path, Title: res.Title, Snippet: res.Snippet}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: out})
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the reference graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.Graph(r.Context())
	if err != nil {
		writeError(w, "graph", err)
		return
	}
	writeJSON(w, http.StatusOK, graphResponse(g))
}

// Cycles handles GET /api/graph/cycles.
//
//	@Summary		List reference cycles
//	@Tags			graph
//	@Produce		json
//	@Param			dedupe	query		bool	false	"Collapse rotations of the same cycle"
//	@Success		200		{object}	CyclesResponse
//	@Security		BearerAuth
//	@Router			/graph/cycles [get]
func (h *Handler) Cycles(w http.ResponseWriter, r *http.Request) {
	dedupe, _ := strconv.ParseBool(r.URL.Query().Get("dedupe"))
	cycles, err := h.svc.Cycles(r.Context(), dedupe)
	if err != nil {
		writeError(w, "cycles", err)
		return
	}
	writeJSON(w, http.StatusOK, CyclesResponse{Cycles: cycles})
}

// GraphSVG handles GET /api/graph.svg.
//
//	@Summary		Render the reference graph as SVG
//	@Tags			graph
//	@Produce		image/svg+xml
//	@Success		200
//	@Security		BearerAuth
//	@Router			/graph.svg [get]
func (h *Handler) GraphSVG(w http.ResponseWriter, r *http.Request) {
	svg, err := h.svc.GraphSVG(r.Context())
	if err != nil {
		writeError(w, "graph svg", err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(svg)
}

// Diagnostics handles GET /api/diagnostics. With a path query the stored
// diagnostics of that document are returned; otherwise the whole workspace
// is validated.
//
//	@Summary		Diagnostics of a document or of the workspace
//	@Tags			diagnostics
//	@Produce		json
//	@Param			path	query		string	false	"Document path"
//	@Success		200		{object}	DiagnosticsResponse
//	@Security		BearerAuth
//	@Router			/diagnostics [get]
func (h *Handler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	if path := r.URL.Query().Get("path"); path != "" {
		diags, err := h.svc.Diagnostics(r.Context(), path)
		if err != nil {
			writeError(w, "diagnostics", err, slog.String("path", path))
			return
		}
		writeJSON(w, http.StatusOK, DiagnosticsResponse{Diagnostics: diags})
		return
	}
	dedupe, _ := strconv.ParseBool(r.URL.Query().Get("dedupe"))
	report, err := h.svc.Validate(r.Context(), dedupe)
	if err != nil {
		writeError(w, "validate", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Parse handles POST /api/parse.
//
//	@Summary		Parse a single document
//	@Tags			parse
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ParseRequest	true	"Document to parse"
//	@Success		200		{object}	models.AST
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/parse [post]
func (h *Handler) Parse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	var opts []parser.Option
	if req.FilePath != "" {
		opts = append(opts, parser.WithFilePath(req.FilePath))
	}
	if req.Strict {
		opts = append(opts, parser.WithStrict())
	}
	if req.StripPositions {
		opts = append(opts, parser.WithStripPositions())
	}
	ast, err := h.svc.Parse(r.Context(), []byte(req.Content), opts...)
	if err != nil {
		var perr *parser.Error
		if errors.As(err, &perr) {
			writeJSON(w, http.StatusUnprocessableEntity, errorBody(perr.Error()))
			return
		}
		writeError(w, "parse", err)
		return
	}
	writeJSON(w, http.StatusOK, ast)
}

// ExtractLinks handles POST /api/links/extract.
//
//	@Summary		Extract node links without a full parse
//	@Tags			parse
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ExtractRequest	true	"Markdown text"
//	@Success		200		{object}	validate.ExtractResult
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links/extract [post]
func (h *Handler) ExtractLinks(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	writeJSON(w, http.StatusOK, h.svc.ExtractLinks(r.Context(), req.Content, req.FilePath))
}

// GetDocument handles GET /api/documents/*.
//
//	@Summary		Get a raw document and its parse result
//	@Tags			documents
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	DocumentDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	doc, err := h.svc.GetDocument(r.Context(), path)
	if err != nil {
		writeError(w, "get document", err, slog.String("path", path))
		return
	}
	w.Header().Set("ETag", `"`+doc.Checksum+`"`)
	writeJSON(w, http.StatusOK, doc)
}

// PutDocument handles PUT /api/documents/*.
//
//	@Summary		Create or replace a document with optimistic concurrency
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			path		path		string				true	"Document path"
//	@Param			If-Match	header		string				false	"Checksum for optimistic concurrency"
//	@Param			body		body		PutDocumentRequest	true	"Document content"
//	@Success		200			{object}	DocumentDetail
//	@Success		201			{object}	DocumentDetail
//	@Failure		400			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [put]
func (h *Handler) PutDocument(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req PutDocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	doc, created, err := h.svc.PutDocument(r.Context(), path, []byte(req.Content), ifMatch)
	if err != nil {
		writeError(w, "put document", err, slog.String("path", path))
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	w.Header().Set("ETag", `"`+doc.Checksum+`"`)
	writeJSON(w, status, doc)
}

// DeleteDocument handles DELETE /api/documents/*.
//
//	@Summary		Delete a document
//	@Tags			documents
//	@Param			path	path	string	true	"Document path"
//	@Success		204		"Document deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteDocument(r.Context(), path); err != nil {
		writeError(w, "delete document", err, slog.String("path", path))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveDocument handles POST /api/documents/move.
//
//	@Summary		Rename a document
//	@Tags			documents
//	@Accept			json
//	@Param			body	body	MoveDocumentRequest	true	"Source and target paths"
//	@Success		204		"Document moved"
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/move [post]
func (h *Handler) MoveDocument(w http.ResponseWriter, r *http.Request) {
	var req MoveDocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.From == "" || req.To == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("from and to are required"))
		return
	}
	if err := h.svc.MoveDocument(r.Context(), req.From, req.To); err != nil {
		writeError(w, "move document", err, slog.String("from", req.From), slog.String("to", req.To))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
