package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/skinlens/internal/models"
	"github.com/starford/skinlens/internal/skinservice"
	"github.com/starford/skinlens/internal/sse"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *skinservice.Service
	broker *sse.Broker
}

// NewHandler creates a new Handler. broker may be nil.
func NewHandler(svc *skinservice.Service, broker *sse.Broker) *Handler {
	return &Handler{svc: svc, broker: broker}
}

// urlParam returns a decoded chi URL parameter.
func urlParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

// ListFolders handles GET /api/folders.
//
//	@Summary		List resolution folders
//	@Tags			folders
//	@Produce		json
//	@Success		200		{object}	FolderListResponse
//	@Security		BearerAuth
//	@Router			/folders [get]
func (h *Handler) ListFolders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FolderListResponse{Folders: h.svc.Folders(r.Context())})
}

// ListIncludes handles GET /api/folders/{folder}/includes.
//
//	@Summary		List the active includes, variables, constants and expressions of a folder
//	@Tags			includes
//	@Produce		json
//	@Param			folder	path		string	true	"Resolution folder"
//	@Param			kind	query		string	false	"Declaration kind"	Enums(include, variable, constant, expression)
//	@Param			q		query		string	false	"Name substring"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	IncludeListResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders/{folder}/includes [get]
func (h *Handler) ListIncludes(w http.ResponseWriter, r *http.Request) {
	folder := urlParam(r, "folder")
	q := r.URL.Query()
	recs, err := h.svc.Includes(r.Context(), folder, q.Get("kind"), q.Get("q"), queryInt(r, "limit"))
	if err != nil {
		writeError(w, "list includes", err)
		return
	}
	if recs == nil {
		recs = []models.Include{}
	}
	writeJSON(w, http.StatusOK, IncludeListResponse{Folder: folder, Includes: recs, Total: len(recs)})
}

// GetInclude handles GET /api/folders/{folder}/includes/{name}.
//
//	@Summary		Get one include, optionally fully resolved
//	@Tags			includes
//	@Produce		json
//	@Param			folder	path		string	true	"Resolution folder"
//	@Param			name	path		string	true	"Include name"
//	@Param			resolve	query		bool	false	"Inline nested references"
//	@Success		200		{object}	IncludeDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders/{folder}/includes/{name} [get]
func (h *Handler) GetInclude(w http.ResponseWriter, r *http.Request) {
	resolve, _ := strconv.ParseBool(r.URL.Query().Get("resolve"))
	d, err := h.svc.Include(r.Context(), urlParam(r, "folder"), urlParam(r, "name"), resolve)
	if err != nil {
		writeError(w, "get include", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Complete handles GET /api/folders/{folder}/complete.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.svc.Complete(r.Context(), urlParam(r, "folder"), q.Get("prefix"), q.Get("kind"), queryInt(r, "limit"))
	if err != nil {
		writeError(w, "complete", err)
		return
	}
	writeJSON(w, http.StatusOK, CompleteResponse{Items: items})
}

// ListConstants handles GET /api/folders/{folder}/constants.
func (h *Handler) ListConstants(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.Constants(r.Context(), urlParam(r, "folder"))
	if err != nil {
		writeError(w, "list constants", err)
		return
	}
	writeJSON(w, http.StatusOK, NameListResponse{Items: nonNil(names)})
}

// ListFiles handles GET /api/folders/{folder}/files.
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.svc.Files(r.Context(), urlParam(r, "folder"))
	if err != nil {
		writeError(w, "list files", err)
		return
	}
	writeJSON(w, http.StatusOK, NameListResponse{Items: nonNil(files)})
}

// ListFonts handles GET /api/folders/{folder}/fonts.
func (h *Handler) ListFonts(w http.ResponseWriter, r *http.Request) {
	fonts, err := h.svc.Fonts(r.Context(), urlParam(r, "folder"))
	if err != nil {
		writeError(w, "list fonts", err)
		return
	}
	if fonts == nil {
		fonts = []models.Font{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"fonts": fonts})
}

// ListFontRefs handles GET /api/folders/{folder}/fontrefs.
func (h *Handler) ListFontRefs(w http.ResponseWriter, r *http.Request) {
	refs, err := h.svc.FontRefs(r.Context(), urlParam(r, "folder"))
	if err != nil {
		writeError(w, "list font refs", err)
		return
	}
	if refs == nil {
		refs = []models.FontRef{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"refs": refs})
}

// Definitions handles GET /api/definitions/{name}.
//
//	@Summary		Find where a name is declared in every folder
//	@Tags			includes
//	@Produce		json
//	@Param			name	path		string	true	"Include, variable, constant or expression name"
//	@Success		200		{object}	DefinitionsResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/definitions/{name} [get]
func (h *Handler) Definitions(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	locs, err := h.svc.Definitions(r.Context(), name)
	if err != nil {
		writeError(w, "definitions", err)
		return
	}
	writeJSON(w, http.StatusOK, DefinitionsResponse{Name: name, Locations: locs})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search over include content
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
	results, err := h.svc.Search(r.Context(), q, queryInt(r, "limit"))
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// ListColors handles GET /api/colors.
func (h *Handler) ListColors(w http.ResponseWriter, r *http.Request) {
	colors := h.svc.Colors(r.Context())
	if colors == nil {
		colors = []models.Color{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"colors": colors})
}

// ListThemes handles GET /api/themes.
func (h *Handler) ListThemes(w http.ResponseWriter, r *http.Request) {
	themes, err := h.svc.Themes(r.Context())
	if err != nil {
		writeError(w, "list themes", err)
		return
	}
	writeJSON(w, http.StatusOK, NameListResponse{Items: nonNil(themes)})
}

// ListMedia handles GET /api/media.
func (h *Handler) ListMedia(w http.ResponseWriter, r *http.Request) {
	files, err := h.svc.Media(r.Context())
	if err != nil {
		writeError(w, "list media", err)
		return
	}
	writeJSON(w, http.StatusOK, NameListResponse{Items: nonNil(files)})
}

// Reload handles POST /api/reload.
//
//	@Summary		Reload whatever depends on one skin file
//	@Tags			reload
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ReloadRequest	true	"Changed file"
//	@Success		200		{object}	models.ReloadResult
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reload [post]
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req ReloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	res, err := h.svc.Reload(r.Context(), req.Path)
	if err != nil {
		writeError(w, "reload", err)
		return
	}
	if h.broker != nil {
		h.broker.PublishReload(res)
	}
	writeJSON(w, http.StatusOK, res)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
