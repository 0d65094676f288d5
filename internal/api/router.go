package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/skinlens/internal/skinservice"
	"github.com/starford/skinlens/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// broker, if non-nil, is mounted at GET /events inside the auth group and
// receives the outcome of POST /reload.
// skinRoot is used to resolve the media directory.
func NewRouter(svc *skinservice.Service, authEnabled bool, token string, broker *sse.Broker, skinRoot string) chi.Router {
	h := NewHandler(svc, broker)
	mh := NewMediaHandler(skinRoot)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Folders and their include tables.
	r.Get("/folders", h.ListFolders)
	r.Route("/folders/{folder}", func(r chi.Router) {
		r.Get("/includes", h.ListIncludes)
		r.Get("/includes/{name}", h.GetInclude)
		r.Get("/complete", h.Complete)
		r.Get("/constants", h.ListConstants)
		r.Get("/files", h.ListFiles)
		r.Get("/fonts", h.ListFonts)
		r.Get("/fontrefs", h.ListFontRefs)
	})

	r.Get("/definitions/{name}", h.Definitions)
	r.Get("/search", h.Search)

	// Skin-wide resources.
	r.Get("/colors", h.ListColors)
	r.Get("/themes", h.ListThemes)
	r.Get("/media", h.ListMedia)
	r.Get("/media/*", mh.ServeFile)

	r.Post("/reload", h.Reload)

	if broker != nil {
		r.Get("/events", broker.ServeHTTP)
	}

	return r
}
