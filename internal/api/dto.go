package api

import (
	"errors"
	"path"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/skinlens/internal/index"
	"github.com/starford/skinlens/internal/models"
	"github.com/starford/skinlens/internal/skinservice"
)

// FolderInfo is a folder summary (aliased from the domain layer).
type FolderInfo = skinservice.FolderInfo

// IncludeDetail is a single include record (aliased from the domain layer).
type IncludeDetail = skinservice.IncludeDetail

// FolderListResponse wraps the folder listing.
type FolderListResponse struct {
	Folders []FolderInfo `json:"folders" validate:"required"`
}

// IncludeListResponse wraps an include listing.
type IncludeListResponse struct {
	Folder   string           `json:"folder" example:"1080i" validate:"required"`
	Includes []models.Include `json:"includes" validate:"required"`
	Total    int              `json:"total" example:"42" validate:"required"`
}

// CompleteResponse wraps name completions.
type CompleteResponse struct {
	Items []index.IncludeRow `json:"items" validate:"required"`
}

// NameListResponse wraps a plain list of names or paths.
type NameListResponse struct {
	Items []string `json:"items" validate:"required"`
}

// DefinitionsResponse wraps the declaration sites of a name.
type DefinitionsResponse struct {
	Name      string            `json:"name" example:"DefaultBackground" validate:"required"`
	Locations []models.Location `json:"locations" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// ReloadRequest is the request body for POST /api/reload.
type ReloadRequest struct {
	Path string `json:"path" example:"1080i/Includes.xml" validate:"required"`
}

// Validate checks that Path names an XML file.
func (r ReloadRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required, validation.By(xmlPath)),
	)
}

func xmlPath(v any) error {
	p, _ := v.(string)
	if !strings.EqualFold(path.Ext(p), ".xml") {
		return errors.New("must be an .xml file")
	}
	return nil
}
