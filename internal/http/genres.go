package http

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/libshelf/library-api/internal/database/catalog"
	"github.com/libshelf/library-api/internal/entities"
)

// GenreStore defines the catalog operations the genre endpoints need.
type GenreStore interface {
	ListGenres(params url.Values) ([]entities.Genre, error)
	GetGenre(id uint) (*entities.Genre, error)
	CreateGenre(in catalog.GenreInput) (*entities.Genre, error)
	UpdateGenre(id uint, name string) (*entities.Genre, error)
	DeleteGenre(id uint) error
	BulkGenres(names []string) ([]entities.Genre, error)
}

type GenresController struct {
	store GenreStore
}

func NewGenresController(store GenreStore) *GenresController {
	return &GenresController{store: store}
}

// List returns genres, filterable by name substring
// GET /api/genres
func (gc *GenresController) List(c *gin.Context) {
	genres, err := gc.store.ListGenres(c.Request.URL.Query())
	if err != nil {
		respondInternalError(c, err, "list genres")
		return
	}
	c.JSON(http.StatusOK, genres)
}

// Get returns a single genre
// GET /api/genres/:id
func (gc *GenresController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	genre, err := gc.store.GetGenre(id)
	if err != nil {
		respondStoreError(c, err, "get genre")
		return
	}
	c.JSON(http.StatusOK, genre)
}

// Create adds a genre
// POST /api/genres
func (gc *GenresController) Create(c *gin.Context) {
	var in catalog.GenreInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "name is required")
		return
	}
	genre, err := gc.store.CreateGenre(in)
	if err != nil {
		respondStoreError(c, err, "create genre")
		return
	}
	respondCreated(c, genre)
}

// Update renames a genre
// PATCH /api/genres/:id
func (gc *GenresController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var in catalog.GenreInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "name is required")
		return
	}
	genre, err := gc.store.UpdateGenre(id, in.Name)
	if err != nil {
		respondStoreError(c, err, "update genre")
		return
	}
	c.JSON(http.StatusOK, genre)
}

// Delete removes a genre without deleting its books
// DELETE /api/genres/:id
func (gc *GenresController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := gc.store.DeleteGenre(id); err != nil {
		respondStoreError(c, err, "delete genre")
		return
	}
	c.Status(http.StatusNoContent)
}

// Bulk get-or-creates a list of genres by name
// POST /api/genres/bulk
func (gc *GenresController) Bulk(c *gin.Context) {
	var req struct {
		Genres []catalog.GenreInput `json:"genres" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "genres list is required")
		return
	}
	names := make([]string, len(req.Genres))
	for i, g := range req.Genres {
		names[i] = g.Name
	}
	genres, err := gc.store.BulkGenres(names)
	if err != nil {
		respondStoreError(c, err, "bulk genres")
		return
	}
	respondCreated(c, genres)
}
