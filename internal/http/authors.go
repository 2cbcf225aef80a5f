package http

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/libshelf/library-api/internal/database/catalog"
	"github.com/libshelf/library-api/internal/entities"
)

// AuthorStore defines the catalog operations the author endpoints need.
type AuthorStore interface {
	ListAuthors(params url.Values) ([]entities.Author, error)
	GetAuthor(id uint) (*entities.Author, error)
	CreateAuthor(in catalog.AuthorInput) (*entities.Author, error)
	UpdateAuthor(id uint, in catalog.AuthorUpdate) (*entities.Author, error)
	DeleteAuthor(id uint) error
}

type AuthorsController struct {
	store AuthorStore
}

func NewAuthorsController(store AuthorStore) *AuthorsController {
	return &AuthorsController{store: store}
}

// List returns authors, filterable by full_name substring
// GET /api/authors
func (ac *AuthorsController) List(c *gin.Context) {
	authors, err := ac.store.ListAuthors(c.Request.URL.Query())
	if err != nil {
		respondInternalError(c, err, "list authors")
		return
	}
	c.JSON(http.StatusOK, authors)
}

// Get returns a single author
// GET /api/authors/:id
func (ac *AuthorsController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	author, err := ac.store.GetAuthor(id)
	if err != nil {
		respondStoreError(c, err, "get author")
		return
	}
	c.JSON(http.StatusOK, author)
}

// Create adds an author
// POST /api/authors
func (ac *AuthorsController) Create(c *gin.Context) {
	var in catalog.AuthorInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "full_name is required")
		return
	}
	author, err := ac.store.CreateAuthor(in)
	if err != nil {
		respondStoreError(c, err, "create author")
		return
	}
	respondCreated(c, author)
}

// Update partially updates an author
// PATCH /api/authors/:id
func (ac *AuthorsController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var in catalog.AuthorUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "malformed author payload")
		return
	}
	author, err := ac.store.UpdateAuthor(id, in)
	if err != nil {
		respondStoreError(c, err, "update author")
		return
	}
	c.JSON(http.StatusOK, author)
}

// Delete removes an author without deleting its books
// DELETE /api/authors/:id
func (ac *AuthorsController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ac.store.DeleteAuthor(id); err != nil {
		respondStoreError(c, err, "delete author")
		return
	}
	c.Status(http.StatusNoContent)
}
