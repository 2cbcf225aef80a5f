package http

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/libshelf/library-api/internal/database/catalog"
	"github.com/libshelf/library-api/internal/entities"
)

// BookStore defines the catalog operations the book endpoints need.
type BookStore interface {
	ListBooks(params url.Values) ([]entities.Book, error)
	GetBook(id uint) (*entities.Book, error)
	CreateBook(in catalog.BookInput) (*entities.Book, error)
	UpdateBook(id uint, in catalog.BookUpdate) (*entities.Book, error)
	DeleteBook(id uint) error
}

type BooksController struct {
	store BookStore
}

func NewBooksController(store BookStore) *BooksController {
	return &BooksController{store: store}
}

// List returns book summaries, filterable by title substring, exact isbn
// and genre-name membership
// GET /api/books
func (bc *BooksController) List(c *gin.Context) {
	books, err := bc.store.ListBooks(c.Request.URL.Query())
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}
	summaries := make([]entities.BookSummary, len(books))
	for i, b := range books {
		summaries[i] = b.Summary()
	}
	c.JSON(http.StatusOK, summaries)
}

// Get returns the full book with its authors and genres
// GET /api/books/:id
func (bc *BooksController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := bc.store.GetBook(id)
	if err != nil {
		respondStoreError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// Create adds a book; nested authors/genres are get-or-created by name
// POST /api/books
func (bc *BooksController) Create(c *gin.Context) {
	var in catalog.BookInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "title and isbn are required")
		return
	}
	book, err := bc.store.CreateBook(in)
	if err != nil {
		respondStoreError(c, err, "create book")
		return
	}
	respondCreated(c, book)
}

// Update partially updates a book; a supplied author/genre list replaces
// the whole set
// PATCH /api/books/:id
func (bc *BooksController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var in catalog.BookUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "malformed book payload")
		return
	}
	book, err := bc.store.UpdateBook(id, in)
	if err != nil {
		respondStoreError(c, err, "update book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// Delete removes a book; historical borrows keep a nullified reference
// DELETE /api/books/:id
func (bc *BooksController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := bc.store.DeleteBook(id); err != nil {
		respondStoreError(c, err, "delete book")
		return
	}
	c.Status(http.StatusNoContent)
}
