package http

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/libshelf/library-api/internal/database/borrows"
	"github.com/libshelf/library-api/internal/entities"
)

// BorrowStore defines the ledger operations the borrow endpoints need.
type BorrowStore interface {
	List(params url.Values) ([]entities.Borrow, error)
	Get(id uint) (*entities.Borrow, error)
	Create(in borrows.BorrowInput) (*entities.Borrow, error)
	Update(id uint, in borrows.BorrowUpdate) (*entities.Borrow, error)
	Delete(id uint) error
}

type BorrowsController struct {
	store BorrowStore
}

func NewBorrowsController(store BorrowStore) *BorrowsController {
	return &BorrowsController{store: store}
}

// borrowResponse embeds the book summary and the borrower's full name the
// way listings render them. Nullified references render as null/empty.
type borrowResponse struct {
	ID           uint                  `json:"id"`
	Book         *entities.BookSummary `json:"book"`
	UserID       *uint                 `json:"user_id"`
	UserFullName string                `json:"user_full_name"`
	BorrowDate   entities.Date         `json:"borrow_date"`
	ReturnDate   entities.Date         `json:"return_date"`
	Returned     bool                  `json:"returned"`
}

func toBorrowResponse(b entities.Borrow) borrowResponse {
	resp := borrowResponse{
		ID:         b.ID,
		UserID:     b.UserID,
		BorrowDate: b.BorrowDate,
		ReturnDate: b.ReturnDate,
		Returned:   b.Returned,
	}
	if b.Book != nil {
		summary := b.Book.Summary()
		resp.Book = &summary
	}
	if b.User != nil {
		resp.UserFullName = b.User.FullName()
	}
	return resp
}

// List returns borrows, filterable by book_title substring and a two-token
// user_full_name
// GET /api/borrows
func (bc *BorrowsController) List(c *gin.Context) {
	list, err := bc.store.List(c.Request.URL.Query())
	if err != nil {
		respondInternalError(c, err, "list borrows")
		return
	}
	resp := make([]borrowResponse, len(list))
	for i, b := range list {
		resp[i] = toBorrowResponse(b)
	}
	c.JSON(http.StatusOK, resp)
}

// Get returns a single borrow
// GET /api/borrows/:id
func (bc *BorrowsController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	borrow, err := bc.store.Get(id)
	if err != nil {
		respondStoreError(c, err, "get borrow")
		return
	}
	c.JSON(http.StatusOK, toBorrowResponse(*borrow))
}

// Create records a borrow
// POST /api/borrows
func (bc *BorrowsController) Create(c *gin.Context) {
	var in borrows.BorrowInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "book_id, user_id, borrow_date and return_date are required")
		return
	}
	borrow, err := bc.store.Create(in)
	if err != nil {
		respondStoreError(c, err, "create borrow")
		return
	}
	respondCreated(c, toBorrowResponse(*borrow))
}

// Update merges supplied fields, including the returned flag
// PATCH /api/borrows/:id
func (bc *BorrowsController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var in borrows.BorrowUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "malformed borrow payload")
		return
	}
	borrow, err := bc.store.Update(id, in)
	if err != nil {
		respondStoreError(c, err, "update borrow")
		return
	}
	c.JSON(http.StatusOK, toBorrowResponse(*borrow))
}

// Delete removes a borrow record
// DELETE /api/borrows/:id
func (bc *BorrowsController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := bc.store.Delete(id); err != nil {
		respondStoreError(c, err, "delete borrow")
		return
	}
	c.Status(http.StatusNoContent)
}
