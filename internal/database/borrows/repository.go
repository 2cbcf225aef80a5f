// Package borrows provides database operations for the borrow ledger.
package borrows

import (
	"errors"
	"net/url"

	"gorm.io/gorm"

	"github.com/libshelf/library-api/internal/database"
	"github.com/libshelf/library-api/internal/database/query"
	"github.com/libshelf/library-api/internal/entities"
	"github.com/libshelf/library-api/internal/errs"
)

// BorrowInput is the create payload for a borrow record.
type BorrowInput struct {
	BookID     uint           `json:"book_id" binding:"required"`
	UserID     uint           `json:"user_id" binding:"required"`
	BorrowDate *entities.Date `json:"borrow_date" binding:"required"`
	ReturnDate *entities.Date `json:"return_date" binding:"required"`
	Returned   *bool          `json:"returned"`
}

// BorrowUpdate is the partial-update payload. Toggling Returned is an
// ordinary field update, not a state transition the store derives.
type BorrowUpdate struct {
	BookID     *uint          `json:"book_id"`
	UserID     *uint          `json:"user_id"`
	BorrowDate *entities.Date `json:"borrow_date"`
	ReturnDate *entities.Date `json:"return_date"`
	Returned   *bool          `json:"returned"`
}

// Repository handles borrow ledger operations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns borrows, optionally narrowed by a book-title substring and a
// two-token user full name. A full-name filter that is not exactly two
// tokens is ignored.
func (r *Repository) List(params url.Values) ([]entities.Borrow, error) {
	q := r.db.Model(&entities.Borrow{}).
		Joins("LEFT JOIN books ON books.id = borrows.book_id").
		Joins("LEFT JOIN users ON users.id = borrows.user_id")
	q = query.Apply(q, params, query.Rules{
		"book_title":     {Match: query.Substring, Column: "books.title"},
		"user_full_name": {Match: query.FullName, Column: "users.first_name", Column2: "users.last_name"},
	})

	var borrows []entities.Borrow
	err := q.Preload("Book").Preload("User").Order("borrows.id").Find(&borrows).Error
	return borrows, err
}

func (r *Repository) Get(id uint) (*entities.Borrow, error) {
	var borrow entities.Borrow
	err := r.db.Preload("Book").Preload("User").First(&borrow, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("borrow not found")
		}
		return nil, err
	}
	return &borrow, nil
}

// Create records a borrow. The composite unique index rejects a second
// borrow of the same book by the same user on the same date. The relation
// between return_date and borrow_date is deliberately not checked.
func (r *Repository) Create(in BorrowInput) (*entities.Borrow, error) {
	if in.BorrowDate == nil {
		return nil, errs.Validation("borrow_date", "borrow_date is required")
	}
	if in.ReturnDate == nil {
		return nil, errs.Validation("return_date", "return_date is required")
	}

	borrow := entities.Borrow{
		BookID:     &in.BookID,
		UserID:     &in.UserID,
		BorrowDate: *in.BorrowDate,
		ReturnDate: *in.ReturnDate,
	}
	if in.Returned != nil {
		borrow.Returned = *in.Returned
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&entities.Book{}, in.BookID).Error; err != nil {
			return refTranslate(err, "book")
		}
		if err := tx.First(&entities.User{}, in.UserID).Error; err != nil {
			return refTranslate(err, "user")
		}
		if err := tx.Omit("Book", "User").Create(&borrow).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return errs.Conflict("borrow_date", "borrow for this book, user and date already exists")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Get(borrow.ID)
}

// Update merges the supplied fields into the record.
func (r *Repository) Update(id uint, in BorrowUpdate) (*entities.Borrow, error) {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var borrow entities.Borrow
		if err := tx.First(&borrow, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("borrow not found")
			}
			return err
		}
		if in.BookID != nil {
			if err := tx.First(&entities.Book{}, *in.BookID).Error; err != nil {
				return refTranslate(err, "book")
			}
			borrow.BookID = in.BookID
		}
		if in.UserID != nil {
			if err := tx.First(&entities.User{}, *in.UserID).Error; err != nil {
				return refTranslate(err, "user")
			}
			borrow.UserID = in.UserID
		}
		if in.BorrowDate != nil {
			borrow.BorrowDate = *in.BorrowDate
		}
		if in.ReturnDate != nil {
			borrow.ReturnDate = *in.ReturnDate
		}
		if in.Returned != nil {
			borrow.Returned = *in.Returned
		}
		if err := tx.Omit("Book", "User").Save(&borrow).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return errs.Conflict("borrow_date", "borrow for this book, user and date already exists")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Get(id)
}

func (r *Repository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var borrow entities.Borrow
		if err := tx.First(&borrow, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("borrow not found")
			}
			return err
		}
		return tx.Delete(&borrow).Error
	})
}

func refTranslate(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFound(resource + " not found")
	}
	return err
}
