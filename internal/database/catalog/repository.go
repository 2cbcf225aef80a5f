// Package catalog provides database operations for authors, genres and
// books, including the get-or-create-by-natural-key semantics used by
// nested book payloads and the bulk genre endpoint.
package catalog

import (
	"errors"
	"net/url"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/libshelf/library-api/internal/database"
	"github.com/libshelf/library-api/internal/database/query"
	"github.com/libshelf/library-api/internal/entities"
	"github.com/libshelf/library-api/internal/errs"
)

const (
	maxNameLen  = 100
	maxTitleLen = 255
	maxISBNLen  = 13
)

// AuthorInput is a nested author payload, identified by its full name.
type AuthorInput struct {
	FullName    string         `json:"full_name" binding:"required"`
	DateOfBirth *entities.Date `json:"date_of_birth"`
	DateOfDeath *entities.Date `json:"date_of_death"`
}

// GenreInput is a nested genre payload, identified by its name.
type GenreInput struct {
	Name string `json:"name" binding:"required"`
}

// BookInput is the create payload for a book. Nested authors and genres are
// looked up by natural key and created when absent.
type BookInput struct {
	Title       string        `json:"title" binding:"required"`
	Description string        `json:"description"`
	ISBN        string        `json:"isbn" binding:"required"`
	Quantity    *uint         `json:"quantity"`
	Authors     []AuthorInput `json:"authors"`
	Genres      []GenreInput  `json:"genres"`
}

// BookUpdate is the partial-update payload. Nil fields leave the stored
// value untouched; a non-nil Authors/Genres slice replaces the whole set.
type BookUpdate struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	ISBN        *string        `json:"isbn"`
	Quantity    *uint          `json:"quantity"`
	Authors     *[]AuthorInput `json:"authors"`
	Genres      *[]GenreInput  `json:"genres"`
}

// AuthorUpdate is the partial-update payload for an author.
type AuthorUpdate struct {
	FullName    *string        `json:"full_name"`
	DateOfBirth *entities.Date `json:"date_of_birth"`
	DateOfDeath *entities.Date `json:"date_of_death"`
}

// Repository handles catalog database operations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// --- Authors ---

// ListAuthors returns authors, optionally narrowed by a full_name substring.
func (r *Repository) ListAuthors(params url.Values) ([]entities.Author, error) {
	var authors []entities.Author
	q := query.Apply(r.db.Model(&entities.Author{}), params, query.Rules{
		"full_name": {Match: query.Substring, Column: "full_name"},
	})
	err := q.Order("authors.id").Find(&authors).Error
	return authors, err
}

func (r *Repository) GetAuthor(id uint) (*entities.Author, error) {
	var author entities.Author
	if err := r.db.First(&author, id).Error; err != nil {
		return nil, translate(err, "author")
	}
	return &author, nil
}

func (r *Repository) CreateAuthor(in AuthorInput) (*entities.Author, error) {
	if err := validateAuthor(in.FullName); err != nil {
		return nil, err
	}
	author := entities.Author{
		FullName:    in.FullName,
		DateOfBirth: in.DateOfBirth,
		DateOfDeath: in.DateOfDeath,
	}
	if err := r.db.Create(&author).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, errs.Conflict("full_name", "author with this name already exists")
		}
		return nil, err
	}
	return &author, nil
}

func (r *Repository) UpdateAuthor(id uint, in AuthorUpdate) (*entities.Author, error) {
	var author entities.Author
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&author, id).Error; err != nil {
			return translate(err, "author")
		}
		if in.FullName != nil {
			if err := validateAuthor(*in.FullName); err != nil {
				return err
			}
			author.FullName = *in.FullName
		}
		if in.DateOfBirth != nil {
			author.DateOfBirth = in.DateOfBirth
		}
		if in.DateOfDeath != nil {
			author.DateOfDeath = in.DateOfDeath
		}
		if err := tx.Save(&author).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return errs.Conflict("full_name", "author with this name already exists")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &author, nil
}

func (r *Repository) DeleteAuthor(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var author entities.Author
		if err := tx.First(&author, id).Error; err != nil {
			return translate(err, "author")
		}
		// Detach from books without deleting them.
		if err := tx.Model(&author).Association("Books").Clear(); err != nil {
			return err
		}
		return tx.Delete(&author).Error
	})
}

// FindOrCreateAuthor resolves an author by full name, inserting it when
// absent. The insert relies on the unique index so concurrent callers
// cannot create duplicate rows.
func (r *Repository) FindOrCreateAuthor(in AuthorInput) (*entities.Author, error) {
	var author *entities.Author
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var err error
		author, err = findOrCreateAuthor(tx, in)
		return err
	})
	return author, err
}

func findOrCreateAuthor(tx *gorm.DB, in AuthorInput) (*entities.Author, error) {
	if err := validateAuthor(in.FullName); err != nil {
		return nil, err
	}
	author := entities.Author{
		FullName:    in.FullName,
		DateOfBirth: in.DateOfBirth,
		DateOfDeath: in.DateOfDeath,
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&author).Error; err != nil {
		return nil, err
	}
	if author.ID == 0 {
		// Lost the insert to an existing row; fetch it.
		if err := tx.Where("full_name = ?", in.FullName).First(&author).Error; err != nil {
			return nil, err
		}
	}
	return &author, nil
}

// --- Genres ---

// ListGenres returns genres, optionally narrowed by a name substring.
func (r *Repository) ListGenres(params url.Values) ([]entities.Genre, error) {
	var genres []entities.Genre
	q := query.Apply(r.db.Model(&entities.Genre{}), params, query.Rules{
		"name": {Match: query.Substring, Column: "name"},
	})
	err := q.Order("genres.id").Find(&genres).Error
	return genres, err
}

func (r *Repository) GetGenre(id uint) (*entities.Genre, error) {
	var genre entities.Genre
	if err := r.db.First(&genre, id).Error; err != nil {
		return nil, translate(err, "genre")
	}
	return &genre, nil
}

func (r *Repository) CreateGenre(in GenreInput) (*entities.Genre, error) {
	if err := validateGenre(in.Name); err != nil {
		return nil, err
	}
	genre := entities.Genre{Name: in.Name}
	if err := r.db.Create(&genre).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, errs.Conflict("name", "genre with this name already exists")
		}
		return nil, err
	}
	return &genre, nil
}

func (r *Repository) UpdateGenre(id uint, name string) (*entities.Genre, error) {
	if err := validateGenre(name); err != nil {
		return nil, err
	}
	var genre entities.Genre
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&genre, id).Error; err != nil {
			return translate(err, "genre")
		}
		genre.Name = name
		if err := tx.Save(&genre).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return errs.Conflict("name", "genre with this name already exists")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &genre, nil
}

func (r *Repository) DeleteGenre(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var genre entities.Genre
		if err := tx.First(&genre, id).Error; err != nil {
			return translate(err, "genre")
		}
		if err := tx.Model(&genre).Association("Books").Clear(); err != nil {
			return err
		}
		return tx.Delete(&genre).Error
	})
}

// FindOrCreateGenre resolves a genre by name, inserting it when absent.
func (r *Repository) FindOrCreateGenre(name string) (*entities.Genre, error) {
	var genre *entities.Genre
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var err error
		genre, err = findOrCreateGenre(tx, name)
		return err
	})
	return genre, err
}

func findOrCreateGenre(tx *gorm.DB, name string) (*entities.Genre, error) {
	if err := validateGenre(name); err != nil {
		return nil, err
	}
	genre := entities.Genre{Name: name}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&genre).Error; err != nil {
		return nil, err
	}
	if genre.ID == 0 {
		if err := tx.Where("name = ?", name).First(&genre).Error; err != nil {
			return nil, err
		}
	}
	return &genre, nil
}

// BulkGenres get-or-creates every named genre and returns them in input
// order. Repeated names never create duplicate rows.
func (r *Repository) BulkGenres(names []string) ([]entities.Genre, error) {
	genres := make([]entities.Genre, 0, len(names))
	err := r.db.Transaction(func(tx *gorm.DB) error {
		for _, name := range names {
			genre, err := findOrCreateGenre(tx, name)
			if err != nil {
				return err
			}
			genres = append(genres, *genre)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return genres, nil
}

// --- Books ---

// ListBooks returns books narrowed by the recognized filters: title
// substring, exact isbn, and genre-name membership (deduplicated).
func (r *Repository) ListBooks(params url.Values) ([]entities.Book, error) {
	q := r.db.Model(&entities.Book{})
	if len(params["genres"]) > 0 {
		q = q.Joins("JOIN book_genres ON book_genres.book_id = books.id").
			Joins("JOIN genres ON genres.id = book_genres.genre_id")
	}
	q = query.Apply(q, params, query.Rules{
		"title":  {Match: query.Substring, Column: "books.title"},
		"isbn":   {Match: query.Exact, Column: "books.isbn"},
		"genres": {Match: query.AnyOf, Column: "genres.name", Distinct: true},
	})

	var books []entities.Book
	err := q.Order("books.id").Find(&books).Error
	return books, err
}

func (r *Repository) GetBook(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Preload("Genres").Preload("Authors").First(&book, id).Error
	if err != nil {
		return nil, translate(err, "book")
	}
	return &book, nil
}

// CreateBook writes the book row and links its nested authors and genres in
// a single transaction; a failure during association leaves nothing behind.
func (r *Repository) CreateBook(in BookInput) (*entities.Book, error) {
	if err := validateBook(in.Title, in.ISBN); err != nil {
		return nil, err
	}

	book := entities.Book{
		Title:       in.Title,
		Description: in.Description,
		ISBN:        in.ISBN,
		Quantity:    1,
	}
	if in.Quantity != nil {
		book.Quantity = *in.Quantity
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Genres", "Authors").Create(&book).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return errs.Conflict("isbn", "book with this isbn already exists")
			}
			return err
		}
		for _, a := range in.Authors {
			author, err := findOrCreateAuthor(tx, a)
			if err != nil {
				return err
			}
			if err := tx.Model(&book).Association("Authors").Append(author); err != nil {
				return err
			}
		}
		for _, g := range in.Genres {
			genre, err := findOrCreateGenre(tx, g.Name)
			if err != nil {
				return err
			}
			if err := tx.Model(&book).Association("Genres").Append(genre); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetBook(book.ID)
}

// UpdateBook merges the supplied fields and, when an author or genre set is
// supplied, replaces the whole association set. Replacing with the same set
// is observably a no-op.
func (r *Repository) UpdateBook(id uint, in BookUpdate) (*entities.Book, error) {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.First(&book, id).Error; err != nil {
			return translate(err, "book")
		}
		if in.Title != nil {
			book.Title = *in.Title
		}
		if in.Description != nil {
			book.Description = *in.Description
		}
		if in.ISBN != nil {
			book.ISBN = *in.ISBN
		}
		if in.Quantity != nil {
			book.Quantity = *in.Quantity
		}
		if err := validateBook(book.Title, book.ISBN); err != nil {
			return err
		}
		if err := tx.Omit("Genres", "Authors").Save(&book).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return errs.Conflict("isbn", "book with this isbn already exists")
			}
			return err
		}
		if in.Authors != nil {
			authors := make([]*entities.Author, 0, len(*in.Authors))
			for _, a := range *in.Authors {
				author, err := findOrCreateAuthor(tx, a)
				if err != nil {
					return err
				}
				authors = append(authors, author)
			}
			if err := tx.Model(&book).Association("Authors").Replace(authors); err != nil {
				return err
			}
		}
		if in.Genres != nil {
			genres := make([]*entities.Genre, 0, len(*in.Genres))
			for _, g := range *in.Genres {
				genre, err := findOrCreateGenre(tx, g.Name)
				if err != nil {
					return err
				}
				genres = append(genres, genre)
			}
			if err := tx.Model(&book).Association("Genres").Replace(genres); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetBook(id)
}

// DeleteBook removes the book and detaches its associations. Borrows that
// reference the book keep their row with a nullified book reference.
func (r *Repository) DeleteBook(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.First(&book, id).Error; err != nil {
			return translate(err, "book")
		}
		if err := tx.Model(&book).Association("Genres").Clear(); err != nil {
			return err
		}
		if err := tx.Model(&book).Association("Authors").Clear(); err != nil {
			return err
		}
		if err := tx.Model(&entities.Borrow{}).Where("book_id = ?", id).
			Update("book_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&book).Error
	})
}

// --- validation helpers ---

func validateAuthor(fullName string) error {
	if fullName == "" {
		return errs.Validation("full_name", "full_name is required")
	}
	if len(fullName) > maxNameLen {
		return errs.Validation("full_name", "full_name exceeds 100 characters")
	}
	return nil
}

func validateGenre(name string) error {
	if name == "" {
		return errs.Validation("name", "name is required")
	}
	if len(name) > maxNameLen {
		return errs.Validation("name", "name exceeds 100 characters")
	}
	return nil
}

func validateBook(title, isbn string) error {
	if title == "" {
		return errs.Validation("title", "title is required")
	}
	if len(title) > maxTitleLen {
		return errs.Validation("title", "title exceeds 255 characters")
	}
	if isbn == "" {
		return errs.Validation("isbn", "isbn is required")
	}
	if len(isbn) > maxISBNLen {
		return errs.Validation("isbn", "isbn exceeds 13 characters")
	}
	return nil
}

func translate(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFound(resource + " not found")
	}
	return err
}
