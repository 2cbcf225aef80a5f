package entities

import (
	"database/sql/driver"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date without a time component. It serializes as
// "2006-01-02" both in JSON and in the database, so date equality in
// queries is exact.
type Date struct {
	time.Time
}

// ParseDate parses a "2006-01-02" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date %s", s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer so dates are stored as plain strings.
func (d Date) Value() (driver.Value, error) {
	return d.Format(dateLayout), nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		*d = Date{Time: v}
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		return d.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", value)
	}
}

// GormDataType tells the schema builder how to store Date columns.
func (Date) GormDataType() string {
	return "date"
}

// Author is identified by a surrogate id; FullName is the natural key used
// for get-or-create deduplication, so it carries a unique index.
type Author struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FullName    string    `gorm:"uniqueIndex;size:100" json:"full_name"`
	DateOfBirth *Date     `json:"date_of_birth"`
	DateOfDeath *Date     `json:"date_of_death"`
	Books       []Book    `gorm:"many2many:book_authors;" json:"-"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

type Genre struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100" json:"name"`
	Books     []Book    `gorm:"many2many:book_genres;" json:"-"`
	CreatedAt time.Time `json:"-"`
}

type Book struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	ISBN        string    `gorm:"uniqueIndex;size:13" json:"isbn"`
	Quantity    uint      `gorm:"default:1" json:"quantity"`
	Genres      []Genre   `gorm:"many2many:book_genres;" json:"genres"`
	Authors     []Author  `gorm:"many2many:book_authors;" json:"authors"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// Borrow keeps a historical record: deleting the book or the user nullifies
// the reference instead of cascading. The (book, user, borrow_date) triple
// is unique at the store level.
type Borrow struct {
	ID         uint  `gorm:"primaryKey" json:"id"`
	BookID     *uint `gorm:"uniqueIndex:idx_borrow_triple" json:"book_id"`
	UserID     *uint `gorm:"uniqueIndex:idx_borrow_triple" json:"user_id"`
	Book       *Book `gorm:"foreignKey:BookID;constraint:OnDelete:SET NULL" json:"-"`
	User       *User `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"-"`
	BorrowDate Date  `gorm:"uniqueIndex:idx_borrow_triple" json:"borrow_date"`
	ReturnDate Date  `json:"return_date"`
	// Returned is an explicit flag toggled by staff, never derived from dates.
	Returned  bool      `gorm:"default:false" json:"returned"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:150" json:"username"`
	Email        string    `gorm:"size:254" json:"email"`
	FirstName    string    `gorm:"size:150" json:"first_name"`
	LastName     string    `gorm:"size:150" json:"last_name"`
	PasswordHash string    `gorm:"size:128" json:"-"`
	Profile      *Profile  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// Profile is lifecycle-bound to its user: created alongside, deleted
// alongside. LikedBooks feed the recommendation adapter and nothing else.
type Profile struct {
	ID         uint    `gorm:"primaryKey" json:"-"`
	UserID     uint    `gorm:"uniqueIndex" json:"-"`
	Role       Role    `gorm:"size:10;default:'USER'" json:"role"`
	Bio        *string `gorm:"type:text" json:"bio,omitempty"`
	BirthDate  *Date   `json:"birth_date,omitempty"`
	Location   *string `gorm:"size:30" json:"location,omitempty"`
	LikedBooks []Book  `gorm:"many2many:profile_liked_books;" json:"-"`
}

func (Author) TableName() string  { return "authors" }
func (Genre) TableName() string   { return "genres" }
func (Book) TableName() string    { return "books" }
func (Borrow) TableName() string  { return "borrows" }
func (User) TableName() string    { return "users" }
func (Profile) TableName() string { return "profiles" }

// FullName joins first and last name the way borrow listings render users.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// BookSummary is the list/embedded form of a book (id, title, isbn only).
type BookSummary struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
	ISBN  string `json:"isbn"`
}

func (b Book) Summary() BookSummary {
	return BookSummary{ID: b.ID, Title: b.Title, ISBN: b.ISBN}
}
