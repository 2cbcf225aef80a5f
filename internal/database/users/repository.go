// Package users provides database operations for user accounts, their
// profiles and the liked-books set that feeds recommendations.
package users

import (
	"errors"
	"net/url"

	"gorm.io/gorm"

	"github.com/libshelf/library-api/internal/database"
	"github.com/libshelf/library-api/internal/database/query"
	"github.com/libshelf/library-api/internal/entities"
	"github.com/libshelf/library-api/internal/errs"
)

// ProfileFields is the nested profile payload. Nil fields are left
// untouched by updates, never nulled.
type ProfileFields struct {
	Role      *entities.Role `json:"role"`
	Bio       *string        `json:"bio"`
	BirthDate *entities.Date `json:"birth_date"`
	Location  *string        `json:"location"`
}

// ProfileUpdate is the self-service partial-update payload. Username and
// role changes are reserved for the staff update path.
type ProfileUpdate struct {
	Email     *string        `json:"email"`
	FirstName *string        `json:"first_name"`
	LastName  *string        `json:"last_name"`
	Profile   *ProfileFields `json:"profile"`
}

// StaffUpdate is the admin partial-update payload; it may additionally
// change the username and the profile role.
type StaffUpdate struct {
	Username  *string        `json:"username"`
	Email     *string        `json:"email"`
	FirstName *string        `json:"first_name"`
	LastName  *string        `json:"last_name"`
	Profile   *ProfileFields `json:"profile"`
}

// Repository handles user and profile database operations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a user and its profile in one transaction. The caller
// supplies an already-hashed password. A taken username is a Conflict.
func (r *Repository) Create(username, email, firstName, lastName, passwordHash string) (*entities.User, error) {
	if username == "" {
		return nil, errs.Validation("username", "username is required")
	}
	user := entities.User{
		Username:     username,
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: passwordHash,
		Profile:      &entities.Profile{Role: entities.RoleUser},
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return errs.Conflict("username", "username already taken")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) GetByID(id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.Preload("Profile").First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}

func (r *Repository) GetByUsername(username string) (*entities.User, error) {
	var user entities.User
	err := r.db.Preload("Profile").Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}

// List returns one page of users, narrowed by the recognized filters:
// username and email substrings, and a two-token full name split across
// first/last name. Paging is controlled by the page/page_size parameters.
func (r *Repository) List(params url.Values) ([]entities.User, error) {
	q := query.Apply(r.db.Model(&entities.User{}), params, query.Rules{
		"username":  {Match: query.Substring, Column: "username"},
		"email":     {Match: query.Substring, Column: "email"},
		"full_name": {Match: query.FullName, Column: "first_name", Column2: "last_name"},
	})
	q = query.Paginate(q, params)

	var list []entities.User
	err := q.Preload("Profile").Order("users.id").Find(&list).Error
	return list, err
}

// UpdateProfile merges the supplied fields into the user's own record.
// Absent fields keep their stored values; the role is never touched here.
func (r *Repository) UpdateProfile(userID uint, in ProfileUpdate) (*entities.User, error) {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		user, profile, err := loadForUpdate(tx, userID)
		if err != nil {
			return err
		}
		applyUserFields(user, in.Email, in.FirstName, in.LastName)
		if in.Profile != nil {
			applyProfileFields(profile, *in.Profile)
		}
		if err := tx.Omit("Profile").Save(user).Error; err != nil {
			return err
		}
		return tx.Save(profile).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(userID)
}

// StaffUpdateUser is the admin path: it may also rename the account and
// change the profile role.
func (r *Repository) StaffUpdateUser(userID uint, in StaffUpdate) (*entities.User, error) {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		user, profile, err := loadForUpdate(tx, userID)
		if err != nil {
			return err
		}
		if in.Username != nil {
			if *in.Username == "" {
				return errs.Validation("username", "username is required")
			}
			user.Username = *in.Username
		}
		applyUserFields(user, in.Email, in.FirstName, in.LastName)
		if in.Profile != nil {
			applyProfileFields(profile, *in.Profile)
			if in.Profile.Role != nil {
				if !in.Profile.Role.Valid() {
					return errs.Validation("role", "unknown role")
				}
				profile.Role = *in.Profile.Role
			}
		}
		if err := tx.Omit("Profile").Save(user).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return errs.Conflict("username", "username already taken")
			}
			return err
		}
		return tx.Save(profile).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(userID)
}

// SetPasswordHash stores a new password hash for the user.
func (r *Repository) SetPasswordHash(userID uint, hash string) error {
	result := r.db.Model(&entities.User{}).Where("id = ?", userID).
		Update("password_hash", hash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.NotFound("user not found")
	}
	return nil
}

// Delete removes the user and its profile. Borrow rows survive with a
// nullified user reference.
func (r *Repository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var user entities.User
		if err := tx.Preload("Profile").First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("user not found")
			}
			return err
		}
		if err := tx.Model(&entities.Borrow{}).Where("user_id = ?", id).
			Update("user_id", nil).Error; err != nil {
			return err
		}
		if user.Profile != nil {
			if err := tx.Model(user.Profile).Association("LikedBooks").Clear(); err != nil {
				return err
			}
			if err := tx.Delete(user.Profile).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&user).Error
	})
}

// LikeBook adds the book to the user's liked set. Liking twice is a no-op.
func (r *Repository) LikeBook(userID, bookID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		profile, err := profileOf(tx, userID)
		if err != nil {
			return err
		}
		var book entities.Book
		if err := tx.First(&book, bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("book not found")
			}
			return err
		}
		return tx.Model(profile).Association("LikedBooks").Append(&book)
	})
}

// UnlikeBook removes the book from the user's liked set.
func (r *Repository) UnlikeBook(userID, bookID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		profile, err := profileOf(tx, userID)
		if err != nil {
			return err
		}
		var book entities.Book
		if err := tx.First(&book, bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("book not found")
			}
			return err
		}
		return tx.Model(profile).Association("LikedBooks").Delete(&book)
	})
}

// LikedBooks returns up to limit liked books, most recently liked first
// (descending book id stands in for recency).
func (r *Repository) LikedBooks(userID uint, limit int) ([]entities.Book, error) {
	profile, err := profileOf(r.db, userID)
	if err != nil {
		return nil, err
	}
	var books []entities.Book
	q := r.db.Model(&entities.Book{}).
		Joins("JOIN profile_liked_books ON profile_liked_books.book_id = books.id").
		Where("profile_liked_books.profile_id = ?", profile.ID).
		Order("books.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err = q.Find(&books).Error
	return books, err
}

func profileOf(tx *gorm.DB, userID uint) (*entities.Profile, error) {
	var profile entities.Profile
	err := tx.Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("profile not found")
		}
		return nil, err
	}
	return &profile, nil
}

func loadForUpdate(tx *gorm.DB, userID uint) (*entities.User, *entities.Profile, error) {
	var user entities.User
	if err := tx.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errs.NotFound("user not found")
		}
		return nil, nil, err
	}
	profile, err := profileOf(tx, userID)
	if err != nil {
		return nil, nil, err
	}
	return &user, profile, nil
}

func applyUserFields(user *entities.User, email, firstName, lastName *string) {
	if email != nil {
		user.Email = *email
	}
	if firstName != nil {
		user.FirstName = *firstName
	}
	if lastName != nil {
		user.LastName = *lastName
	}
}

func applyProfileFields(profile *entities.Profile, in ProfileFields) {
	if in.Bio != nil {
		profile.Bio = in.Bio
	}
	if in.BirthDate != nil {
		profile.BirthDate = in.BirthDate
	}
	if in.Location != nil {
		profile.Location = in.Location
	}
}
