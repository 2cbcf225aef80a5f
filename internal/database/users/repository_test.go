package users

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libshelf/library-api/internal/database"
	"github.com/libshelf/library-api/internal/entities"
	"github.com/libshelf/library-api/internal/errs"
)

func setupTestDB(t *testing.T) (*Repository, *database.Database, func()) {
	t.Helper()
	dbPath := "./test_users_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"

	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	repo := NewRepository(db.DB)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}

	return repo, db, cleanup
}

func strPtr(s string) *string { return &s }

func seedBook(t *testing.T, db *database.Database, title, isbn string) entities.Book {
	t.Helper()
	book := entities.Book{Title: title, ISBN: isbn, Quantity: 1}
	require.NoError(t, db.DB.Create(&book).Error)
	return book
}

func TestRepository_Create_DefaultsToUserRole(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	user, err := repo.Create("paul", "paul@arrakis.example", "Paul", "Atreides", "hash")

	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	require.NotNil(t, user.Profile)
	assert.Equal(t, entities.RoleUser, user.Profile.Role)
}

func TestRepository_Create_DuplicateUsername(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.Create("paul", "", "", "", "hash")
	require.NoError(t, err)

	_, err = repo.Create("paul", "other@arrakis.example", "", "", "hash")
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindConflict))
}

func TestRepository_GetByUsername(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	created, err := repo.Create("paul", "", "", "", "hash")
	require.NoError(t, err)

	user, err := repo.GetByUsername("paul")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	require.NotNil(t, user.Profile)

	_, err = repo.GetByUsername("ghost")
	assert.True(t, errs.IsKind(err, errs.KindNotFound))
}

func TestRepository_UpdateProfile_PartialMerge(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	user, err := repo.Create("paul", "paul@arrakis.example", "Paul", "Atreides", "hash")
	require.NoError(t, err)

	_, err = repo.UpdateProfile(user.ID, ProfileUpdate{
		Profile: &ProfileFields{Location: strPtr("Arrakeen")},
	})
	require.NoError(t, err)

	// A later bio-only update must keep the location.
	updated, err := repo.UpdateProfile(user.ID, ProfileUpdate{
		Profile: &ProfileFields{Bio: strPtr("Kwisatz Haderach")},
	})
	require.NoError(t, err)

	require.NotNil(t, updated.Profile)
	require.NotNil(t, updated.Profile.Bio)
	assert.Equal(t, "Kwisatz Haderach", *updated.Profile.Bio)
	require.NotNil(t, updated.Profile.Location)
	assert.Equal(t, "Arrakeen", *updated.Profile.Location)
	assert.Equal(t, "paul@arrakis.example", updated.Email)
}

func TestRepository_UpdateProfile_NeverChangesRole(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	user, err := repo.Create("paul", "", "", "", "hash")
	require.NoError(t, err)

	admin := entities.RoleAdmin
	updated, err := repo.UpdateProfile(user.ID, ProfileUpdate{
		Profile: &ProfileFields{Role: &admin, Bio: strPtr("sneaky")},
	})

	require.NoError(t, err)
	assert.Equal(t, entities.RoleUser, updated.Profile.Role)
}

func TestRepository_StaffUpdateUser_ChangesRole(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	user, err := repo.Create("irulan", "", "", "", "hash")
	require.NoError(t, err)

	librarian := entities.RoleLibrarian
	updated, err := repo.StaffUpdateUser(user.ID, StaffUpdate{
		Profile: &ProfileFields{Role: &librarian},
	})

	require.NoError(t, err)
	assert.Equal(t, entities.RoleLibrarian, updated.Profile.Role)
}

func TestRepository_StaffUpdateUser_RejectsUnknownRole(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	user, err := repo.Create("irulan", "", "", "", "hash")
	require.NoError(t, err)

	bogus := entities.Role("EMPEROR")
	_, err = repo.StaffUpdateUser(user.ID, StaffUpdate{
		Profile: &ProfileFields{Role: &bogus},
	})

	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindValidation))
}

func TestRepository_StaffUpdateUser_UsernameConflict(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.Create("paul", "", "", "", "hash")
	require.NoError(t, err)
	other, err := repo.Create("duncan", "", "", "", "hash")
	require.NoError(t, err)

	_, err = repo.StaffUpdateUser(other.ID, StaffUpdate{Username: strPtr("paul")})
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindConflict))
}

func TestRepository_List_Filters(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.Create("paul", "paul@arrakis.example", "Paul", "Atreides", "hash")
	require.NoError(t, err)
	_, err = repo.Create("jane", "jane@highbury.example", "Jane", "Fairfax", "hash")
	require.NoError(t, err)

	t.Run("username substring", func(t *testing.T) {
		list, err := repo.List(url.Values{"username": {"pau"}})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "paul", list[0].Username)
	})

	t.Run("email substring", func(t *testing.T) {
		list, err := repo.List(url.Values{"email": {"highbury"}})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "jane", list[0].Username)
	})

	t.Run("two-token full name", func(t *testing.T) {
		list, err := repo.List(url.Values{"full_name": {"Paul Atreides"}})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "paul", list[0].Username)
	})

	t.Run("profiles are loaded", func(t *testing.T) {
		list, err := repo.List(nil)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.NotNil(t, list[0].Profile)
	})
}

func TestRepository_List_Pagination(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	for i := 0; i < 12; i++ {
		_, err := repo.Create(fmt.Sprintf("reader%02d", i), "", "Reader", fmt.Sprintf("Number%02d", i), "hash")
		require.NoError(t, err)
	}

	t.Run("default page size", func(t *testing.T) {
		list, err := repo.List(nil)
		require.NoError(t, err)
		require.Len(t, list, 10)
		assert.Equal(t, "reader00", list[0].Username)
	})

	t.Run("second page holds the rest", func(t *testing.T) {
		list, err := repo.List(url.Values{"page": {"2"}})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "reader10", list[0].Username)
	})

	t.Run("explicit page size", func(t *testing.T) {
		list, err := repo.List(url.Values{"page": {"3"}, "page_size": {"5"}})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "reader10", list[0].Username)
	})

	t.Run("garbage paging falls back to defaults", func(t *testing.T) {
		list, err := repo.List(url.Values{"page": {"zero"}, "page_size": {"-3"}})
		require.NoError(t, err)
		assert.Len(t, list, 10)
	})

	t.Run("filters apply before paging", func(t *testing.T) {
		list, err := repo.List(url.Values{"username": {"reader1"}, "page_size": {"1"}})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "reader10", list[0].Username)
	})
}

func TestRepository_SetPasswordHash(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	user, err := repo.Create("paul", "", "", "", "old-hash")
	require.NoError(t, err)

	require.NoError(t, repo.SetPasswordHash(user.ID, "new-hash"))

	stored, err := repo.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", stored.PasswordHash)

	err = repo.SetPasswordHash(9999, "hash")
	assert.True(t, errs.IsKind(err, errs.KindNotFound))
}

func TestRepository_Delete_PreservesBorrowHistory(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	user, err := repo.Create("paul", "", "", "", "hash")
	require.NoError(t, err)
	book := seedBook(t, db, "Dune", "9780441172719")

	borrowDate, err := entities.ParseDate("2026-03-01")
	require.NoError(t, err)
	borrow := entities.Borrow{BookID: &book.ID, UserID: &user.ID, BorrowDate: borrowDate}
	require.NoError(t, db.DB.Create(&borrow).Error)

	require.NoError(t, repo.LikeBook(user.ID, book.ID))
	require.NoError(t, repo.Delete(user.ID))

	_, err = repo.GetByID(user.ID)
	assert.True(t, errs.IsKind(err, errs.KindNotFound))

	var kept entities.Borrow
	require.NoError(t, db.DB.First(&kept, borrow.ID).Error)
	assert.Nil(t, kept.UserID)
	require.NotNil(t, kept.BookID)
	assert.Equal(t, book.ID, *kept.BookID)

	var profiles int64
	require.NoError(t, db.DB.Model(&entities.Profile{}).Count(&profiles).Error)
	assert.Zero(t, profiles)
}

func TestRepository_LikeBook_Idempotent(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	user, err := repo.Create("paul", "", "", "", "hash")
	require.NoError(t, err)
	book := seedBook(t, db, "Dune", "9780441172719")

	require.NoError(t, repo.LikeBook(user.ID, book.ID))
	require.NoError(t, repo.LikeBook(user.ID, book.ID))

	liked, err := repo.LikedBooks(user.ID, 0)
	require.NoError(t, err)
	assert.Len(t, liked, 1)
}

func TestRepository_UnlikeBook(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	user, err := repo.Create("paul", "", "", "", "hash")
	require.NoError(t, err)
	book := seedBook(t, db, "Dune", "9780441172719")

	require.NoError(t, repo.LikeBook(user.ID, book.ID))
	require.NoError(t, repo.UnlikeBook(user.ID, book.ID))

	liked, err := repo.LikedBooks(user.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, liked)

	// Unliking a book that was never liked is a no-op.
	require.NoError(t, repo.UnlikeBook(user.ID, book.ID))
}

func TestRepository_LikeBook_MissingBook(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	user, err := repo.Create("paul", "", "", "", "hash")
	require.NoError(t, err)

	err = repo.LikeBook(user.ID, 9999)
	assert.True(t, errs.IsKind(err, errs.KindNotFound))
}

func TestRepository_LikedBooks_WindowAndOrder(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	user, err := repo.Create("paul", "", "", "", "hash")
	require.NoError(t, err)

	isbns := []string{"0000000000001", "0000000000002", "0000000000003"}
	var ids []uint
	for i, isbn := range isbns {
		book := seedBook(t, db, "Book "+strings.Repeat("I", i+1), isbn)
		require.NoError(t, repo.LikeBook(user.ID, book.ID))
		ids = append(ids, book.ID)
	}

	liked, err := repo.LikedBooks(user.ID, 2)
	require.NoError(t, err)
	require.Len(t, liked, 2)
	// Most recently liked first.
	assert.Equal(t, ids[2], liked[0].ID)
	assert.Equal(t, ids[1], liked[1].ID)
}
