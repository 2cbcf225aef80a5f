package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libshelf/library-api/internal/auth"
	"github.com/libshelf/library-api/internal/database"
	"github.com/libshelf/library-api/internal/database/borrows"
	"github.com/libshelf/library-api/internal/database/catalog"
	"github.com/libshelf/library-api/internal/database/users"
	"github.com/libshelf/library-api/internal/entities"
	"github.com/libshelf/library-api/internal/recommend"
)

// constantScorer makes recommendation responses deterministic in tests.
type constantScorer struct{}

func (constantScorer) Predict(userID, bookID uint) (float64, error) {
	return float64(bookID), nil
}

type testServer struct {
	router *gin.Engine
	db     *database.Database
	users  *users.Repository
	auth   *auth.Service
}

func setupServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbPath := "./test_http_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	catalogRepo := catalog.NewRepository(db.DB)
	borrowRepo := borrows.NewRepository(db.DB)
	userRepo := users.NewRepository(db.DB)

	tokens := auth.NewTokenService("test-secret", 15*time.Minute, 24*time.Hour)
	service := auth.NewService(userRepo, 4)
	middleware := auth.NewMiddleware(tokens)
	controller := auth.NewController(service, tokens)

	recommender := recommend.NewService(userRepo, catalogRepo, constantScorer{},
		recommend.Config{LikedWindow: 5, TopPerLiked: 5, SampleSize: 5})

	router := NewRouter(RouterConfig{
		Database:       db,
		Version:        "test",
		AuthController: controller,
		AuthMiddleware: middleware,
		Authors:        catalogRepo,
		Genres:         catalogRepo,
		Books:          catalogRepo,
		Borrows:        borrowRepo,
		Users:          userRepo,
		Registrar:      service,
		Profiles:       userRepo,
		Passwords:      service,
		Recommender:    recommender,
	})

	ts := &testServer{router: router, db: db, users: userRepo, auth: service}
	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return ts, cleanup
}

func (ts *testServer) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

// registerAs creates an account with the given role and returns an access
// token carrying it. Role elevation happens directly in the store, the way
// an admin's staff update would.
func (ts *testServer) registerAs(t *testing.T, username string, role entities.Role) string {
	t.Helper()
	user, err := ts.auth.Register(username, "", "", "", "secret123")
	require.NoError(t, err)
	if role != entities.RoleUser {
		require.NoError(t, ts.db.DB.Model(&entities.Profile{}).
			Where("user_id = ?", user.ID).Update("role", role).Error)
	}

	w := ts.request(t, http.MethodPost, "/api/token", "", gin.H{
		"username": username, "password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var pair auth.TokenPair
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))
	return pair.Access
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func TestRouter_PublicEndpoints(t *testing.T) {
	ts, cleanup := setupServer(t)
	defer cleanup()

	w := ts.request(t, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.request(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)
}

func TestRouter_RequiresAuthentication(t *testing.T) {
	ts, cleanup := setupServer(t)
	defer cleanup()

	for _, path := range []string{"/api/books", "/api/user/profile", "/api/recommendations"} {
		w := ts.request(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := ts.request(t, http.MethodGet, "/api/books", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_RegisterAndLogin(t *testing.T) {
	ts, cleanup := setupServer(t)
	defer cleanup()

	w := ts.request(t, http.MethodPost, "/api/user/register", "", gin.H{
		"username": "paul", "password": "secret123", "email": "paul@arrakis.example",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password")

	w = ts.request(t, http.MethodPost, "/api/token", "", gin.H{
		"username": "paul", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var pair auth.TokenPair
	decode(t, w, &pair)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)

	w = ts.request(t, http.MethodPost, "/api/token", "", gin.H{
		"username": "paul", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_TokenRefresh(t *testing.T) {
	ts, cleanup := setupServer(t)
	defer cleanup()

	token := ts.registerAs(t, "paul", entities.RoleUser)

	w := ts.request(t, http.MethodPost, "/api/token", "", gin.H{
		"username": "paul", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var pair auth.TokenPair
	decode(t, w, &pair)

	w = ts.request(t, http.MethodPost, "/api/token/refresh", "", gin.H{
		"refresh": pair.Refresh,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var fresh auth.TokenPair
	decode(t, w, &fresh)
	assert.NotEmpty(t, fresh.Access)

	// An access token is not accepted as a refresh token.
	w = ts.request(t, http.MethodPost, "/api/token/refresh", "", gin.H{
		"refresh": token,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_RoleMatrix_CatalogMutations(t *testing.T) {
	ts, cleanup := setupServer(t)
	defer cleanup()

	userToken := ts.registerAs(t, "reader", entities.RoleUser)
	librarianToken := ts.registerAs(t, "keeper", entities.RoleLibrarian)

	payload := gin.H{"title": "Dune", "isbn": "9780441172719"}

	// A plain user may browse but not mutate.
	w := ts.request(t, http.MethodGet, "/api/books", userToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.request(t, http.MethodPost, "/api/books", userToken, payload)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "access denied")

	w = ts.request(t, http.MethodGet, "/api/authors", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// A librarian may.
	w = ts.request(t, http.MethodPost, "/api/books", librarianToken, payload)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.request(t, http.MethodGet, "/api/authors", librarianToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_RoleMatrix_UserAdministration(t *testing.T) {
	ts, cleanup := setupServer(t)
	defer cleanup()

	librarianToken := ts.registerAs(t, "keeper", entities.RoleLibrarian)
	adminToken := ts.registerAs(t, "boss", entities.RoleAdmin)
	target, err := ts.auth.Register("reader", "", "", "", "secret123")
	require.NoError(t, err)

	// Librarians may look at users but not change them.
	w := ts.request(t, http.MethodGet, "/api/users", librarianToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	elevate := gin.H{"profile": gin.H{"role": "LIBRARIAN"}}
	path := fmt.Sprintf("/api/users/%d", target.ID)

	w = ts.request(t, http.MethodPatch, path, librarianToken, elevate)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.request(t, http.MethodPatch, path, adminToken, elevate)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated entities.User
	decode(t, w, &updated)
	require.NotNil(t, updated.Profile)
	assert.Equal(t, entities.RoleLibrarian, updated.Profile.Role)

	// Unknown role is rejected.
	w = ts.request(t, http.MethodPatch, path, adminToken, gin.H{"profile": gin.H{"role": "EMPEROR"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_BookCreateConflictAndFilter(t *testing.T) {
	ts, cleanup := setupServer(t)
	defer cleanup()

	token := ts.registerAs(t, "keeper", entities.RoleLibrarian)

	payload := gin.H{
		"title":   "Dune",
		"isbn":    "9780441172719",
		"authors": []gin.H{{"full_name": "Frank Herbert"}},
		"genres":  []gin.H{{"name": "Sci-Fi"}},
	}
	w := ts.request(t, http.MethodPost, "/api/books", token, payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.request(t, http.MethodPost, "/api/books", token, payload)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "isbn")

	w = ts.request(t, http.MethodPost, "/api/books", token, gin.H{
		"title": "Emma", "isbn": "9780141439587",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.request(t, http.MethodGet, "/api/books?title=dun", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []entities.BookSummary
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Dune", list[0].Title)
	// List entries carry the summary shape only.
	assert.NotContains(t, w.Body.String(), "description")
}

func TestRouter_BookDetailIncludesAssociations(t *testing.T) {
	ts, cleanup := setupServer(t)
	defer cleanup()

	token := ts.registerAs(t, "keeper", entities.RoleLibrarian)

	w := ts.request(t, http.MethodPost, "/api/books", token, gin.H{
		"title":   "Dune",
		"isbn":    "9780441172719",
		"authors": []gin.H{{"full_name": "Frank Herbert"}},
		"genres":  []gin.H{{"name": "Sci-Fi"}},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created entities.Book
	decode(t, w, &created)

	w = ts.request(t, http.MethodGet, fmt.Sprintf("/api/books/%d", created.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var book entities.Book
	decode(t, w, &book)
	require.Len(t, book.Authors, 1)
	assert.Equal(t, "Frank Herbert", book.Authors[0].FullName)
	require.Len(t, book.Genres, 1)
}

func TestRouter_BulkGenres(t *testing.T) {
	ts, cleanup := setupServer(t)
	defer cleanup()

	token := ts.registerAs(t, "keeper", entities.RoleLibrarian)

	w := ts.request(t, http.MethodPost, "/api/genres/bulk", token, gin.H{
		"genres": []gin.H{{"name": "Sci-Fi"}, {"name": "Classics"}, {"name": "Sci-Fi"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var genres []entities.Genre
	decode(t, w, &genres)
	require.Len(t, genres, 3)
	assert.Equal(t, genres[0].ID, genres[2].ID)
}

func TestRouter_BorrowFlow(t *testing.T) {
	ts, cleanup := setupServer(t)
	defer cleanup()

	token := ts.registerAs(t, "keeper", entities.RoleLibrarian)
	reader, err := ts.auth.Register("reader", "", "Jane", "Fairfax", "secret123")
	require.NoError(t, err)

	w := ts.request(t, http.MethodPost, "/api/books", token, gin.H{
		"title": "Dune", "isbn": "9780441172719",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var book entities.Book
	decode(t, w, &book)

	borrowPayload := gin.H{
		"book_id":     book.ID,
		"user_id":     reader.ID,
		"borrow_date": "2026-03-01",
		"return_date": "2026-03-15",
	}
	w = ts.request(t, http.MethodPost, "/api/borrows", token, borrowPayload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"user_full_name":"Jane Fairfax"`)
	assert.Contains(t, w.Body.String(), `"title":"Dune"`)

	// The same triple again conflicts.
	w = ts.request(t, http.MethodPost, "/api/borrows", token, borrowPayload)
	assert.Equal(t, http.StatusConflict, w.Code)

	// A missing book is a 404, not a 500.
	missing := gin.H{
		"book_id":     9999,
		"user_id":     reader.ID,
		"borrow_date": "2026-03-02",
		"return_date": "2026-03-15",
	}
	w = ts.request(t, http.MethodPost, "/api/borrows", token, missing)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.request(t, http.MethodGet, "/api/borrows?user_full_name=Jane+Fairfax", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []json.RawMessage
	decode(t, w, &list)
	assert.Len(t, list, 1)
}

func TestRouter_ProfileSelfService(t *testing.T) {
	ts, cleanup := setupServer(t)
	defer cleanup()

	token := ts.registerAs(t, "paul", entities.RoleUser)

	w := ts.request(t, http.MethodGet, "/api/user/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"USER"`)

	w = ts.request(t, http.MethodPatch, "/api/user/profile", token, gin.H{
		"first_name": "Paul",
		"profile":    gin.H{"bio": "Kwisatz Haderach", "role": "ADMIN"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var user entities.User
	decode(t, w, &user)
	assert.Equal(t, "Paul", user.FirstName)
	require.NotNil(t, user.Profile)
	require.NotNil(t, user.Profile.Bio)
	assert.Equal(t, "Kwisatz Haderach", *user.Profile.Bio)
	// Self-service can never elevate the role.
	assert.Equal(t, entities.RoleUser, user.Profile.Role)
}

func TestRouter_ChangePassword(t *testing.T) {
	ts, cleanup := setupServer(t)
	defer cleanup()

	token := ts.registerAs(t, "paul", entities.RoleUser)

	w := ts.request(t, http.MethodPost, "/api/user/change_password", token, gin.H{
		"old_password": "wrong", "new_password": "newsecret",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.request(t, http.MethodPost, "/api/user/change_password", token, gin.H{
		"old_password": "secret123", "new_password": "newsecret",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.request(t, http.MethodPost, "/api/token", "", gin.H{
		"username": "paul", "password": "newsecret",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_LikesAndRecommendations(t *testing.T) {
	ts, cleanup := setupServer(t)
	defer cleanup()

	librarianToken := ts.registerAs(t, "keeper", entities.RoleLibrarian)
	readerToken := ts.registerAs(t, "paul", entities.RoleUser)

	var likedID uint
	for i := 1; i <= 6; i++ {
		w := ts.request(t, http.MethodPost, "/api/books", librarianToken, gin.H{
			"title": fmt.Sprintf("Book %d", i),
			"isbn":  fmt.Sprintf("%013d", i),
		})
		require.Equal(t, http.StatusCreated, w.Code)
		if i == 1 {
			var book entities.Book
			decode(t, w, &book)
			likedID = book.ID
		}
	}

	// No likes yet: nothing to recommend.
	w := ts.request(t, http.MethodGet, "/api/recommendations", readerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.request(t, http.MethodPost, fmt.Sprintf("/api/books/%d/like", likedID), readerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.request(t, http.MethodGet, "/api/recommendations", readerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Recommendations []entities.BookSummary `json:"recommendations"`
	}
	decode(t, w, &resp)
	require.Len(t, resp.Recommendations, 5)
	for _, pick := range resp.Recommendations {
		assert.NotEqual(t, likedID, pick.ID)
	}

	// Unlike and the picks dry up again.
	w = ts.request(t, http.MethodDelete, fmt.Sprintf("/api/books/%d/like", likedID), readerToken, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = ts.request(t, http.MethodGet, "/api/recommendations", readerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_StaffUserCreateAndDelete(t *testing.T) {
	ts, cleanup := setupServer(t)
	defer cleanup()

	adminToken := ts.registerAs(t, "boss", entities.RoleAdmin)

	w := ts.request(t, http.MethodPost, "/api/users", adminToken, gin.H{
		"username": "newhire", "password": "secret123", "first_name": "New", "last_name": "Hire",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created entities.User
	decode(t, w, &created)
	require.NotNil(t, created.Profile)
	assert.Equal(t, entities.RoleUser, created.Profile.Role)

	w = ts.request(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", created.ID), adminToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.request(t, http.MethodGet, fmt.Sprintf("/api/users/%d", created.ID), adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_InvalidIDParam(t *testing.T) {
	ts, cleanup := setupServer(t)
	defer cleanup()

	token := ts.registerAs(t, "keeper", entities.RoleLibrarian)

	w := ts.request(t, http.MethodGet, "/api/books/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
