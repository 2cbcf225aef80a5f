package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/libshelf/library-api/internal/auth"
	"github.com/libshelf/library-api/internal/database/borrows"
	"github.com/libshelf/library-api/internal/database/catalog"
	"github.com/libshelf/library-api/internal/database/users"
	"github.com/libshelf/library-api/internal/http"
	"github.com/libshelf/library-api/internal/recommend"
)

// =============================================================================
// Data Access Layer
// =============================================================================

// Catalog repository serves the author, genre and book controllers.
var _ http.AuthorStore = (*catalog.Repository)(nil)
var _ http.GenreStore = (*catalog.Repository)(nil)
var _ http.BookStore = (*catalog.Repository)(nil)

// BorrowStore implementations
var _ http.BorrowStore = (*borrows.Repository)(nil)

// User repository serves staff administration, self-service profile
// endpoints and the auth service.
var _ http.StaffUserStore = (*users.Repository)(nil)
var _ http.ProfileStore = (*users.Repository)(nil)
var _ auth.UserStore = (*users.Repository)(nil)

// =============================================================================
// Recommendations
// =============================================================================

var _ recommend.LikedStore = (*users.Repository)(nil)
var _ recommend.BookStore = (*catalog.Repository)(nil)
var _ recommend.Scorer = (*recommend.FileScorer)(nil)
var _ http.Recommender = (*recommend.Service)(nil)

// =============================================================================
// Auth Services
// =============================================================================

var _ http.Registrar = (*auth.Service)(nil)
var _ http.PasswordChanger = (*auth.Service)(nil)
