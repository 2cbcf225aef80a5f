package http

import (
	"github.com/gin-gonic/gin"

	"github.com/libshelf/library-api/internal/auth"
	"github.com/libshelf/library-api/internal/database"
	"github.com/libshelf/library-api/internal/entities"
)

// RouterConfig bundles the dependencies the router wires into controllers.
type RouterConfig struct {
	Database       *database.Database
	Version        string
	AuthController *auth.Controller
	AuthMiddleware *auth.Middleware

	Authors     AuthorStore
	Genres      GenreStore
	Books       BookStore
	Borrows     BorrowStore
	Users       StaffUserStore
	Registrar   Registrar
	Profiles    ProfileStore
	Passwords   PasswordChanger
	Recommender Recommender
}

// NewRouter creates and configures the HTTP router with all endpoints.
//
// Access tiers: health and token endpoints are public; everything under
// /api requires a valid access token; catalog and borrow mutations need
// LIBRARIAN or ADMIN; user administration needs ADMIN.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.Version)
	authors := NewAuthorsController(cfg.Authors)
	genres := NewGenresController(cfg.Genres)
	books := NewBooksController(cfg.Books)
	borrows := NewBorrowsController(cfg.Borrows)
	users := NewUsersController(cfg.Users, cfg.Registrar)
	profile := NewProfileController(cfg.Profiles, cfg.Passwords)
	recommendations := NewRecommendationsController(cfg.Recommender)

	// Public endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)
	router.POST("/api/user/register", cfg.AuthController.Register)
	router.POST("/api/token", cfg.AuthController.Token)
	router.POST("/api/token/refresh", cfg.AuthController.Refresh)

	api := router.Group("/api", cfg.AuthMiddleware.RequireAuth())

	// Any authenticated user
	api.GET("/user/profile", profile.Get)
	api.PATCH("/user/profile", profile.Update)
	api.POST("/user/change_password", profile.ChangePassword)
	api.GET("/books", books.List)
	api.GET("/books/:id", books.Get)
	api.POST("/books/:id/like", profile.Like)
	api.DELETE("/books/:id/like", profile.Unlike)
	api.GET("/recommendations", recommendations.Get)

	// Catalog and borrow management
	staff := api.Group("", cfg.AuthMiddleware.RequirePermission(entities.Role.CanManageCatalog))
	staff.GET("/authors", authors.List)
	staff.GET("/authors/:id", authors.Get)
	staff.POST("/authors", authors.Create)
	staff.PATCH("/authors/:id", authors.Update)
	staff.DELETE("/authors/:id", authors.Delete)

	staff.GET("/genres", genres.List)
	staff.GET("/genres/:id", genres.Get)
	staff.POST("/genres", genres.Create)
	staff.PATCH("/genres/:id", genres.Update)
	staff.DELETE("/genres/:id", genres.Delete)
	staff.POST("/genres/bulk", genres.Bulk)

	staff.POST("/books", books.Create)
	staff.PATCH("/books/:id", books.Update)
	staff.DELETE("/books/:id", books.Delete)

	staff.GET("/borrows", borrows.List)
	staff.GET("/borrows/:id", borrows.Get)
	staff.POST("/borrows", borrows.Create)
	staff.PATCH("/borrows/:id", borrows.Update)
	staff.DELETE("/borrows/:id", borrows.Delete)

	// Staff-visible user listings
	viewers := api.Group("", cfg.AuthMiddleware.RequirePermission(entities.Role.CanViewUsers))
	viewers.GET("/users", users.List)
	viewers.GET("/users/:id", users.Get)

	// User administration
	admin := api.Group("", cfg.AuthMiddleware.RequirePermission(entities.Role.CanManageUsers))
	admin.POST("/users", users.Create)
	admin.PATCH("/users/:id", users.Update)
	admin.DELETE("/users/:id", users.Delete)

	return router
}
