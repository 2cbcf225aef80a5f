package http

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/libshelf/library-api/internal/database/users"
	"github.com/libshelf/library-api/internal/entities"
)

// StaffUserStore defines the identity-store operations behind the staff
// user-management endpoints.
type StaffUserStore interface {
	List(params url.Values) ([]entities.User, error)
	GetByID(id uint) (*entities.User, error)
	StaffUpdateUser(id uint, in users.StaffUpdate) (*entities.User, error)
	Delete(id uint) error
}

// Registrar creates accounts; the staff create endpoint shares it with the
// public registration endpoint so passwords are hashed in one place.
type Registrar interface {
	Register(username, email, firstName, lastName, password string) (*entities.User, error)
}

type UsersController struct {
	store     StaffUserStore
	registrar Registrar
}

func NewUsersController(store StaffUserStore, registrar Registrar) *UsersController {
	return &UsersController{store: store, registrar: registrar}
}

// List returns users, filterable by username/email substrings and a
// two-token full_name
// GET /api/users
func (uc *UsersController) List(c *gin.Context) {
	list, err := uc.store.List(c.Request.URL.Query())
	if err != nil {
		respondInternalError(c, err, "list users")
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get returns a single user with its profile
// GET /api/users/:id
func (uc *UsersController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user, err := uc.store.GetByID(id)
	if err != nil {
		respondStoreError(c, err, "get user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// Create adds an account on behalf of someone else
// POST /api/users
func (uc *UsersController) Create(c *gin.Context) {
	var req struct {
		Username  string `json:"username" binding:"required"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Password  string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "username and password are required")
		return
	}
	user, err := uc.registrar.Register(req.Username, req.Email, req.FirstName, req.LastName, req.Password)
	if err != nil {
		respondStoreError(c, err, "create user")
		return
	}
	respondCreated(c, user)
}

// Update partially updates an account, including the profile role
// PATCH /api/users/:id
func (uc *UsersController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var in users.StaffUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "malformed user payload")
		return
	}
	user, err := uc.store.StaffUpdateUser(id, in)
	if err != nil {
		respondStoreError(c, err, "update user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// Delete removes an account and its profile; the user's borrow history
// survives with nullified references
// DELETE /api/users/:id
func (uc *UsersController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := uc.store.Delete(id); err != nil {
		respondStoreError(c, err, "delete user")
		return
	}
	c.Status(http.StatusNoContent)
}
