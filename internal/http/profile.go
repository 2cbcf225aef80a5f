package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/libshelf/library-api/internal/auth"
	"github.com/libshelf/library-api/internal/database/users"
	"github.com/libshelf/library-api/internal/entities"
)

// ProfileStore covers the self-service operations an authenticated user can
// run on their own account.
type ProfileStore interface {
	GetByID(id uint) (*entities.User, error)
	UpdateProfile(id uint, in users.ProfileUpdate) (*entities.User, error)
	LikeBook(userID, bookID uint) error
	UnlikeBook(userID, bookID uint) error
}

// PasswordChanger verifies the old password before storing a new hash.
type PasswordChanger interface {
	ChangePassword(userID uint, oldPassword, newPassword string) error
}

type ProfileController struct {
	store     ProfileStore
	passwords PasswordChanger
}

func NewProfileController(store ProfileStore, passwords PasswordChanger) *ProfileController {
	return &ProfileController{store: store, passwords: passwords}
}

// Get returns the calling user's account and profile
// GET /api/user/profile
func (pc *ProfileController) Get(c *gin.Context) {
	userID := auth.GetUserID(c)
	if userID == 0 {
		respondUnauthenticated(c)
		return
	}
	user, err := pc.store.GetByID(userID)
	if err != nil {
		respondStoreError(c, err, "get profile")
		return
	}
	c.JSON(http.StatusOK, user)
}

// Update partially updates the calling user's account and profile. Role is
// ignored here; only admins may change roles, through the staff endpoint.
// PATCH /api/user/profile
func (pc *ProfileController) Update(c *gin.Context) {
	userID := auth.GetUserID(c)
	if userID == 0 {
		respondUnauthenticated(c)
		return
	}
	var in users.ProfileUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "malformed profile payload")
		return
	}
	user, err := pc.store.UpdateProfile(userID, in)
	if err != nil {
		respondStoreError(c, err, "update profile")
		return
	}
	c.JSON(http.StatusOK, user)
}

// ChangePassword sets a new password after verifying the old one
// POST /api/user/change_password
func (pc *ProfileController) ChangePassword(c *gin.Context) {
	userID := auth.GetUserID(c)
	if userID == 0 {
		respondUnauthenticated(c)
		return
	}
	var req struct {
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "old_password and new_password are required")
		return
	}
	if err := pc.passwords.ChangePassword(userID, req.OldPassword, req.NewPassword); err != nil {
		respondStoreError(c, err, "change password")
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "password updated"})
}

// Like marks a book as liked by the calling user; liking twice is a no-op
// POST /api/books/:id/like
func (pc *ProfileController) Like(c *gin.Context) {
	userID := auth.GetUserID(c)
	if userID == 0 {
		respondUnauthenticated(c)
		return
	}
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := pc.store.LikeBook(userID, bookID); err != nil {
		respondStoreError(c, err, "like book")
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "book liked"})
}

// Unlike removes a like; unliking a book that was never liked is a no-op
// DELETE /api/books/:id/like
func (pc *ProfileController) Unlike(c *gin.Context) {
	userID := auth.GetUserID(c)
	if userID == 0 {
		respondUnauthenticated(c)
		return
	}
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := pc.store.UnlikeBook(userID, bookID); err != nil {
		respondStoreError(c, err, "unlike book")
		return
	}
	c.Status(http.StatusNoContent)
}
