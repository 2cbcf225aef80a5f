package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/libshelf/library-api/internal/errs"
)

// Controller exposes the public identity endpoints: registration, token
// issuance, and token refresh.
type Controller struct {
	service *Service
	tokens  *TokenService
}

func NewController(service *Service, tokens *TokenService) *Controller {
	return &Controller{service: service, tokens: tokens}
}

// Register creates a new account
// POST /api/user/register
func (ac *Controller) Register(c *gin.Context) {
	var req struct {
		Username  string `json:"username" binding:"required"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Password  string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	user, err := ac.service.Register(req.Username, req.Email, req.FirstName, req.LastName, req.Password)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Token exchanges credentials for an access/refresh pair
// POST /api/token
func (ac *Controller) Token(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	user, err := ac.service.Authenticate(req.Username, req.Password)
	if err != nil {
		if errs.IsKind(err, errs.KindAuthorization) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		respondAuthError(c, err)
		return
	}

	pair, err := ac.tokens.IssuePair(user)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Refresh exchanges a refresh token for a fresh pair
// POST /api/token/refresh
func (ac *Controller) Refresh(c *gin.Context) {
	var req struct {
		Refresh string `json:"refresh" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh token is required"})
		return
	}

	claims, err := ac.tokens.VerifyRefresh(req.Refresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	// Re-read the user so the new pair carries the current role.
	user, err := ac.service.store.GetByID(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	pair, err := ac.tokens.IssuePair(user)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func respondAuthError(c *gin.Context, err error) {
	switch errs.KindOf(err) {
	case errs.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errs.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errs.KindAuthorization:
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	case errs.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
