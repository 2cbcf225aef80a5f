package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/libshelf/library-api/internal/auth"
	"github.com/libshelf/library-api/internal/entities"
)

// Recommender produces personalised book picks for a user.
type Recommender interface {
	Recommend(userID uint) ([]entities.BookSummary, error)
}

type RecommendationsController struct {
	recommender Recommender
}

func NewRecommendationsController(recommender Recommender) *RecommendationsController {
	return &RecommendationsController{recommender: recommender}
}

// Get returns a sampled set of book picks for the calling user
// GET /api/recommendations
func (rc *RecommendationsController) Get(c *gin.Context) {
	userID := auth.GetUserID(c)
	if userID == 0 {
		respondUnauthenticated(c)
		return
	}
	picks, err := rc.recommender.Recommend(userID)
	if err != nil {
		respondStoreError(c, err, "recommendations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": picks})
}
