package recommend

import (
	"log"
	"math/rand"
	"net/url"
	"sort"

	"github.com/libshelf/library-api/internal/entities"
	"github.com/libshelf/library-api/internal/errs"
)

// LikedStore yields the user's most recently liked books.
type LikedStore interface {
	LikedBooks(userID uint, limit int) ([]entities.Book, error)
}

// BookStore yields the candidate catalog.
type BookStore interface {
	ListBooks(params url.Values) ([]entities.Book, error)
}

// Config sizes the recommendation passes.
type Config struct {
	LikedWindow int // most-recently-liked books considered
	TopPerLiked int // candidates kept per liked-book pass
	SampleSize  int // final sample drawn from the candidate list
}

// Service aggregates per-liked-book score passes and samples the result.
type Service struct {
	liked  LikedStore
	books  BookStore
	scorer Scorer
	cfg    Config
	rng    *rand.Rand
}

func NewService(liked LikedStore, books BookStore, scorer Scorer, cfg Config) *Service {
	return &Service{
		liked:  liked,
		books:  books,
		scorer: scorer,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(rand.Int63())),
	}
}

// Recommend returns up to SampleSize book summaries for the user. A user
// with no liked books, or with no surviving candidates, gets a NotFound.
func (s *Service) Recommend(userID uint) ([]entities.BookSummary, error) {
	likedBooks, err := s.liked.LikedBooks(userID, s.cfg.LikedWindow)
	if err != nil {
		return nil, err
	}
	if len(likedBooks) == 0 {
		return nil, errs.NotFound("no liked books found")
	}

	allBooks, err := s.books.ListBooks(nil)
	if err != nil {
		return nil, err
	}

	// Candidate ids concatenate across liked-book passes and are not
	// deduplicated: a book surfacing for several liked books is sampled
	// with proportionally higher odds.
	var candidates []uint
	for _, liked := range likedBooks {
		top, err := s.topForLikedBook(userID, liked.ID, allBooks)
		if err != nil {
			log.Printf("recommendation scoring failed for book %d: %v", liked.ID, err)
			continue
		}
		candidates = append(candidates, top...)
	}
	if len(candidates) == 0 {
		return nil, errs.NotFound("no recommendations available")
	}

	sampled := s.sample(candidates)

	byID := make(map[uint]entities.Book, len(allBooks))
	for _, b := range allBooks {
		byID[b.ID] = b
	}
	// The sample can draw the same id twice when it surfaced in several
	// passes; the response lists each book once.
	seen := make(map[uint]bool, len(sampled))
	summaries := make([]entities.BookSummary, 0, len(sampled))
	for _, id := range sampled {
		if seen[id] {
			continue
		}
		seen[id] = true
		if b, ok := byID[id]; ok {
			summaries = append(summaries, b.Summary())
		}
	}
	return summaries, nil
}

// topForLikedBook scores every other catalog book and keeps the best
// TopPerLiked ids. A scorer failure abandons the whole pass.
func (s *Service) topForLikedBook(userID, likedID uint, allBooks []entities.Book) ([]uint, error) {
	type scored struct {
		id    uint
		score float64
	}
	var results []scored
	for _, other := range allBooks {
		if other.ID == likedID {
			continue
		}
		est, err := s.scorer.Predict(userID, other.ID)
		if err != nil {
			return nil, err
		}
		results = append(results, scored{id: other.ID, score: est})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if len(results) > s.cfg.TopPerLiked {
		results = results[:s.cfg.TopPerLiked]
	}

	ids := make([]uint, len(results))
	for i, r := range results {
		ids[i] = r.id
	}
	return ids, nil
}

// sample draws min(SampleSize, len(candidates)) entries uniformly without
// replacement.
func (s *Service) sample(candidates []uint) []uint {
	n := s.cfg.SampleSize
	if len(candidates) < n {
		n = len(candidates)
	}
	perm := s.rng.Perm(len(candidates))
	picked := make([]uint, 0, n)
	for _, idx := range perm[:n] {
		picked = append(picked, candidates[idx])
	}
	return picked
}
