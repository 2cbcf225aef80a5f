// Package recommend turns a user's liked books into a sampled list of
// suggested catalog books, scored by an external predictor.
package recommend

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
)

// Scorer is the opaque scoring function: a predicted preference estimate
// for a (user, candidate book) pair.
type Scorer interface {
	Predict(userID, bookID uint) (float64, error)
}

// modelFile is the persisted form of the trained model: a global mean plus
// per-user and per-book bias terms, keyed by decimal id.
type modelFile struct {
	GlobalMean float64            `json:"global_mean"`
	UserBias   map[string]float64 `json:"user_bias"`
	BookBias   map[string]float64 `json:"book_bias"`
}

// FileScorer loads the model file lazily on first use and caches it for the
// life of the process.
type FileScorer struct {
	path string

	once  sync.Once
	model *modelFile
	err   error
}

func NewFileScorer(path string) *FileScorer {
	return &FileScorer{path: path}
}

func (s *FileScorer) Predict(userID, bookID uint) (float64, error) {
	s.once.Do(s.load)
	if s.err != nil {
		return 0, s.err
	}
	est := s.model.GlobalMean
	est += s.model.UserBias[strconv.FormatUint(uint64(userID), 10)]
	est += s.model.BookBias[strconv.FormatUint(uint64(bookID), 10)]
	return est, nil
}

func (s *FileScorer) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.err = fmt.Errorf("failed to read model file: %w", err)
		return
	}
	var model modelFile
	if err := json.Unmarshal(data, &model); err != nil {
		s.err = fmt.Errorf("failed to parse model file: %w", err)
		return
	}
	s.model = &model
}
