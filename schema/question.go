package schema

import "time"

// Difficulty grades a generated question and selects its answer budget.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

const defaultTimeLimit = 60 * time.Second

// Question holds one generated interview question.
type Question struct {
	Question   string     `json:"question"`
	Difficulty Difficulty `json:"difficulty"`
}

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// TimeLimit returns how long a candidate may spend on a question of this difficulty.
func (d Difficulty) TimeLimit() time.Duration {
	switch d {
	case DifficultyEasy:
		return 20 * time.Second
	case DifficultyMedium:
		return 60 * time.Second
	case DifficultyHard:
		return 120 * time.Second
	default:
		return defaultTimeLimit
	}
}
