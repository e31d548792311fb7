package service

import (
	"context"
	"math"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"interviewace/schema"
)

type QuestionsRequest struct {
	Role        string `json:"role"`
	NumEasy     int    `json:"numEasy"`
	NumMedium   int    `json:"numMedium"`
	NumHard     int    `json:"numHard"`
	SkillToTest string `json:"skillToTest"`
}

func (r QuestionsRequest) Total() int {
	return r.NumEasy + r.NumMedium + r.NumHard
}

type Question = schema.Question

type FeedbackRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Feedback struct {
	Feedback   string `json:"feedback"`
	Suggestion string `json:"suggestion"`
}

type SummaryRequest struct {
	InterviewHistory string `json:"interviewHistory"`
}

type Summary struct {
	Summary string
	Score   int
}

// GenerateQuestions returns exactly the requested number of questions per difficulty.
func (g *GeneratorClient) GenerateQuestions(ctx context.Context, req QuestionsRequest) ([]Question, error) {
	var out []Question
	if err := g.post(ctx, g.config.QuestionsURL, req, &out); err != nil {
		return nil, err
	}
	if err := ValidateQuestions(req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func ValidateQuestions(req QuestionsRequest, questions []Question) error {
	if len(questions) == 0 || len(questions) != req.Total() {
		return status.Errorf(codes.DataLoss, "expected %d questions, got %d", req.Total(), len(questions))
	}
	counts := map[schema.Difficulty]int{}
	for _, q := range questions {
		if !q.Difficulty.Valid() {
			return status.Errorf(codes.DataLoss, "unknown difficulty %q", q.Difficulty)
		}
		if q.Question == "" {
			return status.Error(codes.DataLoss, "empty question text")
		}
		counts[q.Difficulty]++
	}
	if counts[schema.DifficultyEasy] != req.NumEasy ||
		counts[schema.DifficultyMedium] != req.NumMedium ||
		counts[schema.DifficultyHard] != req.NumHard {
		return status.Errorf(codes.DataLoss, "difficulty mix %d/%d/%d does not match request %d/%d/%d",
			counts[schema.DifficultyEasy], counts[schema.DifficultyMedium], counts[schema.DifficultyHard],
			req.NumEasy, req.NumMedium, req.NumHard)
	}
	return nil
}

func (g *GeneratorClient) GenerateFeedback(ctx context.Context, req FeedbackRequest) (*Feedback, error) {
	var out Feedback
	if err := g.post(ctx, g.config.FeedbackURL, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateSummary rounds the returned score to the nearest integer and
// rejects scores outside 0..100.
func (g *GeneratorClient) GenerateSummary(ctx context.Context, req SummaryRequest) (*Summary, error) {
	var out struct {
		Summary string  `json:"summary"`
		Score   float64 `json:"score"`
	}
	if err := g.post(ctx, g.config.SummaryURL, req, &out); err != nil {
		return nil, err
	}
	score := int(math.Round(out.Score))
	if score < 0 || score > 100 {
		return nil, status.Errorf(codes.DataLoss, "score %v out of range", out.Score)
	}
	return &Summary{Summary: out.Summary, Score: score}, nil
}
