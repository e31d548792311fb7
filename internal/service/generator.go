package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Generator is the set of AI capabilities the interview depends on. Any call
// may fail; callers treat all failures alike.
type Generator interface {
	GenerateQuestions(ctx context.Context, req QuestionsRequest) ([]Question, error)
	GenerateFeedback(ctx context.Context, req FeedbackRequest) (*Feedback, error)
	GenerateSummary(ctx context.Context, req SummaryRequest) (*Summary, error)
}

type Config struct {
	QuestionsURL string
	FeedbackURL  string
	SummaryURL   string
	Timeout      time.Duration
}

func ReadConfig() *Config {
	timeout := viper.GetDuration("generator.timeout")
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Config{
		QuestionsURL: viper.GetString("generator.questions_url"),
		FeedbackURL:  viper.GetString("generator.feedback_url"),
		SummaryURL:   viper.GetString("generator.summary_url"),
		Timeout:      timeout,
	}
}

// GeneratorClient calls the generation flows over HTTP with JSON bodies.
type GeneratorClient struct {
	client *http.Client
	config *Config
	logger *zap.Logger
}

func NewGeneratorClient(cfg *Config, logger *zap.Logger) *GeneratorClient {
	return &GeneratorClient{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
		logger: logger,
	}
}

// post sends payload to url and decodes a 200 response into out.
func (g *GeneratorClient) post(ctx context.Context, url string, payload, out any) error {
	if url == "" {
		return status.Error(codes.FailedPrecondition, "generator url is not configured")
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return status.Errorf(codes.Internal, "Failed to marshal request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payloadBytes))
	if err != nil {
		return status.Errorf(codes.Internal, "Failed to create HTTP request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return status.Errorf(codes.Unavailable, "Failed to send HTTP request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return status.Errorf(codes.Internal, "Failed to read response body: %v", err)
	}
	g.logger.Debug("Generator call finished",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return status.Errorf(codes.Internal, "Generator returned non-200 status: %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return status.Errorf(codes.Internal, "Failed to unmarshal response JSON: %v", err)
	}
	return nil
}
