package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"video-analytics/internal/models"
	"video-analytics/shared/config"
)

// maxCommentChunk bounds a single prompt line; longer comments are split.
const maxCommentChunk = 500

// ErrEmptyResponse is returned when the model produced no text, usually
// because of content filtering.
var ErrEmptyResponse = errors.New("empty analysis response")

// generator is the part of *genai.Models the analyzer needs.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Analyzer struct {
	models   generator
	model    string
	language string
	logger   *zap.Logger
}

func NewAnalyzer(ctx context.Context, cfg *config.AIConfig, logger *zap.Logger) (*Analyzer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newAnalyzer(client.Models, cfg, logger), nil
}

func newAnalyzer(g generator, cfg *config.AIConfig, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	language := cfg.Language
	if language == "" {
		language = "English"
	}
	return &Analyzer{
		models:   g,
		model:    cfg.Model,
		language: language,
		logger:   logger,
	}
}

// AnalyzeComments summarizes the feedback in comments as markdown with pros,
// cons, common suggestions and actionable insights, and scores the sentiment
// of each comment. An empty language uses the configured one. A failed
// sentiment pass leaves the scores unset.
func (a *Analyzer) AnalyzeComments(ctx context.Context, video *models.Video, comments []models.Comment, language string) (*models.CommentAnalysis, error) {
	if video == nil {
		return nil, fmt.Errorf("video cannot be nil")
	}
	if len(comments) == 0 {
		return nil, fmt.Errorf("video %s has no comments to analyze", video.ID)
	}
	if language == "" {
		language = a.language
	}

	scored, err := a.ScoreSentiment(ctx, comments)
	if err != nil {
		a.logger.Warn("Sentiment scoring failed", zap.String("video_id", video.ID), zap.Error(err))
		scored = comments
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buildCommentsPrompt(video, comments, language), genai.RoleUser),
	}

	result, err := a.models.GenerateContent(ctx, a.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze comments of %s: %w", video.ID, err)
	}

	summary := strings.TrimSpace(result.Text())
	if summary == "" {
		a.logger.Warn("Empty comment analysis", zap.String("video_id", video.ID))
		return nil, fmt.Errorf("video %s: %w", video.ID, ErrEmptyResponse)
	}

	return &models.CommentAnalysis{
		VideoID:   video.ID,
		Language:  language,
		Comments:  len(comments),
		Summary:   summary,
		Sentiment: AverageSentiment(scored),
		Scored:    scored,
		Created:   time.Now(),
	}, nil
}

func buildCommentsPrompt(video *models.Video, comments []models.Comment, language string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `Analyze and summarize the following YouTube comments, focusing on factual feedback. Exclude irrelevant or off-topic comments. Provide detailed summaries in %s, structured in markdown format as follows:

YouTube Comments Analysis
Pros:
Detail each positive aspect mentioned by users with specific examples.
Cons:
Detail each negative aspect or criticism mentioned by users with specific examples.
Common Suggestions:
Summarize recurring suggestions or feedback that appear across multiple comments.
Actionable Insights:
Provide recommendations or actionable steps based on the analysis of pros, cons, and suggestions.

VIDEO:
Title: %s
Channel: %s

COMMENTS:
`, language, video.Title, video.ChannelTitle)

	for _, c := range comments {
		for _, chunk := range splitComment(strings.TrimSpace(c.Text)) {
			b.WriteString("- ")
			b.WriteString(chunk)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// splitComment cuts text into chunks of at most maxCommentChunk runes.
func splitComment(text string) []string {
	if text == "" {
		return nil
	}
	runes := []rune(strings.ReplaceAll(text, "\n", " "))
	var chunks []string
	for len(runes) > maxCommentChunk {
		chunks = append(chunks, string(runes[:maxCommentChunk]))
		runes = runes[maxCommentChunk:]
	}
	return append(chunks, string(runes))
}
