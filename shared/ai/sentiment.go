package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"video-analytics/internal/models"
)

// sentimentSchema constrains the scoring reply to [{"id": "1", "score": 87}].
var sentimentSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":    {Type: genai.TypeString},
			"score": {Type: genai.TypeNumber, Minimum: genai.Ptr(0.0), Maximum: genai.Ptr(100.0)},
		},
		Required:         []string{"id", "score"},
		PropertyOrdering: []string{"id", "score"},
	},
}

type chunkScore struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// ScoreSentiment rates every comment from 0 (negative) to 100 (positive).
// Long comments are split like in the summary prompt and their chunk scores
// averaged. The returned slice is a copy of comments; a comment the model
// skipped keeps a nil SentimentScore.
func (a *Analyzer) ScoreSentiment(ctx context.Context, comments []models.Comment) ([]models.Comment, error) {
	scored := slices.Clone(comments)

	var b strings.Builder
	b.WriteString(`Rate the sentiment of each YouTube comment chunk below from 0 (very negative) to 100 (very positive), 50 being neutral. Answer with a JSON array holding one object per chunk with its id and score.

CHUNKS:
`)
	owner := make(map[string]int)
	for i, c := range comments {
		for _, chunk := range splitComment(strings.TrimSpace(c.Text)) {
			id := strconv.Itoa(len(owner) + 1)
			owner[id] = i
			fmt.Fprintf(&b, "[%s] %s\n", id, chunk)
		}
	}
	if len(owner) == 0 {
		return scored, nil
	}

	contents := []*genai.Content{genai.NewContentFromText(b.String(), genai.RoleUser)}
	result, err := a.models.GenerateContent(ctx, a.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   sentimentSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to score comment sentiment: %w", err)
	}

	scores, err := parseChunkScores(result.Text())
	if err != nil {
		return nil, err
	}

	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, s := range scores {
		i, ok := owner[strings.TrimSpace(s.ID)]
		if !ok {
			a.logger.Debug("Ignoring score of unknown chunk", zap.String("chunk_id", s.ID))
			continue
		}
		sums[i] += min(max(s.Score, 0), 100)
		counts[i]++
	}
	for i, n := range counts {
		avg := sums[i] / float64(n)
		scored[i].SentimentScore = &avg
	}
	return scored, nil
}

func parseChunkScores(response string) ([]chunkScore, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, ErrEmptyResponse
	}
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start == -1 || end < start {
		return nil, fmt.Errorf("no JSON array found in sentiment response: %s", response)
	}

	var scores []chunkScore
	if err := json.Unmarshal([]byte(response[start:end+1]), &scores); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sentiment scores: %w", err)
	}
	return scores, nil
}

// AverageSentiment is the mean score of the scored comments, or nil when
// none has a score.
func AverageSentiment(comments []models.Comment) *float64 {
	var sum float64
	var n int
	for _, c := range comments {
		if c.SentimentScore != nil {
			sum += *c.SentimentScore
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

// SentimentLabel formats a score as a percentage, or "N/A".
func SentimentLabel(score *float64) string {
	if score == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", *score)
}
