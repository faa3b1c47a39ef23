package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-analytics/internal/models"
	"video-analytics/shared/scoring"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	t.Setenv("YOUTUBE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "env-gemini")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("PORT", "")
	t.Setenv("EMAIL_USERNAME", "")
	t.Setenv("EMAIL_PASSWORD", "smtp-secret")

	path := writeConfig(t, `
youtube:
  api_key: yt-key
  request_timeout: 5s
  search_limit: 500
votes:
  base_url: http://votes.local
enrichment:
  max_attempts: 4
  batch_size: 2
  batch_interval: 250ms
ranking:
  weights:
    views: 1
    quality_rating: 3
  top: 5
email:
  smtp_server: smtp.test.com
  username: bot@test.com
  to_email: me@test.com
schedule: "0 */30 * * * *"
watchlist:
  - name: launch
    kind: playlist
    input: https://www.youtube.com/playlist?list=PLabcdefghijkl
  - kind: search
    input: golang tutorial
    limit: 20
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "yt-key", cfg.YouTube.APIKey)
	assert.Equal(t, 5*time.Second, cfg.YouTube.RequestTimeout)
	assert.Equal(t, 200, cfg.YouTube.SearchLimit)
	assert.Equal(t, "http://votes.local", cfg.Votes.BaseURL)

	assert.Equal(t, 4, cfg.Enrichment.MaxAttempts)
	assert.Equal(t, 2, cfg.Enrichment.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Enrichment.BatchInterval)
	assert.Equal(t, time.Second, cfg.Enrichment.RetryDelay)
	assert.Equal(t, 10*time.Second, cfg.Enrichment.RequestTimeout)

	assert.Equal(t, scoring.Weights{scoring.MetricViews: 1, scoring.MetricQualityRating: 3}, cfg.Ranking.Weights)
	assert.Equal(t, 5, cfg.Ranking.Top)
	assert.Equal(t, scoring.DefaultParams(), cfg.Scoring)

	assert.Equal(t, "env-gemini", cfg.AI.GeminiAPIKey)
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Model)
	assert.Equal(t, "0 */30 * * * *", cfg.Schedule)

	assert.True(t, cfg.Email.Enabled())
	assert.Equal(t, 587, cfg.Email.SMTPPort)
	assert.Equal(t, "bot@test.com", cfg.Email.FromEmail)
	assert.Equal(t, "smtp-secret", cfg.Email.Password)

	require.Len(t, cfg.Watchlist, 2)
	assert.Equal(t, models.KindPlaylist, cfg.Watchlist[0].Kind)
	assert.Equal(t, "launch", cfg.Watchlist[0].Label())
	assert.Equal(t, models.KindSearch, cfg.Watchlist[1].Kind)
	assert.Equal(t, 20, cfg.Watchlist[1].Limit)
	assert.Equal(t, "search:golang tutorial", cfg.Watchlist[1].Label())
}

func TestLoadMissingFileUsesEnvAndDefaults(t *testing.T) {
	t.Setenv("YOUTUBE_API_KEY", "from-env")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PORT", "")
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.YouTube.APIKey)
	assert.Equal(t, 50, cfg.YouTube.SearchLimit)
	assert.Equal(t, "https://returnyoutubedislikeapi.com", cfg.Votes.BaseURL)
	assert.Equal(t, 30*time.Minute, cfg.Votes.CacheTTL)
	assert.Equal(t, 3, cfg.Enrichment.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Enrichment.BatchInterval)
	assert.Equal(t, time.Second, cfg.Enrichment.RetryDelay)
	assert.Equal(t, scoring.DefaultWeights(), cfg.Ranking.Weights)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "8080", cfg.Monitoring.HealthPort)
	assert.Error(t, cfg.RequireAI())
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("YOUTUBE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("PORT", "")
	t.Setenv("EMAIL_USERNAME", "")

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "missing api key", body: "schedule: \"@hourly\"\n", wantErr: "YouTube API key"},
		{name: "unknown metric", body: "youtube: {api_key: k}\nranking: {weights: {shares: 2}}\n", wantErr: "ranking.weights"},
		{name: "negative weight", body: "youtube: {api_key: k}\nranking: {weights: {views: -1}}\n", wantErr: "must not be negative"},
		{name: "watchlist without input", body: "youtube: {api_key: k}\nwatchlist: [{kind: video}]\n", wantErr: "input is required"},
		{name: "email without sender", body: "youtube: {api_key: k}\nemail: {smtp_server: smtp.test.com, to_email: me@test.com}\n", wantErr: "email.from_email"},
		{name: "unknown kind", body: "youtube: {api_key: k}\nwatchlist: [{kind: podcast, input: x}]\n", wantErr: "unknown input kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
