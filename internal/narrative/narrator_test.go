package narrative

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rosh-10/automated-analysis-project/internal/ai"
	"github.com/Rosh-10/automated-analysis-project/internal/analysis"
	"github.com/Rosh-10/automated-analysis-project/internal/logger"
	"github.com/Rosh-10/automated-analysis-project/internal/retry"
)

func sampleProfile() *analysis.Profile {
	mean := 29.5
	return &analysis.Profile{
		Name:          "people.csv",
		Rows:          5,
		Columns:       []analysis.ColumnInfo{{Name: "age", Kind: analysis.KindNumeric}},
		Summary:       map[string]analysis.ColumnStats{"age": {Count: 4, Mean: &mean}},
		MissingValues: map[string]int{"age": 1},
	}
}

// sequenceServer answers with the given statuses in order and counts requests.
type sequenceServer struct {
	*httptest.Server
	mu        sync.Mutex
	statuses  []int
	prompts   []string
	maxTokens []int
}

func newSequenceServer(t *testing.T, statuses ...int) *sequenceServer {
	t.Helper()
	s := &sequenceServer{statuses: statuses}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ai.GenerateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		i := len(s.prompts)
		s.maxTokens = append(s.maxTokens, req.MaxTokens)
		if len(req.Messages) > 0 {
			s.prompts = append(s.prompts, req.Messages[0].Content)
		} else {
			s.prompts = append(s.prompts, "")
		}
		s.mu.Unlock()
		if i >= len(s.statuses) {
			i = len(s.statuses) - 1
		}
		st := s.statuses[i]
		w.WriteHeader(st)
		if st == http.StatusOK {
			_ = json.NewEncoder(w).Encode(ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Role: "assistant", Content: "## Findings\nAge varies."}}}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": http.StatusText(st)}})
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *sequenceServer) requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func testPolicy(slept *[]time.Duration) retry.Policy {
	p := retry.Default()
	p.Jitter = false
	p.Sleep = func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
	return p
}

func newNarrator(t *testing.T, url string, slept *[]time.Duration, opt Options) *Narrator {
	t.Helper()
	if opt.Model == "" {
		opt.Model = "gpt-4o-mini"
	}
	client := ai.NewClient("token", url, 2*time.Second)
	return New(client, testPolicy(slept), opt, logger.NewTestLogger(t))
}

func TestGenerateSucceedsOnThirdAttempt(t *testing.T) {
	srv := newSequenceServer(t, 500, 500, 200)
	var slept []time.Duration
	res, err := newNarrator(t, srv.URL, &slept, Options{}).Generate(context.Background(), sampleProfile(), []string{"age_distribution.jpg"})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, srv.requests())
	assert.Equal(t, "## Findings\nAge varies.", res.Text)
	assert.False(t, res.Fallback)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, slept)
}

func TestGenerateClientErrorIsNotRetried(t *testing.T) {
	srv := newSequenceServer(t, 400)
	var slept []time.Duration
	_, err := newNarrator(t, srv.URL, &slept, Options{Fallback: true}).Generate(context.Background(), sampleProfile(), nil)

	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, ce.Attempts)
	assert.Equal(t, 1, srv.requests())
	assert.Empty(t, slept)
	var bre *ai.BadRequestError
	assert.ErrorAs(t, err, &bre)
}

func TestGenerateRateLimitIsNotRetried(t *testing.T) {
	srv := newSequenceServer(t, 429, 200)
	var slept []time.Duration
	_, err := newNarrator(t, srv.URL, &slept, Options{}).Generate(context.Background(), sampleProfile(), nil)
	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, srv.requests())
}

func TestGenerateExhaustsRetries(t *testing.T) {
	srv := newSequenceServer(t, 503)
	var slept []time.Duration
	_, err := newNarrator(t, srv.URL, &slept, Options{}).Generate(context.Background(), sampleProfile(), nil)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 5, te.Attempts)
	assert.Equal(t, 5, srv.requests())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}, slept)
	var se *ai.ServerError
	assert.ErrorAs(t, err, &se)
}

func TestGenerateFallback(t *testing.T) {
	srv := newSequenceServer(t, 500)
	var slept []time.Duration
	res, err := newNarrator(t, srv.URL, &slept, Options{Fallback: true}).Generate(context.Background(), sampleProfile(), nil)
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, FallbackNarrative, res.Text)
	assert.Equal(t, 5, res.Attempts)
}

func TestGenerateSendsPrompt(t *testing.T) {
	srv := newSequenceServer(t, 200)
	var slept []time.Duration
	_, err := newNarrator(t, srv.URL, &slept, Options{}).Generate(context.Background(), sampleProfile(), []string{"pairplot.jpg"})
	require.NoError(t, err)
	require.Equal(t, 1, srv.requests())
	prompt := srv.prompts[0]
	assert.Contains(t, prompt, "Relationships, trends and outliers")
	assert.Contains(t, prompt, "File: people.csv")
	assert.Contains(t, prompt, "- pairplot.jpg")
}

func TestGenerateSendsMaxResponseTokens(t *testing.T) {
	srv := newSequenceServer(t, 200, 200)
	var slept []time.Duration
	_, err := newNarrator(t, srv.URL, &slept, Options{MaxResponseTokens: 800}).Generate(context.Background(), sampleProfile(), nil)
	require.NoError(t, err)
	_, err = newNarrator(t, srv.URL, &slept, Options{}).Generate(context.Background(), sampleProfile(), nil)
	require.NoError(t, err)
	assert.Equal(t, []int{800, 0}, srv.maxTokens)
}

func TestBuildPromptIsBounded(t *testing.T) {
	p := sampleProfile()
	for i := 0; i < 500; i++ {
		name := "col_" + strings.Repeat("x", 20) + "_" + string(rune('a'+i%26))
		p.Columns = append(p.Columns, analysis.ColumnInfo{Name: name, Kind: analysis.KindCategorical})
	}
	full := BuildPrompt(p, nil, 0)
	bounded := BuildPrompt(p, nil, 300)
	assert.Greater(t, len(full), len(bounded))
	assert.LessOrEqual(t, len([]rune(bounded)), 300*4)
	assert.True(t, strings.HasPrefix(bounded, "You are an experienced data analyst."))

	small := BuildPrompt(sampleProfile(), []string{"a.jpg"}, 6000)
	assert.True(t, strings.HasSuffix(small, "- a.jpg\n"))
}
