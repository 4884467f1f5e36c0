// Package narrative turns a dataset profile into prose through a remote
// chat-completions model.
package narrative

import (
	"context"
	"time"

	"github.com/Rosh-10/automated-analysis-project/internal/ai"
	"github.com/Rosh-10/automated-analysis-project/internal/analysis"
	"github.com/Rosh-10/automated-analysis-project/internal/logger"
	"github.com/Rosh-10/automated-analysis-project/internal/retry"
)

// FallbackNarrative replaces the model's text when Options.Fallback is set and
// every attempt failed.
const FallbackNarrative = "# Automated Analysis\n\n" +
	"The narrative could not be generated because the language model service was unavailable. " +
	"The computed statistics are saved in profile.json.\n"

// Options configures a Narrator.
type Options struct {
	Model           string
	MaxPromptTokens int
	// MaxResponseTokens caps the completion length; 0 leaves it to the service.
	MaxResponseTokens int
	// Fallback substitutes FallbackNarrative when retries are exhausted.
	Fallback bool
}

// Result is the outcome of a narrative request.
type Result struct {
	Text      string
	Attempts  int
	RequestID string
	Fallback  bool
}

// Narrator submits one prompt per run under a retry policy.
type Narrator struct {
	rt     ai.Runtime
	policy retry.Policy
	opt    Options
	log    logger.Logger
}

// New builds a Narrator. A policy without a classifier retries only what
// ai.IsRetryable accepts.
func New(rt ai.Runtime, policy retry.Policy, opt Options, log logger.Logger) *Narrator {
	if policy.Retryable == nil {
		policy.Retryable = ai.IsRetryable
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Narrator{rt: rt, policy: policy, opt: opt, log: log}
}

// Generate requests a narrative for p. charts are artifact file names the text
// may refer to.
func (n *Narrator) Generate(ctx context.Context, p *analysis.Profile, charts []string) (*Result, error) {
	prompt := BuildPrompt(p, charts, n.opt.MaxPromptTokens)
	req := ai.GenerateRequest{
		Model:     n.opt.Model,
		Messages:  []ai.Message{{Role: "user", Content: prompt}},
		MaxTokens: n.opt.MaxResponseTokens,
	}

	policy := n.policy
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		n.log.Warn("narrative attempt failed, retrying", map[string]interface{}{
			"attempt": attempt,
			"delay":   delay.String(),
			"error":   err,
		})
	}

	var resp *ai.GenerateResponse
	attempts, err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		n.log.Debug("narrative request", map[string]interface{}{"attempt": attempt, "model": req.Model})
		r, err := n.rt.Generate(ctx, req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err == nil {
		n.log.Info("narrative generated", map[string]interface{}{
			"attempts":   attempts,
			"request_id": resp.RequestID,
			"chars":      len(resp.Content()),
		})
		return &Result{Text: resp.Content(), Attempts: attempts, RequestID: resp.RequestID}, nil
	}

	if ai.IsClientError(err) {
		return nil, &ClientError{Attempts: attempts, Err: err}
	}
	terr := &TransportError{Attempts: attempts, Err: err}
	if n.opt.Fallback && ctx.Err() == nil {
		n.log.Warn("narrative unavailable, using fallback text", map[string]interface{}{
			"attempts": attempts,
			"error":    err,
		})
		return &Result{Text: FallbackNarrative, Attempts: attempts, Fallback: true}, nil
	}
	return nil, terr
}
