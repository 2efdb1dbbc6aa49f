package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tastesync/pkg/llm"
	"tastesync/pkg/logging"
)

// ChatModel is the completion capability every agent is built on.
type ChatModel = llm.ChatModel

// Settings are the fixed sampling parameters of one agent.
type Settings struct {
	Temperature float32
	MaxTokens   int
}

var (
	TwitterSettings  = Settings{Temperature: 0.7, MaxTokens: 1200}
	LinkedInSettings = Settings{Temperature: 0.7, MaxTokens: 2000}
	EmailSettings    = Settings{Temperature: 0.5, MaxTokens: 2000}
	AnalystSettings  = Settings{Temperature: 0.3, MaxTokens: 1500}
	RouterSettings   = Settings{Temperature: 0.4, MaxTokens: 1000}
)

// Parse outcomes recorded per agent run.
const (
	outcomeJSON      = "json"
	outcomeHeuristic = "heuristic"
	outcomeError     = "error"
)

// Metrics is optional; a nil *Metrics records nothing.
type Metrics struct {
	Runs       *prometheus.CounterVec   // agent, outcome
	Tokens     *prometheus.CounterVec   // agent
	LLMLatency *prometheus.HistogramVec // agent
}

func (m *Metrics) observe(agent, outcome string, tokens int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if m.Runs != nil {
		m.Runs.WithLabelValues(agent, outcome).Inc()
	}
	if m.Tokens != nil && tokens > 0 {
		m.Tokens.WithLabelValues(agent).Add(float64(tokens))
	}
	if m.LLMLatency != nil && elapsed > 0 {
		m.LLMLatency.WithLabelValues(agent).Observe(elapsed.Seconds())
	}
}

// base is embedded by every agent.
type base struct {
	name     string
	model    llm.ChatModel
	settings Settings
	logger   logging.Logger
	metrics  *Metrics
}

// formatFunc turns a completion into T. fromJSON reports which path ran.
type formatFunc[T any] func(completion string) (out T, fromJSON bool, err error)

// run performs the single model call and normalization shared by all agents.
// Any error, transport or validation, becomes a failed Result with no tokens.
func run[T any](ctx context.Context, a *base, system, user string, format formatFunc[T]) Result[T] {
	if a.model == nil {
		return fail[T](errors.New("chat model not configured"))
	}

	start := time.Now()
	resp, err := a.model.Chat(ctx, llm.ChatRequest{
		Messages:    []llm.Message{llm.System(system), llm.User(user)},
		Temperature: a.settings.Temperature,
		MaxTokens:   a.settings.MaxTokens,
	})
	elapsed := time.Since(start)
	if err != nil {
		a.metrics.observe(a.name, outcomeError, 0, elapsed)
		a.logger.WithError(err).WithField("agent", a.name).Warn("Chat completion failed")
		return fail[T](fmt.Errorf("%s generation failed: %w", a.name, err))
	}

	out, fromJSON, err := format(resp.Content)
	if err != nil {
		a.metrics.observe(a.name, outcomeError, 0, elapsed)
		a.logger.WithError(err).WithField("agent", a.name).Warn("Completion rejected")
		return fail[T](err)
	}

	tokens := tokensUsed(resp.Usage)
	outcome := outcomeJSON
	if !fromJSON {
		outcome = outcomeHeuristic
		a.logger.WithField("agent", a.name).Debug("Completion was not JSON, used heuristic reconstruction")
	}
	a.metrics.observe(a.name, outcome, tokens, elapsed)
	r := succeed(out, tokens)
	r.Usage, r.Model = resp.Usage, resp.Model
	return r
}

// Options carries the optional collaborators of an agent.
type Options struct {
	Logger  logging.Logger
	Metrics *Metrics
}

func newBase(name string, model llm.ChatModel, settings Settings, opts Options) base {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger()
	}
	return base{name: name, model: model, settings: settings, logger: logger, metrics: opts.Metrics}
}

func tokensUsed(u llm.Usage) int {
	if u.TotalTokens > 0 {
		return u.TotalTokens
	}
	return u.PromptTokens + u.CompletionTokens
}
