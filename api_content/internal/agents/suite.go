package agents

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
)

// Suite bundles the five agents behind one dependency so handlers and the
// orchestrator can pick an agent by platform.
type Suite struct {
	Twitter  *TwitterAgent
	LinkedIn *LinkedInAgent
	Email    *EmailAgent
	Analyst  *ContentAnalystAgent
	Router   *PlatformRouterAgent

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewSuite builds every agent over model. rng drives the engagement helpers;
// nil seeds one from the runtime.
func NewSuite(model ChatModel, opts Options, rng *rand.Rand) *Suite {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Suite{
		Twitter:  NewTwitterAgent(model, opts),
		LinkedIn: NewLinkedInAgent(model, opts),
		Email:    NewEmailAgent(model, opts),
		Analyst:  NewContentAnalystAgent(model, opts),
		Router:   NewPlatformRouterAgent(model, opts),
		rng:      rng,
	}
}

// Generate dispatches to the platform's agent.
func (s *Suite) Generate(ctx context.Context, platform Platform, req Request) Result[PlatformContent] {
	switch platform {
	case PlatformTwitter:
		return wrap(s.Twitter.Generate(ctx, req), func(c TwitterContent) PlatformContent {
			return PlatformContent{Platform: platform, Twitter: &c}
		})
	case PlatformLinkedIn:
		return wrap(s.LinkedIn.Generate(ctx, req), func(c LinkedInContent) PlatformContent {
			return PlatformContent{Platform: platform, LinkedIn: &c}
		})
	case PlatformEmail:
		return wrap(s.Email.Generate(ctx, req), func(c EmailContent) PlatformContent {
			return PlatformContent{Platform: platform, Email: &c}
		})
	default:
		return fail[PlatformContent](fmt.Errorf("unsupported platform %q", platform))
	}
}

func (s *Suite) Analyze(ctx context.Context, req Request) Result[ContentAnalysis] {
	return s.Analyst.Analyze(ctx, req)
}

func (s *Suite) SuggestPlatforms(ctx context.Context, req Request) Result[PlatformRecommendation] {
	return s.Router.SuggestPlatforms(ctx, req)
}

// Optimize runs the engagement helpers under the suite's random source.
func (s *Suite) Optimize(c PlatformContent) PlatformContent {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return Optimize(c, s.rng)
}

func wrap[T any](r Result[T], to func(T) PlatformContent) Result[PlatformContent] {
	out := Result[PlatformContent]{
		Success:    r.Success,
		Error:      r.Error,
		TokensUsed: r.TokensUsed,
		Usage:      r.Usage,
		Model:      r.Model,
	}
	if r.Data != nil {
		pc := to(*r.Data)
		out.Data = &pc
	}
	return out
}
