package research

import (
	"context"
	"fmt"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"tastesync/pkg/search"
)

// factCheckDomains are the hosts whose presence in results marks a claim as
// verified.
var factCheckDomains = []string{
	"snopes.com",
	"factcheck.org",
	"politifact.com",
	"reuters.com",
	"apnews.com",
	"fullfact.org",
}

type Verification struct {
	Claim      string   `json:"claim"`
	Verified   bool     `json:"verified"`
	Confidence float64  `json:"confidence"`
	Sources    []string `json:"sources"`
}

// VerifyInformation searches each claim and counts results from fact-checking
// hosts. Confidence is 0.3 per match, capped at 1.
func (s *Service) VerifyInformation(ctx context.Context, claims []string) ([]Verification, error) {
	out := make([]Verification, len(claims))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(researchParallelism)
	for i, claim := range claims {
		g.Go(func() error {
			claim = strings.TrimSpace(claim)
			resp, err := s.Search(gctx, SearchRequest{
				Query:       "fact check: " + claim,
				MaxResults:  defaultMaxResults,
				SearchDepth: "advanced",
			})
			if err != nil {
				return err
			}
			out[i] = verification(claim, resp.Results)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("verify information: %w", err)
	}
	return out, nil
}

func verification(claim string, results []search.Result) Verification {
	v := Verification{Claim: claim, Sources: []string{}}
	for _, r := range results {
		if isFactCheckHost(search.Host(r.URL)) {
			v.Sources = append(v.Sources, r.URL)
		}
	}
	v.Verified = len(v.Sources) > 0
	v.Confidence = math.Min(float64(len(v.Sources))*0.3, 1)
	return v
}

func isFactCheckHost(host string) bool {
	for _, d := range factCheckDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
