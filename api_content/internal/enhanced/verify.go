package enhanced

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"tastesync/api_content/internal/memory"
	"tastesync/api_content/internal/research"
	"tastesync/pkg/textutil"
)

const maxClaims = 5

var claimMarkers = []string{
	"according to", "study", "studies", "survey", "research shows", "report", "percent", "data shows", "statistics",
}

type ClaimsReport struct {
	Claims            []research.Verification `json:"claims"`
	VerifiedCount     int                     `json:"verifiedCount"`
	OverallConfidence float64                 `json:"overallConfidence"`
}

// VerifyContentClaims pulls checkable claims out of content and checks each
// one against fact-checking sources. The outcome is also remembered as an
// insight when possible.
func (s *Service) VerifyContentClaims(ctx context.Context, content string, mc memory.Context) (ClaimsReport, error) {
	claims := extractClaims(content)
	report := ClaimsReport{Claims: []research.Verification{}}
	if len(claims) == 0 {
		return report, nil
	}

	results, err := s.research.VerifyInformation(ctx, claims)
	if err != nil {
		return ClaimsReport{}, fmt.Errorf("verify content claims: %w", err)
	}
	report.Claims = results
	var total float64
	for _, r := range results {
		if r.Verified {
			report.VerifiedCount++
		}
		total += r.Confidence
	}
	if len(results) > 0 {
		report.OverallConfidence = total / float64(len(results))
	}

	text := fmt.Sprintf("Verified %d of %d claims (confidence %.2f)", report.VerifiedCount, len(results), report.OverallConfidence)
	if err := s.memory.StoreInsight(ctx, memoryContext(memory.AnonymousUser, mc), text, map[string]any{"source": "verification"}); err != nil {
		s.logger.WithError(err).WithField("user_id", mc.UserID).Warn("Failed to store verification insight")
	}
	return report, nil
}

// extractClaims keeps sentences that carry a figure or a sourcing phrase.
func extractClaims(content string) []string {
	var claims []string
	for _, sentence := range textutil.SplitSentences(content) {
		if len(claims) == maxClaims {
			break
		}
		lower := strings.ToLower(sentence)
		if strings.IndexFunc(sentence, unicode.IsDigit) >= 0 || containsAny(lower, claimMarkers) {
			claims = append(claims, sentence)
		}
	}
	return claims
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
