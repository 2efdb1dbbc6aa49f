package enhanced

import (
	"context"

	"tastesync/api_content/internal/store"
)

// successRating is the lowest rating that marks a pattern as successful.
const successRating = 4

type FeedbackRequest struct {
	ContentID   *string `json:"contentId,omitempty"`
	Rating      int     `json:"rating"`
	Comments    string  `json:"comments,omitempty"`
	Platform    string  `json:"platform,omitempty"`
	ContentType string  `json:"contentType,omitempty"`
	Structure   string  `json:"structure,omitempty"`
}

type FeedbackResult struct {
	Feedback store.Feedback        `json:"feedback"`
	Pattern  *store.ContentPattern `json:"pattern,omitempty"`
}

// StoreFeedback saves the rating and, when the caller describes the content's
// structure, records it as a pattern so later recommendations can reuse it.
func (s *Service) StoreFeedback(ctx context.Context, userID string, req FeedbackRequest) (FeedbackResult, error) {
	saved, err := s.memory.StoreFeedback(ctx, store.Feedback{
		UserID:    userID,
		ContentID: req.ContentID,
		Rating:    req.Rating,
		Comments:  req.Comments,
		Platform:  req.Platform,
	})
	if err != nil {
		return FeedbackResult{}, err
	}
	out := FeedbackResult{Feedback: saved}

	if req.Structure == "" || req.Platform == "" {
		return out, nil
	}
	p, err := s.memory.StoreContentPattern(ctx, store.ContentPattern{
		UserID:          userID,
		Platform:        req.Platform,
		ContentType:     req.ContentType,
		Structure:       req.Structure,
		Summary:         req.Comments,
		EngagementScore: float64(req.Rating) / 5,
		Successful:      req.Rating >= successRating,
	})
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to record content pattern from feedback")
		return out, nil
	}
	out.Pattern = &p
	return out, nil
}
