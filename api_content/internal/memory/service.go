// Package memory keeps per-user personalization state. Structured values
// (preferences, patterns, feedback) live in Postgres; Mem0 only receives a
// prose rendering tagged with metadata and is searched as opaque text.
package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tastesync/api_content/internal/store"
	"tastesync/pkg/logging"
	"tastesync/pkg/mem0"
)

const (
	AnonymousUser = "anonymous"

	metaType           = "type"
	metaPlatform       = "platform"
	metaSessionID      = "session_id"
	metaConversationID = "conversation_id"

	kindInteraction  = "interaction"
	kindPreferences  = "preferences"
	kindPattern      = "pattern"
	kindConversation = "conversation"
	kindFeedback     = "feedback"
	kindInsight      = "insight"
)

var (
	ErrUserRequired  = errors.New("memory: user id required")
	ErrInvalidRating = errors.New("memory: rating must be between 1 and 5")
)

// Remote is the opaque text memory backend. *mem0.Client satisfies it.
type Remote interface {
	Add(ctx context.Context, messages []mem0.Message, opts mem0.AddOptions) error
	Search(ctx context.Context, query string, opts mem0.SearchOptions) ([]mem0.Memory, error)
}

// Store is the structured side, implemented by *store.Store.
type Store interface {
	UpsertPreferences(ctx context.Context, userID string, p store.Preferences) error
	GetPreferences(ctx context.Context, userID string) (store.Preferences, bool, error)
	InsertPattern(ctx context.Context, p store.ContentPattern) (store.ContentPattern, error)
	ListSuccessfulPatterns(ctx context.Context, userID, platform string, limit int) ([]store.ContentPattern, error)
	InsertFeedback(ctx context.Context, f store.Feedback) (store.Feedback, error)
	FeedbackSummary(ctx context.Context, userID string) (store.FeedbackSummary, error)
}

// Context identifies the principal a memory belongs to.
type Context struct {
	UserID         string `json:"userId"`
	SessionID      string `json:"sessionId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	AgentID        string `json:"agentId,omitempty"`
}

func (c Context) user() string {
	if strings.TrimSpace(c.UserID) == "" {
		return AnonymousUser
	}
	return c.UserID
}

func (c Context) addOptions(kind string, extra map[string]any) mem0.AddOptions {
	meta := map[string]any{metaType: kind}
	if c.SessionID != "" {
		meta[metaSessionID] = c.SessionID
	}
	if c.ConversationID != "" {
		meta[metaConversationID] = c.ConversationID
	}
	for k, v := range extra {
		meta[k] = v
	}
	return mem0.AddOptions{
		UserID:   c.user(),
		AgentID:  c.AgentID,
		RunID:    c.SessionID,
		Metadata: meta,
	}
}

type Service struct {
	remote Remote
	store  Store
	logger logging.Logger
}

// NewService wires the memory service. A nil remote disables Mem0: writes to
// it become no-ops and searches return nothing.
func NewService(remote Remote, st Store, logger logging.Logger) *Service {
	return &Service{remote: remote, store: st, logger: logger}
}

// RemoteEnabled reports whether a Mem0 backend is configured.
func (s *Service) RemoteEnabled() bool { return s.remote != nil }

func (s *Service) add(ctx context.Context, mc Context, kind string, messages []mem0.Message, extra map[string]any) error {
	if s.remote == nil {
		return nil
	}
	if err := s.remote.Add(ctx, messages, mc.addOptions(kind, extra)); err != nil {
		return fmt.Errorf("store %s memory: %w", kind, err)
	}
	return nil
}

// mirror writes a prose copy of structured data. The structured write has
// already succeeded, so a failure here is only logged.
func (s *Service) mirror(ctx context.Context, userID, kind, text string, extra map[string]any) {
	err := s.add(ctx, Context{UserID: userID}, kind, []mem0.Message{{Role: "user", Content: text}}, extra)
	if err != nil {
		s.logger.WithError(err).WithFields(logging.Fields{
			"user_id": userID,
			"kind":    kind,
		}).Warn("Failed to mirror memory to Mem0")
	}
}

// Interaction is one prompt/response exchange.
type Interaction struct {
	Prompt   string
	Response string
	Platform string
	Metadata map[string]any
}

func (s *Service) StoreInteraction(ctx context.Context, mc Context, in Interaction) error {
	extra := map[string]any{}
	for k, v := range in.Metadata {
		extra[k] = v
	}
	if in.Platform != "" {
		extra[metaPlatform] = in.Platform
	}
	return s.add(ctx, mc, kindInteraction, []mem0.Message{
		{Role: "user", Content: in.Prompt},
		{Role: "assistant", Content: in.Response},
	}, extra)
}

// StoreInsight records a free-text observation, e.g. a verification outcome.
func (s *Service) StoreInsight(ctx context.Context, mc Context, text string, extra map[string]any) error {
	return s.add(ctx, mc, kindInsight, []mem0.Message{{Role: "assistant", Content: text}}, extra)
}

func (s *Service) StoreUserPreferences(ctx context.Context, userID string, p store.Preferences) error {
	if userID == "" || userID == AnonymousUser {
		return ErrUserRequired
	}
	if err := s.store.UpsertPreferences(ctx, userID, p); err != nil {
		return err
	}
	s.mirror(ctx, userID, kindPreferences, describePreferences(p), nil)
	return nil
}

// GetUserPreferences reports found=false when nothing was saved; absent
// preferences are never filled with defaults.
func (s *Service) GetUserPreferences(ctx context.Context, userID string) (store.Preferences, bool, error) {
	if userID == "" || userID == AnonymousUser {
		return store.Preferences{}, false, nil
	}
	return s.store.GetPreferences(ctx, userID)
}

func (s *Service) StoreContentPattern(ctx context.Context, p store.ContentPattern) (store.ContentPattern, error) {
	if p.UserID == "" || p.UserID == AnonymousUser {
		return store.ContentPattern{}, ErrUserRequired
	}
	saved, err := s.store.InsertPattern(ctx, p)
	if err != nil {
		return store.ContentPattern{}, err
	}
	s.mirror(ctx, p.UserID, kindPattern, describePattern(saved), map[string]any{
		metaPlatform: saved.Platform,
		"successful": saved.Successful,
	})
	return saved, nil
}

func (s *Service) GetSuccessfulPatterns(ctx context.Context, userID, platform string, limit int) ([]store.ContentPattern, error) {
	if userID == "" || userID == AnonymousUser {
		return []store.ContentPattern{}, nil
	}
	return s.store.ListSuccessfulPatterns(ctx, userID, platform, limit)
}

// Turn is one message of a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (s *Service) StoreConversation(ctx context.Context, mc Context, turns []Turn) error {
	if len(turns) == 0 {
		return nil
	}
	messages := make([]mem0.Message, 0, len(turns))
	for _, t := range turns {
		role := t.Role
		if role == "" {
			role = "user"
		}
		messages = append(messages, mem0.Message{Role: role, Content: t.Content})
	}
	return s.add(ctx, mc, kindConversation, messages, map[string]any{"turns": len(turns)})
}

// ConversationMemory is a conversation memory as Mem0 summarized it.
type ConversationMemory struct {
	ID             string  `json:"id"`
	ConversationID string  `json:"conversationId,omitempty"`
	SessionID      string  `json:"sessionId,omitempty"`
	Summary        string  `json:"summary"`
	Score          float64 `json:"score,omitempty"`
	CreatedAt      string  `json:"createdAt,omitempty"`
}

// GetConversationHistory selects conversation memories by metadata tag. When
// mc names a conversation only that conversation is returned.
func (s *Service) GetConversationHistory(ctx context.Context, mc Context, limit int) []ConversationMemory {
	if limit <= 0 {
		limit = 10
	}
	hits := s.search(ctx, mc.user(), "conversation history", limit*2)
	out := []ConversationMemory{}
	for _, m := range hits {
		if m.MetaString(metaType) != kindConversation {
			continue
		}
		if mc.ConversationID != "" && m.MetaString(metaConversationID) != mc.ConversationID {
			continue
		}
		out = append(out, ConversationMemory{
			ID:             m.ID,
			ConversationID: m.MetaString(metaConversationID),
			SessionID:      m.MetaString(metaSessionID),
			Summary:        m.Memory,
			Score:          m.Score,
			CreatedAt:      m.CreatedAt,
		})
		if len(out) == limit {
			break
		}
	}
	return out
}

// SearchMemories never fails: remote errors are logged and yield no hits.
func (s *Service) SearchMemories(ctx context.Context, userID, query string, limit int) []mem0.Memory {
	if userID == "" {
		userID = AnonymousUser
	}
	return s.search(ctx, userID, query, limit)
}

func (s *Service) search(ctx context.Context, userID, query string, limit int) []mem0.Memory {
	if s.remote == nil || strings.TrimSpace(query) == "" {
		return []mem0.Memory{}
	}
	hits, err := s.remote.Search(ctx, query, mem0.SearchOptions{UserID: userID, Limit: limit})
	if err != nil {
		s.logger.WithError(err).WithFields(logging.Fields{
			"user_id": userID,
			"query":   query,
		}).Warn("Memory search failed")
		return []mem0.Memory{}
	}
	if hits == nil {
		return []mem0.Memory{}
	}
	return hits
}

// StoreFeedback saves rated feedback and mirrors a prose copy to Mem0.
func (s *Service) StoreFeedback(ctx context.Context, f store.Feedback) (store.Feedback, error) {
	if f.UserID == "" || f.UserID == AnonymousUser {
		return store.Feedback{}, ErrUserRequired
	}
	if f.Rating < 1 || f.Rating > 5 {
		return store.Feedback{}, fmt.Errorf("%w: got %d", ErrInvalidRating, f.Rating)
	}
	saved, err := s.store.InsertFeedback(ctx, f)
	if err != nil {
		return store.Feedback{}, err
	}
	s.mirror(ctx, f.UserID, kindFeedback, describeFeedback(saved), map[string]any{
		metaPlatform: saved.Platform,
		"rating":     saved.Rating,
	})
	return saved, nil
}

func (s *Service) FeedbackSummary(ctx context.Context, userID string) (store.FeedbackSummary, error) {
	if userID == "" || userID == AnonymousUser {
		return store.FeedbackSummary{ByPlatform: map[string]float64{}}, nil
	}
	return s.store.FeedbackSummary(ctx, userID)
}
