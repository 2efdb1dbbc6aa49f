package store

import (
	"encoding/json"
	"time"
)

type User struct {
	ID        string    `json:"id"`
	ClerkID   string    `json:"clerkId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Credits   int64     `json:"credits"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Document struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	WordCount int       `json:"wordCount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type GeneratedContent struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	DocumentID *string         `json:"documentId,omitempty"`
	Platform   string          `json:"platform"`
	Tone       string          `json:"tone"`
	Content    json.RawMessage `json:"content"`
	TokensUsed int             `json:"tokensUsed"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type TokenUsage struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	Model            string    `json:"model"`
	Operation        string    `json:"operation"`
	PromptTokens     int       `json:"promptTokens"`
	CompletionTokens int       `json:"completionTokens"`
	TotalTokens      int       `json:"totalTokens"`
	CreatedAt        time.Time `json:"createdAt"`
}

type UsageBucket struct {
	Tokens   int64 `json:"tokens"`
	Requests int64 `json:"requests"`
}

type UsageSummary struct {
	TotalTokens   int64                  `json:"totalTokens"`
	TotalRequests int64                  `json:"totalRequests"`
	ByModel       map[string]UsageBucket `json:"byModel"`
	ByOperation   map[string]UsageBucket `json:"byOperation"`
}

// Preferences are a user's saved content preferences. Absent fields mean "no
// preference", not a default.
type Preferences struct {
	PreferredTone      string   `json:"preferredTone,omitempty"`
	PreferredPlatforms []string `json:"preferredPlatforms,omitempty"`
	Topics             []string `json:"topics,omitempty"`
	TargetAudience     string   `json:"targetAudience,omitempty"`
	ContentLength      string   `json:"contentLength,omitempty"`
	Notes              string   `json:"notes,omitempty"`
}

type ContentPattern struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	Platform        string    `json:"platform"`
	ContentType     string    `json:"contentType"`
	Structure       string    `json:"structure"`
	Summary         string    `json:"summary,omitempty"`
	EngagementScore float64   `json:"engagementScore"`
	Successful      bool      `json:"successful"`
	CreatedAt       time.Time `json:"createdAt"`
}

type Feedback struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ContentID *string   `json:"contentId,omitempty"`
	Rating    int       `json:"rating"`
	Comments  string    `json:"comments,omitempty"`
	Platform  string    `json:"platform,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type FeedbackSummary struct {
	Count         int64              `json:"count"`
	AverageRating float64            `json:"averageRating"`
	ByPlatform    map[string]float64 `json:"byPlatform"`
}
