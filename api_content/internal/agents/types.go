package agents

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"tastesync/pkg/llm"
)

type Platform string

const (
	PlatformTwitter  Platform = "twitter"
	PlatformLinkedIn Platform = "linkedin"
	PlatformEmail    Platform = "email"
)

// Platforms lists every supported target in routing order.
var Platforms = []Platform{PlatformTwitter, PlatformLinkedIn, PlatformEmail}

// ParsePlatform accepts the canonical names plus "x" as an alias for twitter.
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case PlatformTwitter, PlatformLinkedIn, PlatformEmail:
		return p, nil
	case "x":
		return PlatformTwitter, nil
	default:
		return "", fmt.Errorf("unsupported platform %q", s)
	}
}

// Request is the per-call input shared by every agent.
type Request struct {
	SourceText         string
	Tone               string
	CustomInstructions string
	TargetAudience     string
}

// Result is what an agent hands back to its caller. Failures never carry tokens.
type Result[T any] struct {
	Success    bool   `json:"success"`
	Data       *T     `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	TokensUsed int    `json:"tokensUsed"`

	// Usage and Model describe the completion for billing.
	Usage llm.Usage `json:"-"`
	Model string    `json:"-"`
}

func succeed[T any](data T, tokens int) Result[T] {
	return Result[T]{Success: true, Data: &data, TokensUsed: tokens}
}

func fail[T any](err error) Result[T] {
	return Result[T]{Success: false, Error: err.Error()}
}

// Platform caps, measured in runes.
const (
	MaxTweetLength       = 280
	MaxThreadLength      = 25
	MaxTwitterHashtags   = 5
	MaxLinkedInPost      = 3000
	MaxSlideLength       = 1200
	MaxSlides            = 10
	MaxLinkedInHashtags  = 10
	MaxSubjectLength     = 50
	MaxPreheaderLength   = 100
	MaxEmailBodyLength   = 10000
	wordsPerMinute       = 200
	maxAnalysisListItems = 10
)

// TwitterContent is a tweet or thread. Counts are derived from the tweets and
// cannot be set independently.
type TwitterContent struct {
	tweets   []string
	hashtags []string
}

func newTwitterContent(tweets, hashtags []string) TwitterContent {
	return TwitterContent{tweets: slices.Clone(tweets), hashtags: slices.Clone(hashtags)}
}

func (c TwitterContent) Tweets() []string   { return slices.Clone(c.tweets) }
func (c TwitterContent) Hashtags() []string { return slices.Clone(c.hashtags) }
func (c TwitterContent) Thread() bool       { return len(c.tweets) > 1 }
func (c TwitterContent) TweetCount() int    { return len(c.tweets) }

func (c TwitterContent) CharacterCount() int {
	n := 0
	for _, t := range c.tweets {
		n += runeLen(t)
	}
	return n
}

type twitterJSON struct {
	Tweets         []string `json:"tweets"`
	Thread         bool     `json:"thread"`
	Hashtags       []string `json:"hashtags"`
	CharacterCount int      `json:"characterCount"`
	TweetCount     int      `json:"tweetCount"`
}

func (c TwitterContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(twitterJSON{
		Tweets:         nonNil(c.tweets),
		Thread:         c.Thread(),
		Hashtags:       nonNil(c.hashtags),
		CharacterCount: c.CharacterCount(),
		TweetCount:     c.TweetCount(),
	})
}

// UnmarshalJSON ignores the derived fields and recomputes them.
func (c *TwitterContent) UnmarshalJSON(b []byte) error {
	var v twitterJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*c = newTwitterContent(v.Tweets, v.Hashtags)
	return nil
}

type LinkedInContent struct {
	post     string
	carousel []string
	hashtags []string
}

func newLinkedInContent(post string, carousel, hashtags []string) LinkedInContent {
	return LinkedInContent{post: post, carousel: slices.Clone(carousel), hashtags: slices.Clone(hashtags)}
}

func (c LinkedInContent) Post() string        { return c.post }
func (c LinkedInContent) Carousel() []string  { return slices.Clone(c.carousel) }
func (c LinkedInContent) Hashtags() []string  { return slices.Clone(c.hashtags) }
func (c LinkedInContent) CharacterCount() int { return runeLen(c.post) }
func (c LinkedInContent) SlideCount() int     { return len(c.carousel) }
func (c LinkedInContent) HasCarousel() bool   { return len(c.carousel) > 0 }

type linkedInJSON struct {
	Post           string   `json:"post"`
	Carousel       []string `json:"carousel,omitempty"`
	Hashtags       []string `json:"hashtags"`
	CharacterCount int      `json:"characterCount"`
	SlideCount     int      `json:"slideCount"`
	HasCarousel    bool     `json:"hasCarousel"`
}

func (c LinkedInContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(linkedInJSON{
		Post:           c.post,
		Carousel:       c.carousel,
		Hashtags:       nonNil(c.hashtags),
		CharacterCount: c.CharacterCount(),
		SlideCount:     c.SlideCount(),
		HasCarousel:    c.HasCarousel(),
	})
}

func (c *LinkedInContent) UnmarshalJSON(b []byte) error {
	var v linkedInJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*c = newLinkedInContent(v.Post, v.Carousel, v.Hashtags)
	return nil
}

type EmailContent struct {
	subject   string
	body      string
	preheader string
}

func newEmailContent(subject, body, preheader string) EmailContent {
	return EmailContent{subject: subject, body: body, preheader: preheader}
}

func (c EmailContent) Subject() string   { return c.subject }
func (c EmailContent) Body() string      { return c.body }
func (c EmailContent) Preheader() string { return c.preheader }
func (c EmailContent) WordCount() int    { return len(strings.Fields(stripTags(c.body))) }

// EstimatedReadTime is in whole minutes, rounded up.
func (c EmailContent) EstimatedReadTime() int { return readingTime(c.WordCount()) }

type emailJSON struct {
	Subject           string `json:"subject"`
	Body              string `json:"body"`
	Preheader         string `json:"preheader,omitempty"`
	WordCount         int    `json:"wordCount"`
	EstimatedReadTime int    `json:"estimatedReadTime"`
}

func (c EmailContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(emailJSON{
		Subject:           c.subject,
		Body:              c.body,
		Preheader:         c.preheader,
		WordCount:         c.WordCount(),
		EstimatedReadTime: c.EstimatedReadTime(),
	})
}

func (c *EmailContent) UnmarshalJSON(b []byte) error {
	var v emailJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*c = newEmailContent(v.Subject, v.Body, v.Preheader)
	return nil
}

// PlatformContent holds exactly one platform's content. It encodes as the
// inner content object.
type PlatformContent struct {
	Platform Platform
	Twitter  *TwitterContent
	LinkedIn *LinkedInContent
	Email    *EmailContent
}

func (c PlatformContent) MarshalJSON() ([]byte, error) {
	switch c.Platform {
	case PlatformTwitter:
		return json.Marshal(c.Twitter)
	case PlatformLinkedIn:
		return json.Marshal(c.LinkedIn)
	case PlatformEmail:
		return json.Marshal(c.Email)
	default:
		return nil, fmt.Errorf("unsupported platform %q", c.Platform)
	}
}

type PlatformScore struct {
	Platform      Platform `json:"platform"`
	Score         int      `json:"score"`
	Reasons       []string `json:"reasons"`
	Optimizations []string `json:"optimizations"`
}

type RecommendationAnalytics struct {
	ContentType    string `json:"contentType"`
	TargetAudience string `json:"targetAudience"`
	Tone           string `json:"tone"`
	Engagement     string `json:"engagement"`
}

type PlatformRecommendation struct {
	Primary   PlatformScore           `json:"primary"`
	Secondary []PlatformScore         `json:"secondary"`
	Analytics RecommendationAnalytics `json:"analytics"`
}

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

type ContentAnalysis struct {
	Summary          string    `json:"summary"`
	KeyPoints        []string  `json:"keyPoints"`
	Topics           []string  `json:"topics"`
	Tone             string    `json:"tone"`
	TargetAudience   string    `json:"targetAudience"`
	ContentType      string    `json:"contentType"`
	Sentiment        Sentiment `json:"sentiment"`
	ReadabilityScore int       `json:"readabilityScore"`
	WordCount        int       `json:"wordCount"`
	ReadingTime      int       `json:"readingTime"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
