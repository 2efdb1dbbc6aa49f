package agents

import (
	"math/rand/v2"
	"strings"
)

var tweetEngagement = []string{
	"What do you think?",
	"Agree or disagree?",
	"Save this for later.",
	"Thoughts? 👇",
	"Share if this helped.",
}

var linkedInEngagement = []string{
	"What has your experience been?",
	"I'd love to hear your perspective in the comments.",
	"Which of these resonates with you most?",
	"Agree? Disagree? Let me know below.",
	"If this was useful, share it with your network.",
}

// OptimizeTweet appends a randomly chosen call to action when it still fits
// in a tweet. The result depends on rng.
func OptimizeTweet(tweet string, rng *rand.Rand) string {
	return appendEngagement(tweet, tweetEngagement, " ", MaxTweetLength, rng)
}

// AddEngagementElements appends a randomly chosen closing question to a
// LinkedIn post when it still fits. The result depends on rng.
func AddEngagementElements(post string, rng *rand.Rand) string {
	return appendEngagement(post, linkedInEngagement, "\n\n", MaxLinkedInPost, rng)
}

func appendEngagement(text string, options []string, sep string, limit int, rng *rand.Rand) string {
	text = strings.TrimSpace(text)
	if text == "" || rng == nil {
		return text
	}
	pick := options[rng.IntN(len(options))]
	if strings.Contains(text, pick) {
		return text
	}
	if candidate := text + sep + pick; runeLen(candidate) <= limit {
		return candidate
	}
	return text
}

// Optimize applies the engagement helpers to generated content. Only the last
// tweet of a thread and the LinkedIn post body are touched; email is returned
// unchanged.
func Optimize(c PlatformContent, rng *rand.Rand) PlatformContent {
	switch {
	case c.Twitter != nil:
		tweets := c.Twitter.Tweets()
		if n := len(tweets); n > 0 {
			tweets[n-1] = OptimizeTweet(tweets[n-1], rng)
		}
		tc := newTwitterContent(tweets, c.Twitter.Hashtags())
		c.Twitter = &tc
	case c.LinkedIn != nil:
		lc := newLinkedInContent(AddEngagementElements(c.LinkedIn.Post(), rng), c.LinkedIn.Carousel(), c.LinkedIn.Hashtags())
		c.LinkedIn = &lc
	}
	return c
}
