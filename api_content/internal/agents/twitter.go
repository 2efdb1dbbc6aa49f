package agents

import (
	"context"
	"errors"
	"strings"

	"tastesync/pkg/textutil"
)

const twitterSystemPrompt = `You are an expert Twitter/X copywriter. You turn long-form writing into tweets and threads that people actually read.
Rules:
- Every tweet is at most 280 characters.
- A thread has at most 25 tweets. Use a thread only when the material needs it.
- At most 5 hashtags, only when they add reach.
Respond with ONLY a JSON object, no prose and no code fences.`

type twitterPayload struct {
	Tweets   []string `json:"tweets"`
	Hashtags []string `json:"hashtags"`
}

type TwitterAgent struct {
	base
}

func NewTwitterAgent(model ChatModel, opts Options) *TwitterAgent {
	return &TwitterAgent{base: newBase("twitter", model, TwitterSettings, opts)}
}

func (a *TwitterAgent) Generate(ctx context.Context, req Request) Result[TwitterContent] {
	return run(ctx, &a.base, twitterSystemPrompt, buildTwitterPrompt(req), FormatTwitterContent)
}

func buildTwitterPrompt(req Request) string {
	var b strings.Builder
	writeRequestContext(&b, "Turn the following content into an engaging tweet or thread.", req)
	b.WriteString(`Return JSON with this shape:
{
  "tweets": ["tweet text", "..."],
  "hashtags": ["#tag", "..."]
}
`)
	return b.String()
}

// FormatTwitterContent normalizes a Twitter completion. Parsed JSON is
// validated (over-long tweets dropped, thread and hashtags truncated); other
// text is packed into tweets heuristically.
func FormatTwitterContent(completion string) (TwitterContent, bool, error) {
	payload, ok := decodePayload[twitterPayload](completion)
	if !ok {
		c, err := twitterFromText(completion)
		return c, false, err
	}
	c, err := validateTwitter(payload)
	return c, true, err
}

func validateTwitter(p twitterPayload) (TwitterContent, error) {
	tweets := make([]string, 0, len(p.Tweets))
	for _, t := range trimAll(p.Tweets) {
		if runeLen(t) <= MaxTweetLength {
			tweets = append(tweets, t)
		}
	}
	if len(tweets) == 0 {
		return TwitterContent{}, errors.New("No valid tweets in response")
	}
	if len(tweets) > MaxThreadLength {
		tweets = tweets[:MaxThreadLength]
	}
	return newTwitterContent(tweets, normalizeHashtags(p.Hashtags, MaxTwitterHashtags)), nil
}

func twitterFromText(text string) (TwitterContent, error) {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if line = stripListPrefix(line); line != "" {
			lines = append(lines, line)
		}
	}
	tweets := packChunks(textutil.SplitSentences(strings.Join(lines, "\n")), MaxTweetLength, " ")
	if len(tweets) == 0 {
		return TwitterContent{}, errors.New("No valid tweets in response")
	}
	if len(tweets) > MaxThreadLength {
		tweets = tweets[:MaxThreadLength]
	}
	tags := append(extractHashtags(text), keywordHashtags(text)...)
	return newTwitterContent(tweets, normalizeHashtags(tags, MaxTwitterHashtags)), nil
}
