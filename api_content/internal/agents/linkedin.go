package agents

import (
	"context"
	"errors"
	"strings"
)

const linkedInSystemPrompt = `You are a LinkedIn content strategist. You write posts that open with a strong hook, deliver practical insight and end with a question that invites discussion.
Rules:
- The post is at most 3000 characters.
- An optional carousel has at most 10 slides of at most 1200 characters each.
- At most 10 hashtags.
Respond with ONLY a JSON object, no prose and no code fences.`

type linkedInPayload struct {
	Post     string   `json:"post"`
	Carousel []string `json:"carousel"`
	Hashtags []string `json:"hashtags"`
}

type LinkedInAgent struct {
	base
}

func NewLinkedInAgent(model ChatModel, opts Options) *LinkedInAgent {
	return &LinkedInAgent{base: newBase("linkedin", model, LinkedInSettings, opts)}
}

func (a *LinkedInAgent) Generate(ctx context.Context, req Request) Result[LinkedInContent] {
	return run(ctx, &a.base, linkedInSystemPrompt, buildLinkedInPrompt(req), FormatLinkedInContent)
}

func buildLinkedInPrompt(req Request) string {
	var b strings.Builder
	writeRequestContext(&b, "Turn the following content into a LinkedIn post, adding a carousel only if the material benefits from one.", req)
	b.WriteString(`Return JSON with this shape:
{
  "post": "post text",
  "carousel": ["slide text", "..."],
  "hashtags": ["#tag", "..."]
}
`)
	return b.String()
}

// FormatLinkedInContent rejects an empty or over-long post and drops
// over-long slides.
func FormatLinkedInContent(completion string) (LinkedInContent, bool, error) {
	payload, ok := decodePayload[linkedInPayload](completion)
	if !ok {
		c, err := linkedInFromText(completion)
		return c, false, err
	}
	c, err := validateLinkedIn(payload)
	return c, true, err
}

func validateLinkedIn(p linkedInPayload) (LinkedInContent, error) {
	post := strings.TrimSpace(p.Post)
	if post == "" {
		return LinkedInContent{}, errors.New("Post is empty")
	}
	if runeLen(post) > MaxLinkedInPost {
		return LinkedInContent{}, errors.New("Post exceeds maximum length")
	}
	var slides []string
	for _, s := range trimAll(p.Carousel) {
		if runeLen(s) <= MaxSlideLength {
			slides = append(slides, s)
		}
	}
	if len(slides) > MaxSlides {
		slides = slides[:MaxSlides]
	}
	return newLinkedInContent(post, slides, normalizeHashtags(p.Hashtags, MaxLinkedInHashtags)), nil
}

// linkedInFromText fills the post with leading paragraphs and moves the rest
// into carousel slides.
func linkedInFromText(text string) (LinkedInContent, error) {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return LinkedInContent{}, errors.New("Post is empty")
	}

	post := ""
	i := 0
	for ; i < len(paragraphs); i++ {
		p := paragraphs[i]
		if post == "" && runeLen(p) > MaxLinkedInPost {
			post = truncateAtWord(p, MaxLinkedInPost)
			i++
			break
		}
		candidate := p
		if post != "" {
			candidate = post + "\n\n" + p
		}
		if runeLen(candidate) > MaxLinkedInPost {
			break
		}
		post = candidate
	}

	slides := packChunks(paragraphs[i:], MaxSlideLength, "\n\n")
	if len(slides) > MaxSlides {
		slides = slides[:MaxSlides]
	}
	tags := append(extractHashtags(text), keywordHashtags(text)...)
	return newLinkedInContent(post, slides, normalizeHashtags(tags, MaxLinkedInHashtags)), nil
}
