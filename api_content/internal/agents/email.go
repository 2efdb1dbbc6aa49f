package agents

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/yuin/goldmark"

	"tastesync/pkg/textutil"
)

const emailSystemPrompt = `You are an email marketing specialist. You write newsletter emails with a compelling subject line, a short preheader and a clear HTML body.
Rules:
- Subject line is at most 50 characters.
- Preheader is at most 100 characters.
- Body is HTML, at most 10000 characters, using <p>, <h2>, <ul>/<li> and <strong> only.
Respond with ONLY a JSON object, no prose and no code fences.`

var (
	ErrSubjectEmpty   = errors.New("Subject line is empty")
	ErrSubjectTooLong = errors.New("Subject line exceeds maximum length")
	ErrBodyEmpty      = errors.New("Email body is empty")
	ErrBodyTooLong    = errors.New("Email body exceeds maximum length")
)

type emailPayload struct {
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Preheader string `json:"preheader"`
}

type EmailAgent struct {
	base
	md goldmark.Markdown
}

func NewEmailAgent(model ChatModel, opts Options) *EmailAgent {
	return &EmailAgent{base: newBase("email", model, EmailSettings, opts), md: goldmark.New()}
}

func (a *EmailAgent) Generate(ctx context.Context, req Request) Result[EmailContent] {
	return run(ctx, &a.base, emailSystemPrompt, buildEmailPrompt(req), a.format)
}

func buildEmailPrompt(req Request) string {
	var b strings.Builder
	writeRequestContext(&b, "Turn the following content into a newsletter email.", req)
	b.WriteString(`Return JSON with this shape:
{
  "subject": "subject line",
  "preheader": "inbox preview text",
  "body": "<p>HTML body</p>"
}
`)
	return b.String()
}

func (a *EmailAgent) format(completion string) (EmailContent, bool, error) {
	return formatEmail(a.md, completion)
}

// FormatEmailContent rejects an empty or over-long subject or body and drops
// an over-long preheader. Non-JSON text is rendered from Markdown.
func FormatEmailContent(completion string) (EmailContent, bool, error) {
	return formatEmail(goldmark.New(), completion)
}

func formatEmail(md goldmark.Markdown, completion string) (EmailContent, bool, error) {
	payload, ok := decodePayload[emailPayload](completion)
	if !ok {
		c, err := emailFromText(md, completion)
		return c, false, err
	}
	c, err := validateEmail(payload)
	return c, true, err
}

func validateEmail(p emailPayload) (EmailContent, error) {
	subject := strings.TrimSpace(p.Subject)
	body := strings.TrimSpace(p.Body)
	switch {
	case subject == "":
		return EmailContent{}, ErrSubjectEmpty
	case runeLen(subject) > MaxSubjectLength:
		return EmailContent{}, ErrSubjectTooLong
	case body == "":
		return EmailContent{}, ErrBodyEmpty
	case runeLen(body) > MaxEmailBodyLength:
		return EmailContent{}, ErrBodyTooLong
	}
	preheader := strings.TrimSpace(p.Preheader)
	if runeLen(preheader) > MaxPreheaderLength {
		preheader = ""
	}
	return newEmailContent(subject, body, preheader), nil
}

func emailFromText(md goldmark.Markdown, text string) (EmailContent, error) {
	lines := strings.Split(strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n"), "\n")

	subject := ""
	preheader := ""
	var rest []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		switch {
		case subject == "" && trimmed != "":
			// A line that truncates to nothing, such as a rule, leaves subject
			// empty and the next line is tried.
			subject = subjectLine(trimmed, lower)
		case preheader == "" && strings.HasPrefix(lower, "preheader:"):
			preheader = strings.TrimSpace(trimmed[len("preheader:"):])
		default:
			rest = append(rest, line)
		}
	}
	if subject == "" {
		return EmailContent{}, ErrSubjectEmpty
	}

	paragraphs := splitParagraphs(strings.Join(rest, "\n"))
	if len(paragraphs) == 0 {
		paragraphs = []string{subject}
	}
	if preheader == "" {
		if sentences := textutil.SplitSentences(paragraphs[0]); len(sentences) > 0 {
			preheader = sentences[0]
		}
	}
	preheader = truncateAtWord(preheader, MaxPreheaderLength)

	body := ""
	for _, p := range paragraphs {
		html, err := renderMarkdown(md, p)
		if err != nil {
			return EmailContent{}, err
		}
		if runeLen(body)+runeLen(html) > MaxEmailBodyLength {
			break
		}
		body += html
	}
	if body == "" {
		return EmailContent{}, ErrBodyTooLong
	}
	return newEmailContent(subject, strings.TrimSpace(body), preheader), nil
}

// subjectLine strips a subject label and Markdown emphasis from the line and
// caps it at the subject limit.
func subjectLine(trimmed, lower string) string {
	s := strings.TrimSpace(trimmed[len(prefixOf(lower, "subject:", "subject line:")):])
	return truncateAtWord(strings.Trim(s, "#* "), MaxSubjectLength)
}

func renderMarkdown(md goldmark.Markdown, src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// prefixOf returns the first prefix s starts with, or "".
func prefixOf(s string, prefixes ...string) string {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return p
		}
	}
	return ""
}
