package aligner

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/valpere/storitran/internal/diag"
	"github.com/valpere/storitran/internal/llm"
)

// DefaultMaxRetries is the number of corrective retries after the first
// attempt; the client makes at most DefaultMaxRetries+1 chat calls per page.
const DefaultMaxRetries = 2

// correctivePrompt is sent on attempts after the first. The chat session
// already carries the page data, so a short instruction is enough.
const correctivePrompt = "The structure of your previous reply is incomplete or wrong. " +
	"Reply again with ONLY the corrected JSON object, keeping every text_fragments " +
	"entry in the original order."

// Config configures a Client.
type Config struct {
	// MaxRetries is the number of corrective retries; zero or negative means
	// DefaultMaxRetries.
	MaxRetries int
	// TargetLang names the translation target in the instructional prompt.
	TargetLang string
	// Sink receives per-attempt diagnostics and audit artifacts. May be nil.
	Sink *diag.Sink
}

// Client obtains fragment-aligned translations from a chat backend. One
// Client may serve many pages; each Align call runs its own conversation.
type Client struct {
	backend    llm.ChatBackend
	maxRetries int
	targetLang string
	sink       *diag.Sink
}

// New creates an alignment client.
func New(backend llm.ChatBackend, cfg Config) *Client {
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = DefaultMaxRetries
	}
	return &Client{
		backend:    backend,
		maxRetries: retries,
		targetLang: cfg.TargetLang,
		sink:       cfg.Sink,
	}
}

// Align runs the bounded retry loop for one page and returns the validated
// response together with the number of chat calls made. The request structure
// is persisted for audit before the first send; a valid raw reply is
// persisted on success. When the budget is spent without a valid reply the
// returned error is an *ExhaustedError carrying the last raw reply.
func (c *Client) Align(ctx context.Context, req *PageRequest) (*PageResponse, int, error) {
	payload, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode alignment request: %w", err)
	}
	c.writeArtifact(fmt.Sprintf("page_data_json_%d_data.json", req.PageNumber), payload)

	group := fmt.Sprintf("align_page_%d", req.PageNumber)
	prompt := buildAlignmentPrompt(req.PageNumber, c.targetLang, payload)

	var session llm.Session
	var lastRaw string
	var lastErr error

	attempts := 0
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		attempts++

		raw, next, err := c.backend.Chat(ctx, prompt, session)
		if err != nil {
			// Transport failure: the session did not advance, so resend the
			// same prompt on the next attempt.
			lastErr = err
			c.addDiag(group, "attempt %d: chat call failed: %v", attempt+1, err)
			if ctx.Err() != nil {
				// Cancellation is the caller's decision, not retry exhaustion.
				c.flushDiag(group)
				return nil, attempts, ctx.Err()
			}
			continue
		}
		session = next
		lastRaw = raw
		c.addDiag(group, "attempt %d: received %d chars, ~%d tokens", attempt+1, len(raw), estimateTokens(raw))

		resp, perr := parseResponse(raw)
		if perr == nil {
			c.writeArtifact(fmt.Sprintf("translated_page_%d.json", req.PageNumber), []byte(raw))
			c.addDiag(group, "attempt %d: valid response with %d fragments", attempt+1, len(resp.TextFragments))
			c.flushDiag(group)
			return resp, attempts, nil
		}

		lastErr = perr
		c.addDiag(group, "attempt %d: %v", attempt+1, perr)
		prompt = correctivePrompt
	}

	c.flushDiag(group)
	return nil, attempts, &ExhaustedError{
		PageNumber: req.PageNumber,
		Attempts:   attempts,
		LastRaw:    lastRaw,
		Cause:      lastErr,
	}
}

// buildAlignmentPrompt produces the full instructional prompt for the first
// attempt of a page.
func buildAlignmentPrompt(pageNumber int, targetLang string, payload []byte) string {
	if targetLang == "" {
		targetLang = "the target language"
	}
	return fmt.Sprintf(`You are a professional translator aligning text fragments.

Below is a JSON object for page %d of a document. page_context holds the full
original page text and its %s translation. Fill in every empty
translated_text_fragment with the %s translation of its
original_text_fragment, consistent with the page context.

Rules:
- Keep text_fragments in exactly the same order and count.
- Never add, drop, merge or reorder entries.
- Copy each original_text_fragment back unchanged.
- An empty original_text_fragment gets an empty translation.

Respond ONLY with the completed JSON object.

%s`, pageNumber, targetLang, targetLang, payload)
}

var codeFenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// parseResponse validates an untrusted raw reply in strict order: fence
// stripping, then JSON parseability, then presence of the text_fragments key.
// The two failure modes are reported distinctly.
func parseResponse(raw string) (*PageResponse, error) {
	cleaned := strings.TrimSpace(raw)
	if m := codeFenceRe.FindStringSubmatch(cleaned); len(m) > 1 {
		cleaned = m[1]
	}

	resp, err := decodeResponse(cleaned)
	if err == nil {
		return resp, nil
	}

	// Some backends escape their JSON reply a second time, which breaks the
	// strict parse. Collapse one level of doubled escapes and parse again.
	// A reply that parsed cleanly is never rewritten, so fragment text
	// containing legitimately escaped backslashes survives untouched.
	if repaired := undoubleEscapes(cleaned); repaired != cleaned {
		if resp, rerr := decodeResponse(repaired); rerr == nil {
			return resp, nil
		}
	}
	return nil, err
}

func decodeResponse(text string) (*PageResponse, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		return nil, &MalformedError{Kind: KindUnparsable, Cause: err}
	}

	rawFragments, ok := envelope["text_fragments"]
	if !ok {
		return nil, &MalformedError{Kind: KindMissingFragments}
	}

	var fragments []AlignedFragment
	if err := json.Unmarshal(rawFragments, &fragments); err != nil {
		return nil, &MalformedError{Kind: KindUnparsable, Cause: err}
	}

	return &PageResponse{TextFragments: fragments}, nil
}

// undoubleEscapes collapses one level of doubled escape sequences (\\n, \\t,
// \\r, \\u, \\", \\\\). Repair fallback only: it runs after a strict parse
// failure and its result is used only if the repaired text parses.
func undoubleEscapes(s string) string {
	if !strings.Contains(s, `\\`) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	i := 0
	for i < len(s) {
		if s[i] == '\\' && i+2 < len(s) && s[i+1] == '\\' {
			switch s[i+2] {
			case 'n', 't', 'r', 'u', '"', '\\':
				sb.WriteByte('\\')
				sb.WriteByte(s[i+2])
				i += 3
				continue
			}
		}
		sb.WriteByte(s[i])
		i++
	}
	return sb.String()
}

// estimateTokens approximates the token count of text by counting runs
// separated by whitespace and punctuation. Logged for diagnostics only; it
// never drives behavior.
func estimateTokens(text string) int {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	return len(fields)
}

func (c *Client) addDiag(group, format string, args ...any) {
	if c.sink != nil {
		c.sink.Add(group, format, args...)
	}
}

func (c *Client) flushDiag(group string) {
	if c.sink != nil {
		c.sink.Flush(group)
	}
}

func (c *Client) writeArtifact(name string, data []byte) {
	if c.sink == nil {
		return
	}
	if err := c.sink.WriteArtifact(name, data); err != nil {
		c.sink.Infof("artifact write failed: %v", err)
	}
}
