// Package llm turns captured articles into neutral briefs through an
// iterative rewrite-and-gate loop against an OpenAI-compatible endpoint.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/sashabaranov/go-openai"

	"github.com/briefwire/briefwire/pkg/config"
	"github.com/briefwire/briefwire/pkg/domain"
)

// ErrKind tags rewrite failures so the batch can accumulate them
type ErrKind string

// rewrite error kinds
const (
	ErrLLMUnavailable      ErrKind = "llm_unavailable"
	ErrParse               ErrKind = "parse_error"
	ErrInsufficientSources ErrKind = "insufficient_sources"
	ErrWordCountOutOfBand  ErrKind = "word_count_out_of_band"
)

// RewriteError is a classified rewrite failure
type RewriteError struct {
	Kind ErrKind
	Err  error
}

func (e *RewriteError) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }
func (e *RewriteError) Unwrap() error { return e.Err }

// fillerParagraph pads a brief that stays short after all expansion attempts.
// It is fixed text so replayed batches produce identical bodies.
const fillerParagraph = "Further details on this development are expected as officials release " +
	"additional records and primary documents become available for review. This brief will be " +
	"superseded by an updated account once the underlying filings, transcripts, or statistical " +
	"releases covering the events described above have been published and independently verified."

// Rewriter drives the draft, bias-revision, expansion and gate pipeline for a
// single article per call
type Rewriter struct {
	client *openai.Client
	cfg    config.LLMConfig
	policy config.BriefConfig
	now    func() time.Time
}

// NewRewriter creates a rewriter from LLM and brief policy configuration
func NewRewriter(cfg config.LLMConfig, policy config.BriefConfig) *Rewriter {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}
	return &Rewriter{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		policy: policy,
		now:    time.Now,
	}
}

// Rewrite produces a brief for the article. LLM transport failures and
// unparseable drafts return a tagged error; the caller decides whether to
// fall back. Gate repairs (origin URL, filler, truncation) happen before any
// gate failure is declared.
func (r *Rewriter) Rewrite(ctx context.Context, article domain.Article) (*domain.Brief, error) {
	start := r.now()
	var tokens int
	var cost float64
	revisions := 0

	// draft
	content, err := r.call(ctx, systemPrompt, buildUserPayload(article, r.policy.MinWords, r.policy.MaxWords), &tokens, &cost)
	if err != nil {
		return nil, &RewriteError{Kind: ErrLLMUnavailable, Err: err}
	}
	d, err := parseSections(content)
	if err != nil {
		return nil, &RewriteError{Kind: ErrParse, Err: err}
	}

	// bias scan: one neutral-rewrite revision on any lexicon hit
	if terms, _ := findBiasedTerms(d.Body); len(terms) > 0 {
		lgr.Printf("[DEBUG] bias scan hit for %s: %s", article.ID, strings.Join(terms, ", "))
		revised, rerr := r.revise(ctx, d, terms, &tokens, &cost)
		if rerr != nil {
			lgr.Printf("[WARN] neutral revision failed for %s, keeping draft: %v", article.ID, rerr)
		} else if subjectivity(revised.Body) <= subjectivity(d.Body) {
			d = revised
			revisions++
		}
	}

	// length loop: expand up to the configured attempts, then pad with filler
	for attempt := 0; wordCount(d.Body) < r.policy.MinWords && attempt < r.policy.MaxExpansions; attempt++ {
		expanded, eerr := r.expand(ctx, d, &tokens, &cost)
		if eerr != nil {
			lgr.Printf("[WARN] expansion attempt %d failed for %s: %v", attempt+1, article.ID, eerr)
			break
		}
		if wordCount(expanded.Body) <= wordCount(d.Body) {
			break
		}
		// subjectivity never increases across revisions; an expansion that
		// introduces loaded language is discarded like a bad bias revision
		if subjectivity(expanded.Body) > subjectivity(d.Body) {
			lgr.Printf("[WARN] expansion raised subjectivity for %s, discarding", article.ID)
			break
		}
		d = expanded
		revisions++
	}
	for wordCount(d.Body) < r.policy.MinWords {
		d.Body = strings.TrimSpace(d.Body + "\n\n" + fillerParagraph)
	}

	// gate
	if article.URL != "" && !containsString(d.Sources, article.URL) {
		d.Sources = append(d.Sources, article.URL)
	}
	if len(d.Sources) < r.policy.MinSources {
		return nil, &RewriteError{Kind: ErrInsufficientSources,
			Err: fmt.Errorf("%d sources, need %d", len(d.Sources), r.policy.MinSources)}
	}
	if !hasPrimarySource(d.Sources) {
		lgr.Printf("[WARN] brief for %s has no primary source", article.ID)
	}
	if wc := wordCount(d.Body); wc > r.policy.MaxWords {
		d.Body = truncateWords(d.Body, r.policy.MaxWords)
	}
	if wc := wordCount(d.Body); wc < r.policy.MinWords || wc > r.policy.MaxWords {
		return nil, &RewriteError{Kind: ErrWordCountOutOfBand,
			Err: fmt.Errorf("%d words outside [%d,%d]", wc, r.policy.MinWords, r.policy.MaxWords)}
	}

	return r.buildBrief(article, d, start, tokens, cost, revisions), nil
}

// Fallback builds a deterministic brief when the LLM path failed entirely.
// The batch is never aborted for a single article.
func (r *Rewriter) Fallback(article domain.Article) *domain.Brief {
	headline := article.Title
	if headline == "" {
		headline = "News Update"
	}

	body := article.Description
	if body == "" {
		body = article.Content
		if locs := wordPattern.FindAllStringIndex(body, -1); len(locs) > r.policy.MaxWords/2 {
			body = body[:locs[r.policy.MaxWords/2-1][1]]
		}
	}
	for wordCount(body) < r.policy.MinWords {
		body = strings.TrimSpace(body + "\n\n" + fillerParagraph)
	}
	if wordCount(body) > r.policy.MaxWords {
		body = truncateWords(body, r.policy.MaxWords)
	}

	now := r.now()
	return &domain.Brief{
		ID:          domain.BriefID(article.Category, headline, now),
		Headline:    headline,
		Body:        body,
		SourceURLs:  []string{article.URL},
		ArticleIDs:  []string{article.ID},
		Category:    article.Category,
		PublishedAt: now,
		Tags:        domain.TopTags([]domain.Article{article}, 5),
		Status:      domain.BriefStatus(r.policy.InitialStatus),
		Meta: domain.BriefMeta{
			Model:         "fallback",
			PromptVersion: r.cfg.PromptVersion,
			Subjectivity:  subjectivity(body),
		},
	}
}

// buildBrief assembles the final brief with LLM accounting
func (r *Rewriter) buildBrief(article domain.Article, d *draft, start time.Time, tokens int, cost float64, revisions int) *domain.Brief {
	now := r.now()
	return &domain.Brief{
		ID:          domain.BriefID(article.Category, d.Headline, now),
		Headline:    d.Headline,
		Body:        d.Body,
		SourceURLs:  d.Sources,
		ArticleIDs:  []string{article.ID},
		Category:    article.Category,
		PublishedAt: now,
		Tags:        domain.TopTags([]domain.Article{article}, 5),
		Status:      domain.BriefStatus(r.policy.InitialStatus),
		Meta: domain.BriefMeta{
			Model:         r.cfg.Model,
			PromptVersion: r.cfg.PromptVersion,
			Tokens:        tokens,
			Cost:          cost,
			ProcessingMS:  now.Sub(start).Milliseconds(),
			Subjectivity:  subjectivity(d.Body),
			Revisions:     revisions,
		},
	}
}

// revise issues the single neutral-rewrite call after a bias hit
func (r *Rewriter) revise(ctx context.Context, d *draft, terms []string, tokens *int, cost *float64) (*draft, error) {
	content, err := r.call(ctx, systemPrompt, buildRevisionPayload(renderDraft(d), terms), tokens, cost)
	if err != nil {
		return nil, err
	}
	return parseSections(content)
}

// expand issues one length-expansion call
func (r *Rewriter) expand(ctx context.Context, d *draft, tokens *int, cost *float64) (*draft, error) {
	content, err := r.call(ctx, systemPrompt, buildExpansionPayload(renderDraft(d), wordCount(d.Body), r.policy.MinWords), tokens, cost)
	if err != nil {
		return nil, err
	}
	expanded, err := parseSections(content)
	if err != nil {
		return nil, err
	}
	// expansion must not discard citations
	if len(expanded.Sources) == 0 {
		expanded.Sources = d.Sources
	}
	return expanded, nil
}

// call performs one chat completion with the hard per-call timeout and
// accumulates token and cost estimates
func (r *Rewriter) call(ctx context.Context, system, user string, tokens *int, cost *float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.cfg.Model,
		Temperature: float32(r.cfg.Temperature),
		MaxTokens:   r.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from llm")
	}

	content := resp.Choices[0].Message.Content

	inTokens := resp.Usage.PromptTokens
	outTokens := resp.Usage.CompletionTokens
	if inTokens == 0 && outTokens == 0 {
		// endpoints without usage reporting: approximate at 4 chars per token
		inTokens = (len(system) + len(user)) / 4
		outTokens = len(content) / 4
	}
	*tokens += inTokens + outTokens
	*cost += float64(inTokens)*r.cfg.InputRate/1e6 + float64(outTokens)*r.cfg.OutputRate/1e6

	return content, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
