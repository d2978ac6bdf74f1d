package generation

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"studio/internal/domain"
	"studio/internal/providers/genai"
	"studio/internal/retry"
)

// MinCaptionsPerPlatform is the fewest captions accepted for one platform.
const MinCaptionsPerPlatform = 3

// TextTask produces captions and one hashtag set per requested platform.
type TextTask struct {
	endpoint TextEndpoint
	deps     Deps
}

func NewTextTask(endpoint TextEndpoint, deps Deps) *TextTask {
	return &TextTask{endpoint: endpoint, deps: deps.withDefaults()}
}

func (t *TextTask) Component() domain.Component { return domain.ComponentText }

func (t *TextTask) Run(ctx context.Context, req Request) Outcome {
	if len(req.Platforms) == 0 {
		return t.deps.fail(t.Component(), req, invalidOutput(nil, "no platforms to write copy for"))
	}

	perPlatform := make([][]domain.Asset, len(req.Platforms))
	g, gctx := errgroup.WithContext(ctx)
	for i, platform := range req.Platforms {
		g.Go(func() (err error) {
			defer recoverInto(&err)
			assets, err := t.produce(gctx, req, platform)
			if err != nil {
				return fmt.Errorf("%s copy: %w", platform, err)
			}
			perPlatform[i] = assets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return t.deps.fail(t.Component(), req, err)
	}

	var assets []domain.Asset
	for _, group := range perPlatform {
		assets = append(assets, group...)
	}
	t.deps.Logger.Info().
		Str("project_id", req.ProjectID).
		Str("request_id", req.RequestID).
		Int("assets", len(assets)).
		Msg("generation: copy written")
	return Outcome{Component: t.Component(), Assets: assets}
}

func (t *TextTask) produce(ctx context.Context, req Request, platform domain.Platform) ([]domain.Asset, error) {
	c, ok := domain.ConstraintsFor(platform)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidPlatform, platform)
	}
	res, err := retry.Do(ctx, t.deps.Retry, func(ctx context.Context) (*genai.TextResult, error) {
		return t.endpoint.GenerateText(ctx, genai.TextRequest{
			Prompt:          req.Prompt,
			Platform:        string(platform),
			CaptionCount:    MinCaptionsPerPlatform,
			CaptionMaxChars: c.CaptionMaxChars,
			HashtagMin:      c.HashtagMin,
			HashtagMax:      c.HashtagMax,
			RequestID:       req.RequestID,
		})
	}, genai.Classify)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errEmptyOutput
	}

	captions := normalizeCaptions(res.Captions, c.CaptionMaxChars)
	if len(captions) < MinCaptionsPerPlatform {
		return nil, invalidOutput(errEmptyOutput, "got %d usable captions, need %d", len(captions), MinCaptionsPerPlatform)
	}
	tags := normalizeHashtags(res.Hashtags, c.HashtagMax)
	if len(tags) < c.HashtagMin {
		return nil, invalidOutput(errEmptyOutput, "got %d usable hashtags, need %d", len(tags), c.HashtagMin)
	}

	now := t.deps.Now().UTC()
	assets := make([]domain.Asset, 0, len(captions)+1)
	for _, caption := range captions {
		assets = append(assets, domain.Asset{
			ID:        t.deps.NewID(),
			Kind:      domain.AssetKindCaption,
			Platform:  platform,
			CreatedAt: now,
			Caption:   domain.NewCaption(caption),
		})
	}
	assets = append(assets, domain.Asset{
		ID:        t.deps.NewID(),
		Kind:      domain.AssetKindHashtags,
		Platform:  platform,
		CreatedAt: now,
		Hashtags:  &domain.Hashtags{Tags: tags},
	})
	for _, a := range assets {
		if err := a.Validate(); err != nil {
			return nil, err
		}
	}
	return assets, nil
}

// normalizeCaptions NFC-normalizes, trims and truncates captions to maxChars
// runes, dropping blanks and exact duplicates.
func normalizeCaptions(raw []string, maxChars int) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.TrimSpace(norm.NFC.String(c))
		if c == "" {
			continue
		}
		c = truncateWords(c, maxChars)
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// truncateWords cuts s to at most limit runes, backing off to the last
// whitespace when the cut lands inside a word.
func truncateWords(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	cut := runes[:limit]
	if !unicode.IsSpace(runes[limit]) {
		for i := len(cut) - 1; i > 0; i-- {
			if unicode.IsSpace(cut[i]) {
				cut = cut[:i]
				break
			}
		}
	}
	return strings.TrimRightFunc(string(cut), unicode.IsSpace)
}

// normalizeHashtags returns at most limit "#tag" values with whitespace and
// punctuation stripped, deduplicated case-insensitively in first-seen order.
func normalizeHashtags(raw []string, limit int) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		for _, field := range strings.Fields(r) {
			tag := cleanHashtag(field)
			if tag == "" {
				continue
			}
			key := strings.ToLower(tag)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, "#"+tag)
			if limit > 0 && len(out) == limit {
				return out
			}
		}
	}
	return out
}

func cleanHashtag(s string) string {
	s = norm.NFC.String(strings.TrimLeft(s, "#"))
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
