package generation

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"golang.org/x/sync/errgroup"

	"studio/internal/assetkey"
	"studio/internal/domain"
	"studio/internal/providers/genai"
	"studio/internal/retry"
)

// VideoTask produces one clip per requested platform.
type VideoTask struct {
	endpoint VideoEndpoint
	deps     Deps
}

func NewVideoTask(endpoint VideoEndpoint, deps Deps) *VideoTask {
	return &VideoTask{endpoint: endpoint, deps: deps.withDefaults()}
}

func (t *VideoTask) Component() domain.Component { return domain.ComponentVideo }

// targetDuration picks a stable length in [MinVideoSeconds, MaxVideoSeconds]
// for the prompt and platform.
func targetDuration(prompt string, platform domain.Platform) int {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(prompt))))
	h.Write([]byte{0})
	h.Write([]byte(platform))
	span := uint32(domain.MaxVideoSeconds - domain.MinVideoSeconds + 1)
	return domain.MinVideoSeconds + int(h.Sum32()%span)
}

func videoFormat(mime string) (domain.VideoFormat, bool) {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch mime {
	case "video/mp4":
		return domain.VideoFormatMP4, true
	case "image/gif":
		return domain.VideoFormatGIF, true
	default:
		return "", false
	}
}

func (t *VideoTask) Run(ctx context.Context, req Request) Outcome {
	if len(req.Platforms) == 0 {
		return t.deps.fail(t.Component(), req, invalidOutput(nil, "no platforms to generate videos for"))
	}

	assets := make([]domain.Asset, len(req.Platforms))
	g, gctx := errgroup.WithContext(ctx)
	for i, platform := range req.Platforms {
		g.Go(func() (err error) {
			defer recoverInto(&err)
			asset, err := t.produce(gctx, req, i, platform)
			if err != nil {
				return fmt.Errorf("%s video: %w", platform, err)
			}
			assets[i] = asset
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return t.deps.fail(t.Component(), req, err)
	}

	t.deps.Logger.Info().
		Str("project_id", req.ProjectID).
		Str("request_id", req.RequestID).
		Int("videos", len(assets)).
		Msg("generation: videos stored")
	return Outcome{Component: t.Component(), Assets: assets}
}

func (t *VideoTask) produce(ctx context.Context, req Request, index int, platform domain.Platform) (domain.Asset, error) {
	want := targetDuration(req.Prompt, platform)
	res, err := retry.Do(ctx, t.deps.Retry, func(ctx context.Context) (*genai.VideoResult, error) {
		return t.endpoint.GenerateVideo(ctx, genai.VideoRequest{
			Prompt:          req.Prompt,
			Platform:        string(platform),
			DurationSeconds: want,
			RequestID:       req.RequestID,
		})
	}, genai.Classify)
	if err != nil {
		return domain.Asset{}, err
	}
	if res == nil || len(res.Data) == 0 {
		return domain.Asset{}, errEmptyOutput
	}

	format, ok := videoFormat(res.MIME)
	if !ok {
		return domain.Asset{}, invalidOutput(nil, "unsupported video format %q", res.MIME)
	}
	duration := res.DurationSeconds
	if duration == 0 {
		duration = want
	}
	if duration < domain.MinVideoSeconds || duration > domain.MaxVideoSeconds {
		return domain.Asset{}, invalidOutput(nil, "video duration %ds outside [%d,%d]", duration, domain.MinVideoSeconds, domain.MaxVideoSeconds)
	}

	key := assetkey.Object(req.scope(), domain.AssetKindVideo, index, "."+string(format))
	if err := t.deps.put(ctx, key, res.Data); err != nil {
		return domain.Asset{}, err
	}

	asset := domain.Asset{
		ID:        t.deps.NewID(),
		Kind:      domain.AssetKindVideo,
		Platform:  platform,
		CreatedAt: t.deps.Now().UTC(),
		Video: &domain.VideoData{
			StorageKey:      key,
			DurationSeconds: duration,
			Format:          format,
		},
	}
	return asset, asset.Validate()
}
