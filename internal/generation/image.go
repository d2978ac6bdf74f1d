package generation

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"studio/internal/assetkey"
	"studio/internal/domain"
	"studio/internal/imaging"
	"studio/internal/providers/genai"
	"studio/internal/retry"
)

// ImagesPerProject is the fixed number of images produced per request.
const ImagesPerProject = 3

// ImageTask produces ImagesPerProject images spread round-robin over the
// requested platforms, each stored with a thumbnail.
type ImageTask struct {
	endpoint ImageEndpoint
	deps     Deps
}

func NewImageTask(endpoint ImageEndpoint, deps Deps) *ImageTask {
	return &ImageTask{endpoint: endpoint, deps: deps.withDefaults()}
}

func (t *ImageTask) Component() domain.Component { return domain.ComponentImage }

type imageSlot struct {
	index      int
	variation  int
	platform   domain.Platform
	dimensions domain.Dimensions
}

// planImages assigns platforms round-robin; platforms with several sizes
// alternate between them across their own slots.
func planImages(platforms []domain.Platform, count int) []imageSlot {
	if len(platforms) == 0 {
		return nil
	}
	perPlatform := make(map[domain.Platform]int, len(platforms))
	slots := make([]imageSlot, 0, count)
	for i := 0; i < count; i++ {
		p := platforms[i%len(platforms)]
		c, _ := domain.ConstraintsFor(p)
		n := perPlatform[p]
		perPlatform[p] = n + 1
		slots = append(slots, imageSlot{index: i, variation: n, platform: p, dimensions: c.ImageSize(n)})
	}
	return slots
}

func (t *ImageTask) Run(ctx context.Context, req Request) Outcome {
	slots := planImages(req.Platforms, ImagesPerProject)
	if len(slots) == 0 {
		return t.deps.fail(t.Component(), req, invalidOutput(nil, "no platforms to generate images for"))
	}

	assets := make([]domain.Asset, len(slots))
	g, gctx := errgroup.WithContext(ctx)
	for i, slot := range slots {
		g.Go(func() (err error) {
			defer recoverInto(&err)
			asset, err := t.produce(gctx, req, slot)
			if err != nil {
				return fmt.Errorf("image %d: %w", slot.index+1, err)
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
		Int("images", len(assets)).
		Msg("generation: images stored")
	return Outcome{Component: t.Component(), Assets: assets}
}

func (t *ImageTask) produce(ctx context.Context, req Request, slot imageSlot) (domain.Asset, error) {
	dims := slot.dimensions
	res, err := retry.Do(ctx, t.deps.Retry, func(ctx context.Context) (*genai.ImageResult, error) {
		return t.endpoint.GenerateImage(ctx, genai.ImageRequest{
			Prompt:    req.Prompt,
			Platform:  string(slot.platform),
			Width:     dims.Width,
			Height:    dims.Height,
			Variation: slot.variation,
			RequestID: req.RequestID,
		})
	}, genai.Classify)
	if err != nil {
		return domain.Asset{}, err
	}
	if res == nil || len(res.Data) == 0 {
		return domain.Asset{}, errEmptyOutput
	}

	data, err := imaging.Fit(res.Data, dims.Width, dims.Height)
	if err != nil {
		return domain.Asset{}, invalidOutput(err, "unreadable image")
	}
	thumb, err := imaging.Thumbnail(data, imaging.DefaultThumbnailEdge)
	if err != nil {
		return domain.Asset{}, invalidOutput(err, "thumbnail")
	}

	key := assetkey.Object(req.scope(), domain.AssetKindImage, slot.index, ".png")
	thumbKey := assetkey.Thumbnail(key)
	if err := t.deps.put(ctx, key, data); err != nil {
		return domain.Asset{}, err
	}
	if err := t.deps.put(ctx, thumbKey, thumb); err != nil {
		return domain.Asset{}, err
	}

	asset := domain.Asset{
		ID:        t.deps.NewID(),
		Kind:      domain.AssetKindImage,
		Platform:  slot.platform,
		CreatedAt: t.deps.Now().UTC(),
		Image: &domain.ImageData{
			StorageKey:   key,
			ThumbnailKey: thumbKey,
			Dimensions:   dims,
		},
	}
	return asset, asset.Validate()
}
