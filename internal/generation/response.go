package generation

import (
	"time"

	"studio/internal/domain"
	"studio/internal/infra"
)

// Presigner issues time-limited download URLs for stored keys.
type Presigner interface {
	PresignedURL(key string, ttl time.Duration) (string, error)
}

type ImageView struct {
	AssetID      string            `json:"asset_id"`
	Platform     domain.Platform   `json:"platform"`
	URL          string            `json:"url,omitempty"`
	ThumbnailURL string            `json:"thumbnail_url,omitempty"`
	StorageKey   string            `json:"storage_key"`
	ThumbnailKey string            `json:"thumbnail_key"`
	Dimensions   domain.Dimensions `json:"dimensions"`
}

type VideoView struct {
	AssetID         string             `json:"asset_id"`
	Platform        domain.Platform    `json:"platform"`
	URL             string             `json:"url,omitempty"`
	StorageKey      string             `json:"storage_key"`
	DurationSeconds int                `json:"duration_seconds"`
	Format          domain.VideoFormat `json:"format"`
}

type CaptionView struct {
	AssetID        string `json:"asset_id"`
	Content        string `json:"content"`
	CharacterCount int    `json:"character_count"`
}

type HashtagView struct {
	AssetID string   `json:"asset_id"`
	Tags    []string `json:"tags"`
}

// Response is the value returned to callers of generate and project lookups.
type Response struct {
	ProjectID   string                            `json:"project_id"`
	Status      domain.ProjectStatus              `json:"status"`
	Images      []ImageView                       `json:"images"`
	Videos      []VideoView                       `json:"videos"`
	Captions    map[domain.Platform][]CaptionView `json:"captions"`
	Hashtags    map[domain.Platform]HashtagView   `json:"hashtags"`
	Errors      []domain.GenerationError          `json:"errors"`
	CreatedAt   time.Time                         `json:"created_at"`
	CompletedAt *time.Time                        `json:"completed_at,omitempty"`
}

// BuildResponse projects a project onto the response shape. URLs are left
// empty when presign is nil or fails.
func BuildResponse(p *domain.Project, presign Presigner, ttl time.Duration, logger *infra.Logger) *Response {
	resp := &Response{
		ProjectID:   p.ID,
		Status:      p.Status,
		Images:      []ImageView{},
		Videos:      []VideoView{},
		Captions:    map[domain.Platform][]CaptionView{},
		Hashtags:    map[domain.Platform]HashtagView{},
		Errors:      append([]domain.GenerationError{}, p.Errors...),
		CreatedAt:   p.CreatedAt,
		CompletedAt: p.CompletedAt,
	}

	sign := func(key string) string {
		if presign == nil || key == "" {
			return ""
		}
		url, err := presign.PresignedURL(key, ttl)
		if err != nil {
			if logger != nil {
				logger.Warn().Err(err).Str("project_id", p.ID).Str("key", key).Msg("generation: presign failed")
			}
			return ""
		}
		return url
	}

	for _, a := range p.Assets {
		switch a.Kind {
		case domain.AssetKindImage:
			if a.Image == nil {
				continue
			}
			resp.Images = append(resp.Images, ImageView{
				AssetID:      a.ID,
				Platform:     a.Platform,
				URL:          sign(a.Image.StorageKey),
				ThumbnailURL: sign(a.Image.ThumbnailKey),
				StorageKey:   a.Image.StorageKey,
				ThumbnailKey: a.Image.ThumbnailKey,
				Dimensions:   a.Image.Dimensions,
			})
		case domain.AssetKindVideo:
			if a.Video == nil {
				continue
			}
			resp.Videos = append(resp.Videos, VideoView{
				AssetID:         a.ID,
				Platform:        a.Platform,
				URL:             sign(a.Video.StorageKey),
				StorageKey:      a.Video.StorageKey,
				DurationSeconds: a.Video.DurationSeconds,
				Format:          a.Video.Format,
			})
		case domain.AssetKindCaption:
			if a.Caption == nil {
				continue
			}
			resp.Captions[a.Platform] = append(resp.Captions[a.Platform], CaptionView{
				AssetID:        a.ID,
				Content:        a.Caption.Content,
				CharacterCount: a.Caption.CharacterCount,
			})
		case domain.AssetKindHashtags:
			if a.Hashtags == nil {
				continue
			}
			resp.Hashtags[a.Platform] = HashtagView{AssetID: a.ID, Tags: append([]string{}, a.Hashtags.Tags...)}
		}
	}
	return resp
}
