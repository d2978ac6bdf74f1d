package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// AssetKind is the discriminant of Asset.
type AssetKind string

const (
	AssetKindImage    AssetKind = "image"
	AssetKindVideo    AssetKind = "video"
	AssetKindCaption  AssetKind = "caption"
	AssetKindHashtags AssetKind = "hashtags"
)

// VideoFormat enumerates container formats for generated clips.
type VideoFormat string

const (
	VideoFormatMP4 VideoFormat = "mp4"
	VideoFormatGIF VideoFormat = "gif"
)

const (
	MinVideoSeconds = 3
	MaxVideoSeconds = 10
)

// Asset is one generated artifact. Kind selects which payload is set; callers
// switch on Kind and read the matching pointer.
type Asset struct {
	ID        string     `json:"asset_id"`
	Kind      AssetKind  `json:"kind"`
	Platform  Platform   `json:"platform"`
	IsEdited  bool       `json:"is_edited"`
	CreatedAt time.Time  `json:"created_at"`
	Image     *ImageData `json:"image,omitempty"`
	Video     *VideoData `json:"video,omitempty"`
	Caption   *Caption   `json:"caption,omitempty"`
	Hashtags  *Hashtags  `json:"hashtags,omitempty"`
}

type ImageData struct {
	StorageKey   string     `json:"storage_key"`
	ThumbnailKey string     `json:"thumbnail_key"`
	Dimensions   Dimensions `json:"dimensions"`
}

type VideoData struct {
	StorageKey      string      `json:"storage_key"`
	DurationSeconds int         `json:"duration_seconds"`
	Format          VideoFormat `json:"format"`
}

type Caption struct {
	Content        string `json:"content"`
	CharacterCount int    `json:"character_count"`
}

type Hashtags struct {
	Tags []string `json:"tags"`
}

// NewCaption builds a caption whose character count matches its content.
func NewCaption(content string) *Caption {
	return &Caption{Content: content, CharacterCount: utf8.RuneCountInString(content)}
}

// StorageKeys lists the object-store keys referenced by the asset.
func (a Asset) StorageKeys() []string {
	switch a.Kind {
	case AssetKindImage:
		if a.Image != nil {
			return []string{a.Image.StorageKey, a.Image.ThumbnailKey}
		}
	case AssetKindVideo:
		if a.Video != nil {
			return []string{a.Video.StorageKey}
		}
	}
	return nil
}

// Validate checks the variant invariants.
func (a Asset) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("%w: asset id is required", ErrInvalidAsset)
	}
	switch a.Kind {
	case AssetKindImage:
		if a.Image == nil || a.Image.StorageKey == "" || a.Image.ThumbnailKey == "" {
			return fmt.Errorf("%w: image %s missing storage keys", ErrInvalidAsset, a.ID)
		}
		if a.Image.Dimensions.Width <= 0 || a.Image.Dimensions.Height <= 0 {
			return fmt.Errorf("%w: image %s has no dimensions", ErrInvalidAsset, a.ID)
		}
	case AssetKindVideo:
		if a.Video == nil || a.Video.StorageKey == "" {
			return fmt.Errorf("%w: video %s missing storage key", ErrInvalidAsset, a.ID)
		}
		if d := a.Video.DurationSeconds; d < MinVideoSeconds || d > MaxVideoSeconds {
			return fmt.Errorf("%w: video %s duration %ds outside [%d,%d]", ErrInvalidAsset, a.ID, d, MinVideoSeconds, MaxVideoSeconds)
		}
		if a.Video.Format != VideoFormatMP4 && a.Video.Format != VideoFormatGIF {
			return fmt.Errorf("%w: video %s format %q", ErrInvalidAsset, a.ID, a.Video.Format)
		}
	case AssetKindCaption:
		if a.Caption == nil || strings.TrimSpace(a.Caption.Content) == "" {
			return fmt.Errorf("%w: caption %s is empty", ErrInvalidAsset, a.ID)
		}
		if a.Caption.CharacterCount != utf8.RuneCountInString(a.Caption.Content) {
			return fmt.Errorf("%w: caption %s character count mismatch", ErrInvalidAsset, a.ID)
		}
	case AssetKindHashtags:
		if a.Hashtags == nil || len(a.Hashtags.Tags) == 0 {
			return fmt.Errorf("%w: hashtag set %s is empty", ErrInvalidAsset, a.ID)
		}
		for _, tag := range a.Hashtags.Tags {
			if len(tag) < 2 || !strings.HasPrefix(tag, "#") {
				return fmt.Errorf("%w: hashtag %q in %s", ErrInvalidAsset, tag, a.ID)
			}
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidAsset, a.Kind)
	}
	return nil
}
