package domain

import (
	"fmt"
	"strings"
)

// Platform tags a publishing destination.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformLinkedIn  Platform = "linkedin"
)

// Dimensions is a pixel size.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// Constraints holds the per-platform generation limits.
type Constraints struct {
	ImageSizes      []Dimensions
	CaptionMaxChars int
	HashtagMin      int
	HashtagMax      int
}

var platformConstraints = map[Platform]Constraints{
	PlatformInstagram: {
		ImageSizes:      []Dimensions{{Width: 1080, Height: 1080}, {Width: 1080, Height: 1350}},
		CaptionMaxChars: 2200,
		HashtagMin:      5,
		HashtagMax:      10,
	},
	PlatformLinkedIn: {
		ImageSizes:      []Dimensions{{Width: 1200, Height: 627}},
		CaptionMaxChars: 3000,
		HashtagMin:      3,
		HashtagMax:      5,
	},
}

// ConstraintsFor returns the limits of a known platform.
func ConstraintsFor(p Platform) (Constraints, bool) {
	c, ok := platformConstraints[p]
	return c, ok
}

// ImageSize picks the target size for the n-th image of a platform; platforms
// with several sizes alternate between them.
func (c Constraints) ImageSize(n int) Dimensions {
	if len(c.ImageSizes) == 0 {
		return Dimensions{Width: 1080, Height: 1080}
	}
	if n < 0 {
		n = 0
	}
	return c.ImageSizes[n%len(c.ImageSizes)]
}

// ParsePlatform normalizes free-form input into a supported platform.
func ParsePlatform(raw string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := platformConstraints[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPlatform, raw)
	}
	return p, nil
}

// NormalizePlatforms parses and deduplicates platforms, preserving request order.
func NormalizePlatforms(raw []string) ([]Platform, error) {
	seen := make(map[Platform]struct{}, len(raw))
	out := make([]Platform, 0, len(raw))
	for _, r := range raw {
		p, err := ParsePlatform(r)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}
