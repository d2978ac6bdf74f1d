package genai

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

func (c *Client) syntheticImage(req ImageRequest) *ImageResult {
	width, height := req.Width, req.Height
	if width <= 0 {
		width = 1080
	}
	if height <= 0 {
		height = 1080
	}
	seed := deterministicSeed(req.RequestID, req.Prompt, req.Platform, req.Variation, width, height)
	data := renderSyntheticImage(width, height, seed)

	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", c.imageModel).
		Int("variation", req.Variation).
		Msg("genai: generated synthetic image")

	return &ImageResult{Data: data, MIME: "image/png", Width: width, Height: height}
}

func (c *Client) syntheticVideo(req VideoRequest) *VideoResult {
	seed := deterministicSeed(req.RequestID, req.Prompt, req.Platform, c.videoModel)
	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", c.videoModel).
		Msg("genai: generated synthetic video")

	return &VideoResult{
		Data:            renderSyntheticVideo(seed, req),
		MIME:            "video/mp4",
		DurationSeconds: req.DurationSeconds,
	}
}

var platformHashtags = map[string][]string{
	"instagram": {"#instagood", "#shoplocal", "#smallbusiness", "#instadaily", "#newarrivals", "#deals", "#supportlocal", "#musthave", "#trending", "#shopnow"},
	"linkedin":  {"#smallbusiness", "#marketing", "#growth", "#entrepreneurship", "#retail"},
}

var fallbackHashtags = []string{"#newpost", "#brand", "#local", "#community", "#quality", "#handmade", "#offer", "#shop", "#today", "#style"}

func syntheticText(req TextRequest) *TextResult {
	title := cases.Title(language.Und).String(strings.TrimSpace(req.Prompt))
	if title == "" {
		title = "Our Latest Offer"
	}
	count := req.CaptionCount
	if count <= 0 {
		count = 3
	}
	templates := []string{
		"%s is here! Discover something special made just for you.",
		"Don't miss %s. Limited time only, so grab yours today.",
		"Celebrate with %s and share the moment with the people you love.",
		"%s: quality you can trust, prices you will love.",
		"Tag a friend who needs to know about %s!",
	}
	captions := make([]string, 0, count)
	for i := 0; i < count; i++ {
		captions = append(captions, fmt.Sprintf(templates[i%len(templates)], title))
	}

	seen := map[string]struct{}{}
	var tags []string
	add := func(tag string) {
		key := strings.ToLower(norm.NFC.String(tag))
		if len(key) < 2 {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		tags = append(tags, key)
	}
	words := strings.FieldsFunc(req.Prompt, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r)
	})
	for _, word := range words {
		add("#" + word)
	}
	if len(words) > 1 {
		add("#" + strings.Join(words, ""))
	}
	for _, tag := range platformHashtags[strings.ToLower(req.Platform)] {
		add(tag)
	}
	// Repetitive prompts yield few distinct tags.
	for _, tag := range fallbackHashtags {
		if len(tags) >= req.HashtagMin {
			break
		}
		add(tag)
	}
	if req.HashtagMax > 0 && len(tags) > req.HashtagMax {
		tags = tags[:req.HashtagMax]
	}
	return &TextResult{Captions: captions, Hashtags: tags}
}

func renderSyntheticImage(width, height int, seed string) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	base := colorFromSeed(seed, 0)
	accent := colorFromSeed(seed, 1)
	draw.Draw(img, img.Bounds(), &image.Uniform{base}, image.Point{}, draw.Src)

	stripeHeight := max(32, height/12)
	for y := 0; y < height; y += stripeHeight * 2 {
		stripe := image.Rect(0, y, width, min(height, y+stripeHeight))
		draw.Draw(img, stripe, &image.Uniform{accent}, image.Point{}, draw.Over)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

func renderSyntheticVideo(seed string, req VideoRequest) []byte {
	lines := []string{
		"Synthetic video placeholder",
		fmt.Sprintf("Seed: %s", seed),
		fmt.Sprintf("Platform: %s", req.Platform),
		fmt.Sprintf("Duration: %ds", req.DurationSeconds),
		fmt.Sprintf("Prompt: %s", strings.TrimSpace(req.Prompt)),
	}
	return []byte(strings.Join(lines, "\n"))
}

func colorFromSeed(seed string, shift int) color.RGBA {
	if len(seed) < 6 {
		seed = "000000"
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	return color.RGBA{R: parseHexByte(segment[0:2]), G: parseHexByte(segment[2:4]), B: parseHexByte(segment[4:6]), A: 255}
}

func parseHexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(hasher, "%v|", part)
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}
