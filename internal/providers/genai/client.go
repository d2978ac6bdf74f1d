package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/infra"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	ImageModel string
	VideoModel string
	TextModel  string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client is the generation endpoint used by the image, video and text tasks.
// Without an API key it produces deterministic synthetic assets so the whole
// pipeline stays runnable in local and CI environments.
type Client struct {
	apiKey     string
	baseURL    string
	imageModel string
	videoModel string
	textModel  string
	httpClient *http.Client
	logger     *infra.Logger
}

// ImageRequest asks for one image at an exact size.
type ImageRequest struct {
	Prompt    string
	Platform  string
	Width     int
	Height    int
	Variation int
	RequestID string
}

// ImageResult is one encoded image.
type ImageResult struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// VideoRequest asks for one short clip.
type VideoRequest struct {
	Prompt          string
	Platform        string
	DurationSeconds int
	RequestID       string
}

// VideoResult is one encoded clip.
type VideoResult struct {
	Data            []byte
	MIME            string
	DurationSeconds int
}

// TextRequest asks for captions and hashtags for one platform.
type TextRequest struct {
	Prompt          string
	Platform        string
	CaptionCount    int
	CaptionMaxChars int
	HashtagMin      int
	HashtagMax      int
	RequestID       string
}

// TextResult holds raw model copy before normalization.
type TextResult struct {
	Captions []string `json:"captions"`
	Hashtags []string `json:"hashtags"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
	FileData   *geminiFileData   `json:"fileData,omitempty"`
}

type geminiTool struct {
	ImageGeneration *geminiImageTool `json:"image_generation,omitempty"`
	VideoGeneration *geminiVideoTool `json:"video_generation,omitempty"`
}

type geminiImageTool struct{}

type geminiVideoTool struct{}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiFileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri,omitempty"`
}

type geminiGenerationConfig struct {
	CandidateCount   int     `json:"candidateCount,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
	Temperature      float64 `json:"temperature,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	Tools            []geminiTool            `json:"tools,omitempty"`
	ToolConfig       *geminiToolConfig       `json:"tool_config,omitempty"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiToolConfig struct {
	ImageGenerationConfig *geminiImageGenerationConfig `json:"image_generation_config,omitempty"`
	VideoGenerationConfig *geminiVideoGenerationConfig `json:"video_generation_config,omitempty"`
}

type geminiImageGenerationConfig struct {
	NumberOfImages int `json:"number_of_images,omitempty"`
	Width          int `json:"width,omitempty"`
	Height         int `json:"height,omitempty"`
}

type geminiVideoGenerationConfig struct {
	DurationSeconds int `json:"duration_seconds,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates     []geminiCandidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; a reusable one will be created.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("genai: invalid base url: %w", err)
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		imageModel: firstNonEmpty(opts.ImageModel, "gemini-2.5-flash-image"),
		videoModel: firstNonEmpty(opts.VideoModel, "veo-3.0-fast-generate-001"),
		textModel:  firstNonEmpty(opts.TextModel, "gemini-2.5-flash"),
		httpClient: client,
		logger:     logger,
	}, nil
}

// Synthetic reports whether the client is running without credentials.
func (c *Client) Synthetic() bool {
	return c.apiKey == ""
}

// GenerateImage returns one image for the request.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Synthetic() {
		return c.syntheticImage(req), nil
	}

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: buildImagePrompt(req)}},
		}},
		Tools: []geminiTool{{ImageGeneration: &geminiImageTool{}}},
		ToolConfig: &geminiToolConfig{
			ImageGenerationConfig: &geminiImageGenerationConfig{
				NumberOfImages: 1,
				Width:          req.Width,
				Height:         req.Height,
			},
		},
	}
	var response geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, c.imageModel, payload, &response); err != nil {
		return nil, err
	}
	asset, err := c.firstInlineAsset(ctx, response)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", c.imageModel).
		Str("platform", req.Platform).
		Msg("genai: generated remote image")
	return &ImageResult{Data: asset.Data, MIME: firstNonEmpty(asset.Format, "image/png")}, nil
}

// GenerateVideo returns one clip for the request.
func (c *Client) GenerateVideo(ctx context.Context, req VideoRequest) (*VideoResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Synthetic() {
		return c.syntheticVideo(req), nil
	}

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: buildVideoPrompt(req)}},
		}},
		Tools: []geminiTool{{VideoGeneration: &geminiVideoTool{}}},
		ToolConfig: &geminiToolConfig{
			VideoGenerationConfig: &geminiVideoGenerationConfig{DurationSeconds: req.DurationSeconds},
		},
	}
	var response geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, c.videoModel, payload, &response); err != nil {
		return nil, err
	}
	asset, err := c.firstInlineAsset(ctx, response)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", c.videoModel).
		Str("platform", req.Platform).
		Msg("genai: generated remote video")
	return &VideoResult{Data: asset.Data, MIME: firstNonEmpty(asset.Format, "video/mp4"), DurationSeconds: req.DurationSeconds}, nil
}

// GenerateText returns captions and hashtags for one platform.
func (c *Client) GenerateText(ctx context.Context, req TextRequest) (*TextResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Synthetic() {
		return syntheticText(req), nil
	}

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: buildTextPrompt(req)}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseMimeType: "application/json",
			Temperature:      0.7,
		},
	}
	var response geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, c.textModel, payload, &response); err != nil {
		return nil, err
	}
	if err := checkBlocked(response); err != nil {
		return nil, err
	}
	var text strings.Builder
	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			text.WriteString(part.Text)
		}
		if text.Len() > 0 {
			break
		}
	}
	parsed, err := parseModelPayload[TextResult](text.String())
	if err != nil {
		return nil, &ServiceError{Kind: KindMalformed, Message: "text response is not valid JSON", Err: err}
	}
	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", c.textModel).
		Str("platform", req.Platform).
		Int("captions", len(parsed.Captions)).
		Int("hashtags", len(parsed.Hashtags)).
		Msg("genai: generated remote copy")
	return &parsed, nil
}

type inlineAsset struct {
	Data   []byte
	Format string
	URL    string
}

func (c *Client) invokeGemini(ctx context.Context, model string, payload any, out any) error {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(model))
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("genai: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("genai: create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		svcErr := &ServiceError{Kind: kindForStatus(resp.StatusCode), StatusCode: resp.StatusCode}
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			svcErr.Message = apiErr.Error.Message
		} else {
			svcErr.Message = strings.TrimSpace(string(data))
		}
		return svcErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ServiceError{Kind: KindMalformed, StatusCode: resp.StatusCode, Message: "decode response", Err: err}
	}
	return nil
}

func checkBlocked(response geminiGenerateContentResponse) error {
	if response.PromptFeedback != nil && response.PromptFeedback.BlockReason != "" {
		return &ServiceError{Kind: KindContentPolicy, Message: "prompt blocked: " + response.PromptFeedback.BlockReason}
	}
	for _, candidate := range response.Candidates {
		if blockedFinishReason(candidate.FinishReason) {
			return &ServiceError{Kind: KindContentPolicy, Message: "output blocked: " + candidate.FinishReason}
		}
	}
	return nil
}

func (c *Client) firstInlineAsset(ctx context.Context, response geminiGenerateContentResponse) (inlineAsset, error) {
	if err := checkBlocked(response); err != nil {
		return inlineAsset{}, err
	}
	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			asset, err := c.decodeInlineAsset(ctx, part)
			if err != nil {
				return inlineAsset{}, err
			}
			if len(asset.Data) > 0 {
				return asset, nil
			}
		}
	}
	return inlineAsset{}, &ServiceError{Kind: KindMalformed, Message: "no media returned"}
}

func (c *Client) decodeInlineAsset(ctx context.Context, part geminiPart) (inlineAsset, error) {
	if part.InlineData != nil && part.InlineData.Data != "" {
		data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return inlineAsset{}, &ServiceError{Kind: KindMalformed, Message: "decode inline data", Err: err}
		}
		return inlineAsset{Data: data, Format: part.InlineData.MimeType}, nil
	}

	if part.FileData != nil && part.FileData.FileURI != "" {
		data, mime, err := c.downloadFile(ctx, part.FileData.FileURI)
		if err != nil {
			return inlineAsset{}, err
		}
		return inlineAsset{Data: data, Format: firstNonEmpty(part.FileData.MimeType, mime), URL: part.FileData.FileURI}, nil
	}

	return inlineAsset{}, nil
}

func (c *Client) downloadFile(ctx context.Context, uri string) ([]byte, string, error) {
	target := uri
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(uri, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("genai: create download request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", ctxErr
		}
		return nil, "", transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return nil, "", &ServiceError{Kind: kindForStatus(resp.StatusCode), StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", transportError(err)
	}
	return blob, resp.Header.Get("Content-Type"), nil
}

func buildImagePrompt(req ImageRequest) string {
	var b strings.Builder
	prompt := strings.TrimSpace(req.Prompt)
	if prompt != "" {
		b.WriteString("Marketing visual for: ")
		b.WriteString(prompt)
	} else {
		b.WriteString("Create a marketing image")
	}
	if req.Platform != "" {
		fmt.Fprintf(&b, "\nPlatform: %s", req.Platform)
	}
	if req.Width > 0 && req.Height > 0 {
		fmt.Fprintf(&b, "\nOutput size: %dx%d pixels", req.Width, req.Height)
	}
	if req.Variation > 0 {
		fmt.Fprintf(&b, "\nVariation #%d for the same campaign.", req.Variation)
	}
	return b.String()
}

func buildVideoPrompt(req VideoRequest) string {
	var b strings.Builder
	prompt := strings.TrimSpace(req.Prompt)
	if prompt != "" {
		b.WriteString("Short promotional clip for: ")
		b.WriteString(prompt)
	} else {
		b.WriteString("Create a short promotional video")
	}
	if req.Platform != "" {
		fmt.Fprintf(&b, "\nPlatform: %s", req.Platform)
	}
	if req.DurationSeconds > 0 {
		fmt.Fprintf(&b, "\nDuration: %d seconds", req.DurationSeconds)
	}
	return b.String()
}

func buildTextPrompt(req TextRequest) string {
	sb := &strings.Builder{}
	sb.WriteString("You are a social media copywriter for small businesses. Respond strictly with JSON matching this schema: ")
	sb.WriteString(`{"captions":string[],"hashtags":string[]}`)
	fmt.Fprintf(sb, ". Write %d distinct captions for %s, each at most %d characters, and between %d and %d hashtags each starting with '#'. Campaign: %q.",
		max(1, req.CaptionCount), firstNonEmpty(req.Platform, "social media"), req.CaptionMaxChars, req.HashtagMin, req.HashtagMax, strings.TrimSpace(req.Prompt))
	return sb.String()
}

func parseModelPayload[T any](raw string) (T, error) {
	var zero T
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return zero, errors.New("empty payload")
	}
	var decoded T
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return zero, err
	}
	return decoded, nil
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
