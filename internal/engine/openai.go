package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// OpenAIClient implements Transformer using the OpenAI images/edits API.
type OpenAIClient struct {
	apiKey      string
	model       string
	baseURL     string
	instruction string
	httpClient  *http.Client
}

// OpenAIOption configures the OpenAI client.
type OpenAIOption func(*OpenAIClient)

// WithModel sets the model name.
func WithModel(model string) OpenAIOption {
	return func(c *OpenAIClient) { c.model = model }
}

// WithBaseURL overrides the API base URL (e.g. for a proxy or tests).
func WithBaseURL(u string) OpenAIOption {
	return func(c *OpenAIClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithInstruction overrides the editing brief.
func WithInstruction(text string) OpenAIOption {
	return func(c *OpenAIClient) { c.instruction = text }
}

// WithHTTPTimeout sets the request timeout.
func WithHTTPTimeout(d time.Duration) OpenAIOption {
	return func(c *OpenAIClient) { c.httpClient.Timeout = d }
}

// NewOpenAIClient creates a new OpenAI transformation client.
func NewOpenAIClient(apiKey string, opts ...OpenAIOption) *OpenAIClient {
	c := &OpenAIClient{
		apiKey:      apiKey,
		model:       "gpt-image-1",
		baseURL:     "https://api.openai.com/v1",
		instruction: defaultInstruction,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type imageEditResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Transform sends the source image to the images/edits endpoint and returns
// the edited image bytes. It performs exactly one upstream call.
func (c *OpenAIClient) Transform(ctx context.Context, source []byte, mimeType string) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("model", c.model); err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if err := mw.WriteField("prompt", c.instruction); err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	part, err := createImagePart(mw, mimeType)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if _, err := part.Write(source); err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/edits", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai: %w", classify(&apiError{StatusCode: resp.StatusCode, Body: string(respBody)}))
	}

	var editResp imageEditResponse
	if err := json.Unmarshal(respBody, &editResp); err != nil {
		return nil, fmt.Errorf("openai: unmarshal response: %w", err)
	}

	if editResp.Error != nil {
		msg := editResp.Error.Code + " " + editResp.Error.Message
		if looksLikeQuota(msg) {
			return nil, fmt.Errorf("openai: %w: %s", ErrQuotaExhausted, editResp.Error.Message)
		}
		return nil, fmt.Errorf("openai: api error: %s", editResp.Error.Message)
	}

	if len(editResp.Data) == 0 || editResp.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("openai: response did not include image data")
	}

	data, err := base64.StdEncoding.DecodeString(editResp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("openai: decode image payload: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("openai: empty image payload")
	}
	return data, nil
}

// createImagePart adds the image form file with a content type the API will
// accept; the filename extension must agree with the payload type.
func createImagePart(mw *multipart.Writer, mimeType string) (io.Writer, error) {
	ext := "png"
	switch mimeType {
	case "image/jpeg":
		ext = "jpg"
	case "image/webp":
		ext = "webp"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="source.%s"`, ext))
	h.Set("Content-Type", mimeType)
	return mw.CreatePart(h)
}
