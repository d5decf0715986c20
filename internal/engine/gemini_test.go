package engine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewGeminiClient_Defaults(t *testing.T) {
	c := NewGeminiClient("key-test")

	if c.apiKey != "key-test" {
		t.Errorf("apiKey = %q, want %q", c.apiKey, "key-test")
	}
	if c.model != "gemini-2.5-flash-image-preview" {
		t.Errorf("model = %q, want default image model", c.model)
	}
	if c.instruction == "" {
		t.Error("instruction is empty, want default brief")
	}
}

func TestNewGeminiClient_WithOptions(t *testing.T) {
	c := NewGeminiClient("key-test",
		WithGeminiModel("gemini-3.0-image"),
		WithGeminiBaseURL("https://proxy.example.com/v1beta/"),
	)

	if c.model != "gemini-3.0-image" {
		t.Errorf("model = %q, want %q", c.model, "gemini-3.0-image")
	}
	if c.baseURL != "https://proxy.example.com/v1beta" {
		t.Errorf("baseURL = %q, trailing slash should be trimmed", c.baseURL)
	}
}

// geminiImageResponse builds the provider success payload carrying one
// inlineData image part.
func geminiImageResponse(data []byte) string {
	b64 := base64.StdEncoding.EncodeToString(data)
	return `{"candidates":[{"content":{"parts":[{"text":"here you go"},{"inlineData":{"mimeType":"image/png","data":"` + b64 + `"}}]}}]}`
}

func TestGeminiTransform_Success(t *testing.T) {
	want := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}
	var calls int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "key-mock" {
			t.Errorf("x-goog-api-key = %q, want %q", got, "key-mock")
		}

		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 2 {
			t.Fatalf("request parts = %+v, want text + inlineData", req.Contents)
		}
		if req.Contents[0].Parts[0].Text == "" {
			t.Error("first part has no instruction text")
		}
		inline := req.Contents[0].Parts[1].InlineData
		if inline == nil || inline.MimeType != "image/jpeg" {
			t.Errorf("inlineData = %+v, want image/jpeg payload", inline)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(geminiImageResponse(want)))
	}))
	defer srv.Close()

	c := NewGeminiClient("key-mock", WithGeminiBaseURL(srv.URL))
	got, err := c.Transform(context.Background(), []byte("jpegbytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("bytes = %v, want %v", got, want)
	}
	if calls != 1 {
		t.Errorf("upstream calls = %d, want exactly 1", calls)
	}
}

func TestGeminiTransform_HTTP429IsQuota(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"too many requests"}}`))
	}))
	defer srv.Close()

	c := NewGeminiClient("key-mock", WithGeminiBaseURL(srv.URL))
	_, err := c.Transform(context.Background(), []byte("img"), "image/png")
	if !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("err = %v, want ErrQuotaExhausted", err)
	}
}

func TestGeminiTransform_ResourceExhaustedIsQuota(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"status":"RESOURCE_EXHAUSTED","message":"Quota exceeded for requests"}}`))
	}))
	defer srv.Close()

	c := NewGeminiClient("key-mock", WithGeminiBaseURL(srv.URL))
	_, err := c.Transform(context.Background(), []byte("img"), "image/png")
	if !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("err = %v, want ErrQuotaExhausted", err)
	}
}

func TestGeminiTransform_ErrorBodyOn200IsQuotaAware(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error":{"code":429,"status":"RESOURCE_EXHAUSTED","message":"rate limit hit"}}`))
	}))
	defer srv.Close()

	c := NewGeminiClient("key-mock", WithGeminiBaseURL(srv.URL))
	_, err := c.Transform(context.Background(), []byte("img"), "image/png")
	if !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("err = %v, want ErrQuotaExhausted", err)
	}
}

func TestGeminiTransform_NoImagePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"sorry, text only"}]}}]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient("key-mock", WithGeminiBaseURL(srv.URL))
	_, err := c.Transform(context.Background(), []byte("img"), "image/png")
	if err == nil {
		t.Fatal("expected error for missing image payload")
	}
	if errors.Is(err, ErrQuotaExhausted) {
		t.Errorf("missing payload classified as quota: %v", err)
	}
}

func TestGeminiTransform_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient("key-mock", WithGeminiBaseURL(srv.URL))
	if _, err := c.Transform(context.Background(), []byte("img"), "image/png"); err == nil {
		t.Fatal("expected error for empty candidates")
	}
}

func TestGeminiTransform_ServerErrorIsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":500,"message":"internal"}}`))
	}))
	defer srv.Close()

	c := NewGeminiClient("key-mock", WithGeminiBaseURL(srv.URL))
	_, err := c.Transform(context.Background(), []byte("img"), "image/png")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrQuotaExhausted) {
		t.Errorf("server error classified as quota: %v", err)
	}
}
