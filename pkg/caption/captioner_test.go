package caption

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/martinsandoval/imagevault-backend/pkg/config"
)

func testConfig(url string) config.CaptionConfig {
	return config.CaptionConfig{
		EndpointURL: url,
		APIToken:    "test-token",
		Timeout:     5 * time.Second,
	}
}

func TestNewHTTPCaptionerRequiresEndpoint(t *testing.T) {
	if _, err := NewHTTPCaptioner(config.CaptionConfig{}); err == nil {
		t.Fatal("expected error for empty endpoint url")
	}
}

func TestCaptionSendsBytesAndParsesResponse(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		buf := make([]byte, 16)
		n, _ := r.Body.Read(buf)
		gotBody = n
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"generated_caption": "  a cat on a sofa "}`))
	}))
	defer srv.Close()

	c, err := NewHTTPCaptioner(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewHTTPCaptioner: %v", err)
	}

	caption, err := c.Caption(context.Background(), []byte("fake-image"))
	if err != nil {
		t.Fatalf("Caption: %v", err)
	}
	if caption != "a cat on a sofa" {
		t.Errorf("caption = %q, want trimmed caption", caption)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotContentType != "application/octet-stream" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotBody == 0 {
		t.Error("expected request body to carry image bytes")
	}
}

func TestCaptionRejectsEmptyBytes(t *testing.T) {
	c, err := NewHTTPCaptioner(testConfig("http://localhost:0"))
	if err != nil {
		t.Fatalf("NewHTTPCaptioner: %v", err)
	}
	if _, err := c.Caption(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty image bytes")
	}
}

func TestCaptionNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewHTTPCaptioner(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewHTTPCaptioner: %v", err)
	}
	if _, err := c.Caption(context.Background(), []byte("x")); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestCaptionEmptyCaption(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"generated_caption": ""}`))
	}))
	defer srv.Close()

	c, err := NewHTTPCaptioner(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewHTTPCaptioner: %v", err)
	}
	if _, err := c.Caption(context.Background(), []byte("x")); err == nil {
		t.Fatal("expected error for empty caption")
	}
}

func TestWarmupProbesEndpoint(t *testing.T) {
	probed := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			probed = true
		}
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer srv.Close()

	c, err := NewHTTPCaptioner(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewHTTPCaptioner: %v", err)
	}
	if err := c.Warmup(context.Background()); err != nil {
		t.Fatalf("Warmup: %v", err)
	}
	if !probed {
		t.Error("expected warmup to send a HEAD probe")
	}
}
