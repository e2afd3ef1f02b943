package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testToken = "hf_abcdefghijklmnopqrstuvwxyz012345"

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// newTestClient creates a client pointing at a test HTTP server.
func newTestClient(server *httptest.Server, opts ...HuggingFaceOption) *HuggingFaceClient {
	opts = append([]HuggingFaceOption{WithHTTPClient(server.Client()), WithModelURL(server.URL + "/models/test")}, opts...)
	return NewHuggingFaceClient(testToken, opts...)
}

func TestHuggingFaceGenerate(t *testing.T) {
	imageData := pngBytes(t, 4, 3)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/models/test" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer "+testToken {
			t.Errorf("unexpected Authorization header: %s", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("unexpected Content-Type: %s", got)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if body["inputs"] != "a cat playing piano, frame 1 of 3" {
			t.Errorf("unexpected inputs: %v", body["inputs"])
		}
		if _, ok := body["options"]; ok {
			t.Errorf("expected options to be omitted, got %v", body["options"])
		}

		w.Header().Set("Content-Type", "image/png")
		w.Write(imageData)
	}))
	defer server.Close()

	client := newTestClient(server)
	img, err := client.Generate(context.Background(), "a cat playing piano, frame 1 of 3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.MIMEType != "image/png" {
		t.Errorf("expected image/png, got %s", img.MIMEType)
	}
	if !bytes.Equal(img.Data, imageData) {
		t.Errorf("image bytes mismatch: got %d bytes, want %d", len(img.Data), len(imageData))
	}

	width, height, format, err := img.Dimensions()
	if err != nil {
		t.Fatalf("unexpected dimensions error: %v", err)
	}
	if width != 4 || height != 3 || format != "png" {
		t.Errorf("expected 4x3 png, got %dx%d %s", width, height, format)
	}
}

func TestHuggingFaceWaitForModelOption(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Options *struct {
				WaitForModel bool `json:"wait_for_model"`
			} `json:"options"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Options == nil || !body.Options.WaitForModel {
			t.Errorf("expected options.wait_for_model=true")
		}
		w.Header().Set("Content-Type", "image/jpeg; charset=binary")
		w.Write([]byte{0xff, 0xd8, 0xff})
	}))
	defer server.Close()

	client := newTestClient(server, WithWaitForModel(true))
	img, err := client.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.MIMEType != "image/jpeg" {
		t.Errorf("expected parameters stripped from content type, got %s", img.MIMEType)
	}
}

func TestHuggingFaceStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"Model stabilityai/stable-diffusion-2 is currently loading","estimated_time":5}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.Generate(context.Background(), "prompt")

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", statusErr.StatusCode)
	}
	if !strings.Contains(string(statusErr.Body), "loading") {
		t.Errorf("expected body to be preserved, got %s", statusErr.Body)
	}
	if !strings.Contains(statusErr.Error(), "503") {
		t.Errorf("expected status in error message, got %s", statusErr.Error())
	}
}

func TestHuggingFaceContextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := newTestClient(server)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Generate(ctx, "prompt")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded in chain, got %v", err)
	}
}

func TestHuggingFaceReady(t *testing.T) {
	if err := NewHuggingFaceClient(testToken).Ready(); err != nil {
		t.Errorf("unexpected error for valid token: %v", err)
	}
	if err := NewHuggingFaceClient("").Ready(); err == nil {
		t.Error("expected error for missing token")
	}
	if err := NewHuggingFaceClient("not-a-token").Ready(); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestStatusErrorTruncatesBody(t *testing.T) {
	err := &StatusError{StatusCode: 500, Body: []byte(strings.Repeat("x", 500))}
	msg := err.Error()
	if !strings.HasSuffix(msg, "...") {
		t.Errorf("expected truncated message, got %q", msg)
	}
	if len(msg) > 260 {
		t.Errorf("message too long: %d", len(msg))
	}
}

func TestHuggingFaceOversizedImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(bytes.Repeat([]byte{0x89}, 64))
	}))
	defer server.Close()

	client := newTestClient(server)
	client.maxBodyBytes = 16

	img, err := client.Generate(context.Background(), "prompt")
	if !errors.Is(err, ErrResponseTooLarge) {
		t.Fatalf("expected ErrResponseTooLarge, got %v", err)
	}
	if img != nil {
		t.Errorf("expected no image, got %d bytes", len(img.Data))
	}
}

func TestHuggingFaceBodyAtLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(bytes.Repeat([]byte{0x89}, 16))
	}))
	defer server.Close()

	client := newTestClient(server)
	client.maxBodyBytes = 16

	img, err := client.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(img.Data) != 16 {
		t.Errorf("expected 16 bytes, got %d", len(img.Data))
	}
}
