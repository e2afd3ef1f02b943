package mcpserver

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/benbenbuben/text-to-video-app/internal/frames"
)

type stubGenerator struct {
	result *frames.Result
	err    error
	texts  []string
}

func (s *stubGenerator) Generate(ctx context.Context, text string) (*frames.Result, error) {
	s.texts = append(s.texts, text)
	return s.result, s.err
}

func TestHandleReturnsImages(t *testing.T) {
	gen := &stubGenerator{result: &frames.Result{
		Frames:    []string{base64.StdEncoding.EncodeToString([]byte("one")), base64.StdEncoding.EncodeToString([]byte("two"))},
		MIMETypes: []string{"image/jpeg", ""},
	}}
	tl := &tool{generator: gen}

	res, _, err := tl.handle(context.Background(), nil, GenerateArgs{Text: "a cat"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatal("expected success result")
	}
	if len(res.Content) != 3 {
		t.Fatalf("expected text plus 2 images, got %d items", len(res.Content))
	}
	first, ok := res.Content[1].(*mcp.ImageContent)
	if !ok {
		t.Fatalf("expected ImageContent, got %T", res.Content[1])
	}
	if string(first.Data) != "one" || first.MIMEType != "image/jpeg" {
		t.Errorf("unexpected first image %q %s", first.Data, first.MIMEType)
	}
	if second := res.Content[2].(*mcp.ImageContent); second.MIMEType != "image/png" {
		t.Errorf("expected default MIME type, got %s", second.MIMEType)
	}
	if gen.texts[0] != "a cat" {
		t.Errorf("unexpected text %q", gen.texts[0])
	}
}

func TestHandleGenerationError(t *testing.T) {
	gen := &stubGenerator{err: &frames.Error{Kind: frames.KindRateLimited, Message: "Inference quota exhausted, please try again later"}}
	tl := &tool{generator: gen}

	res, _, err := tl.handle(context.Background(), nil, GenerateArgs{Text: "a cat"})
	if err != nil {
		t.Fatalf("expected tool error result, got protocol error %v", err)
	}
	if !res.IsError {
		t.Fatal("expected IsError result")
	}
	text := res.Content[0].(*mcp.TextContent).Text
	if !strings.Contains(text, "quota") {
		t.Errorf("expected public message in result, got %q", text)
	}
}

func TestHandleRequiresText(t *testing.T) {
	gen := &stubGenerator{}
	tl := &tool{generator: gen}

	if _, _, err := tl.handle(context.Background(), nil, GenerateArgs{Text: "  "}); err == nil {
		t.Error("expected error for blank text")
	}
	if len(gen.texts) != 0 {
		t.Error("expected generator not to be called")
	}
}

func TestNewRegistersTool(t *testing.T) {
	if srv := New(&stubGenerator{}, "test"); srv == nil {
		t.Fatal("expected server")
	}
}
