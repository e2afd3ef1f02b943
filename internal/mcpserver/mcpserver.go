// Package mcpserver exposes frame generation as a Model Context Protocol
// tool so assistants can request animations over stdio.
package mcpserver

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/benbenbuben/text-to-video-app/internal/frames"
	"github.com/benbenbuben/text-to-video-app/internal/server"
)

// ToolName is the name of the registered tool.
const ToolName = "generate_animation"

// GenerateArgs are the tool arguments.
type GenerateArgs struct {
	Text string `json:"text"`
}

type tool struct {
	generator server.Generator
}

// New creates an MCP server with the generate_animation tool registered.
func New(generator server.Generator, version string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: server.ServiceName, Version: version}, nil)
	t := &tool{generator: generator}

	mcp.AddTool(srv, &mcp.Tool{
		Name:        ToolName,
		Description: "Generate a short looping animation from a text prompt. Returns the frames as images in playback order.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{
					"type":        "string",
					"description": "What the animation should show, e.g. 'a cat playing piano'",
				},
			},
			"required": []string{"text"},
		},
	}, t.handle)

	return srv
}

// Run serves MCP over stdin/stdout until ctx is done or the client
// disconnects.
func Run(ctx context.Context, srv *mcp.Server) error {
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func (t *tool) handle(ctx context.Context, req *mcp.CallToolRequest, in GenerateArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	if strings.TrimSpace(in.Text) == "" {
		return nil, nil, fmt.Errorf("text is required")
	}
	log.Info().Str("tool", ToolName).Int("textLength", len(in.Text)).Msg("MCP tool call received")

	result, err := t.generator.Generate(ctx, in.Text)
	if err != nil {
		log.Warn().Err(err).Str("tool", ToolName).Str("kind", frames.KindOf(err).String()).Msg("MCP generation failed")
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: frames.PublicMessage(err)}},
		}, nil, nil
	}

	content := make([]mcp.Content, 0, len(result.Frames)+1)
	content = append(content, &mcp.TextContent{
		Text: fmt.Sprintf("Generated %d frames; play them in order at 200ms per frame.", len(result.Frames)),
	})
	for i, frame := range result.Frames {
		data, err := base64.StdEncoding.DecodeString(frame)
		if err != nil {
			return nil, nil, fmt.Errorf("frame %d: invalid base64: %w", i+1, err)
		}
		mimeType := "image/png"
		if i < len(result.MIMETypes) && result.MIMETypes[i] != "" {
			mimeType = result.MIMETypes[i]
		}
		content = append(content, &mcp.ImageContent{Data: data, MIMEType: mimeType})
	}

	log.Info().Str("tool", ToolName).Int("frames", len(result.Frames)).Dur("elapsed", time.Since(start)).Msg("MCP tool call complete")
	return &mcp.CallToolResult{Content: content}, nil, nil
}
