package lambdaboot

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/benbenbuben/text-to-video-app/internal/auth"
	"github.com/benbenbuben/text-to-video-app/internal/config"
)

type fakeSSM struct {
	value string
	err   error
	names []string
}

func (f *fakeSSM) GetParameter(ctx context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.names = append(f.names, aws.ToString(in.Name))
	if f.err != nil {
		return nil, f.err
	}
	if !aws.ToBool(in.WithDecryption) {
		return nil, errors.New("expected decryption")
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: aws.String(f.value)}}, nil
}

func TestLoadTokenFromSSM(t *testing.T) {
	cfg := &config.Config{Backend: config.BackendHuggingFace, SSMTokenParam: "/t2v/token"}
	client := &fakeSSM{value: "hf_fromssm"}

	if err := LoadToken(context.Background(), client, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HuggingFaceToken != "hf_fromssm" {
		t.Errorf("expected token from SSM, got %q", cfg.HuggingFaceToken)
	}
	if len(client.names) != 1 || client.names[0] != "/t2v/token" {
		t.Errorf("unexpected parameter lookups %v", client.names)
	}
}

func TestLoadTokenSkipsWhenSet(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
	}{
		{"env token present", config.Config{Backend: config.BackendHuggingFace, HuggingFaceToken: "hf_env", SSMTokenParam: "/p"}},
		{"gemini backend", config.Config{Backend: config.BackendGemini, SSMTokenParam: "/p"}},
		{"no parameter", config.Config{Backend: config.BackendHuggingFace}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeSSM{value: "hf_fromssm"}
			cfg := tt.cfg
			if err := LoadToken(context.Background(), client, &cfg); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(client.names) != 0 {
				t.Errorf("expected no SSM calls, got %v", client.names)
			}
		})
	}
}

func TestLoadTokenError(t *testing.T) {
	cfg := &config.Config{Backend: config.BackendHuggingFace, SSMTokenParam: "/t2v/token"}
	client := &fakeSSM{err: errors.New("AccessDenied")}

	err := LoadToken(context.Background(), client, cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if cfg.HuggingFaceToken != "" {
		t.Errorf("expected token to stay empty, got %q", cfg.HuggingFaceToken)
	}
}

func TestLoadTokenTrimsWhitespace(t *testing.T) {
	cfg := &config.Config{Backend: config.BackendHuggingFace, SSMTokenParam: "/t2v/token"}
	client := &fakeSSM{value: "hf_abcdefghijklmnopqrstuvwxyz0123\n"}

	if err := LoadToken(context.Background(), client, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HuggingFaceToken != "hf_abcdefghijklmnopqrstuvwxyz0123" {
		t.Errorf("expected trimmed token, got %q", cfg.HuggingFaceToken)
	}
	if err := auth.ValidateToken(cfg.HuggingFaceToken); err != nil {
		t.Errorf("expected SSM token to validate, got %v", err)
	}
}

func TestLoadTokenBlankValue(t *testing.T) {
	cfg := &config.Config{Backend: config.BackendHuggingFace, SSMTokenParam: "/t2v/token"}
	client := &fakeSSM{value: " \n"}

	if err := LoadToken(context.Background(), client, cfg); err == nil {
		t.Fatal("expected error for blank parameter")
	}
	if cfg.HuggingFaceToken != "" {
		t.Errorf("expected token to stay empty, got %q", cfg.HuggingFaceToken)
	}
}
