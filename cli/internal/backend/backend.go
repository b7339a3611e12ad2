// Package backend abstracts local code-generation inference: an Ollama
// server, a standalone llama.cpp executable, or any OpenAI-compatible local
// server, selected by a string identifier. Invocations are bounded by the
// caller's context; transport failures are retryable, an unrecognized kind
// is not.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"codefixer/cli/internal/ollama"
)

// ErrUnknown indicates the backend identifier is not recognized. This is a
// configuration error: it aborts immediately and is never retried.
var ErrUnknown = errors.New("unknown backend")

// Backend invokes a local inference process or service with one prompt.
type Backend interface {
	// Name returns the identifier the backend was selected by.
	Name() string
	// Invoke sends prompt to the model and returns the raw response text.
	// The context deadline bounds the whole call, including any subprocess.
	Invoke(ctx context.Context, model, prompt string) (string, error)
}

// Config carries backend connection settings from the run configuration.
type Config struct {
	// OllamaBaseURL is the Ollama API root (e.g. http://localhost:11434).
	OllamaBaseURL string
	// OpenAIBaseURL is the OpenAI-compatible API root (e.g. a local
	// llama-server or vLLM endpoint). The API key may be any non-empty
	// string for local servers.
	OpenAIBaseURL string
	OpenAIAPIKey  string
	// LlamaPaths overrides the candidate executable paths for the
	// llama.cpp backend; empty means the default probe list.
	LlamaPaths []string
	// HTTPClient is used by HTTP backends; nil means a default client with
	// no transport timeout (the context deadline governs).
	HTTPClient *http.Client
	// Temperature and NumCtx are model runtime options where supported.
	Temperature float64
	NumCtx      int
}

// New selects a backend by kind: "ollama", "llama.cpp", or "openai".
// Unrecognized kinds return ErrUnknown.
func New(kind string, cfg Config) (Backend, error) {
	switch strings.ToLower(kind) {
	case "ollama":
		httpClient := cfg.HTTPClient
		if httpClient == nil {
			httpClient = &http.Client{}
		}
		return &ollamaBackend{
			client: ollama.NewClient(cfg.OllamaBaseURL, httpClient),
			opts:   &ollama.GenerateOptions{Temperature: cfg.Temperature, NumCtx: cfg.NumCtx},
		}, nil
	case "llama.cpp":
		return &llamaBackend{paths: cfg.LlamaPaths, temperature: cfg.Temperature, numCtx: cfg.NumCtx}, nil
	case "openai":
		clientCfg := openai.DefaultConfig(orDefault(cfg.OpenAIAPIKey, "local"))
		clientCfg.BaseURL = orDefault(cfg.OpenAIBaseURL, "http://localhost:8080/v1")
		if cfg.HTTPClient != nil {
			clientCfg.HTTPClient = cfg.HTTPClient
		}
		return &openaiBackend{client: openai.NewClientWithConfig(clientCfg), temperature: cfg.Temperature}, nil
	default:
		return nil, fmt.Errorf("%w: %q (want ollama, llama.cpp, or openai)", ErrUnknown, kind)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// ollamaBackend generates through a running Ollama server.
type ollamaBackend struct {
	client *ollama.Client
	opts   *ollama.GenerateOptions
}

func (b *ollamaBackend) Name() string { return "ollama" }

func (b *ollamaBackend) Invoke(ctx context.Context, model, prompt string) (string, error) {
	return b.client.Generate(ctx, model, prompt, b.opts)
}

// openaiBackend generates through any OpenAI-compatible local server.
type openaiBackend struct {
	client      *openai.Client
	temperature float64
}

func (b *openaiBackend) Name() string { return "openai" }

func (b *openaiBackend) Invoke(ctx context.Context, model, prompt string) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: float32(b.temperature),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai completion: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
