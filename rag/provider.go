// Package rag answers questions over indexed documents: retrieve similar
// chunks, build a grounded prompt and generate with a configured LLM
// provider.
package rag

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

type GenerateRequest struct {
	Prompt       string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Generation struct {
	Text     string `json:"text"`
	Model    string `json:"model"`
	Provider string `json:"provider"`
	Usage    Usage  `json:"usage"`
}

// Provider is one configured LLM backend.
type Provider interface {
	Name() string
	Model() string
	Models() []string
	Generate(ctx context.Context, req GenerateRequest) (*Generation, error)
}

type langchainProvider struct {
	name   string
	model  string
	models []string
	llm    llms.Model
}

func NewOpenAI(token, model string) (Provider, error) {
	if model == "" {
		model = "gpt-4o-mini"
	}
	llm, err := openai.New(openai.WithToken(token), openai.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("rag: init openai: %w", err)
	}
	return &langchainProvider{
		name:   "openai",
		model:  model,
		models: []string{"gpt-4o", "gpt-4o-mini", "gpt-4-turbo", "gpt-3.5-turbo"},
		llm:    llm,
	}, nil
}

func NewAnthropic(token, model string) (Provider, error) {
	if model == "" {
		model = "claude-3-5-haiku-20241022"
	}
	llm, err := anthropic.New(anthropic.WithToken(token), anthropic.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("rag: init anthropic: %w", err)
	}
	return &langchainProvider{
		name:   "anthropic",
		model:  model,
		models: []string{"claude-3-5-sonnet-20241022", "claude-3-5-haiku-20241022", "claude-3-opus-20240229"},
		llm:    llm,
	}, nil
}

func NewOllama(serverURL, model string) (Provider, error) {
	if model == "" {
		model = "llama3.2"
	}
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("rag: init ollama: %w", err)
	}
	return &langchainProvider{
		name:   "ollama",
		model:  model,
		models: []string{model},
		llm:    llm,
	}, nil
}

func (p *langchainProvider) Name() string     { return p.name }
func (p *langchainProvider) Model() string    { return p.model }
func (p *langchainProvider) Models() []string { return p.models }

func (p *langchainProvider) Generate(ctx context.Context, req GenerateRequest) (*Generation, error) {
	var messages []llms.MessageContent
	if req.SystemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	var options []llms.CallOption
	if req.Temperature > 0 {
		options = append(options, llms.WithTemperature(req.Temperature))
	}
	if req.MaxTokens > 0 {
		options = append(options, llms.WithMaxTokens(req.MaxTokens))
	}

	resp, err := p.llm.GenerateContent(ctx, messages, options...)
	if err != nil {
		return nil, fmt.Errorf("rag: %s generation failed: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("rag: %s returned no choices", p.name)
	}
	choice := resp.Choices[0]

	usage := usageFromInfo(choice.GenerationInfo)
	if usage.TotalTokens == 0 {
		usage = estimateUsage(req, choice.Content)
	}
	return &Generation{
		Text:     choice.Content,
		Model:    p.model,
		Provider: p.name,
		Usage:    usage,
	}, nil
}

// usageFromInfo reads token counts out of the generation info map. The key
// names differ per provider: OpenAI-compatible backends report
// PromptTokens/CompletionTokens/TotalTokens, Anthropic reports
// InputTokens/OutputTokens.
func usageFromInfo(info map[string]any) Usage {
	u := Usage{
		PromptTokens:     asInt(info["PromptTokens"]) + asInt(info["InputTokens"]),
		CompletionTokens: asInt(info["CompletionTokens"]) + asInt(info["OutputTokens"]),
	}
	u.TotalTokens = asInt(info["TotalTokens"])
	if u.TotalTokens == 0 {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	return u
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

var encoding = sync.OnceValues(func() (*tiktoken.Tiktoken, error) {
	return tiktoken.GetEncoding("cl100k_base")
})

// estimateUsage counts tokens locally for providers that do not report
// usage, such as Ollama.
func estimateUsage(req GenerateRequest, completion string) Usage {
	prompt := req.SystemPrompt + "\n" + req.Prompt
	u := Usage{
		PromptTokens:     countTokens(prompt),
		CompletionTokens: countTokens(completion),
	}
	u.TotalTokens = u.PromptTokens + u.CompletionTokens
	return u
}

func countTokens(text string) int {
	enc, err := encoding()
	if err != nil {
		return utf8.RuneCountInString(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
