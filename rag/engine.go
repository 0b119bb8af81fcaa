package rag

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"raglab/repository"
)

// DefaultTopK is how many chunks a query retrieves when the request does not
// say.
const DefaultTopK = 3

// ErrUnknownProvider is returned when a request names a provider that was
// never registered.
var ErrUnknownProvider = errors.New("rag: unknown provider")

// Searcher retrieves chunks for a query; the vector store manager satisfies
// this.
type Searcher interface {
	SearchText(ctx context.Context, backend, collection, query string, topK int) ([]repository.SearchResult, repository.CollectionInfo, error)
}

type QueryRequest struct {
	Question     string
	Provider     string
	Backend      string
	Collection   string
	TopK         int
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

type QueryResult struct {
	Answer           string         `json:"answer"`
	Context          []ContextChunk `json:"context"`
	Model            string         `json:"model"`
	Provider         string         `json:"provider"`
	Usage            Usage          `json:"usage"`
	RetrievalBackend string         `json:"retrieval_backend"`
	NumChunks        int            `json:"num_chunks"`
}

// CompareEntry is one provider's answer in a comparison. A provider that
// fails contributes its error instead of failing the whole comparison.
type CompareEntry struct {
	Provider string `json:"provider"`
	Answer   string `json:"answer,omitempty"`
	Model    string `json:"model,omitempty"`
	Usage    Usage  `json:"usage"`
	Error    string `json:"error,omitempty"`
}

type CompareResult struct {
	Question         string         `json:"question"`
	Context          []ContextChunk `json:"context"`
	Responses        []CompareEntry `json:"responses"`
	RetrievalBackend string         `json:"retrieval_backend"`
}

// Engine runs retrieval-augmented queries against registered providers.
type Engine struct {
	providers map[string]Provider
	search    Searcher
	log       *zap.Logger
}

func NewEngine(search Searcher, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		providers: make(map[string]Provider),
		search:    search,
		log:       log,
	}
}

func (e *Engine) Register(p Provider) {
	e.providers[p.Name()] = p
}

// Providers returns the registered provider names, sorted.
func (e *Engine) Providers() []string {
	names := make([]string, 0, len(e.providers))
	for name := range e.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Models maps each registered provider to the models it can serve.
func (e *Engine) Models() map[string][]string {
	out := make(map[string][]string, len(e.providers))
	for name, p := range e.providers {
		out[name] = p.Models()
	}
	return out
}

func (e *Engine) provider(name string) (Provider, error) {
	p, ok := e.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)",
			ErrUnknownProvider, name, strings.Join(e.Providers(), ", "))
	}
	return p, nil
}

// Query retrieves context for the question and generates an answer with the
// requested provider.
func (e *Engine) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	p, err := e.provider(req.Provider)
	if err != nil {
		return nil, err
	}
	chunks, info, err := e.retrieve(ctx, req)
	if err != nil {
		return nil, err
	}

	gen, err := p.Generate(ctx, GenerateRequest{
		Prompt:       buildPrompt(contextBlock(chunks), req.Question),
		SystemPrompt: systemPrompt(req),
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("rag_query_answered",
		zap.String("provider", gen.Provider),
		zap.String("model", gen.Model),
		zap.String("backend", info.Backend),
		zap.Int("num_chunks", len(chunks)),
		zap.Int("total_tokens", gen.Usage.TotalTokens),
	)
	return &QueryResult{
		Answer:           gen.Text,
		Context:          chunks,
		Model:            gen.Model,
		Provider:         gen.Provider,
		Usage:            gen.Usage,
		RetrievalBackend: info.Backend,
		NumChunks:        len(chunks),
	}, nil
}

// Compare retrieves context once and asks each provider the same question.
func (e *Engine) Compare(ctx context.Context, req QueryRequest, providers []string) (*CompareResult, error) {
	if len(providers) == 0 {
		providers = e.Providers()
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("rag: no providers registered")
	}
	chunks, info, err := e.retrieve(ctx, req)
	if err != nil {
		return nil, err
	}

	genReq := GenerateRequest{
		Prompt:       buildPrompt(contextBlock(chunks), req.Question),
		SystemPrompt: systemPrompt(req),
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
	}
	responses := make([]CompareEntry, 0, len(providers))
	for _, name := range providers {
		p, err := e.provider(name)
		if err != nil {
			responses = append(responses, CompareEntry{Provider: name, Error: err.Error()})
			continue
		}
		gen, err := p.Generate(ctx, genReq)
		if err != nil {
			e.log.Warn("rag_compare_provider_failed", zap.String("provider", name), zap.Error(err))
			responses = append(responses, CompareEntry{Provider: name, Model: p.Model(), Error: err.Error()})
			continue
		}
		responses = append(responses, CompareEntry{
			Provider: name,
			Answer:   gen.Text,
			Model:    gen.Model,
			Usage:    gen.Usage,
		})
	}
	return &CompareResult{
		Question:         req.Question,
		Context:          chunks,
		Responses:        responses,
		RetrievalBackend: info.Backend,
	}, nil
}

func (e *Engine) retrieve(ctx context.Context, req QueryRequest) ([]ContextChunk, repository.CollectionInfo, error) {
	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	results, info, err := e.search.SearchText(ctx, req.Backend, req.Collection, req.Question, topK)
	if err != nil {
		return nil, info, fmt.Errorf("rag: retrieve context: %w", err)
	}
	chunks := make([]ContextChunk, len(results))
	for i, r := range results {
		chunks[i] = ContextChunk{Text: r.Text, Score: r.Score, Metadata: r.Metadata}
	}
	return chunks, info, nil
}

func systemPrompt(req QueryRequest) string {
	if strings.TrimSpace(req.SystemPrompt) != "" {
		return req.SystemPrompt
	}
	return DefaultSystemPrompt
}
