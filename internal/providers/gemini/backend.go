// Package gemini is the remote boundary: it binds a credential to a Gemini
// SDK client and converts SDK failures into apierr.Raw.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"studio/internal/apierr"
	"studio/internal/infra"
)

// Backend is the subset of the remote service the gateway calls.
type Backend interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateVideos(ctx context.Context, model string, source *genai.GenerateVideosSource, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
	GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
	Download(ctx context.Context, uri string) ([]byte, string, error)
}

// Options controls how SDK clients are configured.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Connector hands out backends bound to one credential. SDK clients are cached
// per key so a changed credential gets a fresh client on its next call.
type Connector struct {
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger

	mu      sync.Mutex
	clients map[string]*sdkBackend
}

func NewConnector(opts Options) *Connector {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Connector{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: client,
		logger:     logger,
		clients:    map[string]*sdkBackend{},
	}
}

// Connect returns a backend for key.
func (c *Connector) Connect(ctx context.Context, key string) (Backend, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, apierr.ErrNoCredential
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.clients[key]; ok {
		return b, nil
	}

	cfg := &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	b := &sdkBackend{
		client:     client,
		key:        key,
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
	}
	c.clients[key] = b
	c.logger.Debug().Int("clients", len(c.clients)).Msg("gemini: client created")
	return b, nil
}

// Forget drops cached clients, used when the session credential changes.
func (c *Connector) Forget() {
	c.mu.Lock()
	c.clients = map[string]*sdkBackend{}
	c.mu.Unlock()
}

type sdkBackend struct {
	client     *genai.Client
	key        string
	baseURL    string
	httpClient *http.Client
}

func (b *sdkBackend) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	resp, err := b.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, convertError(err)
	}
	return resp, nil
}

func (b *sdkBackend) GenerateVideos(ctx context.Context, model string, source *genai.GenerateVideosSource, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	op, err := b.client.Models.GenerateVideosFromSource(ctx, model, source, cfg)
	if err != nil {
		return nil, convertError(err)
	}
	return op, nil
}

func (b *sdkBackend) GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	next, err := b.client.Operations.GetVideosOperation(ctx, op, nil)
	if err != nil {
		return nil, convertError(err)
	}
	return next, nil
}

func (b *sdkBackend) Download(ctx context.Context, uri string) ([]byte, string, error) {
	return download(ctx, b.httpClient, b.baseURL, b.key, uri)
}

// convertError maps SDK failures onto the raw remote shape the normalizer
// reads. Context errors pass through unchanged.
func convertError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return rawFromAPIError(apiErr, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return rawFromAPIError(*apiErrPtr, err)
	}
	return err
}

func rawFromAPIError(apiErr genai.APIError, cause error) error {
	raw := &apierr.Raw{
		Status:  apiErr.Code,
		Message: apiErr.Message,
		Envelope: apierr.Envelope{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Status:  apiErr.Status,
		},
	}
	if raw.Message == "" {
		raw.Message = cause.Error()
	}
	return raw
}

var _ Backend = (*sdkBackend)(nil)
