// Package geminitest provides a scriptable in-memory gemini.Backend for tests.
package geminitest

import (
	"context"
	"errors"
	"sync"

	"google.golang.org/genai"

	"studio/internal/apierr"
	"studio/internal/providers/gemini"
)

// ContentCall records one GenerateContent invocation.
type ContentCall struct {
	Model    string
	Contents []*genai.Content
	Config   *genai.GenerateContentConfig
}

// Text returns the concatenated text parts of the last content entry.
func (c ContentCall) Text() string {
	if len(c.Contents) == 0 {
		return ""
	}
	var out string
	for _, p := range c.Contents[len(c.Contents)-1].Parts {
		if p != nil {
			out += p.Text
		}
	}
	return out
}

// VideoCall records one GenerateVideos invocation.
type VideoCall struct {
	Model  string
	Source *genai.GenerateVideosSource
	Config *genai.GenerateVideosConfig
}

// Backend answers with the configured funcs. Unset funcs fail the call.
type Backend struct {
	Content  func(ctx context.Context, call ContentCall) (*genai.GenerateContentResponse, error)
	Videos   func(ctx context.Context, call VideoCall) (*genai.GenerateVideosOperation, error)
	Poll     func(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
	Fetch    func(ctx context.Context, uri string) ([]byte, string, error)
	mu       sync.Mutex
	contents []ContentCall
	videos   []VideoCall
	polls    int
	fetches  []string
}

var errUnscripted = errors.New("geminitest: unscripted call")

func (b *Backend) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	call := ContentCall{Model: model, Contents: contents, Config: cfg}
	b.mu.Lock()
	b.contents = append(b.contents, call)
	fn := b.Content
	b.mu.Unlock()
	if fn == nil {
		return nil, errUnscripted
	}
	return fn(ctx, call)
}

func (b *Backend) GenerateVideos(ctx context.Context, model string, source *genai.GenerateVideosSource, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	call := VideoCall{Model: model, Source: source, Config: cfg}
	b.mu.Lock()
	b.videos = append(b.videos, call)
	fn := b.Videos
	b.mu.Unlock()
	if fn == nil {
		return nil, errUnscripted
	}
	return fn(ctx, call)
}

func (b *Backend) GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	b.mu.Lock()
	b.polls++
	fn := b.Poll
	b.mu.Unlock()
	if fn == nil {
		return nil, errUnscripted
	}
	return fn(ctx, op)
}

func (b *Backend) Download(ctx context.Context, uri string) ([]byte, string, error) {
	b.mu.Lock()
	b.fetches = append(b.fetches, uri)
	fn := b.Fetch
	b.mu.Unlock()
	if fn == nil {
		return nil, "", errUnscripted
	}
	return fn(ctx, uri)
}

// ContentCalls returns a copy of the recorded content calls.
func (b *Backend) ContentCalls() []ContentCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ContentCall(nil), b.contents...)
}

// ContentCallsFor returns the recorded content calls for one model.
func (b *Backend) ContentCallsFor(model string) []ContentCall {
	var out []ContentCall
	for _, c := range b.ContentCalls() {
		if c.Model == model {
			out = append(out, c)
		}
	}
	return out
}

func (b *Backend) VideoCalls() []VideoCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]VideoCall(nil), b.videos...)
}

func (b *Backend) Polls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.polls
}

func (b *Backend) Fetches() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.fetches...)
}

// Connector hands out one backend and records the keys it was asked for.
type Connector struct {
	Backend gemini.Backend
	mu      sync.Mutex
	keys    []string
}

func (c *Connector) Connect(_ context.Context, key string) (gemini.Backend, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if key == "" {
		return nil, apierr.ErrNoCredential
	}
	c.keys = append(c.keys, key)
	return c.Backend, nil
}

func (c *Connector) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.keys...)
}

// ImageResponse wraps data as one inline image part.
func ImageResponse(data []byte) *genai.GenerateContentResponse {
	return InlineResponse(data, "image/png")
}

// InlineResponse wraps data as one inline part of the given type.
func InlineResponse(data []byte, mime string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: "model", Parts: []*genai.Part{{InlineData: &genai.Blob{Data: data, MIMEType: mime}}}},
	}}}
}

// TextResponse wraps text as one answer part.
func TextResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
	}}}
}

// PendingOperation is an unfinished video operation.
func PendingOperation(name string) *genai.GenerateVideosOperation {
	return &genai.GenerateVideosOperation{Name: name}
}

// DoneOperation is a finished video operation whose video lives at uri.
func DoneOperation(name, uri string) *genai.GenerateVideosOperation {
	return &genai.GenerateVideosOperation{
		Name: name,
		Done: true,
		Response: &genai.GenerateVideosResponse{GeneratedVideos: []*genai.GeneratedVideo{{
			Video: &genai.Video{URI: uri, MIMEType: "video/mp4"},
		}}},
	}
}

// FailedOperation is a finished video operation carrying an error payload.
func FailedOperation(name string, code int, message string) *genai.GenerateVideosOperation {
	return &genai.GenerateVideosOperation{
		Name:  name,
		Done:  true,
		Error: map[string]any{"code": float64(code), "message": message},
	}
}

var (
	_ gemini.Backend = (*Backend)(nil)
)
