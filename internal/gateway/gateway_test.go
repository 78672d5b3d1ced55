package gateway

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
	"pgregory.net/rapid"

	"studio/internal/apierr"
	"studio/internal/infra/credentials"
	"studio/internal/metrics"
	"studio/internal/providers/gemini/geminitest"
)

// testingT is satisfied by both *testing.T and *rapid.T.
type testingT interface {
	require.TestingT
	Helper()
}

func newTestGateway(t testingT, backend *geminitest.Backend) (*Gateway, *geminitest.Connector) {
	t.Helper()
	conn := &geminitest.Connector{Backend: backend}
	g, err := New(Options{
		Credentials: credentials.NewResolver(nil, credentials.WithEnvironmentKey("test-key")),
		Connector:   conn,
		Metrics:     metrics.NewCollector("test"),
	})
	require.NoError(t, err)
	return g, conn
}

func asAPIError(t testingT, err error) *apierr.Error {
	t.Helper()
	var apiErr *apierr.Error
	require.True(t, errors.As(err, &apiErr), "expected *apierr.Error, got %T: %v", err, err)
	return apiErr
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Options{Connector: &geminitest.Connector{}})
	assert.Error(t, err)
	_, err = New(Options{Credentials: credentials.NewResolver(nil)})
	assert.Error(t, err)
}

func TestNoCredentialNeverCallsRemote(t *testing.T) {
	backend := &geminitest.Backend{}
	conn := &geminitest.Connector{Backend: backend}
	g, err := New(Options{Credentials: credentials.NewResolver(nil), Connector: conn})
	require.NoError(t, err)

	_, err = g.GenerateImage(context.Background(), ImageRequest{Prompt: "a fox"})
	apiErr := asAPIError(t, err)
	assert.ErrorIs(t, err, apierr.ErrNoCredential)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Empty(t, conn.Keys())
	assert.Empty(t, backend.ContentCalls())
}

func TestCredentialCapturedPerCall(t *testing.T) {
	backend := &geminitest.Backend{
		Content: func(context.Context, geminitest.ContentCall) (*genai.GenerateContentResponse, error) {
			return geminitest.TextResponse("ok"), nil
		},
	}
	conn := &geminitest.Connector{Backend: backend}
	resolver := credentials.NewResolver(nil)
	g, err := New(Options{Credentials: resolver, Connector: conn})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = resolver.Update(ctx, "first")
	require.NoError(t, err)
	_, err = g.AnalyzeMedia(ctx, AnalyzeRequest{Media: Media{Data: []byte{1}}, Instruction: "describe"})
	require.NoError(t, err)

	_, err = resolver.Update(ctx, "second")
	require.NoError(t, err)
	_, err = g.AnalyzeMedia(ctx, AnalyzeRequest{Media: Media{Data: []byte{1}}, Instruction: "describe"})
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, conn.Keys())
}

func TestRemoteFailureIsNormalized(t *testing.T) {
	backend := &geminitest.Backend{
		Content: func(context.Context, geminitest.ContentCall) (*genai.GenerateContentResponse, error) {
			return nil, &apierr.Raw{Status: http.StatusForbidden, Message: "caller lacks billing"}
		},
	}
	g, _ := newTestGateway(t, backend)

	_, err := g.Chat(context.Background(), ChatRequest{Message: "hi"})
	apiErr := asAPIError(t, err)
	assert.True(t, apiErr.PermissionDenied())
	assert.Equal(t, apierr.PermissionDeniedMessage, apiErr.Message)
}

func TestValidationRejectsBeforeRemote(t *testing.T) {
	backend := &geminitest.Backend{}
	g, conn := newTestGateway(t, backend)
	ctx := context.Background()

	cases := map[string]func() error{
		"aspect": func() error {
			_, err := g.GenerateImage(ctx, ImageRequest{Prompt: "x", AspectRatio: "5:4"})
			return err
		},
		"size": func() error {
			_, err := g.GenerateImage(ctx, ImageRequest{Prompt: "x", Size: "8K"})
			return err
		},
		"voice": func() error {
			_, err := g.Speak(ctx, SpeechRequest{Text: "x", Voice: "Nobody"})
			return err
		},
		"empty edit image": func() error {
			_, err := g.EditImage(ctx, EditRequest{Instruction: "x"})
			return err
		},
		"video aspect": func() error {
			_, err := g.SubmitVideo(ctx, VideoRequest{Prompt: "x", AspectRatio: "1:1"})
			return err
		},
		"empty chat": func() error {
			_, err := g.Chat(ctx, ChatRequest{})
			return err
		},
		"missing speaker": func() error {
			_, err := g.Converse(ctx, ConversationRequest{Prompt: "x", Speakers: [2]string{"Ann", ""}})
			return err
		},
	}
	for name, run := range cases {
		t.Run(name, func(t *testing.T) {
			apiErr := asAPIError(t, run())
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		})
	}
	assert.Empty(t, conn.Keys())
}

func TestThinkingBudget(t *testing.T) {
	assert.Nil(t, thinking(true))
	cfg := thinking(false)
	require.NotNil(t, cfg)
	require.NotNil(t, cfg.ThinkingBudget)
	assert.Equal(t, int32(32768), *cfg.ThinkingBudget)
}

func TestTextOfSkipsThoughts(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "planning...", Thought: true},
			{Text: "Hello "},
			{Text: "world"},
		}},
	}}}
	assert.Equal(t, "Hello world", textOf(resp))
	assert.Equal(t, "", textOf(nil))
}

func TestProperty_ImageGenerateNeverEmptySuccess(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		aspect := rapid.SampledFrom(ImageAspectRatios).Draw(rt, "aspect")
		size := rapid.SampledFrom(ImageSizes).Draw(rt, "size")
		withImage := rapid.Bool().Draw(rt, "withImage")

		backend := &geminitest.Backend{
			Content: func(_ context.Context, call geminitest.ContentCall) (*genai.GenerateContentResponse, error) {
				if call.Config.ImageConfig.AspectRatio != aspect || call.Config.ImageConfig.ImageSize != size {
					return nil, errors.New("unexpected image config")
				}
				if withImage {
					return geminitest.ImageResponse([]byte{0x89, 'P', 'N', 'G'}), nil
				}
				return geminitest.TextResponse("no picture today"), nil
			},
		}
		g, _ := newTestGateway(rt, backend)

		img, err := g.GenerateImage(context.Background(), ImageRequest{Prompt: "lighthouse", AspectRatio: aspect, Size: size})
		if err != nil {
			var apiErr *apierr.Error
			if !errors.As(err, &apiErr) {
				rt.Fatalf("error is not normalized: %T", err)
			}
			if withImage {
				rt.Fatalf("unexpected failure: %v", err)
			}
			if apiErr.Message != "Generation failed." {
				rt.Fatalf("unexpected message %q", apiErr.Message)
			}
			return
		}
		if img == nil || len(img.Data) == 0 {
			rt.Fatalf("empty success value")
		}
	})
}
