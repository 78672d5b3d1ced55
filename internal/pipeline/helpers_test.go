package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"studio/internal/gateway"
	"studio/internal/infra/credentials"
	"studio/internal/metrics"
	"studio/internal/providers/gemini/geminitest"
	"studio/internal/storage"
	"studio/internal/videojob"
)

type responder func(call geminitest.ContentCall) (*genai.GenerateContentResponse, error)

// route dispatches content calls by model; unrouted models fail the call.
func route(routes map[string]responder) func(context.Context, geminitest.ContentCall) (*genai.GenerateContentResponse, error) {
	return func(_ context.Context, call geminitest.ContentCall) (*genai.GenerateContentResponse, error) {
		fn, ok := routes[call.Model]
		if !ok {
			return nil, fmt.Errorf("no route for model %s", call.Model)
		}
		return fn(call)
	}
}

func text(s string) responder {
	return func(geminitest.ContentCall) (*genai.GenerateContentResponse, error) {
		return geminitest.TextResponse(s), nil
	}
}

// echoImage answers with an image whose bytes are the prompt text.
func echoImage(call geminitest.ContentCall) (*genai.GenerateContentResponse, error) {
	return geminitest.ImageResponse([]byte(call.Text())), nil
}

// echoSpeech answers with "pcm:" plus the spoken text.
func echoSpeech(call geminitest.ContentCall) (*genai.GenerateContentResponse, error) {
	return geminitest.InlineResponse([]byte("pcm:"+call.Text()), "audio/pcm"), nil
}

// videoBackend finishes every video on the first poll; the stored bytes are
// "video:" plus the prompt so results can be traced to their request.
func videoBackend(b *geminitest.Backend) *geminitest.Backend {
	b.Videos = func(_ context.Context, call geminitest.VideoCall) (*genai.GenerateVideosOperation, error) {
		return geminitest.PendingOperation("operations/" + call.Source.Prompt), nil
	}
	b.Poll = func(_ context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
		return geminitest.DoneOperation(op.Name, "https://files.example/"+op.Name), nil
	}
	b.Fetch = func(_ context.Context, uri string) ([]byte, string, error) {
		return []byte("video:" + strings.TrimPrefix(uri, "https://files.example/operations/")), "video/mp4", nil
	}
	return b
}

func newComposer(t *testing.T, backend *geminitest.Backend) *Composer {
	t.Helper()
	collector := metrics.NewCollector("test")
	gw, err := gateway.New(gateway.Options{
		Credentials: credentials.NewResolver(nil, credentials.WithEnvironmentKey("test-key")),
		Connector:   &geminitest.Connector{Backend: backend},
		Metrics:     collector,
	})
	require.NoError(t, err)
	store, err := storage.NewMediaStore(t.TempDir())
	require.NoError(t, err)
	videos, err := videojob.NewManager(videojob.Options{
		Gateway:      gw,
		Store:        store,
		PollInterval: time.Millisecond,
		MaxPolls:     5,
		Metrics:      collector,
	})
	require.NoError(t, err)
	t.Cleanup(videos.Close)

	c, err := New(Options{Gateway: gw, Videos: videos, Metrics: collector})
	require.NoError(t, err)
	return c
}

func stepStatuses(run *Run) map[string]StepStatus {
	out := make(map[string]StepStatus, len(run.Steps))
	for _, s := range run.Steps {
		out[s.Name] = s.Status
	}
	return out
}
