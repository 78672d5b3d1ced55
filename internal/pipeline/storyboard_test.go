package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
	"pgregory.net/rapid"

	"studio/internal/apierr"
	"studio/internal/gateway"
	"studio/internal/providers/gemini/geminitest"
)

func TestStoryboardFourFramesInOrder(t *testing.T) {
	backend := &geminitest.Backend{Content: route(map[string]responder{
		gateway.ModelText:  text(`["castle gate", "drawbridge", "courtyard", "throne room"]`),
		gateway.ModelImage: echoImage,
	})}
	c := newComposer(t, backend)

	board, err := c.Storyboard(context.Background(), StoryboardRequest{Scene: "a knight returns home", Count: 4})
	require.NoError(t, err)
	require.Len(t, board.Frames, 4)
	for i, want := range []string{"castle gate", "drawbridge", "courtyard", "throne room"} {
		frame := board.Frames[i]
		assert.Equal(t, i, frame.Index)
		assert.Equal(t, want, frame.Prompt)
		require.NotNil(t, frame.Image, want)
		assert.Equal(t, want, string(frame.Image.Data))
		assert.Nil(t, frame.Err)
	}
	assert.False(t, board.Run.Failed())
	assert.Len(t, board.Run.Steps, 5)

	for _, call := range backend.ContentCallsFor(gateway.ModelImage) {
		assert.Equal(t, "16:9", call.Config.ImageConfig.AspectRatio)
		assert.Equal(t, "1K", call.Config.ImageConfig.ImageSize)
	}
}

func TestStoryboardDefaultsToFourFrames(t *testing.T) {
	backend := &geminitest.Backend{Content: route(map[string]responder{
		gateway.ModelText:  text(`["one", "two"]`),
		gateway.ModelImage: echoImage,
	})}
	c := newComposer(t, backend)

	board, err := c.Storyboard(context.Background(), StoryboardRequest{Scene: "x"})
	require.NoError(t, err)
	var prompts []string
	for _, f := range board.Frames {
		prompts = append(prompts, f.Prompt)
	}
	assert.Equal(t, []string{"one", "two", "one", "two"}, prompts)
}

func TestStoryboardFramesFailIndependently(t *testing.T) {
	backend := &geminitest.Backend{Content: route(map[string]responder{
		gateway.ModelText: text(`["ok one", "broken", "ok two"]`),
		gateway.ModelImage: func(call geminitest.ContentCall) (*genai.GenerateContentResponse, error) {
			if call.Text() == "broken" {
				return nil, &apierr.Raw{Status: http.StatusServiceUnavailable, Message: "overloaded"}
			}
			return echoImage(call)
		},
	})}
	c := newComposer(t, backend)

	board, err := c.Storyboard(context.Background(), StoryboardRequest{Scene: "x", Count: 3})
	require.NoError(t, err)
	require.Len(t, board.Frames, 3)
	assert.NotNil(t, board.Frames[0].Image)
	assert.Nil(t, board.Frames[1].Image)
	require.NotNil(t, board.Frames[1].Err)
	assert.Equal(t, apierr.KindTransient, board.Frames[1].Err.Kind)
	assert.NotNil(t, board.Frames[2].Image)

	statuses := stepStatuses(board.Run)
	assert.Equal(t, StepSucceeded, statuses["prompts"])
	assert.Equal(t, StepFailed, statuses["frame_2"])
	assert.Equal(t, StepSucceeded, statuses["frame_3"])
	assert.True(t, board.Run.Failed())
}

func TestStoryboardAllFramesFailing(t *testing.T) {
	backend := &geminitest.Backend{Content: route(map[string]responder{
		gateway.ModelText:  text(`["a", "b"]`),
		gateway.ModelImage: text("no image"),
	})}
	c := newComposer(t, backend)

	board, err := c.Storyboard(context.Background(), StoryboardRequest{Scene: "x", Count: 2})
	var apiErr *apierr.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Generation failed.", apiErr.Message)
	require.NotNil(t, board)
	assert.Len(t, board.Frames, 2)
}

func TestStoryboardPromptFailureStops(t *testing.T) {
	backend := &geminitest.Backend{Content: route(map[string]responder{
		gateway.ModelText: func(geminitest.ContentCall) (*genai.GenerateContentResponse, error) {
			return nil, &apierr.Raw{Status: http.StatusForbidden}
		},
	})}
	c := newComposer(t, backend)

	board, err := c.Storyboard(context.Background(), StoryboardRequest{Scene: "x", Count: 2})
	var apiErr *apierr.Error
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.PermissionDenied())
	assert.Empty(t, board.Frames)
	assert.Empty(t, backend.ContentCallsFor(gateway.ModelImage))
}

func TestStoryboardUnparsablePromptsUseScene(t *testing.T) {
	backend := &geminitest.Backend{Content: route(map[string]responder{
		gateway.ModelText:  text("I would rather not"),
		gateway.ModelImage: echoImage,
	})}
	c := newComposer(t, backend)

	board, err := c.Storyboard(context.Background(), StoryboardRequest{Scene: "rain on a tin roof", Count: 2})
	require.NoError(t, err)
	for _, f := range board.Frames {
		assert.Equal(t, "rain on a tin roof", f.Prompt)
	}
}

func TestRemixEditsOneFrame(t *testing.T) {
	backend := &geminitest.Backend{Content: route(map[string]responder{
		gateway.ModelImageEdit: echoImage,
	})}
	c := newComposer(t, backend)

	img, err := c.Remix(context.Background(), RemixRequest{Frame: gateway.Media{Data: []byte("frame")}, Instruction: "make it night"})
	require.NoError(t, err)
	assert.Equal(t, "make it night", string(img.Data))

	_, err = c.Remix(context.Background(), RemixRequest{Frame: gateway.Media{Data: []byte("frame")}})
	assert.Error(t, err)
}

func TestProperty_FitPromptsKeepsOrderAndCount(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 12).Draw(rt, "count")
		n := rapid.IntRange(0, 15).Draw(rt, "n")
		prompts := make([]string, n)
		for i := range prompts {
			prompts[i] = fmt.Sprintf("p%d", i)
		}

		got := fitPrompts(prompts, count, "scene")
		if len(got) != count {
			rt.Fatalf("got %d prompts, want %d", len(got), count)
		}
		for i, p := range got {
			want := "scene"
			if n > 0 {
				want = prompts[i%n]
			}
			if p != want {
				rt.Fatalf("prompt %d = %q, want %q", i, p, want)
			}
		}
	})
}
