package pipeline

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"studio/internal/apierr"
	"studio/internal/gateway"
)

const (
	DefaultFrameCount = 4
	frameAspect       = "16:9"
	frameSize         = "1K"
)

type StoryboardRequest struct {
	Scene        string `json:"scene" validate:"required"`
	Count        int    `json:"count" validate:"min=1,max=12"`
	SkipThinking bool   `json:"skip_thinking"`
}

// Frame is one storyboard panel. Image and Err are mutually exclusive.
type Frame struct {
	Index  int            `json:"index"`
	Prompt string         `json:"prompt"`
	Image  *gateway.Image `json:"image,omitempty"`
	Err    *apierr.Error  `json:"error,omitempty"`
}

type Storyboard struct {
	Run    *Run    `json:"run"`
	Frames []Frame `json:"frames"`
}

// Storyboard breaks a scene into frame prompts and renders every frame
// concurrently. Frames fail independently; the call fails only when the
// prompt step fails or no frame could be rendered.
func (c *Composer) Storyboard(ctx context.Context, req StoryboardRequest) (*Storyboard, error) {
	if req.Count == 0 {
		req.Count = DefaultFrameCount
	}
	if err := c.check(req); err != nil {
		return nil, err
	}
	run := c.begin("storyboard")
	board := &Storyboard{Run: run}

	prompts, err := c.gw.StoryboardPrompts(ctx, gateway.StoryboardPromptRequest{
		Scene:        req.Scene,
		Count:        req.Count,
		SkipThinking: req.SkipThinking,
	})
	if perr := c.record(run, "prompts", err); perr != nil {
		return board, c.end(run, perr)
	}

	prompts = fitPrompts(prompts, req.Count, req.Scene)
	board.Frames = make([]Frame, len(prompts))
	var g errgroup.Group
	for i, prompt := range prompts {
		g.Go(func() error {
			frame := Frame{Index: i, Prompt: prompt}
			img, err := c.gw.GenerateImage(ctx, gateway.ImageRequest{Prompt: prompt, AspectRatio: frameAspect, Size: frameSize})
			if err != nil {
				frame.Err = apierr.Normalize(err)
			} else {
				frame.Image = img
			}
			board.Frames[i] = frame
			return nil
		})
	}
	_ = g.Wait()

	var firstErr *apierr.Error
	rendered := 0
	for _, frame := range board.Frames {
		if frame.Err == nil {
			rendered++
		} else if firstErr == nil {
			firstErr = frame.Err
		}
		c.record(run, "frame_"+strconv.Itoa(frame.Index+1), errOrNil(frame.Err))
	}
	if rendered == 0 {
		return board, c.end(run, firstErr)
	}
	return board, c.end(run, nil)
}

// fitPrompts truncates or pads prompts to count. Padding cycles through the
// parsed prompts; with none parsed every frame falls back to the scene.
func fitPrompts(prompts []string, count int, scene string) []string {
	out := make([]string, count)
	for i := range out {
		if len(prompts) == 0 {
			out[i] = scene
			continue
		}
		out[i] = prompts[i%len(prompts)]
	}
	return out
}

type RemixRequest struct {
	Frame       gateway.Media `json:"frame"`
	Instruction string        `json:"instruction" validate:"required"`
}

// Remix reworks a single storyboard frame with an edit instruction.
func (c *Composer) Remix(ctx context.Context, req RemixRequest) (*gateway.Image, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	return c.gw.EditImage(ctx, gateway.EditRequest{Image: req.Frame, Instruction: req.Instruction})
}

// errOrNil keeps a nil *apierr.Error from turning into a non-nil error.
func errOrNil(err *apierr.Error) error {
	if err == nil {
		return nil
	}
	return err
}
