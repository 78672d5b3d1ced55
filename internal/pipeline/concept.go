package pipeline

import (
	"context"
	"fmt"
	"net/http"

	"studio/internal/apierr"
	"studio/internal/gateway"
)

type ConceptRequest struct {
	Description string `json:"description" validate:"required"`
	Design      bool   `json:"design"`
	Code        bool   `json:"code"`
}

type Concept struct {
	Run    *Run           `json:"run"`
	Design *gateway.Image `json:"design,omitempty"`
	Code   string         `json:"code,omitempty"`
}

// Concept renders a UI design for a description and turns it into markup.
// Without a design image the markup is written from the description alone.
func (c *Composer) Concept(ctx context.Context, req ConceptRequest) (*Concept, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	if !req.Design && !req.Code {
		return nil, apierr.New(http.StatusBadRequest, "no concept step selected")
	}
	run := c.begin("concept")
	out := &Concept{Run: run}

	err := c.sequence(ctx, run, []step{
		{name: "design", enabled: req.Design, do: func(ctx context.Context) error {
			img, err := c.gw.GenerateImage(ctx, gateway.ImageRequest{
				Prompt:      fmt.Sprintf("Modern UI design for: %s. Professional Figma style.", req.Description),
				AspectRatio: frameAspect,
				Size:        frameSize,
			})
			out.Design = img
			return err
		}},
		{name: "code", enabled: req.Code, do: func(ctx context.Context) error {
			if out.Design != nil {
				code, err := c.gw.VisionToCode(ctx, gateway.VisionRequest{Image: out.Design.Media()})
				out.Code = code
				return err
			}
			reply, err := c.gw.Chat(ctx, gateway.ChatRequest{
				Message: fmt.Sprintf("Write responsive Tailwind CSS code for this UI concept: %s", req.Description),
			})
			if err != nil {
				return err
			}
			out.Code = reply.Text
			return nil
		}},
	})
	return out, c.end(run, err)
}
