package gateway

import (
	"context"
	"net/http"

	"google.golang.org/genai"

	"studio/internal/apierr"
	"studio/internal/providers/gemini"
)

const (
	upscaleInstruction  = "Enhance this image to 4K resolution."
	colorizeInstruction = "Colorize this black and white image naturally. Return the image data."

	defaultImageMIME = "image/png"
)

// imageCall describes one inline-image-in or text-in, inline-image-out
// request. All image capabilities go through it.
type imageCall struct {
	capability  string
	model       string
	input       *Media
	instruction string
	config      *genai.ImageConfig
	failure     string
}

func (g *Gateway) inlineImage(ctx context.Context, c imageCall) (*Image, error) {
	parts := make([]*genai.Part, 0, 2)
	if c.input != nil {
		parts = append(parts, c.input.part(defaultImageMIME))
	}
	parts = append(parts, genai.NewPartFromText(c.instruction))

	var cfg *genai.GenerateContentConfig
	if c.config != nil {
		cfg = &genai.GenerateContentConfig{ImageConfig: c.config}
	}

	var out *Image
	err := g.call(ctx, c.capability, c.model, func(ctx context.Context, b gemini.Backend) error {
		resp, err := b.GenerateContent(ctx, c.model, userContent(parts...), cfg)
		if err != nil {
			return err
		}
		blob := firstInline(resp)
		if blob == nil {
			return apierr.New(http.StatusInternalServerError, c.failure)
		}
		mime := blob.MIMEType
		if mime == "" {
			mime = defaultImageMIME
		}
		out = &Image{Data: blob.Data, MIMEType: mime}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateImage renders an image from a prompt.
func (g *Gateway) GenerateImage(ctx context.Context, req ImageRequest) (*Image, error) {
	if req.AspectRatio == "" {
		req.AspectRatio = DefaultImageAspect
	}
	if req.Size == "" {
		req.Size = DefaultImageSize
	}
	if err := g.check(req); err != nil {
		return nil, err
	}
	return g.inlineImage(ctx, imageCall{
		capability:  "image_generate",
		model:       ModelImage,
		instruction: req.Prompt,
		config:      &genai.ImageConfig{AspectRatio: req.AspectRatio, ImageSize: req.Size},
		failure:     "Generation failed.",
	})
}

// EditImage applies an instruction to an image.
func (g *Gateway) EditImage(ctx context.Context, req EditRequest) (*Image, error) {
	if err := g.check(req); err != nil {
		return nil, err
	}
	return g.inlineImage(ctx, imageCall{
		capability:  "image_edit",
		model:       ModelImageEdit,
		input:       &req.Image,
		instruction: req.Instruction,
		failure:     "Edit failed.",
	})
}

// UpscaleImage re-renders an image at 4K, square.
func (g *Gateway) UpscaleImage(ctx context.Context, img Media) (*Image, error) {
	if err := g.check(img); err != nil {
		return nil, err
	}
	return g.inlineImage(ctx, imageCall{
		capability:  "image_upscale",
		model:       ModelImage,
		input:       &img,
		instruction: upscaleInstruction,
		config:      &genai.ImageConfig{AspectRatio: "1:1", ImageSize: "4K"},
		failure:     "Upscale failed.",
	})
}

// ColorizeImage is an edit with a fixed instruction.
func (g *Gateway) ColorizeImage(ctx context.Context, img Media) (*Image, error) {
	return g.EditImage(ctx, EditRequest{Image: img, Instruction: colorizeInstruction})
}
