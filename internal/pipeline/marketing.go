package pipeline

import (
	"context"
	"fmt"
	"net/http"

	"studio/internal/apierr"
	"studio/internal/gateway"
	"studio/internal/videojob"
)

const (
	promoImageInstruction = "Place this product in a luxury, professional studio setting with cinematic lighting. Commercial photography style."
	promoVideoRatio       = "16:9"
)

type MarketingRequest struct {
	Photo      gateway.Media `json:"photo"`
	Brand      string        `json:"brand" validate:"required"`
	Language   string        `json:"language"`
	AdCopy     bool          `json:"ad_copy"`
	PromoImage bool          `json:"promo_image"`
	PromoVideo bool          `json:"promo_video"`
}

type MarketingKit struct {
	Run        *Run             `json:"run"`
	AdCopy     string           `json:"ad_copy,omitempty"`
	PromoImage *gateway.Image   `json:"promo_image,omitempty"`
	PromoVideo *videojob.Result `json:"promo_video,omitempty"`
}

// Marketing builds campaign assets from one product photo. Steps run in order
// and the first failure aborts the rest of the run.
func (c *Composer) Marketing(ctx context.Context, req MarketingRequest) (*MarketingKit, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	if !req.AdCopy && !req.PromoImage && !req.PromoVideo {
		return nil, apierr.New(http.StatusBadRequest, "no marketing asset selected")
	}
	run := c.begin("marketing")
	kit := &MarketingKit{Run: run}
	lang := languageName(req.Language)

	err := c.sequence(ctx, run, []step{
		{name: "ad_copy", enabled: req.AdCopy, do: func(ctx context.Context) error {
			instruction := fmt.Sprintf("Create 3 catchy professional marketing ad copies for this product. Brand Name: %s. Language: %s.",
				req.Brand, lang)
			text, err := c.gw.AnalyzeMedia(ctx, gateway.AnalyzeRequest{Media: req.Photo, Instruction: instruction})
			kit.AdCopy = text
			return err
		}},
		{name: "promo_image", enabled: req.PromoImage, do: func(ctx context.Context) error {
			img, err := c.gw.EditImage(ctx, gateway.EditRequest{Image: req.Photo, Instruction: promoImageInstruction})
			kit.PromoImage = img
			return err
		}},
		{name: "promo_video", enabled: req.PromoVideo, do: func(ctx context.Context) error {
			seed := req.Photo
			job, err := c.videos.Generate(ctx, gateway.VideoRequest{
				Prompt:      fmt.Sprintf("Premium product reveal for %s. Elegant lighting, smooth cinematic pans.", req.Brand),
				AspectRatio: promoVideoRatio,
				SeedImage:   &seed,
			})
			if err != nil {
				return err
			}
			kit.PromoVideo = videoResult(job)
			return nil
		}},
	})
	return kit, c.end(run, err)
}
