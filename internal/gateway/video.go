package gateway

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/genai"

	"studio/internal/apierr"
	"studio/internal/providers/gemini"
)

const (
	VideoKindGenerate = "generate"
	VideoKindExtend   = "extend"

	defaultVideoMIME = "video/mp4"
	videoFailed      = "Video generation failed."
)

// VideoOperation is a submitted video synthesis. It stays bound to the
// backend, and so the credential, it was submitted with.
type VideoOperation struct {
	Kind        string
	Model       string
	AspectRatio string

	op      *genai.GenerateVideosOperation
	backend gemini.Backend
}

// Name is the remote operation name.
func (o *VideoOperation) Name() string {
	if o == nil || o.op == nil {
		return ""
	}
	return o.op.Name
}

// Done reports whether the remote operation finished, successfully or not.
func (o *VideoOperation) Done() bool {
	return o != nil && o.op != nil && o.op.Done
}

func videoConfig(aspect string) *genai.GenerateVideosConfig {
	return &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		Resolution:     VideoResolution,
		AspectRatio:    aspect,
	}
}

// SubmitVideo starts a 720p single-video synthesis, optionally seeded with an
// image.
func (g *Gateway) SubmitVideo(ctx context.Context, req VideoRequest) (*VideoOperation, error) {
	if req.AspectRatio == "" {
		req.AspectRatio = DefaultVideoAspect
	}
	if err := g.check(req); err != nil {
		return nil, err
	}
	source := &genai.GenerateVideosSource{Prompt: req.Prompt}
	if req.SeedImage != nil {
		source.Image = &genai.Image{ImageBytes: req.SeedImage.Data, MIMEType: req.SeedImage.mimeOr(defaultImageMIME)}
	}
	return g.submit(ctx, VideoKindGenerate, ModelVideo, req.AspectRatio, source)
}

// SubmitExtension continues a finished video. Without an explicit aspect
// ratio the one of the continued video is kept.
func (g *Gateway) SubmitExtension(ctx context.Context, req ExtendRequest) (*VideoOperation, error) {
	if err := g.check(req); err != nil {
		return nil, err
	}
	if req.From.video == nil {
		return nil, apierr.Invalid(errors.New("continuation has no video"))
	}
	aspect := req.AspectRatio
	if aspect == "" {
		aspect = req.From.AspectRatio
	}
	if aspect == "" {
		aspect = DefaultVideoAspect
	}
	source := &genai.GenerateVideosSource{Prompt: req.Prompt, Video: req.From.video}
	return g.submit(ctx, VideoKindExtend, ModelVideoExtend, aspect, source)
}

func (g *Gateway) submit(ctx context.Context, kind, model, aspect string, source *genai.GenerateVideosSource) (*VideoOperation, error) {
	var out *VideoOperation
	err := g.call(ctx, "video_"+kind, model, func(ctx context.Context, b gemini.Backend) error {
		op, err := b.GenerateVideos(ctx, model, source, videoConfig(aspect))
		if err != nil {
			return err
		}
		if op == nil {
			return apierr.New(http.StatusInternalServerError, videoFailed)
		}
		out = &VideoOperation{Kind: kind, Model: model, AspectRatio: aspect, op: op, backend: b}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PollVideo refreshes the operation status. A finished operation is returned
// unchanged without contacting the remote service.
func (g *Gateway) PollVideo(ctx context.Context, op *VideoOperation) (*VideoOperation, error) {
	if op == nil || op.op == nil {
		return nil, apierr.Invalid(errors.New("no video operation"))
	}
	if op.Done() {
		return op, nil
	}
	var out *VideoOperation
	err := g.observe(ctx, "video_poll", op.Model, func(ctx context.Context) error {
		next, err := op.backend.GetVideosOperation(ctx, op.op)
		if err != nil {
			return err
		}
		if next == nil {
			return apierr.New(http.StatusInternalServerError, videoFailed)
		}
		copied := *op
		copied.op = next
		out = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FetchVideo downloads the video of a finished operation.
func (g *Gateway) FetchVideo(ctx context.Context, op *VideoOperation) (*VideoResult, error) {
	if !op.Done() {
		return nil, apierr.New(http.StatusConflict, "video operation is not finished")
	}
	var out *VideoResult
	err := g.observe(ctx, "video_fetch", op.Model, func(ctx context.Context) error {
		if len(op.op.Error) > 0 {
			return operationError(op.op.Error)
		}
		video := generatedVideo(op.op)
		if video == nil || (video.URI == "" && len(video.VideoBytes) == 0) {
			return apierr.New(http.StatusInternalServerError, videoFailed)
		}

		data, mime := video.VideoBytes, video.MIMEType
		if len(data) == 0 {
			var err error
			var contentType string
			data, contentType, err = op.backend.Download(ctx, video.URI)
			if err != nil {
				return err
			}
			if mime == "" {
				mime = contentType
			}
		}
		if len(data) == 0 {
			return apierr.New(http.StatusInternalServerError, videoFailed)
		}
		if mime == "" {
			mime = defaultVideoMIME
		}
		out = &VideoResult{
			Data:         data,
			MIMEType:     mime,
			Continuation: &Continuation{video: video, AspectRatio: op.AspectRatio},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func generatedVideo(op *genai.GenerateVideosOperation) *genai.Video {
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 || op.Response.GeneratedVideos[0] == nil {
		return nil
	}
	return op.Response.GeneratedVideos[0].Video
}

// rpcStatus maps the canonical RPC codes an operation may carry onto HTTP
// statuses.
var rpcStatus = map[int]int{
	3:  http.StatusBadRequest,
	4:  http.StatusGatewayTimeout,
	5:  http.StatusNotFound,
	7:  http.StatusForbidden,
	8:  http.StatusTooManyRequests,
	13: http.StatusInternalServerError,
	14: http.StatusServiceUnavailable,
	16: http.StatusUnauthorized,
}

// operationError reads the error payload of a finished operation.
func operationError(payload map[string]any) error {
	raw := &apierr.Raw{}
	var code int
	switch v := payload["code"].(type) {
	case float64:
		code = int(v)
	case int:
		code = v
	case int32:
		code = int(v)
	case int64:
		code = int(v)
	}
	if code >= 100 {
		raw.Status = code
	} else if status, ok := rpcStatus[code]; ok {
		raw.Status = status
	}
	if msg, ok := payload["message"].(string); ok {
		raw.Message = msg
	}
	if status, ok := payload["status"].(string); ok {
		raw.Envelope.Status = status
	}
	if raw.Message == "" {
		raw.Message = videoFailed
	}
	return raw
}
