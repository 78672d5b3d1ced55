package pipeline

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"studio/internal/apierr"
	"studio/internal/gateway"
	"studio/internal/videojob"
)

const (
	narratorVoice    = "Fenrir"
	documentaryRatio = "16:9"
)

type DocumentaryRequest struct {
	Text         string `json:"text" validate:"required"`
	Voiceover    bool   `json:"voiceover"`
	Video        bool   `json:"video"`
	SkipThinking bool   `json:"skip_thinking"`
}

// Segment is one enriched script beat. Audio and Video are set only when the
// matching capability was enabled and succeeded.
type Segment struct {
	Index        int              `json:"index"`
	Voiceover    string           `json:"voiceover"`
	VisualPrompt string           `json:"visual_prompt"`
	Audio        *gateway.Audio   `json:"audio,omitempty"`
	Video        *videojob.Result `json:"video,omitempty"`
	AudioErr     *apierr.Error    `json:"audio_error,omitempty"`
	VideoErr     *apierr.Error    `json:"video_error,omitempty"`
}

type Documentary struct {
	Run      *Run      `json:"run"`
	Segments []Segment `json:"segments"`
}

// Documentary turns source text into a script and enriches every segment
// concurrently. Each segment settles its speech and video on its own, so one
// failure never discards a sibling's results. Only a failed script step fails
// the run.
func (c *Composer) Documentary(ctx context.Context, req DocumentaryRequest) (*Documentary, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	run := c.begin("documentary")
	doc := &Documentary{Run: run, Segments: []Segment{}}

	script, err := c.gw.TextToScript(ctx, gateway.ScriptRequest{Text: req.Text, SkipThinking: req.SkipThinking})
	if serr := c.record(run, "script", err); serr != nil {
		return doc, c.end(run, serr)
	}

	doc.Segments = make([]Segment, len(script))
	var g errgroup.Group
	for i, beat := range script {
		g.Go(func() error {
			doc.Segments[i] = c.enrich(ctx, i, beat, req)
			return nil
		})
	}
	_ = g.Wait()

	for _, seg := range doc.Segments {
		n := strconv.Itoa(seg.Index + 1)
		if req.Voiceover {
			c.record(run, "speech_"+n, errOrNil(seg.AudioErr))
		}
		if req.Video {
			c.record(run, "video_"+n, errOrNil(seg.VideoErr))
		}
	}
	return doc, c.end(run, nil)
}

func (c *Composer) enrich(ctx context.Context, index int, beat gateway.ScriptSegment, req DocumentaryRequest) Segment {
	seg := Segment{Index: index, Voiceover: beat.Voiceover, VisualPrompt: beat.VisualPrompt}
	var g errgroup.Group
	if req.Voiceover {
		g.Go(func() error {
			audio, err := c.gw.Speak(ctx, gateway.SpeechRequest{Text: beat.Voiceover, Voice: narratorVoice})
			if err != nil {
				seg.AudioErr = apierr.Normalize(err)
				return nil
			}
			seg.Audio = audio
			return nil
		})
	}
	if req.Video {
		g.Go(func() error {
			job, err := c.videos.Generate(ctx, gateway.VideoRequest{Prompt: beat.VisualPrompt, AspectRatio: documentaryRatio})
			if err != nil {
				seg.VideoErr = apierr.Normalize(err)
				return nil
			}
			seg.Video = videoResult(job)
			return nil
		})
	}
	_ = g.Wait()
	return seg
}
