package pipeline

import (
	"context"
	"fmt"

	"studio/internal/gateway"
)

type DubbingRequest struct {
	Media          gateway.Media `json:"media"`
	TargetLanguage string        `json:"target_language" validate:"required"`
	Language       string        `json:"language"`
	Speech         bool          `json:"speech"`
}

type Dub struct {
	Run         *Run           `json:"run"`
	Translation string         `json:"translation"`
	Audio       *gateway.Audio `json:"audio,omitempty"`
}

// Dubbing transcribes and translates a clip, then optionally re-voices the
// translation with the narrator voice.
func (c *Composer) Dubbing(ctx context.Context, req DubbingRequest) (*Dub, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	run := c.begin("dubbing")
	out := &Dub{Run: run}

	err := c.sequence(ctx, run, []step{
		{name: "translate", enabled: true, do: func(ctx context.Context) error {
			instruction := fmt.Sprintf("Transcribe this video and translate it into %s. Language: %s. Keep the emotional tone.",
				languageName(req.TargetLanguage), languageName(req.Language))
			text, err := c.gw.AnalyzeMedia(ctx, gateway.AnalyzeRequest{Media: req.Media, Instruction: instruction})
			out.Translation = text
			return err
		}},
		{name: "speech", enabled: req.Speech, do: func(ctx context.Context) error {
			audio, err := c.gw.Speak(ctx, gateway.SpeechRequest{Text: out.Translation, Voice: narratorVoice})
			out.Audio = audio
			return err
		}},
	})
	return out, c.end(run, err)
}
