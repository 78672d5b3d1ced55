package gateway

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"studio/internal/apierr"
	"studio/internal/providers/gemini"
)

func prebuiltVoice(name string) *genai.VoiceConfig {
	return &genai.VoiceConfig{PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: name}}
}

// Speak synthesizes single-voice speech.
func (g *Gateway) Speak(ctx context.Context, req SpeechRequest) (*Audio, error) {
	if req.Voice == "" {
		req.Voice = DefaultVoice
	}
	if err := g.check(req); err != nil {
		return nil, err
	}
	return g.speech(ctx, "speech", req.Text, &genai.SpeechConfig{VoiceConfig: prebuiltVoice(req.Voice)})
}

// Converse synthesizes a two-speaker dialogue. The first speaker always gets
// FirstSpeakerVoice and the second SecondSpeakerVoice.
func (g *Gateway) Converse(ctx context.Context, req ConversationRequest) (*Audio, error) {
	if err := g.check(req); err != nil {
		return nil, err
	}
	text := fmt.Sprintf("Dialogue: %s. Speakers: %s and %s.", req.Prompt, req.Speakers[0], req.Speakers[1])
	cfg := &genai.SpeechConfig{
		MultiSpeakerVoiceConfig: &genai.MultiSpeakerVoiceConfig{
			SpeakerVoiceConfigs: []*genai.SpeakerVoiceConfig{
				{Speaker: req.Speakers[0], VoiceConfig: prebuiltVoice(FirstSpeakerVoice)},
				{Speaker: req.Speakers[1], VoiceConfig: prebuiltVoice(SecondSpeakerVoice)},
			},
		},
	}
	return g.speech(ctx, "speech_conversation", text, cfg)
}

func (g *Gateway) speech(ctx context.Context, capability, text string, speech *genai.SpeechConfig) (*Audio, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig:       speech,
	}
	var out *Audio
	err := g.call(ctx, capability, ModelSpeech, func(ctx context.Context, b gemini.Backend) error {
		resp, err := b.GenerateContent(ctx, ModelSpeech, userContent(genai.NewPartFromText(text)), cfg)
		if err != nil {
			return err
		}
		blob := firstInline(resp)
		if blob == nil {
			return apierr.New(http.StatusInternalServerError, "Speech failed.")
		}
		out = &Audio{
			PCM:           blob.Data,
			SampleRate:    SpeechSampleRate,
			Channels:      SpeechChannels,
			BitsPerSample: SpeechBitsPerSample,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
