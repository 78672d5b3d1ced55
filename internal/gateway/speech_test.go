package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"studio/internal/providers/gemini/geminitest"
)

func TestSpeakDefaultsVoice(t *testing.T) {
	backend := &geminitest.Backend{
		Content: func(context.Context, geminitest.ContentCall) (*genai.GenerateContentResponse, error) {
			return geminitest.InlineResponse([]byte{0x01, 0x00, 0xff, 0x7f}, "audio/L16;rate=24000"), nil
		},
	}
	g, _ := newTestGateway(t, backend)

	audio, err := g.Speak(context.Background(), SpeechRequest{Text: "Hello there"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00, 0xff, 0x7f}, audio.PCM)
	assert.Equal(t, 24000, audio.SampleRate)
	assert.Equal(t, 1, audio.Channels)
	assert.Equal(t, 16, audio.BitsPerSample)

	call := backend.ContentCalls()[0]
	assert.Equal(t, ModelSpeech, call.Model)
	assert.Equal(t, []string{"AUDIO"}, call.Config.ResponseModalities)
	assert.Equal(t, "Kore", call.Config.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)
}

func TestSpeakWithoutAudioFails(t *testing.T) {
	backend := &geminitest.Backend{
		Content: func(context.Context, geminitest.ContentCall) (*genai.GenerateContentResponse, error) {
			return geminitest.TextResponse("I cannot speak"), nil
		},
	}
	g, _ := newTestGateway(t, backend)

	audio, err := g.Speak(context.Background(), SpeechRequest{Text: "x", Voice: "Fenrir"})
	assert.Nil(t, audio)
	assert.Equal(t, "Speech failed.", asAPIError(t, err).Message)
}

func TestConverseMapsSpeakersToFixedVoices(t *testing.T) {
	backend := &geminitest.Backend{
		Content: func(context.Context, geminitest.ContentCall) (*genai.GenerateContentResponse, error) {
			return geminitest.InlineResponse([]byte{0, 0}, "audio/pcm"), nil
		},
	}
	g, _ := newTestGateway(t, backend)

	_, err := g.Converse(context.Background(), ConversationRequest{Prompt: "two friends plan a trip", Speakers: [2]string{"Ana", "Ben"}})
	require.NoError(t, err)

	call := backend.ContentCalls()[0]
	assert.Equal(t, "Dialogue: two friends plan a trip. Speakers: Ana and Ben.", call.Text())
	speakers := call.Config.SpeechConfig.MultiSpeakerVoiceConfig.SpeakerVoiceConfigs
	require.Len(t, speakers, 2)
	assert.Equal(t, "Ana", speakers[0].Speaker)
	assert.Equal(t, "Kore", speakers[0].VoiceConfig.PrebuiltVoiceConfig.VoiceName)
	assert.Equal(t, "Ben", speakers[1].Speaker)
	assert.Equal(t, "Puck", speakers[1].VoiceConfig.PrebuiltVoiceConfig.VoiceName)
}
