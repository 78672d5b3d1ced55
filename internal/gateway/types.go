package gateway

import (
	"encoding/base64"
	"fmt"

	"google.golang.org/genai"
)

// Model identifiers per capability.
const (
	ModelText        = "gemini-3-pro-preview"
	ModelImage       = "gemini-3-pro-image-preview"
	ModelImageEdit   = "gemini-2.5-flash-image"
	ModelSpeech      = "gemini-2.5-flash-preview-tts"
	ModelVideo       = "veo-3.1-fast-generate-preview"
	ModelVideoExtend = "veo-3.1-generate-preview"

	// ThinkingBudget is the reasoning budget requested whenever thinking is on.
	ThinkingBudget int32 = 32768
)

// Supported option values.
var (
	ImageAspectRatios = []string{"1:1", "2:3", "3:2", "3:4", "4:3", "9:16", "16:9", "21:9"}
	ImageSizes        = []string{"1K", "2K", "4K"}
	VideoAspectRatios = []string{"16:9", "9:16"}
	Voices            = []string{"Kore", "Puck", "Charon", "Fenrir", "Zephyr"}
)

const (
	DefaultImageAspect = "1:1"
	DefaultImageSize   = "1K"
	DefaultVideoAspect = "16:9"
	DefaultVoice       = "Kore"
	VideoResolution    = "720p"

	// Conversation speakers always map to these voices in order.
	FirstSpeakerVoice  = "Kore"
	SecondSpeakerVoice = "Puck"

	// PCM format of every speech result.
	SpeechSampleRate    = 24000
	SpeechChannels      = 1
	SpeechBitsPerSample = 16
)

// Media is binary input tagged with its MIME type.
type Media struct {
	Data     []byte `json:"data" validate:"required,min=1"`
	MIMEType string `json:"mime_type"`
}

func (m Media) mimeOr(fallback string) string {
	if m.MIMEType == "" {
		return fallback
	}
	return m.MIMEType
}

func (m Media) part(fallback string) *genai.Part {
	return genai.NewPartFromBytes(m.Data, m.mimeOr(fallback))
}

// Image is an inline image returned by an image capability.
type Image struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mime_type"`
}

// DataURL renders the image as a data URL for direct display.
func (i *Image) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", i.MIMEType, base64.StdEncoding.EncodeToString(i.Data))
}

// Media returns the image as an input for a follow-up call.
func (i *Image) Media() Media {
	return Media{Data: i.Data, MIMEType: i.MIMEType}
}

// Audio is raw little-endian PCM.
type Audio struct {
	PCM           []byte `json:"pcm"`
	SampleRate    int    `json:"sample_rate"`
	Channels      int    `json:"channels"`
	BitsPerSample int    `json:"bits_per_sample"`
}

// Turn is one prior chat exchange entry. Role is "user" or "model".
type Turn struct {
	Role string `json:"role" validate:"required,oneof=user model"`
	Text string `json:"text" validate:"required"`
}

type ChatRequest struct {
	Message      string `json:"message" validate:"required"`
	History      []Turn `json:"history" validate:"dive"`
	SkipThinking bool   `json:"skip_thinking"`
}

// GroundingLink is a web or maps source the reply was grounded on.
type GroundingLink struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

type ChatReply struct {
	Text  string          `json:"text"`
	Links []GroundingLink `json:"links"`
}

type ImageRequest struct {
	Prompt      string `json:"prompt" validate:"required"`
	AspectRatio string `json:"aspect_ratio" validate:"oneof=1:1 2:3 3:2 3:4 4:3 9:16 16:9 21:9"`
	Size        string `json:"size" validate:"oneof=1K 2K 4K"`
}

type EditRequest struct {
	Image       Media  `json:"image"`
	Instruction string `json:"instruction" validate:"required"`
}

type SpeechRequest struct {
	Text  string `json:"text" validate:"required"`
	Voice string `json:"voice" validate:"oneof=Kore Puck Charon Fenrir Zephyr"`
}

type ConversationRequest struct {
	Prompt   string    `json:"prompt" validate:"required"`
	Speakers [2]string `json:"speakers" validate:"dive,required"`
}

type AnalyzeRequest struct {
	Media        Media  `json:"media"`
	Instruction  string `json:"instruction" validate:"required"`
	SkipThinking bool   `json:"skip_thinking"`
}

type SearchRequest struct {
	Media        []Media `json:"media" validate:"dive"`
	Query        string  `json:"query" validate:"required"`
	SkipThinking bool    `json:"skip_thinking"`
}

type VisionRequest struct {
	Image        Media `json:"image"`
	SkipThinking bool  `json:"skip_thinking"`
}

type ScriptRequest struct {
	Text         string `json:"text" validate:"required"`
	SkipThinking bool   `json:"skip_thinking"`
}

// ScriptSegment is one narrated documentary beat.
type ScriptSegment struct {
	Voiceover    string `json:"voiceover"`
	VisualPrompt string `json:"visual_prompt"`
}

type StoryboardPromptRequest struct {
	Scene        string `json:"scene" validate:"required"`
	Count        int    `json:"count" validate:"min=1,max=12"`
	SkipThinking bool   `json:"skip_thinking"`
}

type VideoRequest struct {
	Prompt      string `json:"prompt" validate:"required"`
	AspectRatio string `json:"aspect_ratio" validate:"oneof=16:9 9:16"`
	SeedImage   *Media `json:"seed_image,omitempty"`
}

type ExtendRequest struct {
	From        *Continuation `json:"-" validate:"required"`
	Prompt      string        `json:"prompt" validate:"required"`
	AspectRatio string        `json:"aspect_ratio" validate:"omitempty,oneof=16:9 9:16"`
}

// Continuation is the resumable end state of a finished video, passed
// unchanged into an extension call.
type Continuation struct {
	video       *genai.Video
	AspectRatio string `json:"aspect_ratio"`
}

// VideoResult is a fetched video plus the handle to extend it.
type VideoResult struct {
	Data         []byte
	MIMEType     string
	Continuation *Continuation
}
