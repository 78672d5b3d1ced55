package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"studio/internal/apierr"
	"studio/internal/providers/gemini"
)

const (
	visionToCodeInstruction = "Analyze this UI design and provide responsive Tailwind CSS code. Use a thinking budget for best results."
	jsonMIME                = "application/json"
)

// Chat sends a message with prior turns. Web search grounding is always
// attached.
func (g *Gateway) Chat(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	if err := g.check(req); err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, turn := range req.History {
		var role genai.Role = genai.RoleUser
		if turn.Role == "model" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(req.Message, genai.RoleUser))

	cfg := &genai.GenerateContentConfig{
		Tools:          []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		ThinkingConfig: thinking(req.SkipThinking),
	}

	var reply *ChatReply
	err := g.call(ctx, "chat", ModelText, func(ctx context.Context, b gemini.Backend) error {
		resp, err := b.GenerateContent(ctx, ModelText, contents, cfg)
		if err != nil {
			return err
		}
		text := textOf(resp)
		if text == "" {
			return apierr.New(http.StatusInternalServerError, "Chat failed.")
		}
		reply = &ChatReply{Text: text, Links: groundingLinks(resp)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// groundingLinks collects web and maps sources, dropping empty chunks and
// repeated URIs.
func groundingLinks(resp *genai.GenerateContentResponse) []GroundingLink {
	links := []GroundingLink{}
	cand := firstCandidate(resp)
	if cand == nil || cand.GroundingMetadata == nil {
		return links
	}
	seen := map[string]struct{}{}
	add := func(title, uri string) {
		uri = strings.TrimSpace(uri)
		if uri == "" {
			return
		}
		if _, ok := seen[uri]; ok {
			return
		}
		seen[uri] = struct{}{}
		links = append(links, GroundingLink{Title: strings.TrimSpace(title), URI: uri})
	}
	for _, chunk := range cand.GroundingMetadata.GroundingChunks {
		if chunk == nil {
			continue
		}
		if chunk.Web != nil {
			add(chunk.Web.Title, chunk.Web.URI)
		}
		if chunk.Maps != nil {
			add(chunk.Maps.Title, chunk.Maps.URI)
		}
	}
	return links
}

// generateText runs a text-out call and fails when no answer text comes back.
func (g *Gateway) generateText(ctx context.Context, capability string, parts []*genai.Part, cfg *genai.GenerateContentConfig, failure string) (string, error) {
	var out string
	err := g.call(ctx, capability, ModelText, func(ctx context.Context, b gemini.Backend) error {
		resp, err := b.GenerateContent(ctx, ModelText, userContent(parts...), cfg)
		if err != nil {
			return err
		}
		out = textOf(resp)
		if out == "" {
			return apierr.New(http.StatusInternalServerError, failure)
		}
		return nil
	})
	return out, err
}

// AnalyzeMedia answers an instruction about one media item.
func (g *Gateway) AnalyzeMedia(ctx context.Context, req AnalyzeRequest) (string, error) {
	if err := g.check(req); err != nil {
		return "", err
	}
	parts := []*genai.Part{req.Media.part("application/octet-stream"), genai.NewPartFromText(req.Instruction)}
	return g.generateText(ctx, "media_analyze", parts,
		&genai.GenerateContentConfig{ThinkingConfig: thinking(req.SkipThinking)}, "Analysis failed.")
}

// Search answers a query over any number of media items, kept in input order
// ahead of the query.
func (g *Gateway) Search(ctx context.Context, req SearchRequest) (string, error) {
	if err := g.check(req); err != nil {
		return "", err
	}

	parts := make([]*genai.Part, 0, len(req.Media)+1)
	for _, m := range req.Media {
		parts = append(parts, m.part("application/octet-stream"))
	}
	parts = append(parts, genai.NewPartFromText(req.Query))

	return g.generateText(ctx, "omni_search", parts,
		&genai.GenerateContentConfig{ThinkingConfig: thinking(req.SkipThinking)}, "Search failed.")
}

// VisionToCode turns a UI image into responsive markup.
func (g *Gateway) VisionToCode(ctx context.Context, req VisionRequest) (string, error) {
	if err := g.check(req); err != nil {
		return "", err
	}
	parts := []*genai.Part{req.Image.part(defaultImageMIME), genai.NewPartFromText(visionToCodeInstruction)}
	return g.generateText(ctx, "vision_to_code", parts,
		&genai.GenerateContentConfig{ThinkingConfig: thinking(req.SkipThinking)}, "Code generation failed.")
}

// TextToScript decomposes text into documentary segments. A response that is
// not a segment list yields an empty script, not an error.
func (g *Gateway) TextToScript(ctx context.Context, req ScriptRequest) ([]ScriptSegment, error) {
	if err := g.check(req); err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf("Create a professional documentary script (JSON array of segments) from: %q. "+
		"Each segment needs: 'voiceover' (narrator text) and 'visual_prompt' (description for video generator).", req.Text)
	raw, err := g.structured(ctx, "text_to_script", prompt, req.SkipThinking)
	if err != nil {
		return nil, err
	}
	return parseScript(raw), nil
}

// StoryboardPrompts asks for Count frame prompts for a scene. The returned
// list may be shorter or longer than Count; parse failures yield an empty list.
func (g *Gateway) StoryboardPrompts(ctx context.Context, req StoryboardPromptRequest) ([]string, error) {
	if err := g.check(req); err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf("Break down this scene into %d storyboard frames. For each frame, provide a high-detail visual prompt "+
		"for an image generator. Format as JSON array of strings. Scene: %q", req.Count, req.Scene)
	raw, err := g.structured(ctx, "storyboard_prompts", prompt, req.SkipThinking)
	if err != nil {
		return nil, err
	}
	return parsePromptList(raw), nil
}

// structured requests a JSON answer. An empty answer is returned as is so the
// caller's parser decides.
func (g *Gateway) structured(ctx context.Context, capability, prompt string, skipThinking bool) (string, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: jsonMIME,
		ThinkingConfig:   thinking(skipThinking),
	}
	var out string
	err := g.call(ctx, capability, ModelText, func(ctx context.Context, b gemini.Backend) error {
		resp, err := b.GenerateContent(ctx, ModelText, userContent(genai.NewPartFromText(prompt)), cfg)
		if err != nil {
			return err
		}
		out = textOf(resp)
		return nil
	})
	return out, err
}
