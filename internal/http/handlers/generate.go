package handlers

import (
	"net/http"

	"studio/internal/gateway"
)

type imageResponse struct {
	*gateway.Image
	DataURL string `json:"data_url"`
}

type mediaRequest struct {
	Image gateway.Media `json:"image"`
}

type textResponse struct {
	Text string `json:"text"`
}

type scriptResponse struct {
	Segments []gateway.ScriptSegment `json:"segments"`
}

func (a *App) image(w http.ResponseWriter, r *http.Request, img *gateway.Image, err error) {
	if err != nil {
		a.error(w, r, err)
		return
	}
	a.json(w, http.StatusOK, imageResponse{Image: img, DataURL: img.DataURL()})
}

func (a *App) text(w http.ResponseWriter, r *http.Request, text string, err error) {
	if err != nil {
		a.error(w, r, err)
		return
	}
	a.json(w, http.StatusOK, textResponse{Text: text})
}

func (a *App) audio(w http.ResponseWriter, r *http.Request, audio *gateway.Audio, err error) {
	if err != nil {
		a.error(w, r, err)
		return
	}
	a.json(w, http.StatusOK, audio)
}

func (a *App) Chat(w http.ResponseWriter, r *http.Request) {
	var req gateway.ChatRequest
	if !a.decode(w, r, &req) {
		return
	}
	reply, err := a.Gateway.Chat(r.Context(), req)
	if err != nil {
		a.error(w, r, err)
		return
	}
	a.json(w, http.StatusOK, reply)
}

func (a *App) ImageGenerate(w http.ResponseWriter, r *http.Request) {
	var req gateway.ImageRequest
	if !a.decode(w, r, &req) {
		return
	}
	img, err := a.Gateway.GenerateImage(r.Context(), req)
	a.image(w, r, img, err)
}

func (a *App) ImageEdit(w http.ResponseWriter, r *http.Request) {
	var req gateway.EditRequest
	if !a.decode(w, r, &req) {
		return
	}
	img, err := a.Gateway.EditImage(r.Context(), req)
	a.image(w, r, img, err)
}

func (a *App) ImageUpscale(w http.ResponseWriter, r *http.Request) {
	var req mediaRequest
	if !a.decode(w, r, &req) {
		return
	}
	img, err := a.Gateway.UpscaleImage(r.Context(), req.Image)
	a.image(w, r, img, err)
}

func (a *App) ImageColorize(w http.ResponseWriter, r *http.Request) {
	var req mediaRequest
	if !a.decode(w, r, &req) {
		return
	}
	img, err := a.Gateway.ColorizeImage(r.Context(), req.Image)
	a.image(w, r, img, err)
}

func (a *App) Speech(w http.ResponseWriter, r *http.Request) {
	var req gateway.SpeechRequest
	if !a.decode(w, r, &req) {
		return
	}
	audio, err := a.Gateway.Speak(r.Context(), req)
	a.audio(w, r, audio, err)
}

func (a *App) Conversation(w http.ResponseWriter, r *http.Request) {
	var req gateway.ConversationRequest
	if !a.decode(w, r, &req) {
		return
	}
	audio, err := a.Gateway.Converse(r.Context(), req)
	a.audio(w, r, audio, err)
}

func (a *App) MediaAnalyze(w http.ResponseWriter, r *http.Request) {
	var req gateway.AnalyzeRequest
	if !a.decode(w, r, &req) {
		return
	}
	out, err := a.Gateway.AnalyzeMedia(r.Context(), req)
	a.text(w, r, out, err)
}

func (a *App) MediaSearch(w http.ResponseWriter, r *http.Request) {
	var req gateway.SearchRequest
	if !a.decode(w, r, &req) {
		return
	}
	out, err := a.Gateway.Search(r.Context(), req)
	a.text(w, r, out, err)
}

func (a *App) VisionCode(w http.ResponseWriter, r *http.Request) {
	var req gateway.VisionRequest
	if !a.decode(w, r, &req) {
		return
	}
	out, err := a.Gateway.VisionToCode(r.Context(), req)
	a.text(w, r, out, err)
}

func (a *App) Script(w http.ResponseWriter, r *http.Request) {
	var req gateway.ScriptRequest
	if !a.decode(w, r, &req) {
		return
	}
	segments, err := a.Gateway.TextToScript(r.Context(), req)
	if err != nil {
		a.error(w, r, err)
		return
	}
	a.json(w, http.StatusOK, scriptResponse{Segments: segments})
}
