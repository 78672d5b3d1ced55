package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"studio/internal/gateway"
	"studio/internal/videojob"
)

type videoExtendRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
}

type videoListResponse struct {
	Jobs []*videojob.Job `json:"jobs"`
}

// VideosGenerate starts a synthesis and answers 202 with the pending job.
// With ?wait=true it blocks until the video is stored instead. Either way the
// job stays registered until consumed.
func (a *App) VideosGenerate(w http.ResponseWriter, r *http.Request) {
	var req gateway.VideoRequest
	if !a.decode(w, r, &req) {
		return
	}

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		job, err := a.Videos.Run(r.Context(), req)
		if err != nil {
			a.error(w, r, err)
			return
		}
		a.json(w, http.StatusOK, job)
		return
	}

	job, err := a.Videos.Start(r.Context(), req)
	if err != nil {
		a.error(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, job)
}

func (a *App) VideoExtend(w http.ResponseWriter, r *http.Request) {
	var req videoExtendRequest
	if !a.decode(w, r, &req) {
		return
	}
	job, err := a.Videos.StartExtension(r.Context(), chi.URLParam(r, "id"), req.Prompt, req.AspectRatio)
	if err != nil {
		a.error(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, job)
}

func (a *App) VideoList(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, videoListResponse{Jobs: a.Videos.List()})
}

func (a *App) VideoStatus(w http.ResponseWriter, r *http.Request) {
	job, err := a.Videos.Get(chi.URLParam(r, "id"))
	if err != nil {
		a.error(w, r, err)
		return
	}
	a.json(w, http.StatusOK, job)
}

// VideoConsume hands a finished job to the caller and forgets it. The stored
// file stays in the media store unless ?discard=true.
func (a *App) VideoConsume(w http.ResponseWriter, r *http.Request) {
	consume := a.Videos.Consume
	if discard, _ := strconv.ParseBool(r.URL.Query().Get("discard")); discard {
		consume = a.Videos.Discard
	}
	job, err := consume(chi.URLParam(r, "id"))
	if err != nil {
		a.error(w, r, err)
		return
	}
	a.json(w, http.StatusOK, job)
}
