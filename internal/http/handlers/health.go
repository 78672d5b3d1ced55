package handlers

import (
	"net/http"
)

type healthResponse struct {
	Status     string `json:"status"`
	Credential bool   `json:"credential"`
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, healthResponse{Status: "ok", Credential: a.credentialReady(r.Context())})
}
