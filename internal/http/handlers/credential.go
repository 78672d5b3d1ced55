package handlers

import (
	"context"
	"errors"
	"net/http"

	"studio/internal/apierr"
	"studio/internal/infra/credentials"
)

// credentialStatus never carries the key itself.
type credentialStatus struct {
	Configured    bool   `json:"configured"`
	Source        string `json:"source,omitempty"`
	HostSelection bool   `json:"host_selection"`
}

type credentialUpdate struct {
	Key string `json:"key"`
}

func (a *App) status(res credentials.Resolution, err error) (credentialStatus, error) {
	out := credentialStatus{HostSelection: a.Credentials.HasHost()}
	if errors.Is(err, apierr.ErrNoCredential) {
		return out, nil
	}
	if err != nil {
		return out, err
	}
	out.Configured = true
	out.Source = string(res.Source)
	return out, nil
}

func (a *App) respondCredential(w http.ResponseWriter, r *http.Request, res credentials.Resolution, err error) {
	out, err := a.status(res, err)
	if err != nil {
		a.error(w, r, err)
		return
	}
	a.json(w, http.StatusOK, out)
}

// CredentialStatus re-resolves so host-side selections made since the last
// call are picked up.
func (a *App) CredentialStatus(w http.ResponseWriter, r *http.Request) {
	res, err := a.Credentials.Refresh(r.Context())
	a.respondCredential(w, r, res, err)
}

func (a *App) CredentialUpdate(w http.ResponseWriter, r *http.Request) {
	var req credentialUpdate
	if !a.decode(w, r, &req) {
		return
	}
	if !credentials.Usable(req.Key) {
		a.error(w, r, apierr.New(http.StatusBadRequest, "a non-placeholder key is required"))
		return
	}
	res, err := a.Credentials.Update(r.Context(), req.Key)
	a.forgetClients()
	a.respondCredential(w, r, res, err)
}

func (a *App) CredentialForget(w http.ResponseWriter, r *http.Request) {
	if err := a.Credentials.Forget(r.Context()); err != nil {
		a.error(w, r, err)
		return
	}
	a.forgetClients()
	res, ok := a.Credentials.Status()
	var err error
	if !ok {
		err = apierr.ErrNoCredential
	}
	a.respondCredential(w, r, res, err)
}

func (a *App) CredentialSelect(w http.ResponseWriter, r *http.Request) {
	res, err := a.Credentials.SelectWithHost(r.Context())
	if err != nil && !errors.Is(err, apierr.ErrNoCredential) {
		a.error(w, r, err)
		return
	}
	a.forgetClients()
	a.respondCredential(w, r, res, err)
}

func (a *App) forgetClients() {
	if a.Clients != nil {
		a.Clients.Forget()
	}
	a.Log.Info().Msg("credentials: session credential changed")
}

func (a *App) credentialReady(ctx context.Context) bool {
	_, err := a.Credentials.Credential(ctx)
	return err == nil
}
