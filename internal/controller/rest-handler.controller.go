package controller

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sharetube/jam/internal/service/jam"
)

type createJamRequest struct {
	AccountId    string `json:"account_id" validate:"required,max=128"`
	Name         string `json:"name" validate:"required,max=64"`
	MaxSongCount int    `json:"max_song_count" validate:"gte=0,lte=100"`
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
	TokenExpiry  int64  `json:"token_expiry" validate:"required"`
}

type createJamResponse struct {
	JamId  string `json:"jam_id"`
	HostId string `json:"host_id"`
}

func (c controller) createJam(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createJamRequest
	if err := c.readJSON(w, r, &req); err != nil {
		c.writeError(ctx, w, http.StatusUnprocessableEntity, err)
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		c.writeJSON(ctx, w, http.StatusBadRequest, envelope{"errors": validationErrors})
		return
	}

	res, err := c.jamService.CreateJam(ctx, &jam.CreateJamParams{
		AccountId:    req.AccountId,
		Name:         req.Name,
		MaxSongCount: req.MaxSongCount,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		TokenExpiry:  req.TokenExpiry,
	})
	if err != nil {
		c.writeError(ctx, w, statusFor(err), err)
		return
	}

	c.writeJSON(ctx, w, http.StatusCreated, envelope{"data": createJamResponse{
		JamId:  res.JamId,
		HostId: res.HostId,
	}})
}

type joinJamRequest struct {
	Name string `json:"name" validate:"required,max=32"`
}

type joinJamResponse struct {
	UserId string `json:"user_id"`
}

func (c controller) joinJam(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jamId := chi.URLParam(r, "jam-id")

	var req joinJamRequest
	if err := c.readJSON(w, r, &req); err != nil {
		c.writeError(ctx, w, http.StatusUnprocessableEntity, err)
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		c.writeJSON(ctx, w, http.StatusBadRequest, envelope{"errors": validationErrors})
		return
	}

	res, err := c.jamService.JoinJam(ctx, &jam.JoinJamParams{
		JamId: jamId,
		Name:  req.Name,
	})
	if err != nil {
		c.writeError(ctx, w, statusFor(err), err)
		return
	}

	c.writeJSON(ctx, w, http.StatusCreated, envelope{"data": joinJamResponse{
		UserId: res.UserId,
	}})
}

func (c controller) deleteJam(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hostId := r.URL.Query().Get("id")
	if hostId == "" {
		c.writeError(ctx, w, http.StatusUnauthorized, errors.New("id is required"))
		return
	}

	if err := c.jamService.DeleteJam(ctx, hostId); err != nil {
		c.writeError(ctx, w, statusFor(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type transferPlaybackRequest struct {
	DeviceId string `json:"device_id" validate:"required,max=128"`
}

func (c controller) transferPlayback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hostId := r.URL.Query().Get("id")
	if hostId == "" {
		c.writeError(ctx, w, http.StatusUnauthorized, errors.New("id is required"))
		return
	}

	var req transferPlaybackRequest
	if err := c.readJSON(w, r, &req); err != nil {
		c.writeError(ctx, w, http.StatusUnprocessableEntity, err)
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		c.writeJSON(ctx, w, http.StatusBadRequest, envelope{"errors": validationErrors})
		return
	}

	if err := c.jamService.TransferPlayback(ctx, hostId, req.DeviceId); err != nil {
		c.writeError(ctx, w, statusFor(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
