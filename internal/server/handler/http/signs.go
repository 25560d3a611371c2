package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/atinyakov/roadsigns/internal/catalog"
	"github.com/atinyakov/roadsigns/internal/middleware"
	"github.com/atinyakov/roadsigns/internal/models"
	"github.com/atinyakov/roadsigns/internal/reconcile"
	"github.com/atinyakov/roadsigns/internal/service"
	"github.com/atinyakov/roadsigns/internal/surface"
)

// SignService defines the sign operations required by the SignHandler.
type SignService interface {
	Signs() []models.Observation
	Capture(ctx context.Context, category string) (models.Observation, error)
	Remove(ctx context.Context, id string) (models.Observation, error)
	Markers() []reconcile.Marker
}

// SignHandler handles HTTP requests for the sign collection.
type SignHandler struct {
	SignService SignService
	// Log receives sign changes with the operator identity. May be nil.
	Log *zap.Logger
}

func (h *SignHandler) logChange(r *http.Request, msg string, obs models.Observation) {
	if h.Log == nil {
		return
	}
	h.Log.Info(msg,
		zap.String("identity", middleware.IdentityFromContext(r.Context())),
		zap.String("id", obs.ID),
		zap.String("category", obs.Category),
	)
}

// SignView is one row of the sign list.
type SignView struct {
	models.Observation
	Name        string `json:"name"`
	Badge       string `json:"badge"`
	Coordinates string `json:"coordinates"`
}

func viewOf(obs models.Observation) SignView {
	return SignView{
		Observation: obs,
		Name:        catalog.Name(obs.Category),
		Badge:       catalog.Badge(obs.Category),
		Coordinates: reconcile.FormatCoordinates(obs.Latitude, obs.Longitude),
	}
}

// List handles GET /api/signs.
func (h *SignHandler) List(w http.ResponseWriter, _ *http.Request) {
	signs := h.SignService.Signs()
	out := make([]SignView, 0, len(signs))
	for _, obs := range signs {
		out = append(out, viewOf(obs))
	}
	writeJSON(w, http.StatusOK, out)
}

// Capture handles POST /api/signs with a {"category": "..."} body.
func (h *SignHandler) Capture(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	obs, err := h.SignService.Capture(r.Context(), req.Category)
	if err != nil {
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	h.logChange(r, "sign captured via api", obs)
	writeJSON(w, http.StatusCreated, viewOf(obs))
}

// Remove handles DELETE /api/signs/{id} and reports the removed sign's name.
func (h *SignHandler) Remove(w http.ResponseWriter, r *http.Request) {
	obs, err := h.SignService.Remove(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	h.logChange(r, "sign removed via api", obs)
	writeJSON(w, http.StatusOK, map[string]string{
		"id":      obs.ID,
		"removed": catalog.Name(obs.Category),
	})
}

// Markers handles GET /api/markers, returning the drawn marker layer as a
// GeoJSON FeatureCollection.
func (h *SignHandler) Markers(w http.ResponseWriter, _ *http.Request) {
	markers := h.SignService.Markers()
	ptrs := make([]*reconcile.Marker, len(markers))
	points := make(orb.MultiPoint, len(markers))
	for i := range markers {
		ptrs[i] = &markers[i]
		points[i] = markers[i].Position
	}

	var bound *orb.Bound
	if len(points) > 0 {
		b := points.Bound()
		bound = &b
	}

	body, err := surface.FeatureCollection(ptrs, bound).MarshalJSON()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(body)
}

// Catalog handles GET /api/catalog.
func Catalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, catalog.All())
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionInactive):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrCaptureInProgress), errors.Is(err, service.ErrDuplicateObservation):
		return http.StatusConflict
	case errors.Is(err, service.ErrGeolocationDenied):
		return http.StatusForbidden
	case errors.Is(err, service.ErrGeolocationTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, service.ErrGeolocationUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

