package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/couchcryptid/storm-plots-service/internal/domain"
	"github.com/couchcryptid/storm-plots-service/internal/imagestore"
)

type stormImages struct {
	StormID string            `json:"storm_id"`
	Kinds   []domain.PlotKind `json:"kinds"`
	Images  map[string]string `json:"images"`
}

type stormsResponse struct {
	Date   string        `json:"date"`
	Storms []stormImages `json:"storms"`
}

type datedImages struct {
	Date   string            `json:"date"`
	Kinds  []domain.PlotKind `json:"kinds"`
	Images map[string]string `json:"images"`
}

type stormResponse struct {
	StormID string        `json:"storm_id"`
	Dates   []datedImages `json:"dates"`
}

func (s *Server) handleDates(w http.ResponseWriter, r *http.Request) {
	dates, err := s.images.Dates(r.Context())
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	if dates == nil {
		dates = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"dates": dates})
}

// handleStorms lists the storms with images on ?date=, defaulting to the
// newest date in the store.
func (s *Server) handleStorms(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	date := r.URL.Query().Get("date")
	if date == "" {
		dates, err := s.images.Dates(ctx)
		if err != nil {
			s.storeError(w, r, err)
			return
		}
		if len(dates) == 0 {
			writeJSON(w, http.StatusOK, stormsResponse{Storms: []stormImages{}})
			return
		}
		date = dates[len(dates)-1]
	}

	ids, err := s.images.Storms(ctx, date)
	if err != nil {
		s.storeError(w, r, err)
		return
	}

	resp := stormsResponse{Date: date, Storms: make([]stormImages, 0, len(ids))}
	for _, id := range ids {
		kinds, err := s.images.Kinds(ctx, date, id)
		if err != nil {
			s.storeError(w, r, err)
			return
		}
		if len(kinds) == 0 {
			continue
		}
		resp.Storms = append(resp.Storms, stormImages{StormID: id, Kinds: kinds, Images: imageURLs(date, id, kinds)})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleStorm lists every date and kind stored for one storm.
func (s *Server) handleStorm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := imagestore.CanonicalStormID(r.PathValue("storm_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dates, err := s.images.Dates(ctx)
	if err != nil {
		s.storeError(w, r, err)
		return
	}

	resp := stormResponse{StormID: id, Dates: []datedImages{}}
	for _, date := range dates {
		kinds, err := s.images.Kinds(ctx, date, id)
		if err != nil {
			s.storeError(w, r, err)
			return
		}
		if len(kinds) > 0 {
			resp.Dates = append(resp.Dates, datedImages{Date: date, Kinds: kinds, Images: imageURLs(date, id, kinds)})
		}
	}
	if len(resp.Dates) == 0 {
		writeError(w, http.StatusNotFound, "no images for storm "+id)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	key, err := imagestore.NewKey(r.PathValue("date"), r.PathValue("storm_id"), domain.PlotKind(r.PathValue("kind")))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := s.images.Get(r.Context(), key)
	if err != nil {
		s.storeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	n, err := w.Write(data)
	s.metrics.ImageBytesServed.Add(float64(n))
	if err != nil {
		s.logger.Warn("image write failed", "key", key.Path(), "error", err)
	}
}

// storeError maps image store errors onto status codes.
func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, imagestore.ErrInvalidKey):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, imagestore.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("image store error", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func imageURLs(date, stormID string, kinds []domain.PlotKind) map[string]string {
	urls := make(map[string]string, len(kinds))
	for _, k := range kinds {
		urls[string(k)] = "/api/images/" + date + "/" + stormID + "/" + string(k)
	}
	return urls
}
