package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/stevemurr/poi-editor-server/poi"
)

// Zoom hints for fitting the map to the collection.
const (
	singlePointZoom = 14
	fitMaxZoom      = 15
	fitPadding      = 50
)

func (h *Handler) getPOIs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.GetData())
}

func (h *Handler) countPOIs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"count": h.manager.GetPointCount()})
}

type boundsResponse struct {
	Empty   bool           `json:"empty"`
	Bounds  *[2][2]float64 `json:"bounds,omitempty"`
	Center  *[2]float64    `json:"center,omitempty"`
	Zoom    float64        `json:"zoom,omitempty"`
	MaxZoom float64        `json:"maxZoom,omitempty"`
	Padding int            `json:"padding,omitempty"`
}

// boundsPOIs tells the front-end how to fit the map to the points: a single
// point is centred at a fixed zoom, several are fitted to their bounding box.
func (h *Handler) boundsPOIs(w http.ResponseWriter, r *http.Request) {
	data := h.manager.GetData()
	b, ok := data.Bounds()
	if !ok {
		writeJSON(w, http.StatusOK, boundsResponse{Empty: true})
		return
	}

	if data.Len() == 1 {
		center := [2]float64(data.Features[0].Point())
		writeJSON(w, http.StatusOK, boundsResponse{Center: &center, Zoom: singlePointZoom})
		return
	}

	bounds := [2][2]float64{
		{b.Min.Lon(), b.Min.Lat()},
		{b.Max.Lon(), b.Max.Lat()},
	}
	center := [2]float64(b.Center())
	writeJSON(w, http.StatusOK, boundsResponse{
		Bounds:  &bounds,
		Center:  &center,
		MaxZoom: fitMaxZoom,
		Padding: fitPadding,
	})
}

type addRequest struct {
	Lon      *float64 `json:"lon"`
	Lat      *float64 `json:"lat"`
	Name     *string  `json:"name"`
	Category *string  `json:"category"`
}

func (h *Handler) addPOI(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Lon == nil || req.Lat == nil {
		writeError(w, http.StatusBadRequest, "lon and lat are required")
		return
	}
	if *req.Lon < -180 || *req.Lon > 180 || *req.Lat < -90 || *req.Lat > 90 {
		writeError(w, http.StatusBadRequest, "coordinates out of range")
		return
	}

	// absent fields get the defaults, explicit values are kept as sent
	name := lo.FromPtrOr(req.Name, poi.DefaultName)
	category := lo.FromPtrOr(req.Category, poi.DefaultCategory)

	f, err := h.manager.AddPoint(r.Context(), *req.Lon, *req.Lat, name, category)
	writeMutation(w, http.StatusCreated, f, err)
}

func (h *Handler) clearPOIs(w http.ResponseWriter, r *http.Request) {
	h.manager.Clear(r.Context())
	writeJSON(w, http.StatusOK, h.manager.GetData())
}

// pathIndex parses the {index} URL parameter. Any integer is accepted;
// out-of-range values are no-ops in the manager.
func pathIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid index")
		return 0, false
	}
	return idx, true
}

func (h *Handler) updatePOI(w http.ResponseWriter, r *http.Request) {
	idx, ok := pathIndex(w, r)
	if !ok {
		return
	}
	var u poi.Update
	if err := readJSON(r, &u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	err := h.manager.UpdatePoint(r.Context(), idx, u)
	writeMutation(w, http.StatusOK, h.manager.GetData(), err)
}

func (h *Handler) deletePOI(w http.ResponseWriter, r *http.Request) {
	idx, ok := pathIndex(w, r)
	if !ok {
		return
	}
	err := h.manager.DeletePoint(r.Context(), idx)
	writeMutation(w, http.StatusOK, h.manager.GetData(), err)
}

func (h *Handler) updatePOIByID(w http.ResponseWriter, r *http.Request) {
	var u poi.Update
	if err := readJSON(r, &u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	found, err := h.manager.UpdatePointByID(r.Context(), chi.URLParam(r, "id"), u)
	if !found {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeMutation(w, http.StatusOK, h.manager.GetData(), err)
}

func (h *Handler) deletePOIByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	found, err := h.manager.DeletePointByID(r.Context(), id)
	if !found {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeMutation(w, http.StatusOK, map[string]string{"status": "deleted", "id": id}, err)
}
