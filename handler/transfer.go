package handler

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/stevemurr/poi-editor-server/geojson"
	"github.com/stevemurr/poi-editor-server/logging"
	"github.com/stevemurr/poi-editor-server/poi"
	"github.com/stevemurr/poi-editor-server/spatial"
)

const maxImportSize = 32 << 20

type importResponse struct {
	Report  geojson.Report `json:"report"`
	Summary string         `json:"summary"`
}

// importGeoJSON accepts a raw JSON body or a multipart upload in the "file"
// field. The import ticket is taken before the body is read so a slow upload
// cannot overwrite a newer one.
func (h *Handler) importGeoJSON(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "import-geojson")
	defer span.End()
	logger := logging.GetLoggerFromContext(ctx)

	ticket := h.manager.BeginImport()

	data, err := readUpload(w, r)
	if err != nil {
		span.RecordError(err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := ticket.ApplyBytes(ctx, data)
	switch {
	case errors.Is(err, geojson.ErrInvalidJSON):
		writeError(w, http.StatusBadRequest, "Invalid JSON file")
		return
	case errors.Is(err, poi.ErrStaleImport):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		span.RecordError(err)
		writeMutation(w, http.StatusOK, nil, err)
		return
	}

	logger.Info().
		Int("accepted", len(report.Accepted)).
		Int("rejected", report.Rejected).
		Msg("GeoJSON imported")
	writeJSON(w, http.StatusOK, importResponse{Report: report, Summary: report.Summary()})
}

func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	defer r.Body.Close()

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		f, _, err := r.FormFile("file")
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	return io.ReadAll(r.Body)
}

// downloadWriter delivers an export as an attachment.
type downloadWriter struct {
	w http.ResponseWriter
}

func (d downloadWriter) WriteFile(_ context.Context, name string, data []byte) error {
	d.w.Header().Set("Content-Type", "application/json")
	d.w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": filepath.Base(name)}))
	d.w.WriteHeader(http.StatusOK)
	_, err := d.w.Write(data)
	return err
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	if err := h.manager.Export(r.Context(), filename, downloadWriter{w: w}); err != nil {
		logger := logging.GetLoggerFromContext(r.Context())
		logger.Error().Err(err).Msg("export failed")
	}
}

type resolveRequest struct {
	Feature    spatial.Click `json:"feature"`
	View       *spatial.View `json:"view,omitempty"`
	Multiplier *float64      `json:"multiplier,omitempty"`
}

type resolveResponse struct {
	Index int  `json:"index"`
	Found bool `json:"found"`
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	idx, found := h.manager.ResolveClick(req.Feature, req.View, req.Multiplier)
	writeJSON(w, http.StatusOK, resolveResponse{Index: idx, Found: found})
}
