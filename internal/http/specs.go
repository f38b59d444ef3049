package http

import (
	"net/http"
	"strings"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/alignment"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/model"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/repository"
)

type vehicleSpecsRequest struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  int    `json:"year"`
}

type specificationResponse struct {
	ID             string           `json:"id"`
	Make           string           `json:"make"`
	Model          string           `json:"model"`
	Year           int              `json:"year"`
	TrimLevel      *string          `json:"trim_level"`
	Specifications alignment.Ranges `json:"specifications"`
}

func (s *Server) handleVehicleSpecs(w http.ResponseWriter, r *http.Request) {
	var req vehicleSpecsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Make = strings.TrimSpace(req.Make)
	req.Model = strings.TrimSpace(req.Model)
	if req.Make == "" || req.Model == "" || req.Year == 0 {
		writeError(w, http.StatusBadRequest, "missing_parameters")
		return
	}

	lookup, err := alignment.LookupSpecification(r.Context(), s.store, req.Make, req.Model, req.Year)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "vehicle specification lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, lookup)
}

func (s *Server) handleListSpecifications(w http.ResponseWriter, r *http.Request) {
	filter := repository.SpecFilter{
		Make:  strings.TrimSpace(r.URL.Query().Get("make")),
		Model: strings.TrimSpace(r.URL.Query().Get("model")),
	}
	specs, err := s.store.ListSpecifications(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	resp := make([]specificationResponse, 0, len(specs))
	for _, spec := range specs {
		resp = append(resp, mapSpecification(spec))
	}
	writeJSON(w, http.StatusOK, resp)
}

func mapSpecification(spec model.VehicleSpecification) specificationResponse {
	return specificationResponse{
		ID:             spec.ID,
		Make:           spec.Make,
		Model:          spec.Model,
		Year:           spec.Year,
		TrimLevel:      spec.TrimLevel,
		Specifications: alignment.RangesOf(spec),
	}
}
