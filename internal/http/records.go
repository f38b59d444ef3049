package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/alignment"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/auth"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/model"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/repository"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/validation"
)

const (
	defaultRecordLimit = 50
	maxRecordLimit     = 500
)

type recordRequest struct {
	VehicleMake      string  `json:"vehicle_make"`
	VehicleModel     string  `json:"vehicle_model"`
	VehicleYear      int     `json:"vehicle_year"`
	VIN              *string `json:"vin"`
	LicensePlate     *string `json:"license_plate"`
	Mileage          *int    `json:"mileage"`
	CustomerName     *string `json:"customer_name"`
	CustomerPhone    *string `json:"customer_phone"`
	AlignmentType    *string `json:"alignment_type"`
	CompletionStatus string  `json:"completion_status"`
	TechnicianName   *string `json:"technician_name"`
	ServiceAdvisor   *string `json:"service_advisor"`
	WorkOrderNumber  *string `json:"work_order_number"`
	Notes            *string `json:"notes"`
	model.Measurements
	BeforeMeasurements json.RawMessage `json:"before_measurements"`
	AfterMeasurements  json.RawMessage `json:"after_measurements"`
	Specifications     json.RawMessage `json:"specifications"`
}

type recordResponse struct {
	ID               string                 `json:"id"`
	UserID           string                 `json:"user_id"`
	OwnerEmail       string                 `json:"owner_email,omitempty"`
	VehicleMake      string                 `json:"vehicle_make"`
	VehicleModel     string                 `json:"vehicle_model"`
	VehicleYear      int                    `json:"vehicle_year"`
	VIN              *string                `json:"vin"`
	LicensePlate     *string                `json:"license_plate"`
	Mileage          *int                   `json:"mileage"`
	CustomerName     *string                `json:"customer_name"`
	CustomerPhone    *string                `json:"customer_phone"`
	AlignmentType    *string                `json:"alignment_type"`
	CompletionStatus model.CompletionStatus `json:"completion_status"`
	TechnicianName   *string                `json:"technician_name"`
	ServiceAdvisor   *string                `json:"service_advisor"`
	WorkOrderNumber  *string                `json:"work_order_number"`
	Notes            *string                `json:"notes"`
	model.Measurements
	BeforeMeasurements json.RawMessage `json:"before_measurements,omitempty"`
	AfterMeasurements  json.RawMessage `json:"after_measurements,omitempty"`
	Specifications     json.RawMessage `json:"specifications,omitempty"`
	CreatedAt          string          `json:"created_at"`
	UpdatedAt          string          `json:"updated_at"`
}

type evaluationResponse struct {
	RecordID      string               `json:"record_id"`
	Specification alignment.Lookup     `json:"specification"`
	Evaluation    alignment.Evaluation `json:"evaluation"`
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	var req recordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	record, code := buildRecord(req, claims.UserID, time.Now().UTC())
	if code != "" {
		writeError(w, http.StatusBadRequest, code)
		return
	}

	created, err := s.store.CreateRecord(r.Context(), record)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "user_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusCreated, mapRecord(created, ""))
}

// buildRecord validates and normalizes a record request. It returns an error
// code when the request is rejected.
func buildRecord(req recordRequest, userID string, now time.Time) (model.AlignmentRecord, string) {
	record := model.AlignmentRecord{
		UserID:             userID,
		VehicleMake:        validation.SanitizeText(req.VehicleMake),
		VehicleModel:       validation.SanitizeText(req.VehicleModel),
		VehicleYear:        req.VehicleYear,
		Mileage:            req.Mileage,
		CompletionStatus:   model.CompletionPending,
		CustomerName:       sanitizeOptional(req.CustomerName),
		AlignmentType:      sanitizeOptional(req.AlignmentType),
		TechnicianName:     sanitizeOptional(req.TechnicianName),
		ServiceAdvisor:     sanitizeOptional(req.ServiceAdvisor),
		WorkOrderNumber:    sanitizeOptional(req.WorkOrderNumber),
		Notes:              sanitizeOptional(req.Notes),
		Measurements:       req.Measurements,
		BeforeMeasurements: req.BeforeMeasurements,
		AfterMeasurements:  req.AfterMeasurements,
		Specifications:     req.Specifications,
	}
	if record.VehicleMake == "" || record.VehicleModel == "" {
		return record, "missing_vehicle"
	}
	if err := validation.VehicleYear(req.VehicleYear, now); err != nil {
		return record, err.Error()
	}
	if req.CompletionStatus != "" {
		status, ok := model.ParseCompletionStatus(req.CompletionStatus)
		if !ok {
			return record, "invalid_completion_status"
		}
		record.CompletionStatus = status
	}
	if req.VIN != nil && strings.TrimSpace(*req.VIN) != "" {
		vin, err := validation.VIN(*req.VIN)
		if err != nil {
			return record, err.Error()
		}
		record.VIN = &vin
	}
	if req.LicensePlate != nil && strings.TrimSpace(*req.LicensePlate) != "" {
		plate, err := validation.LicensePlate(*req.LicensePlate)
		if err != nil {
			return record, err.Error()
		}
		record.LicensePlate = &plate
	}
	if req.Mileage != nil {
		if err := validation.Mileage(*req.Mileage); err != nil {
			return record, err.Error()
		}
	}
	if req.CustomerPhone != nil && strings.TrimSpace(*req.CustomerPhone) != "" {
		phone, err := validation.Phone(*req.CustomerPhone)
		if err != nil {
			return record, err.Error()
		}
		record.CustomerPhone = &phone
	}
	if err := validation.Measurements(req.Measurements); err != nil {
		return record, err.Error()
	}
	for _, raw := range []json.RawMessage{req.BeforeMeasurements, req.AfterMeasurements, req.Specifications} {
		if len(raw) > 0 && !json.Valid(raw) {
			return record, "invalid_request"
		}
	}
	return record, ""
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	records, err := s.store.ListRecords(r.Context(), claims.UserID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	resp := make([]recordResponse, 0, len(records))
	for _, record := range records {
		resp = append(resp, mapRecord(record, ""))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecordStats(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	records, err := s.store.ListRecords(r.Context(), claims.UserID, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, alignment.Summarize(records, time.Now().UTC()))
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	record, ok := s.loadVisibleRecord(w, r, claims)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, mapRecord(record, ""))
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	record, ok := s.loadVisibleRecord(w, r, claims)
	if !ok {
		return
	}
	if record.UserID != claims.UserID && claims.Role != model.RoleAdmin {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	if err := s.store.DeleteRecord(r.Context(), record.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "record_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEvaluateRecord(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	record, ok := s.loadVisibleRecord(w, r, claims)
	if !ok {
		return
	}
	lookup, err := alignment.LookupSpecification(r.Context(), s.store, record.VehicleMake, record.VehicleModel, record.VehicleYear)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, evaluationResponse{
		RecordID:      record.ID,
		Specification: lookup,
		Evaluation:    alignment.Evaluate(record.Measurements, lookup.Ranges),
	})
}

// loadVisibleRecord fetches the record named in the path if the caller owns
// it or is staff.
func (s *Server) loadVisibleRecord(w http.ResponseWriter, r *http.Request, claims *auth.Claims) (model.AlignmentRecord, bool) {
	recordID := chi.URLParam(r, "recordId")
	if recordID == "" {
		writeError(w, http.StatusBadRequest, "missing_record_id")
		return model.AlignmentRecord{}, false
	}
	record, err := s.store.GetRecord(r.Context(), recordID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "record_not_found")
			return model.AlignmentRecord{}, false
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return model.AlignmentRecord{}, false
	}
	if record.UserID != claims.UserID && !claims.Role.CanViewAdminData() {
		writeError(w, http.StatusNotFound, "record_not_found")
		return model.AlignmentRecord{}, false
	}
	return record, true
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultRecordLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_limit")
		return 0, false
	}
	if limit > maxRecordLimit {
		limit = maxRecordLimit
	}
	return limit, true
}

func sanitizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	clean := validation.SanitizeText(*value)
	if clean == "" {
		return nil
	}
	return &clean
}

func mapRecord(record model.AlignmentRecord, ownerEmail string) recordResponse {
	return recordResponse{
		ID:                 record.ID,
		UserID:             record.UserID,
		OwnerEmail:         ownerEmail,
		VehicleMake:        record.VehicleMake,
		VehicleModel:       record.VehicleModel,
		VehicleYear:        record.VehicleYear,
		VIN:                record.VIN,
		LicensePlate:       record.LicensePlate,
		Mileage:            record.Mileage,
		CustomerName:       record.CustomerName,
		CustomerPhone:      record.CustomerPhone,
		AlignmentType:      record.AlignmentType,
		CompletionStatus:   record.CompletionStatus,
		TechnicianName:     record.TechnicianName,
		ServiceAdvisor:     record.ServiceAdvisor,
		WorkOrderNumber:    record.WorkOrderNumber,
		Notes:              record.Notes,
		Measurements:       record.Measurements,
		BeforeMeasurements: record.BeforeMeasurements,
		AfterMeasurements:  record.AfterMeasurements,
		Specifications:     record.Specifications,
		CreatedAt:          formatTime(record.CreatedAt),
		UpdatedAt:          formatTime(record.UpdatedAt),
	}
}
