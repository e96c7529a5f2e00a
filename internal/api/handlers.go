package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"evpredict/internal/dataset"
	"evpredict/internal/model"
	"evpredict/internal/predict"
	"evpredict/internal/registry"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

type modelsResponse struct {
	Models  []string `json:"models"`
	Default *string  `json:"default"`
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	resp := modelsResponse{Models: s.reg.List()}
	if def := s.reg.Default(); def != "" {
		resp.Default = &def
	}
	writeJSON(w, http.StatusOK, resp)
}

type statsResponse struct {
	TotalModels       int      `json:"total_models"`
	AvailableModels   []string `json:"available_models"`
	PredictionRecords int      `json:"prediction_records"`
	CitiesCovered     []string `json:"cities_covered"`
	FeaturesUsed      []string `json:"features_used"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	records := 0
	if s.store != nil {
		if n, err := s.store.Count(); err == nil {
			records = n
		}
	}
	writeJSON(w, http.StatusOK, statsResponse{
		TotalModels:       s.reg.Len(),
		AvailableModels:   s.reg.List(),
		PredictionRecords: records,
		CitiesCovered:     []string{"Delhi"},
		FeaturesUsed:      model.FeatureNames,
	})
}

type predictRequest struct {
	Locations []predict.Location `json:"locations"`
	ModelName string             `json:"model_name"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if len(req.Locations) == 0 {
		writeError(w, http.StatusBadRequest, "locations cannot be empty")
		return
	}

	result, err := s.service.Predict(req.Locations, req.ModelName)
	if err != nil {
		var batchErr *predict.BatchError
		switch {
		case errors.Is(err, registry.ErrNoModels):
			writeError(w, http.StatusServiceUnavailable, "No models available")
		case errors.As(err, &batchErr):
			writeError(w, http.StatusInternalServerError, "Prediction failed: "+batchErr.Err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	s.live.broadcast(result)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleFeatureImportance(w http.ResponseWriter, r *http.Request) {
	importance, err := s.service.FeatureImportance()
	if err != nil {
		if errors.Is(err, registry.ErrNoModels) {
			writeError(w, http.StatusServiceUnavailable, "No models available")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, importance)
}

type existingPredictionsResponse struct {
	TotalRecords    int              `json:"total_records"`
	ReturnedRecords int              `json:"returned_records"`
	Predictions     []dataset.Record `json:"predictions"`
}

func (s *Server) handleExistingPredictions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "No prediction data available")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	total, err := s.store.Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if total == 0 {
		writeError(w, http.StatusNotFound, "No prediction data available")
		return
	}

	records, err := s.store.Records(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, existingPredictionsResponse{
		TotalRecords:    total,
		ReturnedRecords: len(records),
		Predictions:     records,
	})
}
