package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/spigell/vettavista/internal/api/response"
	"github.com/spigell/vettavista/internal/logger"
	"github.com/spigell/vettavista/internal/models"
)

type PreliminaryFilter interface {
	Filter(ctx context.Context, jobs []models.JobInfo) ([]models.JobStatusResponse, error)
}

type DetailedFilter interface {
	Filter(ctx context.Context, job models.JobDetailedInfo) models.JobStatusResponse
}

// NewPreliminaryFilterHandler returns the handler for POST /api/preliminary-filter.
func NewPreliminaryFilterHandler(svc PreliminaryFilter, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var jobs []models.JobInfo
		if err := json.NewDecoder(r.Body).Decode(&jobs); err != nil {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "Invalid JSON body", nil)
			return
		}
		for i := range jobs {
			if !check(w, &jobs[i]) {
				return
			}
		}
		log.Info("preliminary filter request", zap.Int("jobs", len(jobs)))

		results, err := svc.Filter(r.Context(), jobs)
		if err != nil {
			response.FromError(w, err)
			return
		}
		response.JSON(w, results)
	}
}

// NewDetailedFilterHandler returns the handler for POST /api/detailed-filter.
func NewDetailedFilterHandler(svc DetailedFilter, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var job models.JobDetailedInfo
		if !decode(w, r, &job) {
			return
		}
		log.Info("detailed filter request",
			append(logger.JobFields(job.JobID, job.Title, job.Company),
				zap.String("company_size", job.CompanySize),
				zap.Int("about_company_length", len(job.AboutCompany)),
				zap.Int("description_length", len(job.Description)),
			)...,
		)
		response.JSON(w, svc.Filter(r.Context(), job))
	}
}
