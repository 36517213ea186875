package controllers

import (
	"net/http"

	"github.com/martinsandoval/imagevault-backend/api/responses"
	"github.com/martinsandoval/imagevault-backend/internal/stats"
	pkgerrors "github.com/martinsandoval/imagevault-backend/pkg/errors"
	"github.com/martinsandoval/imagevault-backend/pkg/logger"
)

// GetStats returns the aggregated outcome summary.
func GetStats(svc stats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stats service unavailable"))
			return
		}

		summary, err := svc.Compute(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "compute stats"))
			return
		}
		responses.WriteRaw(w, http.StatusOK, summary)
	}
}
