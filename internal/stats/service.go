package stats

import (
	"context"
	"fmt"
	"math"

	"github.com/martinsandoval/imagevault-backend/pkg/db/models"
	"github.com/martinsandoval/imagevault-backend/pkg/enums"
)

type outcomeRepo interface {
	ListOutcomes(ctx context.Context) ([]models.ProcessingOutcome, error)
}

// Summary aggregates every recorded outcome. The success rate counts pending
// attempts against the total, so it only reaches 100% once all work is done.
type Summary struct {
	Total                        int    `json:"total"`
	Failed                       int    `json:"failed"`
	SuccessRate                  string `json:"success_rate"`
	AverageProcessingTimeSeconds int    `json:"average_processing_time_seconds"`
}

// Service computes outcome statistics.
type Service interface {
	Compute(ctx context.Context) (*Summary, error)
}

type service struct {
	repo outcomeRepo
}

func NewService(repo outcomeRepo) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Compute(ctx context.Context) (*Summary, error) {
	outcomes, err := s.repo.ListOutcomes(ctx)
	if err != nil {
		return nil, err
	}

	total := len(outcomes)
	failed := 0
	succeeded := 0
	var durationSum float64
	var durationCount int

	for _, outcome := range outcomes {
		switch outcome.Status {
		case enums.OutcomeStatusFailed:
			failed++
		case enums.OutcomeStatusSuccess:
			succeeded++
		}
		if outcome.EndedAt != nil {
			durationSum += outcome.EndedAt.Sub(outcome.StartedAt).Seconds()
			durationCount++
		}
	}

	rate := "0.00%"
	if total > 0 {
		rate = fmt.Sprintf("%.2f%%", float64(succeeded)/float64(total)*100)
	}

	avg := 0
	if durationCount > 0 {
		avg = int(math.Round(durationSum / float64(durationCount)))
	}

	return &Summary{
		Total:                        total,
		Failed:                       failed,
		SuccessRate:                  rate,
		AverageProcessingTimeSeconds: avg,
	}, nil
}
