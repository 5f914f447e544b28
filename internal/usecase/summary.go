package usecase

import "context"

// OutcomeSummary aggregates recorded attempts.
type OutcomeSummary struct {
	TotalAttempts    int64             `json:"total_attempts" yaml:"total_attempts"`
	ByOutcome        map[Outcome]int64 `json:"by_outcome" yaml:"by_outcome"`
	MatchRate        float64           `json:"match_rate" yaml:"match_rate"`
	AverageLatencyMs float64           `json:"average_latency_ms" yaml:"average_latency_ms"`
}

// GetOutcomeSummary aggregates attempt outcomes from the attempt log.
func (uc *AuthenticationUseCase) GetOutcomeSummary(ctx context.Context) (*OutcomeSummary, error) {
	if uc.repo == nil {
		return nil, ErrHistoryDisabled
	}
	aggregation, err := uc.repo.AggregateOutcomes(ctx)
	if err != nil {
		return nil, err
	}

	summary := &OutcomeSummary{
		TotalAttempts:    aggregation.TotalCount,
		ByOutcome:        make(map[Outcome]int64, len(aggregation.Counts)),
		AverageLatencyMs: aggregation.AverageLatencyMs,
	}
	for _, c := range aggregation.Counts {
		summary.ByOutcome[Outcome(c.Outcome)] = c.Count
	}

	if aggregation.TotalCount > 0 {
		summary.MatchRate = float64(summary.ByOutcome[OutcomeMatched]) / float64(aggregation.TotalCount)
	}

	return summary, nil
}
