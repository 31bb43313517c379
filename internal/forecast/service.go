package forecast

import (
	"context"
	"fmt"
	"log"

	"github.com/abelzeko/ache-o-meter/internal/entities"
)

// Assessment is the outcome of one evaluation run
type Assessment struct {
	Findings Report   `json:"findings"`
	Message  string   `json:"message"`
	Sources  []string `json:"sources"`
}

// Service runs the whole pipeline: aggregate, evaluate, compose.
type Service struct {
	aggregator  *Aggregator
	evaluator   *Evaluator
	composer    *Composer
	atmospheric AtmosphericSource
}

// NewService wires the pipeline from its parts
func NewService(aggregator *Aggregator, evaluator *Evaluator, composer *Composer) *Service {
	return &Service{
		aggregator:  aggregator,
		evaluator:   evaluator,
		composer:    composer,
		atmospheric: aggregator.atmospheric,
	}
}

// Assess builds a fresh snapshot for coord and evaluates it.
func (s *Service) Assess(ctx context.Context, coord entities.Coordinate) Assessment {
	snapshot := s.aggregator.Aggregate(ctx, coord)
	if snapshot.Empty() {
		log.Printf("Warning: no forecast data available for %s", coord)
		return Assessment{Findings: Report{}, Message: UnavailableMessage, Sources: []string{}}
	}

	report := s.evaluator.Evaluate(snapshot)
	return Assessment{
		Findings: report,
		Message:  s.composer.Compose(report),
		Sources:  snapshot.Sources(),
	}
}

// Text returns the rendered message for coord.
func (s *Service) Text(ctx context.Context, coord entities.Coordinate) string {
	return s.Assess(ctx, coord).Message
}

// ResolveTimezone asks the atmospheric source which timezone the coordinate is in.
func (s *Service) ResolveTimezone(ctx context.Context, coord entities.Coordinate) (string, error) {
	if s.atmospheric == nil {
		return "", fmt.Errorf("%w: no atmospheric source configured", ErrSourceUnavailable)
	}
	data, err := s.atmospheric.FetchAtmospheric(ctx, coord)
	if err != nil {
		return "", err
	}
	if data.Timezone == "" {
		return "", fmt.Errorf("%w: timezone missing in response", ErrSourceUnavailable)
	}
	return data.Timezone, nil
}
