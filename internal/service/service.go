package service

import (
	"context"

	"rms_pipeline/internal/logger"
	"rms_pipeline/internal/models"
	"rms_pipeline/internal/repository"
)

// Pipeline runs the preprocessing stages over a set of units.
type Pipeline interface {
	Run(ctx context.Context, units map[string]models.UnitRecord, p Params) (RunReport, error)
	Stream(ctx context.Context, units map[string]models.UnitRecord, p Params) (<-chan UnitResult, error)
}

// Ingest loads units from the configured source.
type Ingest interface {
	LoadUnits(ctx context.Context, f UnitFilter) (map[string]models.UnitRecord, error)
	CopyTo(ctx context.Context, dst repository.Sink, f UnitFilter) (int, error)
}

// Authorization issues and checks API bearer tokens.
type Authorization interface {
	Enabled() bool
	GenerateToken(key string) (string, error)
	ParseToken(accessToken string) (string, error)
}

type Service struct {
	Pipeline
	Ingest
	Authorization
}

// NewService wires the repository layer into concrete services.
func NewService(repos *repository.Repository, auth AuthConfig, log *logger.Logger) *Service {
	return &Service{
		Pipeline:      NewPipelineRunner(log),
		Ingest:        NewIngestService(repos.Source, log),
		Authorization: NewAuthService(auth),
	}
}
