package service

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/pissten/SMARTi-EMS/internal/models"
	"github.com/pissten/SMARTi-EMS/internal/repository"
)

// DrawReader reads the live household draw.
type DrawReader interface {
	ReadDrawW(ctx context.Context, cfg models.Configuration) (float64, bool)
}

type MonitoringService struct {
	configRepo repository.ConfigRepo
	stateRepo  repository.StateRepo
	draw       DrawReader
}

func NewMonitoringService(configRepo repository.ConfigRepo, stateRepo repository.StateRepo, draw DrawReader) *MonitoringService {
	return &MonitoringService{configRepo: configRepo, stateRepo: stateRepo, draw: draw}
}

// GetStatus combines a live sensor reading with the persisted bookkeeping.
// It does not take the engine lock, so it may observe a cycle mid-way.
func (s *MonitoringService) GetStatus(ctx context.Context) (models.Status, error) {
	cfg, err := s.configRepo.Load(ctx)
	if err != nil {
		return models.Status{}, err
	}
	st, err := s.stateRepo.Load(ctx)
	if err != nil {
		return models.Status{}, err
	}

	var drawW float64
	var ok bool
	if s.draw != nil {
		drawW, ok = s.draw.ReadDrawW(ctx, cfg)
	}

	st.Normalize()
	return models.Status{
		DynamicPowerW:  drawW,
		EnergyTargetKW: cfg.EnergyTargetKW,
		GapW:           st.LastGapW,
		SensorOK:       ok,
		Mode:           cfg.Mode,
		DevicesOff:     slices.Clone(st.DevicesOff),
		HVACRestore:    maps.Clone(st.HVACRestore),
		ObservedAt:     time.Now().UTC(),
	}, nil
}
