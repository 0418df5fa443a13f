package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pissten/SMARTi-EMS/internal/logger"
	"github.com/pissten/SMARTi-EMS/internal/models"
	"github.com/pissten/SMARTi-EMS/internal/repository"
)

// ErrInvalidConfig wraps every validation failure of a configuration update.
var ErrInvalidConfig = errors.New("invalid configuration")

type ConfigService struct {
	configRepo repository.ConfigRepo
	eventRepo  repository.EventRepo
	log        *logger.Logger
}

func NewConfigService(configRepo repository.ConfigRepo, eventRepo repository.EventRepo, log *logger.Logger) *ConfigService {
	if log == nil {
		log = logger.Nop()
	}
	return &ConfigService{configRepo: configRepo, eventRepo: eventRepo, log: log}
}

// Get returns the stored configuration, or the default when none is stored.
func (s *ConfigService) Get(ctx context.Context) (models.Configuration, error) {
	return s.configRepo.Load(ctx)
}

// Update merges u into the stored configuration and saves the result. The
// next control cycle picks it up. An empty update returns the stored
// configuration without saving or logging an event.
func (s *ConfigService) Update(ctx context.Context, u ConfigUpdate) (models.Configuration, error) {
	cur, err := s.configRepo.Load(ctx)
	if err != nil {
		return models.Configuration{}, err
	}
	if u.Empty() {
		return cur, nil
	}
	next := cur.Clone()

	if u.PowerSourceEntity != nil {
		next.PowerSourceEntity = strings.TrimSpace(*u.PowerSourceEntity)
	}
	if u.EnergyTargetKW != nil {
		kw := *u.EnergyTargetKW
		if math.IsNaN(kw) || math.IsInf(kw, 0) || kw < 0 {
			return models.Configuration{}, fmt.Errorf("%w: energy_target_kw must be a finite number >= 0", ErrInvalidConfig)
		}
		next.EnergyTargetKW = kw
	}
	if u.Mode != nil {
		m := models.Mode(strings.ToLower(strings.TrimSpace(string(*u.Mode))))
		if !models.ValidMode(m) {
			return models.Configuration{}, fmt.Errorf("%w: mode must be nettleie, pris or flex", ErrInvalidConfig)
		}
		next.Mode = m
	}
	if u.Category1 != nil {
		next.Category1 = uniqueIDs(*u.Category1)
	}
	if u.Category2 != nil {
		next.Category2 = uniqueIDs(*u.Category2)
	}
	if u.Category3 != nil {
		next.Category3 = uniqueIDs(*u.Category3)
	}
	next.Normalize()

	for _, dev := range next.Devices() {
		if dev.Kind == models.KindUnsupported {
			s.log.Warnw("category1_unsupported_device", "entity_id", dev.ID)
		}
	}

	if err := s.configRepo.Save(ctx, next); err != nil {
		return models.Configuration{}, err
	}
	s.log.Infow("config_updated", "target_kw", next.EnergyTargetKW, "mode", next.Mode, "category1", len(next.Category1))

	if s.eventRepo != nil {
		err := s.eventRepo.Append(ctx, models.BudgetEvent{
			EventID:     uuid.NewString(),
			OccurredAt:  time.Now().UTC(),
			Type:        models.EventConfigUpdated,
			EntityID:    next.PowerSourceEntity,
			Description: "Configuration updated",
			Metadata: map[string]any{
				"energy_target_kw": next.EnergyTargetKW,
				"mode":             next.Mode,
				"category1":        next.Category1,
			},
		})
		if err != nil {
			s.log.Errorw("event_append_failed", "type", models.EventConfigUpdated, "err", err)
		}
	}
	return next, nil
}

// uniqueIDs trims ids, drops blanks and keeps the first occurrence of each.
func uniqueIDs(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, id := range in {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
