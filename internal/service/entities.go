package service

import (
	"context"
	"slices"
	"strings"

	"github.com/pissten/SMARTi-EMS/internal/gateway"
	"github.com/pissten/SMARTi-EMS/internal/models"
)

type EntitiesService struct {
	gw gateway.Gateway
}

func NewEntitiesService(gw gateway.Gateway) *EntitiesService {
	return &EntitiesService{gw: gw}
}

// States lists entities, optionally limited to the given domains.
func (s *EntitiesService) States(ctx context.Context, domains []string) ([]models.EntityState, error) {
	all, err := s.gw.States(ctx)
	if err != nil {
		return nil, err
	}
	want := make([]string, 0, len(domains))
	for _, d := range domains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			want = append(want, d)
		}
	}
	if len(want) == 0 {
		return all, nil
	}
	out := make([]models.EntityState, 0, len(all))
	for _, e := range all {
		if slices.Contains(want, e.Domain()) {
			out = append(out, e)
		}
	}
	return out, nil
}

// PowerSources lists sensors reporting in W or kW.
func (s *EntitiesService) PowerSources(ctx context.Context) ([]models.PowerSource, error) {
	sensors, err := s.States(ctx, []string{"sensor"})
	if err != nil {
		return nil, err
	}
	out := make([]models.PowerSource, 0)
	for _, e := range sensors {
		unit := e.Unit()
		switch strings.ToLower(unit) {
		case "w", "kw":
			out = append(out, models.PowerSource{
				EntityID: e.EntityID,
				Name:     e.FriendlyName(),
				Unit:     unit,
			})
		}
	}
	return out, nil
}
