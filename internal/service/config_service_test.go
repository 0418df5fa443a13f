package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pissten/SMARTi-EMS/internal/models"
)

func ptr[T any](v T) *T { return &v }

func TestConfigService_GetReturnsStored(t *testing.T) {
	repo := newFakeConfigRepo(models.DefaultConfiguration())
	svc := NewConfigService(repo, nil, nil)

	cfg, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultConfiguration(), cfg)
}

func TestConfigService_UpdateMergesPartially(t *testing.T) {
	stored := models.DefaultConfiguration()
	stored.PowerSourceEntity = "sensor.old"
	stored.Category2 = []string{"switch.keep"}
	repo := newFakeConfigRepo(stored)
	events := &fakeEventRepo{}
	svc := NewConfigService(repo, events, nil)

	got, err := svc.Update(context.Background(), ConfigUpdate{
		EnergyTargetKW: ptr(6.5),
		Category1:      ptr([]string{" climate.a ", "switch.b", "climate.a", ""}),
	})
	require.NoError(t, err)

	assert.Equal(t, "sensor.old", got.PowerSourceEntity)
	assert.Equal(t, 6.5, got.EnergyTargetKW)
	assert.Equal(t, models.ModeNettleie, got.Mode)
	assert.Equal(t, []string{"climate.a", "switch.b"}, got.Category1)
	assert.Equal(t, []string{"switch.keep"}, got.Category2)
	assert.Equal(t, got, repo.cfg)
	assert.Equal(t, []string{models.EventConfigUpdated}, events.types())
}

func TestConfigService_EmptyUpdateSkipsSave(t *testing.T) {
	stored := models.DefaultConfiguration()
	stored.Category1 = []string{"switch.a"}
	repo := newFakeConfigRepo(stored)
	events := &fakeEventRepo{}
	svc := NewConfigService(repo, events, nil)

	got, err := svc.Update(context.Background(), ConfigUpdate{})
	require.NoError(t, err)

	assert.Equal(t, stored, got)
	assert.Zero(t, repo.saves)
	assert.Empty(t, events.types())
}

func TestConfigService_UpdateMode(t *testing.T) {
	repo := newFakeConfigRepo(models.DefaultConfiguration())
	svc := NewConfigService(repo, nil, nil)

	got, err := svc.Update(context.Background(), ConfigUpdate{Mode: ptr(models.Mode(" Flex "))})
	require.NoError(t, err)
	assert.Equal(t, models.ModeFlex, got.Mode)
}

func TestConfigService_UpdateValidation(t *testing.T) {
	tests := []struct {
		name string
		u    ConfigUpdate
	}{
		{"negative target", ConfigUpdate{EnergyTargetKW: ptr(-1.0)}},
		{"nan target", ConfigUpdate{EnergyTargetKW: ptr(math.NaN())}},
		{"infinite target", ConfigUpdate{EnergyTargetKW: ptr(math.Inf(1))}},
		{"unknown mode", ConfigUpdate{Mode: ptr(models.Mode("spot"))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeConfigRepo(models.DefaultConfiguration())
			svc := NewConfigService(repo, nil, nil)

			_, err := svc.Update(context.Background(), tt.u)
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Zero(t, repo.saves)
		})
	}
}

func TestConfigService_UpdateZeroTargetAllowed(t *testing.T) {
	repo := newFakeConfigRepo(models.DefaultConfiguration())
	svc := NewConfigService(repo, nil, nil)

	got, err := svc.Update(context.Background(), ConfigUpdate{EnergyTargetKW: ptr(0.0)})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.EnergyTargetKW)
}

func TestConfigService_UpdateSaveError(t *testing.T) {
	repo := newFakeConfigRepo(models.DefaultConfiguration())
	repo.saveErr = errors.New("readonly")
	svc := NewConfigService(repo, &fakeEventRepo{}, nil)

	_, err := svc.Update(context.Background(), ConfigUpdate{PowerSourceEntity: ptr("sensor.p")})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidConfig))
}

func TestUniqueIDs(t *testing.T) {
	assert.Equal(t, []string{}, uniqueIDs(nil))
	assert.Equal(t, []string{"b", "a"}, uniqueIDs([]string{"b", "a", "b", " a"}))
}
