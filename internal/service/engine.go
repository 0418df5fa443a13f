package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pissten/SMARTi-EMS/internal/gateway"
	"github.com/pissten/SMARTi-EMS/internal/logger"
	"github.com/pissten/SMARTi-EMS/internal/metrics"
	"github.com/pissten/SMARTi-EMS/internal/models"
	"github.com/pissten/SMARTi-EMS/internal/repository"
)

// DefaultActionDelay is the pacing wait after every device action.
const DefaultActionDelay = 90 * time.Second

// Step outcomes reported in StepReport.Action.
const (
	ActionNone    = "none"    // empty category1
	ActionHold    = "hold"    // sensor fault with hold enabled
	ActionShed    = "shed"    // over budget branch
	ActionRestore = "restore" // at/under budget branch
)

// Sleeper waits d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the production Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// EngineOptions tune the control loop.
type EngineOptions struct {
	ActionDelay       time.Duration
	HoldOnSensorFault bool
	Sleep             Sleeper
	Metrics           *metrics.Metrics
	Log               *logger.Logger
}

// StepReport summarizes one control cycle.
type StepReport struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	DrawW     float64       `json:"draw_w"` // first reading of the cycle
	TargetW   float64       `json:"target_w"`
	GapW      float64       `json:"gap_w"`     // gap after the last reading
	SensorOK  bool          `json:"sensor_ok"` // false when the draw fell back to 0
	Action    string        `json:"action"`
	Shed      []string      `json:"shed,omitempty"`
	Restored  []string      `json:"restored,omitempty"`
	Released  []string      `json:"released,omitempty"` // restored because they left category1
	Skipped   []string      `json:"skipped,omitempty"`  // unsupported device kinds
}

// EngineService owns the control cycle. Step is serialized by mu: callers that
// arrive while a cycle runs wait for it to finish and then run their own.
type EngineService struct {
	mu sync.Mutex

	configRepo repository.ConfigRepo
	stateRepo  repository.StateRepo
	eventRepo  repository.EventRepo
	gw         gateway.Gateway

	delay     time.Duration
	hold      bool
	sleep     Sleeper
	metrics   *metrics.Metrics
	log       *logger.Logger
	now       func() time.Time
	lastFault sensorFlag
}

// sensorFlag remembers whether the previous read succeeded, for status views.
type sensorFlag struct {
	mu    sync.RWMutex
	fault bool
}

func (f *sensorFlag) set(fault bool) {
	f.mu.Lock()
	f.fault = fault
	f.mu.Unlock()
}

func NewEngineService(
	configRepo repository.ConfigRepo,
	stateRepo repository.StateRepo,
	eventRepo repository.EventRepo,
	gw gateway.Gateway,
	opts EngineOptions,
) *EngineService {
	if opts.ActionDelay < 0 {
		opts.ActionDelay = 0
	}
	if opts.Sleep == nil {
		opts.Sleep = SleepContext
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	return &EngineService{
		configRepo: configRepo,
		stateRepo:  stateRepo,
		eventRepo:  eventRepo,
		gw:         gw,
		delay:      opts.ActionDelay,
		hold:       opts.HoldOnSensorFault,
		sleep:      opts.Sleep,
		metrics:    opts.Metrics,
		log:        opts.Log,
		now:        time.Now,
	}
}

// ReadDrawW returns the configured power sensor in watts. ok is false when the
// sensor is unset, unreadable or not numeric; the draw is then 0.
func (e *EngineService) ReadDrawW(ctx context.Context, cfg models.Configuration) (float64, bool) {
	id := strings.TrimSpace(cfg.PowerSourceEntity)
	if id == "" {
		return 0, false
	}
	st, err := e.gw.State(ctx, id)
	if err != nil {
		if !errors.Is(err, gateway.ErrNotFound) {
			e.log.Warnw("power_sensor_read_failed", "entity_id", id, "err", err)
		}
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(st.State), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if strings.EqualFold(st.Unit(), "kw") {
		v *= 1000.0
	}
	return v, true
}

// SensorOK reports whether the latest cycle read the power sensor.
func (e *EngineService) SensorOK() bool {
	e.lastFault.mu.RLock()
	defer e.lastFault.mu.RUnlock()
	return !e.lastFault.fault
}

// Step runs one control cycle. Device commands that fail abort the cycle; the
// state persisted up to that point reflects every completed action.
func (e *EngineService) Step(ctx context.Context) (StepReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	started := e.now()
	rep, err := e.step(ctx)
	rep.StartedAt = started.UTC()
	rep.Duration = e.now().Sub(started)
	e.metrics.ObserveStep(rep.Duration)
	if err != nil {
		e.metrics.StepFailed()
	}
	return rep, err
}

func (e *EngineService) step(ctx context.Context) (StepReport, error) {
	var rep StepReport

	cfg, err := e.configRepo.Load(ctx)
	if err != nil {
		return rep, fmt.Errorf("load configuration: %w", err)
	}
	cfg = cfg.Clone()
	loaded, err := e.stateRepo.Load(ctx)
	if err != nil {
		return rep, fmt.Errorf("load runtime state: %w", err)
	}
	st := loaded.Clone()

	draw, ok := e.ReadDrawW(ctx, cfg)
	e.lastFault.set(!ok)
	if !ok {
		e.sensorFault(ctx, cfg)
	}

	target := cfg.TargetW()
	gap := draw - target
	st.LastGapW = gap
	rep.DrawW, rep.TargetW, rep.GapW, rep.SensorOK = draw, target, gap, ok
	e.metrics.ObserveBudget(draw, target, gap)
	if err := e.persist(ctx, st); err != nil {
		return rep, err
	}
	if err := e.releaseUnmanaged(ctx, cfg, &st, &rep); err != nil {
		return rep, err
	}

	switch {
	case !ok && e.hold:
		rep.Action = ActionHold
		e.log.Warnw("step_held", "reason", "sensor_fault", "entity_id", cfg.PowerSourceEntity)
		return rep, nil
	case len(cfg.Category1) == 0:
		rep.Action = ActionNone
		e.log.Debugw("no_category1_devices")
		return rep, e.persist(ctx, st)
	case draw > target:
		rep.Action = ActionShed
		e.log.Infow("over_target", "draw_w", draw, "target_w", target, "gap_w", gap)
		err = e.shedUntilWithinBudget(ctx, cfg, &st, &rep)
	default:
		rep.Action = ActionRestore
		e.log.Infow("under_target", "draw_w", draw, "target_w", target, "devices_off", len(st.DevicesOff))
		err = e.restoreAll(ctx, cfg, &st, &rep)
	}
	if err != nil {
		return rep, err
	}
	return rep, e.persist(ctx, st)
}

// shedUntilWithinBudget walks category1 in priority order, re-reading the
// draw after each device until the gap closes.
func (e *EngineService) shedUntilWithinBudget(ctx context.Context, cfg models.Configuration, st *models.RuntimeState, rep *StepReport) error {
	target := cfg.TargetW()
	gap := rep.GapW
	for _, dev := range cfg.Devices() {
		if gap <= 0 {
			break
		}
		if dev.Kind == models.KindUnsupported {
			e.log.Warnw("unsupported_device_skipped", "entity_id", dev.ID)
			rep.Skipped = append(rep.Skipped, dev.ID)
			continue
		}
		if err := e.shed(ctx, dev, st); err != nil {
			return err
		}
		rep.Shed = append(rep.Shed, dev.ID)
		if err := e.persist(ctx, *st); err != nil {
			return err
		}
		if err := e.sleep(ctx, e.delay); err != nil {
			return err
		}

		draw, ok := e.ReadDrawW(ctx, cfg)
		e.lastFault.set(!ok)
		gap = draw - target
		st.LastGapW = gap
		rep.GapW = gap
		e.metrics.ObserveBudget(draw, target, gap)
		e.log.Infow("gap_after_shed", "entity_id", dev.ID, "draw_w", draw, "gap_w", gap)

		if err := e.sleep(ctx, e.delay); err != nil {
			return err
		}
	}
	return nil
}

// restoreAll turns every shed device back on, lowest priority first. The draw
// is not re-read between devices.
func (e *EngineService) restoreAll(ctx context.Context, cfg models.Configuration, st *models.RuntimeState, rep *StepReport) error {
	devices := cfg.Devices()
	for i := len(devices) - 1; i >= 0; i-- {
		dev := devices[i]
		if !st.IsOff(dev.ID) {
			continue
		}
		if err := e.restore(ctx, dev, st); err != nil {
			return err
		}
		rep.Restored = append(rep.Restored, dev.ID)
		if err := e.persist(ctx, *st); err != nil {
			return err
		}
		if err := e.sleep(ctx, e.delay); err != nil {
			return err
		}
	}
	return nil
}

// releaseUnmanaged restores devices still marked off that are no longer in
// category1, most recently shed first, so devices_off stays a subset of it.
// Each release is persisted and paced like any other restore.
func (e *EngineService) releaseUnmanaged(ctx context.Context, cfg models.Configuration, st *models.RuntimeState, rep *StepReport) error {
	for i := len(st.DevicesOff) - 1; i >= 0; i-- {
		id := st.DevicesOff[i]
		if slices.Contains(cfg.Category1, id) {
			continue
		}
		e.log.Infow("device_left_category1", "entity_id", id)
		if err := e.restore(ctx, models.ResolveDevice(id), st); err != nil {
			return err
		}
		rep.Released = append(rep.Released, id)
		if err := e.persist(ctx, *st); err != nil {
			return err
		}
		if err := e.sleep(ctx, e.delay); err != nil {
			return err
		}
	}
	return nil
}

func (e *EngineService) shed(ctx context.Context, dev models.Device, st *models.RuntimeState) error {
	meta := map[string]any{"kind": dev.Kind.String()}
	switch dev.Kind {
	case models.KindClimate:
		mode := models.HVACOff
		if cur, err := e.gw.State(ctx, dev.ID); err == nil {
			if m := models.HVACMode(cur.State); models.ValidHVACMode(m) {
				mode = m
			}
		}
		st.HVACRestore[dev.ID] = mode
		meta["saved_mode"] = string(mode)
		if err := e.setHVACMode(ctx, dev.ID, models.HVACOff); err != nil {
			return err
		}
	case models.KindSwitch:
		if err := e.callService(ctx, "homeassistant", "turn_off", dev.ID, nil); err != nil {
			return err
		}
	default:
		return fmt.Errorf("shed %s: unsupported device kind", dev.ID)
	}
	st.MarkOff(dev.ID)

	e.metrics.Shed(dev.Kind.String())
	e.metrics.SetDevicesOff(len(st.DevicesOff))
	e.log.Infow("device_shed", "entity_id", dev.ID, "kind", dev.Kind.String())
	e.appendEvent(ctx, models.EventShed, dev.ID, "Device turned off to meet the power budget", meta)
	return nil
}

func (e *EngineService) restore(ctx context.Context, dev models.Device, st *models.RuntimeState) error {
	meta := map[string]any{"kind": dev.Kind.String()}
	switch dev.Kind {
	case models.KindClimate:
		mode, ok := st.HVACRestore[dev.ID]
		if !ok || !models.ValidHVACMode(mode) {
			mode = models.HVACAuto
		}
		meta["mode"] = string(mode)
		if err := e.setHVACMode(ctx, dev.ID, mode); err != nil {
			return err
		}
	case models.KindSwitch:
		if err := e.callService(ctx, "homeassistant", "turn_on", dev.ID, nil); err != nil {
			return err
		}
	default:
		// never shed by this engine; drop the stale entry
		e.log.Warnw("unsupported_device_cleared", "entity_id", dev.ID)
	}
	st.ClearOff(dev.ID)

	e.metrics.Restore(dev.Kind.String())
	e.metrics.SetDevicesOff(len(st.DevicesOff))
	e.log.Infow("device_restored", "entity_id", dev.ID, "kind", dev.Kind.String())
	e.appendEvent(ctx, models.EventRestore, dev.ID, "Device turned back on", meta)
	return nil
}

func (e *EngineService) setHVACMode(ctx context.Context, id string, mode models.HVACMode) error {
	return e.callService(ctx, "climate", "set_hvac_mode", id, map[string]any{"hvac_mode": string(mode)})
}

func (e *EngineService) callService(ctx context.Context, domain, service, id string, extra map[string]any) error {
	data := map[string]any{"entity_id": id}
	for k, v := range extra {
		data[k] = v
	}
	if err := e.gw.CallService(ctx, domain, service, data); err != nil {
		return fmt.Errorf("%s.%s %s: %w", domain, service, id, err)
	}
	return nil
}

func (e *EngineService) persist(ctx context.Context, st models.RuntimeState) error {
	if err := e.stateRepo.Save(ctx, st); err != nil {
		return fmt.Errorf("save runtime state: %w", err)
	}
	return nil
}

func (e *EngineService) sensorFault(ctx context.Context, cfg models.Configuration) {
	if cfg.PowerSourceEntity == "" {
		e.log.Debugw("power_sensor_not_configured")
		return
	}
	e.metrics.SensorFault()
	e.log.Warnw("power_sensor_fault", "entity_id", cfg.PowerSourceEntity, "fallback_w", 0)
	e.appendEvent(ctx, models.EventSensorFault, cfg.PowerSourceEntity,
		"Power sensor unreadable; draw treated as 0 W", map[string]any{"hold": e.hold})
}

// appendEvent is best effort: the event log never fails a cycle.
func (e *EngineService) appendEvent(ctx context.Context, typ, entityID, desc string, meta map[string]any) {
	if e.eventRepo == nil {
		return
	}
	err := e.eventRepo.Append(ctx, models.BudgetEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  e.now().UTC(),
		Type:        typ,
		EntityID:    entityID,
		Description: desc,
		Metadata:    meta,
	})
	if err != nil {
		e.log.Errorw("event_append_failed", "type", typ, "err", err)
	}
}
