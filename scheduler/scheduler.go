package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ovheul/heatplan/entsoe"
	"github.com/ovheul/heatplan/meteo"
	"github.com/ovheul/heatplan/planner"
	"github.com/ovheul/heatplan/utils"
	_ "github.com/lib/pq"
)

// PeriodicTask represents a task that runs periodically with an optional initial delay
type PeriodicTask struct {
	name         string
	initialDelay time.Duration
	interval     time.Duration
	runFunc      func()
}

// run executes the periodic task in a loop, respecting the initial delay and context cancellation
func (pt *PeriodicTask) run(ctx context.Context, stopChan <-chan struct{}, logger *log.Logger) {
	if pt.initialDelay > 0 {
		select {
		case <-time.After(pt.initialDelay):
			pt.runFunc()
		case <-ctx.Done():
			logger.Printf("[%s] Stopped during initial delay due to context cancellation", pt.name)
			return
		case <-stopChan:
			logger.Printf("[%s] Stopped during initial delay due to stop signal", pt.name)
			return
		}
	} else {
		pt.runFunc()
	}

	ticker := time.NewTicker(pt.interval)
	defer ticker.Stop()

	logger.Printf("[%s] Started with interval: %v", pt.name, pt.interval)

	for {
		select {
		case <-ticker.C:
			pt.runFunc()
		case <-ctx.Done():
			logger.Printf("[%s] Stopped due to context cancellation", pt.name)
			return
		case <-stopChan:
			logger.Printf("[%s] Stopped due to stop signal", pt.name)
			return
		}
	}
}

// WeatherForecastCache caches weather forecast data with expiration.
type WeatherForecastCache struct {
	mu            sync.RWMutex
	forecast      *meteo.METJSONForecast
	fetchedAt     time.Time
	cacheDuration time.Duration
}

// Get retrieves the cached weather forecast if it's still valid.
func (w *WeatherForecastCache) Get() (*meteo.METJSONForecast, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.forecast == nil {
		return nil, false
	}
	if time.Since(w.fetchedAt) > w.cacheDuration {
		return nil, false
	}
	return w.forecast, true
}

// Set updates the cached weather forecast with a new value.
func (w *WeatherForecastCache) Set(forecast *meteo.METJSONForecast) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.forecast = forecast
	w.fetchedAt = time.Now()
}

// HeatScheduler runs the periodic planning cycle: refresh forecasts,
// optimize the offset sequence, persist it and actuate the first offset.
type HeatScheduler struct {
	// Configuration
	config *Config

	// State
	priceDocument       *entsoe.PublicationMarketDocument
	priceDocumentExpiry time.Time
	latestPlan          *planner.Output
	latestPlanTime      time.Time
	manualOffset        *int
	lastAppliedOffset   *int
	isRunning           bool
	stopChan            chan struct{}
	mu                  sync.RWMutex

	// Weather forecast cache
	weatherCache WeatherForecastCache

	// Web server
	webServer *WebServer

	// Database connection
	db *sql.DB

	// Logging
	logger *log.Logger

	// Test hooks for dependency injection
	readUnitFunc    func() (float64, int, float64, error) // outdoor temp, current offset, pv power
	writeOffsetFunc func(offset int) error
}

// NewHeatScheduler creates a new scheduler instance
func NewHeatScheduler(config *Config, logger *log.Logger) *HeatScheduler {
	if logger == nil {
		logger = log.Default()
	}

	s := &HeatScheduler{
		config:   config,
		stopChan: make(chan struct{}),
		logger:   logger,
		weatherCache: WeatherForecastCache{
			cacheDuration: 2 * time.Hour,
		},
	}
	return s
}

// NewHeatSchedulerWithWebServer creates a scheduler with the health and
// dashboard server attached.
func NewHeatSchedulerWithWebServer(config *Config, logger *log.Logger) *HeatScheduler {
	s := NewHeatScheduler(config, logger)
	s.webServer = NewWebServer(s, config.HealthCheckPort)
	return s
}

// GetConfig returns the current configuration
func (s *HeatScheduler) GetConfig() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// GetLatestPlan returns the most recent planner output, or nil.
func (s *HeatScheduler) GetLatestPlan() (*planner.Output, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestPlan, s.latestPlanTime
}

// SetManualOffset installs or clears (nil) the operator override.
func (s *HeatScheduler) SetManualOffset(offset *int) {
	s.mu.Lock()
	s.manualOffset = offset
	s.mu.Unlock()
	if s.db != nil {
		if err := s.saveManualOverride(context.Background(), offset); err != nil {
			s.logger.Printf("Warning: failed to persist manual override: %v", err)
		}
	}
}

// getInitialDelay aligns a task to the next interval boundary of the hour.
func (s *HeatScheduler) getInitialDelay(now time.Time, delayInterval time.Duration) time.Duration {
	delay := now.Sub(utils.TruncateToHour(now))
	for delay > 0 {
		delay = delay - delayInterval
	}
	return -delay
}

// Start begins the scheduler's periodic tasks
func (s *HeatScheduler) Start(ctx context.Context, serverOnly bool) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is already running")
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	if s.config.DryRun {
		s.logger.Printf("DRY-RUN MODE ENABLED: Offsets will not be written to the unit")
	}

	// Start web server if configured
	if s.webServer != nil {
		err := s.webServer.Start()
		if err != nil {
			s.logger.Printf("Failed to start web server: %v", err)
		} else {
			s.logger.Printf("Web server started on port %d", s.webServer.port)
		}
		if serverOnly {
			return err
		}
	}

	config := s.GetConfig()

	// Persistence
	if config.PostgresConnString != "" {
		db, err := sql.Open("postgres", config.PostgresConnString)
		if err != nil {
			s.logger.Printf("Persistence: failed to connect to DB: %v", err)
		} else {
			s.db = db
			s.restoreState(ctx)
		}
	}

	now := time.Now()
	planInitialDelay := s.getInitialDelay(now, config.PlanInterval) + time.Second
	actuationInitialDelay := s.getInitialDelay(now, config.ActuationInterval) + 2*time.Second

	tasks := []PeriodicTask{
		{
			name:         "WeatherRefresh",
			initialDelay: 0,
			interval:     config.WeatherUpdateInterval,
			runFunc: func() {
				if _, err := s.getOrFetchWeatherForecast(); err != nil {
					s.logger.Printf("Weather refresh failed: %v", err)
				}
			},
		},
		{
			name:         "PlanningCycle",
			initialDelay: planInitialDelay,
			interval:     config.PlanInterval,
			runFunc: func() {
				if err := s.RunPlanningCycle(ctx); err != nil {
					s.logger.Printf("Planning cycle failed: %v", err)
				}
			},
		},
		{
			name:         "OffsetActuation",
			initialDelay: actuationInitialDelay,
			interval:     config.ActuationInterval,
			runFunc: func() {
				if err := s.runActuation(); err != nil {
					s.logger.Printf("Actuation failed: %v (will retry)", err)
				}
			},
		},
	}

	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		task := task
		go func() {
			defer wg.Done()
			task.run(ctx, s.stopChan, s.logger)
		}()
	}

	wg.Wait()

	s.logger.Printf("All periodic tasks stopped")
	s.stop()
	return nil
}

// Stop gracefully stops the scheduler
func (s *HeatScheduler) Stop() {
	s.stop()
}

func (s *HeatScheduler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	s.isRunning = false

	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}

	if s.webServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.webServer.Stop(ctx); err != nil {
			s.logger.Printf("Error stopping web server: %v", err)
		}
	}
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *HeatScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// SchedulerStatus represents the current status of the scheduler
type SchedulerStatus struct {
	IsRunning     bool       `json:"is_running"`
	HasPriceData  bool       `json:"has_price_data"`
	HasPlan       bool       `json:"has_plan"`
	LastPlanTime  *time.Time `json:"last_plan_time,omitempty"`
	ManualOffset  *int       `json:"manual_offset,omitempty"`
	CurrentOffset *int       `json:"current_offset,omitempty"`
}

// GetStatus returns the current status of the scheduler
func (s *HeatScheduler) GetStatus() SchedulerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := SchedulerStatus{
		IsRunning:     s.isRunning,
		HasPriceData:  s.priceDocument != nil,
		HasPlan:       s.latestPlan != nil,
		ManualOffset:  s.manualOffset,
		CurrentOffset: s.lastAppliedOffset,
	}
	if s.latestPlan != nil {
		t := s.latestPlanTime
		status.LastPlanTime = &t
	}
	return status
}

// RunPlanningCycle gathers forecasts, runs the optimizer, stores and
// persists the result, and applies the first offset.
func (s *HeatScheduler) RunPlanningCycle(ctx context.Context) error {
	start := time.Now()
	s.logger.Printf("Starting planning cycle at %s", start.Format(time.RFC3339))

	input, err := s.buildPlannerInput(ctx, start)
	if err != nil {
		return fmt.Errorf("failed to build planner input: %w", err)
	}

	out, err := planner.Plan(ctx, input)
	if err != nil {
		return fmt.Errorf("planner rejected input: %w", err)
	}

	for _, w := range out.Warnings {
		s.logger.Printf("Planner warning: %s", w)
	}
	s.logger.Printf("Plan status=%s offsets=%v cost=%.4f baseline=%.4f savings=%.4f",
		out.Status, out.Offsets, out.TotalCost, out.BaselineCost, out.TotalSavings)

	s.mu.Lock()
	s.latestPlan = &out
	s.latestPlanTime = start
	s.mu.Unlock()

	if s.webServer != nil {
		s.webServer.BroadcastPlan(&out)
	}

	if s.db != nil && !s.config.DryRun {
		if err := s.savePlan(ctx, start, &out); err != nil {
			s.logger.Printf("Warning: failed to persist plan: %v", err)
		}
	}

	switch out.Status {
	case planner.StatusOK, planner.StatusDegenerateFlat:
		return s.applyOffset(out.Offsets[0])
	case planner.StatusInfeasible:
		s.logger.Printf("Plan infeasible, holding current offset")
		return nil
	default:
		return nil
	}
}

// runActuation re-applies the current plan's offset in case an earlier
// write failed or the unit was power cycled.
func (s *HeatScheduler) runActuation() error {
	s.mu.RLock()
	plan := s.latestPlan
	manual := s.manualOffset
	last := s.lastAppliedOffset
	s.mu.RUnlock()

	var target int
	switch {
	case manual != nil:
		target = *manual
	case plan != nil && (plan.Status == planner.StatusOK || plan.Status == planner.StatusDegenerateFlat):
		target = plan.Offsets[0]
	default:
		return nil
	}

	if last != nil && *last == target {
		return nil
	}
	return s.applyOffset(target)
}

// applyOffset writes the offset to the unit and records it on success.
func (s *HeatScheduler) applyOffset(offset int) error {
	config := s.GetConfig()

	if config.DryRun {
		s.logger.Printf("DRY-RUN: Would write heating-curve offset %+d", offset)
		s.recordAppliedOffset(offset)
		return nil
	}
	if config.HeatPumpAddress == "" && s.writeOffsetFunc == nil {
		s.logger.Printf("No heat pump configured, skipping actuation of offset %+d", offset)
		return nil
	}

	if err := s.writeOffset(offset); err != nil {
		s.mu.Lock()
		s.lastAppliedOffset = nil
		s.mu.Unlock()
		return err
	}

	s.logger.Printf("Applied heating-curve offset %+d", offset)
	s.recordAppliedOffset(offset)
	return nil
}

func (s *HeatScheduler) recordAppliedOffset(offset int) {
	s.mu.Lock()
	o := offset
	s.lastAppliedOffset = &o
	s.mu.Unlock()
}

// restoreState reloads the last persisted plan and manual override after
// a restart so the unit keeps its offset until fresh forecasts arrive.
func (s *HeatScheduler) restoreState(ctx context.Context) {
	if plan, at, err := s.loadLatestPlan(ctx); err != nil {
		s.logger.Printf("Persistence: failed to load last plan: %v", err)
	} else if plan != nil {
		s.mu.Lock()
		s.latestPlan = plan
		s.latestPlanTime = at
		s.mu.Unlock()
		s.logger.Printf("Restored plan from %s", at.Format(time.RFC3339))
	}

	if override, err := s.loadManualOverride(ctx); err != nil {
		s.logger.Printf("Persistence: failed to load manual override: %v", err)
	} else if override != nil {
		s.mu.Lock()
		s.manualOffset = override
		s.mu.Unlock()
		s.logger.Printf("Restored manual override %+d", *override)
	}
}
