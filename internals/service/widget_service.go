package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"exchange-widget/internals/adapter/exchangerateapi"
	"exchange-widget/internals/chart"
	"exchange-widget/internals/core/domain"
	"exchange-widget/internals/repository"

	"go.uber.org/zap"
)

// Renderer is the presentation port the widget drives. Implementations must
// treat RenderChart as replacing whatever chart was shown before.
type Renderer interface {
	ShowLoading()
	HideLoading()
	RenderCurrentRate(display domain.RateDisplay)
	RenderLastUpdated(fetchedAt time.Time)
	RenderChart(cfg chart.Config)
	DestroyChart()
	ShowHistoricalUnavailable()
	ShowError(message string)
}

// WidgetService is the single orchestrating context behind the widget.
type WidgetService interface {
	Init(ctx context.Context) error
	ChangeRange(ctx context.Context, key domain.RangeKey) error
	Refresh(ctx context.Context) error
	SetMode(mode domain.ViewMode) error
	Reload(ctx context.Context) error
	Range() domain.RangeKey
	Mode() domain.ViewMode
}

type widgetService struct {
	// mu guards view, rangeKey and series. It is never held across a repository call.
	mu sync.Mutex

	repo     repository.RateRepository
	renderer Renderer
	view     *ViewState
	rangeKey domain.RangeKey

	series      domain.HistoricalSeries
	seriesRange domain.RangeKey

	now func() time.Time
	log *zap.Logger
}

func NewWidgetService(repo repository.RateRepository, renderer Renderer, defaultRange domain.RangeKey, log *zap.Logger) WidgetService {
	if defaultRange == "" {
		defaultRange = domain.Range1y
	}
	return &widgetService{
		repo:     repo,
		renderer: renderer,
		view:     NewViewState(domain.ModeDirect),
		rangeKey: defaultRange,
		now:      time.Now,
		log:      log,
	}
}

// LastUpdatedText formats the last fetch time for display.
func LastUpdatedText(fetchedAt time.Time) string {
	if fetchedAt.IsZero() {
		return "Not available"
	}
	return fetchedAt.Format("2006-01-02 15:04:05")
}

func (s *widgetService) Range() domain.RangeKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rangeKey
}

func (s *widgetService) Mode() domain.ViewMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Mode()
}

// Init loads the latest rate and the chart for the current range. A latest-rate
// failure is reported to the renderer and returned; the chart still loads.
func (s *widgetService) Init(ctx context.Context) error {
	s.renderer.ShowLoading()
	defer s.renderer.HideLoading()

	key := s.Range()
	err := s.loadLatest(ctx)
	s.loadChart(ctx, key)
	return err
}

func (s *widgetService) ChangeRange(ctx context.Context, key domain.RangeKey) error {
	if _, err := domain.ParseRangeKey(string(key)); err != nil {
		return err
	}

	s.mu.Lock()
	s.rangeKey = key
	s.mu.Unlock()

	s.renderer.ShowLoading()
	defer s.renderer.HideLoading()

	s.loadChart(ctx, key)
	return nil
}

// Refresh drops the latest entry and the current range's series, then refetches both.
func (s *widgetService) Refresh(ctx context.Context) error {
	s.renderer.ShowLoading()
	defer s.renderer.HideLoading()

	key := s.Range()
	s.repo.InvalidateLatest()
	s.repo.InvalidateHistorical(key)

	err := s.loadLatest(ctx)
	s.loadChart(ctx, key)
	return err
}

// SetMode re-renders from state already held and never waits on a fetch.
func (s *widgetService) SetMode(mode domain.ViewMode) error {
	if _, err := domain.ParseViewMode(string(mode)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.series) > 0 {
		s.renderer.DestroyChart()
		s.renderer.RenderChart(chart.Present(s.series, mode, s.seriesRange))
	}
	if display, ok := s.view.SwitchMode(mode); ok {
		s.renderer.RenderCurrentRate(display)
	}
	return nil
}

// Reload is the timer path: Init without the loading overlay.
func (s *widgetService) Reload(ctx context.Context) error {
	key := s.Range()
	err := s.loadLatest(ctx)
	s.loadChart(ctx, key)
	return err
}

// loadLatest fetches without holding s.mu; the result is applied last-write-wins.
func (s *widgetService) loadLatest(ctx context.Context) error {
	resp, fetchedAt, fresh, err := s.repo.GetLatestRate(ctx, s.now())
	if err != nil {
		s.log.Error("Error fetching latest rate", zap.Error(err))
		s.renderer.ShowError(latestErrorText(err))
		return err
	}
	if !fresh {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	display, err := s.view.ComputeDisplay(resp, s.view.Mode())
	if err != nil {
		s.log.Error("Error computing rate display", zap.Error(err))
		s.renderer.ShowError(latestErrorText(err))
		return err
	}
	s.renderer.RenderCurrentRate(display)
	s.renderer.RenderLastUpdated(fetchedAt)
	return nil
}

// loadChart drops a series whose range was replaced while it was being built.
func (s *widgetService) loadChart(ctx context.Context, key domain.RangeKey) {
	series := s.repo.GetHistoricalSeries(ctx, key, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if key != s.rangeKey {
		s.log.Debug("Discarding series for a superseded range",
			zap.String("range", string(key)),
			zap.String("current", string(s.rangeKey)),
		)
		return
	}
	s.series = series
	s.seriesRange = key

	s.renderer.DestroyChart()
	if len(series) == 0 {
		s.renderer.ShowHistoricalUnavailable()
		return
	}
	s.renderer.RenderChart(chart.Present(series, s.view.Mode(), key))
}

func latestErrorText(err error) string {
	return fmt.Sprintf("Failed to fetch latest exchange rate data: %s. Please try again later.", exchangerateapi.UserMessage(err))
}
