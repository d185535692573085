package api

import (
	"sync"
	"time"

	"exchange-widget/internals/chart"
	"exchange-widget/internals/core/domain"
	"exchange-widget/internals/service"

	"github.com/google/uuid"
)

// ErrorNotice is a modal error waiting for the user to acknowledge it.
type ErrorNotice struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// WidgetView is the JSON body of GET /v1/widget.
type WidgetView struct {
	Mode                  domain.ViewMode     `json:"mode"`
	Range                 domain.RangeKey     `json:"range"`
	Loading               bool                `json:"loading"`
	Rate                  *domain.RateDisplay `json:"rate,omitempty"`
	LastUpdated           string              `json:"lastUpdated"`
	Chart                 *chart.Config       `json:"chart,omitempty"`
	HistoricalUnavailable bool                `json:"historicalUnavailable"`
	Errors                []ErrorNotice       `json:"errors"`
}

// Snapshot is the server-side widget surface; it implements service.Renderer.
type Snapshot struct {
	mu sync.RWMutex

	mode        domain.ViewMode
	rangeKey    domain.RangeKey
	loading     bool
	rate        *domain.RateDisplay
	lastUpdated time.Time
	chart       *chart.Config
	unavailable bool
	pending     *ErrorNotice
	now         func() time.Time
}

var _ service.Renderer = (*Snapshot)(nil)

func NewSnapshot(mode domain.ViewMode, rangeKey domain.RangeKey) *Snapshot {
	return &Snapshot{mode: mode, rangeKey: rangeKey, now: time.Now}
}

func (s *Snapshot) ShowLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
}

func (s *Snapshot) HideLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
}

func (s *Snapshot) RenderCurrentRate(display domain.RateDisplay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = &display
	s.mode = display.Mode
}

func (s *Snapshot) RenderLastUpdated(fetchedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUpdated = fetchedAt
}

func (s *Snapshot) RenderChart(cfg chart.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chart = &cfg
	s.unavailable = false
}

func (s *Snapshot) DestroyChart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chart = nil
}

func (s *Snapshot) ShowHistoricalUnavailable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = true
}

// ShowError replaces any notice still waiting, so at most one is pending.
func (s *Snapshot) ShowError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &ErrorNotice{
		ID:        uuid.NewString(),
		Message:   message,
		CreatedAt: s.now(),
	}
}

// Acknowledge clears the pending notice. It reports false for any other id.
func (s *Snapshot) Acknowledge(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil || s.pending.ID != id {
		return false
	}
	s.pending = nil
	return true
}

// SetSelection records the user's range and mode after the widget accepted them.
func (s *Snapshot) SetSelection(mode domain.ViewMode, rangeKey domain.RangeKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	s.rangeKey = rangeKey
}

func (s *Snapshot) View() WidgetView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := WidgetView{
		Mode:                  s.mode,
		Range:                 s.rangeKey,
		Loading:               s.loading,
		LastUpdated:           service.LastUpdatedText(s.lastUpdated),
		HistoricalUnavailable: s.unavailable,
		Errors:                []ErrorNotice{},
	}
	if s.pending != nil {
		v.Errors = append(v.Errors, *s.pending)
	}
	if s.rate != nil {
		rate := *s.rate
		v.Rate = &rate
	}
	if s.chart != nil {
		cfg := *s.chart
		v.Chart = &cfg
	}
	return v
}
