package formstack

import (
	"context"

	"pkt.systems/pslog"

	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/logx"
)

// PanelStatus is the display state of the active-tab panel.
type PanelStatus int

const (
	PanelEmpty PanelStatus = iota
	PanelLoading
	PanelReady
	PanelNotFound
)

func (s PanelStatus) String() string {
	switch s {
	case PanelLoading:
		return "loading"
	case PanelReady:
		return "ready"
	case PanelNotFound:
		return "not-found"
	default:
		return "empty"
	}
}

// Ticket identifies one renderer resolution request.
type Ticket struct {
	TabID    TabID
	FormType string
	Seq      uint64
}

// Resolution is the result of resolving a ticket.
type Resolution[R any] struct {
	Ticket   Ticket
	Renderer R
	Found    bool
}

// Panel tracks which renderer is shown for the active tab and guards
// against resolutions that complete after the user has moved on.
// It is driven from a single UI goroutine.
type Panel[R any] struct {
	registry *Registry[R]
	log      pslog.Logger

	status   PanelStatus
	tabID    TabID
	formType string
	seq      uint64
	renderer R
}

// NewPanel builds a panel backed by registry.
func NewPanel[R any](registry *Registry[R], log pslog.Logger) *Panel[R] {
	return &Panel[R]{registry: registry, log: logx.OrDefault(log)}
}

// Status returns the current display state.
func (p *Panel[R]) Status() PanelStatus { return p.status }

// TabID returns the tab the panel is showing or loading.
func (p *Panel[R]) TabID() TabID { return p.tabID }

// FormType returns the form type of the current tab.
func (p *Panel[R]) FormType() string { return p.formType }

// Renderer returns the resolved renderer when Status is PanelReady.
func (p *Panel[R]) Renderer() (R, bool) {
	if p.status != PanelReady {
		var zero R
		return zero, false
	}
	return p.renderer, true
}

// Sync aligns the panel with snap. When the active tab changed it enters the
// loading state and returns a ticket the caller must resolve.
func (p *Panel[R]) Sync(snap Snapshot) (Ticket, bool) {
	active, ok := snap.Active()
	if !ok {
		var zero R
		p.status = PanelEmpty
		p.tabID = ""
		p.formType = ""
		p.renderer = zero
		p.seq++
		return Ticket{}, false
	}
	if active.ID == p.tabID && p.status != PanelEmpty {
		return Ticket{}, false
	}
	var zero R
	p.seq++
	p.status = PanelLoading
	p.tabID = active.ID
	p.formType = active.FormType
	p.renderer = zero
	return Ticket{TabID: active.ID, FormType: active.FormType, Seq: p.seq}, true
}

// Resolve looks up the renderer for t. It is safe to call off the UI goroutine.
func (p *Panel[R]) Resolve(ctx context.Context, t Ticket) Resolution[R] {
	r, ok := p.registry.Resolve(ctx, t.FormType)
	return Resolution[R]{Ticket: t, Renderer: r, Found: ok}
}

// Commit applies res if it still belongs to the current tab. Stale results
// are dropped and reported false.
func (p *Panel[R]) Commit(res Resolution[R]) bool {
	if res.Ticket.Seq != p.seq || res.Ticket.TabID != p.tabID {
		logx.WithTab(p.log, string(res.Ticket.TabID), res.Ticket.FormType).Debug("formstack stale renderer dropped", "current", p.tabID)
		return false
	}
	if !res.Found {
		p.status = PanelNotFound
		return true
	}
	p.status = PanelReady
	p.renderer = res.Renderer
	return true
}
