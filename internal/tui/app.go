// Package tui is the terminal shell around the form stack: the tab bar or
// rail, the mini access panel and the panel that shows the active form.
package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"pkt.systems/pslog"

	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/catalog"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/forms"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/formstack"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/logx"
)

// Options wires an App. Zero values get working defaults.
type Options struct {
	Controller *formstack.Controller
	Registry   *formstack.Registry[forms.Factory]
	Deps       forms.Deps
	Log        pslog.Logger
}

type modalState string

const (
	modalNone    modalState = ""
	modalPicker  modalState = "picker"
	modalConfirm modalState = "confirmClose"
)

type resolvedMsg struct {
	res formstack.Resolution[forms.Factory]
}

// App is the bubbletea model hosting the form stack. It must be the only
// caller of the controller so store notifications arrive on its goroutine.
type App struct {
	ctx   context.Context
	ctl   *formstack.Controller
	panel *formstack.Panel[forms.Factory]
	deps  forms.Deps
	log   pslog.Logger
	keys  keyMap
	help  help.Model

	snap    formstack.Snapshot
	mounted map[formstack.TabID]forms.Form
	unsub   func()

	width     int
	height    int
	status    string
	statusErr bool

	modal     modalState
	picker    *tabPicker
	confirmID formstack.TabID
}

// New builds the shell. Call Close when the program exits.
func New(ctx context.Context, opts Options) *App {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logx.OrDefault(opts.Log)
	ctl := opts.Controller
	if ctl == nil {
		ctl = formstack.NewController(nil, formstack.WithLogger(log))
	}
	reg := opts.Registry
	if reg == nil {
		reg = formstack.NewRegistry[forms.Factory](log)
		forms.Register(reg)
	}
	deps := opts.Deps
	if deps.Ctx == nil {
		deps.Ctx = ctx
	}
	if deps.Host == nil {
		deps.Host = ctl
	}
	if deps.Log == nil {
		deps.Log = log
	}
	if deps.Validator == nil && deps.Catalog != nil {
		deps.Validator = catalog.NewValidator(deps.Catalog)
	}

	a := &App{
		ctx:     ctx,
		ctl:     ctl,
		panel:   formstack.NewPanel(reg, log),
		deps:    deps,
		log:     log,
		keys:    defaultKeys(),
		help:    help.New(),
		snap:    ctl.Snapshot(),
		mounted: make(map[formstack.TabID]forms.Form),
	}
	a.unsub = ctl.Subscribe(a.onChange)
	return a
}

// Close detaches the app from the store.
func (a *App) Close() {
	if a.unsub != nil {
		a.unsub()
	}
}

func (a *App) Init() tea.Cmd {
	return a.sync()
}

// onChange drops form instances whose tab is gone.
func (a *App) onChange(snap formstack.Snapshot) {
	a.snap = snap
	for id := range a.mounted {
		if _, ok := snap.Tab(id); !ok {
			delete(a.mounted, id)
		}
	}
	if a.confirmID != "" {
		if _, ok := snap.Tab(a.confirmID); !ok {
			a.confirmID = ""
			if a.modal == modalConfirm {
				a.modal = modalNone
			}
		}
	}
	if a.picker != nil {
		a.picker.setTabs(snap)
	}
	if len(snap.Tabs) == 0 && a.modal == modalPicker {
		a.modal, a.picker = modalNone, nil
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
		a.help.Width = m.Width
	case tea.KeyMsg:
		cmds = append(cmds, a.handleKey(m))
	case resolvedMsg:
		cmds = append(cmds, a.commit(m.res))
	case forms.CompletedMsg:
		a.complete(m)
	case forms.CancelledMsg:
		a.ctl.Cancel(m.TabID)
	case forms.StatusMsg:
		a.setStatus(m.Text, m.IsErr)
	case forms.Targeted:
		cmds = append(cmds, a.deliver(m.Target(), msg))
	default:
		cmds = append(cmds, a.deliverActive(msg))
	}
	cmds = append(cmds, a.sync())
	return a, tea.Batch(cmds...)
}

func (a *App) handleKey(m tea.KeyMsg) tea.Cmd {
	if key.Matches(m, a.keys.Quit) {
		return tea.Quit
	}
	switch a.modal {
	case modalConfirm:
		a.handleConfirmKey(m)
		return nil
	case modalPicker:
		a.handlePickerKey(m)
		return nil
	}
	switch {
	case key.Matches(m, a.keys.NewOrder):
		a.openOrder()
	case key.Matches(m, a.keys.Close):
		a.requestClose()
	case key.Matches(m, a.keys.Next):
		a.ctl.SwitchRelative(1)
	case key.Matches(m, a.keys.Prev):
		a.ctl.SwitchRelative(-1)
	case key.Matches(m, a.keys.Picker):
		if len(a.snap.Tabs) > 0 {
			a.modal = modalPicker
			a.picker = newTabPicker(a.snap)
		}
	case key.Matches(m, a.keys.Collapse):
		a.ctl.ToggleCollapse()
	default:
		if a.snap.Collapsed {
			return nil
		}
		return a.deliverActive(m)
	}
	return nil
}

func (a *App) handleConfirmKey(m tea.KeyMsg) {
	switch m.String() {
	case "y", "Y", "enter":
		id := a.confirmID
		a.modal, a.confirmID = modalNone, ""
		a.ctl.CloseTab(id)
		a.setStatus("discarded unsaved form", false)
	case "n", "N", "esc":
		a.modal, a.confirmID = modalNone, ""
	}
}

func (a *App) handlePickerKey(m tea.KeyMsg) {
	res := a.picker.HandleKey(m.String())
	switch res.Action {
	case pickerSelected:
		a.modal, a.picker = modalNone, nil
		a.ctl.Switch(res.Item.ID)
	case pickerCancelled:
		a.modal, a.picker = modalNone, nil
	}
}

func (a *App) openOrder() {
	title := a.deps.Catalog.Title(forms.TypeSalesOrder, "Sales Order")
	a.ctl.Open(forms.TypeSalesOrder, formstack.OpenOptions{
		Title:    title,
		FormData: formstack.FormData{"currentStep": 1},
	})
}

func (a *App) requestClose() {
	id := a.snap.ActiveID
	if id == "" {
		return
	}
	if a.ctl.RequestClose(id) == formstack.CloseNeedsConfirm {
		a.modal = modalConfirm
		a.confirmID = id
	}
}

// complete hands a child's result to the controller and refreshes the parent
// form from the store so it shows the merged payload.
func (a *App) complete(m forms.CompletedMsg) {
	tab, _ := a.ctl.Tab(m.TabID)
	outcome, err := a.ctl.Complete(m.TabID, m.Completion)
	switch {
	case errors.Is(err, formstack.ErrTabNotFound):
		return
	case err != nil:
		a.setStatus(err.Error(), true)
		return
	}
	if outcome.ParentPersisted {
		a.reload(tab.ParentID)
	}
	if outcome.ChildClosed {
		a.setStatus(fmt.Sprintf("%s done", tab.Title), false)
	}
}

func (a *App) reload(id formstack.TabID) {
	form, ok := a.mounted[id]
	if !ok {
		return
	}
	tab, ok := a.ctl.Tab(id)
	if !ok {
		return
	}
	form.Reload(forms.PropsFromTab(tab))
}

func (a *App) deliverActive(msg tea.Msg) tea.Cmd {
	if a.panel.Status() != formstack.PanelReady {
		return nil
	}
	id := a.panel.TabID()
	if _, ok := a.mounted[id]; !ok {
		return nil
	}
	return a.deliver(id, msg)
}

// deliver routes msg to the form mounted for id. Results for closed tabs are
// dropped.
func (a *App) deliver(id formstack.TabID, msg tea.Msg) tea.Cmd {
	form, ok := a.mounted[id]
	if !ok {
		logx.WithTab(a.log, string(id), "").Debug("tui message dropped", "reason", "tab closed", "msg", fmt.Sprintf("%T", msg))
		return nil
	}
	next, cmd := form.Update(msg)
	// the form may have closed its own tab
	if _, still := a.mounted[id]; still && next != nil {
		a.mounted[id] = next
	}
	return cmd
}

// sync points the panel at the active tab and resolves its renderer off the
// UI goroutine when it changed.
func (a *App) sync() tea.Cmd {
	a.snap = a.ctl.Snapshot()
	ticket, ok := a.panel.Sync(a.snap)
	if !ok {
		return nil
	}
	panel, ctx := a.panel, a.ctx
	return func() tea.Msg {
		return resolvedMsg{res: panel.Resolve(ctx, ticket)}
	}
}

// commit mounts the resolved form unless the tab already has a live instance.
func (a *App) commit(res formstack.Resolution[forms.Factory]) tea.Cmd {
	if !a.panel.Commit(res) {
		return nil
	}
	id := res.Ticket.TabID
	if a.panel.Status() == formstack.PanelNotFound {
		logx.WithTab(a.log, string(id), res.Ticket.FormType).Warn("tui form type not registered")
		return nil
	}
	if _, ok := a.mounted[id]; ok {
		return nil
	}
	factory, ok := a.panel.Renderer()
	if !ok || factory == nil {
		return nil
	}
	tab, ok := a.ctl.Tab(id)
	if !ok {
		return nil
	}
	form := factory(forms.PropsFromTab(tab), a.deps)
	a.mounted[id] = form
	logx.WithTab(a.log, string(id), tab.FormType).Debug("tui form mounted")
	return form.Init()
}

func (a *App) setStatus(text string, isErr bool) {
	a.status = text
	a.statusErr = isErr
}
