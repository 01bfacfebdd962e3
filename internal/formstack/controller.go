package formstack

import (
	"fmt"
	"sync"

	"pkt.systems/pslog"

	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/logx"
)

// CompletionKind distinguishes the two child outcomes a parent may handle.
type CompletionKind string

const (
	CompletionSave   CompletionKind = "save"
	CompletionSelect CompletionKind = "select"
)

// Completion is the event a child emits when it finishes successfully.
type Completion struct {
	Kind   CompletionKind
	Result FormData
}

// ParentUpdate is handed to a completion handler.
type ParentUpdate struct {
	ChildID  TabID
	ParentID TabID
	Kind     CompletionKind
	Result   FormData
	// Snapshot is the parent's payload at the moment the child was opened.
	Snapshot FormData
	// Current is the parent's stored payload when the completion arrives.
	Current FormData
}

// CompletionHandler applies a child's result for its parent. A non-nil
// return value replaces the parent's stored payload.
type CompletionHandler func(ParentUpdate) (FormData, error)

// ChildRequest configures OpenChild.
type ChildRequest struct {
	Title              string
	FormData           FormData
	Context            Context
	AutoCloseOnSuccess bool
	OnComplete         CompletionHandler
}

// CloseDecision is the outcome of RequestClose.
type CloseDecision int

const (
	CloseIgnored CloseDecision = iota
	Closed
	CloseNeedsConfirm
)

// CompletionOutcome reports what Complete did.
type CompletionOutcome struct {
	HandlerCalled   bool
	ParentPersisted bool
	ChildClosed     bool
}

type childLink struct {
	parent   TabID
	handler  CompletionHandler
	snapshot FormData
}

// Controller implements the opener/opened-form contract on top of a Store.
type Controller struct {
	store          *Store
	log            pslog.Logger
	confirmUnsaved bool

	// opMu serialises multi-step sequences so they apply as one unit.
	opMu  sync.Mutex
	mu    sync.Mutex
	links map[TabID]childLink
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(log pslog.Logger) ControllerOption {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithConfirmUnsavedClose makes RequestClose ask before closing the last unsaved tab.
func WithConfirmUnsavedClose(on bool) ControllerOption {
	return func(c *Controller) { c.confirmUnsaved = on }
}

// NewController wires a controller to store.
func NewController(store *Store, opts ...ControllerOption) *Controller {
	if store == nil {
		store = NewStore()
	}
	c := &Controller{
		store: store,
		log:   logx.OrDefault(nil),
		links: make(map[TabID]childLink),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Store exposes the underlying tab store.
func (c *Controller) Store() *Store { return c.store }

// Tab returns a copy of the tab with id.
func (c *Controller) Tab(id TabID) (Tab, bool) { return c.store.Tab(id) }

// Open opens a top-level tab.
func (c *Controller) Open(formType string, opts OpenOptions) TabID {
	id := c.store.Open(formType, opts)
	logx.WithTab(c.log, string(id), formType).Debug("formstack tab opened", "title", opts.Title)
	return id
}

// OpenChild opens formType as a child of parent and registers onComplete for
// its completion events. An empty parent opens a child without a parent tab.
func (c *Controller) OpenChild(parent TabID, formType string, req ChildRequest) (TabID, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	var snapshot FormData
	if parent != "" {
		tab, ok := c.store.Tab(parent)
		if !ok {
			logx.WithTab(c.log, string(parent), formType).Warn("formstack open child rejected", "err", ErrParentNotFound)
			return "", ErrParentNotFound
		}
		snapshot = tab.FormData
	}

	ctx := Context(cloneMap(req.Context))
	if ctx == nil {
		ctx = Context{}
	}
	ctx[CtxOpenedFromParent] = true
	if parent != "" {
		ctx[CtxParentTabID] = string(parent)
	}

	id := c.store.Open(formType, OpenOptions{
		Title:              req.Title,
		FormData:           req.FormData,
		Context:            ctx,
		AutoCloseOnSuccess: req.AutoCloseOnSuccess,
		parentID:           parent,
	})

	c.mu.Lock()
	c.links[id] = childLink{parent: parent, handler: req.OnComplete, snapshot: snapshot}
	c.mu.Unlock()

	logx.WithTab(c.log, string(id), formType).Debug("formstack child opened", "parent", parent, "auto_close", req.AutoCloseOnSuccess)
	return id, nil
}

// Complete delivers a child's completion event. It marks the child saved,
// invokes the parent's handler, persists the handler's result into the parent,
// closes the child when it auto-closes and restores focus to the parent. The
// whole sequence runs without yielding. A failing handler leaves the child open.
func (c *Controller) Complete(child TabID, completion Completion) (CompletionOutcome, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	var outcome CompletionOutcome
	tab, ok := c.store.Tab(child)
	if !ok {
		logx.WithTab(c.log, string(child), "").Debug("formstack completion dropped", "reason", "tab closed")
		return outcome, ErrTabNotFound
	}
	log := logx.WithTab(c.log, string(child), tab.FormType)

	c.mu.Lock()
	link, linked := c.links[child]
	c.mu.Unlock()

	var parentData FormData
	persist := false
	if linked && link.handler != nil {
		parentLive := true
		var current FormData
		if link.parent != "" {
			ptab, ok := c.store.Tab(link.parent)
			parentLive = ok
			current = ptab.FormData
		}
		if !parentLive {
			log.Debug("formstack completion handler skipped", "reason", "parent closed", "parent", link.parent)
		} else {
			outcome.HandlerCalled = true
			data, err := invokeHandler(link.handler, ParentUpdate{
				ChildID:  child,
				ParentID: link.parent,
				Kind:     completion.Kind,
				Result:   completion.Result.Clone(),
				Snapshot: link.snapshot.Clone(),
				Current:  current,
			})
			if err != nil {
				log.Warn("formstack completion handler failed", "err", err)
				return outcome, err
			}
			if data != nil && link.parent != "" {
				parentData = data
				persist = true
			}
		}
	}

	c.store.MarkSaved(child)
	if persist {
		outcome.ParentPersisted = c.store.UpdateFormData(link.parent, parentData)
	}
	if tab.AutoCloseOnSuccess {
		c.dropLink(child)
		outcome.ChildClosed = c.closeLocked(child, tab.ParentID)
	}
	log.Info("formstack completion applied", "kind", completion.Kind, "handler", outcome.HandlerCalled, "persisted", outcome.ParentPersisted, "closed", outcome.ChildClosed)
	return outcome, nil
}

// Cancel closes child without invoking its completion handler.
func (c *Controller) Cancel(child TabID) {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	tab, ok := c.store.Tab(child)
	if !ok {
		return
	}
	c.dropLink(child)
	c.closeLocked(child, tab.ParentID)
	logx.WithTab(c.log, string(child), tab.FormType).Debug("formstack child cancelled")
}

// CloseTab closes id. When it is the only open tab the whole stack is cleared
// in one step. Unknown ids are ignored.
func (c *Controller) CloseTab(id TabID) {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	tab, ok := c.store.Tab(id)
	if !ok {
		return
	}
	c.dropLink(id)
	c.closeLocked(id, tab.ParentID)
}

// CloseActive closes the active tab.
func (c *Controller) CloseActive() {
	snap := c.store.Snapshot()
	if snap.ActiveID == "" {
		return
	}
	c.CloseTab(snap.ActiveID)
}

// RequestClose closes id unless it is the last open tab, unsaved, and the
// controller is configured to confirm such closes.
func (c *Controller) RequestClose(id TabID) CloseDecision {
	snap := c.store.Snapshot()
	tab, ok := snap.Tab(id)
	if !ok {
		return CloseIgnored
	}
	if c.confirmUnsaved && len(snap.Tabs) == 1 && !tab.IsSaved {
		return CloseNeedsConfirm
	}
	c.CloseTab(id)
	return Closed
}

// Switch makes id the active tab.
func (c *Controller) Switch(id TabID) { c.store.Switch(id) }

// SwitchRelative moves the active pointer by delta, wrapping around.
func (c *Controller) SwitchRelative(delta int) {
	snap := c.store.Snapshot()
	if len(snap.Tabs) < 2 {
		return
	}
	idx := 0
	for i, t := range snap.Tabs {
		if t.ID == snap.ActiveID {
			idx = i
			break
		}
	}
	n := len(snap.Tabs)
	c.store.Switch(snap.Tabs[((idx+delta)%n+n)%n].ID)
}

// UpdateFormData replaces the tab's payload.
func (c *Controller) UpdateFormData(id TabID, data FormData) {
	if !c.store.UpdateFormData(id, data) {
		logx.WithTab(c.log, string(id), "").Debug("formstack update dropped", "reason", "tab closed")
	}
}

// PatchFormData merges patch into the tab's payload.
func (c *Controller) PatchFormData(id TabID, patch FormData) {
	if !c.store.PatchFormData(id, patch) {
		logx.WithTab(c.log, string(id), "").Debug("formstack patch dropped", "reason", "tab closed")
	}
}

// PersistStep records a wizard's current step alongside its fields with a full replace.
func (c *Controller) PersistStep(id TabID, step int, fields FormData) {
	data := fields.Clone()
	if data == nil {
		data = FormData{}
	}
	data["currentStep"] = step
	c.UpdateFormData(id, data)
}

// MarkSaved flags id as saved.
func (c *Controller) MarkSaved(id TabID) { c.store.MarkSaved(id) }

// SetTitle renames id.
func (c *Controller) SetTitle(id TabID, title string) { c.store.SetTitle(id, title) }

// ToggleCollapse flips the panel between sheet and rail.
func (c *Controller) ToggleCollapse() bool { return c.store.ToggleCollapse() }

// Snapshot returns the current store state.
func (c *Controller) Snapshot() Snapshot { return c.store.Snapshot() }

// Subscribe registers a store listener.
func (c *Controller) Subscribe(fn Listener) func() { return c.store.Subscribe(fn) }

// Children lists open tabs whose parent is id, in stack order.
func (c *Controller) Children(id TabID) []TabID {
	snap := c.store.Snapshot()
	var out []TabID
	for _, t := range snap.Tabs {
		if t.ParentID == id && id != "" {
			out = append(out, t.ID)
		}
	}
	return out
}

func (c *Controller) closeLocked(id, parent TabID) bool {
	if c.store.Len() == 1 {
		if !c.store.Has(id) {
			return false
		}
		c.store.CloseAll()
		return true
	}
	return c.store.closeAndActivate(id, focusTarget(c.store, id, parent))
}

// focusTarget keeps the current active tab unless id is the one closing, in
// which case focus returns to the parent.
func focusTarget(store *Store, id, parent TabID) TabID {
	snap := store.Snapshot()
	if snap.ActiveID != id {
		return snap.ActiveID
	}
	return parent
}

func (c *Controller) dropLink(id TabID) {
	c.mu.Lock()
	delete(c.links, id)
	c.mu.Unlock()
}

func invokeHandler(fn CompletionHandler, update ParentUpdate) (data FormData, err error) {
	defer func() {
		if r := recover(); r != nil {
			data = nil
			err = fmt.Errorf("%w: panic: %v", ErrCompletionFailed, r)
		}
	}()
	data, err = fn(update)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompletionFailed, err)
	}
	return data, nil
}
