// Package forms holds the form bodies mounted by the terminal front end.
//
// Allowed here:
// - bubbletea models for each form type, ERP calls issued as tea.Cmd
// - completion handlers a parent registers when it opens a child
//
// Not allowed here:
// - tab bookkeeping (formstack) or the shell around the active form (tui)
package forms

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"pkt.systems/pslog"

	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/catalog"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/database/repository"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/formstack"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/logx"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/service"
)

// Built-in form types.
const (
	TypeSalesOrder   = "sales-order"
	TypeLineItem     = "line-item"
	TypeItemSelector = "item-selector"
	TypeShipTo       = "ship-to"
)

// Props is everything a form receives from its tab.
type Props struct {
	TabID    formstack.TabID
	FormData formstack.FormData
	Context  formstack.Context
}

// PropsFromTab builds props from a stored tab.
func PropsFromTab(t formstack.Tab) Props {
	return Props{TabID: t.ID, FormData: t.FormData, Context: t.Context}
}

// Host is the slice of the form stack a form may call into.
// *formstack.Controller satisfies it.
type Host interface {
	Tab(id formstack.TabID) (formstack.Tab, bool)
	UpdateFormData(id formstack.TabID, data formstack.FormData)
	PatchFormData(id formstack.TabID, patch formstack.FormData)
	PersistStep(id formstack.TabID, step int, fields formstack.FormData)
	MarkSaved(id formstack.TabID)
	SetTitle(id formstack.TabID, title string)
	CloseTab(id formstack.TabID)
	OpenChild(parent formstack.TabID, formType string, req formstack.ChildRequest) (formstack.TabID, error)
}

// OrderBackend is the ERP surface the order forms use.
type OrderBackend interface {
	Customers(ctx context.Context) ([]repository.Customer, error)
	ShipTos(ctx context.Context, customerNo string) ([]repository.ShipTo, error)
	AddShipTo(ctx context.Context, st repository.ShipTo) error
	Submit(ctx context.Context, d service.OrderDraft) (repository.SalesOrder, error)
}

// ItemFinder looks up items for the line and selector forms.
type ItemFinder interface {
	Search(ctx context.Context, query string) ([]repository.Item, error)
	Get(ctx context.Context, no string) (repository.Item, error)
}

// Deps are shared collaborators handed to every form.
type Deps struct {
	Ctx       context.Context
	Host      Host
	Orders    OrderBackend
	Items     ItemFinder
	Catalog   *catalog.Catalog
	Validator *catalog.Validator
	Log       pslog.Logger
	Currency  string
}

// context carries the tab id so backend log lines name the form that asked.
func (d Deps) context(tab formstack.TabID) context.Context {
	ctx := d.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return logx.ContextWithTab(ctx, string(tab))
}

func (d Deps) logger(tab formstack.TabID, formType string) pslog.Logger {
	return logx.WithTab(d.Log, string(tab), formType)
}

// Form is a mounted form body.
type Form interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Form, tea.Cmd)
	View(width, height int) string
	// Reload re-reads props after the tab's stored data changed underneath the form.
	Reload(props Props)
}

// Factory builds a form for a tab. It is the renderer the registry resolves.
type Factory func(props Props, deps Deps) Form

// Register binds the built-in form types.
func Register(reg *formstack.Registry[Factory]) {
	reg.RegisterValue(TypeSalesOrder, NewSalesOrder)
	reg.RegisterValue(TypeLineItem, NewLineItem)
	reg.RegisterValue(TypeItemSelector, NewItemSelector)
	reg.RegisterValue(TypeShipTo, NewShipTo)
}

// CompletedMsg is emitted by a child form that finished successfully.
type CompletedMsg struct {
	TabID      formstack.TabID
	Completion formstack.Completion
}

// CancelledMsg is emitted by a child form the user backed out of.
type CancelledMsg struct {
	TabID formstack.TabID
}

// StatusMsg surfaces a line in the status bar.
type StatusMsg struct {
	Text  string
	IsErr bool
}

// Targeted is implemented by async results that belong to one tab. The shell
// delivers them only to that tab's form and drops them once the tab is gone.
type Targeted interface {
	Target() formstack.TabID
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

func complete(tab formstack.TabID, kind formstack.CompletionKind, result formstack.FormData) tea.Cmd {
	return emit(CompletedMsg{TabID: tab, Completion: formstack.Completion{Kind: kind, Result: result}})
}

func cancel(tab formstack.TabID) tea.Cmd {
	return emit(CancelledMsg{TabID: tab})
}

// childRequest fills title and auto-close from the catalog.
func childRequest(deps Deps, formType string, data formstack.FormData, onComplete formstack.CompletionHandler) formstack.ChildRequest {
	req := formstack.ChildRequest{
		Title:              deps.Catalog.Title(formType, formType),
		FormData:           data,
		AutoCloseOnSuccess: true,
		OnComplete:         onComplete,
	}
	if f, err := deps.Catalog.Form(formType); err == nil {
		req.AutoCloseOnSuccess = f.AutoCloseOnSuccess
	}
	return req
}

func validate(deps Deps, formType string, data formstack.FormData) catalog.ValidationErrors {
	if deps.Validator == nil {
		return nil
	}
	errs, err := deps.Validator.Validate(formType, data)
	if err != nil {
		logx.OrDefault(deps.Log).Warn("form validation unavailable", "form", formType, "err", err)
		return nil
	}
	return errs
}
