package forms

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/catalog"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/database/repository"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/formstack"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/service"
)

type fakeERP struct {
	customers []repository.Customer
	shipTos   map[string][]repository.ShipTo
	items     []repository.Item
	submitted []service.OrderDraft
	saved     []repository.ShipTo
}

func newFakeERP() *fakeERP {
	return &fakeERP{
		customers: []repository.Customer{
			{No: "C0001", Name: "Sampoorna Agro Traders", City: "Pune"},
			{No: "C0002", Name: "Green Valley Poultry", City: "Nashik"},
		},
		shipTos: map[string][]repository.ShipTo{
			"C0001": {{CustomerNo: "C0001", Code: "MAIN", Name: "Head Office"}},
		},
		items: []repository.Item{
			{No: "FD-1001", Description: "Broiler Starter Feed 50kg", UnitPriceCents: 185000, UOM: "BAG"},
			{No: "SP-0001", Description: "Mineral Mixture 1kg", UnitPriceCents: 12000, UOM: "PCS"},
		},
	}
}

func (e *fakeERP) Customers(context.Context) ([]repository.Customer, error) { return e.customers, nil }

func (e *fakeERP) ShipTos(_ context.Context, no string) ([]repository.ShipTo, error) {
	return e.shipTos[no], nil
}

func (e *fakeERP) AddShipTo(_ context.Context, st repository.ShipTo) error {
	e.saved = append(e.saved, st)
	return nil
}

func (e *fakeERP) Submit(_ context.Context, d service.OrderDraft) (repository.SalesOrder, error) {
	e.submitted = append(e.submitted, d)
	return repository.SalesOrder{ID: "o1", No: "SO/0001", CustomerNo: d.CustomerNo}, nil
}

func (e *fakeERP) Search(_ context.Context, q string) ([]repository.Item, error) {
	var out []repository.Item
	for _, it := range e.items {
		if strings.Contains(strings.ToLower(it.Description+" "+it.No), strings.ToLower(q)) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (e *fakeERP) Get(_ context.Context, no string) (repository.Item, error) {
	for _, it := range e.items {
		if it.No == no {
			return it, nil
		}
	}
	return repository.Item{}, repository.ErrNotFound
}

func newDeps(t *testing.T) (Deps, *formstack.Controller, *fakeERP) {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	ctl := formstack.NewController(nil)
	erp := newFakeERP()
	return Deps{Host: ctl, Orders: erp, Items: erp, Catalog: cat, Validator: catalog.NewValidator(cat), Currency: "₹"}, ctl, erp
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+a":
		return tea.KeyMsg{Type: tea.KeyCtrlA}
	case "ctrl+f":
		return tea.KeyMsg{Type: tea.KeyCtrlF}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// typeText sends one key per rune and discards the cursor blink commands.
func typeText(f Form, s string) Form {
	for _, r := range s {
		f, _ = f.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return f
}

// drain runs cmd and any batched commands, returning the produced messages.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func feed(f Form, msgs []tea.Msg) (Form, []tea.Msg) {
	var out []tea.Msg
	for _, m := range msgs {
		var cmd tea.Cmd
		f, cmd = f.Update(m)
		out = append(out, drain(cmd)...)
	}
	return f, out
}

func completedFrom(t *testing.T, msgs []tea.Msg) CompletedMsg {
	t.Helper()
	for _, m := range msgs {
		if c, ok := m.(CompletedMsg); ok {
			return c
		}
	}
	t.Fatalf("no completion in %#v", msgs)
	return CompletedMsg{}
}

func mount(t *testing.T, ctl *formstack.Controller, id formstack.TabID, factory Factory, deps Deps) Form {
	t.Helper()
	tab, ok := ctl.Tab(id)
	require.True(t, ok)
	return factory(PropsFromTab(tab), deps)
}

func TestSalesOrderWizardEndToEnd(t *testing.T) {
	deps, ctl, erp := newDeps(t)
	id := ctl.Open(TypeSalesOrder, formstack.OpenOptions{Title: "New Sales Order", FormData: formstack.FormData{"currentStep": 1}})
	so := mount(t, ctl, id, NewSalesOrder, deps)
	so, _ = feed(so, drain(so.Init()))

	// No customer yet: the step gate holds.
	so, _ = so.Update(key("enter"))
	tab, _ := ctl.Tab(id)
	require.Equal(t, 1, tab.FormData.Int("currentStep"))

	var cmd tea.Cmd
	so, cmd = so.Update(key("up"))
	so, _ = feed(so, drain(cmd))
	so, _ = so.Update(key("tab"))
	so, _ = so.Update(key("enter"))
	tab, _ = ctl.Tab(id)
	require.Equal(t, 2, tab.FormData.Int("currentStep"))
	require.Equal(t, "C0001", tab.FormData.String("customerNo"))
	require.Equal(t, "MAIN", tab.FormData.String("shipToCode"))

	so, _ = so.Update(key("a"))
	snap := ctl.Snapshot()
	child := snap.ActiveID
	require.NotEqual(t, id, child)
	childTab, _ := snap.Tab(child)
	require.Equal(t, TypeLineItem, childTab.FormType)
	require.True(t, childTab.AutoCloseOnSuccess)
	require.True(t, childTab.OpenedFromParent())

	li := mount(t, ctl, child, NewLineItem, deps)
	li = typeText(li, "FD-1001")
	li, _ = li.Update(key("tab"))
	li = typeText(li, "2")
	li, _ = li.Update(key("tab"))
	li = typeText(li, "100")
	var liCmd tea.Cmd
	li, liCmd = li.Update(key("enter"))
	_, out := feed(li, drain(liCmd))
	done := completedFrom(t, out)
	require.Equal(t, child, done.TabID)
	require.Equal(t, 200.0, done.Completion.Result.Float("amount"))

	outcome, err := ctl.Complete(done.TabID, done.Completion)
	require.NoError(t, err)
	require.True(t, outcome.ChildClosed)
	require.Equal(t, id, ctl.Snapshot().ActiveID)

	tab, _ = ctl.Tab(id)
	so.Reload(PropsFromTab(tab))
	lines := tab.FormData.Records("lineItems")
	require.Len(t, lines, 1)
	require.Equal(t, "FD-1001", lines[0]["itemNo"])
	require.Equal(t, "Broiler Starter Feed 50kg", lines[0]["description"])

	so, _ = so.Update(key("enter"))
	tab, _ = ctl.Tab(id)
	require.Equal(t, 3, tab.FormData.Int("currentStep"))

	so, cmd = so.Update(key("enter"))
	so, _ = feed(so, drain(cmd))
	require.Len(t, erp.submitted, 1)
	require.Equal(t, "C0001", erp.submitted[0].CustomerNo)
	require.Equal(t, 2.0, erp.submitted[0].Lines[0].Quantity)

	tab, _ = ctl.Tab(id)
	require.True(t, tab.IsSaved)
	require.Equal(t, "Sales Order SO/0001", tab.Title)
	require.Equal(t, "SO/0001", tab.FormData.String("orderNo"))
	require.Contains(t, so.View(80, 24), "SO/0001")
}

func TestSalesOrderResumesStoredStep(t *testing.T) {
	deps, ctl, _ := newDeps(t)
	id := ctl.Open(TypeSalesOrder, formstack.OpenOptions{FormData: formstack.FormData{
		"currentStep": 2,
		"customerNo":  "C0002",
		"lineItems":   []any{map[string]any{"itemNo": "SP-0001", "quantity": 1.0, "unitPrice": 120.0, "amount": 120.0}},
	}})
	so := mount(t, ctl, id, NewSalesOrder, deps).(*SalesOrder)
	require.Equal(t, stepLines, so.step)
	require.Len(t, so.lines, 1)

	// Removing a line is a discrete transition and is persisted.
	so.Update(key("x"))
	tab, _ := ctl.Tab(id)
	require.Empty(t, tab.FormData.Records("lineItems"))
	require.Equal(t, 2, tab.FormData.Int("currentStep"))

	bad := ctl.Open(TypeSalesOrder, formstack.OpenOptions{FormData: formstack.FormData{"currentStep": 9}})
	require.Equal(t, stepCustomer, mount(t, ctl, bad, NewSalesOrder, deps).(*SalesOrder).step)
}

func TestSalesOrderStepGateNeedsLines(t *testing.T) {
	deps, ctl, _ := newDeps(t)
	id := ctl.Open(TypeSalesOrder, formstack.OpenOptions{FormData: formstack.FormData{"currentStep": 2, "customerNo": "C0001"}})
	so := mount(t, ctl, id, NewSalesOrder, deps).(*SalesOrder)
	so.Update(key("enter"))
	require.Equal(t, stepLines, so.step)
	require.Equal(t, "add at least one line", so.errs["lineItems"])
}

func TestLineItemSelectorRoundTrip(t *testing.T) {
	deps, ctl, _ := newDeps(t)
	parent := ctl.Open(TypeLineItem, formstack.OpenOptions{})
	li := mount(t, ctl, parent, NewLineItem, deps)
	li = typeText(li, "broiler")
	li, _ = li.Update(key("tab"))
	li = typeText(li, "3")

	li, _ = li.Update(key("ctrl+f"))
	tab, _ := ctl.Tab(parent)
	require.Equal(t, "3", tab.FormData.String("quantity"))

	snap := ctl.Snapshot()
	selID := snap.ActiveID
	selTab, _ := snap.Tab(selID)
	require.Equal(t, TypeItemSelector, selTab.FormType)
	require.Equal(t, "broiler", selTab.FormData.String("query"))

	sel := mount(t, ctl, selID, NewItemSelector, deps)
	sel, _ = feed(sel, drain(sel.Init()))
	var cmd tea.Cmd
	sel, cmd = sel.Update(key("enter"))
	done := completedFrom(t, drain(cmd))
	require.Equal(t, formstack.CompletionSelect, done.Completion.Kind)

	_, err := ctl.Complete(done.TabID, done.Completion)
	require.NoError(t, err)
	require.False(t, ctl.Store().Has(selID))

	tab, _ = ctl.Tab(parent)
	li.Reload(PropsFromTab(tab))
	item := li.(*LineItem)
	require.Equal(t, "FD-1001", item.inputs[lineFieldItem].Value())
	require.Equal(t, "3", item.inputs[lineFieldQty].Value())
	require.Equal(t, "1850", item.inputs[lineFieldPrice].Value())

	li, cmd = li.Update(key("enter"))
	final := completedFrom(t, drain(cmd))
	require.Equal(t, 5550.0, final.Completion.Result.Float("amount"))
}

func TestLineItemValidation(t *testing.T) {
	deps, ctl, _ := newDeps(t)
	id := ctl.Open(TypeLineItem, formstack.OpenOptions{})
	li := mount(t, ctl, id, NewLineItem, deps)

	li, cmd := li.Update(key("enter"))
	require.Nil(t, cmd)
	errs := li.(*LineItem).errs
	require.Contains(t, errs, "itemNo")
	require.Contains(t, errs, "quantity")

	li = typeText(li, "NOPE")
	li, _ = li.Update(key("tab"))
	li = typeText(li, "1")
	li, cmd = li.Update(key("enter"))
	li, out := feed(li, drain(cmd))
	require.Empty(t, out)
	require.Equal(t, "unknown item", li.(*LineItem).errs["itemNo"])

	_, cmd = li.Update(key("esc"))
	require.Equal(t, []tea.Msg{CancelledMsg{TabID: id}}, drain(cmd))
}

func TestItemSelectorDropsStaleResults(t *testing.T) {
	deps, ctl, _ := newDeps(t)
	id := ctl.Open(TypeItemSelector, formstack.OpenOptions{})
	sel := mount(t, ctl, id, NewItemSelector, deps).(*ItemSelector)
	drain(sel.Init())
	drain(sel.search())

	sel.Update(searchResultMsg{tab: id, seq: sel.seq - 1, items: []repository.Item{{No: "OLD"}}})
	require.Empty(t, sel.results)
	sel.Update(searchResultMsg{tab: id, seq: sel.seq, items: []repository.Item{{No: "NEW"}}})
	require.Len(t, sel.results, 1)
	require.Equal(t, "NEW", sel.results[0].No)
}

func TestShipToChildUpdatesOrder(t *testing.T) {
	deps, ctl, erp := newDeps(t)
	id := ctl.Open(TypeSalesOrder, formstack.OpenOptions{FormData: formstack.FormData{"currentStep": 1, "customerNo": "C0002"}})
	so := mount(t, ctl, id, NewSalesOrder, deps)
	so, _ = so.Update(key("ctrl+a"))
	child := ctl.Snapshot().ActiveID
	childTab, _ := ctl.Tab(child)
	require.Equal(t, TypeShipTo, childTab.FormType)
	require.Equal(t, "C0002", childTab.FormData.String("customerNo"))

	st := mount(t, ctl, child, NewShipTo, deps)
	st = typeText(st, "farm2")
	st, _ = st.Update(key("tab"))
	st = typeText(st, "Farm 2")
	st, cmd := st.Update(key("enter"))
	_, out := feed(st, drain(cmd))
	done := completedFrom(t, out)
	require.Equal(t, "FARM2", done.Completion.Result.String("code"))
	require.Len(t, erp.saved, 1)

	_, err := ctl.Complete(done.TabID, done.Completion)
	require.NoError(t, err)
	tab, _ := ctl.Tab(id)
	require.Equal(t, "FARM2", tab.FormData.String("shipToCode"))
	require.Equal(t, "C0002", tab.FormData.String("customerNo"))
	require.Equal(t, id, ctl.Snapshot().ActiveID)
	so.Reload(PropsFromTab(tab))
	require.Equal(t, "FARM2", so.(*SalesOrder).shipToCode)
}

func TestShipToRequiresFields(t *testing.T) {
	deps, ctl, erp := newDeps(t)
	id := ctl.Open(TypeShipTo, formstack.OpenOptions{})
	st := mount(t, ctl, id, NewShipTo, deps)
	_, cmd := st.Update(key("enter"))
	require.Nil(t, cmd)
	errs := st.(*ShipTo).errs
	require.Contains(t, errs, "code")
	require.Contains(t, errs, "customerNo")
	require.Empty(t, erp.saved)
}

func TestCompletionHandlers(t *testing.T) {
	u := formstack.ParentUpdate{
		ChildID: "child-1",
		Current: formstack.FormData{"currentStep": 2, "lineItems": []any{map[string]any{"id": "a"}}},
		Result:  formstack.FormData{"itemNo": "FD-1001", "amount": 10.0},
	}
	next, err := AppendLineItem(u)
	require.NoError(t, err)
	lines := next.Records("lineItems")
	require.Len(t, lines, 2)
	require.Equal(t, "child-1", lines[1]["id"])
	require.Equal(t, 2, next.Int("currentStep"))
	require.Len(t, u.Current.Records("lineItems"), 1, "handler must not mutate its input")

	next, err = ApplyItemSelection(formstack.ParentUpdate{
		Current: formstack.FormData{"unitPrice": "99"},
		Result:  formstack.FormData{"itemNo": "FD-1001", "description": "Feed", "unitPrice": 1850.0},
	})
	require.NoError(t, err)
	require.Equal(t, "99", next.String("unitPrice"))
	require.Equal(t, "FD-1001", next.String("itemNo"))

	next, err = ApplyShipTo(formstack.ParentUpdate{Result: formstack.FormData{"code": "MAIN"}})
	require.NoError(t, err)
	require.Equal(t, "MAIN", next.String("shipToCode"))
}

// Two line-item children opened from the same order both start from the same
// open-time payload. Building on it would let the second completion drop the
// first line, so handlers build on the stored payload instead.
func TestSiblingLineItemsBothKept(t *testing.T) {
	ctl := formstack.NewController(formstack.NewStore())
	order := ctl.Open(TypeSalesOrder, formstack.OpenOptions{
		FormData: formstack.FormData{"currentStep": 2, "customerNo": "C0001"},
	})
	req := formstack.ChildRequest{Title: "Line Item", AutoCloseOnSuccess: true, OnComplete: AppendLineItem}
	first, err := ctl.OpenChild(order, TypeLineItem, req)
	require.NoError(t, err)
	second, err := ctl.OpenChild(order, TypeLineItem, req)
	require.NoError(t, err)

	// edited on the order while the children are open
	ctl.PatchFormData(order, formstack.FormData{"externalDocNo": "PO-77"})

	_, err = ctl.Complete(first, formstack.Completion{Kind: formstack.CompletionSave, Result: formstack.FormData{"itemNo": "FD-1001"}})
	require.NoError(t, err)
	_, err = ctl.Complete(second, formstack.Completion{Kind: formstack.CompletionSave, Result: formstack.FormData{"itemNo": "SP-0001"}})
	require.NoError(t, err)

	tab, ok := ctl.Tab(order)
	require.True(t, ok)
	lines := tab.FormData.Records("lineItems")
	require.Len(t, lines, 2)
	require.Equal(t, "FD-1001", lines[0]["itemNo"])
	require.Equal(t, "SP-0001", lines[1]["itemNo"])
	require.Equal(t, "PO-77", tab.FormData.String("externalDocNo"))
	require.Equal(t, "C0001", tab.FormData.String("customerNo"))
}

func TestDraftFromPayload(t *testing.T) {
	d := Draft(formstack.FormData{
		"customerNo": "C0001",
		"lineItems": []any{
			map[string]any{"itemNo": "FD-1001", "quantity": 2.0, "unitPrice": 1850.0},
			"junk",
		},
	})
	require.Equal(t, "C0001", d.CustomerNo)
	require.Len(t, d.Lines, 1)
	require.Equal(t, 1850.0, d.Lines[0].UnitPrice)
}

func TestRegisterBindsBuiltins(t *testing.T) {
	reg := formstack.NewRegistry[Factory](nil)
	Register(reg)
	require.Equal(t, []string{TypeItemSelector, TypeLineItem, TypeSalesOrder, TypeShipTo}, reg.Types())
	f, ok := reg.Resolve(context.Background(), TypeShipTo)
	require.True(t, ok)
	require.NotNil(t, f)
}
