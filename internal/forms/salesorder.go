package forms

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/catalog"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/database/repository"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/formstack"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/service"
)

const (
	stepCustomer = 1
	stepLines    = 2
	stepReview   = 3
)

var stepNames = []string{"Customer", "Lines", "Review"}

// SalesOrder is a three step wizard: customer, lines, review and submit.
// It persists {currentStep, customerNo, shipToCode, lineItems} into its tab
// on every step change and before opening a child, never per keystroke.
type SalesOrder struct {
	deps  Deps
	props Props

	step       int
	customerNo string
	shipToCode string
	lines      []map[string]any
	orderNo    string

	customers  []repository.Customer
	shipTos    []repository.ShipTo
	custCursor int
	lineCursor int

	errs       catalog.ValidationErrors
	status     string
	submitting bool
}

// NewSalesOrder builds the wizard, resuming from the tab's stored step.
func NewSalesOrder(props Props, deps Deps) Form {
	f := &SalesOrder{deps: deps}
	f.Reload(props)
	return f
}

type customersLoadedMsg struct {
	tab  formstack.TabID
	list []repository.Customer
	err  error
}

func (m customersLoadedMsg) Target() formstack.TabID { return m.tab }

type shipTosLoadedMsg struct {
	tab        formstack.TabID
	customerNo string
	list       []repository.ShipTo
	err        error
}

func (m shipTosLoadedMsg) Target() formstack.TabID { return m.tab }

type orderSubmittedMsg struct {
	tab   formstack.TabID
	order repository.SalesOrder
	err   error
}

func (m orderSubmittedMsg) Target() formstack.TabID { return m.tab }

func (f *SalesOrder) Init() tea.Cmd {
	cmds := []tea.Cmd{f.loadCustomers()}
	if f.customerNo != "" {
		cmds = append(cmds, f.loadShipTos(f.customerNo))
	}
	return tea.Batch(cmds...)
}

// Reload adopts the stored payload. Cursor positions survive.
func (f *SalesOrder) Reload(props Props) {
	f.props = props
	data := props.FormData
	f.step = data.Int("currentStep")
	if f.step < stepCustomer || f.step > stepReview {
		f.step = stepCustomer
	}
	f.customerNo = data.String("customerNo")
	f.shipToCode = data.String("shipToCode")
	f.orderNo = data.String("orderNo")
	f.lines = data.Records("lineItems")
	if f.lineCursor >= len(f.lines) {
		f.lineCursor = max(len(f.lines)-1, 0)
	}
}

func (f *SalesOrder) fields() formstack.FormData {
	list := make([]any, 0, len(f.lines))
	for _, l := range f.lines {
		list = append(list, l)
	}
	data := formstack.FormData{
		"customerNo": f.customerNo,
		"shipToCode": f.shipToCode,
		"lineItems":  list,
	}
	if f.orderNo != "" {
		data["orderNo"] = f.orderNo
	}
	return data
}

func (f *SalesOrder) persist(step int) {
	f.step = step
	f.deps.Host.PersistStep(f.props.TabID, step, f.fields())
}

// advance moves to step when the rules gated on it hold.
func (f *SalesOrder) advance(step int) {
	data := f.fields()
	data["currentStep"] = step
	f.errs = validate(f.deps, TypeSalesOrder, data)
	if len(f.errs) > 0 {
		return
	}
	f.persist(step)
}

func (f *SalesOrder) Update(msg tea.Msg) (Form, tea.Cmd) {
	switch m := msg.(type) {
	case customersLoadedMsg:
		if m.err != nil {
			f.status = "load customers: " + m.err.Error()
			return f, nil
		}
		f.customers = m.list
		f.custCursor = 0
		for i, c := range f.customers {
			if c.No == f.customerNo {
				f.custCursor = i
			}
		}
		return f, nil
	case shipTosLoadedMsg:
		if m.customerNo != f.customerNo {
			return f, nil
		}
		if m.err != nil {
			f.status = "load ship-to: " + m.err.Error()
			return f, nil
		}
		f.shipTos = m.list
		return f, nil
	case orderSubmittedMsg:
		f.submitting = false
		if m.err != nil {
			f.status = "submit failed: " + m.err.Error()
			return f, emit(StatusMsg{Text: f.status, IsErr: true})
		}
		f.orderNo = m.order.No
		f.status = ""
		f.persist(stepReview)
		f.deps.Host.MarkSaved(f.props.TabID)
		f.deps.Host.SetTitle(f.props.TabID, "Sales Order "+m.order.No)
		f.deps.logger(f.props.TabID, TypeSalesOrder).Info("sales order saved", "order", m.order.No)
		return f, emit(StatusMsg{Text: "order " + m.order.No + " submitted"})
	case tea.KeyMsg:
		return f.handleKey(m)
	}
	return f, nil
}

func (f *SalesOrder) handleKey(msg tea.KeyMsg) (Form, tea.Cmd) {
	if f.orderNo != "" {
		return f, nil
	}
	switch f.step {
	case stepCustomer:
		switch msg.String() {
		case "up", "k":
			return f, f.pickCustomer(f.custCursor - 1)
		case "down", "j":
			return f, f.pickCustomer(f.custCursor + 1)
		case "tab":
			f.cycleShipTo()
		case "ctrl+a":
			return f, f.openShipTo()
		case "enter":
			f.advance(stepLines)
		}
	case stepLines:
		switch msg.String() {
		case "up", "k":
			if f.lineCursor > 0 {
				f.lineCursor--
			}
		case "down", "j":
			if f.lineCursor < len(f.lines)-1 {
				f.lineCursor++
			}
		case "a", "ctrl+a":
			return f, f.openLine()
		case "x", "delete":
			if len(f.lines) > 0 {
				f.lines = append(f.lines[:f.lineCursor], f.lines[f.lineCursor+1:]...)
				if f.lineCursor >= len(f.lines) {
					f.lineCursor = max(len(f.lines)-1, 0)
				}
				f.persist(stepLines)
			}
		case "esc":
			f.errs = nil
			f.persist(stepCustomer)
		case "enter":
			f.advance(stepReview)
		}
	case stepReview:
		switch msg.String() {
		case "esc":
			f.persist(stepLines)
		case "enter":
			if f.submitting {
				return f, nil
			}
			f.submitting = true
			f.status = "submitting..."
			return f, f.submit()
		}
	}
	return f, nil
}

func (f *SalesOrder) pickCustomer(idx int) tea.Cmd {
	if len(f.customers) == 0 {
		return nil
	}
	idx = min(max(idx, 0), len(f.customers)-1)
	f.custCursor = idx
	no := f.customers[idx].No
	if no == f.customerNo {
		return nil
	}
	f.customerNo = no
	f.shipToCode = ""
	f.shipTos = nil
	return f.loadShipTos(no)
}

func (f *SalesOrder) cycleShipTo() {
	if len(f.shipTos) == 0 {
		f.shipToCode = ""
		return
	}
	next := 0
	for i, s := range f.shipTos {
		if s.Code == f.shipToCode {
			next = i + 1
		}
	}
	if next >= len(f.shipTos) {
		f.shipToCode = ""
		return
	}
	f.shipToCode = f.shipTos[next].Code
}

func (f *SalesOrder) openShipTo() tea.Cmd {
	if f.customerNo == "" {
		f.errs = catalog.ValidationErrors{"customerNo": "select a customer"}
		return nil
	}
	f.persist(f.step)
	req := childRequest(f.deps, TypeShipTo, formstack.FormData{"customerNo": f.customerNo}, ApplyShipTo)
	if _, err := f.deps.Host.OpenChild(f.props.TabID, TypeShipTo, req); err != nil {
		return emit(StatusMsg{Text: err.Error(), IsErr: true})
	}
	return nil
}

func (f *SalesOrder) openLine() tea.Cmd {
	f.persist(f.step)
	req := childRequest(f.deps, TypeLineItem, formstack.FormData{}, AppendLineItem)
	if _, err := f.deps.Host.OpenChild(f.props.TabID, TypeLineItem, req); err != nil {
		return emit(StatusMsg{Text: err.Error(), IsErr: true})
	}
	return nil
}

func (f *SalesOrder) loadCustomers() tea.Cmd {
	if f.deps.Orders == nil {
		return nil
	}
	tab, ctx, orders := f.props.TabID, f.deps.context(f.props.TabID), f.deps.Orders
	return func() tea.Msg {
		list, err := orders.Customers(ctx)
		return customersLoadedMsg{tab: tab, list: list, err: err}
	}
}

func (f *SalesOrder) loadShipTos(customerNo string) tea.Cmd {
	if f.deps.Orders == nil {
		return nil
	}
	tab, ctx, orders := f.props.TabID, f.deps.context(f.props.TabID), f.deps.Orders
	return func() tea.Msg {
		list, err := orders.ShipTos(ctx, customerNo)
		return shipTosLoadedMsg{tab: tab, customerNo: customerNo, list: list, err: err}
	}
}

// Draft converts the wizard's payload into an order draft.
func Draft(data formstack.FormData) service.OrderDraft {
	d := service.OrderDraft{
		CustomerNo: data.String("customerNo"),
		ShipToCode: data.String("shipToCode"),
	}
	for _, rec := range data.Records("lineItems") {
		line := formstack.FormData(rec)
		d.Lines = append(d.Lines, service.LineDraft{
			ItemNo:      line.String("itemNo"),
			Description: line.String("description"),
			Quantity:    line.Float("quantity"),
			UnitPrice:   line.Float("unitPrice"),
		})
	}
	return d
}

func (f *SalesOrder) submit() tea.Cmd {
	if f.deps.Orders == nil {
		f.submitting = false
		return emit(StatusMsg{Text: "no ERP backend configured", IsErr: true})
	}
	tab, ctx, orders := f.props.TabID, f.deps.context(f.props.TabID), f.deps.Orders
	draft := Draft(f.fields())
	return func() tea.Msg {
		order, err := orders.Submit(ctx, draft)
		return orderSubmittedMsg{tab: tab, order: order, err: err}
	}
}

func (f *SalesOrder) total() float64 {
	var total float64
	for _, l := range f.lines {
		total += formstack.FormData(l).Float("amount")
	}
	return total
}

func (f *SalesOrder) View(width, height int) string {
	var b strings.Builder
	var steps []string
	for i, name := range stepNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if i+1 == f.step {
			steps = append(steps, stepOnStyle.Render(label))
		} else {
			steps = append(steps, stepStyle.Render(label))
		}
	}
	b.WriteString(titleStyle.Render("Sales Order") + "  " + strings.Join(steps, " > ") + "\n\n")

	switch f.step {
	case stepCustomer:
		b.WriteString(labelStyle.Render("Customer") + "\n")
		if len(f.customers) == 0 {
			b.WriteString(helpStyle.Render("loading customers...") + "\n")
		}
		for i, c := range f.customers {
			b.WriteString(fmt.Sprintf("%s %-8s %s, %s\n", marker(i == f.custCursor), c.No, rowStyle.Render(c.Name), c.City))
		}
		ship := f.shipToCode
		if ship == "" {
			ship = "(bill-to address)"
		}
		b.WriteString("\n" + labelStyle.Render("Ship-to: ") + ship + "\n")
		b.WriteString(helpStyle.Render("↑/↓ customer  tab: ship-to  ctrl+a: new ship-to  enter: next"))
	case stepLines:
		b.WriteString(labelStyle.Render("Customer: ") + f.customerNo + "\n\n")
		if len(f.lines) == 0 {
			b.WriteString(helpStyle.Render("no lines yet") + "\n")
		}
		for i, l := range f.lines {
			line := formstack.FormData(l)
			b.WriteString(fmt.Sprintf("%s %-8s %-28s %6s x %10s = %s\n",
				marker(i == f.lineCursor), line.String("itemNo"), line.String("description"),
				formatAmount(line.Float("quantity")), money(f.deps.Currency, line.Float("unitPrice")),
				money(f.deps.Currency, line.Float("amount"))))
		}
		b.WriteString("\n" + helpStyle.Render("a: add line  x: remove  enter: review  esc: back"))
	case stepReview:
		b.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Customer:"), f.customerNo))
		if f.shipToCode != "" {
			b.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Ship-to:"), f.shipToCode))
		}
		b.WriteString(fmt.Sprintf("%s %d\n", labelStyle.Render("Lines:"), len(f.lines)))
		b.WriteString(fmt.Sprintf("%s %s\n\n", labelStyle.Render("Total:"), money(f.deps.Currency, f.total())))
		if f.orderNo != "" {
			b.WriteString(okStyle.Render("Submitted as "+f.orderNo) + "\n")
		} else {
			b.WriteString(helpStyle.Render("enter: submit  esc: back"))
		}
	}
	for _, line := range renderErrors(f.errs) {
		b.WriteString("\n" + line)
	}
	if f.status != "" {
		b.WriteString("\n" + f.status)
	}
	return b.String()
}
