package formstack

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"pkt.systems/pslog"
)

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) entries(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(c.buf.Bytes(), []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		entry := map[string]any{}
		require.NoError(t, json.Unmarshal(line, &entry))
		out = append(out, entry)
	}
	return out
}

func entryMessage(e map[string]any) string {
	if v, ok := e["msg"].(string); ok {
		return v
	}
	v, _ := e["message"].(string)
	return v
}

func captureLogger(capture *logCapture) pslog.Logger {
	return pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.DebugLevel,
		VerboseFields: true,
	})
}

func appendLineItem(u ParentUpdate) (FormData, error) {
	next := u.Current.Clone()
	items := next.Records("lineItems")
	items = append(items, map[string]any(u.Result))
	list := make([]any, 0, len(items))
	for _, it := range items {
		list = append(list, it)
	}
	next["lineItems"] = list
	return next, nil
}

func TestSalesOrderLineItemScenario(t *testing.T) {
	c := NewController(NewStore())
	t1 := c.Open("sales-order", OpenOptions{Title: "New Order", FormData: FormData{"currentStep": 1}})
	c.UpdateFormData(t1, FormData{"currentStep": 2, "lineItems": []any{}})

	t2, err := c.OpenChild(t1, "line-item", ChildRequest{
		Title:              "Add Line",
		AutoCloseOnSuccess: true,
		OnComplete:         appendLineItem,
	})
	require.NoError(t, err)
	require.Equal(t, t2, c.Snapshot().ActiveID)

	out, err := c.Complete(t2, Completion{Kind: CompletionSave, Result: FormData{"id": "x", "amount": 100}})
	require.NoError(t, err)
	require.True(t, out.HandlerCalled)
	require.True(t, out.ParentPersisted)
	require.True(t, out.ChildClosed)

	snap := c.Snapshot()
	require.Equal(t, []TabID{t1}, snap.IDs())
	require.Equal(t, t1, snap.ActiveID)
	parent, _ := snap.Tab(t1)
	require.Equal(t, 2, parent.FormData.Int("currentStep"))
	items := parent.FormData.Records("lineItems")
	require.Len(t, items, 1)
	require.Equal(t, "x", items[0]["id"])
	require.Equal(t, 100, items[0]["amount"])
}

func TestOpenChildBuildsFreshContext(t *testing.T) {
	c := NewController(nil)
	parentData := FormData{"customerNo": "C1", "lineItems": []any{}}
	p := c.Open("sales-order", OpenOptions{FormData: parentData})
	childCtx := Context{"mode": "add"}
	child, err := c.OpenChild(p, "line-item", ChildRequest{FormData: parentData, Context: childCtx})
	require.NoError(t, err)

	tab, ok := c.Store().Tab(child)
	require.True(t, ok)
	require.True(t, tab.OpenedFromParent())
	require.Equal(t, string(p), tab.Context[CtxParentTabID])
	require.Equal(t, "add", tab.Context["mode"])
	require.Equal(t, p, tab.ParentID)
	_, mutated := childCtx[CtxOpenedFromParent]
	require.False(t, mutated, "caller context must not be modified")

	// Later parent edits do not reach the open child.
	c.PatchFormData(p, FormData{"customerNo": "C2"})
	tab, _ = c.Store().Tab(child)
	require.Equal(t, "C1", tab.FormData.String("customerNo"))
}

func TestOpenChildUnknownParent(t *testing.T) {
	c := NewController(nil)
	_, err := c.OpenChild("missing", "line-item", ChildRequest{})
	require.ErrorIs(t, err, ErrParentNotFound)
	require.Zero(t, c.Store().Len())
}

func TestCompletionHandlerReceivesOpenTimeSnapshot(t *testing.T) {
	c := NewController(nil)
	p := c.Open("sales-order", OpenOptions{FormData: FormData{"customerNo": "C1"}})
	var got ParentUpdate
	child, err := c.OpenChild(p, "ship-to", ChildRequest{OnComplete: func(u ParentUpdate) (FormData, error) {
		got = u
		return nil, nil
	}})
	require.NoError(t, err)
	c.PatchFormData(p, FormData{"customerNo": "C9"})

	_, err = c.Complete(child, Completion{Kind: CompletionSave, Result: FormData{"code": "S1"}})
	require.NoError(t, err)
	require.Equal(t, "C1", got.Snapshot.String("customerNo"))
	require.Equal(t, "C9", got.Current.String("customerNo"))
	require.Equal(t, p, got.ParentID)
	require.Equal(t, child, got.ChildID)
	require.Equal(t, CompletionSave, got.Kind)
}

func TestCompletionCallbackExactlyOnce(t *testing.T) {
	c := NewController(nil)
	p := c.Open("sales-order", OpenOptions{})
	calls := 0
	handler := func(ParentUpdate) (FormData, error) {
		calls++
		return nil, nil
	}
	saved, _ := c.OpenChild(p, "line-item", ChildRequest{AutoCloseOnSuccess: true, OnComplete: handler})
	_, err := c.Complete(saved, Completion{Kind: CompletionSave})
	require.NoError(t, err)
	// A duplicate completion after auto-close is stale.
	_, err = c.Complete(saved, Completion{Kind: CompletionSave})
	require.ErrorIs(t, err, ErrTabNotFound)
	require.Equal(t, 1, calls)

	cancelled, _ := c.OpenChild(p, "line-item", ChildRequest{AutoCloseOnSuccess: true, OnComplete: handler})
	c.Cancel(cancelled)
	require.False(t, c.Store().Has(cancelled))
	require.Equal(t, 1, calls)

	closed, _ := c.OpenChild(p, "line-item", ChildRequest{OnComplete: handler})
	c.CloseTab(closed)
	_, err = c.Complete(closed, Completion{Kind: CompletionSave})
	require.ErrorIs(t, err, ErrTabNotFound)
	require.Equal(t, 1, calls)
}

func TestCompletionWithoutAutoCloseKeepsChild(t *testing.T) {
	c := NewController(nil)
	p := c.Open("sales-order", OpenOptions{})
	child, _ := c.OpenChild(p, "ship-to", ChildRequest{OnComplete: func(ParentUpdate) (FormData, error) {
		return FormData{"shipToCode": "S1"}, nil
	}})
	out, err := c.Complete(child, Completion{Kind: CompletionSave})
	require.NoError(t, err)
	require.False(t, out.ChildClosed)

	tab, ok := c.Store().Tab(child)
	require.True(t, ok)
	require.True(t, tab.IsSaved)
	parent, _ := c.Store().Tab(p)
	require.Equal(t, "S1", parent.FormData.String("shipToCode"))

	c.CloseTab(child)
	require.Equal(t, p, c.Snapshot().ActiveID)
}

func TestCompletionHandlerFailureIsIsolated(t *testing.T) {
	capture := &logCapture{}
	c := NewController(nil, WithLogger(captureLogger(capture)))
	p := c.Open("sales-order", OpenOptions{FormData: FormData{"currentStep": 2}})
	boom := errors.New("boom")

	failing, _ := c.OpenChild(p, "line-item", ChildRequest{AutoCloseOnSuccess: true, OnComplete: func(ParentUpdate) (FormData, error) {
		return nil, boom
	}})
	before := c.Snapshot()
	_, err := c.Complete(failing, Completion{Kind: CompletionSave})
	require.ErrorIs(t, err, ErrCompletionFailed)
	require.ErrorIs(t, err, boom)
	after := c.Snapshot()
	require.Equal(t, before.Version, after.Version, "failed completion must not touch the store")
	require.Equal(t, failing, after.ActiveID)

	panicking, _ := c.OpenChild(p, "line-item", ChildRequest{AutoCloseOnSuccess: true, OnComplete: func(ParentUpdate) (FormData, error) {
		panic("bad form")
	}})
	_, err = c.Complete(panicking, Completion{Kind: CompletionSave})
	require.ErrorIs(t, err, ErrCompletionFailed)
	require.True(t, c.Store().Has(panicking))

	snap := c.Snapshot()
	_, ok := snap.Tab(snap.ActiveID)
	require.True(t, ok)

	var warned bool
	for _, e := range capture.entries(t) {
		if entryMessage(e) == "formstack completion handler failed" {
			warned = true
		}
	}
	require.True(t, warned)
}

func TestCompletionSkipsHandlerWhenParentClosed(t *testing.T) {
	c := NewController(nil)
	p := c.Open("sales-order", OpenOptions{})
	called := false
	child, _ := c.OpenChild(p, "line-item", ChildRequest{AutoCloseOnSuccess: true, OnComplete: func(ParentUpdate) (FormData, error) {
		called = true
		return FormData{}, nil
	}})
	c.CloseTab(p)
	out, err := c.Complete(child, Completion{Kind: CompletionSave})
	require.NoError(t, err)
	require.False(t, called)
	require.True(t, out.ChildClosed)
	require.Zero(t, c.Store().Len())
}

func TestTopLevelChildWithoutParent(t *testing.T) {
	c := NewController(nil)
	var got FormData
	child, err := c.OpenChild("", "item-selector", ChildRequest{AutoCloseOnSuccess: true, OnComplete: func(u ParentUpdate) (FormData, error) {
		got = u.Result
		return FormData{"ignored": true}, nil
	}})
	require.NoError(t, err)
	out, err := c.Complete(child, Completion{Kind: CompletionSelect, Result: FormData{"itemNo": "I-1"}})
	require.NoError(t, err)
	require.False(t, out.ParentPersisted)
	require.Equal(t, "I-1", got.String("itemNo"))
	require.Zero(t, c.Store().Len())
}

func TestCloseTabSingleUsesCloseAll(t *testing.T) {
	c := NewController(nil)
	id := c.Open("sales-order", OpenOptions{})
	var causes []EventType
	c.Subscribe(func(s Snapshot) { causes = append(causes, s.Cause.Type) })
	c.CloseTab(id)
	require.Equal(t, []EventType{EventCleared}, causes)
	c.CloseTab(id)
	require.Equal(t, []EventType{EventCleared}, causes)
}

func TestCloseActiveChildReturnsFocusToParent(t *testing.T) {
	c := NewController(nil)
	a := c.Open("sales-order", OpenOptions{})
	p := c.Open("sales-order", OpenOptions{})
	c.Switch(a)
	c.Switch(p)
	child, _ := c.OpenChild(p, "line-item", ChildRequest{})
	other := c.Open("voucher", OpenOptions{})
	c.Switch(child)
	c.CloseTab(child)
	snap := c.Snapshot()
	require.Equal(t, p, snap.ActiveID)
	require.Equal(t, []TabID{a, p, other}, snap.IDs())
}

func TestRequestCloseConfirmsLastUnsavedTab(t *testing.T) {
	c := NewController(nil, WithConfirmUnsavedClose(true))
	id := c.Open("sales-order", OpenOptions{})
	require.Equal(t, CloseNeedsConfirm, c.RequestClose(id))
	require.True(t, c.Store().Has(id))

	c.MarkSaved(id)
	require.Equal(t, Closed, c.RequestClose(id))
	require.Zero(t, c.Store().Len())
	require.Equal(t, CloseIgnored, c.RequestClose(id))

	a := c.Open("sales-order", OpenOptions{})
	c.Open("sales-order", OpenOptions{})
	require.Equal(t, Closed, c.RequestClose(a), "only the last tab asks")
}

func TestRequestCloseWithoutPolicyClosesSilently(t *testing.T) {
	c := NewController(nil)
	id := c.Open("sales-order", OpenOptions{})
	require.Equal(t, Closed, c.RequestClose(id))
	require.Zero(t, c.Store().Len())
}

func TestPersistStepReplaces(t *testing.T) {
	c := NewController(nil)
	id := c.Open("sales-order", OpenOptions{FormData: FormData{"currentStep": 1, "draft": "x"}})
	c.PersistStep(id, 3, FormData{"customerNo": "C1", "lineItems": []any{}})
	tab, _ := c.Store().Tab(id)
	require.Equal(t, FormData{"currentStep": 3, "customerNo": "C1", "lineItems": []any{}}, tab.FormData)
}

func TestSwitchRelativeWraps(t *testing.T) {
	c := NewController(nil)
	a := c.Open("x", OpenOptions{})
	b := c.Open("x", OpenOptions{})
	c.SwitchRelative(1)
	require.Equal(t, a, c.Snapshot().ActiveID)
	c.SwitchRelative(-1)
	require.Equal(t, b, c.Snapshot().ActiveID)
}

func TestChildrenListsOpenChildren(t *testing.T) {
	c := NewController(nil)
	p := c.Open("sales-order", OpenOptions{})
	x, _ := c.OpenChild(p, "line-item", ChildRequest{})
	y, _ := c.OpenChild(p, "ship-to", ChildRequest{})
	c.Cancel(x)
	require.Equal(t, []TabID{y}, c.Children(p))
}

func TestStaleCompletionIsLogged(t *testing.T) {
	capture := &logCapture{}
	c := NewController(nil, WithLogger(captureLogger(capture)))
	_, err := c.Complete("gone", Completion{Kind: CompletionSave})
	require.ErrorIs(t, err, ErrTabNotFound)
	entries := capture.entries(t)
	require.NotEmpty(t, entries)
	require.Equal(t, "formstack completion dropped", entryMessage(entries[0]))
	require.Equal(t, "gone", entries[0]["tab"])
}
