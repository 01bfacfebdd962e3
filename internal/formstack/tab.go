package formstack

import (
	"reflect"
	"time"

	"github.com/google/uuid"
)

// TabID identifies an open tab for the lifetime of the session.
type TabID string

// Context keys set by the controller on child tabs.
const (
	CtxOpenedFromParent = "openedFromParent"
	CtxParentTabID      = "parentTabId"
)

// FormData is the open-ended payload owned by a tab.
type FormData map[string]any

// Context is the creation-time payload of a tab. It is never mutated after Open.
type Context map[string]any

// Tab is one stacked, independently addressable form instance.
type Tab struct {
	ID                 TabID
	FormType           string
	Title              string
	FormData           FormData
	Context            Context
	ParentID           TabID
	IsSaved            bool
	AutoCloseOnSuccess bool
	OpenedAt           time.Time
}

// OpenOptions configures a new tab.
type OpenOptions struct {
	Title              string
	FormData           FormData
	Context            Context
	AutoCloseOnSuccess bool

	parentID TabID
}

// OpenedFromParent reports whether the tab was opened as a child.
func (t Tab) OpenedFromParent() bool {
	v, _ := t.Context[CtxOpenedFromParent].(bool)
	return v
}

func (t Tab) clone() Tab {
	out := t
	out.FormData = FormData(cloneMap(t.FormData))
	out.Context = Context(cloneMap(t.Context))
	return out
}

func newTabID() TabID {
	return TabID(uuid.NewString())
}

// Clone returns a deep copy of the payload.
func (d FormData) Clone() FormData {
	if d == nil {
		return nil
	}
	return FormData(cloneMap(d))
}

// String returns the value at key when it is a string.
func (d FormData) String(key string) string {
	v, _ := d[key].(string)
	return v
}

// Int returns the value at key as an int, accepting the numeric shapes a
// payload picks up from literals and decoders.
func (d FormData) Int(key string) int {
	switch v := d[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Float returns the value at key as a float64.
func (d FormData) Float(key string) float64 {
	switch v := d[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// Records returns the value at key as a list of objects. Non-object entries are skipped.
func (d FormData) Records(key string) []map[string]any {
	switch v := d[key].(type) {
	case []map[string]any:
		out := make([]map[string]any, 0, len(v))
		for _, rec := range v {
			out = append(out, cloneMap(rec))
		}
		return out
	case []FormData:
		out := make([]map[string]any, 0, len(v))
		for _, rec := range v {
			out = append(out, cloneMap(rec))
		}
		return out
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if rec, ok := item.(map[string]any); ok {
				out = append(out, cloneMap(rec))
			} else if rec, ok := item.(FormData); ok {
				out = append(out, cloneMap(rec))
			}
		}
		return out
	default:
		return nil
	}
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case FormData:
		return FormData(cloneMap(val))
	case Context:
		return Context(cloneMap(val))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, item := range val {
			out[i] = cloneMap(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	case nil:
		return nil
	default:
		return cloneReflect(reflect.ValueOf(v)).Interface()
	}
}

// cloneReflect copies typed maps, slices and arrays so payloads such as
// []FormData or map[string]string are never shared with the caller. Pointers,
// channels and funcs are kept as they are.
func cloneReflect(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(reflect.ValueOf(cloneValue(v.Elem().Interface())))
		return out
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneReflect(iter.Value()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneReflect(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneReflect(v.Index(i)))
		}
		return out
	default:
		return v
	}
}
