package forms

import (
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/formstack"
)

// AppendLineItem appends the completed line to the parent's lineItems. It
// builds on the parent's current stored payload so edits made while the child
// was open are kept.
func AppendLineItem(u formstack.ParentUpdate) (formstack.FormData, error) {
	next := base(u)
	line := map[string]any(u.Result.Clone())
	if line == nil {
		line = map[string]any{}
	}
	if _, ok := line["id"]; !ok {
		line["id"] = string(u.ChildID)
	}
	items := next.Records("lineItems")
	list := make([]any, 0, len(items)+1)
	for _, it := range items {
		list = append(list, it)
	}
	next["lineItems"] = append(list, line)
	return next, nil
}

// ApplyShipTo sets the parent's ship-to code from a saved address.
func ApplyShipTo(u formstack.ParentUpdate) (formstack.FormData, error) {
	next := base(u)
	next["shipToCode"] = u.Result.String("code")
	return next, nil
}

// ApplyItemSelection copies a selected item into a line being edited. A price
// the user already typed is kept.
func ApplyItemSelection(u formstack.ParentUpdate) (formstack.FormData, error) {
	next := base(u)
	next["itemNo"] = u.Result.String("itemNo")
	next["description"] = u.Result.String("description")
	if fieldText(next, "unitPrice") == "" {
		next["unitPrice"] = formatAmount(u.Result.Float("unitPrice"))
	}
	return next, nil
}

func base(u formstack.ParentUpdate) formstack.FormData {
	next := u.Current.Clone()
	if next == nil {
		next = formstack.FormData{}
	}
	return next
}
