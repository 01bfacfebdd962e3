package tui

import (
	"sort"
	"strings"

	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/formstack"
)

const (
	sectionForms    = "Forms"
	sectionChildren = "Opened from a form"
)

type pickerItem struct {
	ID      formstack.TabID
	Label   string
	Section string
	Meta    string
	Search  string
}

type pickerAction int

const (
	pickerNone pickerAction = iota
	pickerMoved
	pickerSelected
	pickerCancelled
)

type pickerResult struct {
	Action pickerAction
	Item   pickerItem
}

// tabPicker is the mini access panel: a filterable list of open tabs.
type tabPicker struct {
	items    []pickerItem
	filtered []pickerItem
	query    string
	cursor   int
}

func newTabPicker(snap formstack.Snapshot) *tabPicker {
	p := &tabPicker{}
	p.setTabs(snap)
	p.focus(snap.ActiveID)
	return p
}

// setTabs rebuilds the list after the stack changed, keeping the query.
func (p *tabPicker) setTabs(snap formstack.Snapshot) {
	items := make([]pickerItem, 0, len(snap.Tabs))
	for _, t := range snap.Tabs {
		label := t.Title
		if label == "" {
			label = t.FormType
		}
		section := sectionForms
		if t.ParentID != "" {
			section = sectionChildren
		}
		items = append(items, pickerItem{
			ID:      t.ID,
			Label:   label,
			Section: section,
			Meta:    t.FormType,
			Search:  label + " " + t.FormType,
		})
	}
	p.items = items
	p.rebuild()
}

func (p *tabPicker) focus(id formstack.TabID) {
	for i, it := range p.filtered {
		if it.ID == id {
			p.cursor = i
			return
		}
	}
}

func (p *tabPicker) current() (pickerItem, bool) {
	if len(p.filtered) == 0 {
		return pickerItem{}, false
	}
	return p.filtered[min(max(p.cursor, 0), len(p.filtered)-1)], true
}

func (p *tabPicker) HandleKey(keyName string) pickerResult {
	switch keyName {
	case "up", "shift+tab":
		if p.cursor > 0 {
			p.cursor--
			return pickerResult{Action: pickerMoved}
		}
		return pickerResult{Action: pickerNone}
	case "down", "tab":
		if p.cursor < len(p.filtered)-1 {
			p.cursor++
			return pickerResult{Action: pickerMoved}
		}
		return pickerResult{Action: pickerNone}
	case "enter":
		item, ok := p.current()
		if !ok {
			return pickerResult{Action: pickerNone}
		}
		return pickerResult{Action: pickerSelected, Item: item}
	case "esc", "ctrl+g":
		return pickerResult{Action: pickerCancelled}
	case "backspace":
		if r := []rune(p.query); len(r) > 0 {
			p.query = string(r[:len(r)-1])
			p.rebuild()
		}
		return pickerResult{Action: pickerNone}
	default:
		if len(keyName) == 1 && keyName[0] >= 32 && keyName[0] < 127 {
			p.query += keyName
			p.rebuild()
		}
		return pickerResult{Action: pickerNone}
	}
}

func (p *tabPicker) sectionOrder() []string {
	seen := make(map[string]bool, 2)
	var out []string
	for _, it := range p.items {
		if !seen[it.Section] {
			seen[it.Section] = true
			out = append(out, it.Section)
		}
	}
	return out
}

type scoredItem struct {
	item  pickerItem
	score int
	index int
}

// rebuild filters by query. Sections keep their first-seen order, rows inside
// a section sort by score and then stack position.
func (p *tabPicker) rebuild() {
	q := strings.TrimSpace(p.query)
	bySection := make(map[string][]scoredItem)
	for idx, it := range p.items {
		ok, score := fuzzyScore(it.Search, q)
		if !ok {
			continue
		}
		bySection[it.Section] = append(bySection[it.Section], scoredItem{item: it, score: score, index: idx})
	}
	out := make([]pickerItem, 0, len(p.items))
	for _, section := range p.sectionOrder() {
		rows := bySection[section]
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].score != rows[j].score {
				return rows[i].score > rows[j].score
			}
			return rows[i].index < rows[j].index
		})
		for _, r := range rows {
			out = append(out, r.item)
		}
	}
	p.filtered = out
	p.cursor = min(max(p.cursor, 0), max(len(out)-1, 0))
}

// fuzzyScore matches query as an ordered subsequence of label. Prefix and
// consecutive hits score higher.
func fuzzyScore(label, query string) (bool, int) {
	if query == "" {
		return true, 0
	}
	l := strings.ToLower(label)
	q := strings.ToLower(query)

	hits := make([]int, 0, len(q))
	from := 0
	for i := 0; i < len(q); i++ {
		j := strings.IndexByte(l[from:], q[i])
		if j < 0 {
			return false, 0
		}
		hits = append(hits, from+j)
		from += j + 1
	}
	score := len(q)
	if hits[0] == 0 {
		score += 10
	}
	for i := 1; i < len(hits); i++ {
		if hits[i] == hits[i-1]+1 {
			score += 3
		}
	}
	return true, score
}
