package labs

import (
	"strconv"
	"strings"
)

// ExemptValue is the value recorded for a test marked not applicable.
const ExemptValue = "N/A"

type TestItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	Value        string `json:"value"`
	IsAbnormal   bool   `json:"is_abnormal"`
	IsExempt     bool   `json:"is_exempt,omitempty"`
	ExemptReason string `json:"exempt_reason,omitempty"`
}

// Resolved reports whether the item counts toward phase completion.
func (t *TestItem) Resolved() bool {
	return t.Value != "" || (t.IsExempt && t.ExemptReason != "")
}

// SyncItems appends a blank item for every catalog test the subject is
// eligible for and that is not already present by name. Existing items are
// never removed or reordered, so repeated calls are idempotent. It returns the
// new slice and the number of items added.
func SyncItems(existing []TestItem, s Subject) ([]TestItem, int) {
	out := make([]TestItem, len(existing), len(existing)+8)
	copy(out, existing)

	present := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		present[t.Name] = struct{}{}
	}

	next := nextID(existing)
	added := 0
	for _, cat := range catalog {
		for _, def := range cat.Tests {
			if !def.Eligibility.Allows(s) {
				continue
			}
			if _, ok := present[def.Name]; ok {
				continue
			}
			out = append(out, TestItem{
				ID:       "t" + strconv.Itoa(next),
				Name:     def.Name,
				Category: cat.Name,
			})
			present[def.Name] = struct{}{}
			next++
			added++
		}
	}

	return out, added
}

func nextID(items []TestItem) int {
	highest := 0
	for _, t := range items {
		if n, err := strconv.Atoi(strings.TrimPrefix(t.ID, "t")); err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1
}

func indexByID(items []TestItem, id string) (int, error) {
	for i := range items {
		if items[i].ID == id {
			return i, nil
		}
	}
	return -1, ErrTestNotFound
}

func clone(items []TestItem) []TestItem {
	out := make([]TestItem, len(items))
	copy(out, items)
	return out
}

// SetValue records a result, evaluates it against the catalog and refreshes
// derived tests. Tests without a catalog entry keep their current flag.
func SetValue(items []TestItem, id, value string, s Subject) ([]TestItem, error) {
	i, err := indexByID(items, id)
	if err != nil {
		return nil, err
	}
	if items[i].IsExempt {
		return nil, ErrTestExempt
	}

	out := clone(items)
	out[i].Value = value
	if def, ok := Lookup(out[i].Category, out[i].Name); ok {
		out[i].IsAbnormal = Evaluate(value, def, s)
	}

	return RecomputeDerived(out, s), nil
}

// Reevaluate flags every item whose value differs from prev, or that is new,
// and refreshes derived tests. Items with an unchanged value keep their flag,
// as do exempt items and tests without a catalog entry.
func Reevaluate(prev, next []TestItem, s Subject) []TestItem {
	before := make(map[string]string, len(prev))
	for _, t := range prev {
		before[t.ID] = t.Value
	}

	out := clone(next)
	for i := range out {
		if out[i].IsExempt {
			continue
		}
		if v, ok := before[out[i].ID]; ok && v == out[i].Value {
			continue
		}
		if def, ok := Lookup(out[i].Category, out[i].Name); ok {
			out[i].IsAbnormal = Evaluate(out[i].Value, def, s)
		}
	}
	return RecomputeDerived(out, s)
}

// ToggleAbnormal flips the clinician-controlled abnormal flag.
func ToggleAbnormal(items []TestItem, id string) ([]TestItem, error) {
	i, err := indexByID(items, id)
	if err != nil {
		return nil, err
	}
	out := clone(items)
	out[i].IsAbnormal = !out[i].IsAbnormal
	return out, nil
}

func Exempt(items []TestItem, id, reason string) ([]TestItem, error) {
	i, err := indexByID(items, id)
	if err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrExemptionReasonRequired
	}

	out := clone(items)
	out[i].IsExempt = true
	out[i].ExemptReason = reason
	out[i].Value = ExemptValue
	out[i].IsAbnormal = false
	return out, nil
}

// RemoveExemption clears an exemption and its placeholder value. The caller
// must pass confirmed=true.
func RemoveExemption(items []TestItem, id string, confirmed bool) ([]TestItem, error) {
	i, err := indexByID(items, id)
	if err != nil {
		return nil, err
	}
	if !items[i].IsExempt {
		return nil, ErrTestNotExempt
	}
	if !confirmed {
		return nil, ErrConfirmationRequired
	}

	out := clone(items)
	out[i].IsExempt = false
	out[i].ExemptReason = ""
	out[i].Value = ""
	return out, nil
}

// CompletionPercent is round(100 * resolved / total), 0 for an empty panel.
func CompletionPercent(items []TestItem) int {
	if len(items) == 0 {
		return 0
	}
	resolved := 0
	for i := range items {
		if items[i].Resolved() {
			resolved++
		}
	}
	return roundPercent(resolved, len(items))
}

func roundPercent(n, total int) int {
	return (200*n + total) / (2 * total)
}

type Finding struct {
	TestItem
	Unit         string          `json:"unit,omitempty"`
	RangeDisplay string          `json:"range_display,omitempty"`
	Range        *ReferenceRange `json:"range,omitempty"`
}

// AbnormalFindings lists flagged items with their reference for the subject.
func AbnormalFindings(items []TestItem, s Subject) []Finding {
	findings := make([]Finding, 0)
	for _, t := range items {
		if !t.IsAbnormal {
			continue
		}
		f := Finding{TestItem: t}
		if def, ok := Lookup(t.Category, t.Name); ok {
			f.Unit = def.Unit
			f.RangeDisplay = def.RangeDisplay
			if r, ok := def.RangeFor(s); ok {
				f.Range = &r
			}
		}
		findings = append(findings, f)
	}
	return findings
}
