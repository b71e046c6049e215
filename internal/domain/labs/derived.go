package labs

import "github.com/shopspring/decimal"

// DerivedRule computes Target as Numerator / Denominator.
type DerivedRule struct {
	Target      string
	Numerator   string
	Denominator string
}

var derivedRules = []DerivedRule{
	{Target: TestBUNCrRatio, Numerator: TestBUN, Denominator: TestCreatinine},
}

func DerivedRules() []DerivedRule {
	return derivedRules
}

// RecomputeDerived returns a copy of items with every derived test refreshed
// from its inputs. A derived test is left alone when either input is blank or
// non-numeric, the divisor is zero, or the target is exempt. The abnormal flag
// is re-evaluated only when the computed value changes, so a manual flag on an
// unchanged ratio survives.
func RecomputeDerived(items []TestItem, s Subject) []TestItem {
	out := make([]TestItem, len(items))
	copy(out, items)

	for _, rule := range derivedRules {
		ti := indexByName(out, rule.Target)
		if ti < 0 || out[ti].IsExempt {
			continue
		}
		num, ok := numericValue(out, rule.Numerator)
		if !ok {
			continue
		}
		den, ok := numericValue(out, rule.Denominator)
		if !ok || den.IsZero() {
			continue
		}

		value := num.Div(den).Round(1).StringFixed(1)
		if out[ti].Value == value {
			continue
		}
		out[ti].Value = value
		def, _ := Lookup(out[ti].Category, out[ti].Name)
		out[ti].IsAbnormal = Evaluate(value, def, s)
	}

	return out
}

func numericValue(items []TestItem, name string) (decimal.Decimal, bool) {
	i := indexByName(items, name)
	if i < 0 {
		return decimal.Decimal{}, false
	}
	v, ok := numericPrefix(items[i].Value)
	if !ok {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func indexByName(items []TestItem, name string) int {
	for i := range items {
		if items[i].Name == name {
			return i
		}
	}
	return -1
}
