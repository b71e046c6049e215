package labs

import "strings"

// Evaluate reports whether value is outside the reference for the subject.
// Numeric results are read from their leading number. Blank entries and
// entries with no leading number are never flagged; the clinician can still
// flag them by hand.
func Evaluate(value string, def *Definition, s Subject) bool {
	v := strings.TrimSpace(value)
	if v == "" || def == nil {
		return false
	}

	if def.Type == ValidationNumeric && def.Min != nil && def.Max != nil {
		num, ok := parseNumeric(v)
		if !ok {
			return false
		}
		return num < def.Min(s) || num > def.Max(s)
	}

	if def.Type == ValidationQualitative && len(def.Expected) > 0 {
		lower := strings.ToLower(v)
		for _, ex := range def.Expected {
			if strings.Contains(lower, strings.ToLower(ex)) {
				return false
			}
		}
		return true
	}

	if len(def.AbnormalKeywords) > 0 {
		lower := strings.ToLower(v)
		for _, k := range def.AbnormalKeywords {
			if strings.Contains(lower, strings.ToLower(k)) {
				return true
			}
		}
	}

	return false
}
