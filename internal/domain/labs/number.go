package labs

import (
	"regexp"
	"strconv"
	"strings"
)

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d+)?|\.\d+)([eE][+-]?\d+)?`)

// numericPrefix returns the number a result starts with, so "25 mg/dL" reads
// as 25. Entries with no leading number are not numeric.
func numericPrefix(value string) (string, bool) {
	m := leadingNumber.FindString(strings.TrimSpace(value))
	return m, m != ""
}

func parseNumeric(value string) (float64, bool) {
	m, ok := numericPrefix(value)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	return f, err == nil
}
