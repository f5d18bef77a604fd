package vm

import (
	"strconv"
	"strings"

	"github.com/diannexlang/dx/pkg/value"
)

// execInterpolate implements push_interpolated_string / push_binary_interpolated_string
// (spec.md §4.3, §4.6): pop k values (first popped becomes v[0]), then
// substitute each ${N} placeholder in table[i] with v[N].to_string().
func (vm *VM) execInterpolate(table []string, i, k int32) error {
	vals := make([]value.Value, k)
	for idx := int32(0); idx < k; idx++ {
		vals[idx] = vm.popStack()
	}
	// first popped is v[0]; popping order above already fills vals[0] first.
	var template string
	if i >= 0 && int(i) < len(table) {
		template = table[i]
	}
	vm.pushStack(value.NewString(interpolate(template, vals)))
	return nil
}

// interpolate substitutes ${N} placeholders in s with vals[N].String().
// A backslash escapes a following '$' or '{'. Placeholders whose index is
// out of range, or that fail to parse as an integer, are left unchanged
// (spec.md §4.6).
func interpolate(s string, vals []value.Value) string {
	var b strings.Builder
	runes := []rune(s)
	for idx := 0; idx < len(runes); idx++ {
		c := runes[idx]
		if c == '\\' && idx+1 < len(runes) && (runes[idx+1] == '$' || runes[idx+1] == '{') {
			b.WriteRune(runes[idx+1])
			idx++
			continue
		}
		if c == '$' && idx+1 < len(runes) && runes[idx+1] == '{' {
			end := idx + 2
			for end < len(runes) && runes[end] != '}' {
				end++
			}
			if end < len(runes) {
				numStr := string(runes[idx+2 : end])
				n, err := strconv.Atoi(numStr)
				if err == nil && n >= 0 && n < len(vals) {
					b.WriteString(vals[n].String())
					idx = end
					continue
				}
			}
		}
		b.WriteRune(c)
	}
	return b.String()
}
