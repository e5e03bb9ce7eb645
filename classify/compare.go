package classify

import (
	"bytes"
	"fmt"
)

// Comparator decides whether actual output matches expected output. The
// policy is fixed per deployment at construction time, never chosen per
// test case.
type Comparator func(expected, actual []byte) bool

// ExactMatch requires byte-for-byte equality
func ExactMatch(expected, actual []byte) bool {
	return bytes.Equal(expected, actual)
}

// IgnoreTrailingSpace strips trailing whitespace from every line and
// trailing empty lines before comparing. This is the default policy.
func IgnoreTrailingSpace(expected, actual []byte) bool {
	return bytes.Equal(normalize(expected), normalize(actual))
}

func normalize(b []byte) []byte {
	lines := bytes.Split(b, []byte{'\n'})
	for i, l := range lines {
		lines[i] = bytes.TrimRight(l, " \t\r")
	}
	out := bytes.Join(lines, []byte{'\n'})
	return bytes.TrimRight(out, "\n")
}

// ComparatorByName resolves a deployment-configured policy name
func ComparatorByName(name string) (Comparator, error) {
	switch name {
	case "exact":
		return ExactMatch, nil
	case "", "trailing-space":
		return IgnoreTrailingSpace, nil
	default:
		return nil, fmt.Errorf("classify: unknown comparison policy %q", name)
	}
}
