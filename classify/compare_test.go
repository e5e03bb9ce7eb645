package classify

import "testing"

func TestExactMatch(t *testing.T) {
	if !ExactMatch([]byte("a b\n"), []byte("a b\n")) {
		t.Error("identical bytes must match")
	}
	if ExactMatch([]byte("a b\n"), []byte("a b \n")) {
		t.Error("exact policy must notice trailing space")
	}
	if ExactMatch([]byte("a"), []byte("a\n")) {
		t.Error("exact policy must notice trailing newline")
	}
}

func TestIgnoreTrailingSpace(t *testing.T) {
	cases := []struct {
		expected, actual string
		want             bool
	}{
		{"1 2 3\n", "1 2 3", true},
		{"1 2 3\n", "1 2 3   \n", true},
		{"a\nb\n", "a  \nb\t\r\n", true},
		{"a\nb", "a\nb\n\n\n", true},
		{"a b", "a  b", false},
		{"a\nb", "a\nc", false},
		{" a", "a", false}, // leading whitespace is significant
	}
	for _, c := range cases {
		if got := IgnoreTrailingSpace([]byte(c.expected), []byte(c.actual)); got != c.want {
			t.Errorf("IgnoreTrailingSpace(%q, %q) = %v, want %v", c.expected, c.actual, got, c.want)
		}
	}
}

func TestComparatorByName(t *testing.T) {
	if _, err := ComparatorByName("exact"); err != nil {
		t.Error(err)
	}
	if _, err := ComparatorByName("trailing-space"); err != nil {
		t.Error(err)
	}
	if _, err := ComparatorByName(""); err != nil {
		t.Error("empty name selects the default policy")
	}
	if _, err := ComparatorByName("fuzzy"); err == nil {
		t.Error("unknown policy must be rejected")
	}
}
