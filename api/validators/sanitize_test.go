package validators

import "testing"

func TestSanitizeString(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{name: "trims", input: "  Receipt 42  ", want: "Receipt 42"},
		{name: "collapses whitespace", input: "Happy\t\thour   10%", want: "Happy hour 10%"},
		{name: "drops control characters", input: "Staff\x00 discount\x07", want: "Staff discount"},
		{name: "truncates runes", input: "Café Crème", maxLen: 4, want: "Café"},
		{name: "no trailing space at limit", input: "ab cd", maxLen: 3, want: "ab"},
		{name: "blank", input: " \n\t ", want: ""},
	}
	for _, tc := range cases {
		if got := SanitizeString(tc.input, tc.maxLen); got != tc.want {
			t.Fatalf("%s: expected %q got %q", tc.name, tc.want, got)
		}
	}
}
