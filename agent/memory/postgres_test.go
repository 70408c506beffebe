package memory

import "testing"

func TestLikePrefixEscapesWildcards(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"fact:", "fact:%"},
		{"100%", `100\%%`},
		{"a_b", `a\_b%`},
		{`c:\dir`, `c:\\dir%`},
		{"", "%"},
	}
	for _, tc := range cases {
		if got := likePrefix(tc.in); got != tc.want {
			t.Fatalf("likePrefix(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
