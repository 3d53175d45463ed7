package rss

import "testing"

func TestHTMLToText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "plain   text\n here", want: "plain text here"},
		{in: "<p>Entry <b>level</b></p><p>Pune</p>", want: "Entry level\nPune"},
		{in: "<ul><li>Go</li><li>SQL</li></ul>", want: "Go\nSQL"},
		{in: "line<br>break", want: "line\nbreak"},
		{in: "<style>p{}</style><p>kept</p>", want: "kept"},
		{in: "Tom &amp; Jerry", want: "Tom & Jerry"},
		{in: "<span>Tom &amp; Jerry</span>", want: "Tom & Jerry"},
	}
	for _, tc := range cases {
		if got := HTMLToText(tc.in); got != tc.want {
			t.Errorf("HTMLToText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
