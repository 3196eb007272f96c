package excerpt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromMarkdown(t *testing.T) {
	tests := []struct {
		name string
		src  string
		max  int
		want string
	}{
		{
			name: "skips heading and takes first paragraph",
			src:  "# Title\n\nHello *world*, this is **bold**.\n\nSecond paragraph.",
			want: "Hello world, this is bold.",
		},
		{
			name: "joins soft line breaks",
			src:  "first line\nsecond line\n\nnext",
			want: "first line second line",
		},
		{
			name: "ignores code blocks",
			src:  "```go\nfmt.Println()\n```\n\nAfter code.",
			want: "After code.",
		},
		{
			name: "strips inline html",
			src:  "Text with <b>tags</b> inside.",
			want: "Text with tags inside.",
		},
		{
			name: "empty document",
			src:  "",
			want: "",
		},
		{
			name: "truncates on word boundary",
			src:  "one two three four five",
			max:  10,
			want: "one two…",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromMarkdown(tt.src, tt.max))
		})
	}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "emphasis title", Sanitize("<em>emphasis</em>  title"))
	assert.Equal(t, "don't panic", Sanitize("don't panic"))
	assert.Equal(t, "plain", Sanitize("plain"))
}
