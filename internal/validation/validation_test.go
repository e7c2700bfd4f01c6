package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidVideoID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"dQw4w9WgXcQ", true},
		{"abc-_123XYZ", true},
		{"short", false},
		{"dQw4w9WgXcQx", false},
		{"dQw4w9WgXc!", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidVideoID(tt.id))
		})
	}
}

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		want   string
		wantOK bool
	}{
		{name: "watch", url: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", want: "dQw4w9WgXcQ", wantOK: true},
		{name: "watch without scheme", url: "youtube.com/watch?v=dQw4w9WgXcQ", want: "dQw4w9WgXcQ", wantOK: true},
		{name: "watch with extra params", url: "https://www.youtube.com/watch?list=PL1&v=dQw4w9WgXcQ&t=42", want: "dQw4w9WgXcQ", wantOK: true},
		{name: "short link", url: "https://youtu.be/dQw4w9WgXcQ?si=abc", want: "dQw4w9WgXcQ", wantOK: true},
		{name: "shorts", url: "https://www.youtube.com/shorts/abc-_123XYZ", want: "abc-_123XYZ", wantOK: true},
		{name: "embed", url: "https://www.youtube.com/embed/dQw4w9WgXcQ", want: "dQw4w9WgXcQ", wantOK: true},
		{name: "mobile", url: "https://m.youtube.com/watch?v=dQw4w9WgXcQ", want: "dQw4w9WgXcQ", wantOK: true},
		{name: "channel url", url: "https://www.youtube.com/@rickastley", wantOK: false},
		{name: "other host", url: "https://vimeo.com/123456789", wantOK: false},
		{name: "bare id is not a url", url: "dQw4w9WgXcQ", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractVideoID(tt.url)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeVideoID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{name: "bare id", raw: "dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "trimmed", raw: "  dQw4w9WgXcQ\n", want: "dQw4w9WgXcQ"},
		{name: "url", raw: "https://youtu.be/dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "non standard length passes through", raw: "abc", want: "abc"},
		{name: "empty", raw: "", wantErr: ErrEmptyVideoID},
		{name: "blank", raw: "   ", wantErr: ErrEmptyVideoID},
		{name: "comma would split upstream", raw: "aaa,bbb", wantErr: ErrMalformedVideoID},
		{name: "unrecognized url", raw: "https://example.com/v/1", wantErr: ErrMalformedVideoID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeVideoID(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
