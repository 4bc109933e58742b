package playback

import (
	"errors"
	"testing"
)

func TestParseRange(t *testing.T) {
	const clipSize = 1000

	tests := []struct {
		name    string
		header  string
		size    int64
		want    *Range
		wantErr error
	}{
		{name: "no header", header: "", size: clipSize},
		{name: "player opening request", header: "bytes=0-", size: clipSize, want: &Range{0, 999}},
		{name: "seek", header: "bytes=500-", size: clipSize, want: &Range{500, 999}},
		{name: "bounded", header: "bytes=100-199", size: clipSize, want: &Range{100, 199}},
		{name: "single byte", header: "bytes=0-0", size: clipSize, want: &Range{0, 0}},
		{name: "last byte", header: "bytes=999-", size: clipSize, want: &Range{999, 999}},
		{name: "end clamped", header: "bytes=0-2000", size: clipSize, want: &Range{0, 999}},
		{name: "suffix for moov atom", header: "bytes=-500", size: clipSize, want: &Range{500, 999}},
		{name: "suffix larger than file", header: "bytes=-2000", size: 500, want: &Range{0, 499}},
		{name: "multi range uses first", header: "bytes=0-99, 200-299", size: clipSize, want: &Range{0, 99}},
		{name: "padded", header: "  bytes= 10-19 ", size: clipSize, want: &Range{10, 19}},

		{name: "empty clip", header: "bytes=0-", size: 0, wantErr: ErrUnsatisfiable},
		{name: "start at size", header: "bytes=1000-", size: clipSize, wantErr: ErrUnsatisfiable},
		{name: "past the end", header: "bytes=1500-2000", size: clipSize, wantErr: ErrUnsatisfiable},
		{name: "reversed", header: "bytes=200-100", size: clipSize, wantErr: ErrUnsatisfiable},

		{name: "no unit", header: "invalid", size: clipSize, wantErr: ErrInvalidRange},
		{name: "other unit", header: "frames=0-100", size: clipSize, wantErr: ErrInvalidRange},
		{name: "bad start", header: "bytes=abc-100", size: clipSize, wantErr: ErrInvalidRange},
		{name: "bad end", header: "bytes=0-abc", size: clipSize, wantErr: ErrInvalidRange},
		{name: "zero suffix", header: "bytes=-0", size: clipSize, wantErr: ErrInvalidRange},
		{name: "extra dash", header: "bytes=1-2-3", size: clipSize, wantErr: ErrInvalidRange},
		{name: "no dash", header: "bytes=12", size: clipSize, wantErr: ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRange(tt.header, tt.size)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseRange(%q) error = %v, want %v", tt.header, err, tt.wantErr)
			}
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("ParseRange(%q) = %+v, want nil", tt.header, *got)
			case tt.want != nil && (got == nil || *got != *tt.want):
				t.Errorf("ParseRange(%q) = %v, want %+v", tt.header, got, *tt.want)
			}
		})
	}
}

func TestRange_Headers(t *testing.T) {
	r := Range{Start: 500, End: 999}

	if got := r.ContentLength(); got != 500 {
		t.Errorf("ContentLength() = %d, want 500", got)
	}
	if got := r.ContentRange(1000); got != "bytes 500-999/1000" {
		t.Errorf("ContentRange() = %q", got)
	}
	if got := (Range{}).ContentLength(); got != 1 {
		t.Errorf("zero range ContentLength() = %d, want 1", got)
	}
}
