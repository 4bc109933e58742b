package gateway

import (
	"errors"
	"strings"
	"testing"
)

func TestReadVideo(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		limit   int64
		wantErr bool
	}{
		{"under limit", "abc", 8, false},
		{"exactly at limit", "abcdefgh", 8, false},
		{"one byte over", "abcdefghi", 8, true},
		{"empty", "", 8, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := ReadVideo(strings.NewReader(tt.body), tt.limit)
			if tt.wantErr {
				if !errors.Is(err, ErrVideoTooLarge) {
					t.Fatalf("error = %v, want ErrVideoTooLarge", err)
				}
				if data != nil {
					t.Errorf("data = %q, want nil", data)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if string(data) != tt.body {
				t.Errorf("data = %q, want %q", data, tt.body)
			}
		})
	}
}
