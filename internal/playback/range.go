package playback

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidRange  = errors.New("invalid range format")
	ErrUnsatisfiable = errors.New("range not satisfiable")
)

// Range is an inclusive byte range.
type Range struct {
	Start int64
	End   int64
}

func (r Range) ContentLength() int64 {
	return r.End - r.Start + 1
}

func (r Range) ContentRange(total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, total)
}

// bounds is one parsed "first-last" or "-suffix" byte range before it is
// resolved against a file size. A negative last means open ended.
type bounds struct {
	first, last int64
	suffix      bool
}

// ParseRange reads a Range header the way browsers send it for <video>
// seeking. A nil range with a nil error means the whole file. Only the first
// range of a multi-range request is honoured.
func ParseRange(header string, size int64) (*Range, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, nil
	}
	set, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, ErrInvalidRange
	}
	first, _, _ := strings.Cut(set, ",")

	sp, err := parseBounds(strings.TrimSpace(first))
	if err != nil {
		return nil, err
	}
	return sp.resolve(size)
}

func parseBounds(s string) (bounds, error) {
	from, to, ok := strings.Cut(s, "-")
	if !ok || strings.Contains(to, "-") {
		return bounds{}, ErrInvalidRange
	}

	if from == "" {
		n, err := strconv.ParseInt(to, 10, 64)
		if err != nil || n <= 0 {
			return bounds{}, ErrInvalidRange
		}
		return bounds{first: n, suffix: true}, nil
	}

	start, err := strconv.ParseInt(from, 10, 64)
	if err != nil || start < 0 {
		return bounds{}, ErrInvalidRange
	}
	if to == "" {
		return bounds{first: start, last: -1}, nil
	}
	end, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return bounds{}, ErrInvalidRange
	}
	return bounds{first: start, last: end}, nil
}

func (sp bounds) resolve(size int64) (*Range, error) {
	if size <= 0 {
		return nil, ErrUnsatisfiable
	}
	last := size - 1

	if sp.suffix {
		return &Range{Start: max(size-sp.first, 0), End: last}, nil
	}

	end := sp.last
	if end < 0 || end > last {
		end = last
	}
	if sp.first > last || (sp.last >= 0 && sp.first > sp.last) {
		return nil, ErrUnsatisfiable
	}
	return &Range{Start: sp.first, End: end}, nil
}
