// Package cardid implements the hierarchical card identifier syntax: dot-separated
// positive integers such as "7", "7.2" and "7.2.1".
package cardid

import (
	"slices"
	"strconv"
	"strings"
)

const sep = "."

// Valid reports whether id is a non-empty dot-separated sequence of positive integers.
func Valid(id string) bool {
	if id == "" {
		return false
	}
	for _, seg := range strings.Split(id, sep) {
		n, ok := number(seg)
		if !ok || n == 0 {
			return false
		}
	}
	return true
}

// Depth returns the number of segments in id.
func Depth(id string) int {
	if id == "" {
		return 0
	}
	return strings.Count(id, sep) + 1
}

// Parent strips the trailing segment. Top-level IDs have no parent.
func Parent(id string) (string, bool) {
	i := strings.LastIndex(id, sep)
	if i < 0 {
		return "", false
	}
	return id[:i], true
}

// IsTopLevel reports whether id has a single segment.
func IsTopLevel(id string) bool {
	return !strings.Contains(id, sep)
}

// NextTopLevel returns max(top-level IDs)+1, or "1" when there are none.
// IDs that are not purely decimal are ignored.
func NextTopLevel(existing []string) string {
	var highest uint64
	for _, id := range existing {
		if !IsTopLevel(id) {
			continue
		}
		if n, ok := number(id); ok && n > highest {
			highest = n
		}
	}
	return strconv.FormatUint(highest+1, 10)
}

// NextChild returns parent.(max immediate child segment + 1), or parent.1 when
// no child exists yet.
func NextChild(parent string, existing []string) string {
	prefix := parent + sep
	var highest uint64
	for _, id := range existing {
		rest, ok := strings.CutPrefix(id, prefix)
		if !ok {
			continue
		}
		seg, _, _ := strings.Cut(rest, sep)
		if n, ok := number(seg); ok && n > highest {
			highest = n
		}
	}
	return prefix + strconv.FormatUint(highest+1, 10)
}

// Compare orders IDs naturally: segment by segment, numerically where both
// segments are numbers, so "2" < "10" and "7.2" < "7.10" < "8".
func Compare(a, b string) int {
	as, bs := strings.Split(a, sep), strings.Split(b, sep)
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := compareSegment(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return len(as) - len(bs)
}

// Sort sorts ids in place in natural order.
func Sort(ids []string) {
	slices.SortFunc(ids, Compare)
}

func compareSegment(a, b string) int {
	an, aok := number(a)
	bn, bok := number(b)
	switch {
	case aok && bok:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	case aok:
		return -1
	case bok:
		return 1
	}
	return strings.Compare(a, b)
}

// number parses a segment made only of ASCII digits.
func number(seg string) (uint64, bool) {
	if seg == "" {
		return 0, false
	}
	for i := 0; i < len(seg); i++ {
		if seg[i] < '0' || seg[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(seg, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
