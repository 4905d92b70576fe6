package annotation

import (
	"fmt"
	"math"
	"strings"
)

// WindowPolicy decides when an annotation stops being visible.
type WindowPolicy int

const (
	// WindowFixed keeps an annotation visible for its full duration.
	WindowFixed WindowPolicy = iota
	// WindowTruncateAtNext additionally ends an annotation when the next
	// later annotation starts.
	WindowTruncateAtNext
)

func (p WindowPolicy) String() string {
	if p == WindowTruncateAtNext {
		return "truncate"
	}
	return "fixed"
}

// ParseWindowPolicy accepts "fixed" or "truncate" (case-insensitive).
func ParseWindowPolicy(s string) (WindowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fixed":
		return WindowFixed, nil
	case "truncate", "truncate-at-next":
		return WindowTruncateAtNext, nil
	}
	return WindowFixed, fmt.Errorf("unknown window policy %q", s)
}

// Ends returns the effective end time of each annotation in list, index
// aligned with list.
func Ends(list []Annotation, policy WindowPolicy) []float64 {
	ends := make([]float64, len(list))
	for i, a := range list {
		ends[i] = a.End()
	}
	if policy != WindowTruncateAtNext {
		return ends
	}
	for i, a := range list {
		next := math.Inf(1)
		for _, b := range list {
			if b.Timestamp > a.Timestamp && b.Timestamp < next {
				next = b.Timestamp
			}
		}
		ends[i] = math.Min(ends[i], next)
	}
	return ends
}

// VisibleAt returns the annotations of list whose window contains t, in
// list order.
func VisibleAt(list []Annotation, t float64, policy WindowPolicy) []Annotation {
	ends := Ends(list, policy)
	var out []Annotation
	for i, a := range list {
		if a.Timestamp <= t && t <= ends[i] {
			out = append(out, a)
		}
	}
	return out
}

// VisibleMask is VisibleAt expressed as a per-index flag.
func VisibleMask(list []Annotation, t float64, policy WindowPolicy) []bool {
	ends := Ends(list, policy)
	mask := make([]bool, len(list))
	for i, a := range list {
		mask[i] = a.Timestamp <= t && t <= ends[i]
	}
	return mask
}
