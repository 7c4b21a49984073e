/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package logarithm

import (
	"math"
	"strconv"
	"strings"
)

type node struct {
	threshold int64
	exponent  int64
	valid     bool
}

// Table answers floor(log_base(n)) for non-negative integers using a precomputed lookup structure.
// Thresholds (base^1, base^2, ...) are laid out as a balanced binary search tree in a heap-indexed array.
// Table is immutable after construction and safe for concurrent use.
type Table struct {
	base      int64
	nodes     []node
	maxInput  int64
	maxOutput int64
}

// NewTable creates a new Table for the given base.
// Base must be greater than 1, otherwise *ConfigError wrapping ErrInvalidBase is returned.
func NewTable(base int) (*Table, error) {
	if base <= 1 {
		return nil, &ConfigError{Base: base, Err: ErrInvalidBase}
	}

	b := int64(base)
	var sorted []node
	for power, exp := b, int64(1); ; exp++ {
		sorted = append(sorted, node{threshold: power, exponent: exp, valid: true})
		if power > math.MaxInt64/b {
			break // next power doesn't fit into int64
		}
		power *= b
	}

	t := &Table{
		base:      b,
		nodes:     make([]node, nextPowerOf2(len(sorted))*2),
		maxInput:  sorted[len(sorted)-1].threshold,
		maxOutput: sorted[len(sorted)-1].exponent,
	}
	t.build(sorted, 0, len(sorted), 0)
	return t, nil
}

// MustNewTable is like NewTable but panics if the base is invalid.
func MustNewTable(base int) *Table {
	t, err := NewTable(base)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) build(sorted []node, lo, hi, idx int) {
	if lo >= hi {
		return
	}
	mid := lo + (hi-lo)/2
	t.nodes[idx] = sorted[mid]
	t.build(sorted, lo, mid, idx*2+1)
	t.build(sorted, mid+1, hi, idx*2+2)
}

// Log returns the integer part of the logarithm of value.
// Values below the base give 0. For negative values the magnitude is used.
func (t *Table) Log(value int64) int64 {
	if value < 0 {
		value = -value
	}
	if value < t.base {
		return 0
	}

	var result int64
	for i := 0; i < len(t.nodes) && t.nodes[i].valid; {
		if n := t.nodes[i]; n.threshold <= value {
			result = n.exponent
			i = i*2 + 2
		} else {
			i = i*2 + 1
		}
	}
	return result
}

// Base returns the base of the logarithm.
func (t *Table) Base() int {
	return int(t.base)
}

// MaxInput returns the largest power of the base that is stored in the table.
func (t *Table) MaxInput() int64 {
	return t.maxInput
}

// MaxOutput returns the exponent of the largest power stored in the table.
func (t *Table) MaxOutput() int64 {
	return t.maxOutput
}

// String returns a human-readable dump of the lookup array, useful for debugging.
// Implements fmt.Stringer interface.
func (t *Table) String() string {
	var sb strings.Builder
	sb.WriteString("LogTable<")
	sb.WriteString(strconv.FormatInt(t.base, 10))
	sb.WriteString(">(")
	for i, n := range t.nodes {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("[index=")
		sb.WriteString(strconv.Itoa(i))
		sb.WriteString(",input=")
		sb.WriteString(strconv.FormatInt(n.threshold, 10))
		sb.WriteString(",output=")
		sb.WriteString(strconv.FormatInt(n.exponent, 10))
		sb.WriteByte(']')
	}
	sb.WriteByte(')')
	return sb.String()
}

func nextPowerOf2(n int) int {
	v := 1
	for v < n {
		v *= 2
	}
	return v
}
