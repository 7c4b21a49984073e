/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package logarithm provides exact integer logarithms computed through a precomputed lookup table.
//
// The table stores every power of the base that fits into int64 and answers floor(log_base(n))
// with O(log N) integer comparisons, so the result is exact at every power boundary
// and never depends on floating-point rounding.
package logarithm
