/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package logarithm

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTable_InvalidBase(t *testing.T) {
	for _, base := range []int{-10, -1, 0, 1} {
		table, err := NewTable(base)
		require.Nil(t, table)
		require.ErrorIs(t, err, ErrInvalidBase)
		var cfgErr *ConfigError
		require.True(t, errors.As(err, &cfgErr))
		require.Equal(t, base, cfgErr.Base)
	}
	require.Panics(t, func() { MustNewTable(1) })
}

func TestTable_Log_PowerBoundaries(t *testing.T) {
	for _, base := range []int{2, 3, 4, 5, 6, 7, 8, 9, 10, 16, 1000, 1 << 20} {
		table, err := NewTable(base)
		require.NoError(t, err)

		power := int64(base)
		for k := int64(1); k <= table.MaxOutput(); k++ {
			require.Equal(t, k, table.Log(power), "base=%d, k=%d", base, k)
			require.Equal(t, k-1, table.Log(power-1), "base=%d, k=%d", base, k)
			require.Equal(t, k, table.Log(power+1), "base=%d, k=%d", base, k)
			if k < table.MaxOutput() {
				power *= int64(base)
			}
		}
		require.Equal(t, power, table.MaxInput(), "base=%d", base)
	}
}

func TestTable_Log(t *testing.T) {
	tests := []struct {
		name  string
		base  int
		value int64
		want  int64
	}{
		{name: "zero", base: 2, value: 0, want: 0},
		{name: "below base", base: 10, value: 9, want: 0},
		{name: "equal to base", base: 10, value: 10, want: 1},
		{name: "between powers", base: 10, value: 999, want: 2},
		{name: "negative value uses magnitude", base: 10, value: -1000, want: 3},
		{name: "max int64 base 2", base: 2, value: math.MaxInt64, want: 62},
		{name: "max int64 base 10", base: 10, value: math.MaxInt64, want: 18},
		{name: "min int64", base: 2, value: math.MinInt64, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := MustNewTable(tt.base)
			require.Equal(t, tt.want, table.Log(tt.value))
		})
	}
}

func TestTable_Log_Exhaustive(t *testing.T) {
	table := MustNewTable(3)
	want := int64(0)
	next := int64(3)
	for v := int64(0); v < 100000; v++ {
		if v == next {
			want++
			next *= 3
		}
		require.Equal(t, want, table.Log(v), "value=%d", v)
	}
}

func TestTable_Accessors(t *testing.T) {
	table := MustNewTable(10)
	require.Equal(t, 10, table.Base())
	require.Equal(t, int64(18), table.MaxOutput())
	require.Equal(t, int64(1_000_000_000_000_000_000), table.MaxInput())
	require.Contains(t, table.String(), "LogTable<10>(")
	require.Contains(t, table.String(), "input=1000,output=3")
}
