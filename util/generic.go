// util/generic.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import "fmt"

// Select returns a if cond is true, otherwise b. Handy for avoiding a
// multi-line if/else for a single value.
func Select[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}

// MapSlice applies f to each element of s and returns the results.
func MapSlice[T, U any](s []T, f func(T) U) []U {
	if s == nil {
		return nil
	}
	r := make([]U, len(s))
	for i, v := range s {
		r[i] = f(v)
	}
	return r
}

// FilterSliceInPlace removes elements of s for which keep returns false,
// reusing s's backing array.
func FilterSliceInPlace[T any](s []T, keep func(T) bool) []T {
	n := 0
	for _, v := range s {
		if keep(v) {
			s[n] = v
			n++
		}
	}
	return s[:n]
}

// ByteCount formats a byte count using binary (1024-based) units, e.g.
// "4.2 MiB" for 4404020 bytes.
func ByteCount(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
