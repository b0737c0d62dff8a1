// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package slice adds the two generic helpers the provider adapters use to turn
raw API lists into domain values. It complements the standard [slices] package.
*/
package slice

// Map converts every element of input. A nil input stays nil.
func Map[T, U any](input []T, convert func(T) U) []U {
	if input == nil {
		return nil
	}

	out := make([]U, len(input))
	for i := range input {
		out[i] = convert(input[i])
	}
	return out
}

// Filter keeps the elements matching keep, in their original order.
// The result never aliases input.
func Filter[T any](input []T, keep func(T) bool) []T {
	var out []T
	for _, v := range input {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
