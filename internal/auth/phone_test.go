// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/newswizard/internal/auth"
)

/*
TestNormalizePhoneNumber verifies valid international numbers become E.164 and
anything else is passed through trimmed.
*/
func TestNormalizePhoneNumber(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"formatted", "+1 (650) 253-0000", "+16502530000"},
		{"already e164", "+16502530000", "+16502530000"},
		{"surrounding space", "\t+44 20 7031 3000\n", "+442070313000"},
		{"no country prefix", " 6502530000 ", "6502530000"},
		{"not a number", "hello", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.NormalizePhoneNumber(tt.raw))
		})
	}
}
