// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// NormalizePhoneNumber formats an international number as E.164.
//
// Input that does not parse as a valid number with its country prefix is only
// trimmed and passed on; the provider has the final say.
func NormalizePhoneNumber(raw string) string {
	phone := strings.TrimSpace(raw)

	number, err := phonenumbers.Parse(phone, "")
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return phone
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}
