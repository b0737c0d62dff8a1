// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package requestutil extracts typed values from HTTP requests.

It hides the router's parameter lookup so handlers only see validated values
or an [apperr.ValidationError].
*/
package requestutil

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/newswizard/internal/platform/apperr"
)

// Param extracts a raw URL parameter by name.
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Int64Param extracts a URL parameter and parses it as a base-10 int64.

Parameters:
  - request: *http.Request
  - name: string (the route placeholder, e.g. "userID")

Returns:
  - int64: the parsed value
  - error: apperr.ValidationError naming the parameter when it is missing or malformed
*/
func Int64Param(request *http.Request, name string) (int64, error) {
	raw := Param(request, name)
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.ValidationError("Invalid "+name,
			apperr.FieldError{Field: name, Message: "Must be an integer"})
	}
	return value, nil
}
