// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package api contains the probe handlers for liveness, readiness and user status.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/taibuivan/newswizard/internal/auth"
	"github.com/taibuivan/newswizard/internal/platform/apperr"
	"github.com/taibuivan/newswizard/internal/platform/constants"
	"github.com/taibuivan/newswizard/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/newswizard/internal/platform/request"
	"github.com/taibuivan/newswizard/internal/platform/respond"
)

// Check is one named dependency pinged by the /ready endpoint.
type Check struct {
	// Name is reported in the response, e.g. "session_storage".
	Name string

	// Ping returns nil when the dependency is reachable.
	Ping func(ctx context.Context) error
}

// UserDirectory is the read side of the user store exposed to operators.
type UserDirectory interface {
	Lookup(userID int64) (*auth.Entry, auth.Preferences, bool)
	Len() int
}

type healthHandler struct {
	checks []Check
	users  UserDirectory
}

type checkResult struct {
	Name  string `json:"name"`
	IsOK  bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// userStatus is the operator view of one user. Transient handshake data
// (phone number, code) is never exposed.
type userStatus struct {
	UserID   int64  `json:"user_id"`
	Phase    string `json:"phase"`
	Language string `json:"language"`
	Jobs     int    `json:"jobs"`
}

// phaseBusy is reported when the user is being served and the machine cannot be read.
const phaseBusy = "busy"

// # Liveness

// liveness handles GET /health.
func (handler *healthHandler) liveness(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, map[string]any{
		"status": "ok",
		"users":  handler.users.Len(),
	})
}

// # Readiness

// readiness handles GET /ready.
func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	results := make([]checkResult, 0, len(handler.checks))
	isSystemReady := true

	for _, check := range handler.checks {
		ctx, cancel := context.WithTimeout(request.Context(), constants.ReadinessCheckTimeout)
		err := check.Ping(ctx)
		cancel()

		result := checkResult{Name: check.Name, IsOK: err == nil}
		if err != nil {
			result.Error = err.Error()
			isSystemReady = false
			ctxutil.GetLogger(request.Context()).Error("readiness_check_failed",
				slog.String("dependency", check.Name),
				slog.Any("error", err),
			)
		}
		results = append(results, result)
	}

	responseStatus := "ready"
	httpStatus := http.StatusOK
	if !isSystemReady {
		responseStatus = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	respond.Data(writer, httpStatus, map[string]any{
		"status": responseStatus,
		"checks": results,
	})
}

// # User Status

// userStatus handles GET /users/{userID}.
func (handler *healthHandler) userStatus(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.Int64Param(request, "userID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	entry, prefs, ok := handler.users.Lookup(userID)
	if !ok {
		respond.Error(writer, request, apperr.NotFound("User"))
		return
	}

	status := userStatus{
		UserID:   userID,
		Phase:    phaseBusy,
		Language: prefs.Language.String(),
		Jobs:     len(entry.Jobs()),
	}

	// Never wait on a user being served.
	if entry.TryAcquire() {
		status.Phase = entry.Machine().Phase().String()
		entry.Release()
	}

	respond.OK(writer, status)
}
