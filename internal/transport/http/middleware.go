// Copyright 2026 The EdgePanel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"github.com/edgepanel/edgepanel/internal/audit"
	"github.com/edgepanel/edgepanel/internal/observability/logger"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			slog.InfoContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// loginStampInterval bounds how often the activity stamp hits the
// store for the same principal.
const loginStampInterval = 5 * time.Minute

// AuthMiddleware verifies the bearer token and adds the principal id
// to the request context. Token issuance lives outside this service;
// only verification happens here. Authorization is NOT decided here,
// that is RequirePermission's job.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(raw, claims,
			func(t *jwt.Token) (any, error) { return h.signingKey, nil },
			jwt.WithValidMethods([]string{"HS256"}),
			jwt.WithIssuer(h.tokenIssuer),
			jwt.WithExpirationRequired(),
		)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		if claims.Subject == "" {
			respondError(w, http.StatusUnauthorized, "token has no subject")
			return
		}

		// Best-effort activity stamp, throttled per principal.
		now := time.Now()
		if last, ok := h.loginStamps.Load(claims.Subject); !ok || now.Sub(last.(time.Time)) > loginStampInterval {
			h.loginStamps.Store(claims.Subject, now)
			h.adminService.RecordLogin(r.Context(), claims.Subject)
			h.auditLogger.Log(r.Context(), audit.Event{
				Type:      audit.TypeAdminLogin,
				ActorID:   claims.Subject,
				Resource:  "admin",
				IPAddress: getClientIP(r),
				UserAgent: r.UserAgent(),
			})
		}

		ctx := context.WithValue(r.Context(), principalIDKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission authorizes the request's principal for a single
// permission before the handler runs. Denials carry no detail about
// the principal's actual grants.
func (h *Handler) RequirePermission(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principalID := GetPrincipalID(r.Context())
			if principalID == "" {
				respondError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			d, err := h.authzService.Authorize(r.Context(), principalID, resource, action)
			if err != nil {
				slog.ErrorContext(r.Context(), "authorization check failed",
					logger.PrincipalID(principalID),
					logger.Resource(resource),
					logger.Action(action),
					logger.Error(err),
				)
				respondError(w, http.StatusInternalServerError, "authorization check failed")
				return
			}
			if !d.Allowed {
				respondError(w, http.StatusForbidden, "permission denied")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):]
	}
	return ""
}
