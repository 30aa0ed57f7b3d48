package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pizzalemon/pos-backend/api/responses"
	pkgerrors "github.com/pizzalemon/pos-backend/pkg/errors"
	"github.com/pizzalemon/pos-backend/pkg/logger"
	pkgredis "github.com/pizzalemon/pos-backend/pkg/redis"
)

const (
	idempotencyHeader      = "Idempotency-Key"
	replayHeader           = "Idempotent-Replay"
	maxIdempotencyKeyLen   = 128
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

// idempotencyRule binds a POST route template to its replay window. Template
// segments written as {name} match any single path segment.
type idempotencyRule struct {
	method   string
	template string
	ttl      time.Duration
	required bool
}

// Stock and points deltas require a key; elsewhere it is optional.
var idempotencyRules = []idempotencyRule{
	{http.MethodPost, "/api/v1/sales", criticalIdempotencyTTL, false},
	{http.MethodPost, "/api/v1/sales/{id}/void", criticalIdempotencyTTL, false},
	{http.MethodPost, "/api/v1/inventory/adjust", defaultIdempotencyTTL, true},
	{http.MethodPost, "/api/v1/customers/{id}/loyalty", defaultIdempotencyTTL, true},
	{http.MethodPost, "/api/v1/customers", defaultIdempotencyTTL, false},
	{http.MethodPost, "/api/v1/products", defaultIdempotencyTTL, false},
}

// storedResponse is what Redis keeps per key. Body is []byte so JSON carries
// it base64-encoded.
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	RequestHash string `json:"request_hash"`
}

// Idempotency replays the stored response when a key is reused with the same
// body and rejects reuse with a different body.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule, ok := matchRule(r.Method, routePath(r))
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			fail := func(err error) { responses.WriteError(ctx, logg, w, err) }

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			switch {
			case clientKey == "" && rule.required:
				fail(pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			case clientKey == "":
				next.ServeHTTP(w, r)
				return
			case len(clientKey) > maxIdempotencyKeyLen:
				fail(pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header too long"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				fail(pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fingerprint := sha256.Sum256(body)
			requestHash := hex.EncodeToString(fingerprint[:])
			key := store.IdempotencyKey(replayScope(r), clientKey)

			prior, err := store.Get(ctx, key)
			if err != nil && !pkgredis.IsNil(err) {
				fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if prior != "" {
				var saved storedResponse
				if err := json.Unmarshal([]byte(prior), &saved); err != nil {
					fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
					return
				}
				if saved.RequestHash != requestHash {
					fail(pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
					return
				}
				if logg != nil {
					logg.Info(logg.WithField(ctx, "idempotency_key", clientKey), "request.idempotent_replay")
				}
				replay(w, saved)
				return
			}

			var captured bytes.Buffer
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&captured)
			next.ServeHTTP(ww, r)

			// Only successes are remembered so a failed attempt can be retried.
			status := writtenStatus(ww)
			if status < http.StatusOK || status >= http.StatusMultipleChoices {
				return
			}

			payload, err := json.Marshal(storedResponse{
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        captured.Bytes(),
				RequestHash: requestHash,
			})
			if err == nil {
				_, err = store.SetNX(ctx, key, string(payload), rule.ttl)
			}
			if err != nil && logg != nil {
				logg.Error(ctx, "persist idempotency record", err)
			}
		})
	}
}

// replayScope keeps keys from colliding across employees, branches and
// endpoints.
func replayScope(r *http.Request) string {
	ctx := r.Context()
	return strings.Join([]string{
		EmployeeIDFromContext(ctx),
		BranchIDFromContext(ctx),
		r.Method,
		r.URL.Path,
	}, "|")
}

func replay(w http.ResponseWriter, saved storedResponse) {
	if saved.ContentType != "" {
		w.Header().Set("Content-Type", saved.ContentType)
	}
	w.Header().Set(replayHeader, "true")
	w.WriteHeader(saved.Status)
	_, _ = w.Write(saved.Body)
}

// routePath prefers the chi pattern once routing has resolved it. Group
// middleware only sees a partial pattern ending in "*".
func routePath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" && !strings.HasSuffix(pattern, "*") {
			return pattern
		}
	}
	return r.URL.Path
}

func matchRule(method, path string) (idempotencyRule, bool) {
	for _, rule := range idempotencyRules {
		if rule.method == method && matchTemplate(rule.template, path) {
			return rule, true
		}
	}
	return idempotencyRule{}, false
}

func matchTemplate(template, path string) bool {
	want := strings.Split(strings.Trim(template, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(want) != len(got) {
		return false
	}
	for i, seg := range want {
		if strings.HasPrefix(seg, "{") {
			if got[i] == "" {
				return false
			}
			continue
		}
		if seg != got[i] {
			return false
		}
	}
	return true
}
