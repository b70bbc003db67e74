package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/fleetshop-backend/api/responses"
	pkgerrors "github.com/angelmondragon/fleetshop-backend/pkg/errors"
	"github.com/angelmondragon/fleetshop-backend/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// AuthRateLimitPolicy throttles one auth surface by client IP and by the
// email named in the JSON body. A zero limit disables that dimension.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int64
	emailLimit int64
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{
		name:       name,
		window:     window,
		ipLimit:    int64(ipLimit),
		emailLimit: int64(emailLimit),
	}
}

// counterKey buckets by window start so every counter resets on a boundary.
func (p AuthRateLimitPolicy) counterKey(dimension, subject string, now time.Time) string {
	bucket := now.Unix() / int64(p.window.Seconds())
	return "rl:" + p.name + ":" + dimension + ":" + subject + ":" + strconv.FormatInt(bucket, 10)
}

func (p AuthRateLimitPolicy) retryAfter(now time.Time) int {
	w := int64(p.window.Seconds())
	return int(w - now.Unix()%w)
}

// AuthRateLimit rejects requests over policy with 429 and a Retry-After hint.
// Counter failures surface as dependency errors rather than failing open.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || policy.window < time.Second || (policy.ipLimit <= 0 && policy.emailLimit <= 0) {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			now := time.Now()

			type check struct {
				dimension, subject string
				limit              int64
			}
			var checks []check
			if policy.ipLimit > 0 {
				if ip := clientIP(r); ip != "" {
					checks = append(checks, check{"ip", ip, policy.ipLimit})
				}
			}
			if policy.emailLimit > 0 {
				email, err := peekEmail(r)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
					return
				}
				if email != "" {
					checks = append(checks, check{"email", digest(email), policy.emailLimit})
				}
			}

			for _, c := range checks {
				n, err := store.IncrWithTTL(ctx, policy.counterKey(c.dimension, c.subject, now), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if n <= c.limit {
					continue
				}
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"policy":    policy.name,
						"dimension": c.dimension,
						"subject":   c.subject,
						"attempts":  n,
						"limit":     c.limit,
					}), "auth.rate_limited")
				}
				w.Header().Set("Retry-After", strconv.Itoa(policy.retryAfter(now)))
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// peekEmail reads the body, restores it for the next handler and returns the
// normalized "email" field. Non-JSON bodies yield an empty email.
func peekEmail(r *http.Request) (string, error) {
	if r.Body == nil {
		return "", nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	var probe struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(raw, &probe) != nil {
		return "", nil
	}
	return strings.ToLower(strings.TrimSpace(probe.Email)), nil
}

// clientIP prefers the first hop of X-Forwarded-For, then X-Real-IP, then the
// socket peer. Header values that do not parse as an IP are ignored.
func clientIP(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); first != "" {
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func digest(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:8])
}
