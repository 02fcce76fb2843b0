package handler

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aetherlens/backend/internal/config"
	"github.com/aetherlens/backend/internal/logger"
	"github.com/aetherlens/backend/internal/model"
	"github.com/aetherlens/backend/internal/ratelimit"
	"github.com/aetherlens/backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "request_id"
	authUserKey  = "auth_user"

	minuteRetryAfter = 60
	hourRetryAfter   = 3600
)

// Paths that never pass through admission.
var admissionBypass = map[string]struct{}{
	"/":             {},
	"/health":       {},
	"/health/live":  {},
	"/health/ready": {},
	metricsPath:     {},
	"/docs":         {},
	"/redoc":        {},
	"/openapi.json": {},
}

// RequestContext is the correlation stage. It echoes or mints X-Request-ID, binds a
// request-scoped logger to the request context, and is the outermost recovery
// boundary: a panic anywhere downstream is logged and answered with a bare 500.
func RequestContext(base *zap.Logger) gin.HandlerFunc {
	if base == nil {
		base = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()

		requestID := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		log := base.With(
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), log))
		log.Debug("Request started")

		defer func() {
			if rec := recover(); rec != nil {
				log.Error("Unhandled panic", zap.Any("panic", rec), zap.Stack("stack"))
				if c.Writer.Written() {
					c.Abort()
				} else {
					c.AbortWithStatusJSON(http.StatusInternalServerError, model.ErrorResponse{Detail: detailInternal})
				}
			}
			logCompletion(log, c, time.Since(start))
		}()

		c.Next()
	}
}

func logCompletion(log *zap.Logger, c *gin.Context, latency time.Duration) {
	status := c.Writer.Status()
	fields := []zap.Field{
		zap.Int("status", status),
		zap.String("client", c.ClientIP()),
		zap.Duration("latency", latency),
		zap.Int("body_size", c.Writer.Size()),
	}
	if len(c.Errors) > 0 {
		fields = append(fields, zap.String("errors", c.Errors.String()))
	}

	switch {
	case status >= 500:
		log.Error("Request completed", fields...)
	case status >= 400:
		log.Warn("Request completed", fields...)
	default:
		log.Info("Request completed", fields...)
	}
}

// GetRequestID returns the correlation id bound by RequestContext.
func GetRequestID(c *gin.Context) string {
	if id, ok := c.Get(requestIDKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

func CORSMiddleware(allowedOrigins []string, allowCredentials bool) gin.HandlerFunc {
	originMap := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		originMap[trimmed] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := originMap[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
				if allowCredentials {
					c.Header("Access-Control-Allow-Credentials", "true")
				}
				c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
				c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				c.Header("Access-Control-Expose-Headers", strings.Join([]string{
					RequestIDHeader,
					"Retry-After",
					"X-RateLimit-Limit-Minute",
					"X-RateLimit-Remaining-Minute",
					"X-RateLimit-Limit-Hour",
					"X-RateLimit-Remaining-Hour",
				}, ", "))
			}
		}

		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// ClientKeyFunc derives the admission key for a request.
type ClientKeyFunc func(c *gin.Context) string

// ClientKey keys on the peer address. With trustProxy set, the first
// X-Forwarded-For hop wins, then X-Real-IP.
func ClientKey(trustProxy bool) ClientKeyFunc {
	return func(c *gin.Context) string {
		if trustProxy {
			if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
				first, _, _ := strings.Cut(fwd, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
			if ip := strings.TrimSpace(c.GetHeader("X-Real-IP")); ip != "" {
				return ip
			}
		}
		return remoteHost(c.Request.RemoteAddr)
	}
}

func remoteHost(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// RateLimit is the admission stage. The minute window is checked first; when it
// rejects, the hour window is not charged. When the hour window rejects, the minute
// admission is released so only admitted requests occupy either log.
func RateLimit(limiter *ratelimit.Limiter, policy config.RateLimitConfig, clientKey ClientKeyFunc) gin.HandlerFunc {
	if clientKey == nil {
		clientKey = ClientKey(false)
	}

	return func(c *gin.Context) {
		if _, ok := admissionBypass[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		client := clientKey(c)
		minuteKey := client + ":minute"
		hourKey := client + ":hour"

		minute := limiter.Check(minuteKey, policy.PerMinute, time.Minute)
		if !minute.Allowed {
			setQuotaHeaders(c, policy, 0, limiter.Remaining(hourKey, policy.PerHour, time.Hour))
			rejectRateLimited(c, client, "minute", minuteRetryAfter, "Rate limit exceeded. Try again in 1 minute.")
			return
		}

		hour := limiter.Check(hourKey, policy.PerHour, time.Hour)
		if !hour.Allowed {
			limiter.Release(minuteKey, minute.At)
			setQuotaHeaders(c, policy, limiter.Remaining(minuteKey, policy.PerMinute, time.Minute), 0)
			rejectRateLimited(c, client, "hour", hourRetryAfter, "Rate limit exceeded. Try again later.")
			return
		}

		setQuotaHeaders(c, policy, minute.Remaining, hour.Remaining)
		c.Next()
	}
}

func setQuotaHeaders(c *gin.Context, policy config.RateLimitConfig, minuteRemaining, hourRemaining int) {
	c.Header("X-RateLimit-Limit-Minute", strconv.Itoa(policy.PerMinute))
	c.Header("X-RateLimit-Remaining-Minute", strconv.Itoa(minuteRemaining))
	c.Header("X-RateLimit-Limit-Hour", strconv.Itoa(policy.PerHour))
	c.Header("X-RateLimit-Remaining-Hour", strconv.Itoa(hourRemaining))
}

func rejectRateLimited(c *gin.Context, client, window string, retryAfter int, detail string) {
	logger.FromContext(c.Request.Context()).Warn("Rate limit exceeded",
		zap.String("client", client),
		zap.String("window", window),
	)
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, model.RateLimitResponse{
		Detail:     detail,
		RetryAfter: retryAfter,
	})
}

// RequireAuth resolves the bearer token into a caller and stores it on the context.
func RequireAuth(resolver *service.IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, detailNotAuthed)
			return
		}

		user, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			logger.FromContext(c.Request.Context()).Warn("Authentication failed", zap.Error(err))
			writeError(c, err)
			return
		}

		c.Set(authUserKey, user)
		ctx := c.Request.Context()
		c.Request = c.Request.WithContext(logger.WithContext(ctx, logger.FromContext(ctx).With(zap.String("user_id", user.UserID))))
		c.Next()
	}
}

// RequireRole gates the route on an exact role match. It must run after RequireAuth.
func RequireRole(role string) gin.HandlerFunc {
	detail := roleDetail(role)
	return func(c *gin.Context) {
		user, err := service.RequireRole(GetAuthUser(c), role)
		if err != nil {
			if errors.Is(err, service.ErrForbidden) {
				logger.FromContext(c.Request.Context()).Warn("Role check failed", zap.String("required_role", role))
				c.AbortWithStatusJSON(http.StatusForbidden, model.ErrorResponse{Detail: detail})
				return
			}
			writeError(c, err)
			return
		}
		c.Set(authUserKey, user)
		c.Next()
	}
}

func roleDetail(role string) string {
	if role == "" {
		return "Insufficient privileges"
	}
	return strings.ToUpper(role[:1]) + role[1:] + " privileges required"
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func GetAuthUser(c *gin.Context) *model.User {
	if value, ok := c.Get(authUserKey); ok {
		if user, ok := value.(*model.User); ok {
			return user
		}
	}
	return nil
}
