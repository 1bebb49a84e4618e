// Package middleware provides HTTP middleware for bearer authentication and
// rate limiting.
//
// # Authentication
//
//	authMW := middleware.NewAuthMiddleware(authenticator, false)
//	router.Use(authMW.Handler)
//
// The token is verified against the stored user on every request. The
// caller is attached with auth.WithCaller and recorded as the audit actor.
//
// # Rate limiting
//
//	cfg := middleware.LoginRateLimitConfig(20, time.Minute)
//	limiter := middleware.NewLimiter(redisClient, cfg, "ratelimit:login")
//	login = middleware.NewRateLimitMiddleware(limiter, cfg, logger).Handler(login)
//
// With Redis the counter is a fixed window shared by every instance. Without
// it each process keeps token buckets from golang.org/x/time/rate. Redis
// errors fail open.
package middleware
