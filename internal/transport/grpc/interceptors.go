package grpcx

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const defaultCallTimeout = 10 * time.Second

// UnaryServerInterceptor: recovery, лог вызова и deadline, если клиент его не задал.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, defaultCallTimeout)
			defer cancel()
		}
		defer observe(ctx, "unary", info.FullMethod, time.Now(), &err)

		return handler(ctx, req)
	}
}

// StreamServerInterceptor: health Watch и reflection живут долго, deadline не ставим.
func StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer observe(ss.Context(), "stream", info.FullMethod, time.Now(), &err)

		return handler(srv, ss)
	}
}

// observe вызывается через defer: паника превращается в codes.Internal,
// результат вызова пишется в лог.
func observe(ctx context.Context, kind, method string, start time.Time, err *error) {
	if r := recover(); r != nil {
		slog.Error("grpc panic", "kind", kind, "method", method, "panic", r, "stack", string(debug.Stack()))
		*err = status.Error(codes.Internal, "internal server error")
	}

	attrs := []any{"kind", kind, "method", method, "dur_ms", time.Since(start).Milliseconds()}
	if *err != nil {
		attrs = append(attrs, "code", status.Code(*err).String(), "err", *err)
	}
	slog.Log(ctx, callLevel(method, *err), "grpc call", attrs...)
}

// пробы health-check'ов шумные, пишем их в debug
func callLevel(method string, err error) slog.Level {
	switch {
	case err != nil:
		return slog.LevelWarn
	case strings.HasPrefix(method, "/grpc.health.v1.Health/"):
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
