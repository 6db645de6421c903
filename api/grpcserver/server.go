package grpcserver

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"kennel/api/attr"
	"kennel/service"
)

// Server adapts the kennel attribute to gRPC.
type Server struct {
	attr *attr.Attribute
}

func NewServer(a *attr.Attribute) *Server {
	return &Server{attr: a}
}

// -------------------- Queries --------------------

func (s *Server) Show(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	var b strings.Builder
	if _, err := s.attr.Show(&b); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return wrapperspb.String(b.String()), nil
}

// -------------------- Commands --------------------

func (s *Server) Store(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.Int64Value, error) {
	n, err := s.attr.Store([]byte(req.GetValue()))
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Int64(int64(n)), nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, attr.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, attr.ErrNoMemory):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, service.ErrClosed):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// LoggingInterceptor logs every unary call.
func LoggingInterceptor(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		ev := log.Debug()
		if err != nil {
			ev = log.Warn().Err(err)
		}
		ev.Str("method", info.FullMethod).
			Dur("took", time.Since(start)).
			Str("code", status.Code(err).String()).
			Msg("rpc")
		return resp, err
	}
}
