package handler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/devrev/langdetect/internal/errors"
	"github.com/devrev/langdetect/internal/metrics"
	"github.com/devrev/langdetect/internal/model"
	"github.com/devrev/langdetect/internal/service"
)

// DetectorHandler implements the gRPC detector service
type DetectorHandler struct {
	detector *service.DetectorService
	logger   *zap.Logger
}

// NewDetectorHandler creates a new detector handler
func NewDetectorHandler(detector *service.DetectorService, logger *zap.Logger) *DetectorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DetectorHandler{
		detector: detector,
		logger:   logger,
	}
}

// Identify handles identify requests
func (h *DetectorHandler) Identify(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	lang, err := h.detector.Identify(ctx, req.GetValue())
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}
	return wrapperspb.String(lang.String()), nil
}

// IdentifyAll handles full ranking requests
func (h *DetectorHandler) IdentifyAll(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	ranking, err := h.detector.IdentifyAll(ctx, req.GetValue())
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	resp, err := rankingStruct(ranking)
	if err != nil {
		h.logger.Error("Failed to encode ranking", zap.Error(err))
		return nil, status.Error(codes.Internal, "failed to encode ranking")
	}
	return resp, nil
}

// Languages handles language listing requests
func (h *DetectorHandler) Languages(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	infos, err := h.detector.Languages()
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	items := make([]interface{}, 0, len(infos))
	for _, info := range infos {
		items = append(items, map[string]interface{}{
			"language":        info.Language.String(),
			"profile_entries": info.ProfileEntries,
		})
	}

	resp, err := structpb.NewStruct(map[string]interface{}{"languages": items})
	if err != nil {
		h.logger.Error("Failed to encode languages", zap.Error(err))
		return nil, status.Error(codes.Internal, "failed to encode languages")
	}
	return resp, nil
}

func rankingStruct(ranking []model.LanguageDistance) (*structpb.Struct, error) {
	items := make([]interface{}, 0, len(ranking))
	for _, d := range ranking {
		items = append(items, map[string]interface{}{
			"language": d.Language.String(),
			"distance": d.Distance,
		})
	}
	return structpb.NewStruct(map[string]interface{}{"languages": items})
}

// UnaryInterceptor recovers handler panics, logs each call and records it
// in m when m is non-nil.
func UnaryInterceptor(m *metrics.Metrics, logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("gRPC handler panic recovered",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r))
				err = status.Error(codes.Internal, fmt.Sprintf("internal error: %v", r))
			}

			code := status.Code(err)
			if m != nil {
				m.RecordGRPCRequest(info.FullMethod, code.String())
			}
			logger.Debug("gRPC request",
				zap.String("method", info.FullMethod),
				zap.String("code", code.String()),
				zap.Duration("duration", time.Since(start)))
		}()

		return handler(ctx, req)
	}
}

// NewGRPCServer creates a gRPC server carrying the detector service and the
// standard health service. The detector reports NOT_SERVING until SetServing
// is called.
func NewGRPCServer(h *DetectorHandler, m *metrics.Metrics, logger *zap.Logger, opts ...grpc.ServerOption) (*grpc.Server, *grpchealth.Server) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts = append([]grpc.ServerOption{grpc.UnaryInterceptor(UnaryInterceptor(m, logger))}, opts...)
	s := grpc.NewServer(opts...)
	RegisterLanguageDetectorServer(s, h)

	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	SetServing(hs, false)

	return s, hs
}

// SetServing updates the health status of the detector service
func SetServing(hs *grpchealth.Server, serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	hs.SetServingStatus(ServiceName, st)
}
