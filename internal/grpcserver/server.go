package grpcserver

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"bookreviews/internal/auth"
	"bookreviews/internal/feedback"
	"bookreviews/internal/reviews"
	"bookreviews/pkg/apperrors"
	"bookreviews/pkg/logger"
	"bookreviews/pkg/validator"
)

// Server exposes the review and feedback operations over gRPC. The caller
// is resolved by the auth interceptor and read back from the context.
type Server struct {
	Reviews  *reviews.Service
	Feedback *feedback.Service
	Auth     *auth.Authenticator
	Logger   *slog.Logger
}

func NewServer(reviewSvc *reviews.Service, feedbackSvc *feedback.Service, authn *auth.Authenticator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{Reviews: reviewSvc, Feedback: feedbackSvc, Auth: authn, Logger: logger}
}

// NewGRPCServer builds a *grpc.Server with both services and the auth and
// logging interceptors installed.
func NewGRPCServer(s *Server, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.LoggingInterceptor(), s.AuthInterceptor()))
	gs := grpc.NewServer(opts...)
	RegisterReviewsServer(gs, s)
	RegisterFeedbackServer(gs, s)
	return gs
}

func (s *Server) ListAll(ctx context.Context, _ *ListAllRequest) (*ReviewsResponse, error) {
	items, err := s.Reviews.ListAll(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ReviewsResponse{Items: items}, nil
}

func (s *Server) ListByUser(ctx context.Context, req *ListByUserRequest) (*ReviewsResponse, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	if err := validator.Validate(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, validator.Message(err))
	}
	items, err := s.Reviews.ListByUser(ctx, req.UserID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ReviewsResponse{Items: items}, nil
}

func (s *Server) MyReviews(ctx context.Context, _ *MyReviewsRequest) (*ReviewsResponse, error) {
	items, err := s.Reviews.MyReviews(ctx, auth.CallerFromContext(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return &ReviewsResponse{Items: items}, nil
}

func (s *Server) CreateReview(ctx context.Context, req *CreateReviewRequest) (*CreateResponse, error) {
	id, err := s.Reviews.Create(ctx, auth.CallerFromContext(ctx), *req)
	if err != nil {
		return nil, toStatus(err)
	}
	return &CreateResponse{ID: id}, nil
}

func (s *Server) GetByReview(ctx context.Context, req *GetByReviewRequest) (*FeedbackResponse, error) {
	req.ReviewID = strings.TrimSpace(req.ReviewID)
	if err := validator.Validate(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, validator.Message(err))
	}
	items, err := s.Feedback.GetByReview(ctx, req.ReviewID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &FeedbackResponse{Items: items}, nil
}

func (s *Server) GetMyReviewsFeedback(ctx context.Context, _ *MyReviewsFeedbackRequest) (*ReviewFeedbackResponse, error) {
	items, err := s.Feedback.GetMyReviewsFeedback(ctx, auth.CallerFromContext(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return &ReviewFeedbackResponse{Items: items}, nil
}

func (s *Server) CreateFeedback(ctx context.Context, req *CreateFeedbackRequest) (*CreateResponse, error) {
	id, err := s.Feedback.Create(ctx, auth.CallerFromContext(ctx), *req)
	if err != nil {
		return nil, toStatus(err)
	}
	return &CreateResponse{ID: id}, nil
}

// AuthInterceptor attaches the caller named by the `authorization: Bearer`
// metadata. Calls without it run anonymous; a token that does not resolve
// is rejected.
func (s *Server) AuthInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		values := md.Get("authorization")
		if len(values) == 0 || values[0] == "" {
			return handler(ctx, req)
		}

		raw, ok := auth.BearerToken(values[0])
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing bearer token")
		}
		caller, err := s.Auth.Resolve(ctx, raw)
		if errors.Is(err, auth.ErrUserLookup) {
			return nil, toStatus(apperrors.Internal(err))
		}
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		ctx = auth.WithCaller(ctx, caller)
		ctx = logger.WithUserID(ctx, caller.ID)
		return handler(ctx, req)
	}
}

func (s *Server) LoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		s.Logger.InfoContext(ctx, "grpc request",
			slog.String("method", info.FullMethod),
			slog.String("code", status.Code(err).String()),
			slog.Duration("latency", time.Since(start)),
		)
		return resp, err
	}
}

func toStatus(err error) error {
	var appErr *apperrors.AppError
	msg := "internal error"
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}

	switch {
	case errors.Is(err, apperrors.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, msg)
	case errors.Is(err, apperrors.ErrValidation):
		return status.Error(codes.InvalidArgument, msg)
	case errors.Is(err, apperrors.ErrNotFound):
		return status.Error(codes.NotFound, msg)
	case errors.Is(err, apperrors.ErrConflict):
		return status.Error(codes.AlreadyExists, msg)
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
