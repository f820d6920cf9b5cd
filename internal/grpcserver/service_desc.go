package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"bookreviews/internal/feedback"
	"bookreviews/internal/reviews"
	"bookreviews/pkg/models"
)

const (
	ReviewsServiceName  = "bookreviews.v1.Reviews"
	FeedbackServiceName = "bookreviews.v1.Feedback"
)

type (
	ListAllRequest   struct{}
	MyReviewsRequest struct{}

	ListByUserRequest struct {
		UserID string `json:"userId" validate:"required"`
	}

	ReviewsResponse struct {
		Items []models.Review `json:"items"`
	}

	CreateReviewRequest = reviews.CreateInput

	CreateResponse struct {
		ID string `json:"id"`
	}

	GetByReviewRequest struct {
		ReviewID string `json:"reviewId" validate:"required"`
	}

	FeedbackResponse struct {
		Items []models.Feedback `json:"items"`
	}

	MyReviewsFeedbackRequest struct{}

	ReviewFeedbackResponse struct {
		Items []models.ReviewFeedback `json:"items"`
	}

	CreateFeedbackRequest = feedback.CreateInput
)

type ReviewsServer interface {
	ListAll(ctx context.Context, req *ListAllRequest) (*ReviewsResponse, error)
	ListByUser(ctx context.Context, req *ListByUserRequest) (*ReviewsResponse, error)
	MyReviews(ctx context.Context, req *MyReviewsRequest) (*ReviewsResponse, error)
	CreateReview(ctx context.Context, req *CreateReviewRequest) (*CreateResponse, error)
}

type FeedbackServer interface {
	GetByReview(ctx context.Context, req *GetByReviewRequest) (*FeedbackResponse, error)
	GetMyReviewsFeedback(ctx context.Context, req *MyReviewsFeedbackRequest) (*ReviewFeedbackResponse, error)
	CreateFeedback(ctx context.Context, req *CreateFeedbackRequest) (*CreateResponse, error)
}

// unary builds a MethodDesc that decodes into *Req and runs call through the
// server's interceptor chain.
func unary[Req any, Resp any](service, method string, call func(srv any, ctx context.Context, req *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var reviewsServiceDesc = grpc.ServiceDesc{
	ServiceName: ReviewsServiceName,
	HandlerType: (*ReviewsServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(ReviewsServiceName, "ListAll", func(srv any, ctx context.Context, req *ListAllRequest) (*ReviewsResponse, error) {
			return srv.(ReviewsServer).ListAll(ctx, req)
		}),
		unary(ReviewsServiceName, "ListByUser", func(srv any, ctx context.Context, req *ListByUserRequest) (*ReviewsResponse, error) {
			return srv.(ReviewsServer).ListByUser(ctx, req)
		}),
		unary(ReviewsServiceName, "MyReviews", func(srv any, ctx context.Context, req *MyReviewsRequest) (*ReviewsResponse, error) {
			return srv.(ReviewsServer).MyReviews(ctx, req)
		}),
		unary(ReviewsServiceName, "Create", func(srv any, ctx context.Context, req *CreateReviewRequest) (*CreateResponse, error) {
			return srv.(ReviewsServer).CreateReview(ctx, req)
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bookreviews/v1/reviews",
}

var feedbackServiceDesc = grpc.ServiceDesc{
	ServiceName: FeedbackServiceName,
	HandlerType: (*FeedbackServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(FeedbackServiceName, "GetByReview", func(srv any, ctx context.Context, req *GetByReviewRequest) (*FeedbackResponse, error) {
			return srv.(FeedbackServer).GetByReview(ctx, req)
		}),
		unary(FeedbackServiceName, "GetMyReviewsFeedback", func(srv any, ctx context.Context, req *MyReviewsFeedbackRequest) (*ReviewFeedbackResponse, error) {
			return srv.(FeedbackServer).GetMyReviewsFeedback(ctx, req)
		}),
		unary(FeedbackServiceName, "Create", func(srv any, ctx context.Context, req *CreateFeedbackRequest) (*CreateResponse, error) {
			return srv.(FeedbackServer).CreateFeedback(ctx, req)
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bookreviews/v1/feedback",
}

func RegisterReviewsServer(s grpc.ServiceRegistrar, srv ReviewsServer) {
	s.RegisterService(&reviewsServiceDesc, srv)
}

func RegisterFeedbackServer(s grpc.ServiceRegistrar, srv FeedbackServer) {
	s.RegisterService(&feedbackServiceDesc, srv)
}
