package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Client calls both services over one connection using the JSON codec.
type Client struct {
	conn  *grpc.ClientConn
	token string
}

func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// WithToken returns a client that sends token as the bearer credential.
func (c *Client) WithToken(token string) *Client {
	return &Client{conn: c.conn, token: token}
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, service, method string, req, resp any) error {
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	}
	return c.conn.Invoke(ctx, "/"+service+"/"+method, req, resp)
}

func (c *Client) ListAll(ctx context.Context) (*ReviewsResponse, error) {
	out := new(ReviewsResponse)
	return out, c.invoke(ctx, ReviewsServiceName, "ListAll", &ListAllRequest{}, out)
}

func (c *Client) ListByUser(ctx context.Context, userID string) (*ReviewsResponse, error) {
	out := new(ReviewsResponse)
	return out, c.invoke(ctx, ReviewsServiceName, "ListByUser", &ListByUserRequest{UserID: userID}, out)
}

func (c *Client) MyReviews(ctx context.Context) (*ReviewsResponse, error) {
	out := new(ReviewsResponse)
	return out, c.invoke(ctx, ReviewsServiceName, "MyReviews", &MyReviewsRequest{}, out)
}

func (c *Client) CreateReview(ctx context.Context, req CreateReviewRequest) (*CreateResponse, error) {
	out := new(CreateResponse)
	return out, c.invoke(ctx, ReviewsServiceName, "Create", &req, out)
}

func (c *Client) GetByReview(ctx context.Context, reviewID string) (*FeedbackResponse, error) {
	out := new(FeedbackResponse)
	return out, c.invoke(ctx, FeedbackServiceName, "GetByReview", &GetByReviewRequest{ReviewID: reviewID}, out)
}

func (c *Client) GetMyReviewsFeedback(ctx context.Context) (*ReviewFeedbackResponse, error) {
	out := new(ReviewFeedbackResponse)
	return out, c.invoke(ctx, FeedbackServiceName, "GetMyReviewsFeedback", &MyReviewsFeedbackRequest{}, out)
}

func (c *Client) CreateFeedback(ctx context.Context, req CreateFeedbackRequest) (*CreateResponse, error) {
	out := new(CreateResponse)
	return out, c.invoke(ctx, FeedbackServiceName, "Create", &req, out)
}
