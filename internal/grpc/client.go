package grpcserver

import (
	"context"

	"karavanCanteen/internal/telemetry"
	"karavanCanteen/internal/visibility"
	"karavanCanteen/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls CanteenService as the user named by its bearer token. Errors are core
// errors again (apperr sentinels), so callers match them with errors.Is.
type Client struct {
	cc    grpc.ClientConnInterface
	token string
}

func NewClient(cc grpc.ClientConnInterface, token string) *Client {
	return &Client{cc: cc, token: token}
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	in, err := encodeStruct(req)
	if err != nil {
		return err
	}
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	if id := telemetry.RequestID(ctx); id != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, telemetry.RequestIDKey, id)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return fromStatus(err)
	}
	return decodeStruct(out, resp)
}

func (c *Client) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*models.Order, error) {
	var resp orderResponse
	if err := c.invoke(ctx, "PlaceOrder", req, &resp); err != nil {
		return nil, err
	}
	return resp.Order, nil
}

func (c *Client) TransitionOrder(ctx context.Context, orderID int64, to models.OrderStatus) (*models.Order, error) {
	var resp orderResponse
	if err := c.invoke(ctx, "TransitionOrder", TransitionOrderRequest{OrderID: orderID, Status: to}, &resp); err != nil {
		return nil, err
	}
	return resp.Order, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	var resp orderResponse
	if err := c.invoke(ctx, "GetOrder", GetOrderRequest{OrderID: orderID}, &resp); err != nil {
		return nil, err
	}
	return resp.Order, nil
}

func (c *Client) ListView(ctx context.Context, view visibility.View) ([]models.Order, error) {
	var resp ListViewResponse
	if err := c.invoke(ctx, "ListView", ListViewRequest{View: view}, &resp); err != nil {
		return nil, err
	}
	if resp.Orders == nil {
		resp.Orders = []models.Order{}
	}
	return resp.Orders, nil
}

// Load lets a Client back a dashboard.Feed. The server resolves the actor from the
// token, so the actor argument is ignored.
func (c *Client) Load(ctx context.Context, view visibility.View, _ models.Actor) ([]models.Order, error) {
	return c.ListView(ctx, view)
}
