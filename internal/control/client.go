package control

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"go.klb.dev/pulse/internal/clip"
	"go.klb.dev/pulse/internal/events"
	"go.klb.dev/pulse/internal/metrics"
	"go.klb.dev/pulse/internal/upload"
)

// Client talks to a running agent.
type Client struct {
	conn *grpc.ClientConn
}

// Dial returns a Client for the agent at target, a gRPC target such as
// "unix:///run/user/1000/pulse.sock" or "127.0.0.1:38417". No connection
// is made until the first call.
func Dial(target, token string) (*Client, error) {
	opts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if token != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(bearer(token)))
	}
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

// Close releases the connection.
func (c *Client) Close() error { return c.conn.Close() }

// Trigger starts an upload run on the agent.
func (c *Client) Trigger(ctx context.Context) error {
	out := new(wrapperspb.BoolValue)
	return c.conn.Invoke(ctx, methodTrigger, &emptypb.Empty{}, out)
}

// Upload sends base64 or data-URL image data for upload.
func (c *Client) Upload(ctx context.Context, data string) (upload.Outcome, error) {
	var out upload.Outcome
	err := c.call(ctx, methodUpload, wrapperspb.String(data), &out)
	return out, err
}

// Stats returns the agent's current metrics sample.
func (c *Client) Stats(ctx context.Context) (metrics.Stats, error) {
	var out metrics.Stats
	err := c.call(ctx, methodStats, &emptypb.Empty{}, &out)
	return out, err
}

// Clipboard returns a preview of the agent's clipboard image.
func (c *Client) Clipboard(ctx context.Context) (clip.Preview, error) {
	var out clip.Preview
	err := c.call(ctx, methodClipboard, &emptypb.Empty{}, &out)
	return out, err
}

// Events streams UI events to fn until ctx is done or the agent goes away.
func (c *Client) Events(ctx context.Context, fn func(events.Event)) error {
	stream, err := c.conn.NewStream(ctx, &ServiceDesc.Streams[0], methodEvents)
	if err != nil {
		return err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		m := new(structpb.Struct)
		if err := stream.RecvMsg(m); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		var ev events.Event
		if err := fromStruct(m, &ev); err != nil {
			return err
		}
		fn(ev)
	}
}

func (c *Client) call(ctx context.Context, method string, in any, out any) error {
	m := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, in, m); err != nil {
		return err
	}
	return fromStruct(m, out)
}

type bearer string

func (b bearer) GetRequestMetadata(_ context.Context, _ ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + string(b)}, nil
}

func (b bearer) RequireTransportSecurity() bool { return false }
