package api

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/matheus3301/apurimac/internal/viewmodel"
	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client talks to a daemon's client service.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to the daemon's Unix domain socket.
func Dial(socketPath string, opts ...grpc.DialOption) (*Client, error) {
	return DialTarget("unix://"+socketPath, opts...)
}

// DialTarget connects to any gRPC target.
func DialTarget(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) call(ctx context.Context, method string, req, resp any) error {
	in, err := encode(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return err
	}
	return decode(out, resp)
}

func (c *Client) callState(ctx context.Context, method string, req any) (State, error) {
	var st State
	err := c.call(ctx, method, req, &st)
	return st, err
}

func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (State, error) {
	return c.callState(ctx, "SignUp", req)
}

func (c *Client) SignIn(ctx context.Context, email, password string) (State, error) {
	return c.callState(ctx, "SignIn", SignInRequest{Email: email, Password: password})
}

func (c *Client) SignOut(ctx context.Context) (State, error) {
	return c.callState(ctx, "SignOut", Empty{})
}

func (c *Client) UpdateProfile(ctx context.Context, name, phoneNumber string) (State, error) {
	return c.callState(ctx, "UpdateProfile", ProfileRequest{Name: name, PhoneNumber: phoneNumber})
}

func (c *Client) UploadProfileImage(ctx context.Context, data []byte) (string, error) {
	var resp UploadResponse
	err := c.call(ctx, "UploadProfileImage", UploadRequest{Data: data}, &resp)
	return resp.Address, err
}

func (c *Client) AddChat(ctx context.Context, phoneNumber string) (viewmodel.ChatRecord, error) {
	var chat viewmodel.ChatRecord
	err := c.call(ctx, "AddChat", AddChatRequest{PhoneNumber: phoneNumber}, &chat)
	return chat, err
}

func (c *Client) OpenChat(ctx context.Context, chatID string) (State, error) {
	return c.callState(ctx, "OpenChat", ChatRequest{ChatID: chatID})
}

func (c *Client) CloseChat(ctx context.Context) (State, error) {
	return c.callState(ctx, "CloseChat", Empty{})
}

func (c *Client) SendMessage(ctx context.Context, chatID, text string) (State, error) {
	return c.callState(ctx, "SendMessage", SendRequest{ChatID: chatID, Text: text})
}

func (c *Client) UploadStatus(ctx context.Context, data []byte) (viewmodel.StatusPost, error) {
	var post viewmodel.StatusPost
	err := c.call(ctx, "UploadStatus", UploadRequest{Data: data}, &post)
	return post, err
}

func (c *Client) GetState(ctx context.Context) (State, error) {
	return c.callState(ctx, "GetState", Empty{})
}

func (c *Client) TakeNotification(ctx context.Context) (string, bool, error) {
	var resp NotificationResponse
	err := c.call(ctx, "TakeNotification", Empty{}, &resp)
	return resp.Message, resp.Pending, err
}

// Watch calls fn with every state the daemon streams until ctx is done, the
// stream ends or fn returns an error.
func (c *Client) Watch(ctx context.Context, fn func(State) error) error {
	stream, err := c.conn.NewStream(ctx, &watchStreamDesc, fullMethod(watchMethod))
	if err != nil {
		return err
	}
	if err := stream.SendMsg(&structpb.Struct{}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		out := new(structpb.Struct)
		if err := stream.RecvMsg(out); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var st State
		if err := decode(out, &st); err != nil {
			return err
		}
		if err := fn(st); err != nil {
			return err
		}
	}
}
