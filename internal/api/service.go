// Package api exposes the view-model over gRPC. Messages are
// google.protobuf.Struct values shaped like the types in wire.go.
package api

import (
	"bytes"
	"context"

	"github.com/matheus3301/apurimac/internal/bus"
	"github.com/matheus3301/apurimac/internal/viewmodel"
	"go.uber.org/zap"
	grpc "google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service implements the client service on top of a view-model.
type Service struct {
	vm          *viewmodel.ViewModel
	logger      *zap.Logger
	sessionName string
}

// NewService creates the service.
func NewService(sessionName string, vm *viewmodel.ViewModel, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{vm: vm, logger: logger, sessionName: sessionName}
}

type unaryFunc func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// handle adapts a typed handler: decode the request into Req, run fn, encode
// the response and map errors to status codes.
func handle[Req, Resp any](fn func(ctx context.Context, req Req) (Resp, error)) unaryFunc {
	return func(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
		var req Req
		if err := decode(in, &req); err != nil {
			return nil, invalidRequest(err)
		}
		resp, err := fn(ctx, req)
		if err != nil {
			return nil, toStatus(err)
		}
		return encode(resp)
	}
}

func (s *Service) methods() map[string]unaryFunc {
	return map[string]unaryFunc{
		"SignUp":             handle(s.signUp),
		"SignIn":             handle(s.signIn),
		"SignOut":            handle(s.signOut),
		"UpdateProfile":      handle(s.updateProfile),
		"UploadProfileImage": handle(s.uploadProfileImage),
		"AddChat":            handle(s.addChat),
		"OpenChat":           handle(s.openChat),
		"CloseChat":          handle(s.closeChat),
		"SendMessage":        handle(s.sendMessage),
		"UploadStatus":       handle(s.uploadStatus),
		"GetState":           handle(s.getState),
		"TakeNotification":   handle(s.takeNotification),
	}
}

func (s *Service) state() State {
	return stateFrom(s.vm.Snapshot())
}

func (s *Service) signUp(ctx context.Context, req SignUpRequest) (State, error) {
	err := s.vm.SignUp(ctx, req.Name, req.PhoneNumber, req.Email, req.Password)
	return s.state(), err
}

func (s *Service) signIn(ctx context.Context, req SignInRequest) (State, error) {
	err := s.vm.SignIn(ctx, req.Email, req.Password)
	return s.state(), err
}

func (s *Service) signOut(ctx context.Context, _ Empty) (State, error) {
	err := s.vm.SignOut(ctx)
	return s.state(), err
}

func (s *Service) updateProfile(ctx context.Context, req ProfileRequest) (State, error) {
	err := s.vm.UpdateProfile(ctx, req.Name, req.PhoneNumber)
	return s.state(), err
}

func (s *Service) uploadProfileImage(ctx context.Context, req UploadRequest) (UploadResponse, error) {
	addr, err := s.vm.UploadProfileImage(ctx, bytes.NewReader(req.Data))
	return UploadResponse{Address: addr}, err
}

func (s *Service) addChat(ctx context.Context, req AddChatRequest) (viewmodel.ChatRecord, error) {
	return s.vm.AddChat(ctx, req.PhoneNumber)
}

func (s *Service) openChat(_ context.Context, req ChatRequest) (State, error) {
	err := s.vm.StartMessageSync(req.ChatID)
	return s.state(), err
}

func (s *Service) closeChat(_ context.Context, _ Empty) (State, error) {
	s.vm.StopMessageSync()
	return s.state(), nil
}

func (s *Service) sendMessage(ctx context.Context, req SendRequest) (State, error) {
	err := s.vm.SendMessage(ctx, req.ChatID, req.Text)
	return s.state(), err
}

func (s *Service) uploadStatus(ctx context.Context, req UploadRequest) (viewmodel.StatusPost, error) {
	return s.vm.UploadStatus(ctx, bytes.NewReader(req.Data))
}

func (s *Service) getState(_ context.Context, _ Empty) (State, error) {
	return s.state(), nil
}

func (s *Service) takeNotification(_ context.Context, _ Empty) (NotificationResponse, error) {
	msg, ok := s.vm.TakeNotification()
	return NotificationResponse{Message: msg, Pending: ok}, nil
}

// Watch streams the state once and again after every change, coalescing
// bursts of changes into one send.
func (s *Service) Watch(_ *structpb.Struct, stream grpc.ServerStream) error {
	b := s.vm.Bus()
	stateCh, unsubState := b.Subscribe(bus.StatePrefix, 1)
	defer unsubState()
	sessionCh, unsubSession := b.Subscribe(bus.SessionPrefix, 1)
	defer unsubSession()

	ctx := stream.Context()
	s.logger.Debug("watch started", zap.String("session", s.sessionName), zap.Int("bus_subscribers", b.Len()))
	defer s.logger.Debug("watch ended", zap.String("session", s.sessionName))

	for {
		out, err := encode(s.state())
		if err != nil {
			return err
		}
		if err := stream.SendMsg(out); err != nil {
			return err
		}

		select {
		case <-stateCh:
		case <-sessionCh:
		case <-ctx.Done():
			return nil
		}
		drain(stateCh)
		drain(sessionCh)
	}
}

func drain(ch <-chan bus.Event) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
