// Package rpc exposes the reminder run over gRPC for schedulers that
// speak it. Messages are protobuf well-known types, so no generated code
// is involved.
package rpc

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"reminder-engine/internal/reminder"
)

const (
	ServiceName = "reminders.v1.ReminderService"
	RunMethod   = "/" + ServiceName + "/Run"
)

type Runner interface {
	Run(ctx context.Context) reminder.Result
}

// ReminderServiceServer is the server API of reminders.v1.ReminderService.
type ReminderServiceServer interface {
	Run(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

type Server struct {
	engine  Runner
	missing []string
	timeout time.Duration
	log     *logrus.Logger
}

// NewServer takes a nil engine when configuration is incomplete; Run then
// fails with Internal before touching the store. Every run is bounded by
// timeout whether or not the caller set a deadline.
func NewServer(engine Runner, missing []string, timeout time.Duration, log *logrus.Logger) *Server {
	if timeout <= 0 {
		timeout = 55 * time.Second
	}
	return &Server{engine: engine, missing: missing, timeout: timeout, log: log}
}

func (s *Server) Run(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if len(s.missing) > 0 || s.engine == nil {
		s.log.WithField("missing", s.missing).Error("reminders: configuration incomplete")
		return nil, status.Error(codes.Internal, "missing configuration")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res := s.engine.Run(ctx)

	fields := map[string]any{"sent": res.Sent}
	if res.Message != "" {
		fields["message"] = res.Message
	} else {
		fields["appointments"] = res.Appointments
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode result")
	}
	return out, nil
}

func Register(srv *grpc.Server, s ReminderServiceServer) {
	srv.RegisterService(&serviceDesc, s)
}

func runHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReminderServiceServer).Run(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RunMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ReminderServiceServer).Run(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReminderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Run", Handler: runHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "reminders/v1/reminders.proto",
}

// Run calls the service over an existing connection.
func Run(ctx context.Context, conn grpc.ClientConnInterface) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, RunMethod, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return out, nil
}
