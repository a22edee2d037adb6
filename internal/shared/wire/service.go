package wire

import (
	"google.golang.org/grpc"
)

const (
	ServiceName   = "gobatch.v1.Dispatcher"
	SessionMethod = "/" + ServiceName + "/Session"
)

// DispatcherServer serves one bidirectional Session stream per worker
// connection. The stream's lifetime is the connection's lifetime.
type DispatcherServer interface {
	Session(stream grpc.ServerStream) error
}

var SessionStreamDesc = grpc.StreamDesc{
	StreamName:    "Session",
	Handler:       sessionHandler,
	ServerStreams: true,
	ClientStreams: true,
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DispatcherServer)(nil),
	Streams:     []grpc.StreamDesc{SessionStreamDesc},
}

func RegisterDispatcherServer(s grpc.ServiceRegistrar, srv DispatcherServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func sessionHandler(srv any, stream grpc.ServerStream) error {
	return srv.(DispatcherServer).Session(stream)
}
