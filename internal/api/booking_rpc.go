package api

import (
	"context"
	"errors"
	"strings"

	"bookingwidget/internal/models"
	"bookingwidget/internal/service"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	bookingServiceName      = "booking.v1.BookingService"
	methodCheckAvailability = "/" + bookingServiceName + "/CheckAvailability"
	methodGetBookedSlots    = "/" + bookingServiceName + "/GetBookedSlots"
)

// BookingRPCServer is the gRPC surface. Messages are google.protobuf.Struct:
//
//	CheckAvailability {date, time} -> {date, time, available}
//	GetBookedSlots    {date}       -> {date, booked, available}
type BookingRPCServer interface {
	CheckAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetBookedSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var bookingServiceDesc = grpc.ServiceDesc{
	ServiceName: bookingServiceName,
	HandlerType: (*BookingRPCServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CheckAvailability", Handler: checkAvailabilityHandler},
		{MethodName: "GetBookedSlots", Handler: getBookedSlotsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "booking/v1/booking.proto",
}

// RegisterBookingRPCServer attaches srv to s.
func RegisterBookingRPCServer(s grpc.ServiceRegistrar, srv BookingRPCServer) {
	s.RegisterService(&bookingServiceDesc, srv)
}

func checkAvailabilityHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookingRPCServer).CheckAvailability(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodCheckAvailability}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BookingRPCServer).CheckAvailability(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getBookedSlotsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookingRPCServer).GetBookedSlots(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetBookedSlots}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BookingRPCServer).GetBookedSlots(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// AvailabilityService serves BookingRPCServer from the booking service.
type AvailabilityService struct {
	bookings BookingAPI
}

func NewAvailabilityService(bookings BookingAPI) *AvailabilityService {
	return &AvailabilityService{bookings: bookings}
}

func (s *AvailabilityService) CheckAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	date := stringField(req, "date")
	if date == "" {
		return nil, status.Error(codes.InvalidArgument, "date is required")
	}
	slot := stringField(req, "time")
	if slot == "" {
		return nil, status.Error(codes.InvalidArgument, "time is required")
	}

	available, err := s.bookings.CheckAvailability(ctx, date, slot)
	if err != nil {
		return nil, rpcError(err)
	}

	return structpb.NewStruct(map[string]any{
		"date":      date,
		"time":      slot,
		"available": available,
	})
}

func (s *AvailabilityService) GetBookedSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	date := stringField(req, "date")
	if date == "" {
		return nil, status.Error(codes.InvalidArgument, "date is required")
	}

	normalized, booked, err := s.bookings.BookedSlots(ctx, date)
	if err != nil {
		return nil, rpcError(err)
	}

	free := s.bookings.Catalog().AvailableSlots(booked)
	return structpb.NewStruct(map[string]any{
		"date":      normalized,
		"booked":    toAnySlice(booked),
		"available": toAnySlice(free),
	})
}

func stringField(req *structpb.Struct, key string) string {
	if req == nil {
		return ""
	}
	v, ok := req.GetFields()[key]
	if !ok {
		return ""
	}
	return strings.TrimSpace(v.GetStringValue())
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func rpcError(err error) error {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return status.Error(codes.InvalidArgument, verr.Error())
	}
	return status.Error(codes.Internal, "internal error")
}

var _ BookingRPCServer = (*AvailabilityService)(nil)

// BookingAPI is what the transports need from the booking service.
type BookingAPI interface {
	CreateBooking(ctx context.Context, input models.Booking) (*models.Booking, error)
	ListBookings(ctx context.Context) ([]*models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	CheckAvailability(ctx context.Context, date, slot string) (bool, error)
	BookedSlots(ctx context.Context, date string) (string, []string, error)
	DeleteBooking(ctx context.Context, id int64) error
	Catalog() models.Catalog
	Ping(ctx context.Context) error
}

var _ BookingAPI = (*service.BookingService)(nil)
