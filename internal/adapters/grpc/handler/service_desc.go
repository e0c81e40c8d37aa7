package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// MatchingServiceName は推薦 RPC の完全修飾サービス名です。
const MatchingServiceName = "talentboard.matching.v1.MatchingService"

const (
	rankJobsMethod    = "/" + MatchingServiceName + "/RankJobs"
	rankMentorsMethod = "/" + MatchingServiceName + "/RankMentors"
)

// MatchingServer は MatchingService のサーバー側インターフェースです。
// メッセージは structpb.Struct で、リクエストは person_id と limit、レスポンスは matches を持ちます。
type MatchingServer interface {
	RankJobs(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	RankMentors(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// MatchingServiceDesc は MatchingService の登録情報です。
var MatchingServiceDesc = grpc.ServiceDesc{
	ServiceName: MatchingServiceName,
	HandlerType: (*MatchingServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RankJobs", Handler: rankJobsHandler},
		{MethodName: "RankMentors", Handler: rankMentorsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "talentboard/matching/v1/matching.proto",
}

// RegisterMatchingServer は srv を s に登録します。
func RegisterMatchingServer(s grpc.ServiceRegistrar, srv MatchingServer) {
	s.RegisterService(&MatchingServiceDesc, srv)
}

func rankJobsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MatchingServer).RankJobs(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: rankJobsMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(MatchingServer).RankJobs(ctx, req.(*structpb.Struct))
	})
}

func rankMentorsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MatchingServer).RankMentors(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: rankMentorsMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(MatchingServer).RankMentors(ctx, req.(*structpb.Struct))
	})
}

// MatchingClient は MatchingService のクライアントです。
type MatchingClient struct {
	cc grpc.ClientConnInterface
}

// NewMatchingClient は MatchingClient を生成します。
func NewMatchingClient(cc grpc.ClientConnInterface) *MatchingClient {
	return &MatchingClient{cc: cc}
}

// RankJobs は人物に合う求人を取得します。
func (c *MatchingClient) RankJobs(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, rankJobsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// RankMentors は人物に合うメンターを取得します。
func (c *MatchingClient) RankMentors(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, rankMentorsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
