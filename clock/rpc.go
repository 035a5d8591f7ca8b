package clock

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	// ClockServiceName 时钟服务名
	ClockServiceName = "gridsim.clock.v1.ClockService"
	// ClockServiceNowProcedure Now接口的完整路径
	ClockServiceNowProcedure = "/" + ClockServiceName + "/Now"
)

// Register 将ClockService注册到mux
// 功能：注册时钟服务的RPC处理器，使外部可以查询当前已完成的步数
func (c *Clock) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	mux.Handle(ClockServiceNowProcedure, connect.NewUnaryHandler(
		ClockServiceNowProcedure,
		c.Now,
		opts...,
	))
}

// Now 获取当前仿真步数
// 功能：RPC接口，返回最近一次完成并发布的tick
func (c *Clock) Now(ctx context.Context, in *connect.Request[emptypb.Empty]) (*connect.Response[wrapperspb.Int64Value], error) {
	return connect.NewResponse(wrapperspb.Int64(c.Published())), nil
}
