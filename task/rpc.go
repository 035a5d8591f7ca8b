package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/utils"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// SimServiceName 模拟状态查询服务名
	SimServiceName = "gridsim.sim.v1.SimService"
	// SimServiceGetSnapshotProcedure GetSnapshot接口的完整路径
	SimServiceGetSnapshotProcedure = "/" + SimServiceName + "/GetSnapshot"
	// SimServiceGetCarsProcedure GetCars接口的完整路径
	SimServiceGetCarsProcedure = "/" + SimServiceName + "/GetCars"
)

// Register 将SimService与ClockService注册到mux
// 说明：只读接口，读取最近一次发布的帧，不会修改模拟状态
func (ctx *Context) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	ctx.clock.Register(mux, opts...)
	mux.Handle(SimServiceGetSnapshotProcedure, connect.NewUnaryHandler(
		SimServiceGetSnapshotProcedure,
		ctx.GetSnapshot,
		opts...,
	))
	mux.Handle(SimServiceGetCarsProcedure, connect.NewUnaryHandler(
		SimServiceGetCarsProcedure,
		ctx.GetCars,
		opts...,
	))
}

// ServeMux 创建包含可视化websocket与全部RPC服务的HTTP路由
// 参数：ws-可视化websocket处理器，为nil时不注册/ws
func (ctx *Context) ServeMux(ws http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	if ws != nil {
		mux.Handle("/ws", ws)
	}
	ctx.Register(mux)
	return mux
}

func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	m := make(map[string]any)
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// GetSnapshot 获取最近一次发布的帧
func (ctx *Context) GetSnapshot(c context.Context, in *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	f := ctx.Latest()
	if f == nil {
		return nil, connect.NewError(connect.CodeUnavailable, errors.New("no frame published yet"))
	}
	s, err := toStruct(f)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(s), nil
}

// GetCars 获取车辆状态
// 参数：in-车辆ID列表，为空时返回全部车辆
// 返回：按请求顺序排列的车辆状态；存在未知ID时返回NotFound
func (ctx *Context) GetCars(c context.Context, in *connect.Request[structpb.ListValue]) (*connect.Response[structpb.ListValue], error) {
	f := ctx.Latest()
	if f == nil {
		return nil, connect.NewError(connect.CodeUnavailable, errors.New("no frame published yet"))
	}
	ids := make([]int32, 0, len(in.Msg.GetValues()))
	for _, v := range in.Msg.GetValues() {
		if _, ok := v.GetKind().(*structpb.Value_NumberValue); !ok {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("car id %v is not a number", v))
		}
		ids = append(ids, int32(v.GetNumberValue()))
	}
	cars, missing := utils.FindBy(f.Cars, func(c entity.CarFrame) int32 { return c.ID }, ids)
	if len(missing) > 0 {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("car ids %v not found", missing))
	}
	res := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(cars))}
	for _, car := range cars {
		s, err := toStruct(car)
		if err != nil {
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		res.Values = append(res.Values, structpb.NewStructValue(s))
	}
	return connect.NewResponse(res), nil
}
