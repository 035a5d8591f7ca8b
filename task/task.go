package task

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/tsinghua-fib-lab/gridtraffic-sim/clock"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity/car"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity/grid"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity/trafficlight"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/output"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/utils/config"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/utils/input"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/utils/randengine"
)

// Viewer 可以等待观察者连接的输出端
type Viewer interface {
	WaitViewer(ctx context.Context) error
}

// Context 仿真任务上下文
// 功能：包含一次仿真任务的所有变量和状态（时钟、地图、管理器、配置、输出）
// 说明：模拟状态只由主循环所在的goroutine修改；其他goroutine只能读取已发布的帧
type Context struct {
	// 场景名
	name string
	// 关闭指令
	closed atomic.Bool

	// 时钟
	clock *clock.Clock
	// 地图
	gridMap *grid.Map

	// 信号灯管理器
	lightManager *trafficlight.Manager
	// 车辆管理器
	carManager *car.Manager

	// 运行时配置
	runtimeConfig *config.RuntimeConfig

	// 输出分发器，为nil时不输出
	dispatcher *output.Dispatcher
	// 可视化观察者，用于wait_for_viewer
	viewer Viewer
	// 最近一次发布的帧，供RPC读取
	latest atomic.Pointer[entity.Frame]
}

// NewContext 创建新的仿真任务上下文
// 功能：根据运行时配置与场景构建地图、信号灯与车辆
// 参数：
//   - rc: 运行时配置
//   - sc: 已校验的场景
//   - rng: 随机数引擎，在未指定初始绿灯时用于选择初始绿灯
//
// 返回：初始化完成的Context实例；场景非法时返回错误
// 算法说明：
// 1. 由场景矩阵构建地图
// 2. 初始化信号灯环，初始绿灯由配置指定或随机选择
// 3. 初始化车辆，预先计算每辆车的目的地
// 4. 发布tick=0的初始帧
func NewContext(rc *config.RuntimeConfig, sc *input.Scenario, rng *randengine.Engine) (*Context, error) {
	ctx := &Context{
		name:          sc.Name,
		runtimeConfig: rc,
	}
	ctx.clock = clock.New(rc.C.Step)

	var err error
	if ctx.gridMap, err = grid.New(sc.Map); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	log.Infof("Grid: %dx%d", ctx.gridMap.Rows(), ctx.gridMap.Cols())
	log.Infof("Light: %v", len(sc.Lights))
	log.Infof("Car: %v", len(sc.Cars))

	ctx.lightManager = trafficlight.NewManager(ctx)
	initialGreen := rng.Choice(len(sc.Lights))
	if rc.C.InitialGreen != nil {
		initialGreen = *rc.C.InitialGreen
	}
	if err := ctx.lightManager.Init(sc.Lights, initialGreen); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}

	// 车辆依赖信号灯位置选择所属信号灯
	ctx.carManager = car.NewManager(ctx)
	if err := ctx.carManager.Init(sc.Cars); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}

	ctx.latest.Store(ctx.InitFrame())
	return ctx, nil
}

// Attach 设置输出分发器与可视化观察者，必须在Run之前调用
func (ctx *Context) Attach(d *output.Dispatcher, v Viewer) {
	ctx.dispatcher = d
	ctx.viewer = v
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) GridMap() *grid.Map {
	return ctx.gridMap
}

func (ctx *Context) LightManager() entity.ILightManager {
	return ctx.lightManager
}

func (ctx *Context) CarManager() entity.ICarManager {
	return ctx.carManager
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

// Frame 当前状态的快照（不含地图）
func (ctx *Context) Frame() *entity.Frame {
	return &entity.Frame{
		Tick:          ctx.clock.Tick(),
		TrafficLights: ctx.lightManager.Frames(),
		Cars:          ctx.carManager.Frames(),
	}
}

// InitFrame 当前状态的快照（含地图）
func (ctx *Context) InitFrame() *entity.Frame {
	f := ctx.Frame()
	f.Map = ctx.gridMap.Matrix()
	return f
}

// Latest 最近一次发布的帧，可以被任意goroutine调用
func (ctx *Context) Latest() *entity.Frame {
	return ctx.latest.Load()
}

// Close 关闭输出分发器并等待所有输出端结束
func (ctx *Context) Close() error {
	if ctx.closed.Swap(true) {
		return nil
	}
	if ctx.dispatcher == nil {
		return nil
	}
	return ctx.dispatcher.Close()
}
