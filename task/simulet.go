package task

import (
	"context"
	"flag"
	"time"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity"
)

var (
	heartBeatInterval = flag.Int64("log.heartbeat_interval", 100, "心跳日志间隔步数")
)

// Summary 一次运行的汇总
type Summary struct {
	Ticks       int64            // 完成的步数
	Cars        int              // 车辆总数
	Arrived     int              // 到达目的地的车辆数
	GreenVisits []int            // 每个信号灯变为绿灯的次数（含初始化）
	Dropped     map[string]int64 // 各输出端因背压丢弃的帧数
	Failed      map[string]int64 // 各输出端发送失败的帧数
	Interrupted bool             // 是否被外部中断
}

// Step 推进一步
// 功能：tick加一，依次更新全部信号灯与全部车辆，随后发布本步的帧
// 返回：本步结束后的只读快照
// 算法说明：
// 1. 时钟推进，得到本步的tick
// 2. 信号灯按列表顺序更新，交接的绿灯在本步内对车辆可见
// 3. 车辆按列表顺序更新，排在后面的车辆能看到前面车辆本步的移动
// 4. 发布时钟与快照
func (ctx *Context) Step() *entity.Frame {
	tick := ctx.clock.Advance()
	if *heartBeatInterval > 0 && tick%*heartBeatInterval == 0 {
		log.Infof("STEP: %d, green light %d, arrived %d/%d",
			tick, ctx.lightManager.Green(), ctx.carManager.Arrived(), ctx.carManager.Len())
	}

	ctx.lightManager.Update(tick)
	log.Debugf("step %d: light update complete", tick)
	ctx.carManager.Update(tick)
	log.Debugf("step %d: car update complete", tick)

	ctx.clock.Publish()
	f := ctx.Frame()
	ctx.latest.Store(f)
	return f
}

// Run 运行直到完成全部步数或runCtx结束
// 功能：发送初始帧，循环执行Step并把每一步的帧交给输出分发器，结束后关闭输出并汇总
// 算法说明：
// 1. 如果配置了wait_for_viewer，先等待第一个观察者连接
// 2. 发送初始帧（地图与初始状态）
// 3. 循环推进，step.interval大于0时按该间隔控制节奏
// 4. 关闭输出分发器（等待队列中的帧发送完毕），输出汇总日志
func (ctx *Context) Run(runCtx context.Context) (*Summary, error) {
	rc := ctx.runtimeConfig
	if rc.O.WaitForViewer && ctx.viewer != nil {
		log.Infof("waiting for the first viewer on %s", rc.O.Listen)
		if err := ctx.viewer.WaitViewer(runCtx); err != nil {
			_ = ctx.Close()
			return nil, err
		}
	}
	if ctx.dispatcher != nil {
		ctx.dispatcher.Init(ctx.InitFrame())
	}

	var pace <-chan time.Time
	if rc.C.Step.Interval > 0 {
		ticker := time.NewTicker(time.Duration(rc.C.Step.Interval * float64(time.Second)))
		defer ticker.Stop()
		pace = ticker.C
	}

	interrupted := false
loop:
	for !ctx.clock.Done() {
		select {
		case <-runCtx.Done():
			interrupted = true
			break loop
		default:
		}
		f := ctx.Step()
		if ctx.dispatcher != nil {
			ctx.dispatcher.Publish(f)
		}
		if pace != nil && !ctx.clock.Done() {
			select {
			case <-pace:
			case <-runCtx.Done():
				interrupted = true
				break loop
			}
		}
	}
	if interrupted {
		log.Warnf("engine interrupted at step %d", ctx.clock.Tick())
	} else {
		log.Infof("engine complete")
	}

	err := ctx.Close()
	s := ctx.summary(interrupted)
	log.Infof("ticks %d, arrived %d/%d, green visits %v", s.Ticks, s.Arrived, s.Cars, s.GreenVisits)
	for name, n := range s.Dropped {
		if n > 0 {
			log.Infof("sink %s dropped %d frames", name, n)
		}
	}
	return s, err
}

func (ctx *Context) summary(interrupted bool) *Summary {
	s := &Summary{
		Ticks:   ctx.clock.Tick(),
		Cars:    ctx.carManager.Len(),
		Arrived: ctx.carManager.Arrived(),
		GreenVisits: lo.Map(lo.Range(ctx.lightManager.Len()), func(i int, _ int) int {
			return ctx.lightManager.GreenVisits(i)
		}),
		Interrupted: interrupted,
	}
	if ctx.dispatcher != nil {
		s.Dropped = ctx.dispatcher.Dropped()
		s.Failed = ctx.dispatcher.Failed()
	}
	return s
}
