package clock

import (
	"sync/atomic"

	"github.com/tsinghua-fib-lab/gridtraffic-sim/utils/config"
)

// Clock 仿真时钟管理器
// 功能：维护全局tick（从0开始单调递增）与结束步数，并向外部发布已完成的步数
// 说明：InternalStep只由模拟主循环修改；RPC等外部读者只读取published
type Clock struct {
	END_STEP int64 // 结束步，模拟区间(0, END]

	InternalStep int64 // 当前步数（tick）

	published atomic.Int64 // 最近一次完成并发布的步数
}

// New 根据配置创建新的时钟实例
// 参数：stepConfig-控制步配置
// 返回：初始化完成的时钟实例
func New(stepConfig config.ControlStep) *Clock {
	c := &Clock{
		END_STEP: stepConfig.Total,
	}
	c.Init()
	return c
}

// Init 重置时钟状态
func (c *Clock) Init() {
	c.InternalStep = 0
	c.published.Store(0)
}

// Tick 当前步数
func (c *Clock) Tick() int64 {
	return c.InternalStep
}

// Advance 推进一步
func (c *Clock) Advance() int64 {
	c.InternalStep++
	return c.InternalStep
}

// Done 是否已经到达结束步
func (c *Clock) Done() bool {
	return c.InternalStep >= c.END_STEP
}

// Publish 发布当前步数，供其他goroutine读取
func (c *Clock) Publish() {
	c.published.Store(c.InternalStep)
}

// Published 最近一次发布的步数
func (c *Clock) Published() int64 {
	return c.published.Load()
}
