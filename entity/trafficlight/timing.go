package trafficlight

import (
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/utils/config"
)

// Timing 信号灯计时参数
type Timing struct {
	CycleLength int64 // 周期长度
	YellowAt    int64 // 绿灯在 tick%CycleLength==YellowAt 时变黄
	RedAt       int64 // 黄灯在 tick%CycleLength==RedAt 时变红
}

// NewTiming 从配置创建计时参数
func NewTiming(c config.ControlLight) Timing {
	return Timing{CycleLength: c.CycleLength, YellowAt: c.YellowAt, RedAt: c.RedAt}
}

// Next 计时驱动的状态转移（纯函数）
// 参数：state-当前状态，tick-本步的全局tick
// 返回：next-转移后的状态，signal-是否需要通知环上后继
// 说明：只有绿灯和黄灯会被计时驱动；红灯只能由前驱的信号变为绿灯
func (t Timing) Next(state entity.LightState, tick int64) (next entity.LightState, signal bool) {
	phase := tick % t.CycleLength
	switch {
	case state == entity.LightStateGreen && phase == t.YellowAt:
		return entity.LightStateYellow, false
	case state == entity.LightStateYellow && phase == t.RedAt:
		return entity.LightStateRed, true
	default:
		return state, false
	}
}

// Receive 收到前驱信号后的状态转移（纯函数）
// 返回：next-转移后的状态，ok-信号是否生效（只有红灯会响应）
func Receive(state entity.LightState) (next entity.LightState, ok bool) {
	if state == entity.LightStateRed {
		return entity.LightStateGreen, true
	}
	return state, false
}
