package trafficlight

import (
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity/grid"
)

// TrafficLight 信号灯
// 功能：固定位置的三态信号灯，通过successor下标指向环上的后继
type TrafficLight struct {
	id        int32
	position  grid.Cell
	state     entity.LightState
	successor int // 环上后继信号灯的下标

	greenVisits int // 变为绿灯的次数（含初始化）
}

func (l *TrafficLight) ID() int32 {
	return l.id
}

func (l *TrafficLight) State() entity.LightState {
	return l.state
}

func (l *TrafficLight) Position() grid.Cell {
	return l.position
}

func (l *TrafficLight) Successor() int {
	return l.successor
}

func (l *TrafficLight) setGreen() {
	l.state = entity.LightStateGreen
	l.greenVisits++
}
