package entity

import (
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity/grid"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/utils/input"
)

// Manager依赖倒置

// entity/trafficlight/manager.go的依赖倒置
type ILightManager interface {
	Init(lights []input.Light, initialGreen int) error // 初始化

	Len() int                     // 信号灯数量
	State(index int) LightState   // 按下标获取信号灯状态
	Position(index int) grid.Cell // 按下标获取信号灯位置
	Green() int                   // 当前绿灯下标，不存在返回-1
	GreenVisits(index int) int    // 信号灯变为绿灯的次数（含初始化）

	Update(tick int64)    // 更新阶段
	Frames() []LightFrame // 产生输出
}

// entity/car/manager.go的依赖倒置
type ICarManager interface {
	Init(cars []input.Car) error // 初始化

	Len() int                           // 车辆数量
	Position(index int) grid.Cell       // 按下标获取车辆位置
	Occupant(c grid.Cell, self int) int // 占用坐标的其他车辆下标，不存在返回-1
	Arrived() int                       // 已到达目的地的车辆数

	Update(tick int64)  // 更新阶段
	Frames() []CarFrame // 产生输出
}
