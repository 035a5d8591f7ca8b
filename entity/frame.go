package entity

import "github.com/tsinghua-fib-lab/gridtraffic-sim/entity/grid"

// LightFrame 单个信号灯的输出
type LightFrame struct {
	ID       int32      `json:"id"`
	Position [2]int     `json:"position"` // [行, 列]
	State    LightState `json:"state"`
}

// CarFrame 单辆车的输出
type CarFrame struct {
	ID       int32  `json:"id"`
	Position [2]int `json:"position"` // [行, 列]
	Velocity int32  `json:"velocity"`
	PathLen  int    `json:"path_len"` // 剩余路径长度（含当前格），0表示尚无路径
}

// Frame 每步结束后的只读快照
// 说明：Map只在初始帧中出现；一经产生不再修改，可以被多个输出端并发读取
type Frame struct {
	Tick          int64        `json:"tick"`
	Map           [][]int32    `json:"map,omitempty"`
	TrafficLights []LightFrame `json:"traffic_lights"`
	Cars          []CarFrame   `json:"cars"`
}

// IsInit 是否为初始帧
func (f *Frame) IsInit() bool {
	return f.Map != nil
}

// CellPosition 坐标转换为输出格式
func CellPosition(c grid.Cell) [2]int {
	return [2]int{c.Row, c.Col}
}
