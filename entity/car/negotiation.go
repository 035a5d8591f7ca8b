package car

import (
	"math"

	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity/grid"
)

// Contender 争用同一格子的一方
type Contender struct {
	ID          int32
	Position    grid.Cell
	Destination *grid.Cell // 为nil表示尚未计算目的地
}

// remaining 到目的地的剩余曼哈顿距离，尚无目的地时视为无穷远
func (c Contender) remaining() int {
	if c.Destination == nil {
		return math.MaxInt
	}
	return grid.Manhattan(c.Position, *c.Destination)
}

// Resolve 两车争用同一格子时的通行权裁决
// 功能：剩余距离严格更小的一方获得通行（速度1），另一方等待（速度0）
// 参数：a,b-争用双方
// 返回：va,vb-双方的速度
// 说明：剩余距离相同时ID较小者获得通行，结果与调用顺序无关
func Resolve(a, b Contender) (va, vb int32) {
	da, db := a.remaining(), b.remaining()
	switch {
	case da < db:
		return 1, 0
	case db < da:
		return 0, 1
	case a.ID <= b.ID:
		return 1, 0
	default:
		return 0, 1
	}
}
