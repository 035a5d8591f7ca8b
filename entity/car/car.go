package car

import (
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity/grid"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity/route"
)

// Car 车辆
// 功能：规划路径、服从所属信号灯、与其他车辆协商格子的通行权
// 说明：车辆位置由Manager的位置表统一持有，车辆只保存自己在表中的下标
type Car struct {
	id    int32
	index int // 在Manager中的下标，同时决定更新顺序

	intent      route.Intent
	destination *grid.Cell  // 目的地，尚未计算时为nil
	path        []grid.Cell // 从当前位置到目的地的路径（含两端），为空表示尚无路径
	velocity    int32       // 0-等待，1-可以通行
	heldAt      int64       // 最近一次在协商中被判等待的tick
	light       int         // 所属信号灯下标
}

func (c *Car) ID() int32 {
	return c.id
}

func (c *Car) Intent() route.Intent {
	return c.intent
}

func (c *Car) Destination() *grid.Cell {
	return c.destination
}

func (c *Car) Velocity() int32 {
	return c.velocity
}

func (c *Car) Light() int {
	return c.light
}

// PathLen 剩余路径长度（含当前格）
func (c *Car) PathLen() int {
	return len(c.path)
}

// Arrived 是否已到达目的地
func (c *Car) Arrived() bool {
	return len(c.path) == 1 && c.destination != nil && c.path[0] == *c.destination
}

func (c *Car) setVelocity(v int32, tick int64) {
	c.velocity = v
	if v == 0 {
		c.heldAt = tick
	}
}

// update 单车每步的状态机
// 参数：m-车辆管理器，tick-本步的全局tick
// 算法说明：
// 1. 尚无目的地：按象限与转向意图计算目的地
// 2. 尚无路径：A*规划路径，失败或无路可走时下一步重试
// 3. 路径至少包含当前格与下一格时检查下一格的占用
//   - 被占用：与占用者协商，双方按结果设置速度，本步不移动
//   - 本步已在协商中被判等待：不移动
//   - 未被占用且所属信号灯为绿灯：移动到下一格并消耗路径首格
//   - 信号灯不是绿灯：等待
func (c *Car) update(m *Manager, tick int64) {
	gridMap := m.ctx.GridMap()
	pos := m.positions[c.index]

	if c.destination == nil {
		dest, err := route.AssignDestination(gridMap, pos, c.intent)
		if err != nil {
			log.Warnf("tick %d: car %d failed to assign destination: %v", tick, c.id, err)
			return
		}
		c.destination = &dest
	}
	if len(c.path) == 0 {
		path, err := route.FindPath(gridMap, pos, *c.destination)
		if err != nil {
			log.Warnf("tick %d: car %d failed to plan path: %v", tick, c.id, err)
			return
		}
		if len(path) == 0 {
			log.Debugf("tick %d: car %d has no route from %v to %v, retry next tick", tick, c.id, pos, *c.destination)
			return
		}
		c.path = path
	}
	if len(c.path) < 2 {
		return
	}

	next := c.path[1]
	if other := m.Occupant(next, c.index); other >= 0 {
		m.negotiate(tick, c, m.cars[other])
		return
	}
	if c.heldAt == tick {
		return
	}
	if m.ctx.LightManager().State(c.light) != entity.LightStateGreen {
		c.velocity = 0
		return
	}
	m.positions[c.index] = next
	c.path = c.path[1:]
	c.velocity = 1
}
