package trafficlight

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity/grid"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/utils/input"
)

// ErrInvalidRing 信号灯输入非法（位置越界、后继越界或后继关系不是覆盖全部信号灯的单环）
var ErrInvalidRing = errors.New("invalid traffic light ring")

// Manager 信号灯管理器
// 功能：持有全部信号灯，按列表顺序更新，并在信号灯变红时向环上后继交接绿灯
type Manager struct {
	ctx entity.ITaskContext

	timing Timing
	lights []*TrafficLight
	data   map[int32]*TrafficLight
}

// NewManager 创建信号灯管理器实例
func NewManager(ctx entity.ITaskContext) *Manager {
	return &Manager{
		ctx:    ctx,
		timing: NewTiming(ctx.RuntimeConfig().C.Light),
		lights: make([]*TrafficLight, 0),
		data:   make(map[int32]*TrafficLight),
	}
}

// Init 初始化全部信号灯与信号环
// 功能：创建信号灯，校验后继关系构成单环，并将initialGreen号信号灯设为绿灯、其余为红灯
// 参数：pbs-信号灯输入（顺序即更新顺序），initialGreen-初始绿灯下标
// 返回：输入非法时返回ErrInvalidRing
func (m *Manager) Init(pbs []input.Light, initialGreen int) error {
	n := len(pbs)
	if n == 0 {
		return fmt.Errorf("%w: no traffic light", ErrInvalidRing)
	}
	gridMap := m.ctx.GridMap()
	m.lights = make([]*TrafficLight, 0, n)
	for i, pb := range pbs {
		if len(pb.Position) != 2 {
			return fmt.Errorf("%w: light %d position %v", ErrInvalidRing, pb.ID, pb.Position)
		}
		pos := grid.Cell{Row: pb.Position[0], Col: pb.Position[1]}
		if !gridMap.InBounds(pos) {
			return fmt.Errorf("%w: light %d position %v out of bounds", ErrInvalidRing, pb.ID, pos)
		}
		successor := (i + 1) % n
		if pb.Successor != nil {
			successor = *pb.Successor
		}
		if successor < 0 || successor >= n {
			return fmt.Errorf("%w: light %d successor %d out of range", ErrInvalidRing, pb.ID, successor)
		}
		m.lights = append(m.lights, &TrafficLight{
			id:        pb.ID,
			position:  pos,
			state:     entity.LightStateRed,
			successor: successor,
		})
	}
	if err := checkRing(m.lights); err != nil {
		return err
	}
	if ids := lo.FindDuplicatesBy(m.lights, func(l *TrafficLight) int32 { return l.id }); len(ids) > 0 {
		return fmt.Errorf("%w: duplicated light id %d", ErrInvalidRing, ids[0].id)
	}
	m.data = lo.SliceToMap(m.lights, func(l *TrafficLight) (int32, *TrafficLight) {
		return l.id, l
	})
	if initialGreen < 0 || initialGreen >= n {
		return fmt.Errorf("%w: initial green index %d out of range", ErrInvalidRing, initialGreen)
	}
	m.lights[initialGreen].setGreen()
	log.Infof("light %d is initially green", m.lights[initialGreen].id)
	return nil
}

// checkRing 检查后继关系是否为覆盖全部信号灯的单环
// 说明：从0号出发沿后继走n步，必须恰好回到0号且途中不重复
func checkRing(lights []*TrafficLight) error {
	n := len(lights)
	visited := make([]bool, n)
	cur := 0
	for step := 0; step < n; step++ {
		if visited[cur] {
			return fmt.Errorf("%w: light %d is revisited after %d hops", ErrInvalidRing, lights[cur].id, step)
		}
		visited[cur] = true
		cur = lights[cur].successor
	}
	if cur != 0 {
		return fmt.Errorf("%w: ring does not close", ErrInvalidRing)
	}
	return nil
}

// GetOrError 根据ID获取信号灯，如果不存在则返回error
func (m *Manager) GetOrError(id int32) (*TrafficLight, error) {
	if l, ok := m.data[id]; !ok {
		return nil, fmt.Errorf("no id %d in traffic light data", id)
	} else {
		return l, nil
	}
}

func (m *Manager) Len() int {
	return len(m.lights)
}

func (m *Manager) State(index int) entity.LightState {
	return m.lights[index].state
}

func (m *Manager) Position(index int) grid.Cell {
	return m.lights[index].position
}

func (m *Manager) Green() int {
	_, index, ok := lo.FindIndexOf(m.lights, func(l *TrafficLight) bool {
		return l.state == entity.LightStateGreen
	})
	if !ok {
		return -1
	}
	return index
}

func (m *Manager) GreenVisits(index int) int {
	return m.lights[index].greenVisits
}

// Update 更新阶段
// 功能：按列表顺序推进每个信号灯的计时状态机；信号灯变红时立即通知其环上后继
// 参数：tick-本步已经递增后的全局tick
// 说明：后继在同一步内立即变为绿灯，对本步随后更新的信号灯与全部车辆可见
func (m *Manager) Update(tick int64) {
	for _, l := range m.lights {
		next, signal := m.timing.Next(l.state, tick)
		if next != l.state {
			log.Debugf("tick %d: light %d %v -> %v", tick, l.id, l.state, next)
		}
		l.state = next
		if signal {
			m.signal(tick, l)
		}
	}
}

// signal 向环上后继发送绿灯信号
func (m *Manager) signal(tick int64, from *TrafficLight) {
	to := m.lights[from.successor]
	if _, ok := Receive(to.state); !ok {
		log.Warnf("tick %d: light %d ignores signal from light %d in state %v", tick, to.id, from.id, to.state)
		return
	}
	to.setGreen()
	log.Debugf("tick %d: light %d hands green over to light %d", tick, from.id, to.id)
}

// Frames 产生全部信号灯的输出
func (m *Manager) Frames() []entity.LightFrame {
	return lo.Map(m.lights, func(l *TrafficLight, _ int) entity.LightFrame {
		return entity.LightFrame{
			ID:       l.id,
			Position: entity.CellPosition(l.position),
			State:    l.state,
		}
	})
}
