package car

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity/grid"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity/route"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/utils/input"
)

// ErrInvalidPopulation 车辆输入非法（位置越界、重叠、意图未知、信号灯下标越界）
var ErrInvalidPopulation = errors.New("invalid car population")

// Manager 车辆管理器
// 功能：持有全部车辆与位置表，按固定顺序更新车辆
// 说明：位置表在单步内被就地修改，排在后面的车辆能看到前面车辆本步已完成的移动
type Manager struct {
	ctx entity.ITaskContext

	cars      []*Car
	data      map[int32]*Car
	positions []grid.Cell // 车辆位置表，下标与cars一致
}

// NewManager 创建车辆管理器实例
func NewManager(ctx entity.ITaskContext) *Manager {
	return &Manager{
		ctx:       ctx,
		cars:      make([]*Car, 0),
		data:      make(map[int32]*Car),
		positions: make([]grid.Cell, 0),
	}
}

// Init 初始化全部车辆
// 功能：校验输入、分配所属信号灯并预先计算每辆车的目的地
// 参数：pbs-车辆输入（顺序即更新顺序与同距离时的优先顺序）
// 返回：输入非法返回ErrInvalidPopulation；目的地不可达返回route.ErrUnreachableDestination
// 算法说明：
// 1. 起点必须在地图范围内且互不重叠（起点不要求可通行）
// 2. 未指定信号灯时选择曼哈顿距离最近的信号灯，距离相同取下标小者
// 3. 目的地在初始化时计算，不可达视为配置错误
func (m *Manager) Init(pbs []input.Car) error {
	gridMap := m.ctx.GridMap()
	lights := m.ctx.LightManager()

	m.cars = make([]*Car, 0, len(pbs))
	m.positions = make([]grid.Cell, 0, len(pbs))
	occupied := make(map[grid.Cell]int32, len(pbs))
	for i, pb := range pbs {
		if len(pb.Position) != 2 {
			return fmt.Errorf("%w: car %d position %v", ErrInvalidPopulation, pb.ID, pb.Position)
		}
		pos := grid.Cell{Row: pb.Position[0], Col: pb.Position[1]}
		if !gridMap.InBounds(pos) {
			return fmt.Errorf("%w: car %d position %v out of bounds", ErrInvalidPopulation, pb.ID, pos)
		}
		if other, ok := occupied[pos]; ok {
			return fmt.Errorf("%w: car %d and car %d both start at %v", ErrInvalidPopulation, other, pb.ID, pos)
		}
		occupied[pos] = pb.ID
		intent, err := route.ParseIntent(pb.Intent)
		if err != nil {
			return fmt.Errorf("%w: car %d: %v", ErrInvalidPopulation, pb.ID, err)
		}
		light := nearestLight(lights, pos)
		if pb.Light != nil {
			light = *pb.Light
		}
		if light < 0 || light >= lights.Len() {
			return fmt.Errorf("%w: car %d light index %d out of range", ErrInvalidPopulation, pb.ID, light)
		}
		dest, err := route.AssignDestination(gridMap, pos, intent)
		if err != nil {
			return fmt.Errorf("car %d: %w", pb.ID, err)
		}
		m.cars = append(m.cars, &Car{
			id:          pb.ID,
			index:       i,
			intent:      intent,
			destination: &dest,
			light:       light,
		})
		m.positions = append(m.positions, pos)
		log.Debugf("car %d at %v (%v) -> %v, light %d", pb.ID, pos, intent, dest, light)
	}
	if dups := lo.FindDuplicatesBy(m.cars, func(c *Car) int32 { return c.id }); len(dups) > 0 {
		return fmt.Errorf("%w: duplicated car id %d", ErrInvalidPopulation, dups[0].id)
	}
	m.data = lo.SliceToMap(m.cars, func(c *Car) (int32, *Car) {
		return c.id, c
	})
	return nil
}

// nearestLight 曼哈顿距离最近的信号灯下标
func nearestLight(lights entity.ILightManager, pos grid.Cell) int {
	if lights.Len() == 0 {
		return -1
	}
	indexes := lo.Range(lights.Len())
	return lo.MinBy(indexes, func(a, b int) bool {
		return grid.Manhattan(pos, lights.Position(a)) < grid.Manhattan(pos, lights.Position(b))
	})
}

// GetOrError 根据ID获取车辆，如果不存在则返回error
func (m *Manager) GetOrError(id int32) (*Car, error) {
	if c, ok := m.data[id]; !ok {
		return nil, fmt.Errorf("no id %d in car data", id)
	} else {
		return c, nil
	}
}

func (m *Manager) Len() int {
	return len(m.cars)
}

func (m *Manager) Position(index int) grid.Cell {
	return m.positions[index]
}

// Occupant 扫描位置表，返回占用坐标的其他车辆下标，不存在返回-1
func (m *Manager) Occupant(c grid.Cell, self int) int {
	for i, pos := range m.positions {
		if i != self && pos == c {
			return i
		}
	}
	return -1
}

func (m *Manager) Arrived() int {
	return lo.CountBy(m.cars, func(c *Car) bool { return c.Arrived() })
}

// negotiate 协商通行权并把结果写回双方
func (m *Manager) negotiate(tick int64, self, other *Car) {
	vs, vo := Resolve(m.contender(self), m.contender(other))
	self.setVelocity(vs, tick)
	other.setVelocity(vo, tick)
	log.Debugf("tick %d: car %d (v=%d) negotiates with car %d (v=%d)", tick, self.id, vs, other.id, vo)
}

func (m *Manager) contender(c *Car) Contender {
	return Contender{ID: c.id, Position: m.positions[c.index], Destination: c.destination}
}

// Update 更新阶段
// 功能：按列表顺序依次更新每辆车
// 参数：tick-本步已经递增后的全局tick
func (m *Manager) Update(tick int64) {
	for _, c := range m.cars {
		c.update(m, tick)
	}
}

// Frames 产生全部车辆的输出
func (m *Manager) Frames() []entity.CarFrame {
	return lo.Map(m.cars, func(c *Car, i int) entity.CarFrame {
		return entity.CarFrame{
			ID:       c.id,
			Position: entity.CellPosition(m.positions[i]),
			Velocity: c.velocity,
			PathLen:  len(c.path),
		}
	})
}
