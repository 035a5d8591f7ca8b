package car_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/clock"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity/car"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity/grid"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity/route"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/utils/config"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/utils/input"
)

// fixedLights 状态可由测试直接设置的信号灯
type fixedLights struct {
	positions []grid.Cell
	states    []entity.LightState
}

func (l *fixedLights) Init([]input.Light, int) error { return nil }
func (l *fixedLights) Len() int                      { return len(l.states) }
func (l *fixedLights) State(i int) entity.LightState { return l.states[i] }
func (l *fixedLights) Position(i int) grid.Cell      { return l.positions[i] }
func (l *fixedLights) Green() int                    { return -1 }
func (l *fixedLights) GreenVisits(int) int           { return 0 }
func (l *fixedLights) Update(int64)                  {}
func (l *fixedLights) Frames() []entity.LightFrame   { return nil }

type testContext struct {
	gridMap *grid.Map
	lights  *fixedLights
}

func (c *testContext) Clock() *clock.Clock                  { return nil }
func (c *testContext) GridMap() *grid.Map                   { return c.gridMap }
func (c *testContext) LightManager() entity.ILightManager   { return c.lights }
func (c *testContext) CarManager() entity.ICarManager       { return nil }
func (c *testContext) RuntimeConfig() *config.RuntimeConfig { return nil }

func newContext(t *testing.T, matrix [][]int32, lights ...grid.Cell) *testContext {
	t.Helper()
	m, err := grid.New(matrix)
	require.NoError(t, err)
	l := &fixedLights{positions: lights, states: make([]entity.LightState, len(lights))}
	for i := range l.states {
		l.states[i] = entity.LightStateGreen
	}
	return &testContext{gridMap: m, lights: l}
}

func c(row, col int) grid.Cell { return grid.Cell{Row: row, Col: col} }

func intPtr(i int) *int { return &i }

func TestResolve(t *testing.T) {
	near := car.Contender{ID: 1, Position: c(0, 0), Destination: &grid.Cell{Row: 0, Col: 3}}
	far := car.Contender{ID: 0, Position: c(0, 0), Destination: &grid.Cell{Row: 0, Col: 5}}

	va, vb := car.Resolve(near, far)
	assert.Equal(t, int32(1), va)
	assert.Equal(t, int32(0), vb)
	// 与调用顺序无关
	va, vb = car.Resolve(far, near)
	assert.Equal(t, int32(0), va)
	assert.Equal(t, int32(1), vb)
}

func TestResolveTie(t *testing.T) {
	a := car.Contender{ID: 3, Position: c(0, 0), Destination: &grid.Cell{Row: 2, Col: 2}}
	b := car.Contender{ID: 8, Position: c(5, 5), Destination: &grid.Cell{Row: 7, Col: 3}}
	va, vb := car.Resolve(a, b)
	assert.Equal(t, []int32{1, 0}, []int32{va, vb})
	vb, va = car.Resolve(b, a)
	assert.Equal(t, []int32{1, 0}, []int32{va, vb})

	// 没有目的地的一方视为无穷远
	none := car.Contender{ID: 0, Position: c(1, 1)}
	va, vb = car.Resolve(none, b)
	assert.Equal(t, []int32{0, 1}, []int32{va, vb})
}

func TestInitReference(t *testing.T) {
	s := input.Reference()
	ctx := newContext(t, s.Map, c(3, 3), c(9, 3), c(9, 9), c(3, 9))
	m := car.NewManager(ctx)
	require.NoError(t, m.Init(s.Cars))
	assert.Equal(t, 8, m.Len())

	want := map[int32]grid.Cell{
		0: c(5, 11), 1: c(5, 11), 2: c(11, 7), 3: c(11, 7),
		4: c(7, 0), 5: c(7, 0), 6: c(0, 5), 7: c(0, 5),
	}
	for id, dest := range want {
		cr, err := m.GetOrError(id)
		require.NoError(t, err)
		require.NotNil(t, cr.Destination())
		assert.Equal(t, dest, *cr.Destination(), "car %d", id)
	}
	_, err := m.GetOrError(100)
	assert.Error(t, err)
}

func TestInitNearestLight(t *testing.T) {
	s := input.Reference()
	for i := range s.Cars {
		s.Cars[i].Light = nil
	}
	ctx := newContext(t, s.Map, c(3, 3), c(9, 3), c(9, 9), c(3, 9))
	m := car.NewManager(ctx)
	require.NoError(t, m.Init(s.Cars))
	// 与参考场景的象限分配一致
	for _, pb := range input.Reference().Cars {
		cr, err := m.GetOrError(pb.ID)
		require.NoError(t, err)
		assert.Equal(t, *pb.Light, cr.Light(), "car %d", pb.ID)
	}
}

func TestInitInvalid(t *testing.T) {
	s := input.Reference()
	cases := [][]input.Car{
		{{ID: 0, Position: []int{12, 0}}},
		{{ID: 0, Position: []int{5, 5}}, {ID: 1, Position: []int{5, 5}}},
		{{ID: 0, Position: []int{5, 5}, Intent: "backwards"}},
		{{ID: 0, Position: []int{5, 5}, Light: intPtr(4)}},
		{{ID: 0, Position: []int{5, 5}}, {ID: 0, Position: []int{5, 6}}},
		{{ID: 0, Position: []int{5}}},
	}
	for i, cars := range cases {
		ctx := newContext(t, s.Map, c(3, 3), c(9, 3), c(9, 9), c(3, 9))
		assert.ErrorIs(t, car.NewManager(ctx).Init(cars), car.ErrInvalidPopulation, "case %d", i)
	}

	ctx := newContext(t, s.Map, c(3, 3))
	err := car.NewManager(ctx).Init([]input.Car{{ID: 0, Position: []int{3, 8}, Intent: "straight"}})
	assert.ErrorIs(t, err, route.ErrUnreachableDestination)
}

func TestMoveOnGreenOnly(t *testing.T) {
	ctx := newContext(t, [][]int32{{1, 1, 1, 1}, {1, 1, 1, 1}}, c(0, 0))
	ctx.lights.states[0] = entity.LightStateRed
	m := car.NewManager(ctx)
	// 上左象限直行：目的地为同行最右列
	require.NoError(t, m.Init([]input.Car{{ID: 0, Position: []int{0, 0}, Intent: "straight"}}))

	m.Update(1)
	assert.Equal(t, c(0, 0), m.Position(0))
	assert.Equal(t, 4, m.Frames()[0].PathLen)
	assert.Equal(t, int32(0), m.Frames()[0].Velocity)

	ctx.lights.states[0] = entity.LightStateYellow
	m.Update(2)
	assert.Equal(t, c(0, 0), m.Position(0))

	ctx.lights.states[0] = entity.LightStateGreen
	for tick := int64(3); tick <= 10; tick++ {
		m.Update(tick)
	}
	assert.Equal(t, c(0, 3), m.Position(0))
	assert.Equal(t, 1, m.Frames()[0].PathLen)
	assert.Equal(t, 1, m.Arrived())
	cr, err := m.GetOrError(0)
	require.NoError(t, err)
	assert.True(t, cr.Arrived())
}

func TestInStepVisibility(t *testing.T) {
	matrix := [][]int32{{1, 1, 1, 1, 1, 1}, {1, 1, 1, 1, 1, 1}}

	// 前车先更新：前车让出的格子在同一步内对后车可见
	ctx := newContext(t, matrix, c(0, 0))
	m := car.NewManager(ctx)
	require.NoError(t, m.Init([]input.Car{
		{ID: 0, Position: []int{0, 1}, Intent: "straight"},
		{ID: 1, Position: []int{0, 0}, Intent: "straight"},
	}))
	m.Update(1)
	assert.Equal(t, c(0, 2), m.Position(0))
	assert.Equal(t, c(0, 1), m.Position(1))

	// 后车先更新：下一格仍被占用，协商后后车本步不移动，前车照常前进
	ctx = newContext(t, matrix, c(0, 0))
	m = car.NewManager(ctx)
	require.NoError(t, m.Init([]input.Car{
		{ID: 0, Position: []int{0, 0}, Intent: "straight"},
		{ID: 1, Position: []int{0, 1}, Intent: "straight"},
	}))
	m.Update(1)
	assert.Equal(t, c(0, 0), m.Position(0))
	assert.Equal(t, c(0, 2), m.Position(1))
	frames := m.Frames()
	// 剩余距离：car0为5，car1为4，car1获得通行
	assert.Equal(t, int32(0), frames[0].Velocity)
	assert.Equal(t, int32(1), frames[1].Velocity)
}

func TestHeldCarDoesNotMoveSameTick(t *testing.T) {
	matrix := make([][]int32, 6)
	for i := range matrix {
		matrix[i] = []int32{1, 1, 1, 1, 1, 1}
	}
	cars := []input.Car{
		// 下左象限直行：目的地(0,1)，剩余距离3，下一格(2,1)
		{ID: 0, Position: []int{3, 1}, Intent: "straight"},
		// 上左象限直行：目的地(2,5)，剩余距离4，下一格(2,2)
		{ID: 1, Position: []int{2, 1}, Intent: "straight"},
	}

	ctx := newContext(t, matrix, c(0, 0))
	m := car.NewManager(ctx)
	require.NoError(t, m.Init(cars))
	m.Update(1)
	// car0的下一格被car1占用，协商判car1等待；car1下一格空闲也不在本步移动
	assert.Equal(t, c(3, 1), m.Position(0))
	assert.Equal(t, c(2, 1), m.Position(1))
	frames := m.Frames()
	assert.Equal(t, int32(1), frames[0].Velocity)
	assert.Equal(t, int32(0), frames[1].Velocity)

	// 更新顺序相反时car1先移动，car0随后进入让出的格子
	ctx = newContext(t, matrix, c(0, 0))
	m = car.NewManager(ctx)
	require.NoError(t, m.Init([]input.Car{cars[1], cars[0]}))
	m.Update(1)
	assert.Equal(t, c(2, 2), m.Position(0))
	assert.Equal(t, c(2, 1), m.Position(1))
}

func TestNoDoubleOccupancy(t *testing.T) {
	s := input.Reference()
	ctx := newContext(t, s.Map, c(3, 3), c(9, 3), c(9, 9), c(3, 9))
	m := car.NewManager(ctx)
	require.NoError(t, m.Init(s.Cars))
	for tick := int64(1); tick <= 100; tick++ {
		m.Update(tick)
		seen := make(map[grid.Cell]int)
		for i := 0; i < m.Len(); i++ {
			pos := m.Position(i)
			prev, ok := seen[pos]
			assert.False(t, ok, "tick %d: car %d and car %d share %v", tick, prev, i, pos)
			seen[pos] = i
			assert.Equal(t, -1, m.Occupant(pos, i))
		}
	}
}
