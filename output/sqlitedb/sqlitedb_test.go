package sqlitedb_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/output/sqlitedb"
	_ "modernc.org/sqlite"
)

func frameAt(tick int64, col int, state entity.LightState) *entity.Frame {
	return &entity.Frame{
		Tick: tick,
		TrafficLights: []entity.LightFrame{
			{ID: 0, Position: [2]int{1, 1}, State: state},
			{ID: 1, Position: [2]int{1, 3}, State: entity.LightStateRed},
		},
		Cars: []entity.CarFrame{
			{ID: 0, Position: [2]int{1, col}, Velocity: 1, PathLen: 4 - col},
		},
	}
}

func TestStoreWritesFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steps.db")
	s, err := sqlitedb.Open(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", s.Name())

	assert.Error(t, s.Publish(frameAt(1, 1, entity.LightStateGreen)))

	initFrame := frameAt(0, 0, entity.LightStateGreen)
	initFrame.Map = [][]int32{{0, 0, 0, 0}, {1, 1, 1, 1}}
	require.NoError(t, s.Init(initFrame))
	assert.Equal(t, int64(1), s.RunID())
	require.NoError(t, s.Publish(frameAt(1, 1, entity.LightStateGreen)))
	require.NoError(t, s.Publish(frameAt(2, 2, entity.LightStateYellow)))
	require.NoError(t, s.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var rows, cols, lights, cars int
	var lastTick int64
	var finished sql.NullString
	require.NoError(t, db.QueryRow(`SELECT "rows","cols",lights,cars,last_tick,finished_at FROM runs WHERE id=1`).
		Scan(&rows, &cols, &lights, &cars, &lastTick, &finished))
	assert.Equal(t, []int{2, 4, 2, 1}, []int{rows, cols, lights, cars})
	assert.Equal(t, int64(2), lastTick)
	assert.True(t, finished.Valid)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM light_states WHERE run_id=1`).Scan(&n))
	assert.Equal(t, 6, n)
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM car_states WHERE run_id=1`).Scan(&n))
	assert.Equal(t, 3, n)

	var state string
	require.NoError(t, db.QueryRow(`SELECT state FROM light_states WHERE run_id=1 AND tick=2 AND light_id=0`).Scan(&state))
	assert.Equal(t, "yellow", state)

	var row, col, pathLen int
	var velocity int32
	require.NoError(t, db.QueryRow(`SELECT "row",col,velocity,path_len FROM car_states WHERE run_id=1 AND tick=2 AND car_id=0`).
		Scan(&row, &col, &velocity, &pathLen))
	assert.Equal(t, []int{1, 2, 2}, []int{row, col, pathLen})
	assert.Equal(t, int32(1), velocity)
}

func TestStoreSecondRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steps.db")
	for want := int64(1); want <= 2; want++ {
		s, err := sqlitedb.Open(path)
		require.NoError(t, err)
		initFrame := frameAt(0, 0, entity.LightStateGreen)
		initFrame.Map = [][]int32{{1}}
		require.NoError(t, s.Init(initFrame))
		assert.Equal(t, want, s.RunID())
		require.NoError(t, s.Close())
	}
}

func TestOpenEmptyPath(t *testing.T) {
	_, err := sqlitedb.Open("")
	assert.Error(t, err)
}
