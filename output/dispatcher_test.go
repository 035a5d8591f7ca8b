package output_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/output"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/utils/config"
)

type memorySink struct {
	name   string
	gate   chan struct{} // 非nil时每次Publish前等待放行
	failAt int64
	mu     sync.Mutex
	init   *entity.Frame
	ticks  []int64
	closed bool
}

func (s *memorySink) Name() string { return s.name }

func (s *memorySink) Init(f *entity.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init = f
	return nil
}

func (s *memorySink) Publish(f *entity.Frame) error {
	if s.gate != nil {
		<-s.gate
	}
	if f.Tick == s.failAt {
		return errors.New("boom")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks = append(s.ticks, f.Tick)
	return nil
}

func (s *memorySink) Close() error {
	s.closed = true
	return nil
}

func frame(tick int64) *entity.Frame {
	return &entity.Frame{Tick: tick}
}

func TestDispatcherBlockKeepsOrder(t *testing.T) {
	a := &memorySink{name: "a"}
	b := &memorySink{name: "b", failAt: 3}
	d := output.NewDispatcher(config.BackpressureBlock, 1, a, b)
	d.Init(&entity.Frame{Tick: 0, Map: [][]int32{{1}}})
	for tick := int64(1); tick <= 20; tick++ {
		d.Publish(frame(tick))
	}
	require.NoError(t, d.Close())

	require.NotNil(t, a.init)
	assert.True(t, a.init.IsInit())
	assert.Len(t, a.ticks, 20)
	for i, tick := range a.ticks {
		assert.Equal(t, int64(i+1), tick)
	}
	// b在第3步失败，只丢失这一帧
	assert.Len(t, b.ticks, 19)
	assert.NotContains(t, b.ticks, int64(3))
	assert.Equal(t, int64(1), d.Failed()["b"])
	assert.Equal(t, int64(0), d.Failed()["a"])
	assert.Equal(t, int64(0), d.Dropped()["a"])
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestDispatcherDropOldest(t *testing.T) {
	gate := make(chan struct{})
	slow := &memorySink{name: "slow", gate: gate}
	d := output.NewDispatcher(config.BackpressureDropOldest, 2, slow)
	d.Init(&entity.Frame{Tick: 0, Map: [][]int32{{1}}})
	// 输出端被阻塞时模拟器不等待
	for tick := int64(1); tick <= 10; tick++ {
		d.Publish(frame(tick))
	}
	close(gate)
	require.NoError(t, d.Close())

	require.NotNil(t, slow.init)
	dropped := d.Dropped()["slow"]
	assert.Greater(t, dropped, int64(0))
	assert.Equal(t, int64(10), int64(len(slow.ticks))+dropped)
	// 保序，且最新的一帧一定送达
	for i := 1; i < len(slow.ticks); i++ {
		assert.Less(t, slow.ticks[i-1], slow.ticks[i])
	}
	assert.Equal(t, int64(10), slow.ticks[len(slow.ticks)-1])
}

func TestDispatcherCloseIdempotent(t *testing.T) {
	s := &memorySink{name: "s"}
	d := output.NewDispatcher(config.BackpressureDropOldest, 0, s)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	d.Publish(frame(1))
	assert.Nil(t, s.init)
	assert.Empty(t, s.ticks)
}
