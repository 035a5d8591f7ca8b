package ws_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/output/ws"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/utils/config"
)

func stepFrame(tick int64) *entity.Frame {
	return &entity.Frame{
		Tick: tick,
		TrafficLights: []entity.LightFrame{
			{ID: 0, Position: [2]int{0, 0}, State: entity.LightStateGreen},
		},
		Cars: []entity.CarFrame{
			{ID: 0, Position: [2]int{0, int(tick)}, Velocity: 1, PathLen: 3},
		},
	}
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) *entity.Frame {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f entity.Frame
	require.NoError(t, conn.ReadJSON(&f))
	return &f
}

func TestHubLateViewerGetsInitFrame(t *testing.T) {
	hub := ws.NewHub(config.BackpressureBlock, 8)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	initFrame := stepFrame(0)
	initFrame.Map = [][]int32{{1, 1, 1}}
	require.NoError(t, hub.Init(initFrame))
	require.NoError(t, hub.Publish(stepFrame(1)))

	conn := dial(t, srv)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, hub.WaitViewer(ctx))

	// 初始帧包含地图与最新状态
	f := readFrame(t, conn)
	assert.True(t, f.IsInit())
	assert.Equal(t, int64(1), f.Tick)
	assert.Equal(t, [][]int32{{1, 1, 1}}, f.Map)
	require.Len(t, f.Cars, 1)
	assert.Equal(t, [2]int{0, 1}, f.Cars[0].Position)
	assert.Equal(t, entity.LightStateGreen, f.TrafficLights[0].State)

	for tick := int64(2); tick <= 4; tick++ {
		require.NoError(t, hub.Publish(stepFrame(tick)))
	}
	for tick := int64(2); tick <= 4; tick++ {
		f := readFrame(t, conn)
		assert.False(t, f.IsInit())
		assert.Equal(t, tick, f.Tick)
	}
	assert.Equal(t, 1, hub.Viewers())

	require.NoError(t, hub.Close())
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
	require.NoError(t, hub.Close())
}

func TestHubWaitViewerCanceled(t *testing.T) {
	hub := ws.NewHub(config.BackpressureDropOldest, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, hub.WaitViewer(ctx), context.Canceled)
	assert.Equal(t, "ws", hub.Name())
	require.NoError(t, hub.Close())
}

func TestHubRejectsAfterClose(t *testing.T) {
	hub := ws.NewHub(config.BackpressureDropOldest, 4)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()
	require.NoError(t, hub.Close())

	conn := dial(t, srv)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
	assert.Equal(t, 0, hub.Viewers())
}
