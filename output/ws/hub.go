package ws

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/utils/config"
)

const writeTimeout = 5 * time.Second

// client 单个观察者连接
type client struct {
	id    uint64
	conn  *websocket.Conn
	queue chan *entity.Frame
	first *entity.Frame // 连接时合成的初始帧，在队列之前发送
	done  chan struct{}
	once  sync.Once
}

func (c *client) stop() {
	c.once.Do(func() { close(c.done) })
}

func (c *client) write(f *entity.Frame) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(f)
}

// writeLoop 按顺序发送队列中的帧，队列关闭时发送关闭帧
func (c *client) writeLoop(wg *sync.WaitGroup) {
	defer wg.Done()
	defer c.conn.Close()
	if c.first != nil {
		if err := c.write(c.first); err != nil {
			log.Debugf("viewer %d write failed: %v", c.id, err)
			c.stop()
			return
		}
	}
	for {
		select {
		case <-c.done:
			return
		case f, ok := <-c.queue:
			if !ok {
				_ = c.conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "simulation finished"),
					time.Now().Add(time.Second),
				)
				return
			}
			if err := c.write(f); err != nil {
				log.Debugf("viewer %d write failed: %v", c.id, err)
				c.stop()
				return
			}
		}
	}
}

// Hub 网页观察者的推送中心
// 功能：实现output.Sink，将每步的帧以JSON文本消息推送给所有已连接的观察者
// 说明：
//   - 新连接的观察者首先收到初始帧（地图与最新的信号灯、车辆状态），之后按步序收到每一帧
//   - 每个观察者有独立的有界队列，背压策略与分发器相同
//   - 观察者发来的消息只读取并忽略
type Hub struct {
	policy    string
	queueSize int
	upgrader  websocket.Upgrader

	mu      sync.Mutex
	clients map[uint64]*client
	gridMap [][]int32
	latest  *entity.Frame
	closed  bool
	wg      sync.WaitGroup

	nextID     atomic.Uint64
	dropped    atomic.Int64
	viewer     chan struct{}
	viewerOnce sync.Once
}

// NewHub 创建推送中心
// 参数：policy-背压策略，queueSize-每个观察者的队列长度
func NewHub(policy string, queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = config.DefaultQueueSize
	}
	return &Hub{
		policy:    policy,
		queueSize: queueSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[uint64]*client),
		viewer:  make(chan struct{}),
	}
}

func (h *Hub) Name() string {
	return "ws"
}

// Handler 处理/ws的升级请求
func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			log.Warnf("websocket upgrade failed: %v", err)
			return
		}
		c := &client{
			id:    h.nextID.Add(1),
			conn:  conn,
			queue: make(chan *entity.Frame, h.queueSize),
			done:  make(chan struct{}),
		}
		if !h.join(c) {
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "simulation finished"),
				time.Now().Add(time.Second),
			)
			_ = conn.Close()
			return
		}
		log.Infof("viewer %d connected from %s", c.id, r.RemoteAddr)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		c.stop()
		h.leave(c)
		log.Infof("viewer %d disconnected", c.id)
	}
}

func (h *Hub) join(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	c.first = h.initFrameLocked()
	h.clients[c.id] = c
	h.wg.Add(1)
	go c.writeLoop(&h.wg)
	h.viewerOnce.Do(func() { close(h.viewer) })
	return true
}

func (h *Hub) leave(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c.id)
}

// initFrameLocked 由地图与最新状态合成初始帧，尚未初始化时返回nil
func (h *Hub) initFrameLocked() *entity.Frame {
	if h.latest == nil {
		return nil
	}
	return &entity.Frame{
		Tick:          h.latest.Tick,
		Map:           h.gridMap,
		TrafficLights: h.latest.TrafficLights,
		Cars:          h.latest.Cars,
	}
}

// push 按背压策略把帧加入观察者队列，调用方持有h.mu
func (h *Hub) push(c *client, f *entity.Frame) {
	if h.policy == config.BackpressureBlock {
		select {
		case c.queue <- f:
		case <-c.done:
		}
		return
	}
	for {
		select {
		case c.queue <- f:
			return
		case <-c.done:
			return
		default:
		}
		select {
		case <-c.queue:
			h.dropped.Add(1)
		default:
		}
	}
}

// Init 记录地图并把初始帧发给已经连接的观察者
// 说明：此时观察者队列为空，初始帧不受背压策略影响
func (h *Hub) Init(f *entity.Frame) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.gridMap = f.Map
	h.latest = f
	for _, c := range h.clients {
		select {
		case c.queue <- f:
		case <-c.done:
		}
	}
	return nil
}

func (h *Hub) Publish(f *entity.Frame) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = f
	for _, c := range h.clients {
		h.push(c, f)
	}
	return nil
}

// WaitViewer 阻塞直到至少一个观察者连接或ctx结束
func (h *Hub) WaitViewer(ctx context.Context) error {
	select {
	case <-h.viewer:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Viewers 当前连接的观察者数量
func (h *Hub) Viewers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped 因背压丢弃的帧数（所有观察者之和，含已断开的观察者）
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close 发送剩余的帧与关闭帧并等待所有发送协程结束
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	for _, c := range h.clients {
		close(c.queue)
	}
	h.mu.Unlock()
	h.wg.Wait()
	return nil
}
