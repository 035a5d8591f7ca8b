package output

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/utils/config"
)

// worker 单个输出端的发送协程与有界队列
type worker struct {
	sink     Sink
	policy   string
	init     chan *entity.Frame // 初始帧，只发送一次，不参与丢弃
	initOnce sync.Once
	queue    chan *entity.Frame
	dropped  atomic.Int64
	failed   atomic.Int64
}

func (w *worker) loop(wg *sync.WaitGroup) {
	defer wg.Done()
	if f, ok := <-w.init; ok {
		if err := w.sink.Init(f); err != nil {
			w.failed.Add(1)
			log.Warnf("sink %s failed to init: %v", w.sink.Name(), err)
		}
	}
	for f := range w.queue {
		if err := w.sink.Publish(f); err != nil {
			w.failed.Add(1)
			log.Warnf("sink %s failed at tick %d: %v", w.sink.Name(), f.Tick, err)
		}
	}
}

func (w *worker) closeInit() {
	w.initOnce.Do(func() { close(w.init) })
}

// push 按背压策略入队
func (w *worker) push(f *entity.Frame) {
	if w.policy == config.BackpressureBlock {
		w.queue <- f
		return
	}
	for {
		select {
		case w.queue <- f:
			return
		default:
		}
		select {
		case <-w.queue:
			w.dropped.Add(1)
		default:
		}
	}
}

// Dispatcher 帧分发器
// 功能：把模拟器每步产生的帧扇出到多个输出端，每个输出端一个协程与一个有界队列
// 说明：
//   - block：队列满时模拟器等待，慢输出端会拖慢模拟
//   - drop_oldest：队列满时丢弃最旧的帧，模拟器从不等待；初始帧不会被丢弃
//
// 某个输出端发送失败只丢失该输出端的这一帧，不影响模拟与其他输出端
type Dispatcher struct {
	workers []*worker
	wg      sync.WaitGroup
	closed  atomic.Bool
}

// NewDispatcher 创建分发器并启动每个输出端的发送协程
// 参数：policy-背压策略，queueSize-每个输出端的队列长度，sinks-输出端
func NewDispatcher(policy string, queueSize int, sinks ...Sink) *Dispatcher {
	if queueSize <= 0 {
		queueSize = config.DefaultQueueSize
	}
	d := &Dispatcher{workers: make([]*worker, 0, len(sinks))}
	for _, s := range sinks {
		w := &worker{
			sink:   s,
			policy: policy,
			init:   make(chan *entity.Frame, 1),
			queue:  make(chan *entity.Frame, queueSize),
		}
		d.workers = append(d.workers, w)
		d.wg.Add(1)
		go w.loop(&d.wg)
	}
	return d
}

// Init 发布初始帧，必须在第一次Publish之前调用
func (d *Dispatcher) Init(f *entity.Frame) {
	if d.closed.Load() {
		return
	}
	for _, w := range d.workers {
		w.initOnce.Do(func() {
			w.init <- f
			close(w.init)
		})
	}
}

// Publish 发布一步的帧
func (d *Dispatcher) Publish(f *entity.Frame) {
	if d.closed.Load() {
		return
	}
	for _, w := range d.workers {
		w.push(f)
	}
}

// Dropped 各输出端因背压丢弃的帧数
func (d *Dispatcher) Dropped() map[string]int64 {
	res := make(map[string]int64, len(d.workers))
	for _, w := range d.workers {
		res[w.sink.Name()] = w.dropped.Load()
	}
	return res
}

// Failed 各输出端发送失败的帧数
func (d *Dispatcher) Failed() map[string]int64 {
	res := make(map[string]int64, len(d.workers))
	for _, w := range d.workers {
		res[w.sink.Name()] = w.failed.Load()
	}
	return res
}

// Close 等待队列中的帧发送完毕并关闭全部输出端
func (d *Dispatcher) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	for _, w := range d.workers {
		w.closeInit()
		close(w.queue)
	}
	d.wg.Wait()
	var errs []error
	for _, w := range d.workers {
		if err := w.sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sink %s: %w", w.sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}
