package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig 配置项取值非法
var ErrInvalidConfig = errors.New("invalid config")

const (
	DefaultTotalSteps  = 100
	DefaultCycleLength = 26
	DefaultYellowAt    = 10
	DefaultRedAt       = 13
	DefaultQueueSize   = 64
)

// RuntimeConfig 运行时配置
// 功能：存储补全默认值并校验后的配置
type RuntimeConfig struct {
	All Config  // 全部配置
	C   Control // 全局控制配置
	O   Output  // 输出配置
}

// NewRuntimeConfig 根据配置初始化运行时配置
// 功能：补全默认值并校验取值范围
// 参数：config-原始配置对象
// 返回：运行时配置指针；取值非法时返回ErrInvalidConfig
// 算法说明：
// 1. 总步数、信号灯周期、队列长度、背压策略缺省时填入默认值
// 2. 校验 0 <= yellow_at < red_at < cycle_length
func NewRuntimeConfig(config Config) (*RuntimeConfig, error) {
	rc := &RuntimeConfig{}

	c := config.Control
	if c.Step.Total == 0 {
		c.Step.Total = DefaultTotalSteps
	}
	if c.Light.CycleLength == 0 {
		c.Light.CycleLength = DefaultCycleLength
	}
	if c.Light.YellowAt == 0 && c.Light.RedAt == 0 {
		c.Light.YellowAt = DefaultYellowAt
		c.Light.RedAt = DefaultRedAt
	}
	if c.Step.Total < 0 {
		return nil, fmt.Errorf("%w: step.total %d < 0", ErrInvalidConfig, c.Step.Total)
	}
	if c.Step.Interval < 0 {
		return nil, fmt.Errorf("%w: step.interval %f < 0", ErrInvalidConfig, c.Step.Interval)
	}
	l := c.Light
	if !(0 <= l.YellowAt && l.YellowAt < l.RedAt && l.RedAt < l.CycleLength) {
		return nil, fmt.Errorf(
			"%w: light timing must satisfy 0 <= yellow_at(%d) < red_at(%d) < cycle_length(%d)",
			ErrInvalidConfig, l.YellowAt, l.RedAt, l.CycleLength,
		)
	}

	o := config.Output
	if o.Backpressure == "" {
		o.Backpressure = BackpressureDropOldest
	}
	if o.Backpressure != BackpressureBlock && o.Backpressure != BackpressureDropOldest {
		return nil, fmt.Errorf("%w: unknown backpressure policy %q", ErrInvalidConfig, o.Backpressure)
	}
	if o.QueueSize == 0 {
		o.QueueSize = DefaultQueueSize
	}
	if o.QueueSize < 0 {
		return nil, fmt.Errorf("%w: queue_size %d < 0", ErrInvalidConfig, o.QueueSize)
	}
	if o.WaitForViewer && o.Listen == "" {
		return nil, fmt.Errorf("%w: wait_for_viewer requires listen address", ErrInvalidConfig)
	}

	rc.All = config
	rc.All.Control = c
	rc.All.Output = o
	rc.C = c
	rc.O = o
	return rc, nil
}
