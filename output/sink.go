package output

import "github.com/tsinghua-fib-lab/gridtraffic-sim/entity"

// Sink 快照输出端
// 功能：接收模拟器产生的只读帧，负责渲染、网络推送、落盘等
// 说明：帧在发布后不再修改，输出端不得修改帧内容，也不能回写模拟状态
type Sink interface {
	Name() string
	Init(f *entity.Frame) error    // 初始帧（包含地图）
	Publish(f *entity.Frame) error // 每步结束后的帧，严格按步序调用
	Close() error
}
