// 随机数引擎，包装了golang.org/x/exp/rand，作为显式依赖注入模拟器以便复现
package randengine

import (
	"flag"

	"golang.org/x/exp/rand"
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset") // 种子偏移量，用于调整随机数生成
)

// Engine 随机数引擎
// 功能：提供可复现的随机数生成，同一种子得到同一序列
type Engine struct {
	*rand.Rand // 底层随机数生成器
}

// New 创建随机数引擎
// 参数：seed-随机数种子
// 说明：种子偏移量允许在不修改配置的情况下调整随机数序列
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed + *seedOffset))}
}

// Choice 在[0, n)中等概率选择一个下标（非线程安全）
func (e *Engine) Choice(n int) int {
	if n <= 0 {
		return -1
	}
	return e.Intn(n)
}
