// 随机数引擎，包装了golang.org/x/exp/rand，为行为采样提供可复现的随机源
package randengine

import (
	"flag"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset") // 种子偏移量，用于调整随机数生成

	log = logrus.WithField("module", "randengine")
)

// Engine 随机数引擎
// 功能：以给定种子生成可复现的随机序列
// 说明：相同种子（含偏移量）下采样结果完全一致，便于测试
type Engine struct {
	*rand.Rand            // 底层随机数生成器
	mtx        sync.Mutex // 互斥锁，用于线程安全操作
}

// New 创建随机数引擎
// 参数：seed-随机数种子
// 返回：随机数引擎指针
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed + *seedOffset))}
}

// DiscreteDistribution 按给定权重生成随机下标（非线程安全）
// 功能：根据权重数组生成离散分布的随机数
// 参数：weight-非负权重数组，总和须大于0
// 返回：随机生成的下标（0到len(weight)-1）
// 算法说明：
// 1. 在[0, 总权重)范围内生成随机数
// 2. 累积权重直到超过随机数，返回该下标
// 说明：权重为0的下标永远不会被选中
func (e *Engine) DiscreteDistribution(weight []float64) int {
	random := .0
	for _, w := range weight {
		random += w
	}
	if random <= 0 {
		log.Panicf("DiscreteDistribution: non-positive total weight %v", weight)
	}
	random *= e.Float64()
	sum := 0.
	for i, w := range weight {
		sum += w
		if sum > random {
			return i
		}
	}
	// 浮点误差导致未命中时返回最后一个正权重
	for i := len(weight) - 1; i >= 0; i-- {
		if weight[i] > 0 {
			return i
		}
	}
	log.Panicf("DiscreteDistribution: sum: %f random: %f", sum, random)
	return -1
}

// Choices 按权重有放回地采样n次（线程安全）
// 参数：weight-非负权重数组，n-采样次数
// 返回：长度为n的下标数组
func (e *Engine) Choices(weight []float64, n int) []int {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	out := make([]int, n)
	for i := range out {
		out[i] = e.DiscreteDistribution(weight)
	}
	return out
}
