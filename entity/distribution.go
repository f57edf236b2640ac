package entity

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ActionDistribution 车道行为概率分布，以LaneAction为下标
type ActionDistribution [len(LaneActions)]float64

var (
	// HDV默认基础分布
	DefaultHDVDistribution = ActionDistribution{0.7, 0.2, 0.1}
	// 归一化失败时的确定性分布
	KeepLaneOnly = ActionDistribution{1, 0, 0}
)

// Get 获取某一行为的概率
func (d ActionDistribution) Get(a LaneAction) float64 {
	return d[a]
}

// Sum 概率总和
func (d ActionDistribution) Sum() float64 {
	return floats.Sum(d[:])
}

// ArgMax 概率最大的行为及其概率，平局时按KeepLane、ChangeLeft、ChangeRight的顺序取先者
func (d ActionDistribution) ArgMax() (LaneAction, float64) {
	i := floats.MaxIdx(d[:])
	return LaneAction(i), d[i]
}

// Normalized 归一化后的副本，总和不为正时返回KeepLaneOnly
func (d ActionDistribution) Normalized() ActionDistribution {
	total := d.Sum()
	if !(total > 0) || math.IsInf(total, 0) {
		return KeepLaneOnly
	}
	floats.Scale(1/total, d[:])
	return d
}

// Valid 所有分量有限且非负
func (d ActionDistribution) Valid() bool {
	for _, p := range d {
		if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return false
		}
	}
	return true
}

func (d ActionDistribution) String() string {
	return fmt.Sprintf("{K:%.3f L:%.3f R:%.3f}", d[KeepLane], d[ChangeLeft], d[ChangeRight])
}
