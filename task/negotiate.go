package task

import (
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/entity"
)

// 同一步内被批准的变道在目标车道上的纵向间隔不小于安全距离的该倍数
const reserveFactor = 3.0

type reservation struct {
	lane     int32
	position float64
}

// negotiate 协同变道
// 功能：按CAV优先顺序依次批准变道请求
// 返回：本步批准的变道
// 算法说明：
// 1. 全部CAV的意图行为先重置为保持车道
// 2. 按优先顺序遍历需要变道且有目标车道的CAV
// 3. 目标车道不安全时拒绝
// 4. 本步已批准的变道在同一目标车道上距离小于3倍安全距离时拒绝
// 5. 批准后设置车辆的目标车道，StepKinematics时生效
func (ctx *Context) negotiate() []entity.LaneChange {
	vm := ctx.vehicleManager
	margin := ctx.detector.SafetyMargin()
	for _, v := range vm.VehiclesByType(entity.CAV) {
		if err := vm.SetIntendedAction(v.ID(), entity.KeepLane); err != nil {
			log.Panicf("negotiate: %v", err)
		}
	}

	granted := make([]entity.LaneChange, 0)
	reserved := make([]reservation, 0)
	for _, p := range ctx.priorityManager.Priorities() {
		if !p.RequiresLaneChange || p.TargetLane == 0 {
			continue
		}
		safe, err := ctx.detector.IsLaneChangeSafe(p.VehicleID, p.TargetLane)
		if err != nil {
			log.Panicf("negotiate: %v", err)
		}
		if !safe {
			log.Debugf("negotiate: vehicle %d to lane %d is unsafe", p.VehicleID, p.TargetLane)
			continue
		}
		v := vm.Get(p.VehicleID)
		if lo.ContainsBy(reserved, func(r reservation) bool {
			return r.lane == p.TargetLane && math.Abs(r.position-v.Position()) < reserveFactor*margin
		}) {
			log.Debugf("negotiate: vehicle %d to lane %d conflicts with an earlier change", p.VehicleID, p.TargetLane)
			continue
		}
		if err := vm.ChangeLane(v.ID(), p.TargetLane); err != nil {
			log.Panicf("negotiate: %v", err)
		}
		reserved = append(reserved, reservation{lane: p.TargetLane, position: v.Position()})
		granted = append(granted, entity.LaneChange{
			VehicleID: v.ID(),
			FromLane:  v.Lane(),
			ToLane:    p.TargetLane,
			Timestamp: ctx.clock.T,
		})
		log.Debugf("negotiate: vehicle %d lane %d -> %d (%s)", v.ID(), v.Lane(), p.TargetLane, p.Reason)
	}
	return granted
}
