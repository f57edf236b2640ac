package task

import (
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/entity"
	"gonum.org/v1/gonum/stat"
)

// Summary 运行统计
// 功能：汇总仿真时长、步数、累计碰撞数与车辆统计
// 说明：平均速度取当前时刻全部车辆速度的算术平均，无车辆时为0
func (ctx *Context) Summary() entity.Summary {
	vehicles := ctx.vehicleManager.Vehicles()
	meanSpeed := 0.0
	if len(vehicles) > 0 {
		meanSpeed = stat.Mean(lo.Map(vehicles, func(v entity.IVehicle, _ int) float64 { return v.V() }), nil)
	}
	return entity.Summary{
		RunID:              ctx.runID,
		TotalTime:          ctx.clock.Elapsed(),
		TotalTicks:         ctx.ticks,
		TotalCollisions:    ctx.detector.Count(),
		CriticalCollisions: ctx.detector.CountBySeverity(entity.SeverityCritical),
		NumCAVs:            lo.CountBy(vehicles, func(v entity.IVehicle) bool { return v.Kind() == entity.CAV }),
		NumHDVs:            lo.CountBy(vehicles, func(v entity.IVehicle) bool { return v.Kind() == entity.HDV }),
		MeanSpeed:          meanSpeed,
	}
}
