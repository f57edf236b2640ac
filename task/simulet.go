package task

import (
	"flag"
	"sync"

	"github.com/tsinghua-fib-lab/agentsociety-lanechange/clock"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/entity"
)

const (
	SelfName = "lanechange" // 本程序在模拟任务集群中的名字
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数")
)

// observation 读阶段的结果
type observation struct {
	predictions map[int32]entity.BehaviorPrediction
	order       []int32
	events      []entity.CollisionEvent
}

// observe 读阶段，每步执行一次
// 功能：基于同一份车辆快照并发执行预测、优先级计算与碰撞检测
// 算法说明：
// 1. 预测器：预测全部HDV的行为
// 2. 优先级管理器：重新计算全部CAV的紧迫度与优先顺序
// 3. 碰撞检测器：检测全部车辆对与障碍物
//
// 说明：三者只读取车辆快照，各自的日志由各自的锁保护
func (ctx *Context) observe() observation {
	var o observation
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		o.predictions = ctx.predictor.PredictAll(ctx.obstacles) // hdv
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		o.order = ctx.priorityManager.RecomputeAll(ctx.obstacles) // cav
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		o.events = ctx.detector.CheckAll(ctx.obstacles) // collision
	}()
	wg.Wait()
	return o
}

// update 写阶段，每步执行一次
// 功能：把读阶段的结果写回车辆管理器并推进运动学
// 算法说明：
// 1. 记录HDV的预测行为为其意图行为
// 2. 开启协同变道时，按优先顺序批准CAV变道
// 3. 运动学积分并推进时钟
func (ctx *Context) update(o observation) []entity.LaneChange {
	for id, p := range o.predictions {
		if err := ctx.vehicleManager.SetIntendedAction(id, p.PredictedAction); err != nil {
			log.Panicf("update: %v", err)
		}
	}
	changes := make([]entity.LaneChange, 0)
	if ctx.runtimeConfig.C.EnableLaneChange {
		changes = ctx.negotiate()
	}
	ctx.vehicleManager.StepKinematics(ctx.clock.DT)
	return changes
}

// Step 推进一步
// 功能：执行一次完整的仿真步：读阶段、写阶段、输出记录
// 返回：仿真已结束时返回ErrRunComplete
func (ctx *Context) Step() error {
	if ctx.phase == PhaseComplete {
		return ErrRunComplete
	}
	ctx.phase = PhaseRunning

	o := ctx.observe()
	log.Debugf("step %d: observe complete", ctx.clock.InternalStep)
	changes := ctx.update(o)
	log.Debugf("step %d: update complete", ctx.clock.InternalStep)
	ctx.ticks++

	if *heartBeatInterval > 0 && ctx.clock.InternalStep%int32(*heartBeatInterval) == 0 {
		hour, minute, second := ctx.clock.GetHourMinuteSecond()
		log.Infof(
			"STEP: %d(%d:%d:%.2f) collisions: %d",
			ctx.clock.InternalStep,
			hour, minute, second,
			ctx.detector.Count(),
		)
	}

	ctx.notify(entity.TickRecord{
		Time:            ctx.clock.T,
		Step:            ctx.clock.InternalStep,
		HDVPredictions:  o.predictions,
		PriorityOrder:   o.order,
		CollisionEvents: o.events,
		LaneChanges:     changes,
	})
	return nil
}

// RunFor 运行指定的仿真时长
// 功能：执行ceil(duration/dt)步后结束仿真，期间发生碰撞也不提前退出
// 返回：仿真已结束时返回ErrRunComplete
func (ctx *Context) RunFor(duration float64) error {
	if ctx.phase == PhaseComplete {
		return ErrRunComplete
	}
	n := clock.Steps(duration, ctx.clock.DT)
	for range n {
		if err := ctx.Step(); err != nil {
			return err
		}
	}
	ctx.complete()
	return nil
}

func (ctx *Context) complete() {
	ctx.phase = PhaseComplete
	log.Infof("engine complete: %+v", ctx.Summary())
}

// Run 运行
// 功能：进程入口使用的主循环，推进到配置的结束步
// 说明：存在sidecar时每步与syncer同步，syncer要求关闭或收到关闭指令时提前结束；
// 配置的仿真时长不为正时返回ErrNoDuration
func (ctx *Context) Run() error {
	if ctx.phase == PhaseComplete {
		return ErrRunComplete
	}
	if ctx.runtimeConfig.C.Step.Duration <= 0 {
		return ErrNoDuration
	}
	if ctx.sidecar != nil {
		// init syncer
		ctx.sidecar.Step(false)
	}
	for !ctx.clock.Done() {
		if ctx.sidecar != nil {
			// 通知准备阶段完成
			ctx.sidecar.NotifyStepReady()
		}
		if err := ctx.Step(); err != nil {
			return err
		}
		close := false
		if ctx.sidecar != nil {
			close = ctx.sidecar.Step(ctx.clock.Done())
		}
		if close || ctx.closed.Load() {
			break
		}
	}
	ctx.complete()
	return nil
}
