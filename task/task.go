package task

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"git.fiblab.net/sim/syncer/v3"
	"github.com/google/uuid"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/clock"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/entity"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/entity/behavior"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/entity/collision"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/entity/priority"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/entity/vehicle"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/utils/config"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/utils/input"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/utils/randengine"
)

var (
	// ErrRunComplete 仿真已结束，不能继续推进
	ErrRunComplete = errors.New("simulation run already complete")
	// ErrNoDuration 未配置仿真时长，Run无法确定结束步
	ErrNoDuration = errors.New("control.step.duration must be positive to Run")
)

// Phase 仿真运行阶段
type Phase int32

const (
	PhaseIdle     Phase = iota // 已初始化，尚未推进
	PhaseRunning               // 运行中
	PhaseComplete              // 已结束
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseRunning:
		return "RUNNING"
	case PhaseComplete:
		return "COMPLETE"
	}
	return fmt.Sprintf("Phase(%d)", int32(p))
}

// Context 仿真任务上下文
// 功能：包含一次仿真任务的所有变量和状态
// 说明：管理时钟、车辆管理器、行为预测器、优先级管理器、碰撞检测器与障碍物
type Context struct {

	// 任务名
	job string
	// 本次运行的唯一标识
	runID string
	// 关闭指令
	closed atomic.Bool

	// 时钟
	clock *clock.Clock

	// 辅助程序，处理分布式模式下与syncer的交互，独立运行时为nil
	sidecar *syncer.Sidecar
	// sidecar close channel
	sidecarCloseCh chan struct{}
	// 是否由本任务启动了sidecar服务
	sidecarServing bool

	// 车辆管理器
	vehicleManager *vehicle.VehicleManager
	// HDV行为预测器
	predictor *behavior.Predictor
	// CAV优先级管理器
	priorityManager *priority.Manager
	// 碰撞检测器
	detector *collision.Detector
	// 障碍物，仿真过程中不变
	obstacles []entity.Obstacle

	// 运行时配置文件
	runtimeConfig *config.RuntimeConfig

	phase     Phase
	ticks     int32
	observers []func(entity.TickRecord)
	mtx       sync.Mutex // 保护observers
}

// NewContext 创建新的仿真任务上下文
// 功能：加载场景并初始化仿真系统的所有组件
// 参数：
//   - job: 任务名称
//   - c: 配置对象
//   - sidecar: 外部sidecar实例，可为nil
//   - startSidecarServe: 是否启动sidecar服务
//
// 返回：初始化完成的Context实例；配置或场景非法时返回error
// 算法说明：
// 1. 从配置指定的数据源加载场景
// 2. 调用NewContextFromScenario完成初始化
// 3. 注册RPC服务到sidecar并按需启动sidecar服务
func NewContext(
	job string,
	c config.Config,
	sidecar *syncer.Sidecar,
	startSidecarServe bool,
) (*Context, error) {
	scenario, err := input.Init(context.Background(), c)
	if err != nil {
		return nil, err
	}
	ctx, err := NewContextFromScenario(job, c, scenario)
	if err != nil {
		return nil, err
	}
	ctx.sidecar = sidecar
	if ctx.sidecar != nil {
		ctx.clock.Register(ctx.sidecar)
		// sidecar协程，用于提供gRPC服务
		if startSidecarServe {
			ctx.sidecarServing = true
			go func() {
				err := ctx.sidecar.Serve()
				if err != nil {
					log.Panicf("failed to serve: %v", err)
				}
				ctx.sidecarCloseCh <- struct{}{}
			}()
		}
	}
	return ctx, nil
}

// NewContextFromScenario 根据已加载的场景创建独立运行的仿真任务上下文
// 功能：创建时钟与各管理器，注册全部车辆，进入Idle阶段
// 返回：配置非法或车辆注册失败时返回error
// 说明：仿真时长可为0，此时只能通过Step或RunFor推进，Run返回ErrNoDuration
func NewContextFromScenario(job string, c config.Config, scenario *input.Scenario) (*Context, error) {
	runtimeConfig, err := config.NewRuntimeConfig(c)
	if err != nil {
		return nil, err
	}
	ctx := &Context{
		job:            job,
		runID:          uuid.NewString(),
		sidecarCloseCh: make(chan struct{}),
		runtimeConfig:  runtimeConfig,
		obstacles:      slices.Clone(scenario.Obstacles),
		observers:      make([]func(entity.TickRecord), 0),
	}
	ctx.clock = clock.New(runtimeConfig.C.Step)

	// 新建各类模拟对象
	ctx.vehicleManager = vehicle.NewManager(ctx)
	ctx.predictor = behavior.NewPredictor(ctx, randengine.New(runtimeConfig.C.Seed))
	ctx.priorityManager = priority.NewManager(ctx)
	ctx.detector = collision.NewDetector(ctx)

	if err := ctx.Init(scenario); err != nil {
		return nil, err
	}
	return ctx, nil
}

// Init 重置时钟并注册场景中的全部车辆
func (ctx *Context) Init(scenario *input.Scenario) error {
	ctx.clock.Init()
	log.Infof("Run: %s (%s)", ctx.job, ctx.runID)
	log.Infof("Lane: %v", scenario.Road.Lanes)
	log.Infof("Vehicle: %v", len(scenario.Vehicles))
	log.Infof("Obstacle: %v", len(scenario.Obstacles))
	if err := ctx.vehicleManager.Init(scenario.Road, scenario.Vehicles); err != nil {
		return err
	}
	ctx.phase = PhaseIdle
	ctx.ticks = 0
	return nil
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) VehicleManager() entity.IVehicleManager {
	return ctx.vehicleManager
}

func (ctx *Context) Predictor() entity.IBehaviorPredictor {
	return ctx.predictor
}

func (ctx *Context) PriorityManager() entity.IPriorityManager {
	return ctx.priorityManager
}

func (ctx *Context) Detector() entity.ICollisionDetector {
	return ctx.detector
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

// Obstacles 障碍物（副本）
func (ctx *Context) Obstacles() []entity.Obstacle {
	return slices.Clone(ctx.obstacles)
}

func (ctx *Context) Phase() Phase {
	return ctx.phase
}

func (ctx *Context) RunID() string {
	return ctx.runID
}

// OnTick 注册每步结束时的回调，回调按注册顺序在仿真协程中同步执行
func (ctx *Context) OnTick(f func(entity.TickRecord)) {
	ctx.mtx.Lock()
	defer ctx.mtx.Unlock()
	ctx.observers = append(ctx.observers, f)
}

func (ctx *Context) notify(record entity.TickRecord) {
	ctx.mtx.Lock()
	observers := slices.Clone(ctx.observers)
	ctx.mtx.Unlock()
	for _, f := range observers {
		f(record)
	}
}

// Close 关闭任务，停止推进并等待sidecar退出
func (ctx *Context) Close() {
	if ctx.closed.Load() {
		return
	}
	ctx.closed.Store(true)
	if ctx.sidecar != nil {
		ctx.sidecar.Close()
		if ctx.sidecarServing {
			// wait for graceful stop
			<-ctx.sidecarCloseCh
		}
	}
}
