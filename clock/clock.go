package clock

import (
	"fmt"
	"math"

	"git.fiblab.net/sim/protos/v2/go/city/clock/v1/clockv1connect"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/utils/config"
)

// stepTolerance 计算总步数时容忍的浮点误差，避免10/0.1之类的除法多出一步
const stepTolerance = 1e-9

// Clock 仿真时钟
// 功能：管理仿真系统的时间推进，时间只增不减
// 说明：维护当前仿真时间、步数等信息，提供时间格式化和RPC服务
type Clock struct {
	clockv1connect.UnimplementedClockServiceHandler

	DT         float64 // 每个模拟步时间间隔（秒）
	START_STEP int32   // 起始步
	END_STEP   int32   // 结束步，模拟区间[START, END)

	T            float64 // 当前时间（秒）
	InternalStep int32   // 当前步数
}

// New 根据配置创建新的时钟实例
// 功能：根据控制步配置初始化时钟
// 参数：stepConfig-控制步配置，Interval须已填充默认值
// 返回：初始化完成的时钟实例
// 算法说明：
// 1. 总步数 = ceil(Duration / Interval)
// 2. 结束步 = 起始步 + 总步数
func New(stepConfig config.ControlStep) *Clock {
	c := &Clock{
		DT:         stepConfig.Interval,
		START_STEP: stepConfig.Start,
		END_STEP:   stepConfig.Start + Steps(stepConfig.Duration, stepConfig.Interval),
	}
	c.Init()
	return c
}

// Steps 计算覆盖duration所需的步数ceil(duration/dt)
func Steps(duration, dt float64) int32 {
	if duration <= 0 || dt <= 0 {
		return 0
	}
	return int32(math.Ceil(duration/dt - stepTolerance))
}

// Init 重置时钟状态
func (c *Clock) Init() {
	c.InternalStep = c.START_STEP
	c.T = float64(c.InternalStep) * c.DT
}

// Advance 推进一步
// 功能：步数加一，时间增加dt
// 参数：dt-本步时间间隔（秒），必须为正
// 说明：dt与DT一致时按步数重新计算时间，减少浮点累积误差
func (c *Clock) Advance(dt float64) {
	if dt <= 0 {
		log.Panicf("clock: non-positive dt %v", dt)
	}
	c.InternalStep++
	if dt == c.DT {
		t := float64(c.InternalStep) * c.DT
		if t > c.T {
			c.T = t
			return
		}
	}
	c.T += dt
}

// Done 是否已到达结束步
func (c *Clock) Done() bool {
	return c.InternalStep >= c.END_STEP
}

// Elapsed 自起始步以来经过的仿真时间（秒）
func (c *Clock) Elapsed() float64 {
	return c.T - float64(c.START_STEP)*c.DT
}

// String 获取时钟的字符串表示
// 返回：格式化的时间字符串（HH:MM:SS.ss）
func (c *Clock) String() string {
	hour, minute, second := c.GetHourMinuteSecond()
	return fmt.Sprintf("%02d:%02d:%05.2f", hour, minute, second)
}

// GetHourMinuteSecond 获取当前时间的小时、分钟、秒
// 返回：小时、分钟、秒（秒为浮点数，支持亚秒级精度）
func (c *Clock) GetHourMinuteSecond() (int, int, float64) {
	hour := int(c.T) / 3600
	minute := int(c.T) % 3600 / 60
	second := c.T - float64(hour*3600+minute*60)
	return hour, minute, second
}
