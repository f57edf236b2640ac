package config

import "fmt"

const (
	DefaultInterval     = 0.1   // 默认时间步长（秒）
	DefaultSafetyMargin = 5.0   // 默认安全距离（米）
	DefaultLaneWidth    = 3.5   // 默认车道宽度（米）
	DefaultRoadLength   = 500.0 // 默认道路长度（米）
)

// RuntimeConfig 运行时配置
// 功能：存储仿真运行时的配置信息，所有默认值均已填充
type RuntimeConfig struct {
	All          Config  // 全部配置
	C            Control // 全局控制配置
	SafetyMargin float64 // 生效的安全距离（米）
}

// NewRuntimeConfig 根据配置初始化运行时配置
// 功能：填充默认值并校验控制参数
// 参数：config-原始配置对象
// 返回：初始化的运行时配置指针；参数非法时返回error
// 算法说明：
// 1. 时间间隔、道路尺寸为0时使用默认值，安全距离未设置时使用默认值
// 2. 校验时间间隔为正，仿真时长与安全距离非负
//
// 说明：仿真时长为0的配置只能通过RunFor推进
func NewRuntimeConfig(config Config) (*RuntimeConfig, error) {
	c := config.Control
	if c.Step.Interval == 0 {
		c.Step.Interval = DefaultInterval
	}
	margin := DefaultSafetyMargin
	if c.SafetyMargin != nil {
		margin = *c.SafetyMargin
	}
	if c.Step.Interval < 0 {
		return nil, fmt.Errorf("control.step.interval must be positive, got %v", c.Step.Interval)
	}
	if c.Step.Duration < 0 {
		return nil, fmt.Errorf("control.step.duration must not be negative, got %v", c.Step.Duration)
	}
	if margin < 0 {
		return nil, fmt.Errorf("control.safety_margin must not be negative, got %v", margin)
	}
	c.SafetyMargin = &margin
	config.Control = c
	config.Input.Road = config.Input.Road.WithDefaults()

	return &RuntimeConfig{
		All:          config,
		C:            c,
		SafetyMargin: margin,
	}, nil
}

// WithDefaults 返回填充了默认车道宽度与道路长度的副本
func (r Road) WithDefaults() Road {
	if r.LaneWidth == 0 {
		r.LaneWidth = DefaultLaneWidth
	}
	if r.Length == 0 {
		r.Length = DefaultRoadLength
	}
	return r
}
