package entity

import (
	"fmt"
	"strings"

	"github.com/tsinghua-fib-lab/agentsociety-lanechange/utils/container"
)

// 方位常量，与LaneAction的左右对应，车道编号自左向右递增
const (
	LEFT  = -1 // 左侧车道偏移
	RIGHT = 1  // 右侧车道偏移
)

// 默认车辆与障碍物尺寸（米）
const (
	DefaultVehicleLength  = 4.5
	DefaultVehicleWidth   = 2.0
	DefaultObstacleLength = 10.0
)

// VehicleKind 车辆类型
type VehicleKind int32

const (
	VehicleKindUnspecified VehicleKind = iota // 未指定
	CAV                                       // 网联自动驾驶车辆
	HDV                                       // 人工驾驶车辆
)

func (k VehicleKind) String() string {
	switch k {
	case CAV:
		return "CAV"
	case HDV:
		return "HDV"
	case VehicleKindUnspecified:
		return "UNSPECIFIED"
	}
	return fmt.Sprintf("VehicleKind(%d)", int32(k))
}

// ParseVehicleKind 解析车辆类型，接受cav/hdv（大小写不敏感）
func ParseVehicleKind(s string) (VehicleKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cav":
		return CAV, nil
	case "hdv":
		return HDV, nil
	}
	return VehicleKindUnspecified, fmt.Errorf("%w: unknown vehicle kind %q", ErrInvalidVehicle, s)
}

// LaneAction 车道行为，同时作为ActionDistribution的下标
type LaneAction int32

const (
	KeepLane    LaneAction = iota // 保持车道
	ChangeLeft                    // 向左变道
	ChangeRight                   // 向右变道
)

// LaneActions 所有车道行为，按arg-max平局时的优先顺序排列
var LaneActions = [...]LaneAction{KeepLane, ChangeLeft, ChangeRight}

func (a LaneAction) String() string {
	switch a {
	case KeepLane:
		return "KEEP_LANE"
	case ChangeLeft:
		return "CHANGE_LEFT"
	case ChangeRight:
		return "CHANGE_RIGHT"
	}
	return fmt.Sprintf("LaneAction(%d)", int32(a))
}

// ParseLaneAction 解析车道行为，空字符串视为保持车道
func ParseLaneAction(s string) (LaneAction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "keep", "keep_lane":
		return KeepLane, nil
	case "left", "change_left":
		return ChangeLeft, nil
	case "right", "change_right":
		return ChangeRight, nil
	}
	return KeepLane, fmt.Errorf("%w: unknown lane action %q", ErrInvalidVehicle, s)
}

// Offset 行为对应的车道编号变化量
func (a LaneAction) Offset() int32 {
	switch a {
	case ChangeLeft:
		return LEFT
	case ChangeRight:
		return RIGHT
	case KeepLane:
		return 0
	}
	return 0
}

// ObstacleCategory 障碍物类别
type ObstacleCategory int32

const (
	Blockage ObstacleCategory = iota // 一般阻塞
	LaneDrop                         // 车道减少
	Barrier                          // 隔离设施
)

func (c ObstacleCategory) String() string {
	switch c {
	case Blockage:
		return "blockage"
	case LaneDrop:
		return "lane_drop"
	case Barrier:
		return "barrier"
	}
	return fmt.Sprintf("ObstacleCategory(%d)", int32(c))
}

// ParseObstacleCategory 解析障碍物类别，空字符串视为blockage
func ParseObstacleCategory(s string) (ObstacleCategory, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "blockage":
		return Blockage, nil
	case "lane_drop", "lanedrop":
		return LaneDrop, nil
	case "barrier":
		return Barrier, nil
	}
	return Blockage, fmt.Errorf("unknown obstacle category %q", s)
}

// CollisionKind 碰撞类型
type CollisionKind int32

const (
	RearEnd     CollisionKind = iota // 追尾
	Side                             // 侧向
	ObstacleHit                      // 撞击障碍物
)

func (k CollisionKind) String() string {
	switch k {
	case RearEnd:
		return "REAR_END"
	case Side:
		return "SIDE"
	case ObstacleHit:
		return "OBSTACLE"
	}
	return fmt.Sprintf("CollisionKind(%d)", int32(k))
}

// Severity 碰撞事件严重程度
type Severity int32

const (
	SeverityWarning  Severity = iota // 警告
	SeverityCritical                 // 严重
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "WARNING"
	case SeverityCritical:
		return "CRITICAL"
	}
	return fmt.Sprintf("Severity(%d)", int32(s))
}

// UrgencyLevel CAV变道紧迫程度，数值越大越紧迫
type UrgencyLevel int32

const (
	UrgencyNone UrgencyLevel = iota
	UrgencyLow
	UrgencyMedium
	UrgencyHigh
	UrgencyCritical
)

func (l UrgencyLevel) String() string {
	switch l {
	case UrgencyNone:
		return "NONE"
	case UrgencyLow:
		return "LOW"
	case UrgencyMedium:
		return "MEDIUM"
	case UrgencyHigh:
		return "HIGH"
	case UrgencyCritical:
		return "CRITICAL"
	}
	return fmt.Sprintf("UrgencyLevel(%d)", int32(l))
}

// entity/vehicle/vehicle.go的依赖倒置
// 只读视图，所有getter返回本步开始时的snapshot
type IVehicle interface {
	ID() int32                         // 获取车辆ID
	Kind() VehicleKind                 // 获取车辆类型
	Position() float64                 // 获取沿道路方向的位置（米）
	Lane() int32                       // 获取所在车道（1..Lanes）
	V() float64                        // 获取速度（米/秒）
	A() float64                        // 获取加速度（米/秒²）
	Length() float64                   // 获取车长
	Width() float64                    // 获取车宽
	IntendedAction() LaneAction        // 获取意图行为
	Probabilities() ActionDistribution // 获取基础行为分布（仅HDV有意义）

	String() string
}

// 车辆链表节点类型
type VehicleNode = container.ListNode[IVehicle, struct{}]

// 车辆链表类型
type VehicleList = container.List[IVehicle, struct{}]
