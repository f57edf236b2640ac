package entity

import "fmt"

// RoadConfig 道路配置，整个仿真过程中不变
type RoadConfig struct {
	Lanes     int32   // 车道数（>=1），车道编号1..Lanes，1为最左侧
	LaneWidth float64 // 车道宽度（米）
	Length    float64 // 道路长度（米）
}

// HasLane 车道编号是否合法
func (r RoadConfig) HasLane(lane int32) bool {
	return lane >= 1 && lane <= r.Lanes
}

// VehicleSpec 车辆注册参数
// 说明：Length/Width为0时使用默认值；Probabilities仅对HDV生效，全0时使用默认分布
type VehicleSpec struct {
	ID             int32
	Kind           VehicleKind
	Position       float64
	Lane           int32
	V              float64
	A              float64
	Length         float64
	Width          float64
	IntendedAction LaneAction
	Probabilities  ActionDistribution
}

// Obstacle 障碍物，仿真过程中不可变
type Obstacle struct {
	ID       int32
	Position float64
	Lane     int32
	Length   float64
	Width    float64
	Category ObstacleCategory
	Passable bool // 是否可通行，仅随场景保存，不改变预测、评分与碰撞检测
}

func (o Obstacle) String() string {
	return fmt.Sprintf("Obstacle{ID:%d, %v, Lane:%d, S:%.2f}", o.ID, o.Category, o.Lane, o.Position)
}

// VehicleState 车辆在某一时刻的状态快照，创建后不再修改
type VehicleState struct {
	Timestamp      float64
	VehicleID      int32
	Kind           VehicleKind
	Position       float64
	Lane           int32
	V              float64
	A              float64
	IntendedAction LaneAction
}

// BehaviorPrediction HDV行为预测结果
type BehaviorPrediction struct {
	VehicleID       int32
	PredictedAction LaneAction         // 概率最大的行为
	Confidence      float64            // PredictedAction的概率
	Probabilities   ActionDistribution // 完整分布
	Timestamp       float64
}

// CAVPriority CAV变道优先级，每步重新计算
type CAVPriority struct {
	VehicleID          int32
	Level              UrgencyLevel
	Score              float64
	Reason             string
	DistanceToObstacle float64 // 同车道前方最近障碍物距离，无则为INF
	TimeToObstacle     float64 // DistanceToObstacle/速度，停止或无障碍物时为INF
	RequiresLaneChange bool
	TargetLane         int32 // 建议目标车道，0表示无
}

// CollisionEvent 碰撞（风险）事件
// 说明：车辆对事件使用Vehicle1ID/Vehicle2ID，障碍物事件使用Vehicle1ID/ObstacleID
type CollisionEvent struct {
	Timestamp  float64
	Kind       CollisionKind
	Vehicle1ID int32
	Vehicle2ID int32
	ObstacleID int32
	Distance   float64 // 侧向事件为车道编号差
	Severity   Severity
}

func (e CollisionEvent) String() string {
	switch e.Kind {
	case ObstacleHit:
		return fmt.Sprintf("[%v] %v: vehicle %d obstacle %d (%.2fm)", e.Severity, e.Kind, e.Vehicle1ID, e.ObstacleID, e.Distance)
	default:
		return fmt.Sprintf("[%v] %v: vehicle %d and %d (%.2f)", e.Severity, e.Kind, e.Vehicle1ID, e.Vehicle2ID, e.Distance)
	}
}

// LaneChange 一次被批准的协同变道
type LaneChange struct {
	VehicleID int32
	FromLane  int32
	ToLane    int32
	Timestamp float64
}

// TickRecord 每步输出记录，提供给外部报告/可视化
type TickRecord struct {
	Time            float64 // 本步积分后的仿真时间
	Step            int32
	HDVPredictions  map[int32]BehaviorPrediction
	PriorityOrder   []int32
	CollisionEvents []CollisionEvent
	LaneChanges     []LaneChange
}

// Summary 一次仿真运行的统计
type Summary struct {
	RunID              string
	TotalTime          float64
	TotalTicks         int32
	TotalCollisions    int
	CriticalCollisions int
	NumCAVs            int
	NumHDVs            int
	MeanSpeed          float64 // 最终时刻所有车辆的平均速度
}
