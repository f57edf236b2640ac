package entity

// Manager依赖倒置

// entity/vehicle/history.go的依赖倒置
type IStateHistory interface {
	Of(id int32) []VehicleState           // 获取车辆的全部历史状态（时间升序）
	Latest(id int32) (VehicleState, bool) // 获取车辆最近一次状态
	Len(id int32) int                     // 获取车辆历史状态数
	Snapshot() map[int32][]VehicleState   // 获取全部车辆历史的副本
}

// entity/vehicle/manager.go的依赖倒置
type IVehicleManager interface {
	// 初始化道路与车辆，出现错误时不注册任何车辆
	Init(road RoadConfig, specs []VehicleSpec) error
	// 注册新车辆并记录初始快照
	Add(spec VehicleSpec) error

	Road() RoadConfig // 获取道路配置

	// 输入车辆ID，查找车辆，如果不存在则panic
	Get(id int32) IVehicle
	// 输入车辆ID，查找车辆，如果不存在则返回error
	GetOrError(id int32) (IVehicle, error)
	// 按ID批量查找，ids为空时返回全部
	Find(ids []int32) (vehicles []IVehicle, failedIDs []int32)

	Vehicles() []IVehicle                       // 全部车辆（ID升序）
	VehiclesInLane(lane int32) []IVehicle       // 某车道上的车辆（ID升序）
	VehiclesByType(kind VehicleKind) []IVehicle // 某类型的车辆（ID升序）

	// 严格位于前方的最近车辆与距离，不存在时返回nil与INF
	VehicleAhead(id int32, sameLaneOnly bool) (IVehicle, float64, error)
	// 严格位于后方的最近车辆与距离，不存在时返回nil与INF
	VehicleBehind(id int32, sameLaneOnly bool) (IVehicle, float64, error)

	// 写阶段

	SetIntendedAction(id int32, action LaneAction) error // 设置意图行为（StepKinematics后生效）
	ChangeLane(id int32, target int32) error             // 变道到相邻车道（StepKinematics后生效）
	StepKinematics(dt float64)                           // 运动学积分并推进时钟

	History() IStateHistory // 获取状态历史
}

// entity/behavior/predictor.go的依赖倒置
type IBehaviorPredictor interface {
	// 计算HDV调整后的行为分布
	EstimateDistribution(v IVehicle, obstacles []Obstacle) ActionDistribution
	// 预测HDV最可能的行为，并记入预测历史
	PredictAction(id int32, obstacles []Obstacle) (BehaviorPrediction, error)
	// 按调整后的分布对HDV行为采样n次
	SampleActions(id int32, obstacles []Obstacle, n int) ([]LaneAction, error)
	// 预测全部HDV
	PredictAll(obstacles []Obstacle) map[int32]BehaviorPrediction
	// 获取预测历史
	History(id int32) []BehaviorPrediction
}

// entity/priority/manager.go的依赖倒置
type IPriorityManager interface {
	Score(v IVehicle, obstacles []Obstacle) (float64, string) // 计算紧迫度分数与原因
	RecomputeAll(obstacles []Obstacle) []int32                // 重新计算全部CAV优先级，返回优先顺序
	Order() []int32                                           // 最近一次计算的优先顺序
	Get(id int32) (CAVPriority, error)                        // 获取某CAV的优先级
	Priorities() []CAVPriority                                // 按优先顺序返回全部优先级
}

// entity/collision/detector.go的依赖倒置
type ICollisionDetector interface {
	SafetyMargin() float64 // 获取安全距离

	CheckRearEnd(v1, v2 IVehicle) (bool, float64)                          // 追尾检测
	CheckSide(v1, v2 IVehicle) (bool, float64)                             // 侧向检测
	CheckObstacle(v IVehicle, obstacles []Obstacle) (bool, int32, float64) // 障碍物检测
	CheckAll(obstacles []Obstacle) []CollisionEvent                        // 全量检测并记入日志
	IsLaneChangeSafe(id int32, targetLane int32) (bool, error)             // 变道安全性判断

	History() []CollisionEvent      // 全部碰撞事件
	Count() int                     // 碰撞事件总数
	CountBySeverity(s Severity) int // 某严重程度的碰撞事件数
}
