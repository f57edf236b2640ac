package config

// InputPath 指定MongoDB中一个输入集合的位置
// 功能：定义场景数据在MongoDB中的数据库与集合
// 说明：实现GetDb/GetColl以便直接交给mongoutil.GetMongoColl使用
type InputPath struct {
	DB  string `yaml:"db"`  // 数据库名
	Col string `yaml:"col"` // 集合名
}

// GetDb 获取数据库名
func (p InputPath) GetDb() string {
	return p.DB
}

// GetColl 获取集合名
func (p InputPath) GetColl() string {
	return p.Col
}

// String 返回{db}.{col}形式的集合标识
func (p InputPath) String() string {
	return p.DB + "." + p.Col
}

// Road 道路配置项
// 功能：描述仿真道路的车道数、车道宽度与道路长度
// 说明：零值字段由NewRuntimeConfig填充默认值
type Road struct {
	Lanes     int32   `yaml:"lanes"`                // 车道数（>=1）
	LaneWidth float64 `yaml:"lane_width,omitempty"` // 车道宽度（米）
	Length    float64 `yaml:"length,omitempty"`     // 道路长度（米）
}

// Input 指定场景输入数据的配置项
// 功能：定义车辆与障碍物的数据来源
// 说明：File优先；否则当URI非空时从MongoDB的Vehicles/Obstacles集合加载，Road取自本配置
type Input struct {
	File      string     `yaml:"file,omitempty"`      // 场景YAML文件路径（优先级高于MongoDB）
	URI       string     `yaml:"uri,omitempty"`       // MongoDB连接字符串
	Road      Road       `yaml:"road,omitempty"`      // 道路（MongoDB模式使用）
	Vehicles  *InputPath `yaml:"vehicles,omitempty"`  // 车辆集合
	Obstacles *InputPath `yaml:"obstacles,omitempty"` // 障碍物集合
}

// ControlStep 指定模拟时间范围和间隔的配置项
// 功能：定义仿真时间控制参数
// 说明：总步数为ceil(Duration/Interval)
type ControlStep struct {
	Start    int32   `yaml:"start,omitempty"`    // 开始步数
	Interval float64 `yaml:"interval,omitempty"` // 每步的时间间隔（秒），默认0.1
	Duration float64 `yaml:"duration"`           // 仿真时长（秒），Run要求为正，只用RunFor时可为0
}

// Control 模拟器控制配置
// 功能：定义仿真系统的核心控制参数
// 说明：包含时间控制、安全距离、随机种子与协同变道开关
type Control struct {
	Step             ControlStep `yaml:"step"`
	SafetyMargin     *float64    `yaml:"safety_margin,omitempty"`      // 碰撞/变道安全距离（米），未设置时为5，可显式设为0
	Seed             uint64      `yaml:"seed,omitempty"`               // HDV行为采样的随机种子
	EnableLaneChange bool        `yaml:"enable_lane_change,omitempty"` // 是否按优先级执行CAV协同变道
}

// Config YAML配置文件的根结构
// 功能：定义整个仿真系统的配置结构
type Config struct {
	Input   Input   `yaml:"input"`   // 输入
	Control Control `yaml:"control"` // 模拟过程控制
}
