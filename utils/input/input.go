package input

import (
	"context"
	"errors"
	"fmt"
	"os"

	"git.fiblab.net/general/common/v2/mongoutil"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/entity"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/utils/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/yaml.v2"
)

// ErrNoInput 既未指定场景文件也未指定MongoDB
var ErrNoInput = errors.New("input.file or input.uri must be specified")

// Scenario 场景输入数据
// 功能：存储仿真初始化所需的道路、车辆与障碍物
// 说明：Load返回的场景已通过校验，可以直接交给VehicleManager.Init
type Scenario struct {
	Road      entity.RoadConfig
	Vehicles  []entity.VehicleSpec
	Obstacles []entity.Obstacle
}

// Init 加载场景
// 功能：根据配置从场景文件或MongoDB加载场景数据
// 参数：ctx-上下文，c-配置对象
// 返回：校验后的场景；数据源缺失、读取失败或数据非法时返回error
// 算法说明：
// 1. 文件优先：input.file非空时从YAML文件加载，道路取自文件
// 2. 数据库加载：input.uri非空时从vehicles/obstacles集合加载，道路取自配置
// 3. 校验：ID唯一、车道合法、枚举值可解析，并填充障碍物默认尺寸
func Init(ctx context.Context, c config.Config) (*Scenario, error) {
	if c.Input.File != "" {
		return LoadFile(c.Input.File)
	}
	if c.Input.URI != "" {
		return LoadMongo(ctx, c.Input)
	}
	return nil, ErrNoInput
}

// LoadFile 从YAML场景文件加载场景
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scenario file %s: %w", path, err)
	}
	log.Infof("load scenario from %s", path)
	return s, nil
}

// Parse 解析YAML格式的场景数据，未知字段视为错误
func Parse(data []byte) (*Scenario, error) {
	var f scenarioFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, err
	}
	return build(f.Road, f.Vehicles, f.Obstacles)
}

// LoadMongo 从MongoDB加载场景
// 功能：连接MongoDB，按id升序下载车辆与障碍物文档
// 参数：ctx-上下文，in-输入配置，Vehicles必须指定，Obstacles可选
func LoadMongo(ctx context.Context, in config.Input) (*Scenario, error) {
	if in.Vehicles == nil {
		return nil, errors.New("input.vehicles must be specified when loading from MongoDB")
	}
	client := mongoutil.NewClient(in.URI)
	defer client.Disconnect(context.Background())

	vehicles, err := download[vehicleRecord](ctx, client, *in.Vehicles)
	if err != nil {
		return nil, err
	}
	var obstacles []obstacleRecord
	if in.Obstacles != nil {
		if obstacles, err = download[obstacleRecord](ctx, client, *in.Obstacles); err != nil {
			return nil, err
		}
	}
	return build(in.Road, vehicles, obstacles)
}

// download 下载集合中的全部文档
func download[T any](ctx context.Context, client *mongo.Client, path config.InputPath) ([]T, error) {
	log.Infof("start fetching from %v", path)
	coll := mongoutil.GetMongoColl(client, path)
	cur, err := coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query %v: %w", path, err)
	}
	res := make([]T, 0)
	if err := cur.All(ctx, &res); err != nil {
		return nil, fmt.Errorf("failed to decode %v: %w", path, err)
	}
	log.Infof("finish fetching %d documents from %v", len(res), path)
	return res, nil
}

// build 校验输入记录并转换为场景
func build(r config.Road, vehicles []vehicleRecord, obstacles []obstacleRecord) (*Scenario, error) {
	r = r.WithDefaults()
	road := entity.RoadConfig{Lanes: r.Lanes, LaneWidth: r.LaneWidth, Length: r.Length}
	if road.Lanes < 1 {
		return nil, fmt.Errorf("%w: road must have at least one lane, got %d", entity.ErrLaneOutOfRange, road.Lanes)
	}
	s := &Scenario{
		Road:      road,
		Vehicles:  make([]entity.VehicleSpec, 0, len(vehicles)),
		Obstacles: make([]entity.Obstacle, 0, len(obstacles)),
	}

	vehicleIDs := make(map[int32]struct{})
	for _, record := range vehicles {
		if _, ok := vehicleIDs[record.ID]; ok {
			return nil, fmt.Errorf("%w: vehicle %d", entity.ErrDuplicateID, record.ID)
		}
		vehicleIDs[record.ID] = struct{}{}
		if !road.HasLane(record.Lane) {
			return nil, fmt.Errorf("%w: vehicle %d lane %d not in [1, %d]", entity.ErrLaneOutOfRange, record.ID, record.Lane, road.Lanes)
		}
		spec, err := record.toSpec()
		if err != nil {
			return nil, err
		}
		s.Vehicles = append(s.Vehicles, spec)
	}

	obstacleIDs := make(map[int32]struct{})
	for _, record := range obstacles {
		if _, ok := obstacleIDs[record.ID]; ok {
			return nil, fmt.Errorf("%w: obstacle %d", entity.ErrDuplicateID, record.ID)
		}
		obstacleIDs[record.ID] = struct{}{}
		if !road.HasLane(record.Lane) {
			return nil, fmt.Errorf("%w: obstacle %d lane %d not in [1, %d]", entity.ErrLaneOutOfRange, record.ID, record.Lane, road.Lanes)
		}
		o, err := record.toObstacle(road)
		if err != nil {
			return nil, err
		}
		s.Obstacles = append(s.Obstacles, o)
	}
	if len(s.Vehicles) == 0 {
		log.Warn("no vehicles to simulate")
	}
	return s, nil
}
