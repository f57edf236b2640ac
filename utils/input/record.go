package input

import (
	"fmt"

	"github.com/tsinghua-fib-lab/agentsociety-lanechange/entity"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/utils/config"
)

// scenarioFile 场景YAML文件的根结构
type scenarioFile struct {
	Road      config.Road      `yaml:"road"`
	Vehicles  []vehicleRecord  `yaml:"vehicles"`
	Obstacles []obstacleRecord `yaml:"obstacles,omitempty"`
}

// vehicleRecord 车辆输入记录，YAML文件与MongoDB文档共用
type vehicleRecord struct {
	ID             int32     `yaml:"id" bson:"id"`
	Kind           string    `yaml:"kind" bson:"kind"` // cav或hdv
	Position       float64   `yaml:"position" bson:"position"`
	Lane           int32     `yaml:"lane" bson:"lane"`
	Velocity       float64   `yaml:"velocity,omitempty" bson:"velocity,omitempty"`
	Acceleration   float64   `yaml:"acceleration,omitempty" bson:"acceleration,omitempty"`
	Length         float64   `yaml:"length,omitempty" bson:"length,omitempty"`
	Width          float64   `yaml:"width,omitempty" bson:"width,omitempty"`
	IntendedAction string    `yaml:"intended_action,omitempty" bson:"intended_action,omitempty"`
	Probabilities  []float64 `yaml:"probabilities,omitempty" bson:"probabilities,omitempty"` // [keep, left, right]
}

// obstacleRecord 障碍物输入记录
type obstacleRecord struct {
	ID       int32   `yaml:"id" bson:"id"`
	Position float64 `yaml:"position" bson:"position"`
	Lane     int32   `yaml:"lane" bson:"lane"`
	Length   float64 `yaml:"length,omitempty" bson:"length,omitempty"`
	Width    float64 `yaml:"width,omitempty" bson:"width,omitempty"`
	Category string  `yaml:"category,omitempty" bson:"category,omitempty"`
	Passable bool    `yaml:"passable,omitempty" bson:"passable,omitempty"`
}

func (r vehicleRecord) toSpec() (entity.VehicleSpec, error) {
	kind, err := entity.ParseVehicleKind(r.Kind)
	if err != nil {
		return entity.VehicleSpec{}, fmt.Errorf("vehicle %d: %w", r.ID, err)
	}
	action, err := entity.ParseLaneAction(r.IntendedAction)
	if err != nil {
		return entity.VehicleSpec{}, fmt.Errorf("vehicle %d: %w", r.ID, err)
	}
	spec := entity.VehicleSpec{
		ID:             r.ID,
		Kind:           kind,
		Position:       r.Position,
		Lane:           r.Lane,
		V:              r.Velocity,
		A:              r.Acceleration,
		Length:         r.Length,
		Width:          r.Width,
		IntendedAction: action,
	}
	switch len(r.Probabilities) {
	case 0:
	case len(entity.LaneActions):
		copy(spec.Probabilities[:], r.Probabilities)
	default:
		return entity.VehicleSpec{}, fmt.Errorf("%w: vehicle %d has %d probabilities, want %d",
			entity.ErrInvalidVehicle, r.ID, len(r.Probabilities), len(entity.LaneActions))
	}
	return spec, nil
}

func (r obstacleRecord) toObstacle(road entity.RoadConfig) (entity.Obstacle, error) {
	category, err := entity.ParseObstacleCategory(r.Category)
	if err != nil {
		return entity.Obstacle{}, fmt.Errorf("obstacle %d: %w", r.ID, err)
	}
	if r.Length < 0 || r.Width < 0 {
		return entity.Obstacle{}, fmt.Errorf("obstacle %d: negative size %vx%v", r.ID, r.Length, r.Width)
	}
	o := entity.Obstacle{
		ID:       r.ID,
		Position: r.Position,
		Lane:     r.Lane,
		Length:   r.Length,
		Width:    r.Width,
		Category: category,
		Passable: r.Passable,
	}
	if o.Length == 0 {
		o.Length = entity.DefaultObstacleLength
	}
	if o.Width == 0 {
		o.Width = road.LaneWidth
	}
	return o, nil
}
