package entity

import (
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/clock"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/utils/config"
)

type ITaskContext interface {
	Clock() *clock.Clock
	VehicleManager() IVehicleManager
	RuntimeConfig() *config.RuntimeConfig
}
