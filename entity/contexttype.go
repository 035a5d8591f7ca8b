package entity

import (
	"github.com/tsinghua-fib-lab/gridtraffic-sim/clock"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity/grid"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/utils/config"
)

type ITaskContext interface {
	Clock() *clock.Clock
	GridMap() *grid.Map
	LightManager() ILightManager
	CarManager() ICarManager
	RuntimeConfig() *config.RuntimeConfig
}
