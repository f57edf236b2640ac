package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/utils/config"
	"gopkg.in/yaml.v2"
)

const sample = `
input:
  file: scenario.yaml
control:
  step:
    duration: 10
  seed: 42
  enable_lane_change: true
`

func TestRuntimeConfigDefaults(t *testing.T) {
	var c config.Config
	require.NoError(t, yaml.UnmarshalStrict([]byte(sample), &c))
	rc, err := config.NewRuntimeConfig(c)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultInterval, rc.C.Step.Interval)
	assert.Equal(t, config.DefaultSafetyMargin, rc.SafetyMargin)
	require.NotNil(t, rc.C.SafetyMargin)
	assert.Equal(t, config.DefaultSafetyMargin, *rc.C.SafetyMargin)
	assert.Equal(t, 10.0, rc.C.Step.Duration)
	assert.Equal(t, uint64(42), rc.C.Seed)
	assert.True(t, rc.C.EnableLaneChange)
	assert.Equal(t, config.DefaultLaneWidth, rc.All.Input.Road.LaneWidth)
	assert.Equal(t, config.DefaultRoadLength, rc.All.Input.Road.Length)
	assert.Equal(t, rc.C, rc.All.Control)
}

func TestExplicitZeroSafetyMargin(t *testing.T) {
	var c config.Config
	require.NoError(t, yaml.UnmarshalStrict([]byte("control:\n  step: {duration: 1}\n  safety_margin: 0\n"), &c))
	require.NotNil(t, c.Control.SafetyMargin)
	rc, err := config.NewRuntimeConfig(c)
	require.NoError(t, err)
	assert.Zero(t, rc.SafetyMargin)

	margin := 2.5
	rc, err = config.NewRuntimeConfig(config.Config{Control: config.Control{SafetyMargin: &margin}})
	require.NoError(t, err)
	assert.Equal(t, 2.5, rc.SafetyMargin)
}

func TestRuntimeConfigRejectsBadStep(t *testing.T) {
	// 仿真时长为0是合法的
	rc, err := config.NewRuntimeConfig(config.Config{})
	require.NoError(t, err)
	assert.Zero(t, rc.C.Step.Duration)

	_, err = config.NewRuntimeConfig(config.Config{Control: config.Control{
		Step: config.ControlStep{Duration: -1},
	}})
	assert.Error(t, err)

	_, err = config.NewRuntimeConfig(config.Config{Control: config.Control{
		Step: config.ControlStep{Interval: -1, Duration: 1},
	}})
	assert.Error(t, err)

	margin := -1.0
	_, err = config.NewRuntimeConfig(config.Config{Control: config.Control{
		Step:         config.ControlStep{Duration: 1},
		SafetyMargin: &margin,
	}})
	assert.Error(t, err)
}

func TestUnknownFieldRejected(t *testing.T) {
	var c config.Config
	err := yaml.UnmarshalStrict([]byte("control:\n  bogus: 1\n"), &c)
	assert.Error(t, err)
}

func TestInputPath(t *testing.T) {
	p := config.InputPath{DB: "sim", Col: "vehicles"}
	assert.Equal(t, "sim", p.GetDb())
	assert.Equal(t, "vehicles", p.GetColl())
	assert.Equal(t, "sim.vehicles", p.String())
}
