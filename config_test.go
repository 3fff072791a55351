package xr872

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigWithDefaultsFillsZeroFields(t *testing.T) {
	cfg := Config{DroneIP: "10.0.0.1"}.withDefaults()
	assert.Equal(t, uint16(7080), cfg.CtlPort)
	assert.Equal(t, uint16(7070), cfg.VideoPort)
	assert.Equal(t, uint32(140), cfg.ControlIntervalMs)
}

func TestConfigWithDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := Config{DroneIP: "10.0.0.1", CtlPort: 9000}.withDefaults()
	assert.Equal(t, uint16(9000), cfg.CtlPort)
}

func TestConfigValidateRejectsEmptyIP(t *testing.T) {
	err := Config{}.Validate()
	assert.ErrorIs(t, err, ErrConfig)
}

func TestConfigValidateRejectsSamePorts(t *testing.T) {
	cfg := DefaultConfig("10.0.0.1")
	cfg.VideoPort = cfg.CtlPort
	assert.ErrorIs(t, cfg.Validate(), ErrConfig)
}

func TestConfigValidateRejectsBatteryThresholdInversion(t *testing.T) {
	cfg := DefaultConfig("10.0.0.1")
	cfg.LowBatteryLandPct = 90
	cfg.LowBatteryWarnPct = 20
	assert.ErrorIs(t, cfg.Validate(), ErrConfig)
}

func TestConfigValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, DefaultConfig("10.0.0.1").Validate())
}
