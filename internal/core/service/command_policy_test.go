package service

import (
	"testing"

	"github.com/spockenergy/sma2spock/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func policy() *DefaultCommandPolicy {
	return &DefaultCommandPolicy{Logger: zap.NewNop()}
}

func TestResolveKeepsManualOperations(t *testing.T) {
	cmd := policy().Resolve(domain.OperationCommand{Mode: domain.OperationModeCharge, MagnitudeW: 1500})
	assert.Equal(t, domain.OperationModeCharge, cmd.Mode)
	assert.Equal(t, uint32(1500), cmd.MagnitudeW)

	cmd = policy().Resolve(domain.OperationCommand{Mode: domain.OperationModeDischarge, MagnitudeW: 800})
	assert.Equal(t, domain.OperationModeDischarge, cmd.Mode)
	assert.Equal(t, uint32(800), cmd.MagnitudeW)
}

func TestResolveManualWithoutMagnitudeBecomesAuto(t *testing.T) {
	cmd := policy().Resolve(domain.OperationCommand{Mode: domain.OperationModeCharge})
	assert.Equal(t, domain.AutoCommand(), cmd)

	cmd = policy().Resolve(domain.OperationCommand{Mode: domain.OperationModeDischarge})
	assert.Equal(t, domain.AutoCommand(), cmd)
}

func TestResolveUnknownBecomesAuto(t *testing.T) {
	cmd := policy().Resolve(domain.OperationCommand{Mode: domain.OperationModeUnknown, MagnitudeW: 900})
	assert.Equal(t, domain.AutoCommand(), cmd)
}

func TestResolveAutoDropsMagnitude(t *testing.T) {
	cmd := policy().Resolve(domain.OperationCommand{Mode: domain.OperationModeAuto, MagnitudeW: 500})
	assert.Equal(t, domain.AutoCommand(), cmd)
}
