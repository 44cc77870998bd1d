package service

import (
	"github.com/spockenergy/sma2spock/internal/core/domain"
	"github.com/spockenergy/sma2spock/internal/core/port"

	"go.uber.org/zap"
)

type DefaultCommandPolicy struct {
	Logger *zap.Logger
}

// Resolve collapses every command that cannot be executed as a manual
// operation into auto. A manual operation needs a positive magnitude; zero
// or missing means the EMS has nothing to ask, so the inverter manages the
// battery itself.
func (p *DefaultCommandPolicy) Resolve(cmd domain.OperationCommand) domain.OperationCommand {
	switch cmd.Mode {
	case domain.OperationModeCharge, domain.OperationModeDischarge:
		if cmd.MagnitudeW == 0 {
			p.Logger.Debug("manual operation without magnitude, falling back to auto",
				zap.String("mode", cmd.Mode.String()))
			return domain.AutoCommand()
		}
		return cmd
	case domain.OperationModeAuto:
		return domain.AutoCommand()
	default:
		p.Logger.Debug("unknown operation mode, falling back to auto")
		return domain.AutoCommand()
	}
}

// ensure interface compliance
var _ port.CommandPolicy = (*DefaultCommandPolicy)(nil)
