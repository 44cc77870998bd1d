package port

import "github.com/spockenergy/sma2spock/internal/core/domain"

// CommandPolicy normalizes whatever the EMS sent into an operation the
// battery inverter can actually be asked to perform.
type CommandPolicy interface {
	Resolve(cmd domain.OperationCommand) domain.OperationCommand
}
