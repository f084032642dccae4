// Package operator is the abstract control-channel collaborator of
// spec.md §6.6: start_league | run_round | run_all_rounds | status |
// shutdown. The CLI itself is out of scope (§1's Non-goals); this
// package only defines the interface and an in-process implementation
// usable by tests, demos, and an eventual CLI/dashboard front door.
package operator

import "context"

// Command names accepted on the control channel.
const (
	CommandStartLeague  = "start_league"
	CommandRunRound     = "run_round"
	CommandRunAllRounds = "run_all_rounds"
	CommandStatus       = "status"
	CommandShutdown     = "shutdown"
)

// Channel is the abstract operator-facing control surface a League
// Manager exposes. Implementations translate an external trigger (CLI
// flag, dashboard button, test call) into one of these methods.
type Channel interface {
	StartLeague(ctx context.Context) error
	RunRound(ctx context.Context) error
	RunAllRounds(ctx context.Context) error
	Status(ctx context.Context) (any, error)
	Shutdown(ctx context.Context) error
}

// InProcess adapts a concrete League Manager (anything satisfying
// Channel) into a reusable Channel value, so callers depend on this
// package's interface rather than the concrete agent type.
type InProcess struct {
	Manager Channel
}

func NewInProcess(manager Channel) *InProcess {
	return &InProcess{Manager: manager}
}

func (p *InProcess) StartLeague(ctx context.Context) error     { return p.Manager.StartLeague(ctx) }
func (p *InProcess) RunRound(ctx context.Context) error        { return p.Manager.RunRound(ctx) }
func (p *InProcess) RunAllRounds(ctx context.Context) error    { return p.Manager.RunAllRounds(ctx) }
func (p *InProcess) Status(ctx context.Context) (any, error)   { return p.Manager.Status(ctx) }
func (p *InProcess) Shutdown(ctx context.Context) error        { return p.Manager.Shutdown(ctx) }
