package connector

import (
	"errors"
	"fmt"
	"strings"

	"github.com/datawald/hub/internal/domain/sync"
)

var (
	// ErrAgentNotRegistered is returned when no connector is wired for a
	// (area, system) pair
	ErrAgentNotRegistered = errors.New("connector: agent not registered")
	// ErrDuplicateAgent rejects registering the same (area, system) twice
	ErrDuplicateAgent = errors.New("connector: agent already registered")
)

// Registry is the closed lookup table from (area, system name) to a
// concrete agent. It is populated once during wiring and read-only after.
type Registry struct {
	backoffice map[string]BackOfficeAgent
	frontend   map[string]FrontEndAgent
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		backoffice: make(map[string]BackOfficeAgent),
		frontend:   make(map[string]FrontEndAgent),
	}
}

// RegisterBackOffice wires a backoffice agent under its system name.
func (r *Registry) RegisterBackOffice(agent BackOfficeAgent) error {
	key := normalize(agent.System())
	if _, exists := r.backoffice[key]; exists {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateAgent, sync.AreaBackOffice, key)
	}
	r.backoffice[key] = agent
	return nil
}

// RegisterFrontEnd wires a frontend agent under its system name.
func (r *Registry) RegisterFrontEnd(agent FrontEndAgent) error {
	key := normalize(agent.System())
	if _, exists := r.frontend[key]; exists {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateAgent, sync.AreaFrontEnd, key)
	}
	r.frontend[key] = agent
	return nil
}

// BackOffice resolves a backoffice agent by system name.
func (r *Registry) BackOffice(system string) (BackOfficeAgent, error) {
	agent, ok := r.backoffice[normalize(system)]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrAgentNotRegistered, sync.AreaBackOffice, system)
	}
	return agent, nil
}

// FrontEnd resolves a frontend agent by system name.
func (r *Registry) FrontEnd(system string) (FrontEndAgent, error) {
	agent, ok := r.frontend[normalize(system)]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrAgentNotRegistered, sync.AreaFrontEnd, system)
	}
	return agent, nil
}

func normalize(system string) string {
	return strings.ToUpper(strings.TrimSpace(system))
}
