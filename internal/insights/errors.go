package insights

import "errors"

var (
	// ErrInvalidInput wraps every parameter the pipeline cannot interpret.
	ErrInvalidInput = errors.New("insights: invalid input")
	// ErrAgentRequired is returned by agent-scoped reports without an agent.
	ErrAgentRequired = errors.New("insights: agent is required for this report")
)
