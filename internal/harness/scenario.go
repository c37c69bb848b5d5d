package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kassir-pos/possync/internal/checkout"
)

// Step names accepted in FlowStep.Invoke.
const (
	StepEnqueue           = "enqueue"
	StepSync              = "sync"
	StepOnline            = "online"
	StepOffline           = "offline"
	StepRemote            = "remote"
	StepCrashAfterConfirm = "crash_after_confirm"
)

// ActionRemoteConfirm is the trace action of a backend confirmation call.
const ActionRemoteConfirm = "remote.process_sale"

// Scenario defines a conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Online is the initial connectivity. Defaults to true.
	Online *bool `yaml:"online,omitempty"`

	// CompanyID fills sales that omit it. Defaults to DefaultCompanyID.
	CompanyID string `yaml:"company_id,omitempty"`

	// Remote scripts the backend before the first step.
	Remote *RemoteScript `yaml:"remote,omitempty"`

	// Flow contains the steps, executed in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and store contents.
	Assertions []Assertion `yaml:"assertions"`
}

// FlowStep is one step of a scenario.
type FlowStep struct {
	// Invoke names the step (StepEnqueue, StepSync, ...).
	Invoke string `yaml:"invoke"`

	// Sale is the order written by an enqueue step.
	Sale *checkout.Order `yaml:"sale,omitempty"`

	// Remote is the backend script applied by a remote step.
	Remote *RemoteScript `yaml:"remote,omitempty"`

	// Comment selects the intent of a crash_after_confirm step.
	Comment string `yaml:"comment,omitempty"`

	// Expect specifies the expected completion. If nil, nothing is checked.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected completion behavior.
type ExpectClause struct {
	// Case is the expected output case ("ok", "INVALID_SALE", ...).
	Case string `yaml:"case"`

	// Result is a subset of the expected result fields.
	Result map[string]any `yaml:"result,omitempty"`
}

// RemoteScript changes how the stub backend answers.
type RemoteScript struct {
	// Clear drops every rule added so far. Applied first.
	Clear bool `yaml:"clear,omitempty"`

	// Reject makes matching sales complete with success=false.
	Reject []RemoteRule `yaml:"reject,omitempty"`

	// Fail makes matching sales fail with a transport error.
	Fail []RemoteRule `yaml:"fail,omitempty"`

	// Succeed makes matching sales succeed with RemoteRule.SaleID.
	Succeed []RemoteRule `yaml:"succeed,omitempty"`
}

// RemoteRule selects sales by comment. An empty comment matches all.
type RemoteRule struct {
	Comment string `yaml:"comment,omitempty"`
	Message string `yaml:"message,omitempty"`
	SaleID  string `yaml:"sale_id,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Action is the trace action (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Args are matched as a subset (trace_contains, trace_count).
	Args map[string]any `yaml:"args,omitempty"`

	// Table is the store table (final_state, absent).
	Table string `yaml:"table,omitempty"`

	// Where filters rows; all fields must match (final_state, absent).
	Where map[string]any `yaml:"where,omitempty"`

	// Expect is a subset of the row's columns (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number of invocations (trace_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected order (trace_order).
	Actions []string `yaml:"actions,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertAbsent        = "absent"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks required fields and step shapes.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow must have at least one step")
	}

	for i, step := range s.Flow {
		switch step.Invoke {
		case StepEnqueue:
			if step.Sale == nil {
				return fmt.Errorf("flow[%d]: enqueue requires sale", i)
			}
		case StepRemote:
			if step.Remote == nil {
				return fmt.Errorf("flow[%d]: remote requires a remote script", i)
			}
		case StepCrashAfterConfirm:
			if step.Comment == "" {
				return fmt.Errorf("flow[%d]: crash_after_confirm requires comment", i)
			}
		case StepSync, StepOnline, StepOffline:
		case "":
			return fmt.Errorf("flow[%d]: invoke is required", i)
		default:
			return fmt.Errorf("flow[%d]: unknown step %q", i, step.Invoke)
		}
		if step.Expect != nil && step.Expect.Case == "" {
			return fmt.Errorf("flow[%d]: expect.case is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("trace_contains requires action")
		}
	case AssertTraceOrder:
		if len(a.Actions) < 2 {
			return fmt.Errorf("trace_order requires at least two actions")
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("trace_count requires action")
		}
		if a.Count < 0 {
			return fmt.Errorf("trace_count requires count >= 0")
		}
	case AssertFinalState, AssertAbsent:
		if a.Table == "" {
			return fmt.Errorf("%s requires table", a.Type)
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
