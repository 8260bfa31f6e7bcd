package suite

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type Suite struct {
	Name      string         `yaml:"name"`
	Path      string         `yaml:"-"`
	Variables map[string]any `yaml:"variables,omitempty"`
	Scenarios []*Scenario    `yaml:"scenarios"`
}

// Scenario is an ordered group of steps sharing one capture scope.
type Scenario struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
	Skip        string   `yaml:"skip,omitempty"`
	Only        bool     `yaml:"only,omitempty"`
	Steps       []*Step  `yaml:"steps"`
}

type Step struct {
	Name       string            `yaml:"name"`
	Method     string            `yaml:"method"`
	Path       string            `yaml:"path"`
	Headers    map[string]string `yaml:"headers,omitempty"`
	Body       any               `yaml:"body,omitempty"`
	Tolerant   bool              `yaml:"tolerant,omitempty"`
	Assertions []*Assertion      `yaml:"expect,omitempty"`
	Captures   []*Capture        `yaml:"capture,omitempty"`
}

type Assertion struct {
	Subject  string            `yaml:"subject"`
	Operator AssertionOperator `yaml:"op"`
	Expected any               `yaml:"value,omitempty"`
}

func (a *Assertion) String() string {
	if a.Expected == nil {
		return a.Subject + " " + a.Operator.String()
	}
	return fmt.Sprintf("%s %s %v", a.Subject, a.Operator, a.Expected)
}

type AssertionOperator int

const (
	OpEquals AssertionOperator = iota
	OpNotEquals
	OpGreaterThan
	OpGreaterOrEqual
	OpLessThan
	OpLessOrEqual
	OpContains
	OpNotContains
	OpExists
	OpNotExists
	OpLength
	OpIncludes
	OpIncludesAll
	OpType
	OpEchoes
	OpSchema
)

var operatorNames = map[AssertionOperator]string{
	OpEquals:         "==",
	OpNotEquals:      "!=",
	OpGreaterThan:    ">",
	OpGreaterOrEqual: ">=",
	OpLessThan:       "<",
	OpLessOrEqual:    "<=",
	OpContains:       "contains",
	OpNotContains:    "!contains",
	OpExists:         "exists",
	OpNotExists:      "!exists",
	OpLength:         "length",
	OpIncludes:       "includes",
	OpIncludesAll:    "includesAll",
	OpType:           "type",
	OpEchoes:         "echoes",
	OpSchema:         "schema",
}

func (op AssertionOperator) String() string {
	if name, ok := operatorNames[op]; ok {
		return name
	}
	return "unknown"
}

// ParseOperator maps the textual form used in suite files to an operator.
func ParseOperator(s string) (AssertionOperator, error) {
	s = strings.TrimSpace(s)
	for op, name := range operatorNames {
		if strings.EqualFold(name, s) {
			return op, nil
		}
	}
	switch s {
	case "equals":
		return OpEquals, nil
	case "notEquals":
		return OpNotEquals, nil
	}
	return 0, fmt.Errorf("unknown operator %q", s)
}

func (op AssertionOperator) MarshalYAML() (any, error) {
	return op.String(), nil
}

func (op *AssertionOperator) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseOperator(s)
	if err != nil {
		return &ValidationError{Line: node.Line, Message: err.Error()}
	}
	*op = parsed
	return nil
}

type Capture struct {
	Name   string        `yaml:"name"`
	Source CaptureSource `yaml:"from"`
	Path   string        `yaml:"path,omitempty"`
}

type CaptureSource int

const (
	CaptureBody CaptureSource = iota
	CaptureHeader
	CaptureStatus
	CaptureDuration
)

func (s CaptureSource) String() string {
	switch s {
	case CaptureBody:
		return "body"
	case CaptureHeader:
		return "header"
	case CaptureStatus:
		return "status"
	case CaptureDuration:
		return "duration"
	default:
		return "unknown"
	}
}

func (s CaptureSource) MarshalYAML() (any, error) {
	return s.String(), nil
}

func (s *CaptureSource) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "body":
		*s = CaptureBody
	case "header":
		*s = CaptureHeader
	case "status":
		*s = CaptureStatus
	case "duration":
		*s = CaptureDuration
	default:
		return &ValidationError{Line: node.Line, Message: fmt.Sprintf("unknown capture source %q", raw)}
	}
	return nil
}

// ValidationError locates a problem in a suite definition.
type ValidationError struct {
	File     string
	Scenario string
	Step     string
	Line     int
	Message  string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
		b.WriteString(": ")
	} else if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	if e.Scenario != "" {
		fmt.Fprintf(&b, "scenario %q: ", e.Scenario)
	}
	if e.Step != "" {
		fmt.Fprintf(&b, "step %q: ", e.Step)
	}
	b.WriteString(e.Message)
	return b.String()
}

// Expect builds an assertion; used by suites declared in Go.
func Expect(subject string, op AssertionOperator, expected any) *Assertion {
	return &Assertion{Subject: subject, Operator: op, Expected: expected}
}

// CaptureFromBody stores the value at a JSON path of the response body under name.
func CaptureFromBody(name, path string) *Capture {
	return &Capture{Name: name, Source: CaptureBody, Path: path}
}
