package suite

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// SupportedMethods lists the HTTP methods a step may use.
var SupportedMethods = []string{"GET", "POST", "PUT", "DELETE"}

// FileExtensions are the suffixes recognised as suite files.
var FileExtensions = []string{".yaml", ".yml"}

var referencePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// LoadFile reads and validates a YAML suite file.
func LoadFile(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading suite file: %w", err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if err := Validate(s); err != nil {
		return nil, withFile(err, path)
	}
	return s, nil
}

// Parse decodes a suite from YAML without validating it.
func Parse(data []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	s.normalize()
	return &s, nil
}

func (s *Suite) normalize() {
	for i, sc := range s.Scenarios {
		if sc == nil {
			continue
		}
		if sc.Name == "" {
			sc.Name = fmt.Sprintf("scenario %d", i+1)
		}
		for j, step := range sc.Steps {
			if step == nil {
				continue
			}
			step.Method = strings.ToUpper(strings.TrimSpace(step.Method))
			if step.Name == "" {
				step.Name = fmt.Sprintf("%s %s", step.Method, step.Path)
				if len(sc.Steps) > 1 {
					step.Name = fmt.Sprintf("step %d: %s", j+1, step.Name)
				}
			}
		}
	}
}

// Validate checks a suite for structural errors and returns them joined.
func Validate(s *Suite) error {
	var errs []error
	if len(s.Scenarios) == 0 {
		errs = append(errs, &ValidationError{Message: "suite has no scenarios"})
	}

	seen := make(map[string]bool)
	for _, sc := range s.Scenarios {
		if sc == nil {
			errs = append(errs, &ValidationError{Message: "empty scenario entry"})
			continue
		}
		if seen[sc.Name] {
			errs = append(errs, &ValidationError{Scenario: sc.Name, Message: "duplicate scenario name"})
		}
		seen[sc.Name] = true
		errs = append(errs, validateScenario(sc)...)
	}

	return errors.Join(errs...)
}

func validateScenario(sc *Scenario) []error {
	var errs []error
	if len(sc.Steps) == 0 {
		errs = append(errs, &ValidationError{Scenario: sc.Name, Message: "scenario has no steps"})
	}

	// Every capture of the scenario, mapped to the index of the step defining it.
	definedAt := make(map[string]int)
	for i, step := range sc.Steps {
		if step == nil {
			continue
		}
		for _, c := range step.Captures {
			if c == nil || c.Name == "" {
				continue
			}
			if _, ok := definedAt[c.Name]; !ok {
				definedAt[c.Name] = i
			}
			definedAt[step.Name+"."+c.Name] = i
		}
	}

	for i, step := range sc.Steps {
		if step == nil {
			errs = append(errs, &ValidationError{Scenario: sc.Name, Message: fmt.Sprintf("step %d is empty", i+1)})
			continue
		}
		fail := func(format string, args ...any) {
			errs = append(errs, &ValidationError{Scenario: sc.Name, Step: step.Name, Message: fmt.Sprintf(format, args...)})
		}

		if !isSupportedMethod(step.Method) {
			fail("unsupported method %q (want one of %s)", step.Method, strings.Join(SupportedMethods, ", "))
		}
		if step.Path == "" {
			fail("path is required")
		} else if !strings.HasPrefix(step.Path, "/") {
			fail("path %q must start with /", step.Path)
		}

		for _, ref := range References(step) {
			if at, ok := definedAt[ref]; ok && at >= i {
				fail("%q is captured by a later step", ref)
			}
		}

		for _, a := range step.Assertions {
			if a == nil {
				fail("empty assertion")
				continue
			}
			if a.Subject == "" && a.Operator != OpEchoes {
				fail("assertion %s has no subject", a.Operator)
			}
		}
		for _, c := range step.Captures {
			if c == nil || c.Name == "" {
				fail("capture without a name")
			}
		}
	}
	return errs
}

// References returns the names a step reads from the capture scope, in
// the order they appear in the path and body.
func References(step *Step) []string {
	var refs []string
	collect := func(s string) {
		for _, m := range referencePattern.FindAllStringSubmatch(s, -1) {
			expr := strings.TrimSpace(m[1])
			if strings.HasPrefix(expr, "$") || strings.Contains(expr, "(") {
				continue
			}
			refs = append(refs, expr)
		}
	}

	collect(step.Path)
	for _, v := range step.Headers {
		collect(v)
	}
	walkStrings(step.Body, collect)
	return refs
}

func walkStrings(v any, fn func(string)) {
	switch val := v.(type) {
	case string:
		fn(val)
	case map[string]any:
		for _, item := range val {
			walkStrings(item, fn)
		}
	case []any:
		for _, item := range val {
			walkStrings(item, fn)
		}
	}
}

func isSupportedMethod(method string) bool {
	for _, m := range SupportedMethods {
		if m == method {
			return true
		}
	}
	return false
}

func withFile(err error, path string) error {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		errs := joined.Unwrap()
		out := make([]error, 0, len(errs))
		for _, e := range errs {
			out = append(out, withFile(e, path))
		}
		return errors.Join(out...)
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		copied := *verr
		copied.File = path
		return &copied
	}
	return fmt.Errorf("%s: %w", path, err)
}

// IsSuiteFile reports whether path has a suite file extension.
func IsSuiteFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range FileExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// CollectFiles expands files and directories into the suite files they contain.
func CollectFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && IsSuiteFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
