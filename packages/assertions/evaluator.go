package assertions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/postcheck/packages/core/suite"
	"github.com/abdul-hamid-achik/postcheck/packages/http"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

type Result struct {
	Passed   bool
	Message  string
	Expected any
	Actual   any
	Subject  string
	Operator string
}

type Evaluator struct {
	response *http.Response
	bodyJSON gjson.Result
	baseDir  string // Base directory for resolving schema file paths
	payload  any    // Request payload for the echoes operator
}

// EvaluatorOption is a functional option for configuring an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithBaseDir resolves relative schema file paths against dir.
func WithBaseDir(dir string) EvaluatorOption {
	return func(e *Evaluator) {
		e.baseDir = dir
	}
}

// WithPayload sets the request payload the echoes operator compares against.
func WithPayload(payload any) EvaluatorOption {
	return func(e *Evaluator) {
		e.payload = payload
	}
}

func NewEvaluator(resp *http.Response, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		response: resp,
	}
	if resp.IsJSON() || gjson.ValidBytes(resp.Body) {
		e.bodyJSON = gjson.ParseBytes(resp.Body)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) Evaluate(assertion *suite.Assertion) *Result {
	subject := assertion.Subject
	if subject == "" && assertion.Operator == suite.OpEchoes {
		subject = "body"
	}

	result := &Result{
		Subject:  subject,
		Operator: assertion.Operator.String(),
		Expected: assertion.Expected,
	}

	actual, err := e.getActualValue(subject)
	if err != nil {
		result.Passed = false
		result.Message = err.Error()
		return result
	}
	result.Actual = actual

	passed, msg := e.compare(actual, assertion.Operator, assertion.Expected)
	result.Passed = passed
	result.Message = msg

	if assertion.Operator == suite.OpLength {
		result.Actual = computeLength(actual)
	}

	return result
}

func (e *Evaluator) getActualValue(subject string) (any, error) {
	switch {
	case subject == "status":
		return e.response.StatusCode, nil
	case subject == "duration":
		return e.response.DurationMs(), nil
	case strings.HasPrefix(subject, "header"):
		headerName := strings.TrimSpace(strings.TrimPrefix(subject, "header"))
		if headerName == "" {
			return e.response.Headers, nil
		}
		return e.response.Header(headerName), nil
	case strings.HasPrefix(subject, "body"):
		return e.getBodyValue(subject)
	default:
		return e.getBodyValue("body." + subject)
	}
}

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// convertBracketNotation converts array bracket notation to gjson dot notation
// e.g., "[0].id" -> "0.id", "items[0].tags[1]" -> "items.0.tags.1"
func convertBracketNotation(path string) string {
	return strings.TrimPrefix(bracketIndex.ReplaceAllString(path, ".$1"), ".")
}

func (e *Evaluator) getBodyValue(subject string) (any, error) {
	path := strings.TrimPrefix(subject, "body")
	if !e.bodyJSON.Exists() {
		if path == "" {
			return e.response.BodyString(), nil
		}
		return nil, fmt.Errorf("response body is not JSON")
	}

	if path == "" {
		return e.bodyJSON.Value(), nil
	}
	path = convertBracketNotation(strings.TrimPrefix(path, "."))

	result := e.bodyJSON.Get(path)
	if !result.Exists() {
		return nil, nil
	}
	return result.Value(), nil
}

func (e *Evaluator) compare(actual any, op suite.AssertionOperator, expected any) (bool, string) {
	switch op {
	case suite.OpEquals:
		return e.equals(actual, expected)
	case suite.OpNotEquals:
		passed, _ := e.equals(actual, expected)
		if passed {
			return false, fmt.Sprintf("expected not to equal %v", expected)
		}
		return true, ""
	case suite.OpGreaterThan:
		return e.compareNumeric(actual, expected, ">")
	case suite.OpGreaterOrEqual:
		return e.compareNumeric(actual, expected, ">=")
	case suite.OpLessThan:
		return e.compareNumeric(actual, expected, "<")
	case suite.OpLessOrEqual:
		return e.compareNumeric(actual, expected, "<=")
	case suite.OpContains:
		return e.contains(actual, expected)
	case suite.OpNotContains:
		passed, _ := e.contains(actual, expected)
		if passed {
			return false, fmt.Sprintf("expected not to contain %v", expected)
		}
		return true, ""
	case suite.OpExists:
		return e.exists(actual)
	case suite.OpNotExists:
		passed, _ := e.exists(actual)
		if passed {
			return false, "expected not to exist"
		}
		return true, ""
	case suite.OpLength:
		return e.length(actual, expected)
	case suite.OpIncludes:
		return e.includes(actual, expected)
	case suite.OpIncludesAll:
		return e.includesAll(actual, expected)
	case suite.OpType:
		return e.typeCheck(actual, expected)
	case suite.OpEchoes:
		return e.echoes(actual, expected)
	case suite.OpSchema:
		return e.schema(actual, expected)
	default:
		return false, fmt.Sprintf("unknown operator: %v", op)
	}
}

func (e *Evaluator) equals(actual, expected any) (bool, string) {
	if reflect.DeepEqual(actual, expected) {
		return true, ""
	}

	actualNum, aOk := toFloat64(actual)
	expectedNum, eOk := toFloat64(expected)
	if aOk && eOk && actualNum == expectedNum {
		return true, ""
	}

	if isScalar(actual) && isScalar(expected) && fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", expected) {
		return true, ""
	}

	return false, fmt.Sprintf("expected %v, got %v", expected, actual)
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, float64, float32, int, int64, int32:
		return true
	}
	return false
}

func (e *Evaluator) compareNumeric(actual, expected any, op string) (bool, string) {
	actualNum, aOk := toFloat64(actual)
	expectedNum, eOk := toFloat64(expected)

	if !aOk || !eOk {
		return false, fmt.Sprintf("cannot compare non-numeric values: %v %s %v", actual, op, expected)
	}

	var passed bool
	switch op {
	case ">":
		passed = actualNum > expectedNum
	case ">=":
		passed = actualNum >= expectedNum
	case "<":
		passed = actualNum < expectedNum
	case "<=":
		passed = actualNum <= expectedNum
	}

	if passed {
		return true, ""
	}
	return false, fmt.Sprintf("expected %v %s %v", actual, op, expected)
}

func (e *Evaluator) contains(actual, expected any) (bool, string) {
	actualStr := fmt.Sprintf("%v", actual)
	expectedStr := fmt.Sprintf("%v", expected)
	if actual != nil && strings.Contains(actualStr, expectedStr) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to contain '%v'", actual, expected)
}

func (e *Evaluator) exists(actual any) (bool, string) {
	if actual == nil {
		return false, "expected to exist"
	}
	return true, ""
}

// computeLength returns the length of a value, or -1 if length cannot be computed
func computeLength(actual any) int {
	switch v := actual.(type) {
	case string:
		return len(v)
	case []any:
		return len(v)
	case map[string]any:
		return len(v)
	default:
		rv := reflect.ValueOf(actual)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
			return rv.Len()
		default:
			return -1
		}
	}
}

func (e *Evaluator) length(actual, expected any) (bool, string) {
	expectedLen, ok := toInt(expected)
	if !ok {
		return false, fmt.Sprintf("expected length must be a number, got %v", expected)
	}

	actualLen := computeLength(actual)
	if actualLen == -1 {
		return false, fmt.Sprintf("cannot get length of %T", actual)
	}

	if actualLen == expectedLen {
		return true, ""
	}
	return false, fmt.Sprintf("expected length %d, got %d", expectedLen, actualLen)
}

func (e *Evaluator) includes(actual, expected any) (bool, string) {
	arr, ok := toSlice(actual)
	if !ok {
		return false, fmt.Sprintf("expected array, got %T", actual)
	}

	for _, item := range arr {
		if passed, _ := e.equals(item, expected); passed {
			return true, ""
		}
	}
	return false, fmt.Sprintf("expected array to include %v", expected)
}

// includesAll passes when every expected element is a member of actual.
func (e *Evaluator) includesAll(actual, expected any) (bool, string) {
	arr, ok := toSlice(actual)
	if !ok {
		return false, fmt.Sprintf("expected array, got %T", actual)
	}
	want, ok := toSlice(expected)
	if !ok {
		return false, fmt.Sprintf("expected value for 'includesAll' must be an array, got %T", expected)
	}

	var missing []string
	for _, w := range want {
		found := false
		for _, item := range arr {
			if passed, _ := e.equals(item, w); passed {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, fmt.Sprintf("%v", w))
		}
	}
	if len(missing) > 0 {
		return false, fmt.Sprintf("expected array to include %s", strings.Join(missing, ", "))
	}
	return true, ""
}

func (e *Evaluator) typeCheck(actual, expected any) (bool, string) {
	expectedType := fmt.Sprintf("%v", expected)
	var actualType string

	switch actual.(type) {
	case nil:
		actualType = "null"
	case bool:
		actualType = "boolean"
	case float64, float32, int, int64, int32:
		actualType = "number"
	case string:
		actualType = "string"
	case []any:
		actualType = "array"
	case map[string]any:
		actualType = "object"
	default:
		actualType = reflect.TypeOf(actual).String()
	}

	if actualType == expectedType {
		return true, ""
	}
	return false, fmt.Sprintf("expected type %s, got %s", expectedType, actualType)
}

// echoes compares fields of the response object with the request payload.
// expected lists the field names to compare; empty compares every payload field.
func (e *Evaluator) echoes(actual, expected any) (bool, string) {
	if e.payload == nil {
		return false, "no request payload to compare against"
	}
	sent, err := asObject(e.payload)
	if err != nil {
		return false, fmt.Sprintf("request payload is not an object: %v", err)
	}
	got, ok := actual.(map[string]any)
	if !ok {
		return false, fmt.Sprintf("expected response object, got %T", actual)
	}

	var fields []string
	if expected != nil {
		list, ok := toSlice(expected)
		if !ok {
			return false, fmt.Sprintf("expected value for 'echoes' must be a list of fields, got %T", expected)
		}
		for _, f := range list {
			fields = append(fields, fmt.Sprintf("%v", f))
		}
	} else {
		for k := range sent {
			fields = append(fields, k)
		}
	}

	var mismatches []string
	for _, f := range fields {
		want, inPayload := sent[f]
		if !inPayload {
			mismatches = append(mismatches, fmt.Sprintf("%s: not in request payload", f))
			continue
		}
		if !reflect.DeepEqual(want, got[f]) {
			mismatches = append(mismatches, fmt.Sprintf("%s: sent %v, got %v", f, want, got[f]))
		}
	}
	if len(mismatches) > 0 {
		return false, "response does not echo request: " + strings.Join(mismatches, "; ")
	}
	return true, ""
}

// asObject normalises v through a JSON round trip so numbers compare as
// float64 on both sides.
func asObject(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func toSlice(v any) ([]any, bool) {
	if arr, ok := v.([]any); ok {
		return arr, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i, true
		}
	}
	return 0, false
}

// EvaluateAll evaluates every assertion against resp, in order.
func EvaluateAll(resp *http.Response, assertions []*suite.Assertion, opts ...EvaluatorOption) []*Result {
	evaluator := NewEvaluator(resp, opts...)
	results := make([]*Result, len(assertions))
	for i, a := range assertions {
		results[i] = evaluator.Evaluate(a)
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []*Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// validatePathWithinBase checks that the resolved path stays within the base directory
func validatePathWithinBase(path, baseDir string) error {
	if baseDir == "" {
		return nil
	}

	cleanBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %v", err)
	}

	cleanPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %v", err)
	}

	if !strings.HasPrefix(cleanPath, cleanBase+string(filepath.Separator)) && cleanPath != cleanBase {
		return fmt.Errorf("path traversal detected: %s is outside allowed directory %s", path, baseDir)
	}

	return nil
}

// loadSchema accepts an inline schema (object or JSON text) or a file path.
func (e *Evaluator) loadSchema(expected any) ([]byte, error) {
	switch v := expected.(type) {
	case map[string]any:
		return json.Marshal(v)
	case []byte:
		return v, nil
	case string:
		if strings.HasPrefix(strings.TrimSpace(v), "{") {
			return []byte(v), nil
		}
		schemaPath := v
		if !filepath.IsAbs(schemaPath) && e.baseDir != "" {
			schemaPath = filepath.Join(e.baseDir, schemaPath)
		}
		if err := validatePathWithinBase(schemaPath, e.baseDir); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(schemaPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema file: %v", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported schema value %T", expected)
	}
}

func (e *Evaluator) schema(actual, expected any) (bool, string) {
	schemaData, err := e.loadSchema(expected)
	if err != nil {
		return false, err.Error()
	}

	actualJSON, err := json.Marshal(actual)
	if err != nil {
		return false, fmt.Sprintf("failed to marshal actual value: %v", err)
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaData)
	documentLoader := gojsonschema.NewBytesLoader(actualJSON)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return false, fmt.Sprintf("schema validation error: %v", err)
	}

	if result.Valid() {
		return true, ""
	}

	var errors []string
	for _, desc := range result.Errors() {
		errors = append(errors, desc.String())
	}
	return false, fmt.Sprintf("schema validation failed: %s", strings.Join(errors, "; "))
}
