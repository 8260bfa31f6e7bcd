package assertions

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/postcheck/packages/core/suite"
	"github.com/abdul-hamid-achik/postcheck/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createResponse(statusCode int, body string, headers map[string]string) *http.Response {
	if headers == nil {
		headers = make(map[string]string)
	}
	if _, ok := headers["Content-Type"]; !ok {
		headers["Content-Type"] = "application/json; charset=utf-8"
	}
	return &http.Response{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       []byte(body),
		Duration:   100 * time.Millisecond,
	}
}

const listing = `[
	{"userId": 1, "id": 10, "title": "a", "body": "x"},
	{"userId": 1, "id": 55, "title": "b", "body": "y"},
	{"userId": 2, "id": 60, "title": "c", "body": "z"}
]`

func TestEvaluator_Status(t *testing.T) {
	e := NewEvaluator(createResponse(201, `{}`, nil))

	assert.True(t, e.Evaluate(suite.Expect("status", suite.OpEquals, 201)).Passed)
	assert.True(t, e.Evaluate(suite.Expect("status", suite.OpNotEquals, 200)).Passed)

	result := e.Evaluate(suite.Expect("status", suite.OpEquals, 200))
	assert.False(t, result.Passed)
	assert.Equal(t, 201, result.Actual)
	assert.Contains(t, result.Message, "expected 200")
}

func TestEvaluator_ContentTypeHeader(t *testing.T) {
	e := NewEvaluator(createResponse(200, `[]`, nil))

	result := e.Evaluate(suite.Expect("header content-type", suite.OpContains, "application/json"))
	assert.True(t, result.Passed, result.Message)

	result = e.Evaluate(suite.Expect("header X-Missing", suite.OpContains, "json"))
	assert.False(t, result.Passed)
}

func TestEvaluator_BodyPaths(t *testing.T) {
	e := NewEvaluator(createResponse(200, listing, nil))

	tests := []struct {
		name      string
		assertion *suite.Assertion
		passed    bool
	}{
		{"array length via #", suite.Expect("body.#", suite.OpGreaterThan, 0), true},
		{"length operator", suite.Expect("body", suite.OpLength, 3), true},
		{"index path", suite.Expect("body.0.id", suite.OpEquals, 10), true},
		{"bracket path", suite.Expect("body[1].id", suite.OpEquals, 55), true},
		{"element has id", suite.Expect("body.2.id", suite.OpExists, nil), true},
		{"missing element", suite.Expect("body.9.id", suite.OpExists, nil), false},
		{"missing is !exists", suite.Expect("body.9.id", suite.OpNotExists, nil), true},
		{"ids include 10", suite.Expect("body.#.id", suite.OpIncludes, 10), true},
		{"ids include 11", suite.Expect("body.#.id", suite.OpIncludes, 11), false},
		{"ids include all", suite.Expect("body.#.id", suite.OpIncludesAll, []any{55, 60}), true},
		{"ids include all typed", suite.Expect("body.#.id", suite.OpIncludesAll, []int{55, 60}), true},
		{"ids missing one", suite.Expect("body.#.id", suite.OpIncludesAll, []any{55, 61}), false},
		{"type array", suite.Expect("body", suite.OpType, "array"), true},
		{"type number", suite.Expect("body.0.userId", suite.OpType, "number"), true},
		{"string contains", suite.Expect("body.0.title", suite.OpContains, "a"), true},
		{"string not contains", suite.Expect("body.0.title", suite.OpNotContains, "q"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.Evaluate(tt.assertion)
			assert.Equal(t, tt.passed, result.Passed, "message: %s", result.Message)
		})
	}
}

func TestEvaluator_IncludesAllReportsMissing(t *testing.T) {
	e := NewEvaluator(createResponse(200, listing, nil))

	result := e.Evaluate(suite.Expect("body.#.id", suite.OpIncludesAll, []any{55, 61, 62}))
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "61, 62")
}

func TestEvaluator_LengthShowsComputedActual(t *testing.T) {
	e := NewEvaluator(createResponse(200, listing, nil))

	result := e.Evaluate(suite.Expect("body", suite.OpLength, 100))
	assert.False(t, result.Passed)
	assert.Equal(t, 3, result.Actual)
}

func TestEvaluator_EmptyBody(t *testing.T) {
	e := NewEvaluator(createResponse(200, ``, map[string]string{"Content-Type": "text/plain"}))

	result := e.Evaluate(suite.Expect("body", suite.OpLength, 0))
	assert.True(t, result.Passed, result.Message)

	result = e.Evaluate(suite.Expect("body.id", suite.OpExists, nil))
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "not JSON")
}

func TestEvaluator_Echoes(t *testing.T) {
	payload := map[string]any{
		"userId": int64(7),
		"id":     int64(9007199254740991),
		"title":  "Lorem ipsum dolor.",
		"body":   "Sit amet. Consectetur adipiscing.",
	}
	body := `{"userId": 7, "id": 9007199254740991, "title": "Lorem ipsum dolor.", "body": "Sit amet. Consectetur adipiscing."}`

	t.Run("all fields", func(t *testing.T) {
		e := NewEvaluator(createResponse(201, body, nil), WithPayload(payload))
		result := e.Evaluate(suite.Expect("body", suite.OpEchoes, nil))
		assert.True(t, result.Passed, result.Message)
	})

	t.Run("empty subject defaults to body", func(t *testing.T) {
		e := NewEvaluator(createResponse(201, body, nil), WithPayload(payload))
		result := e.Evaluate(suite.Expect("", suite.OpEchoes, []any{"title", "body"}))
		assert.True(t, result.Passed, result.Message)
		assert.Equal(t, "body", result.Subject)
	})

	t.Run("mismatch", func(t *testing.T) {
		changed := `{"userId": 7, "id": 1, "title": "other", "body": "Sit amet. Consectetur adipiscing."}`
		e := NewEvaluator(createResponse(201, changed, nil), WithPayload(payload))
		result := e.Evaluate(suite.Expect("body", suite.OpEchoes, nil))
		assert.False(t, result.Passed)
		assert.Contains(t, result.Message, "title")
		assert.Contains(t, result.Message, "id")
	})

	t.Run("field not sent", func(t *testing.T) {
		e := NewEvaluator(createResponse(201, body, nil), WithPayload(map[string]any{"title": "Lorem ipsum dolor."}))
		result := e.Evaluate(suite.Expect("body", suite.OpEchoes, []string{"title", "body"}))
		assert.False(t, result.Passed)
		assert.Contains(t, result.Message, "not in request payload")
	})

	t.Run("struct payload", func(t *testing.T) {
		type post struct {
			Title string `json:"title"`
		}
		e := NewEvaluator(createResponse(201, body, nil), WithPayload(post{Title: "Lorem ipsum dolor."}))
		result := e.Evaluate(suite.Expect("body", suite.OpEchoes, nil))
		assert.True(t, result.Passed, result.Message)
	})

	t.Run("no payload", func(t *testing.T) {
		e := NewEvaluator(createResponse(201, body, nil))
		result := e.Evaluate(suite.Expect("body", suite.OpEchoes, nil))
		assert.False(t, result.Passed)
	})
}

func TestEvaluator_Duration(t *testing.T) {
	e := NewEvaluator(createResponse(200, `{}`, nil))

	assert.True(t, e.Evaluate(suite.Expect("duration", suite.OpLessThan, 1000)).Passed)
	assert.False(t, e.Evaluate(suite.Expect("duration", suite.OpLessThan, 50)).Passed)
}

func TestEvaluator_NumericCompareNonNumeric(t *testing.T) {
	e := NewEvaluator(createResponse(200, `{"title": "x"}`, nil))

	result := e.Evaluate(suite.Expect("body.title", suite.OpGreaterThan, 0))
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "non-numeric")
}

const postSchema = `{
	"type": "object",
	"required": ["id", "userId", "title", "body"],
	"properties": {
		"id": {"type": "integer"},
		"userId": {"type": "integer"},
		"title": {"type": "string"},
		"body": {"type": "string"}
	}
}`

func TestEvaluator_Schema(t *testing.T) {
	valid := `{"id": 1, "userId": 1, "title": "t", "body": "b"}`

	t.Run("inline", func(t *testing.T) {
		e := NewEvaluator(createResponse(200, valid, nil))
		result := e.Evaluate(suite.Expect("body", suite.OpSchema, postSchema))
		assert.True(t, result.Passed, result.Message)
	})

	t.Run("inline violation", func(t *testing.T) {
		e := NewEvaluator(createResponse(200, `{"id": "one"}`, nil))
		result := e.Evaluate(suite.Expect("body", suite.OpSchema, postSchema))
		assert.False(t, result.Passed)
		assert.Contains(t, result.Message, "schema validation failed")
	})

	t.Run("file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "post.schema.json"), []byte(postSchema), 0644))

		e := NewEvaluator(createResponse(200, valid, nil), WithBaseDir(dir))
		result := e.Evaluate(suite.Expect("body", suite.OpSchema, "post.schema.json"))
		assert.True(t, result.Passed, result.Message)
	})

	t.Run("path traversal", func(t *testing.T) {
		e := NewEvaluator(createResponse(200, `{}`, nil), WithBaseDir(t.TempDir()))
		result := e.Evaluate(suite.Expect("body", suite.OpSchema, "../../../etc/passwd"))
		assert.False(t, result.Passed)
		assert.Contains(t, result.Message, "path traversal")
	})
}

func TestEvaluateAll(t *testing.T) {
	resp := createResponse(200, listing, nil)

	results := EvaluateAll(resp, []*suite.Assertion{
		suite.Expect("status", suite.OpEquals, 200),
		suite.Expect("header Content-Type", suite.OpContains, "application/json"),
		suite.Expect("body.#", suite.OpGreaterThan, 0),
	})

	assert.Len(t, results, 3)
	assert.True(t, AllPassed(results))
	for _, r := range results {
		assert.True(t, r.Passed, "Failed: %s - %s", r.Subject, r.Message)
	}

	results = append(results, &Result{Passed: false})
	assert.False(t, AllPassed(results))
}
