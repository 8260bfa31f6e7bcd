package suite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const crudYAML = `
name: extra posts checks
variables:
  title: hello
scenarios:
  - name: create and read back
    tags: [write]
    steps:
      - name: create
        method: post
        path: /posts
        body:
          title: "{{title}}"
          userId: 1
        expect:
          - subject: status
            op: "=="
            value: 201
          - op: echoes
            value: [title]
        capture:
          - name: postId
            path: id
      - method: GET
        path: /posts/{{postId}}
        expect:
          - subject: body.title
            op: equals
            value: hello
          - subject: header Content-Type
            op: contains
            value: json
  - name: guarded
    steps:
      - method: POST
        path: /664/posts
        tolerant: true
        expect:
          - subject: status
            op: "=="
            value: 401
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(crudYAML))
	require.NoError(t, err)
	require.NoError(t, Validate(s))

	assert.Equal(t, "extra posts checks", s.Name)
	assert.Equal(t, "hello", s.Variables["title"])
	require.Len(t, s.Scenarios, 2)

	sc := s.Scenarios[0]
	assert.Equal(t, []string{"write"}, sc.Tags)
	require.Len(t, sc.Steps, 2)

	create := sc.Steps[0]
	assert.Equal(t, "POST", create.Method)
	assert.Equal(t, OpEquals, create.Assertions[0].Operator)
	assert.Equal(t, 201, create.Assertions[0].Expected)
	assert.Equal(t, OpEchoes, create.Assertions[1].Operator)
	require.Len(t, create.Captures, 1)
	assert.Equal(t, CaptureBody, create.Captures[0].Source)
	assert.Equal(t, "id", create.Captures[0].Path)

	read := sc.Steps[1]
	assert.Equal(t, "step 2: GET /posts/{{postId}}", read.Name)
	assert.Equal(t, OpContains, read.Assertions[1].Operator)

	guarded := s.Scenarios[1]
	assert.True(t, guarded.Steps[0].Tolerant)
	assert.Equal(t, "POST /664/posts", guarded.Steps[0].Name)
}

func TestParse_UnknownOperator(t *testing.T) {
	_, err := Parse([]byte(`
scenarios:
  - name: bad
    steps:
      - method: GET
        path: /posts
        expect:
          - subject: status
            op: approximately
            value: 200
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown operator "approximately"`)
}

func TestParse_UnknownCaptureSource(t *testing.T) {
	_, err := Parse([]byte(`
scenarios:
  - name: bad
    steps:
      - method: GET
        path: /posts
        capture:
          - name: x
            from: cookie
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown capture source")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		suite   *Suite
		wantErr []string
	}{
		{
			name:    "no scenarios",
			suite:   &Suite{},
			wantErr: []string{"suite has no scenarios"},
		},
		{
			name: "no steps",
			suite: &Suite{Scenarios: []*Scenario{
				{Name: "empty"},
			}},
			wantErr: []string{`scenario "empty": scenario has no steps`},
		},
		{
			name: "unsupported method and bad path",
			suite: &Suite{Scenarios: []*Scenario{
				{Name: "s", Steps: []*Step{
					{Name: "patch", Method: "PATCH", Path: "/posts/1"},
					{Name: "nopath", Method: "GET"},
					{Name: "relative", Method: "GET", Path: "posts"},
				}},
			}},
			wantErr: []string{
				`unsupported method "PATCH"`,
				`step "nopath": path is required`,
				`path "posts" must start with /`,
			},
		},
		{
			name: "capture used before it is defined",
			suite: &Suite{Scenarios: []*Scenario{
				{Name: "s", Steps: []*Step{
					{Name: "update", Method: "PUT", Path: "/posts/{{postId}}"},
					{Name: "create", Method: "POST", Path: "/posts", Captures: []*Capture{CaptureFromBody("postId", "id")}},
				}},
			}},
			wantErr: []string{`"postId" is captured by a later step`},
		},
		{
			name: "duplicate scenario",
			suite: &Suite{Scenarios: []*Scenario{
				{Name: "dup", Steps: []*Step{{Name: "a", Method: "GET", Path: "/posts"}}},
				{Name: "dup", Steps: []*Step{{Name: "a", Method: "GET", Path: "/posts"}}},
			}},
			wantErr: []string{"duplicate scenario name"},
		},
		{
			name: "assertion without subject",
			suite: &Suite{Scenarios: []*Scenario{
				{Name: "s", Steps: []*Step{{Name: "a", Method: "GET", Path: "/posts", Assertions: []*Assertion{
					{Operator: OpExists},
				}}}},
			}},
			wantErr: []string{"assertion exists has no subject"},
		},
		{
			name: "valid with variables and functions",
			suite: &Suite{Scenarios: []*Scenario{
				{Name: "s", Steps: []*Step{{
					Name:   "create",
					Method: "POST",
					Path:   "/posts",
					Body:   map[string]any{"id": "{{$randomInt()}}", "title": "{{title}}"},
				}}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.suite)
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestReferences(t *testing.T) {
	step := &Step{
		Path:    "/posts/{{postId}}",
		Headers: map[string]string{"Authorization": "Bearer {{token}}"},
		Body: map[string]any{
			"id":    "{{$randomInt()}}",
			"title": "{{ create.title }}",
			"tags":  []any{"{{$ENV}}"},
		},
	}
	assert.ElementsMatch(t, []string{"postId", "token", "create.title"}, References(step))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extra.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
scenarios:
  - name: list
    steps:
      - method: GET
        path: /posts
`), 0644))

	s, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "extra", s.Name)
	assert.Equal(t, path, s.Path)
}

func TestLoadFile_ValidationErrorsCarryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
scenarios:
  - name: broken
    steps:
      - method: TRACE
        path: /posts
`), 0644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path+": scenario \"broken\"")
	assert.Contains(t, err.Error(), `unsupported method "TRACE"`)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(nested, 0755))
	for _, name := range []string{"a.yaml", "notes.txt", filepath.Join("nested", "b.yml")} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("scenarios: []"), 0644))
	}

	files, err := CollectFiles([]string{dir})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.yaml"),
		filepath.Join(nested, "b.yml"),
	}, files)

	_, err = CollectFiles([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}

func TestIsSuiteFile(t *testing.T) {
	assert.True(t, IsSuiteFile("posts.yaml"))
	assert.True(t, IsSuiteFile("posts.YML"))
	assert.False(t, IsSuiteFile("posts.json"))
}

func TestOperatorRoundTrip(t *testing.T) {
	for op, name := range operatorNames {
		parsed, err := ParseOperator(name)
		require.NoError(t, err)
		assert.Equal(t, op, parsed)
	}
}
