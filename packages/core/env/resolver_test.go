package env

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestResolverHasUnresolvedVariables(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		variables map[string]any
		captures  map[string]any
		expected  bool
	}{
		{name: "no references", input: "/posts", expected: false},
		{name: "resolved variable", input: "/posts/{{id}}", variables: map[string]any{"id": 1}, expected: false},
		{name: "unresolved variable", input: "/posts/{{id}}", expected: true},
		{
			name:      "mixed resolved and unresolved",
			input:     "/{{prefix}}/posts/{{id}}",
			variables: map[string]any{"prefix": "664"},
			expected:  true,
		},
		{name: "builtin call", input: "/posts/{{$randomInt()}}", expected: false},
		{name: "unknown builtin", input: "{{$nope()}}", expected: true},
		{name: "step qualified capture", input: "{{create.postId}}", captures: map[string]any{"postId": 5}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver()
			r.SetVariables(tt.variables)
			for k, v := range tt.captures {
				r.SetCapture("create", k, v)
			}

			got := r.HasUnresolvedVariables(tt.input)
			if got != tt.expected {
				t.Errorf("HasUnresolvedVariables(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestResolverGetUnresolvedVariables(t *testing.T) {
	r := NewResolver()
	r.SetVariable("known", "x")

	got := r.GetUnresolvedVariables("{{a}}/{{known}}/{{b}}")
	want := []string{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetUnresolvedVariables() = %v, want %v", got, want)
	}

	if got := r.GetUnresolvedVariables("{{known}}"); got != nil {
		t.Errorf("GetUnresolvedVariables() = %v, want nil", got)
	}
}

func TestResolverResolve(t *testing.T) {
	t.Setenv("POSTCHECK_TEST_HOST", "example.test")

	r := NewResolver()
	r.SetVariable("id", 42)
	r.SetCapture("create", "title", "hello")

	tests := []struct {
		input    string
		expected string
	}{
		{"/posts/{{id}}", "/posts/42"},
		{"{{title}} again", "hello again"},
		{"{{create.title}}", "hello"},
		{"http://{{$POSTCHECK_TEST_HOST}}", "http://example.test"},
		{"{{ id }}", "42"},
		{"{{missing}}", "{{missing}}"},
	}

	for _, tt := range tests {
		if got := r.Resolve(tt.input); got != tt.expected {
			t.Errorf("Resolve(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestResolverWarnsOnUnresolved(t *testing.T) {
	r := NewResolver()
	var warnings []string
	r.SetWarnFunc(func(format string, args ...any) {
		warnings = append(warnings, format)
	})

	r.Resolve("{{ghost}}")
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
}

func TestResolverResolveStrict(t *testing.T) {
	r := NewResolver()
	r.SetVariable("id", 7)

	got, err := r.ResolveStrict("/posts/{{id}}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "/posts/7" {
		t.Errorf("ResolveStrict() = %q", got)
	}

	_, err = r.ResolveStrict("/posts/{{postId}}")
	var unresolved *UnresolvedError
	if !errors.As(err, &unresolved) {
		t.Fatalf("expected *UnresolvedError, got %v", err)
	}
	if !reflect.DeepEqual(unresolved.Names, []string{"postId"}) {
		t.Errorf("Names = %v", unresolved.Names)
	}
}

func TestResolverResolveValue(t *testing.T) {
	r := NewResolver()
	r.SetVariable("userId", int64(3))

	t.Run("single reference keeps type", func(t *testing.T) {
		got, err := r.ResolveValue(map[string]any{
			"id":     "{{$randomInt()}}",
			"userId": "{{userId}}",
			"title":  "post by {{userId}}",
			"tags":   []any{"{{userId}}", true},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		m := got.(map[string]any)
		if _, ok := m["id"].(int64); !ok {
			t.Errorf("id should be int64, got %T", m["id"])
		}
		if m["userId"] != int64(3) {
			t.Errorf("userId = %v (%T)", m["userId"], m["userId"])
		}
		if m["title"] != "post by 3" {
			t.Errorf("title = %v", m["title"])
		}
		tags := m["tags"].([]any)
		if tags[0] != int64(3) || tags[1] != true {
			t.Errorf("tags = %v", tags)
		}
	})

	t.Run("lorem text is a string", func(t *testing.T) {
		got, err := r.ResolveValue("{{$loremText()}}")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		s, ok := got.(string)
		if !ok || !strings.HasSuffix(s, ".") {
			t.Errorf("unexpected lorem text %q", got)
		}
	})

	t.Run("unresolved fails", func(t *testing.T) {
		if _, err := r.ResolveValue(map[string]any{"id": "{{nope}}"}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("non-string passes through", func(t *testing.T) {
		got, _ := r.ResolveValue(12.5)
		if got != 12.5 {
			t.Errorf("got %v", got)
		}
	})
}

func TestResolverCloneIsolation(t *testing.T) {
	parent := NewResolver()
	parent.SetVariable("base", "v")

	a := parent.Clone()
	b := parent.Clone()
	a.SetCapture("", "postId", 1)

	if _, ok := b.GetCapture("postId"); ok {
		t.Error("capture leaked into sibling clone")
	}
	if _, ok := parent.GetCapture("postId"); ok {
		t.Error("capture leaked into parent")
	}
	if v, ok := b.GetVariable("base"); !ok || v != "v" {
		t.Errorf("clone lost variable: %v", v)
	}
}

func TestLoadEnvironment(t *testing.T) {
	envs := map[string]map[string]any{
		"staging": {"baseUrl": "https://staging.test"},
	}

	env, err := LoadEnvironment("staging", envs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Variables["baseUrl"] != "https://staging.test" {
		t.Errorf("baseUrl = %v", env.Variables["baseUrl"])
	}

	if _, err := LoadEnvironment("prod", envs); err == nil {
		t.Error("expected error for undefined environment")
	}

	empty, err := LoadEnvironment("", nil)
	if err != nil || len(empty.Variables) != 0 {
		t.Errorf("empty env: %v %v", empty, err)
	}
}

func TestMergeVariables(t *testing.T) {
	got := MergeVariables(map[string]any{"a": 1, "b": 1}, map[string]any{"b": 2})
	if got["a"] != 1 || got["b"] != 2 {
		t.Errorf("MergeVariables() = %v", got)
	}
}

func TestLoadSystemEnv(t *testing.T) {
	t.Setenv("POSTCHECK_VAR_TOKEN", "abc")
	got := LoadSystemEnv("POSTCHECK_VAR_")
	if got["TOKEN"] != "abc" {
		t.Errorf("TOKEN = %v", got["TOKEN"])
	}
}
