package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, DefaultBaseURL, c.BaseURL)
	assert.Equal(t, 30000, c.Timeout)
	assert.True(t, c.GetFollowRedirects())
	assert.True(t, c.GetValidateSSL())
	assert.False(t, c.GetParallel())
	assert.False(t, c.GetBail())
	assert.Equal(t, 5, c.Concurrency)
	assert.NoError(t, c.Validate())
}

func TestGetters_NilDefaults(t *testing.T) {
	c := &Config{}
	assert.True(t, c.GetFollowRedirects())
	assert.True(t, c.GetValidateSSL())
	assert.False(t, c.GetVerbose())
	assert.False(t, c.GetNoColor())
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "postcheck.yaml", `
baseUrl: https://jsonplaceholder.typicode.com
timeout: 5000
rate: 20
token: abc
validateSSL: false
headers:
  Accept: application/json
defaultEnvironment: staging
environments:
  staging:
    userId: 2
waitFor:
  url: https://jsonplaceholder.typicode.com/posts
`)

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://jsonplaceholder.typicode.com", c.BaseURL)
	assert.Equal(t, 5000, c.Timeout)
	assert.Equal(t, 20.0, c.Rate)
	assert.Equal(t, "abc", c.Token)
	assert.False(t, c.GetValidateSSL())
	assert.True(t, c.GetFollowRedirects(), "defaults survive")
	assert.Equal(t, "application/json", c.Headers["Accept"])
	assert.Equal(t, 2, c.Environments["staging"]["userId"])
	require.NotNil(t, c.WaitFor)
	assert.Equal(t, "https://jsonplaceholder.typicode.com/posts", c.WaitFor.URL)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"unknown key", "baseURL: http://x\n", "field baseURL not found"},
		{"negative timeout", "timeout: -1\n", "timeout must not be negative"},
		{"negative rate", "rate: -2\n", "rate must not be negative"},
		{"undefined default env", "defaultEnvironment: prod\nenvironments:\n  dev: {}\n", `defaultEnvironment "prod"`},
		{"waitFor without url", "waitFor:\n  status: 200\n", "waitFor.url is required"},
		{"invalid yaml", "baseUrl: [\n", "parsing config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), "postcheck.yaml", tt.content)
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "postcheck.yaml", "")
	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL)
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestFindAndLoadConfig(t *testing.T) {
	t.Run("no file gives defaults", func(t *testing.T) {
		c, err := FindAndLoadConfig(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), c)
	})

	t.Run("finds dotfile", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, ".postcheck.yml", "concurrency: 9\n")
		c, err := FindAndLoadConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, 9, c.Concurrency)
		assert.Equal(t, filepath.Join(dir, ".postcheck.yml"), FindConfigFile(dir))
	})
}

func TestTemplateIsValid(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "postcheck.yaml", Template)
	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "local", c.DefaultEnvironment)
	assert.Contains(t, c.Environments, "staging")
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Headers = map[string]string{"Accept": "application/json", "X-Env": "base"}
	base.Environments = map[string]map[string]any{"dev": {"userId": 1}}

	other := &Config{
		BaseURL:      "http://staging:3000",
		Rate:         5,
		Bail:         BoolPtr(true),
		ValidateSSL:  BoolPtr(false),
		Headers:      map[string]string{"X-Env": "staging"},
		Environments: map[string]map[string]any{"staging": {"userId": 2}},
	}

	merged := base.Merge(other)
	assert.Equal(t, "http://staging:3000", merged.BaseURL)
	assert.Equal(t, 5.0, merged.Rate)
	assert.True(t, merged.GetBail())
	assert.False(t, merged.GetValidateSSL())
	assert.Equal(t, 30000, merged.Timeout)
	assert.Equal(t, "application/json", merged.Headers["Accept"])
	assert.Equal(t, "staging", merged.Headers["X-Env"])
	assert.Len(t, merged.Environments, 2)

	// the receiver is not modified
	assert.Equal(t, "base", base.Headers["X-Env"])
	assert.Equal(t, DefaultBaseURL, base.BaseURL)

	assert.Same(t, base, base.Merge(nil))
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postcheck.yaml")
	c := DefaultConfig()
	c.Token = "xyz"
	require.NoError(t, c.SaveConfig(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}
