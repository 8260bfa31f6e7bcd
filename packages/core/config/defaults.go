package config

// DefaultBaseURL is where json-server and the mock backend listen by default.
const DefaultBaseURL = "http://localhost:3000"

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         DefaultBaseURL,
		Timeout:         30000, // 30 seconds
		FollowRedirects: BoolPtr(true),
		MaxRedirects:    10,
		ValidateSSL:     BoolPtr(true),
		Output:          "console",
		Parallel:        BoolPtr(false),
		Concurrency:     5,
		Bail:            BoolPtr(false),
		Verbose:         BoolPtr(false),
		NoColor:         BoolPtr(false),
	}
}

// Template is the starting config written by postcheck init.
const Template = `# postcheck configuration
baseUrl: http://localhost:3000

# timeout per request in milliseconds
timeout: 30000

# requests per second, 0 disables rate limiting
rate: 0

# bearer token sent with every request; the guarded /664 routes need it
# token: "{{$API_TOKEN}}"

headers:
  Accept: application/json

defaultEnvironment: local
environments:
  local:
    userId: 1
  staging:
    userId: 2

# extra YAML scenario files or directories
# suites:
#   - ./checks

# waitFor:
#   url: http://localhost:3000/posts
#   status: 200
#   timeout: 30000

# notify:
#   on: failure
#   slackWebhook: https://hooks.slack.com/services/...
`
