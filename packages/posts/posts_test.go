package posts_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/postcheck/packages/core/runner"
	"github.com/abdul-hamid-achik/postcheck/packages/core/suite"
	"github.com/abdul-hamid-achik/postcheck/packages/db"
	"github.com/abdul-hamid-achik/postcheck/packages/mock"
	"github.com/abdul-hamid-achik/postcheck/packages/posts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// totalSteps is the number of steps in posts.Suite.
const totalSteps = 12

func newBackend(t *testing.T, opts ...mock.Option) *mock.Server {
	t.Helper()
	fixture, err := posts.Fixture()
	require.NoError(t, err)

	server := mock.NewServer(opts...)
	require.NoError(t, server.Seed(context.Background(), fixture))
	return server
}

func serve(t *testing.T, h http.Handler) string {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts.URL
}

func run(t *testing.T, cfg *runner.Config) *runner.RunResult {
	t.Helper()
	result, err := runner.NewRunner(cfg).RunSuite(context.Background(), posts.Suite())
	require.NoError(t, err)
	return result
}

func failures(result *runner.RunResult) []string {
	var names []string
	for _, r := range result.Results {
		if !r.Passed && !r.Skipped {
			names = append(names, r.FullName())
		}
	}
	return names
}

func TestSuite_IsValid(t *testing.T) {
	s := posts.Suite()
	require.NoError(t, suite.Validate(s))
	assert.Len(t, s.Scenarios, 9)

	steps := 0
	for _, sc := range s.Scenarios {
		steps += len(sc.Steps)
	}
	assert.Equal(t, totalSteps, steps)
}

func TestSuite_FreshValues(t *testing.T) {
	a := posts.Suite()
	a.Scenarios[0].Name = "changed"
	assert.Equal(t, posts.ScenarioListAll, posts.Suite().Scenarios[0].Name)
}

func TestSuite_PassesAgainstMock(t *testing.T) {
	baseURL := serve(t, newBackend(t, mock.WithToken("s3cret")).Handler())

	result := run(t, &runner.Config{BaseURL: baseURL, FollowRedirect: true, Timeout: 5 * time.Second})

	assert.Empty(t, failures(result))
	assert.Equal(t, totalSteps, result.Passed)
	assert.Zero(t, result.Skipped)
	assert.True(t, result.Success())
	assert.Equal(t, int64(totalSteps), result.Latency.Count)
}

func TestSuite_PassesInParallel(t *testing.T) {
	baseURL := serve(t, newBackend(t).Handler())

	result := run(t, &runner.Config{BaseURL: baseURL, Parallel: true, Concurrency: 4})

	assert.Empty(t, failures(result))
	assert.Equal(t, totalSteps, result.Passed)

	// results keep declaration order
	require.Len(t, result.Scenarios, 9)
	assert.Equal(t, posts.ScenarioListAll, result.Scenarios[0].Name)
	assert.Equal(t, posts.ScenarioCRUD, result.Scenarios[8].Name)
}

func TestSuite_PassesAgainstSQLiteStore(t *testing.T) {
	store, err := db.OpenPostStore(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "posts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	baseURL := serve(t, newBackend(t, mock.WithStore(store)).Handler())

	result := run(t, &runner.Config{BaseURL: baseURL})
	assert.Empty(t, failures(result))
}

func TestSuite_TokenUnlocksGuardedRoute(t *testing.T) {
	baseURL := serve(t, newBackend(t, mock.WithToken("s3cret")).Handler())

	result := run(t, &runner.Config{BaseURL: baseURL, Token: "s3cret"})

	// with credentials the guarded create succeeds, so the 401 expectation fails
	assert.Equal(t, []string{posts.ScenarioGuardedCreate + " / POST /664/posts"}, failures(result))
}

func TestSuite_FailuresStayInsideTheirScenario(t *testing.T) {
	backend := newBackend(t).Handler()
	broken := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/posts" {
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
			return
		}
		backend.ServeHTTP(w, r)
	})

	result := run(t, &runner.Config{BaseURL: serve(t, broken)})

	byName := make(map[string]*runner.ScenarioResult)
	for _, sc := range result.Scenarios {
		byName[sc.Name] = sc
	}

	for _, name := range []string{
		posts.ScenarioListAll,
		posts.ScenarioFirstTen,
		posts.ScenarioMembers,
		posts.ScenarioGuardedCreate,
		posts.ScenarioPutNoID,
		posts.ScenarioDeleteNoID,
	} {
		assert.False(t, byName[name].Failed(), name)
	}

	assert.True(t, byName[posts.ScenarioCreate].Failed())

	crud := byName[posts.ScenarioCRUD]
	require.Len(t, crud.Steps, 3)
	assert.False(t, crud.Steps[0].Passed)
	for _, step := range crud.Steps[1:] {
		assert.True(t, step.Skipped)
		assert.Equal(t, runner.SkipReasonPrevious, step.SkipReason)
	}

	assert.Equal(t, 3, result.Failed)
	assert.Equal(t, 3, result.Skipped)
}

func TestSuite_UnreachableBackend(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	result := run(t, &runner.Config{BaseURL: url, Timeout: time.Second})
	assert.False(t, result.Success())
	assert.Zero(t, result.Passed)
	for _, r := range result.Results {
		if !r.Skipped {
			assert.Error(t, r.Error, r.FullName())
		}
	}
}

func TestFixture(t *testing.T) {
	list, err := posts.Fixture()
	require.NoError(t, err)
	require.Len(t, list, 100)

	for i, p := range list {
		assert.Equal(t, int64(i+1), p.ID)
		assert.Equal(t, int64(i/10+1), p.UserID)
		assert.NotEmpty(t, p.Title)
		assert.NotEmpty(t, p.Body)
	}
}

func TestLoadFixture(t *testing.T) {
	bundled, err := posts.LoadFixture("")
	require.NoError(t, err)
	assert.Len(t, bundled, 100)

	dir := t.TempDir()
	good := filepath.Join(dir, "posts.json")
	require.NoError(t, os.WriteFile(good, []byte(`[{"userId":1,"id":7,"title":"t","body":"b"}]`), 0644))
	list, err := posts.LoadFixture(good)
	require.NoError(t, err)
	assert.Equal(t, []posts.Post{{UserID: 1, ID: 7, Title: "t", Body: "b"}}, list)

	dup := filepath.Join(dir, "dup.json")
	require.NoError(t, os.WriteFile(dup, []byte(`[{"id":1},{"id":1}]`), 0644))
	_, err = posts.LoadFixture(dup)
	assert.ErrorIs(t, err, posts.ErrDuplicateID)

	_, err = posts.LoadFixture(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestPostPatch_Apply(t *testing.T) {
	title := "new"
	p := posts.PostPatch{Title: &title}.Apply(posts.Post{ID: 3, UserID: 1, Title: "old", Body: "kept"})
	assert.Equal(t, posts.Post{ID: 3, UserID: 1, Title: "new", Body: "kept"}, p)
}

func TestSuite_FirstTenOnShortListings(t *testing.T) {
	tests := []struct {
		name    string
		listing string
		passed  bool
	}{
		{"two posts", `[{"id":3},{"id":10}]`, true},
		{"later element without id", `[{"id":1},{"id":2},{"id":3},{"id":4},{"id":5},{"id":6},{"id":7},{"id":8},{"id":9},{"id":10},{"title":"x"}]`, true},
		{"leading element without id", `[{"id":10},{"title":"x"}]`, false},
		{"id 10 missing", `[{"id":1},{"id":2}]`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.listing))
			})

			result := run(t, &runner.Config{
				BaseURL:    serve(t, listing),
				NameFilter: posts.ScenarioFirstTen,
			})
			assert.Equal(t, tt.passed, result.Success(), failures(result))
			assert.Equal(t, totalSteps-1, result.Skipped)
		})
	}
}
