package posts

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed fixtures/posts.json
var fixtureJSON []byte

//go:embed fixtures/post.schema.json
var PostSchema string

// Fixture returns the bundled sample posts, ids 1 to 100.
func Fixture() ([]Post, error) {
	return decodeFixture(fixtureJSON)
}

// LoadFixture reads a posts fixture from disk. An empty path falls back to
// the bundled fixture.
func LoadFixture(path string) ([]Post, error) {
	if path == "" {
		return Fixture()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	return decodeFixture(data)
}

func decodeFixture(data []byte) ([]Post, error) {
	var list []Post
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decoding fixture: %w", err)
	}
	seen := make(map[int64]bool, len(list))
	for _, p := range list {
		if seen[p.ID] {
			return nil, fmt.Errorf("decoding fixture: %w: %d", ErrDuplicateID, p.ID)
		}
		seen[p.ID] = true
	}
	return list, nil
}
