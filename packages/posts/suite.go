package posts

import (
	"github.com/abdul-hamid-achik/postcheck/packages/core/suite"
)

// Scenario names of the built-in suite.
const (
	ScenarioListAll       = "return all posts and verify response status code"
	ScenarioFirstTen      = "return only the first 10 posts"
	ScenarioMembers       = "return posts with ID 55 and ID 60"
	ScenarioGuardedCreate = "create on a guarded route is unauthorized"
	ScenarioCreate        = "create a post entity and verify response"
	ScenarioPutNoID       = "404 when updating a non-existing entity"
	ScenarioCreateUpdate  = "create and update a post entity"
	ScenarioDeleteNoID    = "404 when deleting a non-existing post entity"
	ScenarioCRUD          = "create, update and delete a post entity"
)

// Suite returns the posts verification suite. Every call builds fresh
// values so callers may modify the result.
func Suite() *suite.Suite {
	return &suite.Suite{
		Name: "posts",
		Scenarios: []*suite.Scenario{
			listAll(),
			firstTen(),
			members(),
			guardedCreate(),
			create(),
			putWithoutID(),
			createUpdate(),
			deleteWithoutID(),
			crud(),
		},
	}
}

func listAll() *suite.Scenario {
	return &suite.Scenario{
		Name: ScenarioListAll,
		Tags: []string{"read"},
		Steps: []*suite.Step{{
			Name:   "GET /posts",
			Method: "GET",
			Path:   "/posts",
			Assertions: []*suite.Assertion{
				suite.Expect("status", suite.OpEquals, 200),
				suite.Expect("header Content-Type", suite.OpContains, "application/json"),
				suite.Expect("body", suite.OpType, "array"),
				suite.Expect("body.#", suite.OpGreaterThan, 0),
			},
		}},
	}
}

func firstTen() *suite.Scenario {
	checks := []*suite.Assertion{
		suite.Expect("status", suite.OpEquals, 200),
		suite.Expect("body", suite.OpSchema, leadingItemsSchema(10, "id")),
		suite.Expect("body.#.id", suite.OpIncludes, 10),
	}

	return &suite.Scenario{
		Name: ScenarioFirstTen,
		Tags: []string{"read"},
		Steps: []*suite.Step{{
			Name:       "GET /posts",
			Method:     "GET",
			Path:       "/posts",
			Assertions: checks,
		}},
	}
}

// leadingItemsSchema requires field on the first n array elements. Tuple
// items leave shorter arrays and later elements unconstrained.
func leadingItemsSchema(n int, field string) map[string]any {
	items := make([]any, n)
	for i := range items {
		items[i] = map[string]any{
			"type":     "object",
			"required": []any{field},
		}
	}
	return map[string]any{
		"type":  "array",
		"items": items,
	}
}

func members() *suite.Scenario {
	return &suite.Scenario{
		Name: ScenarioMembers,
		Tags: []string{"read"},
		Steps: []*suite.Step{{
			Name:   "GET /posts",
			Method: "GET",
			Path:   "/posts",
			Assertions: []*suite.Assertion{
				suite.Expect("status", suite.OpEquals, 200),
				suite.Expect("body.#.id", suite.OpIncludesAll, []any{55, 60}),
			},
		}},
	}
}

func guardedCreate() *suite.Scenario {
	return &suite.Scenario{
		Name: ScenarioGuardedCreate,
		Tags: []string{"write", "auth"},
		Steps: []*suite.Step{{
			Name:     "POST /664/posts",
			Method:   "POST",
			Path:     "/664/posts",
			Body:     map[string]any{"text": "blabla"},
			Tolerant: true,
			Assertions: []*suite.Assertion{
				suite.Expect("status", suite.OpEquals, 401),
			},
		}},
	}
}

func randomPost() map[string]any {
	return map[string]any{
		"userId": "{{$randomInt()}}",
		"id":     "{{$randomInt()}}",
		"title":  "{{$loremText()}}",
		"body":   "{{$loremSentence()}}",
	}
}

func create() *suite.Scenario {
	return &suite.Scenario{
		Name: ScenarioCreate,
		Tags: []string{"write"},
		Steps: []*suite.Step{{
			Name:   "POST /posts",
			Method: "POST",
			Path:   "/posts",
			Body:   randomPost(),
			Assertions: []*suite.Assertion{
				suite.Expect("status", suite.OpEquals, 201),
				suite.Expect("body", suite.OpEchoes, []any{"userId", "id", "title", "body"}),
				suite.Expect("body", suite.OpSchema, PostSchema),
			},
		}},
	}
}

func putWithoutID() *suite.Scenario {
	return &suite.Scenario{
		Name: ScenarioPutNoID,
		Tags: []string{"write"},
		Steps: []*suite.Step{{
			Name:     "PUT /posts",
			Method:   "PUT",
			Path:     "/posts",
			Body:     randomPost(),
			Tolerant: true,
			Assertions: []*suite.Assertion{
				suite.Expect("status", suite.OpEquals, 404),
			},
		}},
	}
}

func createStep(title, body string) *suite.Step {
	return &suite.Step{
		Name:   "create a post entity",
		Method: "POST",
		Path:   "/posts",
		Body: map[string]any{
			"title":  title,
			"body":   body,
			"userId": 1,
		},
		Assertions: []*suite.Assertion{
			suite.Expect("status", suite.OpEquals, 201),
			suite.Expect("body.id", suite.OpExists, nil),
		},
		Captures: []*suite.Capture{
			suite.CaptureFromBody("postId", "id"),
		},
	}
}

func updateStep(title, body string) *suite.Step {
	return &suite.Step{
		Name:   "update the created post entity",
		Method: "PUT",
		Path:   "/posts/{{postId}}",
		Body: map[string]any{
			"title": title,
			"body":  body,
		},
		Assertions: []*suite.Assertion{
			suite.Expect("status", suite.OpEquals, 200),
			suite.Expect("body", suite.OpEchoes, []any{"title", "body"}),
		},
	}
}

func createUpdate() *suite.Scenario {
	return &suite.Scenario{
		Name: ScenarioCreateUpdate,
		Tags: []string{"write", "crud"},
		Steps: []*suite.Step{
			createStep("some text234", "This is a new post content."),
			updateStep("some text", "This is the updated post content."),
		},
	}
}

func deleteWithoutID() *suite.Scenario {
	return &suite.Scenario{
		Name: ScenarioDeleteNoID,
		Tags: []string{"write"},
		Steps: []*suite.Step{{
			Name:     "DELETE /posts",
			Method:   "DELETE",
			Path:     "/posts",
			Tolerant: true,
			Assertions: []*suite.Assertion{
				suite.Expect("status", suite.OpEquals, 404),
			},
		}},
	}
}

func crud() *suite.Scenario {
	return &suite.Scenario{
		Name: ScenarioCRUD,
		Tags: []string{"write", "crud"},
		Steps: []*suite.Step{
			createStep("New test", "This is a new test"),
			updateStep("Updated Post", "This is the updated post"),
			{
				Name:   "delete the created post entity",
				Method: "DELETE",
				Path:   "/posts/{{postId}}",
				Assertions: []*suite.Assertion{
					suite.Expect("status", suite.OpEquals, 200),
				},
			},
		},
	}
}
