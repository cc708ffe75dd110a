package graph

import (
	"context"
	"strings"
	"testing"

	"github.com/graphql-go/graphql"

	"github.com/bearfolio/bearfolio/internal/model"
)

func newTestSchema(t *testing.T, deps *testDeps) graphql.Schema {
	t.Helper()
	schema, err := NewSchema(deps.resolver())
	if err != nil {
		t.Fatalf("NewSchema failed: %v", err)
	}
	return schema
}

func execute(schema graphql.Schema, ctx context.Context, query string) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: query,
		Context:       ctx,
	})
}

func TestSchema_StudentsQuery(t *testing.T) {
	deps := newTestDeps()
	deps.profileRepo.listPublicFunc = func(_ context.Context) ([]*model.Profile, error) {
		return []*model.Profile{publicProfile()}, nil
	}
	schema := newTestSchema(t, deps)

	result := execute(schema, context.Background(), `{ students { id name state } }`)
	if len(result.Errors) > 0 {
		t.Fatalf("query errors: %v", result.Errors)
	}

	data := result.Data.(map[string]any)
	students := data["students"].([]any)
	if len(students) != 1 {
		t.Fatalf("students count = %d, want 1", len(students))
	}
	first := students[0].(map[string]any)
	if first["id"] != "profile-1" || first["name"] != "Alice Lee" || first["state"] != "public" {
		t.Errorf("student = %v", first)
	}
}

func TestSchema_CreateProfileMutation(t *testing.T) {
	deps := newTestDeps()
	var created *model.Profile
	deps.profileRepo.createFunc = func(_ context.Context, profile *model.Profile) error {
		created = profile
		return nil
	}
	schema := newTestSchema(t, deps)

	mutation := `mutation {
		createProfile(input: {name: "Alice", headline: "CS sophomore"}) {
			id
			name
			headline
			version
		}
	}`
	result := execute(schema, ctxWith(owner()), mutation)
	if len(result.Errors) > 0 {
		t.Fatalf("mutation errors: %v", result.Errors)
	}

	if created == nil {
		t.Fatal("Createが呼ばれていない")
	}
	data := result.Data.(map[string]any)
	profile := data["createProfile"].(map[string]any)
	if profile["name"] != "Alice" || profile["headline"] != "CS sophomore" {
		t.Errorf("profile = %v", profile)
	}
	if profile["version"] != 1 {
		t.Errorf("version = %v, want 1", profile["version"])
	}
}

func TestSchema_MutationRequiresAuth(t *testing.T) {
	deps := newTestDeps()
	schema := newTestSchema(t, deps)

	result := execute(schema, context.Background(),
		`mutation { createProfile(input: {name: "X"}) { id } }`)
	if len(result.Errors) == 0 {
		t.Fatal("匿名のミューテーションがエラーにならない")
	}
	if !strings.Contains(result.Errors[0].Message, "not authorized") {
		t.Errorf("error = %q, want not authorized", result.Errors[0].Message)
	}
}

func TestSchema_SearchQuery(t *testing.T) {
	deps := newTestDeps()
	var gotText string
	deps.search.fullTextFunc = func(_ context.Context, text string) ([]*model.PortfolioItem, error) {
		gotText = text
		return []*model.PortfolioItem{
			{Auditable: model.Auditable{ID: "item-1"}, Title: "Robotics", State: model.ItemStatePublished},
		}, nil
	}
	schema := newTestSchema(t, deps)

	result := execute(schema, context.Background(), `{ search(text: "robot") { id title } }`)
	if len(result.Errors) > 0 {
		t.Fatalf("query errors: %v", result.Errors)
	}
	if gotText != "robot" {
		t.Errorf("search text = %q, want robot", gotText)
	}

	items := result.Data.(map[string]any)["search"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["title"] != "Robotics" {
		t.Errorf("items = %v", items)
	}
}

func TestSchema_ItemDoesNotExposeEmbedding(t *testing.T) {
	deps := newTestDeps()
	schema := newTestSchema(t, deps)

	result := execute(schema, context.Background(), `{ search(text: "x") { embedding } }`)
	if len(result.Errors) == 0 {
		t.Error("embeddingフィールドがスキーマに公開されている")
	}
}
