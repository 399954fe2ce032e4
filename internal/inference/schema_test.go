package inference

import (
	"context"
	"errors"
	"testing"

	"github.com/frier-sam/dynamic-saas/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubClient returns a canned reply, or an error, for every call.
type stubClient struct {
	reply string
	err   error
}

func (s stubClient) Complete(_ context.Context, _ []llm.Message, _ string, _ int, _ float32) (string, error) {
	return s.reply, s.err
}

func TestInferSchemaParsesModelOutput(t *testing.T) {
	reply := "Here is your schema:\n```json\n" +
		`{"books": {"fields": {"id": "INTEGER PRIMARY KEY AUTOINCREMENT", "title": "TEXT NOT NULL"}, "description": "Books"}}` +
		"\n```"
	engine := NewSchemaEngine(stubClient{reply: reply}, zap.NewNop())

	schema := engine.InferSchema(context.Background(), "track my books", nil)

	require.Len(t, schema, 1)
	def, ok := schema["books"]
	require.True(t, ok)
	assert.Equal(t, []string{"id", "title"}, def.Fields.Names())
	assert.Equal(t, "Books", def.Description)
}

func TestInferSchemaFallsBackOnModelError(t *testing.T) {
	engine := NewSchemaEngine(stubClient{err: errors.New("rate limited")}, zap.NewNop())

	schema := engine.InferSchema(context.Background(), "manage recipes and ingredients for recipes", nil)

	require.NoError(t, schema.Validate())
	assert.Contains(t, schema, "recipes")
}

func TestInferSchemaFallsBackOnGarbageOutput(t *testing.T) {
	engine := NewSchemaEngine(stubClient{reply: "I cannot help with that."}, zap.NewNop())

	schema := engine.InferSchema(context.Background(), "inventory of warehouse items", nil)

	require.NoError(t, schema.Validate())
}

func TestInferSchemaNilClientUsesFallback(t *testing.T) {
	engine := NewSchemaEngine(nil, zap.NewNop())

	schema := engine.InferSchema(context.Background(), "", nil)

	require.NoError(t, schema.Validate())
	assert.Contains(t, schema, "items")
}

func TestFallbackSchemaTopTwoTablesLinked(t *testing.T) {
	engine := NewSchemaEngine(nil, zap.NewNop())

	// "posts" appears three times, "comments" twice; everything else is noise.
	schema := engine.fallbackSchema(
		"posts posts posts comments comments and some other words once")

	require.Len(t, schema, 2)
	require.Contains(t, schema, "posts")
	require.Contains(t, schema, "comments")

	// The less frequent table carries the link to the more frequent one.
	child := schema["comments"]
	fkType, ok := child.Fields.Get("posts_id")
	require.True(t, ok)
	assert.Equal(t, "INTEGER", fkType)

	// The link column is appended after the standard fields.
	names := child.Fields.Names()
	assert.Equal(t, "posts_id", names[len(names)-1])

	parent := schema["posts"]
	_, hasFK := parent.Fields.Get("comments_id")
	assert.False(t, hasFK)
}

func TestFallbackSchemaSkipsStopwordsAndShortTokens(t *testing.T) {
	engine := NewSchemaEngine(nil, zap.NewNop())

	schema := engine.fallbackSchema("this that with have from the a an customers")

	require.Len(t, schema, 1)
	assert.Contains(t, schema, "customers")
}

func TestFallbackSchemaTieBreakByFirstOccurrence(t *testing.T) {
	engine := NewSchemaEngine(nil, zap.NewNop())

	schema := engine.fallbackSchema("orders invoices orders invoices")

	// Equal counts: first-seen token wins the parent slot, so invoices
	// references orders and not the other way round.
	child := schema["invoices"]
	_, ok := child.Fields.Get("orders_id")
	assert.True(t, ok)
}

func TestFallbackSchemaStandardFields(t *testing.T) {
	engine := NewSchemaEngine(nil, zap.NewNop())

	schema := engine.fallbackSchema("")

	def := schema["items"]
	assert.Equal(t,
		[]string{"id", "name", "description", "created_at", "updated_at"},
		def.Fields.Names())
	idType, _ := def.Fields.Get("id")
	assert.Equal(t, "INTEGER PRIMARY KEY AUTOINCREMENT", idType)
}

func TestAnalyzeRequestShortRequestIsReady(t *testing.T) {
	// The client would ask a question, but short requests never reach it.
	engine := NewSchemaEngine(stubClient{
		reply: `{"understanding": "x", "clarifying_questions": ["What fields?"], "ready_to_proceed": false}`,
	}, zap.NewNop())

	analysis := engine.AnalyzeRequest(context.Background(), "a todo list", 0)

	assert.True(t, analysis.ReadyToProceed)
	assert.Empty(t, analysis.ClarifyingQuestions)
}

func TestAnalyzeRequestAfterOneQuestionAlwaysReady(t *testing.T) {
	engine := NewSchemaEngine(stubClient{
		reply: `{"understanding": "x", "clarifying_questions": ["Another one?"], "ready_to_proceed": false}`,
	}, zap.NewNop())

	analysis := engine.AnalyzeRequest(context.Background(), longDescription(), 1)

	assert.True(t, analysis.ReadyToProceed)
	assert.Empty(t, analysis.ClarifyingQuestions)
}

func TestAnalyzeRequestCapsQuestionsAtOne(t *testing.T) {
	engine := NewSchemaEngine(stubClient{
		reply: `{"understanding": "x", "clarifying_questions": ["First?", "Second?", "Third?"], "ready_to_proceed": false}`,
	}, zap.NewNop())

	analysis := engine.AnalyzeRequest(context.Background(), longDescription(), 0)

	require.Len(t, analysis.ClarifyingQuestions, 1)
	assert.Equal(t, "First?", analysis.ClarifyingQuestions[0])
	assert.False(t, analysis.ReadyToProceed)
}

func TestAnalyzeRequestNoQuestionsForcesReady(t *testing.T) {
	engine := NewSchemaEngine(stubClient{
		reply: `{"understanding": "x", "clarifying_questions": [], "ready_to_proceed": false}`,
	}, zap.NewNop())

	analysis := engine.AnalyzeRequest(context.Background(), longDescription(), 0)

	assert.True(t, analysis.ReadyToProceed)
}

func TestAnalyzeRequestModelErrorProceedsAnyway(t *testing.T) {
	engine := NewSchemaEngine(stubClient{err: errors.New("timeout")}, zap.NewNop())

	analysis := engine.AnalyzeRequest(context.Background(), longDescription(), 0)

	assert.True(t, analysis.ReadyToProceed)
	assert.Empty(t, analysis.ClarifyingQuestions)
}

// longDescription is comfortably over the short-request word threshold.
func longDescription() string {
	return "I need a full project management module with projects tasks milestones " +
		"assignments comments attachments time tracking reporting dashboards " +
		"notifications recurring schedules priorities labels custom statuses " +
		"and an audit trail of every change made by every user in the system"
}
