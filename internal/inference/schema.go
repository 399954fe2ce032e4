package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/frier-sam/dynamic-saas/internal/llm"
	"go.uber.org/zap"
)

// SchemaEngine turns a free-text module description into a logical schema.
// The language model does the heavy lifting; every path that can fail ends in
// a deterministic fallback, so InferSchema always returns a usable schema.
type SchemaEngine struct {
	client llm.Client
	logger *zap.Logger
}

// NewSchemaEngine builds a schema engine. A nil client is allowed and simply
// routes every request to the deterministic fallback.
func NewSchemaEngine(client llm.Client, logger *zap.Logger) *SchemaEngine {
	return &SchemaEngine{client: client, logger: logger}
}

// shortRequestWords is the word count under which a request is considered
// simple enough to proceed without clarification.
const shortRequestWords = 30

const schemaSystemPrompt = `You are a database designer for a web-based SaaS platform.
Your task is to create SQLite database tables based on user requirements.

IMPORTANT CONTEXT:
1. We are ONLY designing database tables, fields, and relationships
2. The tables will be used in a web application with a standard form-based UI
3. DO NOT include implementation details or UI-specific fields
4. Follow SQLite syntax and conventions`

const analyzeSystemPrompt = `You are a database designer for a web-based SaaS platform that dynamically creates modules.

IMPORTANT CONTEXT:
1. You're creating ONLY database tables and web UI components within our existing platform
2. The UI is ALREADY defined by our platform - it's a web-based interface with forms and tables
3. We are NOT building standalone applications, command-line tools, or using external frameworks
4. Your ONLY job is to determine what DATABASE TABLES and FIELDS are needed

NEVER ask about implementation details, technology choices, programming languages,
design patterns, or deployment options. ONLY ask critical questions about DATABASE
requirements if absolutely necessary.`

// InferSchema produces a logical schema for the described module. extra
// carries optional clarification answers collected from the user. The result
// is always non-empty: model failure, unparseable output, and invalid schemas
// all degrade to the fallback schema derived from the description itself.
func (e *SchemaEngine) InferSchema(ctx context.Context, description string, extra map[string]string) Schema {
	if e.client == nil {
		return e.fallbackSchema(description)
	}

	contextStr := ""
	if len(extra) > 0 {
		if encoded, err := json.MarshalIndent(extra, "", "  "); err == nil {
			contextStr = "\nAdditional context and clarifications:\n" + string(encoded)
		}
	}

	prompt := fmt.Sprintf(`Design SQLite database tables for this module:

%s%s

Output ONLY a JSON object with this structure:
{
    "table_name": {
        "fields": {
            "id": "INTEGER PRIMARY KEY AUTOINCREMENT",
            "field_name": "DATA_TYPE [CONSTRAINTS]",
            "created_at": "TIMESTAMP DEFAULT CURRENT_TIMESTAMP",
            "updated_at": "TIMESTAMP DEFAULT CURRENT_TIMESTAMP"
        },
        "description": "Purpose of this table"
    }
}

Rules:
1. Use snake_case for table and field names
2. Include standard fields (id, created_at, updated_at) for all tables
3. Use appropriate data types (INTEGER, TEXT, REAL, BOOLEAN, TIMESTAMP)
4. Add foreign keys with naming pattern: related_table_id
5. Include NOT NULL constraints where appropriate`, description, contextStr)

	reply, err := e.client.Complete(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, schemaSystemPrompt, 1000, 0.2)
	if err != nil {
		e.logger.Warn("schema inference call failed, using fallback", zap.Error(err))
		return e.fallbackSchema(description)
	}

	raw, err := extractJSONObject(reply)
	if err != nil {
		e.logger.Warn("no JSON schema found in model response, using fallback")
		return e.fallbackSchema(description)
	}

	var schema Schema
	if err := json.Unmarshal([]byte(raw), &schema); err != nil {
		e.logger.Warn("failed to parse schema from model response, using fallback", zap.Error(err))
		return e.fallbackSchema(description)
	}
	if err := schema.Validate(); err != nil {
		e.logger.Warn("model returned unusable schema, using fallback", zap.Error(err))
		return e.fallbackSchema(description)
	}
	return schema
}

// AnalyzeRequest decides whether the description carries enough information
// to build a module without asking the user anything. Short requests and any
// request that already got one clarification round are always marked ready,
// which caps the clarification dialogue at a single round-trip regardless of
// what the model says.
func (e *SchemaEngine) AnalyzeRequest(ctx context.Context, description string, questionCount int) Analysis {
	if questionCount > 0 || wordCount(description) < shortRequestWords {
		return Analysis{
			Understanding:       "Building module based on user request.",
			ReadyToProceed:      true,
			ClarifyingQuestions: []string{},
		}
	}

	defaultAnalysis := Analysis{
		Understanding:       "Creating database tables based on your request.",
		ReadyToProceed:      true,
		ClarifyingQuestions: []string{},
	}
	if e.client == nil {
		return defaultAnalysis
	}

	prompt := fmt.Sprintf(`I need to create a module in our dynamic SaaS platform based on this request:

"%s"

Return a JSON response:
{
    "understanding": "Brief description of the database tables needed",
    "clarifying_questions": ["ONLY include critical database structure questions if absolutely necessary"],
    "ready_to_proceed": true/false
}

REMEMBER:
- We're ONLY creating database tables and fields
- The UI is already handled by our platform
- DO NOT ask about implementation details, frameworks, or technology choices
- For simple requests, make reasonable assumptions and set ready_to_proceed to true`, description)

	reply, err := e.client.Complete(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, analyzeSystemPrompt, 1000, 0.2)
	if err != nil {
		e.logger.Warn("request analysis call failed, proceeding anyway", zap.Error(err))
		return defaultAnalysis
	}

	raw, err := extractJSONObject(reply)
	if err != nil {
		return defaultAnalysis
	}
	var analysis Analysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		e.logger.Warn("failed to parse analysis from model response, proceeding anyway", zap.Error(err))
		return defaultAnalysis
	}

	// One question maximum per request.
	if len(analysis.ClarifyingQuestions) > 1 {
		analysis.ClarifyingQuestions = analysis.ClarifyingQuestions[:1]
	}
	if analysis.ClarifyingQuestions == nil {
		analysis.ClarifyingQuestions = []string{}
	}
	if len(analysis.ClarifyingQuestions) == 0 {
		analysis.ReadyToProceed = true
	}
	return analysis
}

var fallbackStopwords = map[string]struct{}{
	"this": {}, "that": {}, "with": {}, "have": {}, "where": {},
	"what": {}, "when": {}, "from": {}, "their": {},
}

// fallbackSchema derives a schema from the description alone: rank the
// non-stopword tokens by frequency, take the top two as table names, and link
// the second to the first by convention. A description with no usable tokens
// still yields a generic items table, so inference never comes back empty.
func (e *SchemaEngine) fallbackSchema(description string) Schema {
	cleaned := strings.NewReplacer(",", " ", ".", " ").Replace(strings.ToLower(description))
	words := strings.Fields(cleaned)

	counts := map[string]int{}
	firstSeen := map[string]int{}
	for i, w := range words {
		if len(w) <= 3 {
			continue
		}
		if _, stop := fallbackStopwords[w]; stop {
			continue
		}
		if _, seen := counts[w]; !seen {
			firstSeen[w] = i
		}
		counts[w]++
	}

	candidates := make([]string, 0, len(counts))
	for w := range counts {
		candidates = append(candidates, w)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if counts[candidates[i]] != counts[candidates[j]] {
			return counts[candidates[i]] > counts[candidates[j]]
		}
		return firstSeen[candidates[i]] < firstSeen[candidates[j]]
	})
	if len(candidates) > 2 {
		candidates = candidates[:2]
	}

	schema := Schema{}
	if len(candidates) == 0 {
		schema["items"] = TableDef{
			Fields:      standardFallbackFields(),
			Description: "Main data table for the module",
		}
		return schema
	}

	for _, name := range candidates {
		schema[name] = TableDef{
			Fields:      standardFallbackFields(),
			Description: fmt.Sprintf("Table for %s", name),
		}
	}
	if len(candidates) >= 2 {
		parent, child := candidates[0], candidates[1]
		def := schema[child]
		def.Fields.Set(parent+"_id", "INTEGER")
		schema[child] = def
	}
	return schema
}

func standardFallbackFields() FieldMap {
	return NewFieldMap(
		"id", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"name", "TEXT NOT NULL",
		"description", "TEXT",
		"created_at", "TIMESTAMP DEFAULT CURRENT_TIMESTAMP",
		"updated_at", "TIMESTAMP DEFAULT CURRENT_TIMESTAMP",
	)
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
