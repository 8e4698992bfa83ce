package explore

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lyzr/explorer/common/models"
)

const (
	// DefaultExpressionCacheSize is how many compiled programs are kept
	DefaultExpressionCacheSize = 256

	// MaxExpressionLength rejects longer expressions before compiling
	MaxExpressionLength = 1024
)

// ExpressionFilter evaluates CEL predicates against records, e.g.
// `record.count > 100 && record.org == "A"` or `"urgent" in record.tags`.
// Compiled programs live in an LRU cache; only expressions that compile
// are cached.
type ExpressionFilter struct {
	cache *lru.Cache[string, cel.Program]
}

// NewExpressionFilter creates a filter holding DefaultExpressionCacheSize programs
func NewExpressionFilter() *ExpressionFilter {
	return NewExpressionFilterSize(DefaultExpressionCacheSize)
}

// NewExpressionFilterSize creates a filter holding at most size programs
func NewExpressionFilterSize(size int) *ExpressionFilter {
	if size < 1 {
		size = DefaultExpressionCacheSize
	}
	cache, err := lru.New[string, cel.Program](size)
	if err != nil {
		panic(fmt.Sprintf("expression cache: %v", err))
	}
	return &ExpressionFilter{cache: cache}
}

// VisibleRecordsWhere runs the keyword/facet pass, then keeps records for which
// expr evaluates to true. An empty expr applies no extra restriction.
func (e *ExpressionFilter) VisibleRecordsWhere(all []models.Record, keywords KeywordSet, filters models.FilterSelection, expr string) ([]models.Record, error) {
	visible := VisibleRecords(all, keywords, filters)

	expr = strings.TrimSpace(expr)
	if expr == "" {
		return visible, nil
	}

	prg, err := e.program(expr)
	if err != nil {
		return nil, err
	}

	out := make([]models.Record, 0, len(visible))
	for i := range visible {
		ok, err := evalRecord(prg, &visible[i])
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", visible[i].ID, err)
		}
		if ok {
			out = append(out, visible[i])
		}
	}
	return out, nil
}

// Validate compiles expr without evaluating it
func (e *ExpressionFilter) Validate(expr string) error {
	_, err := e.program(strings.TrimSpace(expr))
	return err
}

func (e *ExpressionFilter) program(expr string) (cel.Program, error) {
	if prg, ok := e.cache.Get(expr); ok {
		return prg, nil
	}
	if len(expr) > MaxExpressionLength {
		return nil, fmt.Errorf("expression is %d bytes, limit is %d", len(expr), MaxExpressionLength)
	}

	prg, err := compileCEL(expr)
	if err != nil {
		return nil, err
	}

	e.cache.Add(expr, prg)
	return prg, nil
}

// CacheSize returns the number of compiled expressions
func (e *ExpressionFilter) CacheSize() int {
	return e.cache.Len()
}

func compileCEL(expr string) (cel.Program, error) {
	env, err := cel.NewEnv(
		cel.Variable("record", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation error: %w", issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return prg, nil
}

func evalRecord(prg cel.Program, r *models.Record) (bool, error) {
	out, _, err := prg.Eval(map[string]interface{}{
		"record": recordActivation(r),
	})
	if err != nil {
		return false, fmt.Errorf("CEL evaluation error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return boolean, got %T", out.Value())
	}
	return result, nil
}

// recordActivation exposes the record under the snake_case column names
func recordActivation(r *models.Record) map[string]interface{} {
	conceptID, conceptName := "", ""
	if r.ConceptID != nil {
		conceptID = *r.ConceptID
	}
	if r.ConceptName != nil {
		conceptName = *r.ConceptName
	}

	return map[string]interface{}{
		"id":           r.ID,
		"code_id":      r.CodeID,
		"code_display": r.CodeDisplay,
		"concept_id":   conceptID,
		"concept_name": conceptName,
		"org":          r.Org,
		"category":     r.Category,
		"vocab":        r.Vocab,
		"count":        r.Count,
		"data_version": r.DataVersion,
		"tags":         r.TagTexts(),
	}
}
