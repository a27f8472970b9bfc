package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volleyhq/volley/pkg/models"
)

func TestEvaluateNoRules(t *testing.T) {
	verdicts := Evaluate(`{"anything":"goes"}`, 200, nil)
	assert.Empty(t, verdicts)
	assert.True(t, AllPassed(verdicts), "zero configured rules must pass vacuously")
}

func TestExists(t *testing.T) {
	rules := []models.Rule{{Type: models.RuleExists, Value: "ok"}}

	verdicts := Evaluate("status: ok", 200, rules)
	require.Len(t, verdicts, 1)
	assert.True(t, verdicts[0].Passed)
	assert.Contains(t, verdicts[0].Message, "found in response")

	verdicts = Evaluate("status: down", 200, rules)
	assert.False(t, verdicts[0].Passed)
	assert.Contains(t, verdicts[0].Message, "not found")
}

func TestNotExists(t *testing.T) {
	rules := []models.Rule{{Type: models.RuleNotExists, Value: "ok"}}

	verdicts := Evaluate("status: ok", 200, rules)
	require.Len(t, verdicts, 1)
	assert.False(t, verdicts[0].Passed, "NotExists must fail when the string is present")

	verdicts = Evaluate("status: down", 200, rules)
	assert.True(t, verdicts[0].Passed)
}

func TestStatusCode(t *testing.T) {
	rules := []models.Rule{{Type: models.RuleStatusCode, Value: float64(200)}}

	verdicts := Evaluate("", 200, rules)
	require.Len(t, verdicts, 1)
	assert.True(t, verdicts[0].Passed)
	assert.Equal(t, 200, verdicts[0].ActualValue)

	verdicts = Evaluate("", 404, rules)
	assert.False(t, verdicts[0].Passed)
	assert.Equal(t, 404, verdicts[0].ActualValue)
	assert.Contains(t, verdicts[0].Message, "404")
}

func TestRegexMatch(t *testing.T) {
	rules := []models.Rule{{Type: models.RuleRegexMatch, Value: `user-\d+`}}

	verdicts := Evaluate("user-1 user-2", 200, rules)
	require.Len(t, verdicts, 1)
	assert.True(t, verdicts[0].Passed)
	assert.Contains(t, verdicts[0].Message, "matched 2 times")
	assert.Equal(t, []string{"user-1", "user-2"}, verdicts[0].ActualValue)

	verdicts = Evaluate("nobody here", 200, rules)
	assert.False(t, verdicts[0].Passed)
}

func TestRegexCompileFailureFailsOnlyThatRule(t *testing.T) {
	rules := []models.Rule{
		{Type: models.RuleRegexMatch, Value: `([unclosed`},
		{Type: models.RuleExists, Value: "ok"},
	}
	verdicts := Evaluate("ok", 200, rules)
	require.Len(t, verdicts, 2)
	assert.False(t, verdicts[0].Passed)
	assert.Contains(t, verdicts[0].Message, "invalid regex")
	assert.True(t, verdicts[1].Passed, "sibling rules must be unaffected")
}

func TestJSONPath(t *testing.T) {
	rules := []models.Rule{{Type: models.RuleJSONPath, Value: float64(7), FieldPath: "data.0.id"}}

	verdicts := Evaluate(`{"data":[{"id":7}]}`, 200, rules)
	require.Len(t, verdicts, 1)
	assert.True(t, verdicts[0].Passed)
	assert.Equal(t, float64(7), verdicts[0].ActualValue)

	// Index out of range fails the rule without panicking.
	verdicts = Evaluate(`{"data":[]}`, 200, rules)
	assert.False(t, verdicts[0].Passed)
	assert.Contains(t, verdicts[0].Message, "path not found")
}

func TestJSONPathStringAndBool(t *testing.T) {
	body := `{"user":{"name":"amira","active":true}}`

	verdicts := Evaluate(body, 200, []models.Rule{
		{Type: models.RuleJSONPath, Value: "amira", FieldPath: "user.name"},
		{Type: models.RuleJSONPath, Value: true, FieldPath: "user.active"},
		{Type: models.RuleJSONPath, Value: "amira", FieldPath: "user.missing"},
	})
	assert.True(t, verdicts[0].Passed)
	assert.True(t, verdicts[1].Passed)
	assert.False(t, verdicts[2].Passed)
}

func TestJSONPathInvalidBody(t *testing.T) {
	verdicts := Evaluate("<html>not json</html>", 200, []models.Rule{
		{Type: models.RuleJSONPath, Value: float64(1), FieldPath: "a.b"},
	})
	require.Len(t, verdicts, 1)
	assert.False(t, verdicts[0].Passed)
	assert.Contains(t, verdicts[0].Message, "not valid JSON")
}

func TestBooleanCheck(t *testing.T) {
	truthy := []models.Rule{{Type: models.RuleBooleanCheck, Value: true}}
	falsy := []models.Rule{{Type: models.RuleBooleanCheck, Value: false}}

	// Keyword scan is case-insensitive and intentionally approximate.
	assert.True(t, Evaluate(`{"result":"SUCCESS"}`, 200, truthy)[0].Passed)
	assert.True(t, Evaluate("everything is ok", 200, truthy)[0].Passed)
	assert.False(t, Evaluate("nothing to see", 200, truthy)[0].Passed)

	assert.True(t, Evaluate(`{"result":"error"}`, 200, falsy)[0].Passed)
	assert.False(t, Evaluate("all good", 200, falsy)[0].Passed)
}

func TestValueCheck(t *testing.T) {
	rules := []models.Rule{{Type: models.RuleValueCheck, Value: "pong"}}

	assert.True(t, Evaluate("  pong\n", 200, rules)[0].Passed, "surrounding whitespace is trimmed")

	verdicts := Evaluate("ping", 200, rules)
	assert.False(t, verdicts[0].Passed)
	assert.Equal(t, "ping", verdicts[0].ActualValue)
}

func TestAllPassedAggregation(t *testing.T) {
	verdicts := Evaluate("status: ok", 200, []models.Rule{
		{Type: models.RuleExists, Value: "ok"},
		{Type: models.RuleStatusCode, Value: float64(201)},
	})
	assert.True(t, verdicts[0].Passed)
	assert.False(t, verdicts[1].Passed)
	assert.False(t, AllPassed(verdicts), "overall verdict is the AND of all rules")
}
