package validator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/volleyhq/volley/pkg/models"
)

// Truthy and falsy tokens scanned by the boolean_check rule. The scan
// is a deliberate keyword heuristic over the raw body, not a
// structured boolean parse.
var (
	truthyTokens = []string{"true", "success", "yes", "ok"}
	falsyTokens  = []string{"false", "error", "no", "fail"}
)

// Evaluate runs every configured rule against the response body and
// status code, independently. A rule that cannot be evaluated (bad
// regex, unparseable body for json_path) fails that rule only; sibling
// rules and the request itself are unaffected. The overall verdict of
// a request is the AND of all rule verdicts, vacuously true when no
// rules are configured.
func Evaluate(body string, statusCode int, rules []models.Rule) []models.Verdict {
	verdicts := make([]models.Verdict, 0, len(rules))
	for _, rule := range rules {
		verdicts = append(verdicts, evaluateRule(body, statusCode, rule))
	}
	return verdicts
}

// AllPassed folds verdicts into the aggregate validation result.
func AllPassed(verdicts []models.Verdict) bool {
	for _, v := range verdicts {
		if !v.Passed {
			return false
		}
	}
	return true
}

func evaluateRule(body string, statusCode int, rule models.Rule) models.Verdict {
	v := models.Verdict{Rule: rule}

	switch rule.Type {
	case models.RuleExists:
		needle := stringify(rule.Value)
		if strings.Contains(body, needle) {
			v.Passed = true
			v.Message = fmt.Sprintf("String '%s' found in response", needle)
		} else {
			v.Message = fmt.Sprintf("String '%s' not found in response", needle)
		}

	case models.RuleNotExists:
		needle := stringify(rule.Value)
		if !strings.Contains(body, needle) {
			v.Passed = true
			v.Message = fmt.Sprintf("String '%s' correctly not found in response", needle)
		} else {
			v.Message = fmt.Sprintf("String '%s' unexpectedly found in response", needle)
		}

	case models.RuleStatusCode:
		expected, err := toInt(rule.Value)
		v.ActualValue = statusCode
		if err != nil {
			v.Message = fmt.Sprintf("Validation error: invalid expected status code %v", rule.Value)
		} else if statusCode == expected {
			v.Passed = true
			v.Message = fmt.Sprintf("Status code matches expected %d", expected)
		} else {
			v.Message = fmt.Sprintf("Status code %d does not match expected %d", statusCode, expected)
		}

	case models.RuleRegexMatch:
		pattern := stringify(rule.Value)
		re, err := regexp.Compile(pattern)
		if err != nil {
			v.Message = fmt.Sprintf("Validation error: invalid regex '%s': %v", pattern, err)
			break
		}
		matches := re.FindAllString(body, -1)
		v.ActualValue = matches
		if len(matches) > 0 {
			v.Passed = true
			v.Message = fmt.Sprintf("Regex pattern '%s' matched %d times", pattern, len(matches))
		} else {
			v.Message = fmt.Sprintf("Regex pattern '%s' did not match", pattern)
		}

	case models.RuleJSONPath:
		evaluateJSONPath(body, rule, &v)

	case models.RuleBooleanCheck:
		lower := strings.ToLower(body)
		if isTruthy(rule.Value) {
			if containsAny(lower, truthyTokens) {
				v.Passed = true
				v.Message = "Response contains truthy value as expected"
			} else {
				v.Message = "Response does not contain expected truthy value"
			}
		} else {
			if containsAny(lower, falsyTokens) {
				v.Passed = true
				v.Message = "Response contains falsy value as expected"
			} else {
				v.Message = "Response does not contain expected falsy value"
			}
		}

	case models.RuleValueCheck:
		expected := stringify(rule.Value)
		if expected == strings.TrimSpace(body) {
			v.Passed = true
			v.Message = "Response exactly matches expected value"
		} else {
			v.Message = fmt.Sprintf("Response does not exactly match expected value '%s'", expected)
			v.ActualValue = truncate(body, 100)
		}

	default:
		v.Message = fmt.Sprintf("Validation error: unknown rule type '%s'", rule.Type)
	}

	return v
}

// evaluateJSONPath parses the body as JSON and walks the dot-separated
// field path, treating purely numeric segments as array indices. Parse
// failures and missing paths fail the rule with a descriptive message.
func evaluateJSONPath(body string, rule models.Rule, v *models.Verdict) {
	if rule.FieldPath == "" {
		v.Message = "JSON path validation failed: no field path configured"
		return
	}
	if !gjson.Valid(body) {
		v.Message = "JSON path validation failed: response is not valid JSON"
		return
	}

	result := gjson.Get(body, rule.FieldPath)
	if !result.Exists() {
		v.Message = fmt.Sprintf("JSON path validation failed: path not found: %s", rule.FieldPath)
		return
	}

	v.ActualValue = result.Value()
	if jsonValueEqual(result, rule.Value) {
		v.Passed = true
		v.Message = fmt.Sprintf("JSON path '%s' value matches expected", rule.FieldPath)
	} else {
		v.Message = fmt.Sprintf("JSON path '%s' value %v does not match expected %v",
			rule.FieldPath, result.Value(), rule.Value)
	}
}

// jsonValueEqual compares an extracted gjson result with the expected
// rule value, honouring the type the client supplied. JSON numbers
// decode as float64, so ints and floats compare numerically.
func jsonValueEqual(result gjson.Result, expected interface{}) bool {
	switch exp := expected.(type) {
	case nil:
		return result.Type == gjson.Null
	case bool:
		return result.IsBool() && result.Bool() == exp
	case float64:
		return result.Type == gjson.Number && result.Num == exp
	case int:
		return result.Type == gjson.Number && result.Num == float64(exp)
	case string:
		return result.Type == gjson.String && result.String() == exp
	default:
		return stringify(expected) == result.String()
	}
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// isTruthy interprets the expected polarity of a boolean_check rule.
func isTruthy(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		return v != ""
	default:
		return true
	}
}

func stringify(value interface{}) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

func toInt(value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(v))
	default:
		return 0, fmt.Errorf("not a number: %v", value)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
