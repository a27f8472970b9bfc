package models

import "time"

// RuleType enumerates the supported validation rule variants.
// The set is closed: the validator switches exhaustively over it.
type RuleType string

const (
	RuleExists       RuleType = "exists"
	RuleNotExists    RuleType = "not_exists"
	RuleValueCheck   RuleType = "value_check"
	RuleBooleanCheck RuleType = "boolean_check"
	RuleStatusCode   RuleType = "status_code"
	RuleRegexMatch   RuleType = "regex_match"
	RuleJSONPath     RuleType = "json_path"
)

// RuleTypes lists every variant, in the order clients see them.
func RuleTypes() []RuleType {
	return []RuleType{
		RuleExists, RuleNotExists, RuleStatusCode, RuleRegexMatch,
		RuleJSONPath, RuleBooleanCheck, RuleValueCheck,
	}
}

// Rule is one validation rule applied to every response of a run.
type Rule struct {
	Type        RuleType    `json:"type"`
	Value       interface{} `json:"value"`
	FieldPath   string      `json:"field_path,omitempty"` // dot-separated, json_path only
	Description string      `json:"description,omitempty"`
}

// Verdict is the outcome of evaluating a single rule against one response.
type Verdict struct {
	Rule        Rule        `json:"rule"`
	Passed      bool        `json:"passed"`
	Message     string      `json:"message"`
	ActualValue interface{} `json:"actual_value,omitempty"`
}

// BodyField is a per-field payload spec. A random field whose value
// parses as a non-empty JSON array draws one element per request;
// anything else passes through unchanged.
type BodyField struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	IsRandom bool   `json:"is_random"`
}

// TestConfig defines the parameters of one load-test run.
type TestConfig struct {
	URL               string            `json:"base_url"`
	Method            string            `json:"http_method"`
	Headers           map[string]string `json:"headers,omitempty"`
	BodyType          string            `json:"body_type"` // json, form, raw
	RequestBody       map[string]string `json:"request_body,omitempty"`
	BodyFields        []BodyField       `json:"body_fields,omitempty"` // takes precedence over RequestBody
	RawBody           string            `json:"raw_body,omitempty"`
	ConcurrentCalls   int               `json:"concurrent_calls"`
	SequentialBatches int               `json:"sequential_batches,omitempty"` // 0 means a single batch
	Rules             []Rule            `json:"validation_rules,omitempty"`
	TimeoutSeconds    int               `json:"timeout"`
	FollowRedirects   bool              `json:"follow_redirects"`
	VerifySSL         bool              `json:"verify_ssl"`
}

// Batches returns the effective sequential batch count.
func (c *TestConfig) Batches() int {
	if c.SequentialBatches < 1 {
		return 1
	}
	return c.SequentialBatches
}

// TotalRequests is the number of requests the run will issue if it is
// not cancelled.
func (c *TestConfig) TotalRequests() int {
	return c.ConcurrentCalls * c.Batches()
}

// Timeout returns the per-request timeout as a duration, defaulting to 30s.
func (c *TestConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Outcome records the result of one request execution.
// ResponseTime is in seconds, matching the wire format of the API.
type Outcome struct {
	Status            string            `json:"status"` // success or error
	ResponseTime      float64           `json:"response_time"`
	StatusCode        int               `json:"status_code,omitempty"`
	ErrorMessage      string            `json:"error_message,omitempty"`
	Timestamp         time.Time         `json:"timestamp"`
	RequestData       map[string]string `json:"request_data,omitempty"`
	ResponseData      string            `json:"response_data,omitempty"`
	ResponseHeaders   map[string]string `json:"response_headers,omitempty"`
	RequestHeaders    map[string]string `json:"request_headers,omitempty"`
	EndpointURL       string            `json:"endpoint_url,omitempty"`
	ValidationResults []Verdict         `json:"validation_results"`
	ValidationPassed  bool              `json:"validation_passed"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// SessionState is the lifecycle state of a test session.
type SessionState string

const (
	StateRunning   SessionState = "running"
	StateCompleted SessionState = "completed"
	StateCancelled SessionState = "cancelled"
	StateFailed    SessionState = "failed"
)

// Terminal reports whether the state admits no further transitions.
func (s SessionState) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Session is the aggregate record of one run.
type Session struct {
	ID        string       `json:"session_id"`
	Config    TestConfig   `json:"config"`
	Status    SessionState `json:"status"`
	StartTime time.Time    `json:"start_time"`
	EndTime   *time.Time   `json:"end_time,omitempty"`
	Results   []Outcome    `json:"results"`
	Stats     *Stats       `json:"stats,omitempty"`
}

// Stats is the summary computed once a run reaches a terminal state.
// Time fields are in seconds.
type Stats struct {
	TotalRequests          int     `json:"total_requests"`
	SuccessfulRequests     int     `json:"successful_requests"`
	FailedRequests         int     `json:"failed_requests"`
	SuccessRate            float64 `json:"success_rate"`
	TotalDuration          float64 `json:"total_test_duration"`
	AvgResponseTime        float64 `json:"avg_response_time"`
	MinResponseTime        float64 `json:"min_response_time"`
	MaxResponseTime        float64 `json:"max_response_time"`
	AvgSuccessResponseTime float64 `json:"avg_successful_response_time"`
	RequestsPerSecond      float64 `json:"requests_per_second"`
	P50ResponseTime        float64 `json:"p50_response_time"`
	P90ResponseTime        float64 `json:"p90_response_time"`
	P95ResponseTime        float64 `json:"p95_response_time"`
	P99ResponseTime        float64 `json:"p99_response_time"`
}

// SavedConfig is a named configuration stored by the config CRUD API.
type SavedConfig struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	SavedAt   time.Time  `json:"saved_at"`
	Config    TestConfig `json:"config"`
}

// Summary is the lightweight session artifact kept in history.
type Summary struct {
	SessionID string       `json:"session_id"`
	Timestamp string       `json:"timestamp"`
	Config    TestConfig   `json:"config"`
	Stats     *Stats       `json:"stats,omitempty"`
	Status    SessionState `json:"status"`
}
