package models

// Event type discriminators carried in the "type" field of every
// real-time message.
const (
	EventTestStarted      = "test_started"
	EventBatchStarted     = "batch_started"
	EventRequestCompleted = "request_completed"
	EventTestCompleted    = "test_completed"
	EventTestCancelled    = "test_cancelled"
	EventTestFailed       = "test_failed"
)

// TestStartedEvent announces a run and its planned request count.
type TestStartedEvent struct {
	Type          string `json:"type"`
	SessionID     string `json:"session_id"`
	TotalRequests int    `json:"total_requests"`
}

// BatchStartedEvent announces the start of one sequential batch.
// BatchNum is 1-based.
type BatchStartedEvent struct {
	Type         string `json:"type"`
	SessionID    string `json:"session_id"`
	BatchNum     int    `json:"batch_num"`
	TotalBatches int    `json:"total_batches"`
}

// RequestCompletedEvent carries one finished request. ResponseData is
// truncated for transport; the full body stays on the session artifact.
type RequestCompletedEvent struct {
	Type              string            `json:"type"`
	SessionID         string            `json:"session_id"`
	RequestNum        int               `json:"request_num"` // 1-based global index
	Status            string            `json:"status"`
	ResponseTime      float64           `json:"response_time"`
	StatusCode        int               `json:"status_code,omitempty"`
	ValidationPassed  bool              `json:"validation_passed"`
	ValidationResults []Verdict         `json:"validation_results"`
	ErrorMessage      string            `json:"error_message,omitempty"`
	RequestData       map[string]string `json:"request_data,omitempty"`
	ResponseData      string            `json:"response_data,omitempty"`
	Headers           map[string]string `json:"headers,omitempty"`
	EndpointURL       string            `json:"endpoint_url,omitempty"`
}

// TestCompletedEvent closes a run that finished naturally.
type TestCompletedEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Stats     *Stats `json:"stats"`
}

// TestCancelledEvent closes a cancelled run; partial stats included.
type TestCancelledEvent struct {
	Type              string `json:"type"`
	SessionID         string `json:"session_id"`
	Stats             *Stats `json:"stats"`
	CompletedRequests int    `json:"completed_requests"`
}

// TestFailedEvent reports a run-level failure. No results accompany it.
type TestFailedEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Error     string `json:"error"`
}
