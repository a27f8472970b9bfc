package runner

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/volleyhq/volley/pkg/models"
	"golang.org/x/net/http2"
)

// Publisher receives session-scoped progress events. A nil Publisher
// disables event delivery without affecting execution.
type Publisher interface {
	Publish(sessionID string, event interface{})
}

// Engine executes one load-test run: sequential batches of concurrent
// requests against a single endpoint, with a dedicated HTTP client
// configured from the run's settings.
type Engine struct {
	cfg    models.TestConfig
	client *http.Client
	pub    Publisher
}

// New builds an engine and its outbound client. A construction error
// here is a run-level failure: no requests have been issued yet.
func New(cfg models.TestConfig, pub Publisher) (*Engine, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid target url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}

	maxConns := cfg.ConcurrentCalls * 2
	if maxConns < 100 {
		maxConns = 100
	}

	transport := &http.Transport{
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: !cfg.VerifySSL},
		MaxIdleConns:        maxConns,
		MaxIdleConnsPerHost: maxConns,
		MaxConnsPerHost:     maxConns,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
	// HTTP/2 with automatic fallback to HTTP/1.1.
	_ = http2.ConfigureTransport(transport)

	client := &http.Client{
		Timeout:   cfg.Timeout(),
		Transport: transport,
	}
	if !cfg.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return &Engine{cfg: cfg, client: client, pub: pub}, nil
}

// Run issues the configured batches and returns outcomes in completion
// order within each batch, batches concatenated in submission order.
// The cancellation flag is sampled only at batch boundaries: a batch
// already launched always drains before Run returns.
func (e *Engine) Run(sessionID string, cancelled *atomic.Bool) []models.Outcome {
	width := e.cfg.ConcurrentCalls
	batches := e.cfg.Batches()

	e.publish(sessionID, models.TestStartedEvent{
		Type:          models.EventTestStarted,
		SessionID:     sessionID,
		TotalRequests: e.cfg.TotalRequests(),
	})

	outcomes := make([]models.Outcome, 0, width*batches)
	for b := 0; b < batches; b++ {
		if cancelled != nil && cancelled.Load() {
			break
		}

		e.publish(sessionID, models.BatchStartedEvent{
			Type:         models.EventBatchStarted,
			SessionID:    sessionID,
			BatchNum:     b + 1,
			TotalBatches: batches,
		})

		results := make(chan models.Outcome, width)
		for i := 0; i < width; i++ {
			go func(requestNum int) {
				outcome := e.execute(requestNum)
				e.publishOutcome(sessionID, requestNum, outcome)
				results <- outcome
			}(i + b*width)
		}
		for i := 0; i < width; i++ {
			outcomes = append(outcomes, <-results)
		}
	}
	return outcomes
}

func (e *Engine) publish(sessionID string, event interface{}) {
	if e.pub != nil {
		e.pub.Publish(sessionID, event)
	}
}

func (e *Engine) publishOutcome(sessionID string, requestNum int, o models.Outcome) {
	if e.pub == nil {
		return
	}
	e.pub.Publish(sessionID, models.RequestCompletedEvent{
		Type:              models.EventRequestCompleted,
		SessionID:         sessionID,
		RequestNum:        requestNum + 1,
		Status:            o.Status,
		ResponseTime:      o.ResponseTime,
		StatusCode:        o.StatusCode,
		ValidationPassed:  o.ValidationPassed,
		ValidationResults: o.ValidationResults,
		ErrorMessage:      o.ErrorMessage,
		RequestData:       o.RequestData,
		ResponseData:      truncateBody(o.ResponseData, maxStoredBody),
		Headers:           o.ResponseHeaders,
		EndpointURL:       o.EndpointURL,
	})
}
