package runner

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/volleyhq/volley/internal/validator"
	"github.com/volleyhq/volley/pkg/models"
)

const (
	userAgent = "Volley-Load-Suite/2.0"

	// Responses are read in fixed-size chunks and concatenated.
	readChunkSize = 1024

	// Response bodies are capped at this size on outcomes and events;
	// validation always sees the full body.
	maxStoredBody = 10 * 1024
)

// execute performs one request at global index requestNum and converts
// whatever happens into an Outcome. Errors of any kind (dial failure,
// timeout, decode trouble) become error outcomes; they never propagate
// to the batch loop.
func (e *Engine) execute(requestNum int) models.Outcome {
	start := time.Now()
	timestamp := start

	headers := e.buildHeaders()
	payload := BuildPayload(&e.cfg)

	req, err := e.newRequest(headers, payload)
	if err != nil {
		return e.errorOutcome(timestamp, time.Since(start), headers, payload, err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return e.errorOutcome(timestamp, time.Since(start), headers, payload, err)
	}
	defer resp.Body.Close()

	body := readBody(resp.Body)
	elapsed := time.Since(start)

	verdicts := validator.Evaluate(body, resp.StatusCode, e.cfg.Rules)
	passed := validator.AllPassed(verdicts)

	status := models.StatusError
	if resp.StatusCode == http.StatusOK && passed {
		status = models.StatusSuccess
	}

	return models.Outcome{
		Status:            status,
		ResponseTime:      elapsed.Seconds(),
		StatusCode:        resp.StatusCode,
		Timestamp:         timestamp,
		RequestData:       payload,
		ResponseData:      truncateBody(body, maxStoredBody),
		ResponseHeaders:   flattenHeader(resp.Header),
		RequestHeaders:    headers,
		EndpointURL:       e.cfg.URL,
		ValidationResults: verdicts,
		ValidationPassed:  passed,
	}
}

// buildHeaders assembles the request headers: fixed user agent,
// overridden or extended by configured custom headers, with a
// content type injected for body-carrying methods when none is set.
func (e *Engine) buildHeaders() map[string]string {
	headers := map[string]string{"User-Agent": userAgent}
	for k, v := range e.cfg.Headers {
		headers[k] = v
	}

	if hasBody(e.cfg.Method) {
		if _, ok := headers["Content-Type"]; !ok {
			switch e.cfg.BodyType {
			case "json":
				headers["Content-Type"] = "application/json"
			case "form":
				headers["Content-Type"] = "application/x-www-form-urlencoded"
			}
		}
	}
	return headers
}

func hasBody(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

func (e *Engine) newRequest(headers map[string]string, payload map[string]string) (*http.Request, error) {
	var body io.Reader
	if hasBody(e.cfg.Method) {
		switch e.cfg.BodyType {
		case "form":
			form := url.Values{}
			for k, v := range payload {
				form.Set(k, v)
			}
			body = strings.NewReader(form.Encode())
		case "raw":
			if e.cfg.RawBody != "" {
				body = strings.NewReader(e.cfg.RawBody)
			}
		default: // json
			encoded, err := json.Marshal(payload)
			if err != nil {
				return nil, err
			}
			body = strings.NewReader(string(encoded))
		}
	}

	req, err := http.NewRequest(strings.ToUpper(e.cfg.Method), e.cfg.URL, body)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// readBody drains the response in fixed-size chunks. Invalid UTF-8 is
// replaced rather than failing the request; a mid-stream read error
// truncates the body but keeps whatever arrived.
func readBody(r io.Reader) string {
	var sb strings.Builder
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			sb.Write(buf[:n])
		}
		if err != nil {
			break
		}
	}
	return strings.ToValidUTF8(sb.String(), "�")
}

func (e *Engine) errorOutcome(ts time.Time, elapsed time.Duration, headers, payload map[string]string, err error) models.Outcome {
	return models.Outcome{
		Status:            models.StatusError,
		ResponseTime:      elapsed.Seconds(),
		ErrorMessage:      err.Error(),
		Timestamp:         ts,
		RequestData:       payload,
		RequestHeaders:    headers,
		EndpointURL:       e.cfg.URL,
		ValidationResults: []models.Verdict{},
		ValidationPassed:  false,
	}
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vals := range h {
		out[k] = strings.Join(vals, ", ")
	}
	return out
}

func truncateBody(body string, max int) string {
	if len(body) <= max {
		return body
	}
	return body[:max]
}
