package ensemble

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/scenariolab/workbench/internal/httputil"
	"github.com/scenariolab/workbench/internal/params"
	"github.com/scenariolab/workbench/internal/results"
	"github.com/scenariolab/workbench/internal/sampling"
)

// HTTPAdapter runs experiments against a model served over HTTP. This is
// the process-isolation path for simulators that are not reentrant or not
// written in Go: each call POSTs the scenario and policy as JSON and
// reads back outcomes or an error description.
//
// Request body:  {"scenario": {...}, "policy": {...}}
// Response body: {"outcomes": {"name": 1.5, "series": [1,2]}} or
// {"error": "reason"} with any status.
type HTTPAdapter struct {
	URL    string
	Client httputil.HTTPClient
}

// NewHTTPAdapter returns an adapter posting to url. A nil client uses
// http.DefaultClient.
func NewHTTPAdapter(url string, client httputil.HTTPClient) *HTTPAdapter {
	if client == nil {
		client = httputil.NewStandardClient(nil)
	}
	return &HTTPAdapter{URL: url, Client: client}
}

type httpRunRequest struct {
	Scenario map[string]params.Value `json:"scenario"`
	Policy   map[string]params.Value `json:"policy"`
}

type httpRunResponse struct {
	Outcomes map[string]json.RawMessage `json:"outcomes"`
	Error    string                     `json:"error,omitempty"`
}

// Run implements ModelAdapter.
func (a *HTTPAdapter) Run(ctx context.Context, scenario, policy sampling.Assignment) (results.Outcome, error) {
	body, err := json.Marshal(httpRunRequest{
		Scenario: scenario.Values,
		Policy:   policy.Values,
	})
	if err != nil {
		return nil, fmt.Errorf("encode model request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build model request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read model response: %w", err)
	}

	var parsed httpRunResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("model returned status %d with unparseable body: %w", resp.StatusCode, err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("model failure: %s", parsed.Error)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("model returned status %d", resp.StatusCode)
	}

	out := make(results.Outcome, len(parsed.Outcomes))
	for name, rawVal := range parsed.Outcomes {
		m, err := decodeMeasure(rawVal)
		if err != nil {
			return nil, fmt.Errorf("outcome %q: %w", name, err)
		}
		out[name] = m
	}
	return out, nil
}

func decodeMeasure(raw json.RawMessage) (results.Measure, error) {
	var scalar float64
	if err := json.Unmarshal(raw, &scalar); err == nil {
		return results.Measure{Scalar: scalar}, nil
	}
	var series []float64
	if err := json.Unmarshal(raw, &series); err == nil {
		if series == nil {
			series = []float64{}
		}
		return results.Measure{Series: series}, nil
	}
	return results.Measure{}, fmt.Errorf("value %s is neither a number nor a numeric array", raw)
}
