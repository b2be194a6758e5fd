// internal/policy/client.go
package policy

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Annany2002/nebula-workbench/internal/domain"
	"github.com/Annany2002/nebula-workbench/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// ConditionsPath is the evaluator endpoint compiling a rule program into a
// row filter.
const ConditionsPath = "/v0/preview/conditions"

// ModuleName is the file name the rule source is submitted under.
const ModuleName = "main.rego"

// Evaluator turns a rule program plus input/data documents into a filter.
type Evaluator interface {
	Evaluate(ctx context.Context, req Request) (*Evaluation, error)
}

// Request is one evaluation round trip.
type Request struct {
	Source string
	Input  json.RawMessage
	Data   json.RawMessage
}

// Evaluation is a successful evaluator response.
type Evaluation struct {
	// Raw is the complete response body.
	Raw json.RawMessage
	// Query is the compiled "WHERE <predicate>" fragment.
	Query string
}

type conditionsRequest struct {
	Input       json.RawMessage   `json:"input"`
	Data        json.RawMessage   `json:"data"`
	RegoModules map[string]string `json:"rego_modules"`
}

type conditionsResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Result  *struct {
		Query string `json:"query"`
	} `json:"result"`
}

// Client talks to the evaluator over HTTP.
type Client struct {
	http *resty.Client
}

// NewClient creates a client for the evaluator at baseURL. A zero timeout
// leaves requests unbounded; callers can still cancel through the context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return &Client{http: c}
}

// Evaluate posts the program and documents and extracts the compiled filter.
// Evaluator error payloads and transport failures are ErrPolicyEvaluation.
func (c *Client) Evaluate(ctx context.Context, req Request) (*Evaluation, error) {
	body := conditionsRequest{
		Input:       objectOrEmpty(req.Input),
		Data:        objectOrEmpty(req.Data),
		RegoModules: map[string]string{ModuleName: req.Source},
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(ConditionsPath)
	if err != nil {
		customLog.Warnf("Policy: Evaluator request failed: %v", err)
		return nil, domain.Wrap(domain.ErrPolicyEvaluation, err)
	}

	raw := resp.Body()
	var decoded conditionsResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		customLog.Warnf("Policy: Unreadable evaluator response (status %d): %v", resp.StatusCode(), err)
		return nil, domain.Errorf(domain.ErrPolicyEvaluation, "policy evaluator returned status %d", resp.StatusCode())
	}
	if decoded.Code != "" {
		msg := decoded.Message
		if msg == "" {
			msg = decoded.Code
		}
		customLog.Printf("Policy: Evaluator rejected program: %s: %s", decoded.Code, decoded.Message)
		return nil, domain.Errorf(domain.ErrPolicyEvaluation, "%s", msg)
	}
	if resp.IsError() || decoded.Result == nil {
		return nil, domain.Errorf(domain.ErrPolicyEvaluation, "policy evaluator returned status %d", resp.StatusCode())
	}

	return &Evaluation{Raw: json.RawMessage(raw), Query: decoded.Result.Query}, nil
}

func objectOrEmpty(doc json.RawMessage) json.RawMessage {
	if len(strings.TrimSpace(string(doc))) == 0 {
		return json.RawMessage(`{}`)
	}
	return doc
}
