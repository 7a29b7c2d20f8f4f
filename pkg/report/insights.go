package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/processfirst/flowdash/pkg/logging"
	"github.com/sony/gobreaker"
	"gopkg.in/cenkalti/backoff.v1"
)

// ErrGenerationFailed wraps any failure to obtain insights from the generator
var ErrGenerationFailed = errors.New("insight generation failed")

// Generator produces free-form analysis text for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// CohereConfig configures the Cohere generate endpoint client
type CohereConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration

	// Retry bounds the total time spent retrying transient failures
	Retry time.Duration
}

// CohereClient calls the Cohere text generation API.
// Calls go through a circuit breaker so a failing upstream stops being hammered.
type CohereClient struct {
	cfg     CohereConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewCohereClient creates a client for the given configuration
func NewCohereClient(cfg CohereConfig) *CohereClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cohere.ai"
	}
	if cfg.Model == "" {
		cfg.Model = "command"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 800
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry == 0 {
		cfg.Retry = 20 * time.Second
	}

	log := logging.New("cohere")
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "cohere",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &CohereClient{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
	}
}

type generateRequest struct {
	Model          string  `json:"model"`
	Prompt         string  `json:"prompt"`
	MaxTokens      int     `json:"max_tokens"`
	Temperature    float64 `json:"temperature"`
	NumGenerations int     `json:"num_generations"`
}

type generateResponse struct {
	Generations []struct {
		Text string `json:"text"`
	} `json:"generations"`
	Message string `json:"message,omitempty"`
}

// statusError is an HTTP failure from the API
type statusError struct {
	Code    int
	Message string
}

func (e *statusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("cohere returned %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("cohere returned %d", e.Code)
}

// retryable reports whether another attempt could succeed
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests)
}

// Generate sends the prompt and returns the first generation
func (c *CohereClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("%w: no API key configured", ErrGenerationFailed)
	}

	var (
		text     string
		attempts int
	)

	exp := backoff.NewExponentialBackOff()
	exp.MaxElapsedTime = c.cfg.Retry
	// Cancelling ctx stops the retry loop, including a pending wait
	b := backoff.WithContext(exp, ctx)

	op := func() error {
		attempts++
		out, err := c.breaker.Execute(func() (interface{}, error) {
			return c.call(ctx, prompt)
		})
		if err != nil {
			if !retryable(err) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		text = out.(string)
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logging.Debug("retrying insight generation", "attempt", attempts, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return text, nil
}

func (c *CohereClient) call(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:          c.cfg.Model,
		Prompt:         prompt,
		MaxTokens:      c.cfg.MaxTokens,
		Temperature:    c.cfg.Temperature,
		NumGenerations: 1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var parsed generateResponse
	decodeErr := json.Unmarshal(data, &parsed)

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{Code: resp.StatusCode, Message: parsed.Message}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if len(parsed.Generations) == 0 {
		return "", fmt.Errorf("response contained no generations")
	}
	return parsed.Generations[0].Text, nil
}

var (
	headerMarks = regexp.MustCompile(`#{1,3}\s*`)
	boldMarks   = regexp.MustCompile(`\*\*`)
)

// CleanInsights removes markdown header and bold markers from generated text
func CleanInsights(s string) string {
	s = headerMarks.ReplaceAllString(s, "")
	return boldMarks.ReplaceAllString(s, "")
}

// Insights asks the generator for analysis of the results and cleans the reply
func Insights(ctx context.Context, gen Generator, r *Results) (string, error) {
	prompt, err := BuildPrompt(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	text, err := gen.Generate(ctx, prompt)
	if err != nil {
		if errors.Is(err, ErrGenerationFailed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return CleanInsights(text), nil
}

// BuildPrompt renders the analysis request for a set of results
func BuildPrompt(r *Results) (string, error) {
	if r == nil {
		r = &Results{}
	}
	vars, err := indentJSON(r.TopVariables)
	if err != nil {
		return "", err
	}
	impact, err := indentJSON(r.TopImpact)
	if err != nil {
		return "", err
	}
	setpoint, err := indentJSON(r.SetpointImpactSummary)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(promptTemplate, vars, impact, setpoint), nil
}

func indentJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode prompt data: %w", err)
	}
	if string(data) == "null" {
		return "{}", nil
	}
	return string(data), nil
}

const promptTemplate = `
Analyze this industrial process data and provide a structured, comprehensive technical report in a clean and uniform format.

**Key Requirements:**
- Use consistent indentation and bullet points throughout
- Use bold text sparingly and only for main section headers
- Maintain consistent formatting across all sections
- Focus on actionable insights and clear data presentation

**Input Data:**
• Process Variables: %s
• Impact Analysis: %s
• Setpoint Analysis: %s

**Required Format:**

1. KEY VARIABLE ANALYSIS
   • Temperature (Impact: X%%)
      - Current Value: [value] [unit]
      - Confidence Level: [percentage]
      - Critical Range: [range]
      - Impact Level: [level]

   • Pressure (Impact: X%%)
      - Current Value: [value] [unit]
      - Confidence Level: [percentage]
      - Critical Range: [range]
      - Impact Level: [level]

   • Flow Rate (Impact: X%%)
      - Current Value: [value] [unit]
      - Confidence Level: [percentage]
      - Critical Range: [range]
      - Impact Level: [level]

2. OPTIMIZATION PRIORITIES
   • Primary Targets
      - [Target 1]
      - [Target 2]
      - [Target 3]

   • Expected Improvements
      - Efficiency: [X]%% improvement
      - Quality: [specific improvements]
      - Cost: [estimated savings]

3. TECHNICAL RECOMMENDATIONS
   • Immediate Actions
      - [Action 1]
      - [Action 2]
      - [Action 3]

   • Long-term Strategy
      - [Strategy 1]
      - [Strategy 2]
      - [Strategy 3]

4. RISK ASSESSMENT
   • Critical Thresholds
      - Temperature: [range]
      - Pressure: [range]
      - Flow Rate: [range]

   • Safety Protocols
      - [Protocol 1]
      - [Protocol 2]
      - [Protocol 3]

Use consistent bullet points and maintain proper indentation. Replace placeholders with specific numerical values and technical details.`
