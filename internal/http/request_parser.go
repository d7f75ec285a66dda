// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Planner figures may arrive as JSON or as a form post, and both are read
// through the same parser.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"wealthwise/internal/core"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 64 << 10

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errors.New("request body too large")
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' || p.body[0] == '[' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// Has reports whether key was submitted at all.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// GetRaw returns the raw body bytes.
func (p *RequestBodyParser) GetRaw() []byte {
	return p.body
}

// ContentType returns the Content-Type header value.
func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// Amount parses key as a non-negative amount. Comma decimals are accepted.
func (p *RequestBodyParser) Amount(key string) (float64, error) {
	v, err := core.ParseAmount(p.Get(key))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

// Number parses key as a finite, possibly negative, number.
func (p *RequestBodyParser) Number(key string) (float64, error) {
	raw := strings.ReplaceAll(p.Get(key), ",", ".")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s: %w", key, core.ErrInvalidAmount)
	}
	return v, nil
}

// PlanInput reads the planner figures. A missing duration type means months.
func (p *RequestBodyParser) PlanInput() (core.PlanInput, error) {
	var (
		in  core.PlanInput
		err error
	)
	fields := []struct {
		key string
		dst *float64
	}{
		{"monthlyIncome", &in.MonthlyIncome},
		{"monthlyExpenses", &in.MonthlyExpenses},
		{"currentSavings", &in.CurrentSavings},
		{"goalAmount", &in.GoalAmount},
		{"goalDuration", &in.Duration},
	}
	for _, f := range fields {
		if *f.dst, err = p.Amount(f.key); err != nil {
			return core.PlanInput{}, err
		}
	}

	in.Unit = core.Months
	if raw := p.Get("durationType"); raw != "" {
		if in.Unit, err = core.ParseDurationUnit(raw); err != nil {
			return core.PlanInput{}, err
		}
	}
	return in, in.Validate()
}

// GoalInput reads a goal name together with its planner figures.
func (p *RequestBodyParser) GoalInput() (core.GoalInput, error) {
	plan, err := p.PlanInput()
	if err != nil {
		return core.GoalInput{}, err
	}
	in := core.GoalInput{Name: p.Get("name"), PlanInput: plan}
	return in, in.Validate()
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
