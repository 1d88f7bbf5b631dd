// Package chart asks the model for a minimal chart description of a row set
// and parses its constrained reply.
package chart

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrMarkerNotFound = errors.New("chart marker not found")
	ErrMalformedSpec  = errors.New("malformed chart spec")
)

const Marker = "grafico = "

var markerPattern = regexp.MustCompile(`(?s)grafico\s*=\s*(\{.*\})`)

// Spec is independent of any rendering library. Type is expected to be one
// of bar, line, pie or scatter but is passed through as given.
type Spec struct {
	Type string `json:"type"`
	Data Data   `json:"data"`
}

type Data struct {
	Labels   Labels    `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type Dataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

// Labels accepts numbers as well as strings and keeps them as text.
type Labels []string

func (l *Labels) UnmarshalJSON(raw []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return err
	}
	if items == nil {
		*l = nil
		return nil
	}
	out := make(Labels, 0, len(items))
	for _, item := range items {
		var text string
		if err := json.Unmarshal(item, &text); err == nil {
			out = append(out, text)
			continue
		}
		var number json.Number
		if err := json.Unmarshal(item, &number); err != nil {
			return fmt.Errorf("label %s is neither string nor number", string(item))
		}
		out = append(out, formatNumber(number))
	}
	*l = out
	return nil
}

func formatNumber(number json.Number) string {
	if value, err := number.Int64(); err == nil {
		return strconv.FormatInt(value, 10)
	}
	if value, err := number.Float64(); err == nil {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	return number.String()
}

// Extract finds the object after the grafico marker and decodes it. Code
// fences anywhere in the reply are ignored.
func Extract(reply string) (*Spec, error) {
	cleaned := strings.ReplaceAll(reply, "```json", "")
	cleaned = strings.TrimSpace(strings.ReplaceAll(cleaned, "```", ""))

	match := markerPattern.FindStringSubmatch(cleaned)
	if match == nil {
		return nil, ErrMarkerNotFound
	}
	var spec Spec
	if err := json.Unmarshal([]byte(match[1]), &spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSpec, err)
	}
	return &spec, nil
}
