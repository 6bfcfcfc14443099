// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"budgetlog/internal/core"
)

// Form field names used by the transaction form.
const (
	fieldText     = "text"
	fieldAmount   = "amount"
	fieldCategory = "category"
	fieldType     = "type"
)

// ParseTransactionForm maps the submitted form to raw input. Values are only
// sanitized here; validation happens when the tracker applies the input.
func ParseTransactionForm(form url.Values) core.Input {
	return core.Input{
		Text:     sanitizeInput(form.Get(fieldText)),
		Amount:   sanitizeInput(form.Get(fieldAmount)),
		Category: sanitizeInput(form.Get(fieldCategory)),
		Type:     core.Type(strings.ToLower(sanitizeInput(form.Get(fieldType)))),
	}
}

// ParseFilter returns the category filter from the query and whether one was
// given at all.
func ParseFilter(query url.Values) (string, bool) {
	if !query.Has(fieldCategory) {
		return "", false
	}
	return sanitizeInput(query.Get(fieldCategory)), true
}

// ParseID reads the {id} path value.
func ParseID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid transaction id %q", raw)
	}
	return id, nil
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}
