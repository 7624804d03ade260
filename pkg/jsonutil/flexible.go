// Package jsonutil provides tolerant JSON decoding helpers.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexibleIntValue converts a json.RawMessage to an int, handling clients
// that send numbers as strings ("5" instead of 5). Returns 0 for null/empty.
func FlexibleIntValue(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}

	// Try number first
	var numVal int
	if err := json.Unmarshal(raw, &numVal); err == nil {
		return numVal, nil
	}

	// Try quoted number
	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		n, err := strconv.Atoi(strings.TrimSpace(strVal))
		if err != nil {
			return 0, fmt.Errorf("not an integer: %q", strVal)
		}
		return n, nil
	}

	return 0, fmt.Errorf("not an integer: %s", string(raw))
}
