// Package display handles command output rendering: JSON for machines,
// pterm tables for humans.
package display

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON marshals with pretty formatting for terminal consumption.
func MarshalJSON(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// OutputJSON marshals and prints JSON using MarshalJSON
func OutputJSON(v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
