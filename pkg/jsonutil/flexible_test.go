package jsonutil

import (
	"encoding/json"
	"testing"
)

func TestFlexibleIntValue(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{name: "number", raw: `5`, want: 5},
		{name: "quoted number", raw: `"7"`, want: 7},
		{name: "quoted with spaces", raw: `" 3 "`, want: 3},
		{name: "null", raw: `null`, want: 0},
		{name: "empty", raw: ``, want: 0},
		{name: "negative", raw: `-1`, want: -1},
		{name: "not a number", raw: `"high"`, wantErr: true},
		{name: "float", raw: `4.5`, wantErr: true},
		{name: "object", raw: `{"score":5}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FlexibleIntValue(json.RawMessage(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q, got %d", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
