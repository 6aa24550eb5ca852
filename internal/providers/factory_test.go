package providers

import (
	"errors"
	"math"
	"testing"

	"github.com/ternarybob/aegis/internal/interfaces"
)

func TestParseStructured(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Score int    `json:"score"`
	}

	tests := []struct {
		name    string
		text    string
		want    payload
		wantErr bool
	}{
		{
			name: "plain json",
			text: `{"name": "a", "score": 3}`,
			want: payload{Name: "a", Score: 3},
		},
		{
			name: "fenced json",
			text: "```json\n{\"name\": \"a\", \"score\": 3}\n```",
			want: payload{Name: "a", Score: 3},
		},
		{
			name: "bare fence",
			text: "```\n{\"name\": \"a\", \"score\": 3}\n```",
			want: payload{Name: "a", Score: 3},
		},
		{
			name: "prose around the object",
			text: `Here is the result you asked for: {"name": "a", "score": 3} hope that helps`,
			want: payload{Name: "a", Score: 3},
		},
		{
			name:    "no json at all",
			text:    "I could not produce a result.",
			wantErr: true,
		},
		{
			name:    "truncated json",
			text:    `{"name": "a", "score":`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got payload
			err := ParseStructured(tt.text, &got)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, interfaces.ErrInvalidPayload) {
					t.Errorf("error %v is not ErrInvalidPayload", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStructured returned %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseStructuredArray(t *testing.T) {
	var got []int
	if err := ParseStructured("```json\n[1, 2, 3]\n```", &got); err != nil {
		t.Fatalf("ParseStructured returned %v", err)
	}
	if len(got) != 3 || got[0] != 1 {
		t.Errorf("got %v", got)
	}
}

func TestComputeCost(t *testing.T) {
	// 1000 in + 1000 out = 0.003 + 0.015
	if got := ComputeCost(1000, 1000); math.Abs(got-0.018) > 1e-12 {
		t.Errorf("ComputeCost(1000, 1000) = %v, want 0.018", got)
	}
	if got := ComputeCost(0, 0); got != 0 {
		t.Errorf("ComputeCost(0, 0) = %v, want 0", got)
	}
	if got := ComputeCost(500, 200); math.Abs(got-(0.0015+0.003)) > 1e-12 {
		t.Errorf("ComputeCost(500, 200) = %v", got)
	}
}
