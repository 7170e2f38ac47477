package commands

import "testing"

func TestPromptSupported(t *testing.T) {
	cases := []struct {
		prompt string
		want   bool
	}{
		{"Deploy my Flask app to AWS", true},
		{"deploy this flask service on aws us-east-2", true},
		{"Deploy my Flask app", false},
		{"Deploy my Django app to AWS", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := promptSupported(tc.prompt); got != tc.want {
			t.Errorf("promptSupported(%q) = %v, want %v", tc.prompt, got, tc.want)
		}
	}
}
