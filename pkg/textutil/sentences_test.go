package textutil

import (
	"reflect"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"punctuation", "One. Two! Three?", []string{"One.", "Two!", "Three?"}},
		{"line breaks", "First line\nSecond line.\r\nThird", []string{"First line", "Second line.", "Third"}},
		{"decimal", "Growth hit 3.5 percent. Then it fell.", []string{"Growth hit 3.5 percent.", "Then it fell."}},
		{"punctuation run", "Wow?! Yes... really", []string{"Wow?!", "Yes...", "really"}},
		{"blank", "  \n\n ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitSentences(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("SplitSentences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
