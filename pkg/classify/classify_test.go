package classify

import (
	"testing"

	"github.com/otienoanyango/hansard-tales-sub004/pkg/hansard"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want hansard.Label
	}{
		{
			name: "short procedural thanks is filler",
			text: "I support, thank you Speaker",
			want: hansard.LabelFiller,
		},
		{
			name: "bare seconding is filler",
			text: "I beg to second.",
			want: hansard.LabelFiller,
		},
		{
			name: "order call is filler",
			text: "Order, order!",
			want: hansard.LabelFiller,
		},
		{
			name: "greeting is filler",
			text: "Good morning, honorable members.",
			want: hansard.LabelFiller,
		},
		{
			name: "short but non-procedural is substantive",
			text: "The levy doubles fuel costs overnight.",
			want: hansard.LabelSubstantive,
		},
		{
			name: "long statement is substantive even with thanks",
			text: "Thank you, Mr. Speaker, for the opportunity to explain why the Finance Bill 2024 allocation for rural clinics must be protected in this budget cycle.",
			want: hansard.LabelSubstantive,
		},
		{
			name: "empty text is substantive by default",
			text: "",
			want: hansard.LabelSubstantive,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &hansard.Statement{ID: "st-1", Text: tt.text}
			got := Classify(st)
			if got.Label != tt.want {
				t.Errorf("Classify(%q) = %q, want %q (reasons %v)", tt.text, got.Label, tt.want, got.ReasonCodes)
			}
			if got.StatementID != "st-1" {
				t.Errorf("statement id = %q", got.StatementID)
			}
			if len(got.ReasonCodes) == 0 {
				t.Error("no reason codes recorded")
			}
		})
	}
}

func TestClassifyIsPure(t *testing.T) {
	st := &hansard.Statement{ID: "st-2", Text: "I support, thank you Speaker"}
	first := Classify(st)
	for i := 0; i < 10; i++ {
		if got := Classify(st); got.Label != first.Label {
			t.Fatalf("classification changed between runs: %q then %q", first.Label, got.Label)
		}
	}
}

func TestClassifyWithMinWords(t *testing.T) {
	// Ten words of procedural thanks: filler only when the threshold is
	// raised above ten.
	st := &hansard.Statement{ID: "st-3", Text: "Thank you, Mr. Speaker, I am very much obliged indeed."}
	if got := ClassifyWithMinWords(st, 8); got.Label != hansard.LabelSubstantive {
		t.Errorf("below default threshold: got %q, want substantive", got.Label)
	}
	if got := ClassifyWithMinWords(st, 15); got.Label != hansard.LabelFiller {
		t.Errorf("raised threshold: got %q, want filler", got.Label)
	}
}
