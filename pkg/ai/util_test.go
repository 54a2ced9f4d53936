package ai

import (
	"errors"
	"testing"
)

type testJudgment struct {
	Sentiment  string   `json:"sentiment"`
	Confidence int      `json:"confidence"`
	Topics     []string `json:"topics"`
}

func TestUnmarshalFlexible(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    testJudgment
		wantErr bool
	}{
		{
			name:  "standard json",
			input: `{"sentiment":"support","confidence":82,"topics":["Finance"]}`,
			want:  testJudgment{Sentiment: "support", Confidence: 82, Topics: []string{"Finance"}},
		},
		{
			name:  "double encoded",
			input: `"{\"sentiment\":\"oppose\",\"confidence\":75,\"topics\":[]}"`,
			want:  testJudgment{Sentiment: "oppose", Confidence: 75, Topics: []string{}},
		},
		{
			name:  "unquoted keys repaired",
			input: `{sentiment: "neutral", confidence: 60, topics: ["Health"]}`,
			want:  testJudgment{Sentiment: "neutral", Confidence: 60, Topics: []string{"Health"}},
		},
		{
			name:  "duplicate leading brace",
			input: `{{"sentiment":"support","confidence":90,"topics":["Finance"]}`,
			want:  testJudgment{Sentiment: "support", Confidence: 90, Topics: []string{"Finance"}},
		},
		{
			name:  "trailing comma repaired",
			input: `{"sentiment":"support","confidence":88,"topics":["Finance","Healthcare"],}`,
			want:  testJudgment{Sentiment: "support", Confidence: 88, Topics: []string{"Finance", "Healthcare"}},
		},
		{
			name:    "hopeless input",
			input:   `the model declined to answer`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got testJudgment
			err := UnmarshalFlexible(tt.input, &got)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				if !errors.Is(err, ErrMalformedOutput) {
					t.Errorf("err = %v, want ErrMalformedOutput", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Sentiment != tt.want.Sentiment || got.Confidence != tt.want.Confidence {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if len(got.Topics) != len(tt.want.Topics) {
				t.Errorf("topics = %v, want %v", got.Topics, tt.want.Topics)
			}
		})
	}
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema(&testJudgment{})
	if schema == nil {
		t.Fatal("nil schema")
	}
	schema = GenerateSchema(testJudgment{})
	if schema == nil {
		t.Fatal("nil schema for value type")
	}
}
