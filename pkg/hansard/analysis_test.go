package hansard

import "testing"

func TestAnalysisResultNormalize(t *testing.T) {
	tests := []struct {
		name          string
		result        AnalysisResult
		wantSentiment Sentiment
		wantQuality   int
	}{
		{
			name:          "confident support unchanged",
			result:        AnalysisResult{Sentiment: SentimentSupport, Confidence: 85, QualityScore: 70},
			wantSentiment: SentimentSupport,
			wantQuality:   70,
		},
		{
			name:          "low confidence downgraded to uncertain",
			result:        AnalysisResult{Sentiment: SentimentOppose, Confidence: 69, QualityScore: 50},
			wantSentiment: SentimentUncertain,
			wantQuality:   50,
		},
		{
			name:          "confidence exactly at floor kept",
			result:        AnalysisResult{Sentiment: SentimentNeutral, Confidence: 70, QualityScore: 40},
			wantSentiment: SentimentNeutral,
			wantQuality:   40,
		},
		{
			name:          "quality clamped high",
			result:        AnalysisResult{Sentiment: SentimentSupport, Confidence: 90, QualityScore: 130},
			wantSentiment: SentimentSupport,
			wantQuality:   100,
		},
		{
			name:          "quality clamped low",
			result:        AnalysisResult{Sentiment: SentimentSupport, Confidence: 90, QualityScore: -3},
			wantSentiment: SentimentSupport,
			wantQuality:   0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.result.Normalize()
			if tt.result.Sentiment != tt.wantSentiment {
				t.Errorf("sentiment = %q, want %q", tt.result.Sentiment, tt.wantSentiment)
			}
			if tt.result.QualityScore != tt.wantQuality {
				t.Errorf("quality = %d, want %d", tt.result.QualityScore, tt.wantQuality)
			}
		})
	}
}

func TestParseSourceRef(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    SourceRef
		wantErr bool
	}{
		{
			name:  "plain",
			input: "hansard-2024-03-12:4:17",
			want:  SourceRef{DocumentID: "hansard-2024-03-12", Page: 4, Line: 17},
		},
		{
			name:  "document id containing colons",
			input: "na:2024:sitting-9:12:3",
			want:  SourceRef{DocumentID: "na:2024:sitting-9", Page: 12, Line: 3},
		},
		{name: "missing parts", input: "doc-only", wantErr: true},
		{name: "non-numeric line", input: "doc:1:x", wantErr: true},
		{name: "empty document", input: ":1:2", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSourceRef(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if got.String() != tt.input {
				t.Errorf("round trip = %q, want %q", got.String(), tt.input)
			}
		})
	}
}
