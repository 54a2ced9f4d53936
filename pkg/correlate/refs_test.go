package correlate

import (
	"reflect"
	"testing"
)

func TestExtractBillRefs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "named bill with year",
			text: "I rise to oppose the Finance Bill 2024 in its entirety.",
			want: []string{"Finance Bill 2024"},
		},
		{
			name: "named bill with comma before year",
			text: "The County Allocation of Revenue Bill, 2023 is before this House.",
			want: []string{"County Allocation of Revenue Bill 2023"},
		},
		{
			name: "numbered bill",
			text: "Members will recall Bill No. 12 of 2023 on the same subject.",
			want: []string{"Bill No. 12 of 2023"},
		},
		{
			name: "house bill abbreviation",
			text: "H.B. 7 was committed to the relevant committee.",
			want: []string{"H.B. 7"},
		},
		{
			name: "multiple distinct references",
			text: "Unlike the Finance Bill 2024, Bill No. 3 of 2024 addresses levies directly.",
			want: []string{"Finance Bill 2024", "Bill No. 3 of 2024"},
		},
		{
			name: "repeated reference deduplicated",
			text: "The Finance Bill 2024 is flawed. I say again, the Finance Bill 2024 is flawed.",
			want: []string{"Finance Bill 2024"},
		},
		{
			name: "no references",
			text: "I thank the honourable member for that clarification.",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractBillRefs(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractBillRefs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeBillRef(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The Finance Bill, 2024", "Finance Bill 2024"},
		{"Finance  Bill   2024", "Finance Bill 2024"},
		{"Bill No. 12 of 2023", "Bill No. 12 of 2023"},
	}
	for _, tt := range tests {
		if got := NormalizeBillRef(tt.in); got != tt.want {
			t.Errorf("NormalizeBillRef(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
