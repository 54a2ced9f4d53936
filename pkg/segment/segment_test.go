package segment

import (
	"errors"
	"strings"
	"testing"

	"github.com/otienoanyango/hansard-tales-sub004/pkg/hansard"
)

func doc(id string, pages ...[]string) *hansard.RawDocument {
	d := &hansard.RawDocument{ID: id}
	for i, lines := range pages {
		d.Pages = append(d.Pages, hansard.Page{Number: i + 1, Lines: lines})
	}
	return d
}

func TestSegmentBasicTurns(t *testing.T) {
	d := doc("doc-1", []string{
		"Hon. Otieno: I beg to move that the Finance Bill 2024",
		"be read a second time.",
		"The Speaker: Order! The motion is properly before the House.",
		"Hon. Wanjiku: I rise to oppose the motion because",
		"the levy burdens rural households.",
	})

	got, err := New(0).Segment(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("statements = %d, want 3", len(got))
	}

	wantSpeakers := []string{"Hon. Otieno", "The Speaker", "Hon. Wanjiku"}
	for i, want := range wantSpeakers {
		if got[i].SpeakerName != want {
			t.Errorf("statement %d speaker = %q, want %q", i, got[i].SpeakerName, want)
		}
	}

	if !strings.Contains(got[0].Text, "Finance Bill 2024") || !strings.Contains(got[0].Text, "second time") {
		t.Errorf("statement 0 lost continuation text: %q", got[0].Text)
	}
	if got[0].Page != 1 || got[0].Line != 1 {
		t.Errorf("statement 0 at page %d line %d, want 1:1", got[0].Page, got[0].Line)
	}
	if got[2].Line != 4 {
		t.Errorf("statement 2 line = %d, want 4", got[2].Line)
	}
}

func TestSegmentOrderingStable(t *testing.T) {
	d := doc("doc-2", []string{
		"Hon. Abuya: First point.",
		"Hon. Barasa: Second point.",
	}, []string{
		"Hon. Chebet: Third point.",
	})

	got, err := New(0).Segment(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("statements = %d, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		if cur.Page < prev.Page || (cur.Page == prev.Page && cur.Line <= prev.Line) {
			t.Errorf("statement %d (%d:%d) not after %d (%d:%d)", i, cur.Page, cur.Line, i-1, prev.Page, prev.Line)
		}
	}
	if got[2].Page != 2 {
		t.Errorf("statement 2 page = %d, want 2", got[2].Page)
	}
}

func TestSegmentInterjectionKeptSeparate(t *testing.T) {
	d := doc("doc-3", []string{
		"Hon. Otieno: The allocation for rural clinics has",
		"(Hon. Wanjiku: On a point of order!)",
		"doubled since the last financial year.",
	})

	got, err := New(0).Segment(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("statements = %d, want 2", len(got))
	}

	var interjection, turn *hansard.Statement
	for i := range got {
		if got[i].SpeakerName == "Hon. Wanjiku" {
			interjection = &got[i]
		} else {
			turn = &got[i]
		}
	}
	if interjection == nil {
		t.Fatal("interjection statement missing")
	}
	if interjection.Text != "On a point of order!" {
		t.Errorf("interjection text = %q", interjection.Text)
	}
	if turn == nil {
		t.Fatal("surrounding turn missing")
	}
	if !strings.Contains(turn.Text, "doubled since the last financial year") {
		t.Errorf("turn did not continue past interjection: %q", turn.Text)
	}
	if strings.Contains(turn.Text, "point of order") {
		t.Errorf("interjection merged into turn: %q", turn.Text)
	}
}

func TestSegmentFailsOnLongDocWithoutBoundaries(t *testing.T) {
	lines := make([]string, 40)
	for i := range lines {
		lines[i] = "procedural text without any recognizable speaker marker"
	}
	_, err := New(0).Segment(doc("doc-4", lines))
	if !errors.Is(err, ErrSegmentationFailed) {
		t.Fatalf("err = %v, want ErrSegmentationFailed", err)
	}
}

func TestSegmentShortDocWithoutBoundariesIsEmpty(t *testing.T) {
	got, err := New(0).Segment(doc("doc-5", []string{"ORDER PAPER", "Tuesday Sitting"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("statements = %d, want 0", len(got))
	}
}

func TestSegmentOffsetsIndexIntoDocumentText(t *testing.T) {
	d := doc("doc-6", []string{
		"Hon. Otieno: I support the Bill.",
		"The Speaker: Order!",
	})

	got, err := New(0).Segment(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := d.Text()
	for _, st := range got {
		if st.StartOffset < 0 || st.EndOffset > len(text)+1 || st.StartOffset >= st.EndOffset {
			t.Errorf("statement %q has bad offsets [%d,%d)", st.SpeakerName, st.StartOffset, st.EndOffset)
		}
		window := text[st.StartOffset:min(st.EndOffset, len(text))]
		if !strings.Contains(window, st.SpeakerName) {
			t.Errorf("offset window %q does not contain speaker %q", window, st.SpeakerName)
		}
	}
}

func TestSegmentIdempotentBoundaries(t *testing.T) {
	d := doc("doc-7", []string{
		"Hon. Otieno: I beg to move.",
		"The Speaker: Order, order!",
		"Hon. Wanjiku: I second the motion.",
	})

	first, err := New(0).Segment(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := New(0).Segment(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("boundary counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Text != second[i].Text ||
			first[i].Page != second[i].Page ||
			first[i].Line != second[i].Line ||
			first[i].StartOffset != second[i].StartOffset ||
			first[i].EndOffset != second[i].EndOffset {
			t.Errorf("statement %d boundaries differ between runs", i)
		}
		if first[i].ID != second[i].ID {
			t.Errorf("statement %d id differs between runs: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}
}

func TestSegmentIDsDeterministicAndUnique(t *testing.T) {
	d := doc("doc-8", []string{
		"Hon. Otieno: I beg to move.",
		"The Speaker: Order, order!",
		"Hon. Wanjiku: I second the motion.",
	})

	got, err := New(0).Segment(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := make(map[string]bool)
	for _, st := range got {
		if seen[st.ID] {
			t.Errorf("duplicate statement id %q", st.ID)
		}
		seen[st.ID] = true
		want := statementID(d.ID, st.Page, st.Line, st.StartOffset)
		if st.ID != want {
			t.Errorf("statement %d:%d id = %q, want %q", st.Page, st.Line, st.ID, want)
		}
	}

	// The same position in a different document is a different statement.
	other := doc("doc-9", []string{"Hon. Otieno: I beg to move."})
	otherGot, err := New(0).Segment(other)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if otherGot[0].ID == got[0].ID {
		t.Error("ids collide across documents")
	}
}

func TestSegmentInterjectionBeforeAnyTurn(t *testing.T) {
	d := doc("doc-10", []string{
		"(Hon. Wanjiku: On a point of order!)",
		"Hon. Otieno: I beg to move that the Bill be read.",
	})

	got, err := New(0).Segment(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("statements = %d, want 2", len(got))
	}
	if got[0].SpeakerName != "Hon. Wanjiku" {
		t.Errorf("statement 0 speaker = %q, want the interjecting member", got[0].SpeakerName)
	}
	if got[0].Text != "On a point of order!" {
		t.Errorf("statement 0 text = %q", got[0].Text)
	}
	if got[1].SpeakerName != "Hon. Otieno" {
		t.Errorf("statement 1 speaker = %q", got[1].SpeakerName)
	}
}
