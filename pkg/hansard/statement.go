package hansard

// Statement is one attributed utterance extracted from a transcript. Text and
// offsets are immutable once created; only the speaker attribution may be
// refined later.
type Statement struct {
	ID          string
	DocumentID  string
	SpeakerID   string // empty until resolved
	SpeakerName string
	Text        string
	Page        int
	Line        int
	StartOffset int
	EndOffset   int
}

// Ref returns the source ref of the statement's first line.
func (s *Statement) Ref() SourceRef {
	return SourceRef{DocumentID: s.DocumentID, Page: s.Page, Line: s.Line}
}

// Label is the filler/substantive tag assigned by the classifier.
type Label string

const (
	LabelFiller      Label = "filler"
	LabelSubstantive Label = "substantive"
)

// Classification tags a statement as filler or substantive. It is produced
// exactly once per statement and never revised automatically.
type Classification struct {
	StatementID string
	Label       Label
	ReasonCodes []string
}

// Status tracks a statement through the analysis pipeline.
type Status string

const (
	StatusPending            Status = "pending"
	StatusAnalyzed           Status = "analyzed"
	StatusAnalysisFailed     Status = "analysis_failed"
	StatusVerificationFailed Status = "verification_failed"
)

// DocumentStatus tracks a document through segmentation.
type DocumentStatus string

const (
	DocumentStatusSegmented          DocumentStatus = "segmented"
	DocumentStatusSegmentationFailed DocumentStatus = "segmentation_failed"
)
