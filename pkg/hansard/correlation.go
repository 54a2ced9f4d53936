package hansard

// EntityKind distinguishes the parliamentary records that can be linked to a
// bill.
type EntityKind string

const (
	EntityStatement EntityKind = "statement"
	EntityVote      EntityKind = "vote"
	EntityQuestion  EntityKind = "question"
)

// RelationKind describes the signal that produced a correlation edge.
type RelationKind string

const (
	RelationExplicitRef RelationKind = "explicit_ref"
	RelationSemantic    RelationKind = "semantic"
)

// CorrelationEdge is a scored link between a parliamentary record and a bill.
// Edges are additive: re-running correlation replaces the edge for the same
// (entity, bill) pair, never duplicates it.
type CorrelationEdge struct {
	EntityID   string       `json:"entity_id"`
	EntityKind EntityKind   `json:"entity_kind"`
	BillID     string       `json:"bill_id"`
	Relation   RelationKind `json:"relation_kind"`
	Relevance  float64      `json:"relevance_score"`
	Evidence   string       `json:"evidence"`
}

// Bill is a parliamentary bill as known to the correlator.
type Bill struct {
	ID      string
	Number  string // e.g. "Finance Bill 2024", "Bill No. 12 of 2023"
	Title   string
	Summary string
}

// Vote is a recorded division, correlated to bills like statements are.
type Vote struct {
	ID          string
	DocumentID  string
	Description string
}

// Question is a parliamentary question, correlated to bills like statements
// are.
type Question struct {
	ID         string
	DocumentID string
	Text       string
}
