package models

type MutationKind string

const (
	MutationInsert MutationKind = "insert"
	MutationReseen MutationKind = "reseen"
	MutationDelete MutationKind = "delete"
)

// Mutation is one pending change to the store. Record points at the
// in-memory row, so the latest field values are written on commit.
type Mutation struct {
	Kind         MutationKind
	Record       *ProductRecord
	PreviousFlag Flag
}

// Relisted reports whether a reseen mutation brought a deleted row back.
func (m Mutation) Relisted() bool {
	return m.Kind == MutationReseen && m.PreviousFlag == FlagDeleted
}
