// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Collaborator is a known co-author whose papers are always of interest.
type Collaborator struct {
	// Name as it usually appears on papers ("First Last" or "Last, F.").
	Name string `json:"name" yaml:"name"`

	// Institution is informational only.
	Institution string `json:"institution,omitempty" yaml:"institution,omitempty"`

	// PapersTogether counts joint publications with the researcher.
	PapersTogether int `json:"papers_together,omitempty" yaml:"papers_together,omitempty"`
}

// CorpusEntry is one of the researcher's own papers, used as a similarity
// fingerprint against candidate abstracts.
type CorpusEntry struct {
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`
}

// UserProfile describes the researcher the pipeline scores against.
// Read-only to the pipeline for the duration of a run.
type UserProfile struct {
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`

	// Keywords are research topics used alongside the corpus fingerprint.
	Keywords []string `json:"keywords" yaml:"keywords"`

	// Corpus is the researcher's own body of work.
	Corpus []CorpusEntry `json:"corpus" yaml:"corpus"`

	// Collaborators drive the co-author matching component.
	Collaborators []Collaborator `json:"collaborators,omitempty" yaml:"collaborators,omitempty"`
}
