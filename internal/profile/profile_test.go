package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pdiddy/paperwatch/pkg/types"
)

const sampleProfile = `name: Alice Smith
email: alice@example.org
keywords:
  - quantum gravity
  - holography
corpus:
  - id: "2301.00001"
    title: Entanglement entropy in de Sitter space
    abstract: We study entanglement entropy bounds.
collaborators:
  - name: Carol Jones
    institution: MIT
    papers_together: 4
`

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	p, err := Load(writeProfile(t, sampleProfile))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Name != "Alice Smith" || p.Email != "alice@example.org" {
		t.Errorf("identity = %q %q", p.Name, p.Email)
	}
	if len(p.Keywords) != 2 || len(p.Corpus) != 1 || len(p.Collaborators) != 1 {
		t.Errorf("profile = %+v", p)
	}
	if p.Collaborators[0].PapersTogether != 4 {
		t.Errorf("PapersTogether = %d", p.Collaborators[0].PapersTogether)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*types.UserProfile)
		wantErr bool
	}{
		{"valid", func(p *types.UserProfile) {}, false},
		{"no name", func(p *types.UserProfile) { p.Name = " " }, true},
		{"no corpus or keywords", func(p *types.UserProfile) { p.Corpus = nil; p.Keywords = nil }, true},
		{"keywords only", func(p *types.UserProfile) { p.Corpus = nil }, false},
		{"corpus entry without id", func(p *types.UserProfile) { p.Corpus[0].ID = "" }, true},
		{"unnamed collaborator", func(p *types.UserProfile) { p.Collaborators[0].Name = "" }, true},
		{"no collaborators", func(p *types.UserProfile) { p.Collaborators = nil }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := types.UserProfile{
				Name:     "Alice Smith",
				Keywords: []string{"quantum gravity"},
				Corpus:   []types.CorpusEntry{{ID: "2301.00001", Title: "t"}},
				Collaborators: []types.Collaborator{
					{Name: "Carol Jones"},
				},
			}
			tt.mutate(&p)
			err := Validate(p)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
