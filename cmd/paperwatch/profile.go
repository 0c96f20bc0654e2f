// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperwatch/internal/profile"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Validate and print the researcher profile",
	RunE:  runProfile,
}

func runProfile(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()

	p, err := profile.Load(cfg.ProfilePath)
	if err != nil {
		return err
	}

	fmt.Printf("%s <%s>\n", p.Name, p.Email)
	if len(p.Keywords) > 0 {
		fmt.Printf("keywords: %s\n", strings.Join(p.Keywords, ", "))
	}
	fmt.Printf("corpus: %d papers\n", len(p.Corpus))
	for _, c := range p.Corpus {
		fmt.Printf("  %s  %s\n", c.ID, c.Title)
	}
	fmt.Printf("collaborators: %d\n", len(p.Collaborators))
	for _, c := range p.Collaborators {
		line := "  " + c.Name
		if c.Institution != "" {
			line += " (" + c.Institution + ")"
		}
		if c.PapersTogether > 0 {
			line += fmt.Sprintf(", %d joint papers", c.PapersTogether)
		}
		fmt.Println(line)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(profileCmd)
}
