package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gemtutor/internal/curriculum"

	"github.com/spf13/cobra"
)

// roadmapCmd prints the learning roadmap
var roadmapCmd = &cobra.Command{
	Use:   "roadmap",
	Short: "Show the learning roadmap",
	Long:  `Prints the phases and topics listed in curriculum.json.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printRoadmap(os.Stdout, cfg.Storage.CurriculumPath)
	},
}

func printRoadmap(w io.Writer, path string) error {
	r, err := curriculum.Load(path)
	if errors.Is(err, curriculum.ErrNotFound) {
		fmt.Fprintln(w, "Roadmap not found.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprint(w, r.Render())
	return nil
}
