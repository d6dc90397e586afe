package main

import (
	"context"
	"errors"
	"os"

	"gemtutor/internal/tutor"

	"github.com/spf13/cobra"
)

var sessionProject string

// sessionCmd skips the menu and goes straight into a tutoring session
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Start a tutoring session directly",
	Long: `Starts a session for the given project (or the last project used) and
runs the conversation until you type quit, exit or menu. A report card is
written when the session ends.

Example:
  tutor session --project "Bayesian Inference"`,
	RunE: runSessionCmd,
}

func runSessionCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := openApp(ctx, cfg, os.Stdin, os.Stdout, appOptions{Debug: debug, Plain: plain, Logger: logger})
	if err != nil {
		if errors.Is(err, errMissingCredential) {
			return nil
		}
		return err
	}
	defer a.close()

	project := sessionProject
	if project == "" {
		project = a.profile.LastProject()
	}
	if project == "" {
		project = tutor.DefaultProject
	}
	return ignoreEOF(a.runSession(ctx, project))
}
