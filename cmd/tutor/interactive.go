package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gemtutor/internal/curriculum"
	"gemtutor/internal/logging"
	"gemtutor/internal/tutor"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const bannerText = "GEMINI TUTOR: AI & STATISTICS"

// runInteractive is the default command: banner, greeting and main menu.
func runInteractive(cmd *cobra.Command, args []string) error {
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

	return a.runMenu(ctx)
}

// runMenu greets the learner and loops over the main menu until Exit or EOF.
func (a *app) runMenu(ctx context.Context) error {
	a.println(a.render.Banner(bannerText))
	if a.debug {
		a.println(a.render.styles.Error.Render("[DEBUG MODE ENABLED]"))
	}

	if err := a.greet(); err != nil {
		return ignoreEOF(err)
	}

	for {
		a.println("\n" + a.render.styles.Title.Render("MAIN MENU"))
		a.println("1. Start/Resume Session")
		a.println("2. View Roadmap")
		a.println("3. Exit")

		choice, err := a.readLine("Select an option (1-3): ")
		if err != nil {
			return ignoreEOF(err)
		}

		switch strings.TrimSpace(choice) {
		case "1":
			project, err := a.askProject()
			if err != nil {
				return ignoreEOF(err)
			}
			if err := a.runSession(ctx, project); err != nil {
				return ignoreEOF(err)
			}
		case "2":
			a.showRoadmap()
			if _, err := a.readLine("\nPress Enter to continue..."); err != nil {
				return ignoreEOF(err)
			}
		case "3":
			a.println("Goodbye!")
			return nil
		default:
			a.println("Invalid choice.")
		}
	}
}

// greet asks for the learner's name the first time and welcomes them back.
func (a *app) greet() error {
	if a.profile.Name() == "" {
		a.println("\n" + a.render.styles.Success.Render("Welcome! I don't believe we've met."))
		name, err := a.readLine("What should I call you? ")
		if err != nil {
			return err
		}
		if err := a.profile.SetName(strings.TrimSpace(name)); err != nil {
			a.logger.Warn("failed to save profile", zap.Error(err))
		}
	}
	a.println("\n" + a.render.styles.Success.Render(fmt.Sprintf("Welcome back, %s!", a.profile.Name())))
	return nil
}

// askProject prompts for a project, defaulting to the last one used.
func (a *app) askProject() (string, error) {
	def := a.profile.LastProject()
	if def == "" {
		def = tutor.DefaultProject
	}
	project, err := a.readLine(fmt.Sprintf("Enter Project Name (default: '%s'): ", def))
	if err != nil {
		return "", err
	}
	project = strings.TrimSpace(project)
	if project == "" {
		project = def
	}
	return project, nil
}

// runSession starts a conversation for project and runs turns until the
// learner leaves, then prints the report card. io.EOF is returned if input
// ran out, after the report has been produced.
func (a *app) runSession(ctx context.Context, project string) error {
	if err := a.profile.SetLastProject(project); err != nil {
		a.logger.Warn("failed to save profile", zap.Error(err))
	}

	a.println(a.render.styles.Muted.Render(fmt.Sprintf("Starting session for: %s", project)))
	msg, err := a.session.StartSession(ctx, project)
	if err != nil {
		a.println(a.render.styles.Error.Render(fmt.Sprintf("Error: %v", err)))
		return nil
	}
	a.println(msg)
	a.println("Type 'quit' or 'menu' to return to main menu.\n")

	for {
		input, err := a.readLine(fmt.Sprintf("\n[%s] You: ", project))
		if err != nil {
			a.finishSession(ctx)
			return err
		}
		if isLeaveCommand(input) {
			a.finishSession(ctx)
			return nil
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		a.turn(ctx, input)
	}
}

// turn sends one message, prints the reply and queues it for grading.
// Errors are printed and the session continues.
func (a *app) turn(ctx context.Context, input string) {
	if a.debug {
		a.println(a.render.styles.Muted.Render("Tutor is thinking..."))
	}

	start := time.Now()
	reply, err := a.session.SendMessage(ctx, input)
	elapsed := time.Since(start)
	if err != nil {
		logging.Get(logging.CategorySession).Error("Turn failed after %v: %v", elapsed, err)
		a.println("\n" + a.render.styles.Error.Render(fmt.Sprintf("Error: %v", err)))
		return
	}

	a.println("\n" + a.render.styles.Success.Render("Tutor:"))
	a.println(a.render.Markdown(reply))
	if a.debug {
		a.println(a.render.styles.Muted.Render(fmt.Sprintf("   [Latency: %.2fs]", elapsed.Seconds())))
	}

	if !a.session.LogAsync(input, reply) && a.debug {
		a.println(a.render.styles.Warning.Render("[Grading queue full, turn not recorded]"))
	}
}

func (a *app) finishSession(ctx context.Context) {
	a.println("\n" + a.render.styles.Warning.Render("Generating Session Report Card..."))
	report := a.session.GenerateReportCard(ctx)
	a.println(a.render.Panel("Session Summary", a.render.Markdown(report)))
}

func (a *app) showRoadmap() {
	r, err := curriculum.Load(a.cfg.Storage.CurriculumPath)
	if err != nil {
		if !errors.Is(err, curriculum.ErrNotFound) {
			a.logger.Warn("failed to load roadmap", zap.Error(err))
		}
		a.println(a.render.styles.Error.Render("Roadmap not found."))
		return
	}
	a.println("\n" + a.render.styles.Heading.Render(r.Render()))
}

func isLeaveCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "quit", "exit", "menu":
		return true
	}
	return false
}

func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
