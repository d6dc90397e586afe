package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"gemtutor/internal/chat"
	"gemtutor/internal/config"
	"gemtutor/internal/profile"
	"gemtutor/internal/progress"
	"gemtutor/internal/tutor"

	"go.uber.org/zap"
)

const flushTimeout = 30 * time.Second

// errMissingCredential ends a command cleanly after the user has been told.
var errMissingCredential = errors.New("missing credential")

// app wires the tutor components to a line-oriented terminal.
type app struct {
	cfg     *config.Config
	in      *bufio.Reader
	out     io.Writer
	render  *renderer
	debug   bool
	logger  *zap.Logger
	profile *profile.Profile
	tracker *progress.Tracker
	session *tutor.Session
}

// appOptions are the process-level settings an app is built from.
type appOptions struct {
	Debug  bool
	Plain  bool
	Logger *zap.Logger
}

// newApp opens the progress store and profile and starts a tutor session
// (unstarted) on client.
func newApp(c *config.Config, client chat.Client, in io.Reader, out io.Writer, opts appOptions) (*app, error) {
	tracker, err := progress.NewTracker(c.Storage.ProgressPath)
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	out = &lockedWriter{w: out}

	session := tutor.New(client, tracker,
		tutor.WithDebug(opts.Debug),
		tutor.WithDebugWriter(out),
		tutor.WithReportsDir(c.Storage.ReportsDir),
		tutor.WithHistoryLimit(c.History.Limit),
		tutor.WithGraderModel(c.LLM.GraderModel),
		tutor.WithGrading(c.Grading.Workers, c.Grading.QueueSize, c.GetGradingTimeout()),
		tutor.WithLogger(log),
	)

	return &app{
		cfg:     c,
		in:      bufio.NewReader(in),
		out:     out,
		render:  newRenderer(opts.Plain),
		debug:   opts.Debug,
		logger:  log,
		profile: profile.Load(c.Storage.ProfilePath),
		tracker: tracker,
		session: session,
	}, nil
}

// openApp resolves the credential and builds the chat client and app.
// A missing credential is reported to out and returns errMissingCredential.
func openApp(ctx context.Context, c *config.Config, in io.Reader, out io.Writer, opts appOptions) (*app, error) {
	key, ok := c.ResolveAPIKey()
	if !ok {
		r := newRenderer(opts.Plain)
		fmt.Fprintln(out, r.styles.Error.Render(fmt.Sprintf("API Key not found in %s. Please add it.", c.LLM.APIKeyFile)))
		return nil, errMissingCredential
	}

	client, err := newChatClient(ctx, c, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat client: %w", err)
	}
	return newApp(c, client, in, out, opts)
}

// close waits for grading when configured to, then stops the pool.
func (a *app) close() {
	if a.cfg.Grading.FlushOnExit {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		if err := a.session.Flush(ctx); err != nil {
			a.logger.Warn("grading flush incomplete", zap.Error(err))
		}
		cancel()
	}
	stats := a.session.GradingStats()
	a.logger.Debug("grading stats",
		zap.Int64("submitted", stats.Submitted),
		zap.Int64("completed", stats.Completed),
		zap.Int64("failed", stats.Failed),
		zap.Int64("dropped", stats.Dropped))
	a.session.Close()
}

// readLine prints prompt and reads one line without its line ending.
// io.EOF is returned only when no input is left.
func (a *app) readLine(prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *app) println(s string) {
	fmt.Fprintln(a.out, s)
}

// lockedWriter serializes writes from the menu loop and grading workers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
