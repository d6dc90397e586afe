// Package tutor drives a tutoring session: the Socratic conversation, the
// end-of-session report card and background grading of every turn into the
// progress store.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"gemtutor/internal/chat"
	"gemtutor/internal/logging"
	"gemtutor/internal/progress"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSessionNotStarted is returned when a message is sent before StartSession.
var ErrSessionNotStarted = errors.New("session not started")

const (
	noSessionMessage = "No session to report on."
	noHistoryMessage = "No interaction history."

	reportTimestampLayout = "20060102_150405"

	DefaultHistoryLimit   = 5
	DefaultGradingWorkers = 2
	DefaultQueueSize      = 16
	DefaultGradingTimeout = 60 * time.Second
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._ -]`)

// Session is one learner's tutoring session. StartSession, SendMessage and
// GenerateReportCard are called from a single foreground goroutine; grading
// runs on the pool workers.
type Session struct {
	client  chat.Client
	tracker *progress.Tracker
	pool    *GradingPool
	logger  *zap.Logger

	mu      sync.Mutex
	conv    chat.Conversation
	project string
	id      string

	debug    bool
	debugMu  sync.Mutex
	debugOut io.Writer

	reportsDir     string
	historyLimit   int
	graderModel    string
	workers        int
	queueSize      int
	gradingTimeout time.Duration
	now            func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithDebug enables status lines for grading results.
func WithDebug(enabled bool) Option {
	return func(s *Session) { s.debug = enabled }
}

// WithDebugWriter sets where debug status lines go. Defaults to stdout.
func WithDebugWriter(w io.Writer) Option {
	return func(s *Session) { s.debugOut = w }
}

// WithReportsDir sets the directory report cards are written to.
func WithReportsDir(dir string) Option {
	return func(s *Session) { s.reportsDir = dir }
}

// WithHistoryLimit sets how many past records are included in a new session.
func WithHistoryLimit(n int) Option {
	return func(s *Session) { s.historyLimit = n }
}

// WithGraderModel overrides the model used for grading calls.
func WithGraderModel(model string) Option {
	return func(s *Session) { s.graderModel = model }
}

// WithGrading sizes the grading pool and bounds each grading call.
func WithGrading(workers, queueSize int, timeout time.Duration) Option {
	return func(s *Session) {
		s.workers = workers
		s.queueSize = queueSize
		if timeout > 0 {
			s.gradingTimeout = timeout
		}
	}
}

// WithClock overrides the clock used for report file names.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithLogger sets the process logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates an unstarted session and starts its grading pool.
// Call Close when done.
func New(client chat.Client, tracker *progress.Tracker, opts ...Option) *Session {
	s := &Session{
		client:         client,
		tracker:        tracker,
		logger:         zap.NewNop(),
		debugOut:       os.Stdout,
		reportsDir:     "reports",
		historyLimit:   DefaultHistoryLimit,
		workers:        DefaultGradingWorkers,
		queueSize:      DefaultQueueSize,
		gradingTimeout: DefaultGradingTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.pool = NewGradingPool(s.workers, s.queueSize, s.grade)
	return s
}

// =============================================================================
// CONVERSATION
// =============================================================================

// StartSession opens a fresh conversation for project, seeded with recent
// progress history. Any previous conversation is discarded.
func (s *Session) StartSession(ctx context.Context, project string) (string, error) {
	if project == "" {
		project = DefaultProject
	}

	history := s.tracker.RecentHistory(s.historyLimit)
	conv, err := s.client.StartConversation(ctx, systemInstruction(project, history))
	if err != nil {
		return "", fmt.Errorf("failed to start conversation: %w", err)
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.conv = conv
	s.project = project
	s.id = id
	s.mu.Unlock()

	logging.Session("Session %s started for project %q using %s", id, project, s.client.Name())
	s.logger.Info("session started", zap.String("session_id", id), zap.String("project", project))
	return fmt.Sprintf("Session started for project: %s", project), nil
}

// SendMessage sends one learner turn and returns the tutor's reply unchanged.
func (s *Session) SendMessage(ctx context.Context, text string) (string, error) {
	conv, _ := s.current()
	if conv == nil {
		return "", ErrSessionNotStarted
	}

	timer := logging.StartTimer(logging.CategorySession, "SendMessage")
	defer timer.Stop()

	reply, err := conv.Send(ctx, text)
	if err != nil {
		logging.Get(logging.CategorySession).Error("Send failed: %v", err)
		return "", err
	}
	logging.SessionDebug("Turn complete: input_len=%d reply_len=%d", len(text), len(reply))
	return reply, nil
}

// Project returns the current project name, or "" before StartSession.
func (s *Session) Project() string {
	_, project := s.current()
	return project
}

// Active reports whether a conversation is open.
func (s *Session) Active() bool {
	conv, _ := s.current()
	return conv != nil
}

func (s *Session) current() (chat.Conversation, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv, s.project
}

// =============================================================================
// REPORT CARD
// =============================================================================

// GenerateReportCard asks the tutor to summarize the session, writes the
// result to the reports directory and returns a user-facing message. It
// never fails; problems are described in the returned text.
func (s *Session) GenerateReportCard(ctx context.Context) string {
	conv, project := s.current()
	if conv == nil {
		return noSessionMessage
	}
	if len(conv.History()) == 0 {
		return noHistoryMessage
	}

	path, body, err := s.writeReport(ctx, conv, project)
	if err != nil {
		logging.ReportError("Report for %q failed: %v", project, err)
		return fmt.Sprintf("Failed to generate report: %v", err)
	}

	logging.Report("Report card written: %s (%d bytes)", path, len(body))
	s.logger.Info("report card written", zap.String("path", path), zap.String("project", project))
	return fmt.Sprintf("Report Card generated: %s\n\n%s", path, body)
}

func (s *Session) writeReport(ctx context.Context, conv chat.Conversation, project string) (string, string, error) {
	body, err := conv.Send(ctx, reportPrompt(project))
	if err != nil {
		return "", "", err
	}

	if err := os.MkdirAll(s.reportsDir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create reports directory: %w", err)
	}
	path := filepath.Join(s.reportsDir, ReportFileName(project, s.now()))
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		return "", "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, body, nil
}

// ReportFileName builds Report_<project>_<YYYYMMDD_HHMMSS>.md with unsafe
// characters in the project name replaced by underscores.
func ReportFileName(project string, at time.Time) string {
	safe := unsafeFileChars.ReplaceAllString(project, "_")
	if safe == "" {
		safe = DefaultProject
	}
	return fmt.Sprintf("Report_%s_%s.md", safe, at.Format(reportTimestampLayout))
}

// =============================================================================
// BACKGROUND GRADING
// =============================================================================

// LogAsync queues the turn for grading and returns immediately. The project
// name is captured now, so a later StartSession does not relabel the turn.
// It reports whether the job was accepted.
func (s *Session) LogAsync(userInput, tutorResponse string) bool {
	_, project := s.current()
	job := GradeJob{
		ID:            uuid.NewString(),
		UserInput:     userInput,
		TutorResponse: tutorResponse,
		Project:       project,
		Enqueued:      time.Now(),
	}
	ok := s.pool.Submit(job)
	if !ok {
		s.logger.Warn("grading job dropped", zap.String("job_id", job.ID), zap.String("project", project))
	}
	return ok
}

func (s *Session) grade(ctx context.Context, job GradeJob) error {
	ctx, cancel := context.WithTimeout(ctx, s.gradingTimeout)
	defer cancel()

	timer := logging.StartTimer(logging.CategoryGrading, "grade "+job.ID)
	defer timer.StopWithThreshold(s.gradingTimeout / 2)

	err := s.gradeAndStore(ctx, job)
	if err != nil {
		s.debugf("[Log Error: %v]\n", err)
		return err
	}
	logging.Grading("Progress saved for %q (job %s)", job.Project, job.ID)
	s.debugf("[System: Progress Saved for '%s' ✓]\n", job.Project)
	return nil
}

func (s *Session) gradeAndStore(ctx context.Context, job GradeJob) error {
	out, err := s.client.Generate(ctx, gradingPrompt(job.UserInput, job.TutorResponse), chat.GenerateOptions{
		Model:  s.graderModel,
		JSON:   true,
		Schema: gradingSchema,
	})
	if err != nil {
		return fmt.Errorf("grading call failed: %w", err)
	}

	a, err := progress.ParseAssessment([]byte(out))
	if err != nil {
		return err
	}
	return s.tracker.LogInteraction(a, job.TutorResponse, job.Project)
}

func (s *Session) debugf(format string, args ...any) {
	if !s.debug || s.debugOut == nil {
		return
	}
	s.debugMu.Lock()
	defer s.debugMu.Unlock()
	fmt.Fprintf(s.debugOut, format, args...)
}

// Flush waits for every accepted grading job to finish.
func (s *Session) Flush(ctx context.Context) error {
	return s.pool.Flush(ctx)
}

// GradingStats reports grading pool counters.
func (s *Session) GradingStats() PoolStats {
	return s.pool.Stats()
}

// Close abandons pending grading and stops the pool workers.
func (s *Session) Close() {
	s.pool.Close()
}
