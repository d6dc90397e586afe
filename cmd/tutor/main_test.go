package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"gemtutor/internal/chat"
	"gemtutor/internal/config"
	"gemtutor/internal/profile"
	"gemtutor/internal/progress"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeConversation struct {
	mu      sync.Mutex
	history []chat.Message
	fail    bool
}

func (c *fakeConversation) Send(ctx context.Context, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail && !strings.HasPrefix(text, "Generate a Session Report Card") {
		return "", errors.New("upstream unavailable")
	}
	reply := "Think about **variance** first."
	if strings.HasPrefix(text, "Generate a Session Report Card") {
		reply = "# Report Card\nTopics Covered: bias"
	}
	c.history = append(c.history,
		chat.Message{Role: chat.RoleUser, Text: text},
		chat.Message{Role: chat.RoleModel, Text: reply})
	return reply, nil
}

func (c *fakeConversation) History() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chat.Message(nil), c.history...)
}

type fakeClient struct {
	failSend bool
}

func (f *fakeClient) Name() string { return "fake:model" }

func (f *fakeClient) StartConversation(ctx context.Context, system string) (chat.Conversation, error) {
	return &fakeConversation{fail: f.failSend}, nil
}

func (f *fakeClient) Generate(ctx context.Context, prompt string, opts chat.GenerateOptions) (string, error) {
	return `{"topic": "Bias-Variance", "mastery": 6, "notes": "getting there"}`, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := config.DefaultConfig()
	c.Resolve(t.TempDir())
	c.LLM.APIKey = "test-key"
	return c
}

func newTestApp(t *testing.T, c *config.Config, client chat.Client, input string) (*app, *bytes.Buffer) {
	t.Helper()
	logger = zap.NewNop()
	out := &bytes.Buffer{}
	a, err := newApp(c, client, strings.NewReader(input), out, appOptions{Plain: true})
	require.NoError(t, err)
	return a, out
}

// =============================================================================
// INTERACTIVE MENU
// =============================================================================

func TestRunMenu_FirstRun(t *testing.T) {
	c := testConfig(t)
	c.Grading.FlushOnExit = true
	a, out := newTestApp(t, c, &fakeClient{}, "Ada\n1\nThesis\nexplain bias\nquit\n3\n")

	require.NoError(t, a.runMenu(context.Background()))
	a.close()

	got := out.String()
	for _, want := range []string{
		bannerText,
		"What should I call you? ",
		"Welcome back, Ada!",
		"1. Start/Resume Session",
		"Enter Project Name (default: 'General'): ",
		"Session started for project: Thesis",
		"[Thesis] You: ",
		"Think about **variance** first.",
		"Generating Session Report Card...",
		"Session Summary",
		"Report Card generated: ",
		"Goodbye!",
	} {
		assert.Contains(t, got, want)
	}
	assert.NotContains(t, got, "[Latency:")

	p := profile.Load(c.Storage.ProfilePath)
	assert.Equal(t, "Ada", p.Name())
	assert.Equal(t, "Thesis", p.LastProject())

	reports, err := filepath.Glob(filepath.Join(c.Storage.ReportsDir, "Report_Thesis_*.md"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	tracker, err := progress.NewTracker(c.Storage.ProgressPath)
	require.NoError(t, err)
	records, err := tracker.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Bias-Variance", records[0].Topic)
	assert.Equal(t, "Thesis", records[0].Project)
}

func TestRunMenu_ReturningUserDefaultsToLastProject(t *testing.T) {
	c := testConfig(t)
	p := profile.Load(c.Storage.ProfilePath)
	require.NoError(t, p.SetName("Ada"))
	require.NoError(t, p.SetLastProject("Thesis"))

	a, out := newTestApp(t, c, &fakeClient{}, "1\n\nmenu\n3\n")
	defer a.close()
	require.NoError(t, a.runMenu(context.Background()))

	got := out.String()
	assert.NotContains(t, got, "What should I call you?")
	assert.Contains(t, got, "Enter Project Name (default: 'Thesis'): ")
	assert.Contains(t, got, "Session started for project: Thesis")
	assert.Contains(t, got, "No interaction history.")
}

func TestRunMenu_InvalidChoiceAndRoadmap(t *testing.T) {
	c := testConfig(t)
	a, out := newTestApp(t, c, &fakeClient{}, "Ada\n9\n2\n\n3\n")
	defer a.close()
	require.NoError(t, a.runMenu(context.Background()))

	got := out.String()
	assert.Contains(t, got, "Invalid choice.")
	assert.Contains(t, got, "Roadmap not found.")
	assert.Contains(t, got, "Goodbye!")
}

func TestRunMenu_EOFMidSession(t *testing.T) {
	c := testConfig(t)
	a, out := newTestApp(t, c, &fakeClient{}, "Ada\n1\nP\nhello")
	defer a.close()
	require.NoError(t, a.runMenu(context.Background()))

	got := out.String()
	assert.Contains(t, got, "Think about **variance** first.")
	assert.Contains(t, got, "Report Card generated: ")
}

func TestRunSession_ErrorsDoNotEndSession(t *testing.T) {
	c := testConfig(t)
	a, out := newTestApp(t, c, &fakeClient{failSend: true}, "first\n\nexit\n")
	defer a.close()
	require.NoError(t, a.runSession(context.Background(), "P"))

	got := out.String()
	assert.Contains(t, got, "Error: upstream unavailable")
	assert.Equal(t, 3, strings.Count(got, "[P] You: "), "blank line is skipped and the loop keeps prompting")
	assert.Contains(t, got, "No interaction history.")
}

func TestRunSession_DebugOutput(t *testing.T) {
	c := testConfig(t)
	c.Grading.FlushOnExit = true
	logger = zap.NewNop()
	out := &bytes.Buffer{}
	a, err := newApp(c, &fakeClient{}, strings.NewReader("hi\nquit\n"), out, appOptions{Plain: true, Debug: true})
	require.NoError(t, err)

	require.NoError(t, a.runSession(context.Background(), "Dbg"))
	a.close()

	got := out.String()
	assert.Contains(t, got, "Tutor is thinking...")
	assert.Contains(t, got, "[Latency: ")
	assert.Contains(t, got, "[System: Progress Saved for 'Dbg' ✓]")
}

func TestIsLeaveCommand(t *testing.T) {
	for _, in := range []string{"quit", "EXIT", " Menu "} {
		assert.True(t, isLeaveCommand(in), in)
	}
	for _, in := range []string{"", "quitting", "menu please"} {
		assert.False(t, isLeaveCommand(in), in)
	}
}

// =============================================================================
// APP WIRING
// =============================================================================

func TestOpenApp_MissingCredential(t *testing.T) {
	c := testConfig(t)
	c.LLM.APIKey = ""

	out := &bytes.Buffer{}
	_, err := openApp(context.Background(), c, strings.NewReader(""), out, appOptions{Plain: true})
	assert.ErrorIs(t, err, errMissingCredential)
	assert.Contains(t, out.String(), "API Key not found in "+c.LLM.APIKeyFile+". Please add it.")
}

func TestOpenApp_CredentialFile(t *testing.T) {
	c := testConfig(t)
	c.LLM.APIKey = ""
	require.NoError(t, os.WriteFile(c.LLM.APIKeyFile, []byte("  file-key \n"), 0600))

	var gotKey string
	orig := newChatClient
	newChatClient = func(ctx context.Context, c *config.Config, apiKey string) (chat.Client, error) {
		gotKey = apiKey
		return &fakeClient{}, nil
	}
	t.Cleanup(func() { newChatClient = orig })

	a, err := openApp(context.Background(), c, strings.NewReader(""), &bytes.Buffer{}, appOptions{Plain: true})
	require.NoError(t, err)
	a.close()
	assert.Equal(t, "file-key", gotKey)
}

// =============================================================================
// SUBCOMMANDS
// =============================================================================

func TestPrintHistory(t *testing.T) {
	logger = zap.NewNop()
	path := filepath.Join(t.TempDir(), "progress_db.csv")

	var out bytes.Buffer
	require.NoError(t, printHistory(&out, path, 5))
	assert.Equal(t, progress.NoHistory, out.String())

	tracker, err := progress.NewTracker(path)
	require.NoError(t, err)
	require.NoError(t, tracker.LogInteraction(progress.Assessment{Topic: "Bayes", Mastery: 3, Notes: "n"}, "r", "Stats"))

	out.Reset()
	require.NoError(t, printHistory(&out, path, 5))
	assert.Contains(t, out.String(), "- Topic: Bayes | Project: Stats | Notes: n")
}

func TestPrintRoadmap(t *testing.T) {
	dir := t.TempDir()

	var out bytes.Buffer
	require.NoError(t, printRoadmap(&out, filepath.Join(dir, "missing.json")))
	assert.Equal(t, "Roadmap not found.\n", out.String())

	path := filepath.Join(dir, "curriculum.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"roadmap":[{"phase":"Phase 1","topics":["Probability"]}]}`), 0644))
	out.Reset()
	require.NoError(t, printRoadmap(&out, path))
	assert.Contains(t, out.String(), "[Phase 1]\n  - Probability\n")

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0644))
	assert.Error(t, printRoadmap(&out, path))
}

func TestWriteDefaultConfig(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), config.DefaultConfigFile)

	var out bytes.Buffer
	require.NoError(t, writeDefaultConfig(&out, path, false))
	assert.Equal(t, "Config written: "+path+"\n", out.String())

	def := config.DefaultConfig()
	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, def.LLM, loaded.LLM)
	assert.Equal(t, def.Storage, loaded.Storage)
	assert.Equal(t, def.Grading, loaded.Grading)
	require.NoError(t, loaded.Validate())

	require.NoError(t, os.WriteFile(path, []byte("history:\n  limit: 9\n"), 0644))
	out.Reset()
	require.NoError(t, writeDefaultConfig(&out, path, false))
	assert.Contains(t, out.String(), "Config already exists: ")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "history:\n  limit: 9\n", string(data))

	out.Reset()
	require.NoError(t, writeDefaultConfig(&out, path, true))
	loaded, err = config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.History.Limit)
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "TUTOR_PROGRESS_DB", "TUTOR_REPORTS_DIR"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_Workspace(t *testing.T) {
	logger = zap.NewNop()
	for _, k := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "TUTOR_PROGRESS_DB", "TUTOR_REPORTS_DIR"} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultConfigFile), []byte("history:\n  limit: 9\n"), 0644))

	origWS, origCfg := workspace, configPath
	workspace, configPath = dir, ""
	t.Cleanup(func() { workspace, configPath = origWS, origCfg })

	c, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9, c.History.Limit)
	assert.Equal(t, filepath.Join(dir, "progress_db.csv"), c.Storage.ProgressPath)
}
