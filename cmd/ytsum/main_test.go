package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ytsum/internal/acquire"
	"ytsum/internal/config"
	"ytsum/internal/pipeline"
	"ytsum/internal/services"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	workDir    string

	runner    *fakeRunner
	inspector *fakeInspector
	built     *config.Config
}

type fakeRunner struct {
	result pipeline.Result
	err    error
	urls   []string
}

func (f *fakeRunner) Run(_ context.Context, rawURL string) (pipeline.Result, error) {
	f.urls = append(f.urls, rawURL)
	if f.err != nil {
		return pipeline.Result{}, f.err
	}
	result := f.result
	result.SourceURL = rawURL
	return result, nil
}

type fakeInspector struct {
	meta acquire.Metadata
	err  error
}

func (f *fakeInspector) Inspect(context.Context, string) (acquire.Metadata, error) {
	return f.meta, f.err
}

func setupCLITestEnv(t *testing.T, apiKey string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	for _, key := range []string{"GROQ_API_KEY", "OPENAI_API_KEY", "GROQ_MODEL", "WHISPER_MODEL", "MAX_CHUNK_LENGTH", "CHUNK_LENGTH_SECONDS"} {
		t.Setenv(key, "")
	}

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "config.toml"),
		workDir:    filepath.Join(base, "runs"),
		runner: &fakeRunner{result: pipeline.Result{
			Title:   "Café Lecture: Part 1",
			Summary: "## 🎯 Main Topic\nLimits.\n",
		}},
		inspector: &fakeInspector{meta: acquire.Metadata{Title: "Long Talk", DurationSeconds: 5400}},
	}

	contents := fmt.Sprintf(`[paths]
work_dir = %q
log_dir = %q

[chunking]
trigger_seconds = 1800
length_seconds = 1800

[llm]
api_key = %q
model = "llama-3.1-8b-instant"
`, env.workDir, filepath.Join(base, "logs"), apiKey)
	if err := os.WriteFile(env.configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func (env *cliTestEnv) override(ctx *commandContext) {
	ctx.newRunner = func(cfg *config.Config, _ *slog.Logger, _ pipeline.Observer, _ acquire.ProgressFunc) (runner, error) {
		env.built = cfg
		return env.runner, nil
	}
	ctx.newInspector = func(*config.Config, *slog.Logger) (acquire.Inspector, error) {
		return env.inspector, nil
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand(env.override)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestSummarizePrintsSummary(t *testing.T) {
	env := setupCLITestEnv(t, "test-key")

	out, _, err := runCLI(t, env, "summarize", "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	requireContains(t, out, "Main Topic")
	if len(env.runner.urls) != 1 || env.runner.urls[0] != "https://youtu.be/abc123" {
		t.Fatalf("runner received %v", env.runner.urls)
	}
	if env.built.Chunking.TriggerSeconds != 1800 || env.built.LLM.Model != "llama-3.1-8b-instant" {
		t.Fatalf("unexpected config passed to runner: %+v", env.built)
	}
}

func TestSummarizeFlagsOverrideConfig(t *testing.T) {
	env := setupCLITestEnv(t, "test-key")

	_, _, err := runCLI(t, env, "summarize",
		"--whisper-model", "Small",
		"--chunk-length", "600",
		"--chunk-trigger", "900",
		"--model", "llama-3.3-70b-versatile",
		"https://youtu.be/abc123",
	)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	cfg := env.built
	if cfg.Transcription.Model != "small" || cfg.Chunking.LengthSeconds != 600 || cfg.Chunking.TriggerSeconds != 900 || cfg.LLM.Model != "llama-3.3-70b-versatile" {
		t.Fatalf("flags not applied: %+v", cfg)
	}
}

func TestSummarizeRejectsInvalidFlags(t *testing.T) {
	env := setupCLITestEnv(t, "test-key")

	if _, _, err := runCLI(t, env, "summarize", "--whisper-model", "huge", "https://youtu.be/abc123"); err == nil {
		t.Fatal("expected invalid whisper model error")
	}
	if _, _, err := runCLI(t, env, "summarize", "--chunk-length", "0", "https://youtu.be/abc123"); err == nil {
		t.Fatal("expected invalid chunk length error")
	}
	if len(env.runner.urls) != 0 {
		t.Fatalf("runner should not run with invalid flags: %v", env.runner.urls)
	}
}

func TestSummarizeRequiresAPIKey(t *testing.T) {
	env := setupCLITestEnv(t, "")

	_, _, err := runCLI(t, env, "summarize", "https://youtu.be/abc123")
	if err == nil || !strings.Contains(err.Error(), "GROQ_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestSummarizeSurfacesPipelineError(t *testing.T) {
	env := setupCLITestEnv(t, "test-key")
	env.runner.err = services.NewPipelineError("acquire", "bad", services.Wrap(services.ErrAcquisition, "acquire", "validate", "invalid url", nil))

	out, _, err := runCLI(t, env, "summarize", "bad")
	if !errors.Is(err, services.ErrAcquisition) {
		t.Fatalf("expected acquisition error, got %v", err)
	}
	if strings.Contains(err.Error(), "\n") {
		t.Fatalf("error should be a single line: %q", err.Error())
	}
	if out != "" {
		t.Fatalf("no partial output expected, got %q", out)
	}
}

func TestSummarizeOutputAndSave(t *testing.T) {
	env := setupCLITestEnv(t, "test-key")
	dir := t.TempDir()
	t.Chdir(dir)
	target := filepath.Join(dir, "out.txt")

	out, stderr, err := runCLI(t, env, "summarize", "-o", target, "--save", "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if out != "" {
		t.Fatalf("stdout should be empty with --output, got %q", out)
	}
	requireContains(t, stderr, "Summary written to")

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	requireContains(t, string(data), "Limits.")

	saved, err := os.ReadFile(filepath.Join(dir, "cafe-lecture-part-1.md"))
	if err != nil {
		t.Fatalf("read saved summary: %v", err)
	}
	requireContains(t, string(saved), "# Café Lecture: Part 1")
	requireContains(t, string(saved), "Source: https://youtu.be/abc123")
}

func TestSummarizeSweepsStaleRuns(t *testing.T) {
	env := setupCLITestEnv(t, "test-key")
	stale := filepath.Join(env.workDir, "stale-run")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatal(err)
	}
	old := mustOldTime(t)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	if _, _, err := runCLI(t, env, "summarize", "https://youtu.be/abc123"); err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale run removed, stat err=%v", err)
	}
}

func TestPlanChunkedVideo(t *testing.T) {
	env := setupCLITestEnv(t, "")

	out, _, err := runCLI(t, env, "plan", "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	requireContains(t, out, "Long Talk")
	requireContains(t, out, "1:30:00")
	requireContains(t, out, "chunked, 3 chunks")
	requireContains(t, out, "1:00:00")
}

func TestPlanShortVideo(t *testing.T) {
	env := setupCLITestEnv(t, "")
	env.inspector.meta = acquire.Metadata{Title: "Short", DurationSeconds: 600}

	out, _, err := runCLI(t, env, "plan", "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	requireContains(t, out, "single pass")
}

func TestCleanAll(t *testing.T) {
	env := setupCLITestEnv(t, "")
	for _, name := range []string{"a", "b"} {
		dir := filepath.Join(env.workDir, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		old := mustOldTime(t)
		if err := os.Chtimes(dir, old, old); err != nil {
			t.Fatal(err)
		}
	}

	out, _, err := runCLI(t, env, "clean", "--list")
	if err != nil {
		t.Fatalf("clean --list: %v", err)
	}
	requireContains(t, out, "Run")

	out, _, err = runCLI(t, env, "clean", "--all")
	if err != nil {
		t.Fatalf("clean --all: %v", err)
	}
	requireContains(t, out, "Removed 2 run directories")
}

func TestStatusRenders(t *testing.T) {
	env := setupCLITestEnv(t, "")
	t.Setenv("PATH", t.TempDir())

	out, _, err := runCLI(t, env, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Work directory:")
	requireContains(t, out, "[ERROR]")
	requireContains(t, out, "not ready")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t, "test-key")

	out, _, err := runCLI(t, env, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config exists without --overwrite")
	}
}

func TestConfigShowMasksKey(t *testing.T) {
	env := setupCLITestEnv(t, "gsk_abcdefghijklmnop")

	out, _, err := runCLI(t, env, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "gsk_abcdefghijklmnop") {
		t.Fatalf("api key leaked: %s", out)
	}
	requireContains(t, out, "gsk_****mnop")
	requireContains(t, out, "trigger_seconds = 1800")
}
