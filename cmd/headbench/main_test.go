package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/headbench/config"
	"github.com/weiihann/headbench/harness"
	"github.com/weiihann/headbench/results"
)

type stubProbe struct{ calls int }

func (p *stubProbe) CPUTime(context.Context) (time.Duration, error) {
	p.calls++

	return time.Duration(p.calls) * time.Millisecond, nil
}

func (p *stubProbe) RSS(context.Context) (uint64, error) {
	p.calls++

	return uint64(p.calls) * 1024, nil
}

type stubLauncher struct {
	launches  int
	failOn    int
	modesSeen []bool
	urls      []string
	navErr    error
	closeErr  error
	closes    int
}

func (l *stubLauncher) Launch(_ context.Context, headless bool) (harness.Browser, error) {
	l.launches++
	l.modesSeen = append(l.modesSeen, headless)

	if l.launches == l.failOn {
		return nil, errors.New("chrome exited")
	}

	return stubBrowser{l: l}, nil
}

type stubBrowser struct{ l *stubLauncher }

func (b stubBrowser) NewPage(context.Context) (harness.Page, error) { return b, nil }

func (b stubBrowser) Close() error {
	b.l.closes++

	return b.l.closeErr
}

func (b stubBrowser) Navigate(_ context.Context, url string) error {
	b.l.urls = append(b.l.urls, url)

	return b.l.navErr
}

func testDeps(fs afero.Fs, out io.Writer, l *stubLauncher) deps {
	return deps{
		fs:     fs,
		stdout: out,
		resolve: func(string) (string, error) {
			return "/usr/bin/chromium", nil
		},
		launcher: func(string, *slog.Logger) harness.Launcher { return l },
		probe: func(context.Context) (harness.Probe, error) {
			return &stubProbe{}, nil
		},
	}
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.OutputDir = "out"
	cfg.Settle = 0
	cfg.Runs = 3

	return cfg
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunBenchmarkWritesResults(t *testing.T) {
	fs := afero.NewMemMapFs()
	l := &stubLauncher{}

	var out bytes.Buffer

	cfg := testConfig()
	cfg.KeepSamples = true

	err := runBenchmark(context.Background(), discard(), cfg, testDeps(fs, &out, l), false)
	require.NoError(t, err)

	set, err := results.NewStore(fs, "out").Load()
	require.NoError(t, err)
	assert.Equal(t, []harness.Mode{harness.Headful, harness.Headless}, set.Modes())

	assert.Equal(t, 6, l.launches)
	assert.Equal(t, []bool{false, false, false, true, true, true}, l.modesSeen)
	assert.Contains(t, out.String(), "| Headful |")

	exists, err := afero.Exists(fs, "out/benchmark-samples.json")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRunBenchmarkHeadlessFirst(t *testing.T) {
	fs := afero.NewMemMapFs()
	l := &stubLauncher{}

	cfg := testConfig()
	cfg.Modes = []string{"headless", "headful"}

	err := runBenchmark(context.Background(), discard(), cfg, testDeps(fs, io.Discard, l), true)
	require.NoError(t, err)

	set, err := results.NewStore(fs, "out").Load()
	require.NoError(t, err)
	assert.Equal(t, []harness.Mode{harness.Headless, harness.Headful}, set.Modes())
}

func TestRunBenchmarkTrialFailureWritesNothing(t *testing.T) {
	fs := afero.NewMemMapFs()
	l := &stubLauncher{failOn: 5}

	err := runBenchmark(context.Background(), discard(), testConfig(), testDeps(fs, io.Discard, l), false)
	require.Error(t, err)

	var te *harness.TrialError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, harness.Headless, te.Mode)
	assert.Equal(t, 2, te.Trial)
	assert.Equal(t, "launch", te.Step)
	assert.Equal(t, 5, l.launches)

	exists, err := afero.Exists(fs, "out/"+results.ResultsFile)
	require.NoError(t, err)
	assert.False(t, exists, "a failed run must not persist partial results")
}

func TestRunBenchmarkFixture(t *testing.T) {
	fs := afero.NewMemMapFs()
	l := &stubLauncher{}

	cfg := testConfig()
	cfg.Runs = 1
	cfg.Fixture = true

	err := runBenchmark(context.Background(), discard(), cfg, testDeps(fs, io.Discard, l), false)
	require.NoError(t, err)

	require.Len(t, l.urls, 2)
	assert.Contains(t, l.urls[0], "http://127.0.0.1:")
}

func TestRunBenchmarkInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Runs = 0

	err := runBenchmark(context.Background(), discard(), cfg,
		testDeps(afero.NewMemMapFs(), io.Discard, &stubLauncher{}), false)
	assert.Error(t, err)
}

func TestRenderCharts(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := results.NewStore(fs, "out")
	require.NoError(t, store.EnsureDir())

	_, err := store.Save(harness.ResultSet{
		{Mode: harness.Headful, CPUTotal: 400, Memory: 1024, TimeMs: 4000},
		{Mode: harness.Headless, CPUTotal: 300, Memory: 512, TimeMs: 3500},
	})
	require.NoError(t, err)

	var out bytes.Buffer

	err = renderCharts(context.Background(), discard(), testConfig(), testDeps(fs, &out, nil))
	require.NoError(t, err)

	for _, name := range []string{
		"benchmark-cpu.png", "benchmark-memory.png",
		"benchmark-time.png", "benchmark-combined.png",
	} {
		exists, err := afero.Exists(fs, "out/"+name)
		require.NoError(t, err)
		assert.True(t, exists, name)
	}

	assert.Contains(t, out.String(), "| Headless |")
}

func TestRenderChartsMissingResults(t *testing.T) {
	err := renderCharts(context.Background(), discard(), testConfig(),
		testDeps(afero.NewMemMapFs(), io.Discard, nil))
	require.ErrorIs(t, err, results.ErrMissingArtifact)
}

func TestSmokeTest(t *testing.T) {
	l := &stubLauncher{}

	err := smokeTest(context.Background(), discard(), testConfig(),
		testDeps(afero.NewMemMapFs(), io.Discard, l), harness.Headless)
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, l.modesSeen)

	failing := &stubLauncher{failOn: 1}
	err = smokeTest(context.Background(), discard(), testConfig(),
		testDeps(afero.NewMemMapFs(), io.Discard, failing), harness.Headful)
	assert.True(t, harness.IsTrialFailure(err))
}

func TestSmokeTestLogsCloseFailure(t *testing.T) {
	l := &stubLauncher{
		navErr:   errors.New("net::ERR_NAME_NOT_RESOLVED"),
		closeErr: errors.New("browser already gone"),
	}

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	err := smokeTest(context.Background(), logger, testConfig(),
		testDeps(afero.NewMemMapFs(), io.Discard, l), harness.Headless)

	var te *harness.TrialError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "navigate", te.Step)
	assert.Equal(t, 1, l.closes)
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "browser already gone")
}

func TestRootCmdWiring(t *testing.T) {
	root := newRootCmd(discard(), new(slog.LevelVar), config.Default(),
		testDeps(afero.NewMemMapFs(), io.Discard, &stubLauncher{}))

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}

	assert.ElementsMatch(t, []string{"run", "render", "smoke"}, names)
}

func TestFixtureFlagNotesMeasurementBias(t *testing.T) {
	root := newRootCmd(discard(), new(slog.LevelVar), config.Default(),
		testDeps(afero.NewMemMapFs(), io.Discard, &stubLauncher{}))

	run, _, err := root.Find([]string{"run"})
	require.NoError(t, err)

	flag := run.Flags().Lookup("fixture")
	require.NotNil(t, flag)
	assert.Contains(t, flag.Usage, "measured process")
}

func TestRenderCmdMissingResultsFails(t *testing.T) {
	cfg := config.Default()
	cfg.OutputDir = "nowhere"

	root := newRootCmd(discard(), new(slog.LevelVar), cfg,
		testDeps(afero.NewMemMapFs(), io.Discard, nil))
	root.SetArgs([]string{"render"})

	err := root.ExecuteContext(context.Background())
	require.ErrorIs(t, err, results.ErrMissingArtifact)
}
