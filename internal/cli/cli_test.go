package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uamlab/uam/internal/cli"
	"github.com/uamlab/uam/internal/ledger"
	"github.com/uamlab/uam/internal/registry"
	"github.com/uamlab/uam/internal/store"
	"github.com/uamlab/uam/internal/testutil"
)

var testBase = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

// runCommand executes the CLI with the given args and captures stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := cli.NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

// seedGammaHistory writes two deterministic revisions of the constant
// "gamma" and returns the database path. Fixed timestamps give fixed
// signatures, which the golden test depends on.
func seedGammaHistory(t *testing.T) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "uam.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	clock := testutil.NewFixedClock(testBase)
	reg := registry.NewWithClock(st, clock)

	_, err = reg.RegisterConstant(context.Background(), "gamma", ledger.Float(0.8), "", ledger.ScaleDimensionless, "", "")
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = reg.RegisterConstant(context.Background(), "gamma", ledger.Float(0.9), "", ledger.ScaleDimensionless, "", "")
	require.NoError(t, err)

	return dbPath
}

func TestHistoryCommand_Golden(t *testing.T) {
	dbPath := seedGammaHistory(t)

	out, err := runCommand(t, "history", "--kind", "constant", "--name", "gamma", "--db", dbPath)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "history_gamma", []byte(out))
}

func TestRegisterThenCurrent_JSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "uam.db")

	_, err := runCommand(t, "register", "constant",
		"--name", "C_S", "--value", "0.678", "--scale", "analytic",
		"--source", "Talenti (1976)", "--db", dbPath)
	require.NoError(t, err)

	out, err := runCommand(t, "current", "--kind", "constant", "--name", "C_S",
		"--db", dbPath, "--format", "json")
	require.NoError(t, err)

	var resp cli.CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "constant", data["kind"])
	assert.Equal(t, "C_S", data["name"])

	payload, ok := data["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Talenti (1976)", payload["source"])
}

func TestCurrentCommand_NotFound(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "uam.db")

	_, err := runCommand(t, "current", "--kind", "constant", "--name", "missing", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, cli.ExitFailure, cli.GetExitCode(err))
}

func TestCurrentCommand_InvalidKind(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "uam.db")

	_, err := runCommand(t, "current", "--kind", "axiom", "--name", "x", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, cli.ExitCommandError, cli.GetExitCode(err))
}

func TestSearchCommand(t *testing.T) {
	dbPath := seedGammaHistory(t)

	out, err := runCommand(t, "search", "--text", "GAMMA", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, `2 record(s) matching "GAMMA"`)

	out, err = runCommand(t, "search", "--text", "nothing here", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No records matching")
}

func TestVerifyCommand(t *testing.T) {
	dbPath := seedGammaHistory(t)

	out, err := runCommand(t, "verify", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "chain OK: 2 record(s)")

	// Tamper, then verify again.
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	_, err = st.DB().Exec(`UPDATE records SET payload = replace(payload, '0.8', '0.81') WHERE position = 1`)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err = runCommand(t, "verify", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, cli.ExitFailure, cli.GetExitCode(err))
	assert.Contains(t, out, "chain BROKEN at record 0")
}

func TestReplayCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "uam.db")

	_, err := runCommand(t, "register", "derivation",
		"--name", "bound", "--formula", "f(x) < C_S", "--scale", "analytic", "--db", dbPath)
	require.NoError(t, err)

	out, err := runCommand(t, "replay", "--name", "bound", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, `replay "bound": valid`)

	// An unbalanced formula replays as unstable and exits nonzero.
	_, err = runCommand(t, "register", "derivation",
		"--name", "broken", "--formula", "f(x", "--scale", "analytic", "--db", dbPath)
	require.NoError(t, err)

	out, err = runCommand(t, "replay", "--name", "broken", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, cli.ExitFailure, cli.GetExitCode(err))
	assert.Contains(t, out, `replay "broken": unstable`)
}

func TestReplayCommand_UnknownDerivation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "uam.db")

	_, err := runCommand(t, "replay", "--name", "missing", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, cli.ExitCommandError, cli.GetExitCode(err))
}

func TestInvalidFormatRejected(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "uam.db")

	_, err := runCommand(t, "verify", "--db", dbPath, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestConfigFileResolvesDatabase(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "ledger.db")
	cfgPath := filepath.Join(dir, "uam.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("store: "+dbPath+"\n"), 0o644))

	_, err := runCommand(t, "register", "dataset",
		"--name", "lattice-48", "--source", "run-2024-11", "--validated",
		"--config", cfgPath)
	require.NoError(t, err)

	out, err := runCommand(t, "current", "--kind", "dataset", "--name", "lattice-48", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, `dataset "lattice-48"`)
}

func TestConfigFileDefaultScale(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "ledger.db")
	cfgPath := filepath.Join(dir, "uam.yaml")
	require.NoError(t, os.WriteFile(cfgPath,
		[]byte("store: "+dbPath+"\ndefault_scale: quantum\n"), 0o644))

	// No --scale: the config file's default applies.
	_, err := runCommand(t, "register", "constant",
		"--name", "hbar", "--value", "1", "--config", cfgPath)
	require.NoError(t, err)

	out, err := runCommand(t, "current", "--kind", "constant", "--name", "hbar",
		"--db", dbPath, "--format", "json")
	require.NoError(t, err)

	var resp cli.CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	payload := resp.Data.(map[string]any)["payload"].(map[string]any)
	assert.Equal(t, "quantum", payload["scale"])

	// Explicit --scale still wins over the config default.
	_, err = runCommand(t, "register", "constant",
		"--name", "gamma", "--value", "0.8", "--scale", "dimensionless", "--config", cfgPath)
	require.NoError(t, err)

	out, err = runCommand(t, "current", "--kind", "constant", "--name", "gamma",
		"--db", dbPath, "--format", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	payload = resp.Data.(map[string]any)["payload"].(map[string]any)
	assert.Equal(t, "dimensionless", payload["scale"])
}

func TestRegisterWithoutConfigFallsBackToAnalytic(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "uam.db")

	_, err := runCommand(t, "register", "constant",
		"--name", "C_S", "--value", "0.678", "--db", dbPath)
	require.NoError(t, err)

	out, err := runCommand(t, "current", "--kind", "constant", "--name", "C_S",
		"--db", dbPath, "--format", "json")
	require.NoError(t, err)

	var resp cli.CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	payload := resp.Data.(map[string]any)["payload"].(map[string]any)
	assert.Equal(t, "analytic", payload["scale"])
}

func TestConfigFileMissingExplicitPathFails(t *testing.T) {
	_, err := runCommand(t, "verify", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
