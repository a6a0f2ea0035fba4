package registry_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uamlab/uam/internal/ledger"
	"github.com/uamlab/uam/internal/registry"
	"github.com/uamlab/uam/internal/store"
	"github.com/uamlab/uam/internal/testutil"
)

var testBase = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestRegistry(t *testing.T) (*registry.Registry, *testutil.FixedClock) {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "uam.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	clock := testutil.NewFixedClock(testBase)
	return registry.NewWithClock(s, clock), clock
}

func TestRegisterConstant_AppendsOneRecord(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	rec, err := reg.RegisterConstant(ctx, "gamma", ledger.Float(0.8), "fitted", ledger.ScaleDimensionless, "paper-3", "coupling exponent")
	require.NoError(t, err)

	assert.Equal(t, ledger.KindConstant, rec.Kind)
	assert.Equal(t, "gamma", rec.Name)
	assert.Equal(t, int64(0), rec.Position)
	assert.Equal(t, ledger.GenesisHash(), rec.PreviousHash)
	assert.Equal(t, testBase, rec.Timestamp)
	assert.Equal(t, ledger.SchemaVersion, rec.SchemaVersion)

	payload, ok := rec.Payload.(ledger.ConstantPayload)
	require.True(t, ok)
	assert.Equal(t, ledger.Float(0.8), payload.Value)
	assert.Equal(t, ledger.ScaleDimensionless, payload.Scale)

	n, err := reg.Store().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRegisterConstant_SameNameAppendsNotOverwrites(t *testing.T) {
	reg, clock := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.RegisterConstant(ctx, "C_S", ledger.Float(0.678), "initial fit", ledger.ScaleAnalytic, "", "")
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = reg.RegisterConstant(ctx, "C_S", ledger.Float(0.70), "refined fit", ledger.ScaleAnalytic, "", "")
	require.NoError(t, err)

	history, err := reg.Store().ReadByName(ctx, ledger.KindConstant, "C_S")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, ledger.Float(0.678), history[0].Payload.(ledger.ConstantPayload).Value)
	assert.Equal(t, ledger.Float(0.70), history[1].Payload.(ledger.ConstantPayload).Value)

	// Current value resolves to the most recent revision.
	current, err := reg.Store().Last(ctx, ledger.KindConstant, "C_S")
	require.NoError(t, err)
	assert.Equal(t, ledger.Float(0.70), current.Payload.(ledger.ConstantPayload).Value)
}

func TestRegisterConstant_Validation(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.RegisterConstant(ctx, "", ledger.Float(1), "", ledger.ScaleAnalytic, "", "")
	assert.ErrorContains(t, err, "name is required")

	_, err = reg.RegisterConstant(ctx, "gamma", nil, "", ledger.ScaleAnalytic, "", "")
	assert.ErrorContains(t, err, "value is required")

	_, err = reg.RegisterConstant(ctx, "gamma", ledger.Float(1), "", ledger.Scale("galactic"), "", "")
	assert.ErrorContains(t, err, "unknown scale")

	n, err := reg.Store().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "rejected registrations must not append")
}

func TestRegisterDerivation(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	rec, err := reg.RegisterDerivation(ctx, "mass-gap", "Delta = C_S * Lambda", "spectral gap estimate", ledger.ScaleQuantum, false)
	require.NoError(t, err)

	payload, ok := rec.Payload.(ledger.DerivationPayload)
	require.True(t, ok)
	assert.Equal(t, "Delta = C_S * Lambda", payload.Formula)
	assert.False(t, payload.Reproducible)

	_, err = reg.RegisterDerivation(ctx, "mass-gap", "", "", ledger.ScaleQuantum, false)
	assert.ErrorContains(t, err, "formula is required")
}

func TestRegisterDataset(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	rec, err := reg.RegisterDataset(ctx, "lattice-48", "48^4 lattice ensemble", "run-2024-11", true)
	require.NoError(t, err)

	payload, ok := rec.Payload.(ledger.DatasetPayload)
	require.True(t, ok)
	assert.Equal(t, "48^4 lattice ensemble", payload.Description)
	assert.True(t, payload.Validated)

	_, err = reg.RegisterDataset(ctx, "", "", "", false)
	assert.ErrorContains(t, err, "name is required")
}

func TestRegisterFailure_GeneratesUniqueNames(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	first, err := reg.RegisterFailure(ctx, "spectral gap bound", "divergent integral")
	require.NoError(t, err)
	second, err := reg.RegisterFailure(ctx, "spectral gap bound", "divergent integral")
	require.NoError(t, err)

	// Identical failures accumulate as distinct records.
	assert.NotEqual(t, first.Name, second.Name)
	_, err = uuid.Parse(first.Name)
	assert.NoError(t, err, "failure name should be a UUID")

	n, err := reg.Store().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = reg.RegisterFailure(ctx, "", "reason")
	assert.ErrorContains(t, err, "context is required")
}

func TestTimestamps_NeverDecrease(t *testing.T) {
	reg, clock := newTestRegistry(t)
	ctx := context.Background()

	first, err := reg.RegisterDataset(ctx, "a", "", "", false)
	require.NoError(t, err)

	clock.Advance(3 * time.Second)
	second, err := reg.RegisterDataset(ctx, "b", "", "", false)
	require.NoError(t, err)

	assert.False(t, second.Timestamp.Before(first.Timestamp))
	assert.Equal(t, testBase.Add(3*time.Second), second.Timestamp)
}

func TestConcurrentRegistrations_ChainStaysIntact(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	const writers = 6
	const perWriter = 4

	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := reg.RegisterFailure(ctx, "stress", "concurrent append")
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	records, err := reg.Store().ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, writers*perWriter)

	report, err := ledger.VerifyChain(records)
	require.NoError(t, err)
	assert.True(t, report.OK, "chain broken: %s", report.Detail)
}
