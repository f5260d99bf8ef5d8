package lookup

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrotrace/agrotrace/internal/upstream"
)

type mockSource struct {
	vergerCalls   int
	campagneCalls int
}

func (m *mockSource) Vergers(ctx context.Context) ([]upstream.Option, error) {
	m.vergerCalls++
	return []upstream.Option{
		{Value: 1, Label: "Domaine des Cèdres"},
		{Value: 2, Label: "Verger Atlas"},
	}, nil
}

func (m *mockSource) GrpVars(ctx context.Context) ([]upstream.Option, error) {
	return []upstream.Option{{Value: 10, Label: "Pommes"}}, nil
}

func (m *mockSource) Varietes(ctx context.Context) ([]upstream.Option, error) {
	return []upstream.Option{
		{Value: 100, Label: "Golden", GroupID: 10},
		{Value: 101, Label: "Gala", GroupID: 10},
	}, nil
}

func (m *mockSource) Destinations(ctx context.Context) ([]upstream.Option, error) {
	return []upstream.Option{{Value: 7, Label: "Export UE"}}, nil
}

func (m *mockSource) TypeEcarts(ctx context.Context) ([]upstream.Option, error) {
	return []upstream.Option{{Value: 3, Code: "VE", Label: "Vente écart"}}, nil
}

func (m *mockSource) CampagneDates(ctx context.Context) (upstream.CampagneDates, error) {
	m.campagneCalls++
	return upstream.CampagneDates{
		StartDate: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
	}, nil
}

func newTestService(t *testing.T, source Source) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(source, NewCache(client, time.Minute))
}

func TestLoadBuildsResolutionIndexes(t *testing.T) {
	source := &mockSource{}
	svc := newTestService(t, source)

	snap, err := svc.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Domaine des Cèdres", snap.VergerName(1))
	assert.Equal(t, "Pommes", snap.GrpVarName(10))
	assert.Equal(t, "Vente écart", snap.TypeEcartName("VE"))

	group, ok := snap.VarieteGroup(101)
	require.True(t, ok)
	assert.Equal(t, int64(10), group)
}

func TestResolutionFallsBackToRawIdentifiers(t *testing.T) {
	source := &mockSource{}
	svc := newTestService(t, source)

	snap, err := svc.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "99", snap.VergerName(99))
	assert.Equal(t, "XX", snap.TypeEcartName("XX"))
}

func TestLoadIsCachedUntilRefresh(t *testing.T) {
	source := &mockSource{}
	svc := newTestService(t, source)
	ctx := context.Background()

	_, err := svc.Load(ctx)
	require.NoError(t, err)
	_, err = svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, source.vergerCalls)
	assert.Equal(t, 1, source.campagneCalls)

	_, err = svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, source.vergerCalls)
}

func TestSnapshotReportsLoadState(t *testing.T) {
	svc := newTestService(t, &mockSource{})

	_, ok := svc.Snapshot()
	assert.False(t, ok)

	_, err := svc.Load(context.Background())
	require.NoError(t, err)

	snap, ok := svc.Snapshot()
	assert.True(t, ok)
	assert.NotNil(t, snap)
}
