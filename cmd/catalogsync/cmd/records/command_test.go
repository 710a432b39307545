package records_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/sebdah/goldie/v2"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync"
	"github.com/agentstation/catalogsync/cmd/catalogsync/cmd/records"
	"github.com/agentstation/catalogsync/internal/appcontext"
	"github.com/agentstation/catalogsync/internal/cmd/output"
	"github.com/agentstation/catalogsync/internal/remote/remotetest"
	"github.com/agentstation/catalogsync/internal/store/memory"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
	catalog "github.com/agentstation/catalogsync/pkg/records"
)

func at(hours int) utc.Time {
	return utc.New(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(hours) * time.Hour))
}

func newApp(t *testing.T, remote *remotetest.Fake) (*appcontext.Mock, catalogsync.Client) {
	t.Helper()
	logging.DisableLoggingForTest(t)

	store := memory.New(memory.WithClock(func() utc.Time { return at(50) }))
	client, err := catalogsync.New(
		catalogsync.WithStore(store),
		catalogsync.WithRemoteSource(remote),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return &appcontext.Mock{
		ClientFunc: func() (catalogsync.Client, error) { return client, nil },
		Token:      "secret",
		Format:     "json",
	}, client
}

func run(t *testing.T, cmd *cobra.Command, args ...string) ([]byte, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.Bytes(), err
}

func decodeRecord(t *testing.T, data []byte) output.Record {
	t.Helper()
	var rec output.Record
	require.NoError(t, json.Unmarshal(data, &rec))
	return rec
}

func pan() catalog.RemoteRecord {
	return catalog.RemoteRecord{
		RemoteID:  7,
		Fields:    catalog.Fields{Name: "Pan", UnitCost: 1.25, Active: true},
		CreatedAt: at(1),
		UpdatedAt: at(1),
	}
}

func TestListAfterSync(t *testing.T) {
	remote := &remotetest.Fake{NextID: 40, Catalog: []catalog.RemoteRecord{pan()}}
	app, client := newApp(t, remote)

	_, err := run(t, records.NewAddCommand(app), "--name", "Queso", "--cost", "7")
	require.NoError(t, err)
	_, err = client.Sync(context.Background(), "secret")
	require.NoError(t, err)

	out, err := run(t, records.NewListCommand(app))
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "list_after_sync", out)
}

func TestListUnlinked(t *testing.T) {
	remote := &remotetest.Fake{Catalog: []catalog.RemoteRecord{pan()}}
	app, client := newApp(t, remote)

	_, err := client.Sync(context.Background(), "secret")
	require.NoError(t, err)
	_, err = run(t, records.NewAddCommand(app), "--name", "Queso", "--cost", "7", "--sku", "QS-1")
	require.NoError(t, err)

	out, err := run(t, records.NewListCommand(app), "--unlinked")
	require.NoError(t, err)

	var list output.RecordList
	require.NoError(t, json.Unmarshal(out, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Queso", list[0].Name)
	assert.Nil(t, list[0].RemoteID)
	require.NotNil(t, list[0].ExternalCode)
	assert.Equal(t, "QS-1", *list[0].ExternalCode)
}

func TestAddWithPush(t *testing.T) {
	remote := &remotetest.Fake{NextID: 40}
	app, _ := newApp(t, remote)

	out, err := run(t, records.NewAddCommand(app), "--name", "Te verde", "--cost", "3.5", "--push")
	require.NoError(t, err)

	rec := decodeRecord(t, out)
	require.NotNil(t, rec.RemoteID)
	assert.Equal(t, int64(41), *rec.RemoteID)
	assert.True(t, rec.Active)
	assert.Len(t, remote.IdempotencyKeys(), 1)
}

func TestAddPushFailureStillStores(t *testing.T) {
	remote := &remotetest.Fake{CreateErr: errors.NewRejectedError(422, "duplicate sku")}
	app, client := newApp(t, remote)

	out, err := run(t, records.NewAddCommand(app), "--name", "Te verde", "--push", "--inactive")
	require.NoError(t, err)

	rec := decodeRecord(t, out)
	assert.Nil(t, rec.RemoteID)
	assert.False(t, rec.Active)

	recs, err := client.Records(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestAddValidation(t *testing.T) {
	app, _ := newApp(t, &remotetest.Fake{})

	_, err := run(t, records.NewAddCommand(app))
	require.Error(t, err, "--name is required")

	_, err = run(t, records.NewAddCommand(app), "--name", "Pan", "--cost=-1")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestEdit(t *testing.T) {
	app, client := newApp(t, &remotetest.Fake{})

	rec, _, err := client.Add(context.Background(), catalog.Fields{
		Name:         "Queso",
		Description:  catalog.Ptr("fresco"),
		ExternalCode: catalog.Ptr("QS-1"),
		UnitCost:     7,
		Active:       true,
	})
	require.NoError(t, err)

	out, err := run(t, records.NewEditCommand(app), rec.LocalID.String(), "--cost", "5.25", "--no-sku", "--inactive")
	require.NoError(t, err)

	edited := decodeRecord(t, out)
	assert.Equal(t, "Queso", edited.Name)
	assert.Equal(t, 5.25, edited.UnitCost)
	assert.False(t, edited.Active)
	assert.Nil(t, edited.ExternalCode)
	require.NotNil(t, edited.Description)
	assert.Equal(t, "fresco", *edited.Description)
}

func TestEditErrors(t *testing.T) {
	app, _ := newApp(t, &remotetest.Fake{})

	_, err := run(t, records.NewEditCommand(app), "abc", "--cost", "1")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	_, err = run(t, records.NewEditCommand(app), "99", "--cost", "1")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}
