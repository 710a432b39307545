package catalogsync_test

import (
	"context"
	"fmt"

	"github.com/agentstation/catalogsync"
	"github.com/agentstation/catalogsync/internal/remote/remotetest"
	"github.com/agentstation/catalogsync/internal/store/memory"
	"github.com/agentstation/catalogsync/pkg/logging"
	"github.com/agentstation/catalogsync/pkg/reconciler"
	"github.com/agentstation/catalogsync/pkg/records"
)

// Example demonstrates one reconciliation pass with hooks.
func Example() {
	logging.SetDefault(*logging.NewNopLogger())
	ctx := context.Background()

	remote := &remotetest.Fake{
		NextID: 40,
		Catalog: []records.RemoteRecord{
			{RemoteID: 7, Fields: records.Fields{Name: "Pan", UnitCost: 1.25, Active: true}},
		},
	}

	client, err := catalogsync.New(
		catalogsync.WithStore(memory.New()),
		catalogsync.WithRemoteSource(remote),
	)
	if err != nil {
		panic(err)
	}
	defer client.Close()

	client.OnRecordLinked(func(o reconciler.Outcome) {
		fmt.Printf("linked local %d to remote %d\n", *o.LocalID, *o.RemoteID)
	})

	if _, _, err := client.Add(ctx, records.Fields{Name: "Queso", UnitCost: 7, Active: true}); err != nil {
		panic(err)
	}

	report, err := client.Sync(ctx, "token")
	if err != nil {
		panic(err)
	}
	fmt.Println(report.Summary())
	// Output:
	// linked local 1 to remote 41
	// completed: 1 created, 0 updated, 0 unchanged, 0 conflicted, 1 pushed, 0 push failed
}

// Example_immediatePush demonstrates pushing a record as soon as it is added.
func Example_immediatePush() {
	logging.SetDefault(*logging.NewNopLogger())
	ctx := context.Background()

	client, err := catalogsync.New(
		catalogsync.WithStore(memory.New()),
		catalogsync.WithRemoteSource(&remotetest.Fake{NextID: 99}),
	)
	if err != nil {
		panic(err)
	}
	defer client.Close()

	rec, outcome, err := client.Add(ctx,
		records.Fields{Name: "Te verde", UnitCost: 3.5, Active: true},
		catalogsync.WithImmediatePush("token"),
	)
	if err != nil {
		panic(err)
	}
	fmt.Println(outcome.Kind, rec.RemoteID.String())
	// Output:
	// pushed_and_linked 100
}
