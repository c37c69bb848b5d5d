package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/kassir-pos/possync/internal/sale"
	"github.com/kassir-pos/possync/internal/store"
	"github.com/kassir-pos/possync/internal/testutil"
	"pgregory.net/rapid"
)

// Any interleaving of enqueues, sync runs with transient failures and
// interrupted runs ends with an empty store once the backend is healthy,
// and every sale is confirmed exactly once.
func TestRunSync_NoLoss(t *testing.T) {
	dir := t.TempDir()
	iteration := 0

	rapid.Check(t, func(rt *rapid.T) {
		iteration++
		s, err := store.Open(filepath.Join(dir, fmt.Sprintf("noloss-%d.db", iteration)))
		if err != nil {
			rt.Fatalf("open store: %v", err)
		}
		defer s.Close()

		ctx := context.Background()
		stub := testutil.NewStubRemote()
		e := New(s, stub, WithLogger(quietLogger))

		var (
			enqueued []string
			failed   = map[string]int{} // calls that returned an error
			forced   = map[string]bool{} // confirmed by an interrupted run
		)

		actions := rapid.SliceOfN(rapid.IntRange(0, 2), 1, 25).Draw(rt, "actions")
		for step, action := range actions {
			switch action {
			case 0: // enqueue
				id := fmt.Sprintf("sale-%02d", len(enqueued))
				if _, err := s.Append(ctx, testIntent(id, int64(100+step))); err != nil {
					rt.Fatalf("append %s: %v", id, err)
				}
				enqueued = append(enqueued, id)

			case 1: // sync run with some transient failures
				stub.ClearRules()
				down := map[string]bool{}
				for _, id := range enqueued {
					if rapid.Bool().Draw(rt, "down-"+id) {
						down[id] = true
						stub.Fail(testutil.MatchComment(id), errors.New("timeout"))
					}
				}
				before := callCounts(stub, enqueued)
				if _, err := e.RunSync(ctx); err != nil {
					rt.Fatalf("run sync: %v", err)
				}
				after := callCounts(stub, enqueued)
				for id := range down {
					failed[id] += after[id] - before[id]
				}

			case 2: // a run that confirmed one sale and died before Remove
				intents, err := s.ListAll(ctx)
				if err != nil {
					rt.Fatalf("list: %v", err)
				}
				for _, in := range intents {
					if in.Status == sale.StatusPending {
						if err := s.MarkSynced(ctx, in.LocalID, "X-"+in.LocalID); err != nil {
							rt.Fatalf("mark synced: %v", err)
						}
						forced[in.LocalID] = true
						break
					}
				}
			}
		}

		stub.ClearRules()
		if _, err := e.RunSync(ctx); err != nil {
			rt.Fatalf("final run: %v", err)
		}

		left, err := s.ListAll(ctx)
		if err != nil {
			rt.Fatalf("list: %v", err)
		}
		if len(left) != 0 {
			rt.Fatalf("intents left after healthy run: %d", len(left))
		}

		total := callCounts(stub, enqueued)
		for _, id := range enqueued {
			confirmed := total[id] - failed[id]
			if forced[id] {
				confirmed++
			}
			if confirmed != 1 {
				rt.Fatalf("%s confirmed %d times (calls=%d failed=%d forced=%v)",
					id, confirmed, total[id], failed[id], forced[id])
			}
		}
	})
}

func callCounts(stub *testutil.StubRemote, ids []string) map[string]int {
	counts := make(map[string]int, len(ids))
	for _, id := range ids {
		counts[id] = stub.CallsWhere(testutil.MatchComment(id))
	}
	return counts
}
