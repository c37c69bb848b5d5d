// Package harness runs sale-sync conformance scenarios.
//
// A scenario drives a real checkout, sync engine and intent store against a
// scripted in-memory backend, records every step and every backend call as
// a trace, and checks the trace and the final store contents.
//
// # Scenario Format
//
//	name: offline_then_online
//	description: "Sales made offline are posted once connectivity returns"
//	online: false
//	flow:
//	  - invoke: enqueue
//	    sale: { comment: a, payment_method: cash, items: [...] }
//	    expect:
//	      case: ok
//	      result: { local_id: local-0001 }
//	  - invoke: online
//	  - invoke: sync
//	    expect:
//	      case: ok
//	      result: { success: 1, errors: 0 }
//	assertions:
//	  - type: trace_count
//	    action: remote.process_sale
//	    count: 1
//	  - type: absent
//	    table: intents
//	    where: { comment: a }
//
// # Steps
//
//   - enqueue: write the sale through checkout (no network)
//   - sync: run one sync pass
//   - online, offline: change connectivity of both the monitor and the backend
//   - remote: rescript the backend (reject, fail, clear)
//   - crash_after_confirm: confirm a pending sale remotely and record it as
//     synced without removing it, as a process killed at that point would
//
// # Assertion Types
//
//   - trace_contains: an invocation of action with matching args exists
//   - trace_order: actions are invoked in the given order
//   - trace_count: action is invoked exactly count times (args filter optional)
//   - final_state: exactly one row of table matches where and has expect
//   - absent: no row of table matches where
//
// # Deterministic Testing
//
// Local ids come from testutil.SequenceGenerator ("local-0001", ...),
// created_at from testutil.DeterministicClock and backend ids from the stub
// ("S1", "S2", ...). Each scenario runs against a fresh in-memory database,
// so traces are byte-identical across runs and can be compared with golden
// files.
package harness
