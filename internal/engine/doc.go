// Package engine drains the pending sale intent store against the backend.
//
// A run lists every intent and handles them one at a time:
//
//	synced + remote_id  -> Remove                      (crash recovery, no remote call)
//	pending             -> ConfirmSale -> MarkSynced -> Remove
//	                       on failure the intent is left untouched
//
// MarkSynced is written before Remove. If the process dies between the two,
// the next run sees a synced intent and only removes it, so the backend is
// never asked twice for a sale it already confirmed.
//
// Only one run executes at a time per Engine. A run started while another
// is in progress, or while offline, returns an empty Result immediately.
//
// Intents are processed strictly sequentially: the remote call for intent
// N+1 is not issued before the outcome of intent N has been recorded.
//
// Best-effort steps (for example a stock transfer) run after an intent has
// been removed. Their failures are logged and reported through a separate
// handler; they never change the Success or Errors counts.
package engine
