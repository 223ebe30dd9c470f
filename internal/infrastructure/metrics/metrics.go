package metrics

import (
	"expvar"
	"strconv"
)

// History metrics keyed by operation (push, undo, redo, clear, noop).
var (
	historyOps = expvar.NewMap("avatarflowx_history_ops_total")
)

// Extraction metrics keyed by outcome (fenced, raw, none, decode_error).
var (
	extractions = expvar.NewMap("avatarflowx_extractions_total")
)

// HTTP metrics keyed by status class (2xx, 4xx, 5xx).
var (
	httpRequests = expvar.NewMap("avatarflowx_http_requests_total")
)

// Session / generation / persistence metrics.
var (
	sessionsOpen       = new(expvar.Int)
	generationsTotal   = expvar.NewMap("avatarflowx_generations_total")
	checkpointsSaved   = new(expvar.Int)
	submissionsTotal   = new(expvar.Int)
	snapshotBytesTotal = new(expvar.Int)
)

func init() {
	expvar.Publish("avatarflowx_sessions_open", sessionsOpen)
	expvar.Publish("avatarflowx_checkpoints_saved_total", checkpointsSaved)
	expvar.Publish("avatarflowx_form_submissions_total", submissionsTotal)
	expvar.Publish("avatarflowx_snapshot_bytes_total", snapshotBytesTotal)
}

// History helpers
func HistoryOp(op string) { historyOps.Add(op, 1) }

// Extraction helpers
func Extraction(outcome string) { extractions.Add(outcome, 1) }

// Session / generation helpers
func SessionOpened()             { sessionsOpen.Add(1) }
func SessionClosed()             { sessionsOpen.Add(-1) }
func Generation(result string)   { generationsTotal.Add(result, 1) }
func CheckpointSaved()           { checkpointsSaved.Add(1) }
func FormSubmitted()             { submissionsTotal.Add(1) }
func SnapshotEncoded(size int64) { snapshotBytesTotal.Add(size) }

// HTTPRequest counts a served request by status class
func HTTPRequest(status int) {
	if status < 100 || status > 599 {
		status = 500
	}
	httpRequests.Add(strconv.Itoa(status/100)+"xx", 1)
}
