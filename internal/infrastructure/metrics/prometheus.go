package metrics

import (
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

type meta struct {
	typ, help string
	isMap     bool
	label     string
}

var metas = map[string]meta{
	"avatarflowx_history_ops_total":       {typ: "counter", help: "History stack operations", isMap: true, label: "op"},
	"avatarflowx_extractions_total":       {typ: "counter", help: "Flow extraction attempts by outcome", isMap: true, label: "outcome"},
	"avatarflowx_generations_total":       {typ: "counter", help: "AI flow generations by result", isMap: true, label: "result"},
	"avatarflowx_http_requests_total":     {typ: "counter", help: "HTTP requests served by status class", isMap: true, label: "class"},
	"avatarflowx_sessions_open":           {typ: "gauge", help: "Open editor sessions"},
	"avatarflowx_checkpoints_saved_total": {typ: "counter", help: "Checkpoints saved"},
	"avatarflowx_form_submissions_total":  {typ: "counter", help: "Form submissions stored"},
	"avatarflowx_snapshot_bytes_total":    {typ: "counter", help: "Bytes of encoded snapshots written"},
}

// PrometheusHandler renders expvar-published metrics in Prometheus text
// exposition format. Known metrics get HELP/TYPE lines; other numeric expvar
// ints are emitted as untyped gauges.
func PrometheusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		names := make([]string, 0, 32)
		expvar.Do(func(kv expvar.KeyValue) {
			names = append(names, kv.Key)
		})
		sort.Strings(names)

		for _, name := range names {
			v := expvar.Get(name)
			m, known := metas[name]
			if !known {
				if iv, ok := v.(*expvar.Int); ok {
					_, _ = fmt.Fprintf(w, "# TYPE %s gauge\n", name)
					_, _ = fmt.Fprintf(w, "%s %s\n", name, iv.String())
				}
				continue
			}

			_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, sanitizeHelp(m.help))
			_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", name, m.typ)

			if !m.isMap {
				_, _ = fmt.Fprintf(w, "%s %s\n", name, v.String())
				continue
			}
			mp, ok := v.(*expvar.Map)
			if !ok {
				continue
			}
			sub := make([]expvar.KeyValue, 0, 8)
			mp.Do(func(kv expvar.KeyValue) { sub = append(sub, kv) })
			sort.Slice(sub, func(i, j int) bool { return sub[i].Key < sub[j].Key })
			for _, kv := range sub {
				_, _ = fmt.Fprintf(w, "%s{%s=\"%s\"} %s\n", name, m.label, escapeLabel(kv.Key), kv.Value.String())
			}
		}
	})
}

func sanitizeHelp(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}

// escapeLabel escapes backslash, double-quote and newline
func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
