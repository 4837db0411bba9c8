// Package internal hosts operator-only tooling. The debug server renders
// the raw badger keyspace (msg:, stats:, user:) and live presence, and is
// only started when DEBUG_PORT is set.
package internal

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"dm-relay/relay"
)

//go:embed inspect.html
var templatesFS embed.FS

type InspectRow struct {
	Key    string
	Type   string
	Detail string
}

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

func StartDebugServer(db *badger.DB, port int, registry *relay.Registry) {
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	mux.HandleFunc("/inspect", func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "msg:"
		}

		data := PageData{
			Prefix: prefix,
			Stats: map[string]any{
				"online": registry.Online(),
			},
		}
		lsm, vlog := db.Size()
		data.Stats["lsm_bytes"] = lsm
		data.Stats["vlog_bytes"] = vlog

		_ = db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				_ = item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapRow(string(item.Key()), val))
					return nil
				})
			}
			return nil
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	go func() {
		_ = http.ListenAndServe(fmt.Sprintf("localhost:%d", port), mux)
	}()
}

func mapRow(key string, val []byte) InspectRow {
	rowType := "RAW"
	switch {
	case strings.HasPrefix(key, "msg:"):
		rowType = "MESSAGE"
	case strings.HasPrefix(key, "stats:"):
		rowType = "STATS"
	case strings.HasPrefix(key, "user:"):
		rowType = "USER"
	}
	return InspectRow{
		Key:    key,
		Type:   rowType,
		Detail: string(val),
	}
}
