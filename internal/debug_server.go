package internal

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

//go:embed inspect.html
var templatesFS embed.FS

var (
	resumeChan  = make(chan struct{}, 1)
	currentPort int
)

// InspectRow is one store entry rendered by the inspector page.
type InspectRow struct {
	Key       string
	Kind      string
	Timestamp string
	From      string
	To        string
	Preview   string
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() map[string]any

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

// Inspect starts the store inspector, runs fn, then pauses until /resume is
// hit. Meant to be dropped into an integration test to eyeball the store.
func Inspect(db *badger.DB, port int, endpoint string, mapper RowMapper, statsProvider StatsProvider, prefix string, fn func()) {
	StartDebugServer(db, port, endpoint, mapper, statsProvider)

	if fn != nil {
		fn()
	}

	Wait(prefix)
}

func StartDebugServer(db *badger.DB, port int, endpoint string, mapper RowMapper, statsProvider StatsProvider) {
	currentPort = port
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	if mapper == nil {
		mapper = DefaultMapper
	}

	mux.HandleFunc(endpoint, func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "msg:"
		}

		data := PageData{
			Prefix: prefix,
			Stats:  make(map[string]any),
		}

		// Récupération des statistiques dynamiques pour le dashboard
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		_ = db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				_ = item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(string(item.Key()), val))
					return nil
				})
			}
			return nil
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	mux.HandleFunc("/resume", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-resumeChan:
		default:
		}
		resumeChan <- struct{}{}
		fmt.Fprint(w, "RESUMED")
	})

	go func() {
		// Écoute sur toutes les interfaces pour permettre l'accès réseau
		_ = http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", port), mux)
	}()
}

func Wait(prefix string) {
	url := fmt.Sprintf("http://localhost:%d/inspect?prefix=%s", currentPort, prefix)
	fmt.Printf("\n--- TEST PAUSED ---\n\n%s\n\n-------------------\n", url)
	<-resumeChan
}

// DefaultMapper decodes the chat store documents: message docs under
// "msg:{conversation}:{ts}:{uuid}", user docs under "user:id:{uuid}" and the
// email uniqueness index under "user:email:{email}".
func DefaultMapper(key string, val []byte) InspectRow {
	switch {
	case strings.HasPrefix(key, "msg:"):
		var doc struct {
			Sender   string `json:"sender"`
			Receiver string `json:"receiver"`
			Body     string `json:"body"`
			MediaRef string `json:"mediaRef"`
			Lang     string `json:"lang"`
			At       int64  `json:"at"`
		}
		if err := json.Unmarshal(val, &doc); err != nil {
			break
		}
		preview := truncate(doc.Body, 48)
		if doc.MediaRef != "" {
			preview += " [media]"
		}
		if doc.Lang != "" {
			preview += " (" + doc.Lang + ")"
		}
		return InspectRow{
			Key:       key,
			Kind:      "message",
			Timestamp: time.Unix(0, doc.At).Format("15:04:05"),
			From:      shortID(doc.Sender),
			To:        shortID(doc.Receiver),
			Preview:   preview,
		}

	case strings.HasPrefix(key, "user:id:"):
		var doc struct {
			Email     string `json:"email"`
			CreatedAt int64  `json:"createdAt"`
		}
		if err := json.Unmarshal(val, &doc); err != nil {
			break
		}
		return InspectRow{
			Key:       key,
			Kind:      "user",
			Timestamp: time.Unix(doc.CreatedAt, 0).Format("15:04:05"),
			From:      doc.Email,
			Preview:   "account document",
		}

	case strings.HasPrefix(key, "user:email:"):
		return InspectRow{
			Key:     key,
			Kind:    "index",
			From:    strings.TrimPrefix(key, "user:email:"),
			Preview: "-> " + shortID(string(val)),
		}
	}

	return InspectRow{
		Key:     key,
		Kind:    "raw",
		Preview: "Size: " + strconv.Itoa(len(val)) + " bytes",
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
