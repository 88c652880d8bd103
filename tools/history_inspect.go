// Command history_inspect dumps the persisted message log of a relay
// instance. Point it at the badger directory of a stopped server (or a
// copy of it) to see what would replay for whom.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

const historyPrefix = "hist:"

// Mirrors the value layout written by the badger history repository.
type entry struct {
	ID   string    `json:"id"`
	Body string    `json:"body"`
	From string    `json:"from"`
	To   string    `json:"to"`
	Kind int       `json:"kind"`
	At   time.Time `json:"at"`
}

func main() {
	dbPath := flag.String("db", "", "Path to the badger history directory")
	user := flag.String("user", "", "Only show messages involving this user")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("missing -db flag")
	}

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true))
	if err != nil {
		log.Fatal("Error while opening badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Accepted", "From", "To", "Kind", "Body", "ID"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	count := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(historyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := string(item.Key())

			err := item.Value(func(v []byte) error {
				var e entry
				if err := json.Unmarshal(v, &e); err != nil {
					fmt.Printf("Error unmarshaling key %s: %v\n", key, err)
					return nil
				}
				if *user != "" && e.From != *user && e.To != *user {
					return nil
				}

				kind := "content"
				if e.Kind == 1 {
					kind = "presence"
				}

				displayID := e.ID
				if len(displayID) > 8 {
					displayID = displayID[:8]
				}

				table.Append([]string{
					acceptedAt(key),
					e.From,
					e.To,
					kind,
					e.Body,
					displayID,
				})
				count++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
	fmt.Printf("%d entries\n", count)
}

// acceptedAt recovers the server acceptance time encoded in the key.
func acceptedAt(key string) string {
	parts := strings.Split(strings.TrimPrefix(key, historyPrefix), ":")
	if len(parts) != 2 {
		return "--:--:--"
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return "--:--:--"
	}
	return time.Unix(0, nanos).UTC().Format("2006-01-02 15:04:05")
}
