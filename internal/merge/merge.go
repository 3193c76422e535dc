package merge

import (
	"encoding/json"
	"time"

	"grocery-sync/internal/models"
)

// historyLimit caps itemHistory at the most recent entries after a merge.
const historyLimit = 500

// Timestamps arrive as ISO-8601 strings from clients that may or may not
// include a zone suffix. Anything unparseable compares as the zero instant,
// i.e. older than every valid timestamp.
var stampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func parseStamp(s string) time.Time {
	for _, layout := range stampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Documents reconciles the stored document with a client submission. The
// client is authoritative when the server has no usable state or has not
// changed since the client's last sync; otherwise both sides changed
// independently and the documents are merged field by field. It performs no
// I/O; the caller is responsible for running it inside an atomic
// read-then-write against the store.
func Documents(server *models.Document, serverUpdatedAt string, client models.Document, clientLastSynced *string) models.Document {
	if server == nil || serverUpdatedAt == "" {
		return client
	}
	if clientLastSynced == nil || *clientLastSynced == "" {
		return client
	}
	if !parseStamp(serverUpdatedAt).After(parseStamp(*clientLastSynced)) {
		return client
	}

	merged := models.Document{
		Lists:       mergeRecords(server.Lists, client.Lists),
		Recipes:     mergeRecords(server.Recipes, client.Recipes),
		Categories:  server.Categories,
		ItemHistory: mergeHistory(server.ItemHistory, client.ItemHistory),
	}
	if len(client.Categories) > 0 {
		merged.Categories = client.Categories
	}
	stamp := time.Now().UTC().Format(time.RFC3339Nano)
	merged.LastSynced = &stamp
	return merged
}

// mergeRecords reconciles two record slices by id, last write wins on
// updatedAt with ties going to the client. Server entries keep their
// positions; client-only entries are appended in client order.
func mergeRecords(server, client []json.RawMessage) []json.RawMessage {
	order := make([]string, 0, len(server)+len(client))
	byID := make(map[string]json.RawMessage, len(server)+len(client))
	stamps := make(map[string]time.Time, len(server)+len(client))

	for _, raw := range server {
		m := models.Meta(raw)
		if _, seen := byID[m.ID]; !seen {
			order = append(order, m.ID)
		}
		byID[m.ID] = raw
		stamps[m.ID] = parseStamp(m.UpdatedAt)
	}

	for _, raw := range client {
		m := models.Meta(raw)
		existing, seen := stamps[m.ID]
		stamp := parseStamp(m.UpdatedAt)
		if seen && stamp.Before(existing) {
			continue
		}
		if !seen {
			order = append(order, m.ID)
		}
		byID[m.ID] = raw
		stamps[m.ID] = stamp
	}

	out := make([]json.RawMessage, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

// mergeHistory concatenates server then client history, drops duplicates
// keeping the first occurrence, and truncates to the most recent entries.
func mergeHistory(server, client []string) []string {
	seen := make(map[string]bool, len(server)+len(client))
	out := make([]string, 0, len(server)+len(client))
	for _, entry := range append(append([]string{}, server...), client...) {
		if seen[entry] {
			continue
		}
		seen[entry] = true
		out = append(out, entry)
	}
	if len(out) > historyLimit {
		out = out[len(out)-historyLimit:]
	}
	return out
}
