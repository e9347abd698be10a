package audit

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"
)

var csvHeader = []string{
	"event_id", "created_at", "actor_id", "actor_email", "action", "entity_type",
	"entity_id", "target_user_id", "ip_address", "request_id", "old_values", "new_values",
}

// WriteCSV encodes records as CSV with a header row.
func WriteCSV(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, rec := range records {
		target := ""
		if rec.TargetUserID != nil {
			target = strconv.FormatInt(*rec.TargetUserID, 10)
		}
		if err := w.Write([]string{
			rec.EventID,
			rec.CreatedAt.UTC().Format(time.RFC3339),
			strconv.FormatInt(rec.ActorID, 10),
			rec.ActorEmail,
			string(rec.Action),
			string(rec.EntityType),
			strconv.FormatInt(rec.EntityID, 10),
			target,
			rec.IPAddress,
			rec.RequestID,
			string(rec.OldValues),
			string(rec.NewValues),
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
