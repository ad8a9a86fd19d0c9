package service

import (
	"encoding/json"
	"log"
	"time"
)

// logEvent emits one JSON log line for pipeline degradations and cleanup
// outcomes that do not surface as errors to the caller.
func logEvent(level, msg string, fields map[string]any) {
	entry := map[string]any{
		"ts":        time.Now().UTC().Format(time.RFC3339Nano),
		"level":     level,
		"msg":       msg,
		"component": "document_service",
	}
	for k, v := range fields {
		entry[k] = v
	}
	b, err := json.Marshal(entry)
	if err != nil {
		log.Printf("failed to marshal service log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
