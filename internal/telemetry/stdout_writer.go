// Writer implementation printing telemetry records to STDOUT
package telemetry

import (
	"encoding/json"
	"fmt"
)

// StdoutWriter prints telemetry records to STDOUT.
type StdoutWriter struct{}

// Write outputs a single telemetry record.
func (w *StdoutWriter) Write(rec Record) error {
	data, _ := json.Marshal(rec)
	fmt.Println(string(data))
	return nil
}

// WriteBatch outputs multiple telemetry records.
func (w *StdoutWriter) WriteBatch(recs []Record) error {
	for _, r := range recs {
		_ = w.Write(r)
	}
	return nil
}
