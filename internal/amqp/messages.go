package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// DatasetRefreshedMessage announces that a scrape run replaced the dataset.
// Consumers only need to know that cached views are stale.
type DatasetRefreshedMessage struct {
	RunID     string    `json:"run_id"`
	Majors    int       `json:"majors"`
	Sources   int       `json:"sources"`
	Failed    int       `json:"failed"`
	Timestamp time.Time `json:"timestamp"`
}

// NewDatasetRefreshedMessage stamps a message with the current time.
func NewDatasetRefreshedMessage(runID string, majors, sources, failed int) *DatasetRefreshedMessage {
	return &DatasetRefreshedMessage{
		RunID:     runID,
		Majors:    majors,
		Sources:   sources,
		Failed:    failed,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DatasetRefreshedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DatasetRefreshedMessageFromJSON decodes a message and rejects one without a run id.
func DatasetRefreshedMessageFromJSON(data []byte) (*DatasetRefreshedMessage, error) {
	var msg DatasetRefreshedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.RunID == "" {
		return nil, errors.New("missing run_id")
	}
	return &msg, nil
}
