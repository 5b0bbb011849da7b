package storage

import (
	"time"

	"gorm.io/datatypes"
)

// Recording is one uploaded speaking sample.
type Recording struct {
	ID          uint      `gorm:"primaryKey"`
	RecordingID string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"recording_id"`
	Filename    string    `json:"filename"`
	Duration    float64   `json:"duration"`
	Transcript  string    `gorm:"type:text" json:"transcript"`
	CreatedAt   time.Time `json:"created_at"`
}

// AssessmentResult is the persisted score row for a recording: the CEFR label,
// the seven construct sub-scores and the full feature record behind them.
type AssessmentResult struct {
	ID          uint   `gorm:"primaryKey"`
	RecordingID string `gorm:"type:varchar(64);uniqueIndex;not null" json:"recording_id"`

	ScoreCEFR      string  `gorm:"type:varchar(8);not null" json:"score_cefr"`
	CEFRIndex      float64 `json:"cefr_index"`
	Fluency        float64 `json:"fluency"`
	Pronunciation  float64 `json:"pronunciation"`
	Prosody        float64 `json:"prosody"`
	Coherence      float64 `json:"coherence"`
	TopicRelevance float64 `json:"topic_relevance"`
	Complexity     float64 `json:"complexity"`
	Accuracy       float64 `json:"accuracy"`

	Features  datatypes.JSON `json:"features,omitempty"`
	Warnings  datatypes.JSON `json:"warnings,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}
