package storage

import "gorm.io/gorm"

// Migration001Initial creates the recording and result tables.
type Migration001Initial struct{}

func (Migration001Initial) Version() string     { return "001" }
func (Migration001Initial) Description() string { return "create recordings and assessment results" }

func (Migration001Initial) Up(db *gorm.DB) error {
	return db.AutoMigrate(&Recording{}, &AssessmentResult{})
}

func (Migration001Initial) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&AssessmentResult{}, &Recording{})
}

// Migration002ResultIndexes adds the lookup index for score listings.
type Migration002ResultIndexes struct{}

func (Migration002ResultIndexes) Version() string     { return "002" }
func (Migration002ResultIndexes) Description() string { return "index results by label and time" }

func (Migration002ResultIndexes) Up(db *gorm.DB) error {
	return db.Exec(
		"CREATE INDEX IF NOT EXISTS idx_assessment_results_score_cefr ON assessment_results(score_cefr)",
	).Error
}

func (Migration002ResultIndexes) Down(db *gorm.DB) error {
	return db.Exec("DROP INDEX IF EXISTS idx_assessment_results_score_cefr").Error
}
