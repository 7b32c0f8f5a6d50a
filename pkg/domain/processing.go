package domain

import "time"

// ProcessingLog is the append-only outcome record of a single batch
type ProcessingLog struct {
	ID                int64
	Success           bool
	ArticlesProcessed int
	BriefsGenerated   int
	Errors            []string
	ProcessingMS      int64
	Tokens            int
	Cost              float64
	Model             string
	PromptVersion     string
	Timestamp         time.Time
}

// ProcessingResult is what a batch run returns to its caller. It is always
// populated; errors accumulate as strings instead of aborting the batch.
type ProcessingResult struct {
	Success           bool
	ArticlesProcessed int
	BriefsGenerated   int
	Errors            []string
	CategoriesAtLimit []Category
	ProcessingMS      int64
	Tokens            int
	Cost              float64
}

// DailyLimits is a snapshot of quota consumption for the current local day
type DailyLimits struct {
	Total     int
	Limit     int
	PerCat    map[Category]int
	Remaining map[Category]int
}
