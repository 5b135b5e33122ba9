package model

// ImportResult summarises one statement import.
type ImportResult struct {
	Format            string   `json:"format"`
	InsertedIDs       []string `json:"insertedIds"`
	DuplicatesSkipped int      `json:"duplicatesSkipped"`
	NonTradeSkipped   int      `json:"nonTradeSkipped"`
	InvalidRows       []string `json:"invalidRows"`
}
