package schema

// GainerItem is an entity whose 24h rank change is positive.
type GainerItem struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Rank     int    `json:"rank"`
	Change   int    `json:"change"`
	Domain   string `json:"domain"`
}

// OverallItem is an entity in the top of the day's ranking.
type OverallItem struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Rank     int    `json:"rank"`
	Domain   string `json:"domain"`
}

// Summary is the success payload handed to notifiers.
type Summary struct {
	EntityCount int           `json:"entity_count"`
	TopGainers  []GainerItem  `json:"top_gainers"`
	TopOverall  []OverallItem `json:"top_overall"`
}

// FailureReport is the failure payload handed to notifiers.
type FailureReport struct {
	Title  string `json:"error_title"`
	Detail string `json:"error_detail"`
}
