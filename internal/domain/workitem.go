package domain

// WorkItem is one input fixture to process: the row fields from the upstream
// odds collector plus the derived cache key. WorkItems live only within a
// single run and are never persisted.
type WorkItem struct {
	Date   string
	League string
	Home   string
	Away   string
	Triple OddsTriple
	Key    string
}

// ResultRow is an output row: the input fixture enriched with the obtained
// prediction. Only fixtures with a complete prediction are ever emitted.
type ResultRow struct {
	WorkItem
	Prediction Prediction
}

// CacheRecord is one persisted cache entry. At most one record exists per
// key. A record is complete only when both prediction texts are present.
type CacheRecord struct {
	Key        string
	Triple     OddsTriple
	Prediction Prediction
}

// Complete reports whether both prediction fields are present.
func (r CacheRecord) Complete() bool {
	return r.Prediction.Complete()
}
