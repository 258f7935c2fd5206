package store

import "context"

// GetStats returns aggregate counters across all tables.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	var st Stats
	queries := []struct {
		q    string
		dest *int
	}{
		{`SELECT COUNT(*) FROM sources`, &st.Sources},
		{`SELECT COUNT(*) FROM sources WHERE active = 1`, &st.ActiveSources},
		{`SELECT COUNT(*) FROM updates`, &st.Updates},
		{`SELECT COUNT(*) FROM updates WHERE processed = 0`, &st.UnprocessedUpdates},
		{`SELECT COUNT(*) FROM extraction_queue`, &st.QueueDepth},
		{`SELECT COUNT(*) FROM patterns`, &st.Patterns},
		{`SELECT COUNT(*) FROM patterns WHERE status = 'pending'`, &st.PendingPatterns},
		{`SELECT COUNT(*) FROM patterns WHERE status = 'approved'`, &st.ApprovedPatterns},
		{`SELECT COUNT(*) FROM reviews`, &st.Reviews},
		{`SELECT COUNT(*) FROM usage_events`, &st.UsageEvents},
	}
	for _, q := range queries {
		if err := s.DB.QueryRowContext(ctx, q.q).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	return &st, nil
}
