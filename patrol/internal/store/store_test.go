package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA foreign_keys=ON")
	if err := ApplySchema(db); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(openTestDB(t))
}

func mustInsertSource(t *testing.T, s *Store, id, url string) *Source {
	t.Helper()
	src := &Source{ID: id, Name: id, URL: url, Active: true, ExtractEnabled: true}
	if err := s.InsertSource(context.Background(), src); err != nil {
		t.Fatalf("insert source %s: %v", id, err)
	}
	return src
}

func mustInsertUpdate(t *testing.T, s *Store, id, sourceID, hash string) *Update {
	t.Helper()
	u := &Update{ID: id, SourceID: sourceID, Content: "content " + id, ContentHash: hash, Changed: true}
	if err := s.InsertUpdate(context.Background(), u); err != nil {
		t.Fatalf("insert update %s: %v", id, err)
	}
	return u
}

func TestApplySchema(t *testing.T) {
	// WHAT: Verify schema creates all tables without error.
	// WHY: Schema is the foundation — if it fails, nothing works.
	db := openTestDB(t)
	tables := []string{"sources", "updates", "extraction_queue", "patterns",
		"reviews", "usage_events", "fetch_log"}
	for _, table := range tables {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestInsertAndGetSource(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	mustInsertSource(t, s, "src-001", "https://example.com/docs")
	got, err := s.GetSource(ctx, "src-001")
	if err != nil {
		t.Fatalf("get source: %v", err)
	}
	if got == nil || got.URL != "https://example.com/docs" {
		t.Fatalf("got %+v", got)
	}
	if got.Frequency != "daily" || got.Priority != 5 || got.Reliability != 0.5 {
		t.Errorf("defaults not applied: %+v", got)
	}

	missing, err := s.GetSource(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("missing source: got %v, %v", missing, err)
	}
}

func TestDuplicateURLRejected(t *testing.T) {
	s := testStore(t)
	mustInsertSource(t, s, "src-a", "https://example.com/docs")
	err := s.InsertSource(context.Background(),
		&Source{ID: "src-b", Name: "dup", URL: "https://example.com/docs"})
	if err == nil {
		t.Fatal("expected unique constraint violation")
	}
}

func TestApplyReliabilityClamped(t *testing.T) {
	// WHAT: Reliability stays in [0,1] no matter how many deltas accumulate.
	// WHY: the score is advisory; drifting outside the range would corrupt
	// every consumer that assumes a probability-like value.
	s := testStore(t)
	ctx := context.Background()
	mustInsertSource(t, s, "src-rel", "https://example.com/rel")

	for i := 0; i < 100; i++ {
		if err := s.ApplyReliability(ctx, "src-rel", 0.05); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	got, _ := s.GetSource(ctx, "src-rel")
	if got.Reliability != 1.0 {
		t.Errorf("upper clamp: got %v", got.Reliability)
	}

	for i := 0; i < 100; i++ {
		if err := s.ApplyReliability(ctx, "src-rel", -0.05); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	got, _ = s.GetSource(ctx, "src-rel")
	if got.Reliability != 0.0 {
		t.Errorf("lower clamp: got %v", got.Reliability)
	}
}

func TestClaimDueSources(t *testing.T) {
	// WHAT: Never-scraped sources are due; claiming stamps last_scraped_at so
	// a second overlapping claim returns nothing.
	s := testStore(t)
	ctx := context.Background()
	mustInsertSource(t, s, "src-1", "https://a.example.com")
	mustInsertSource(t, s, "src-2", "https://b.example.com")

	due, err := s.ClaimDueSources(ctx, "daily", 24*time.Hour, 10)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("due: got %d, want 2", len(due))
	}

	again, err := s.ClaimDueSources(ctx, "daily", 24*time.Hour, 10)
	if err != nil {
		t.Fatalf("claim again: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("overlapping claim: got %d, want 0", len(again))
	}
}

func TestClaimDueSourcesRespectsLimit(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	mustInsertSource(t, s, "s1", "https://1.example.com")
	mustInsertSource(t, s, "s2", "https://2.example.com")
	mustInsertSource(t, s, "s3", "https://3.example.com")

	due, err := s.ClaimDueSources(ctx, "daily", 24*time.Hour, 2)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(due) != 2 {
		t.Errorf("limit: got %d, want 2", len(due))
	}
}

func TestInactiveSourceNeverDue(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	mustInsertSource(t, s, "src-off", "https://off.example.com")
	if err := s.SetSourceActive(ctx, "src-off", false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	due, err := s.ClaimDueSources(ctx, "daily", 24*time.Hour, 10)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("disabled source claimed: %d", len(due))
	}
}

func TestLatestUpdateAndColdStart(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	mustInsertSource(t, s, "src-u", "https://u.example.com")

	latest, err := s.LatestUpdate(ctx, "src-u")
	if err != nil || latest != nil {
		t.Fatalf("cold start: got %v, %v", latest, err)
	}

	u1 := &Update{ID: "up-1", SourceID: "src-u", Content: "v1", ContentHash: "h1", ScrapedAt: 1000}
	u2 := &Update{ID: "up-2", SourceID: "src-u", Content: "v2", ContentHash: "h2", ScrapedAt: 2000}
	if err := s.InsertUpdate(ctx, u1); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertUpdate(ctx, u2); err != nil {
		t.Fatal(err)
	}

	latest, err = s.LatestUpdate(ctx, "src-u")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != "up-2" {
		t.Errorf("latest: got %s, want up-2", latest.ID)
	}
}

func TestMarkProcessedExactlyOnce(t *testing.T) {
	// WHAT: The processed flag flips false→true once; a second call reports
	// no change.
	// WHY: double processing would duplicate extracted patterns.
	s := testStore(t)
	ctx := context.Background()
	mustInsertSource(t, s, "src-p", "https://p.example.com")
	mustInsertUpdate(t, s, "up-p", "src-p", "h")

	first, err := s.MarkProcessed(ctx, "up-p")
	if err != nil || !first {
		t.Fatalf("first mark: %v, %v", first, err)
	}
	second, err := s.MarkProcessed(ctx, "up-p")
	if err != nil {
		t.Fatalf("second mark: %v", err)
	}
	if second {
		t.Error("processed flag flipped twice")
	}

	u, _ := s.GetUpdate(ctx, "up-p")
	if !u.Processed || u.ProcessedAt == nil {
		t.Errorf("processed state: %+v", u)
	}
}

func TestEnqueueIdempotent(t *testing.T) {
	// WHAT: Two enqueues for the same update leave exactly one queue entry.
	// WHY: duplicate extraction jobs waste AI calls and duplicate patterns.
	s := testStore(t)
	ctx := context.Background()
	mustInsertSource(t, s, "src-q", "https://q.example.com")
	mustInsertUpdate(t, s, "up-q", "src-q", "h")

	created, err := s.Enqueue(ctx, &QueueEntry{ID: "q-1", UpdateID: "up-q", SourceID: "src-q"})
	if err != nil || !created {
		t.Fatalf("first enqueue: %v, %v", created, err)
	}
	created, err = s.Enqueue(ctx, &QueueEntry{ID: "q-2", UpdateID: "up-q", SourceID: "src-q"})
	if err != nil {
		t.Fatalf("second enqueue: %v", err)
	}
	if created {
		t.Error("duplicate enqueue created a second entry")
	}

	depth, _ := s.QueueDepth(ctx)
	if depth != 1 {
		t.Errorf("depth: got %d, want 1", depth)
	}
}

func TestClaimNextPriorityOrder(t *testing.T) {
	// WHAT: Higher priority wins; equal priorities dequeue oldest first.
	s := testStore(t)
	ctx := context.Background()
	mustInsertSource(t, s, "src-o", "https://o.example.com")
	mustInsertUpdate(t, s, "up-lo", "src-o", "h1")
	mustInsertUpdate(t, s, "up-hi", "src-o", "h2")
	mustInsertUpdate(t, s, "up-lo2", "src-o", "h3")

	s.Enqueue(ctx, &QueueEntry{ID: "q-lo", UpdateID: "up-lo", SourceID: "src-o", Priority: 3, CreatedAt: 100})
	s.Enqueue(ctx, &QueueEntry{ID: "q-hi", UpdateID: "up-hi", SourceID: "src-o", Priority: 8, CreatedAt: 200})
	s.Enqueue(ctx, &QueueEntry{ID: "q-lo2", UpdateID: "up-lo2", SourceID: "src-o", Priority: 3, CreatedAt: 300})

	want := []string{"q-hi", "q-lo", "q-lo2"}
	for i, id := range want {
		e, err := s.ClaimNext(ctx, time.Minute)
		if err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
		if e == nil || e.ID != id {
			t.Fatalf("claim %d: got %+v, want %s", i, e, id)
		}
	}

	empty, err := s.ClaimNext(ctx, time.Minute)
	if err != nil || empty != nil {
		t.Errorf("drained queue: got %v, %v", empty, err)
	}
}

func TestClaimVisibilityTimeout(t *testing.T) {
	// WHAT: A claimed entry is invisible until the timeout lapses, then
	// claimable again with a bumped attempt counter.
	// WHY: a crashed worker must not strand its entry forever.
	s := testStore(t)
	ctx := context.Background()
	mustInsertSource(t, s, "src-v", "https://v.example.com")
	mustInsertUpdate(t, s, "up-v", "src-v", "h")
	s.Enqueue(ctx, &QueueEntry{ID: "q-v", UpdateID: "up-v", SourceID: "src-v"})

	first, err := s.ClaimNext(ctx, 50*time.Millisecond)
	if err != nil || first == nil {
		t.Fatalf("first claim: %v, %v", first, err)
	}

	hidden, _ := s.ClaimNext(ctx, 50*time.Millisecond)
	if hidden != nil {
		t.Fatal("claimed entry still visible")
	}

	time.Sleep(60 * time.Millisecond)
	second, err := s.ClaimNext(ctx, time.Minute)
	if err != nil || second == nil {
		t.Fatalf("reclaim: %v, %v", second, err)
	}
	if second.Attempts != 2 {
		t.Errorf("attempts: got %d, want 2", second.Attempts)
	}
}

func TestReleaseQueueEntry(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	mustInsertSource(t, s, "src-r", "https://r.example.com")
	mustInsertUpdate(t, s, "up-r", "src-r", "h")
	s.Enqueue(ctx, &QueueEntry{ID: "q-r", UpdateID: "up-r", SourceID: "src-r"})

	e, _ := s.ClaimNext(ctx, time.Hour)
	if e == nil {
		t.Fatal("claim failed")
	}
	if err := s.ReleaseQueueEntry(ctx, e.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	again, _ := s.ClaimNext(ctx, time.Hour)
	if again == nil || again.ID != "q-r" {
		t.Errorf("released entry not reclaimable: %+v", again)
	}
}

func TestPatternStatusApprovalStamps(t *testing.T) {
	// WHAT: Approving stamps approved_at/approved_by; leaving approved
	// clears them.
	s := testStore(t)
	ctx := context.Background()
	p := &Pattern{ID: "pat-1", Title: "Retry with backoff", Content: "..."}
	if err := s.InsertPattern(ctx, p); err != nil {
		t.Fatalf("insert pattern: %v", err)
	}

	if err := s.SetPatternStatus(ctx, "pat-1", "approved", "rev-9"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	got, _ := s.GetPattern(ctx, "pat-1")
	if got.Status != "approved" || got.ApprovedAt == nil || got.ApprovedBy != "rev-9" {
		t.Errorf("approval stamps: %+v", got)
	}

	if err := s.SetPatternStatus(ctx, "pat-1", "needs_refinement", "rev-9"); err != nil {
		t.Fatalf("refine: %v", err)
	}
	got, _ = s.GetPattern(ctx, "pat-1")
	if got.Status != "needs_refinement" || got.ApprovedAt != nil || got.ApprovedBy != "" {
		t.Errorf("stamps not cleared: %+v", got)
	}
}

func TestInsertPatternsAtomic(t *testing.T) {
	// WHAT: A batch with a duplicate ID inserts nothing.
	// WHY: extraction is all-or-nothing per update.
	s := testStore(t)
	ctx := context.Background()

	batch := []*Pattern{
		{ID: "pat-a", Title: "A", Content: "a"},
		{ID: "pat-a", Title: "A again", Content: "dup"},
	}
	if err := s.InsertPatterns(ctx, batch); err == nil {
		t.Fatal("expected duplicate key error")
	}
	got, _ := s.GetPattern(ctx, "pat-a")
	if got != nil {
		t.Error("partial batch persisted")
	}
}

func TestFinishExtractionAtomic(t *testing.T) {
	// WHAT: Patterns and the processed flip land in one transaction; a failed
	// batch leaves the update unprocessed.
	// WHY: if the flip could be lost after the insert, a retried job would
	// duplicate every pattern of the update.
	s := testStore(t)
	ctx := context.Background()
	mustInsertSource(t, s, "src-f", "https://f.example.com")
	mustInsertUpdate(t, s, "up-f", "src-f", "h")

	bad := []*Pattern{
		{ID: "pat-f", Title: "F", Content: "f"},
		{ID: "pat-f", Title: "F dup", Content: "f"},
	}
	if err := s.FinishExtraction(ctx, "up-f", bad); err == nil {
		t.Fatal("expected duplicate key error")
	}
	u, _ := s.GetUpdate(ctx, "up-f")
	if u.Processed {
		t.Error("update marked processed despite failed batch")
	}
	if got, _ := s.GetPattern(ctx, "pat-f"); got != nil {
		t.Error("partial batch persisted")
	}

	good := []*Pattern{{ID: "pat-f", Title: "F", Content: "f"}}
	if err := s.FinishExtraction(ctx, "up-f", good); err != nil {
		t.Fatalf("finish: %v", err)
	}
	u, _ = s.GetUpdate(ctx, "up-f")
	if !u.Processed || u.ProcessedAt == nil {
		t.Errorf("processed state: %+v", u)
	}
	if got, _ := s.GetPattern(ctx, "pat-f"); got == nil {
		t.Error("pattern not persisted")
	}
}

func TestListPatternsFilter(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	s.InsertPattern(ctx, &Pattern{ID: "p1", Title: "one", Content: "c", Category: "security", Confidence: 0.9, Status: "approved"})
	s.InsertPattern(ctx, &Pattern{ID: "p2", Title: "two", Content: "c", Category: "security", Confidence: 0.3})
	s.InsertPattern(ctx, &Pattern{ID: "p3", Title: "three", Content: "c", Category: "example", Confidence: 0.9})

	got, err := s.ListPatterns(ctx, PatternFilter{Category: "security", MinConfidence: 0.5}, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != "p1" {
		t.Errorf("filter: got %+v", got)
	}
}

func TestReviewHistoryOrdered(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	s.InsertPattern(ctx, &Pattern{ID: "pat-h", Title: "h", Content: "c"})

	s.InsertReview(ctx, &Review{ID: "r1", PatternID: "pat-h", Action: "request_info", CreatedAt: 100})
	s.InsertReview(ctx, &Review{ID: "r2", PatternID: "pat-h", Action: "refine", CreatedAt: 200})
	s.InsertReview(ctx, &Review{ID: "r3", PatternID: "pat-h", Action: "approve", CreatedAt: 300})

	got, err := s.ListReviews(ctx, "pat-h")
	if err != nil {
		t.Fatalf("list reviews: %v", err)
	}
	if len(got) != 3 || got[0].ID != "r1" || got[2].ID != "r3" {
		t.Errorf("order: %+v", got)
	}
}

func TestUsageStats(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	s.InsertPattern(ctx, &Pattern{ID: "pat-u", Title: "u", Content: "c"})

	events := []*UsageEvent{
		{ID: "e1", PatternID: "pat-u", UserID: "alice", Action: "viewed", CreatedAt: 100},
		{ID: "e2", PatternID: "pat-u", UserID: "alice", Action: "applied", CreatedAt: 200},
		{ID: "e3", PatternID: "pat-u", UserID: "bob", Action: "viewed", CreatedAt: 300},
	}
	for _, e := range events {
		if err := s.InsertUsageEvent(ctx, e); err != nil {
			t.Fatalf("insert event: %v", err)
		}
	}

	stats, err := s.PatternUsageStats(ctx, "pat-u", 2)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 3 || stats.UniqueUsers != 2 {
		t.Errorf("totals: %+v", stats)
	}
	if stats.ByAction["viewed"] != 2 || stats.ByAction["applied"] != 1 {
		t.Errorf("by action: %v", stats.ByAction)
	}
	if len(stats.Recent) != 2 || stats.Recent[0].ID != "e3" {
		t.Errorf("recent: %+v", stats.Recent)
	}
}

func TestFetchHistory(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	mustInsertSource(t, s, "src-f", "https://f.example.com")

	s.InsertFetchLog(ctx, &FetchLogEntry{ID: "f1", SourceID: "src-f", Status: "changed", FetchedAt: 100})
	s.InsertFetchLog(ctx, &FetchLogEntry{ID: "f2", SourceID: "src-f", Status: "error", ErrorMessage: "timeout", FetchedAt: 200})

	got, err := s.FetchHistory(ctx, "src-f", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(got) != 2 || got[0].ID != "f2" {
		t.Errorf("history: %+v", got)
	}
}

func TestGetStats(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	mustInsertSource(t, s, "src-s", "https://s.example.com")
	mustInsertUpdate(t, s, "up-s", "src-s", "h")
	s.InsertPattern(ctx, &Pattern{ID: "pat-s", Title: "s", Content: "c"})

	st, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Sources != 1 || st.Updates != 1 || st.Patterns != 1 || st.PendingPatterns != 1 {
		t.Errorf("stats: %+v", st)
	}
	if st.UnprocessedUpdates != 1 {
		t.Errorf("unprocessed: %+v", st)
	}
}
