package sqlite

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"signserver/internal/dto"
	"signserver/internal/models"
)

// ========================================
// Fixtures
// ========================================

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "db_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	db, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func testAnalysis(sourceName string) *models.Analysis {
	return &models.Analysis{
		UUID:           uuid.NewString(),
		SourceName:     sourceName,
		OriginalPath:   "/images/" + sourceName,
		AnnotatedPath:  "/images/annotated_" + sourceName,
		ThumbnailPath:  "/images/thumb_" + sourceName,
		Width:          640,
		Height:         480,
		Threshold:      0.25,
		DetectionCount: 0,
		SessionID:      "session-a",
		FileSize:       2048,
		CreatedAt:      time.Now(),
	}
}

func insertAnalysisWithDetections(t *testing.T, db *DB, sourceName string, labels ...string) *models.Analysis {
	t.Helper()

	analysisRepo := NewAnalysisRepository(db)
	detectionRepo := NewDetectionRepository(db)

	analysis := testAnalysis(sourceName)
	analysis.DetectionCount = len(labels)

	id, err := analysisRepo.Insert(analysis)
	if err != nil {
		t.Fatalf("Failed to insert analysis: %v", err)
	}
	analysis.ID = id

	detections := make([]models.Detection, 0, len(labels))
	for i, label := range labels {
		detections = append(detections, models.Detection{
			AnalysisID: id,
			Label:      label,
			Confidence: 0.9 - float64(i)*0.1,
			X:          10 * i,
			Y:          5 * i,
			Width:      40,
			Height:     30,
		})
	}
	if len(detections) > 0 {
		if err := detectionRepo.InsertBatch(detections); err != nil {
			t.Fatalf("Failed to insert detections: %v", err)
		}
	}

	return analysis
}

// ========================================
// Database Integration Tests
// ========================================

func TestDatabase_Connection(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "db_conn_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "test.db")
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should exist")
	}
}

func TestDatabase_Migration(t *testing.T) {
	db := setupTestDB(t)

	analysisRepo := NewAnalysisRepository(db)
	detectionRepo := NewDetectionRepository(db)

	id, err := analysisRepo.Insert(testAnalysis("migration.jpg"))
	if err != nil {
		t.Fatalf("Failed to insert into analyses table: %v", err)
	}

	_, err = detectionRepo.Insert(&models.Detection{
		AnalysisID: id,
		Label:      "stop",
		Confidence: 0.9,
		X:          10, Y: 10, Width: 40, Height: 40,
	})
	if err != nil {
		t.Fatalf("Failed to insert into detections table: %v", err)
	}
}

func TestDatabase_ConcurrentAccess(t *testing.T) {
	db := setupTestDB(t)
	analysisRepo := NewAnalysisRepository(db)

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(idx int) {
			_, err := analysisRepo.Insert(testAnalysis("concurrent_" + string(rune('a'+idx)) + ".jpg"))
			if err != nil {
				t.Errorf("Concurrent insert %d failed: %v", idx, err)
			}
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	count, _ := analysisRepo.GetTotalCount(&dto.AnalysisFilters{})
	if count != 10 {
		t.Errorf("Expected 10 analyses, got %d", count)
	}
}

// ========================================
// Analysis Repository Tests
// ========================================

func TestAnalysisRepository_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalysisRepository(db)

	original := testAnalysis("roundtrip.jpg")
	original.DetectionCount = 3
	original.AvgConfidence = 0.82
	original.UniqueLabels = 2
	original.DurationMs = 57

	id, err := repo.Insert(original)
	if err != nil {
		t.Fatalf("Failed to insert analysis: %v", err)
	}

	byID, err := repo.GetByID(id)
	if err != nil {
		t.Fatalf("Failed to get analysis by ID: %v", err)
	}
	if byID == nil {
		t.Fatal("Expected analysis, got nil")
	}

	byUUID, err := repo.GetByUUID(original.UUID)
	if err != nil {
		t.Fatalf("Failed to get analysis by UUID: %v", err)
	}
	if byUUID == nil {
		t.Fatal("Expected analysis, got nil")
	}

	if byUUID.SourceName != original.SourceName {
		t.Errorf("Expected source %q, got %q", original.SourceName, byUUID.SourceName)
	}
	if byUUID.Threshold != original.Threshold {
		t.Errorf("Expected threshold %v, got %v", original.Threshold, byUUID.Threshold)
	}
	if byUUID.DetectionCount != 3 || byUUID.UniqueLabels != 2 {
		t.Errorf("Counts not preserved: %+v", byUUID)
	}
	if byUUID.AvgConfidence != 0.82 {
		t.Errorf("Expected avg confidence 0.82, got %v", byUUID.AvgConfidence)
	}
	if byUUID.SessionID != "session-a" {
		t.Errorf("Expected session-a, got %q", byUUID.SessionID)
	}
	if byUUID.CreatedAt.Unix() != original.CreatedAt.Unix() {
		t.Errorf("Expected created at %v, got %v", original.CreatedAt, byUUID.CreatedAt)
	}
}

func TestAnalysisRepository_GetByUUID_Missing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalysisRepository(db)

	analysis, err := repo.GetByUUID("no-such-uuid")
	if err != nil {
		t.Fatalf("Missing analysis should not error: %v", err)
	}
	if analysis != nil {
		t.Errorf("Expected nil for missing analysis, got %+v", analysis)
	}
}

func TestAnalysisRepository_FilterByLabel(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalysisRepository(db)

	withStop := insertAnalysisWithDetections(t, db, "a.jpg", "stop", "yield")
	insertAnalysisWithDetections(t, db, "b.jpg", "crosswalk")

	analyses, err := repo.GetAll(&dto.AnalysisFilters{Label: "stop", Limit: 10})
	if err != nil {
		t.Fatalf("Failed to filter by label: %v", err)
	}

	if len(analyses) != 1 {
		t.Fatalf("Expected 1 analysis with label stop, got %d", len(analyses))
	}
	if analyses[0].UUID != withStop.UUID {
		t.Errorf("Wrong analysis matched: %s", analyses[0].SourceName)
	}

	count, err := repo.GetTotalCount(&dto.AnalysisFilters{Label: "stop"})
	if err != nil {
		t.Fatalf("Failed to count by label: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected count 1, got %d", count)
	}
}

func TestAnalysisRepository_FilterBySession(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalysisRepository(db)

	mine := testAnalysis("mine.jpg")
	mine.SessionID = "session-mine"
	if _, err := repo.Insert(mine); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	other := testAnalysis("other.jpg")
	other.SessionID = "session-other"
	if _, err := repo.Insert(other); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	analyses, err := repo.GetAll(&dto.AnalysisFilters{SessionID: "session-mine", Limit: 10})
	if err != nil {
		t.Fatalf("Failed to filter by session: %v", err)
	}
	if len(analyses) != 1 || analyses[0].SourceName != "mine.jpg" {
		t.Errorf("Session filter returned wrong rows: %+v", analyses)
	}
}

func TestAnalysisRepository_FilterByDateAndMinDetections(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalysisRepository(db)

	insertAnalysisWithDetections(t, db, "busy.jpg", "stop", "stop", "yield")
	insertAnalysisWithDetections(t, db, "quiet.jpg", "stop")

	yesterday := time.Now().AddDate(0, 0, -1)
	tomorrow := time.Now().AddDate(0, 0, 1)

	analyses, err := repo.GetAll(&dto.AnalysisFilters{DateAfter: yesterday, Limit: 10})
	if err != nil {
		t.Fatalf("Failed to filter by date: %v", err)
	}
	if len(analyses) != 2 {
		t.Errorf("Expected 2 analyses after yesterday, got %d", len(analyses))
	}

	analyses, err = repo.GetAll(&dto.AnalysisFilters{DateAfter: tomorrow, Limit: 10})
	if err != nil {
		t.Fatalf("Failed to filter by future date: %v", err)
	}
	if len(analyses) != 0 {
		t.Errorf("Expected 0 analyses after tomorrow, got %d", len(analyses))
	}

	analyses, err = repo.GetAll(&dto.AnalysisFilters{MinDetections: 2, Limit: 10})
	if err != nil {
		t.Fatalf("Failed to filter by min detections: %v", err)
	}
	if len(analyses) != 1 || analyses[0].SourceName != "busy.jpg" {
		t.Errorf("Min detections filter returned wrong rows: %+v", analyses)
	}
}

func TestAnalysisRepository_Pagination(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalysisRepository(db)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		a := testAnalysis("page_" + string(rune('a'+i)) + ".jpg")
		a.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if _, err := repo.Insert(a); err != nil {
			t.Fatalf("Failed to insert: %v", err)
		}
	}

	firstPage, err := repo.GetAll(&dto.AnalysisFilters{Limit: 2})
	if err != nil {
		t.Fatalf("Failed to get first page: %v", err)
	}
	if len(firstPage) != 2 {
		t.Fatalf("Expected 2 analyses on first page, got %d", len(firstPage))
	}
	// Newest first
	if firstPage[0].SourceName != "page_e.jpg" {
		t.Errorf("Expected newest first, got %s", firstPage[0].SourceName)
	}

	secondPage, err := repo.GetAll(&dto.AnalysisFilters{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("Failed to get second page: %v", err)
	}
	if len(secondPage) != 2 || secondPage[0].SourceName != "page_c.jpg" {
		t.Errorf("Second page wrong: %+v", secondPage)
	}

	total, err := repo.GetTotalCount(&dto.AnalysisFilters{})
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if total != 5 {
		t.Errorf("Expected total 5 regardless of paging, got %d", total)
	}
}

func TestAnalysisRepository_GetOldest(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalysisRepository(db)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		a := testAnalysis("old_" + string(rune('a'+i)) + ".jpg")
		a.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if _, err := repo.Insert(a); err != nil {
			t.Fatalf("Failed to insert: %v", err)
		}
	}

	oldest, err := repo.GetOldest(2)
	if err != nil {
		t.Fatalf("Failed to get oldest: %v", err)
	}
	if len(oldest) != 2 {
		t.Fatalf("Expected 2 analyses, got %d", len(oldest))
	}
	if oldest[0].SourceName != "old_a.jpg" || oldest[1].SourceName != "old_b.jpg" {
		t.Errorf("Oldest ordering wrong: %s, %s", oldest[0].SourceName, oldest[1].SourceName)
	}
}

func TestAnalysisRepository_GetStats(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalysisRepository(db)

	insertAnalysisWithDetections(t, db, "one.jpg", "stop", "stop", "yield")
	insertAnalysisWithDetections(t, db, "two.jpg", "stop")

	stats, err := repo.GetStats()
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}

	if stats.TotalAnalyses != 2 {
		t.Errorf("Expected 2 analyses, got %d", stats.TotalAnalyses)
	}
	if stats.TotalDetections != 4 {
		t.Errorf("Expected 4 detections, got %d", stats.TotalDetections)
	}
	if stats.LabelCounts["stop"] != 3 || stats.LabelCounts["yield"] != 1 {
		t.Errorf("Label counts wrong: %v", stats.LabelCounts)
	}
	if stats.AvgConfidence <= 0 {
		t.Errorf("Expected positive avg confidence, got %v", stats.AvgConfidence)
	}
	if stats.TotalSizeBytes != 4096 {
		t.Errorf("Expected 4096 bytes, got %d", stats.TotalSizeBytes)
	}
}

func TestAnalysisRepository_DeleteAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalysisRepository(db)
	detectionRepo := NewDetectionRepository(db)

	insertAnalysisWithDetections(t, db, "wipe.jpg", "stop")

	if err := repo.DeleteAll(); err != nil {
		t.Fatalf("Failed to delete all: %v", err)
	}

	count, _ := repo.GetTotalCount(&dto.AnalysisFilters{})
	if count != 0 {
		t.Errorf("Expected 0 analyses after DeleteAll, got %d", count)
	}

	labels, _ := detectionRepo.GetAllLabels()
	if len(labels) != 0 {
		t.Errorf("Expected 0 labels after DeleteAll, got %v", labels)
	}
}

// ========================================
// Detection Repository Tests
// ========================================

func TestDetectionRepository_CascadeDelete(t *testing.T) {
	db := setupTestDB(t)
	analysisRepo := NewAnalysisRepository(db)
	detectionRepo := NewDetectionRepository(db)

	analysis := insertAnalysisWithDetections(t, db, "cascade.jpg", "stop", "yield")

	if err := analysisRepo.Delete(analysis.ID); err != nil {
		t.Fatalf("Failed to delete analysis: %v", err)
	}

	retrieved, _ := detectionRepo.GetByAnalysisID(analysis.ID)
	if len(retrieved) != 0 {
		t.Errorf("Expected 0 detections after delete, got %d", len(retrieved))
	}
}

func TestDetectionRepository_OrderedByConfidence(t *testing.T) {
	db := setupTestDB(t)
	detectionRepo := NewDetectionRepository(db)

	analysis := insertAnalysisWithDetections(t, db, "ordered.jpg", "low", "high", "mid")

	detections, err := detectionRepo.GetByAnalysisID(analysis.ID)
	if err != nil {
		t.Fatalf("Failed to get detections: %v", err)
	}
	if len(detections) != 3 {
		t.Fatalf("Expected 3 detections, got %d", len(detections))
	}

	for i := 1; i < len(detections); i++ {
		if detections[i].Confidence > detections[i-1].Confidence {
			t.Errorf("Detections not ordered by confidence: %v then %v",
				detections[i-1].Confidence, detections[i].Confidence)
		}
	}
}

func TestDetectionRepository_LabelQueries(t *testing.T) {
	db := setupTestDB(t)
	detectionRepo := NewDetectionRepository(db)

	insertAnalysisWithDetections(t, db, "labels.jpg", "stop", "stop", "yield")
	insertAnalysisWithDetections(t, db, "labels2.jpg", "crosswalk")

	labels, err := detectionRepo.GetAllLabels()
	if err != nil {
		t.Fatalf("Failed to get labels: %v", err)
	}
	if len(labels) != 3 {
		t.Errorf("Expected 3 distinct labels, got %v", labels)
	}
	// Alphabetical
	if labels[0] != "crosswalk" || labels[1] != "stop" || labels[2] != "yield" {
		t.Errorf("Labels not sorted: %v", labels)
	}

	counts, err := detectionRepo.GetLabelCounts()
	if err != nil {
		t.Fatalf("Failed to get label counts: %v", err)
	}
	if counts["stop"] != 2 || counts["yield"] != 1 || counts["crosswalk"] != 1 {
		t.Errorf("Label counts wrong: %v", counts)
	}
}
