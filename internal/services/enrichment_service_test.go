package services

import (
	"context"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/azcoigreach/news-aggregator/internal/models"
)

func TestLeadSentences(t *testing.T) {
	cases := []struct {
		name string
		text string
		n    int
		want string
	}{
		{"empty", "", 3, ""},
		{"whitespace only", "   ", 3, ""},
		{"fewer than n", "Only one sentence here", 3, "Only one sentence here."},
		{"exactly n", "One two. Three four. Five six.", 3, "One two. Three four. Five six."},
		{"truncates", "One. Two. Three. Four. Five.", 3, "One. Two. Three."},
		{"mixed punctuation", "Really?! Yes. Sure thing. More text.", 2, "Really. Yes."},
	}

	for _, tc := range cases {
		if got := leadSentences(tc.text, tc.n); got != tc.want {
			t.Errorf("%s: leadSentences = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestExtractKeywords(t *testing.T) {
	text := "Climate policy debate continues. Climate negotiators said policy " +
		"talks about emissions will continue. Emissions climate policy."

	keywords := extractKeywords(text, 3)
	if len(keywords) != 3 {
		t.Fatalf("keyword count = %d, want 3", len(keywords))
	}
	// climate x3, policy x3, emissions x2; ties break alphabetically
	want := []string{"climate", "policy", "emissions"}
	if !reflect.DeepEqual(keywords, want) {
		t.Errorf("keywords = %v, want %v", keywords, want)
	}

	// Short words and stopwords never surface
	for _, kw := range extractKeywords("the and will that about over", 10) {
		t.Errorf("unexpected keyword %q from stopword-only text", kw)
	}
}

func TestKeywordOverlap(t *testing.T) {
	score, shared := keywordOverlap(
		[]string{"alpha", "beta", "gamma"},
		[]string{"beta", "gamma", "delta"},
	)
	if math.Abs(score-0.5) > 1e-9 {
		t.Errorf("score = %v, want 0.5", score)
	}
	if !reflect.DeepEqual(shared, []string{"beta", "gamma"}) {
		t.Errorf("shared = %v, want [beta gamma]", shared)
	}

	score, shared = keywordOverlap([]string{"alpha"}, []string{"beta"})
	if score != 0 || shared != nil {
		t.Errorf("disjoint sets: score = %v shared = %v, want 0 and nil", score, shared)
	}

	score, _ = keywordOverlap(nil, []string{"beta"})
	if score != 0 {
		t.Errorf("empty set: score = %v, want 0", score)
	}
}

func TestScoreCredibility(t *testing.T) {
	published := time.Now().UTC()

	strong := &models.Article{
		Author:      "Jane Reporter",
		PublishedAt: &published,
		WordCount:   500,
		Content:     "A measured report with named sources and data.",
	}
	if got := scoreCredibility(strong); math.Abs(got-0.9) > 1e-9 {
		t.Errorf("strong article score = %v, want 0.9", got)
	}

	weak := &models.Article{
		WordCount: 50,
		Content:   "Shocking bombshell! Sources say this allegedly happened.",
	}
	// 0.5 - 0.15 (shocking) - 0.15 (bombshell) - 0.1 (sources say) - 0.1 (allegedly)
	if got := scoreCredibility(weak); math.Abs(got-0.0) > 1e-9 {
		t.Errorf("weak article score = %v, want 0.0", got)
	}

	bare := &models.Article{WordCount: 100, Content: "Plain unremarkable text."}
	if got := scoreCredibility(bare); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("bare article score = %v, want 0.5", got)
	}
}

func TestEnrichmentService_SummarizeArticle(t *testing.T) {
	db, cleanup := setupTestDB(t, "test_enrichment_summarize.db")
	defer cleanup()

	configService := NewConfigurationService(db)
	articleService := NewArticleService(db)
	service := NewEnrichmentService(db, configService, articleService)
	ctx := context.Background()

	content := "Climate negotiators reached agreement today. The climate deal covers " +
		"emissions targets. Delegates praised the climate outcome. Additional detail " +
		"follows in later paragraphs. Even more climate detail here."
	article, err := articleService.Create(&models.Article{
		Title: "Climate Deal", Content: content,
		URL: "https://e.com/climate", SourceURL: "https://e.com",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := service.SummarizeArticle(ctx, article.ID); err != nil {
		t.Fatalf("SummarizeArticle failed: %v", err)
	}

	updated, err := articleService.GetByID(article.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !updated.IsSummarized {
		t.Error("article should be marked summarized")
	}
	if !strings.HasPrefix(updated.Summary, "Climate negotiators reached agreement today") {
		t.Errorf("summary = %q, want lead sentences", updated.Summary)
	}
	if strings.Contains(updated.Summary, "later paragraphs") {
		t.Error("summary should not include the fourth sentence")
	}
	if len(updated.Keywords) == 0 {
		t.Fatal("keywords should be extracted during summarization")
	}
	if updated.Keywords[0] != "climate" {
		t.Errorf("top keyword = %s, want climate", updated.Keywords[0])
	}

	var summaryRows int
	if err := db.QueryRow("SELECT COUNT(*) FROM summaries WHERE article_id = ?", article.ID).Scan(&summaryRows); err != nil {
		t.Fatalf("summary count query failed: %v", err)
	}
	if summaryRows != 1 {
		t.Errorf("summary rows = %d, want 1", summaryRows)
	}

	if err := service.SummarizeArticle(ctx, 999999); err == nil {
		t.Error("expected error for missing article")
	}
}

func TestEnrichmentService_FactCheckArticle(t *testing.T) {
	db, cleanup := setupTestDB(t, "test_enrichment_factcheck.db")
	defer cleanup()

	configService := NewConfigurationService(db)
	articleService := NewArticleService(db)
	service := NewEnrichmentService(db, configService, articleService)
	ctx := context.Background()

	published := time.Now().UTC()
	strong, err := articleService.Create(&models.Article{
		Title: "Strong", Content: strings.Repeat("substantive reporting ", 200),
		URL: "https://e.com/strong", SourceURL: "https://e.com",
		Author: "Jane Reporter", PublishedAt: &published,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	weak, err := articleService.Create(&models.Article{
		Title: "Weak", Content: "Shocking bombshell, sources say.",
		URL: "https://e.com/weak", SourceURL: "https://e.com",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := service.FactCheckArticle(ctx, strong.ID); err != nil {
		t.Fatalf("FactCheckArticle failed: %v", err)
	}
	if err := service.FactCheckArticle(ctx, weak.ID); err != nil {
		t.Fatalf("FactCheckArticle failed: %v", err)
	}

	strongChecks, err := service.ListFactChecks(strong.ID)
	if err != nil {
		t.Fatalf("ListFactChecks failed: %v", err)
	}
	if len(strongChecks) != 1 {
		t.Fatalf("fact checks = %d, want 1", len(strongChecks))
	}
	if strongChecks[0].Verdict != "verified" {
		t.Errorf("strong article verdict = %s, want verified", strongChecks[0].Verdict)
	}
	if strongChecks[0].Status != "completed" || strongChecks[0].Model != "heuristic" {
		t.Errorf("fact check record = %s/%s, want completed/heuristic",
			strongChecks[0].Status, strongChecks[0].Model)
	}

	weakChecks, err := service.ListFactChecks(weak.ID)
	if err != nil {
		t.Fatalf("ListFactChecks failed: %v", err)
	}
	if weakChecks[0].Verdict != "unverified" {
		t.Errorf("weak article verdict = %s, want unverified", weakChecks[0].Verdict)
	}

	checked, err := articleService.GetByID(strong.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !checked.IsFactChecked {
		t.Error("article should be marked fact-checked")
	}

	// Raising the threshold flips the verdict for the same content
	if err := configService.Set(ctx, "fact_check_confidence_threshold", 0.95, "fact_checking",
		SetOptions{ChangedBy: "test"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := service.FactCheckArticle(ctx, strong.ID); err != nil {
		t.Fatalf("FactCheckArticle failed: %v", err)
	}
	strongChecks, err = service.ListFactChecks(strong.ID)
	if err != nil {
		t.Fatalf("ListFactChecks failed: %v", err)
	}
	if len(strongChecks) != 2 {
		t.Fatalf("fact checks after re-run = %d, want 2", len(strongChecks))
	}
	unverified := 0
	for _, check := range strongChecks {
		if check.Verdict == "unverified" {
			unverified++
		}
	}
	if unverified != 1 {
		t.Errorf("unverified records = %d, want 1 (raised threshold flips the verdict)", unverified)
	}
}

func TestEnrichmentService_CorrelateArticle(t *testing.T) {
	db, cleanup := setupTestDB(t, "test_enrichment_correlate.db")
	defer cleanup()

	configService := NewConfigurationService(db)
	articleService := NewArticleService(db)
	service := NewEnrichmentService(db, configService, articleService)
	ctx := context.Background()

	subject, err := articleService.Create(&models.Article{
		Title: "subject", Content: "c", URL: "https://e.com/s", SourceURL: "https://e.com",
		Keywords: []string{"climate", "policy", "emissions"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	related, err := articleService.Create(&models.Article{
		Title: "related", Content: "c", URL: "https://e.com/r", SourceURL: "https://e.com",
		Keywords: []string{"climate", "policy", "summit"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := articleService.Create(&models.Article{
		Title: "unrelated", Content: "c", URL: "https://e.com/u", SourceURL: "https://e.com",
		Keywords: []string{"sports", "football", "league"},
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := service.CorrelateArticle(ctx, subject.ID); err != nil {
		t.Fatalf("CorrelateArticle failed: %v", err)
	}

	correlations, err := service.ListCorrelations(subject.ID)
	if err != nil {
		t.Fatalf("ListCorrelations failed: %v", err)
	}
	if len(correlations) != 1 {
		t.Fatalf("correlations = %d, want 1", len(correlations))
	}
	if correlations[0].RelatedArticleID != related.ID {
		t.Errorf("related article = %d, want %d", correlations[0].RelatedArticleID, related.ID)
	}
	// {climate, policy} shared out of 4 distinct terms
	if math.Abs(correlations[0].Score-0.5) > 1e-9 {
		t.Errorf("score = %v, want 0.5", correlations[0].Score)
	}
	if !reflect.DeepEqual(correlations[0].SharedKeywords, []string{"climate", "policy"}) {
		t.Errorf("shared keywords = %v, want [climate policy]", correlations[0].SharedKeywords)
	}

	marked, err := articleService.GetByID(subject.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !marked.IsCorrelated {
		t.Error("article should be marked correlated")
	}
}

func TestEnrichmentService_CorrelateWithoutKeywords(t *testing.T) {
	db, cleanup := setupTestDB(t, "test_enrichment_nokeywords.db")
	defer cleanup()

	configService := NewConfigurationService(db)
	articleService := NewArticleService(db)
	service := NewEnrichmentService(db, configService, articleService)
	ctx := context.Background()

	bare, err := articleService.Create(&models.Article{
		Title: "bare", Content: "c", URL: "https://e.com/bare", SourceURL: "https://e.com",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := service.CorrelateArticle(ctx, bare.ID); err != nil {
		t.Fatalf("CorrelateArticle failed: %v", err)
	}

	correlations, err := service.ListCorrelations(bare.ID)
	if err != nil {
		t.Fatalf("ListCorrelations failed: %v", err)
	}
	if len(correlations) != 0 {
		t.Errorf("correlations = %d, want 0", len(correlations))
	}

	marked, err := articleService.GetByID(bare.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !marked.IsCorrelated {
		t.Error("keywordless article should still be marked correlated")
	}
}
