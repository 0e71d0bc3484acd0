package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/azcoigreach/news-aggregator/internal/database"
	"github.com/azcoigreach/news-aggregator/internal/models"
)

const (
	summaryMaxSentences  = 3
	keywordMaxCount      = 10
	keywordMinLength     = 4
	correlationThreshold = 0.2
	correlationMaxLinks  = 5
)

// EnrichmentService runs the post-crawl processing pipeline over stored
// articles. Summaries and keywords are produced with deterministic text
// heuristics; fact-check verdicts are recorded against the configured
// confidence threshold.
type EnrichmentService struct {
	db             *database.DB
	configService  *ConfigurationService
	articleService *ArticleService
}

// NewEnrichmentService creates a new enrichment service
func NewEnrichmentService(db *database.DB, configService *ConfigurationService,
	articleService *ArticleService) *EnrichmentService {
	return &EnrichmentService{
		db:             db,
		configService:  configService,
		articleService: articleService,
	}
}

// SummarizeArticle produces a lead-sentence summary, stores it and marks the
// article summarized. Keywords are extracted in the same pass.
func (s *EnrichmentService) SummarizeArticle(ctx context.Context, articleID int) error {
	article, err := s.articleService.GetByID(articleID)
	if err != nil {
		return err
	}
	if article == nil {
		return fmt.Errorf("article %d not found", articleID)
	}

	summary := leadSentences(article.Content, summaryMaxSentences)
	if summary == "" {
		return fmt.Errorf("article %d has no summarizable content", articleID)
	}

	if err := s.articleService.SetSummary(articleID, summary); err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO summaries (article_id, content, method, word_count, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		articleID, summary, "lead_sentences", len(strings.Fields(summary)), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to store summary: %w", err)
	}

	keywords := extractKeywords(article.Title+" "+article.Content, keywordMaxCount)
	if len(keywords) > 0 {
		if err := s.articleService.SetKeywords(articleID, keywords); err != nil {
			return err
		}
	}

	slog.Debug("article summarized", "article_id", articleID, "keywords", len(keywords))
	return nil
}

// FactCheckArticle records a fact-check result for an article. Scoring is a
// content heuristic (hedged and sensational phrasing lowers confidence); the
// verdict is "verified" only when confidence clears the configured threshold.
func (s *EnrichmentService) FactCheckArticle(ctx context.Context, articleID int) error {
	article, err := s.articleService.GetByID(articleID)
	if err != nil {
		return err
	}
	if article == nil {
		return fmt.Errorf("article %d not found", articleID)
	}

	threshold := 0.8
	if s.configService != nil {
		if v, err := s.configService.Get(ctx, "fact_check_confidence_threshold", "", nil); err == nil {
			if f, ok := v.(float64); ok {
				threshold = f
			}
		}
	}

	confidence := scoreCredibility(article)
	verdict := "unverified"
	if confidence >= threshold {
		verdict = "verified"
	}

	_, err = s.db.Exec(`
		INSERT INTO fact_checks (article_id, status, verdict, confidence, model, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		articleID, "completed", verdict, confidence, "heuristic",
		fmt.Sprintf("threshold %.2f", threshold), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to store fact check: %w", err)
	}

	if err := s.articleService.MarkFactChecked(articleID); err != nil {
		return err
	}

	slog.Debug("article fact-checked",
		"article_id", articleID, "verdict", verdict, "confidence", confidence)
	return nil
}

// CorrelateArticle links an article to others sharing keywords. Requires the
// article to have keywords, so it runs after summarization.
func (s *EnrichmentService) CorrelateArticle(ctx context.Context, articleID int) error {
	article, err := s.articleService.GetByID(articleID)
	if err != nil {
		return err
	}
	if article == nil {
		return fmt.Errorf("article %d not found", articleID)
	}
	if len(article.Keywords) == 0 {
		// Nothing to correlate on. Mark done so the pipeline can finish.
		if err := s.articleService.MarkCorrelated(articleID); err != nil {
			return err
		}
		return s.maybeMarkProcessed(article)
	}

	candidates, err := s.articleService.ListCorrelationCandidates(articleID, 200)
	if err != nil {
		return err
	}

	type match struct {
		id     int
		score  float64
		shared []string
	}
	var matches []match
	for _, candidate := range candidates {
		score, shared := keywordOverlap(article.Keywords, candidate.Keywords)
		if score >= correlationThreshold {
			matches = append(matches, match{candidate.ID, score, shared})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if len(matches) > correlationMaxLinks {
		matches = matches[:correlationMaxLinks]
	}

	now := time.Now().UTC()
	for _, m := range matches {
		sharedJSON, err := json.Marshal(m.shared)
		if err != nil {
			return fmt.Errorf("failed to encode shared keywords: %w", err)
		}
		_, err = s.db.Exec(`
			INSERT INTO correlations (article_id, related_article_id, score, shared_keywords, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			articleID, m.id, m.score, string(sharedJSON), now,
		)
		if err != nil {
			return fmt.Errorf("failed to store correlation: %w", err)
		}
	}

	if err := s.articleService.MarkCorrelated(articleID); err != nil {
		return err
	}
	if err := s.maybeMarkProcessed(article); err != nil {
		return err
	}

	slog.Debug("article correlated", "article_id", articleID, "links", len(matches))
	return nil
}

// maybeMarkProcessed flags the article fully processed once correlation has
// run and the earlier stages are complete. Correlation is the last stage.
func (s *EnrichmentService) maybeMarkProcessed(article *models.Article) error {
	if article.IsSummarized && article.IsFactChecked {
		return s.articleService.MarkProcessed(article.ID)
	}
	return nil
}

// ListCorrelations returns correlations stored for an article
func (s *EnrichmentService) ListCorrelations(articleID int) ([]models.Correlation, error) {
	rows, err := s.db.Query(`
		SELECT id, article_id, related_article_id, score, shared_keywords, created_at
		FROM correlations
		WHERE article_id = ?
		ORDER BY score DESC`, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query correlations: %w", err)
	}
	defer rows.Close()

	var correlations []models.Correlation
	for rows.Next() {
		var c models.Correlation
		var shared string
		if err := rows.Scan(&c.ID, &c.ArticleID, &c.RelatedArticleID, &c.Score, &shared, &c.CreatedAt); err != nil {
			return nil, err
		}
		if shared != "" {
			if err := json.Unmarshal([]byte(shared), &c.SharedKeywords); err != nil {
				return nil, fmt.Errorf("failed to decode shared keywords: %w", err)
			}
		}
		correlations = append(correlations, c)
	}
	return correlations, rows.Err()
}

// ListFactChecks returns fact-check records for an article, newest first
func (s *EnrichmentService) ListFactChecks(articleID int) ([]models.FactCheck, error) {
	rows, err := s.db.Query(`
		SELECT id, article_id, status, verdict, confidence, model, notes, created_at
		FROM fact_checks
		WHERE article_id = ?
		ORDER BY created_at DESC`, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fact checks: %w", err)
	}
	defer rows.Close()

	var checks []models.FactCheck
	for rows.Next() {
		var fc models.FactCheck
		if err := rows.Scan(&fc.ID, &fc.ArticleID, &fc.Status, &fc.Verdict,
			&fc.Confidence, &fc.Model, &fc.Notes, &fc.CreatedAt); err != nil {
			return nil, err
		}
		checks = append(checks, fc)
	}
	return checks, rows.Err()
}

var sentenceSplitter = regexp.MustCompile(`[.!?]+\s+`)

// leadSentences returns the first n sentences of text
func leadSentences(text string, n int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	parts := sentenceSplitter.Split(text, n+1)
	if len(parts) > n {
		parts = parts[:n]
	}

	summary := strings.Join(parts, ". ")
	summary = strings.TrimSpace(summary)
	if summary != "" && !strings.HasSuffix(summary, ".") {
		summary += "."
	}
	return summary
}

var stopwords = map[string]bool{
	"about": true, "after": true, "also": true, "been": true, "before": true,
	"being": true, "between": true, "both": true, "could": true, "during": true,
	"each": true, "from": true, "have": true, "having": true, "here": true,
	"into": true, "more": true, "most": true, "other": true, "over": true,
	"said": true, "same": true, "should": true, "some": true, "such": true,
	"than": true, "that": true, "their": true, "them": true, "then": true,
	"there": true, "these": true, "they": true, "this": true, "those": true,
	"through": true, "under": true, "very": true, "were": true, "what": true,
	"when": true, "where": true, "which": true, "while": true, "will": true,
	"with": true, "would": true, "your": true,
}

var wordPattern = regexp.MustCompile(`[a-zA-Z]+`)

// extractKeywords returns the most frequent non-stopword terms in text
func extractKeywords(text string, limit int) []string {
	counts := make(map[string]int)
	for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if len(word) < keywordMinLength || stopwords[word] {
			continue
		}
		counts[word]++
	}

	type freq struct {
		word  string
		count int
	}
	frequencies := make([]freq, 0, len(counts))
	for word, count := range counts {
		frequencies = append(frequencies, freq{word, count})
	}
	sort.Slice(frequencies, func(i, j int) bool {
		if frequencies[i].count != frequencies[j].count {
			return frequencies[i].count > frequencies[j].count
		}
		return frequencies[i].word < frequencies[j].word
	})

	if len(frequencies) > limit {
		frequencies = frequencies[:limit]
	}
	keywords := make([]string, len(frequencies))
	for i, f := range frequencies {
		keywords[i] = f.word
	}
	return keywords
}

// keywordOverlap computes the Jaccard similarity of two keyword sets
func keywordOverlap(a, b []string) (float64, []string) {
	if len(a) == 0 || len(b) == 0 {
		return 0, nil
	}

	setA := make(map[string]bool, len(a))
	for _, k := range a {
		setA[k] = true
	}

	var shared []string
	union := len(setA)
	for _, k := range b {
		if setA[k] {
			shared = append(shared, k)
		} else {
			union++
		}
	}
	if union == 0 {
		return 0, nil
	}
	sort.Strings(shared)
	return float64(len(shared)) / float64(union), shared
}

var hedgingPhrases = []string{
	"sources say", "reportedly", "allegedly", "rumor", "unconfirmed",
	"anonymous source", "it is believed", "some say",
}

var sensationalPhrases = []string{
	"shocking", "you won't believe", "miracle", "destroyed",
	"slams", "bombshell", "explosive claim",
}

// scoreCredibility computes a heuristic confidence score for an article.
// Attribution and length raise it; hedged or sensational language lowers it.
func scoreCredibility(article *models.Article) float64 {
	score := 0.5
	content := strings.ToLower(article.Content)

	if article.Author != "" {
		score += 0.15
	}
	if article.PublishedAt != nil {
		score += 0.1
	}
	if article.WordCount >= 300 {
		score += 0.15
	}

	for _, phrase := range hedgingPhrases {
		if strings.Contains(content, phrase) {
			score -= 0.1
		}
	}
	for _, phrase := range sensationalPhrases {
		if strings.Contains(content, phrase) {
			score -= 0.15
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}
