package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/aegis/internal/common"
	"github.com/ternarybob/aegis/internal/interfaces"
	"github.com/ternarybob/aegis/internal/models"
	"github.com/ternarybob/aegis/internal/providers"
	"github.com/ternarybob/aegis/internal/workers"
	"github.com/ternarybob/arbor"
)

// Neutral rating defaults applied when the provider call fails after
// retries. Ingestion must never starve downstream stages on an outage.
const (
	FallbackAuthority = 3
	FallbackSeverity  = 2
)

// Result is the ingestion stage output: scored signals sorted by exposure
// descending and their topic groups, plus the stage's provider spend.
type Result struct {
	Signals     []models.Signal
	TopicGroups []models.TopicGroup
	Cost        float64
	Degraded    bool
}

// Service runs signal ingestion: search, pre-filter, provider rating
// fan-out, exposure scoring and topic grouping.
type Service struct {
	searchProvider interfaces.SearchProvider
	provider       interfaces.AnalysisProvider
	config         *common.PipelineConfig
	maxResults     int
	workerCount    int
	logger         arbor.ILogger
	now            func() time.Time
}

// NewService creates an ingestion service. A nil analysis provider is
// allowed (missing credential); every item then receives the neutral
// fallback ratings.
func NewService(searchProvider interfaces.SearchProvider, provider interfaces.AnalysisProvider, config *common.Config, logger arbor.ILogger) *Service {
	return &Service{
		searchProvider: searchProvider,
		provider:       provider,
		config:         &config.Pipeline,
		maxResults:     config.Search.MaxResults,
		workerCount:    config.Pipeline.WorkerCount,
		logger:         logger,
		now:            time.Now,
	}
}

// itemRating is the structured judgment requested per surviving item.
type itemRating struct {
	IsSubstantive   bool   `json:"is_substantive"`
	Summary         string `json:"summary"`
	SubjectCategory string `json:"subject_category"`
	Sentiment       string `json:"sentiment"`
	AuthorityRating int    `json:"authority_rating"`
	SeverityRating  int    `json:"severity_rating"`
}

var ratingSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"is_substantive":   map[string]interface{}{"type": "boolean", "description": "false for listicles, aggregators, pure opinion with no news value"},
		"summary":          map[string]interface{}{"type": "string", "description": "1-3 sentence summary, max 300 characters"},
		"subject_category": map[string]interface{}{"type": "string", "enum": []string{"security_fraud", "legal_compliance", "ethics_management", "labor_relations", "financial_performance", "operational_incident", "product_bug", "customer_service", "general"}},
		"sentiment":        map[string]interface{}{"type": "string", "enum": []string{"negative", "neutral", "positive"}},
		"authority_rating": map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 5, "description": "5=international outlet, 4=national, 3=trade press, 2=blog, 1=unknown"},
		"severity_rating":  map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 5, "description": "1=mild criticism, 2=ethical, 3=legal, 4=scandal, 5=criminal"},
	},
	"required": []string{"is_substantive", "summary", "subject_category", "sentiment", "authority_rating", "severity_rating"},
}

// Ingest collects candidate items about a company, rates the survivors and
// returns scored, grouped signals. A FatalRunError is raised only when the
// search itself yields nothing usable; provider failures degrade per item.
func (s *Service) Ingest(ctx context.Context, companyName string) (*Result, error) {
	query := fmt.Sprintf("latest scandal or critical news about %s", companyName)

	raw, err := s.searchProvider.Search(ctx, query, s.maxResults)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotConfigured) {
			return nil, &interfaces.FatalRunError{Stage: "ingestion", Err: err}
		}
		return nil, &interfaces.FatalRunError{Stage: "ingestion", Err: fmt.Errorf("search collaborator failed: %w", err)}
	}

	candidates := s.preFilter(companyName, raw)
	s.logger.Info().
		Str("company", companyName).
		Int("raw_count", len(raw)).
		Int("candidate_count", len(candidates)).
		Msg("Pre-filter complete")

	if len(candidates) == 0 {
		// A run with zero signals is legal; empty search output is not.
		if len(raw) == 0 {
			return nil, &interfaces.FatalRunError{Stage: "ingestion", Err: errors.New("search returned no results")}
		}
		return &Result{Signals: []models.Signal{}, TopicGroups: []models.TopicGroup{}}, nil
	}

	signals, cost, degraded := s.rateCandidates(ctx, companyName, candidates)

	// Stable sort: exposure descending, ties keep discovery order.
	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].ExposureScore > signals[j].ExposureScore
	})

	groups := s.groupSignals(signals)

	return &Result{
		Signals:     signals,
		TopicGroups: groups,
		Cost:        cost,
		Degraded:    degraded,
	}, nil
}

// preFilter drops items whose title does not reference the company (or a
// known alias) and items matching the noise blacklist, before any provider
// spend.
func (s *Service) preFilter(companyName string, raw []interfaces.SearchResult) []interfaces.SearchResult {
	names := []string{strings.ToLower(companyName)}
	for _, alias := range s.config.Aliases[companyName] {
		names = append(names, strings.ToLower(alias))
	}

	var kept []interfaces.SearchResult
	for _, r := range raw {
		title := strings.ToLower(r.Title)

		referenced := false
		for _, name := range names {
			if name != "" && strings.Contains(title, name) {
				referenced = true
				break
			}
		}
		if !referenced {
			continue
		}

		noisy := false
		for _, term := range s.config.NoiseBlacklist {
			if term != "" && strings.Contains(title, strings.ToLower(term)) {
				noisy = true
				break
			}
		}
		if noisy {
			continue
		}

		kept = append(kept, r)
	}
	return kept
}

// rateCandidates fans the per-item provider calls out on a bounded worker
// pool, then scores every rated item. The fan-out has no ordering
// guarantee; each task writes to its own slot and grouping waits for the
// pool barrier.
func (s *Service) rateCandidates(ctx context.Context, companyName string, candidates []interfaces.SearchResult) ([]models.Signal, float64, bool) {
	type slot struct {
		rating *itemRating
		cost   float64
		failed bool
	}
	slots := make([]slot, len(candidates))

	pool := workers.NewPool(ctx, s.workerCount, s.logger)
	pool.Start()

	for i := range candidates {
		i := i
		item := candidates[i]
		if err := pool.Submit(func(taskCtx context.Context) error {
			rating, cost, err := s.rateItem(taskCtx, companyName, item)
			slots[i].cost = cost
			if err != nil {
				slots[i].failed = true
				return fmt.Errorf("rating %q: %w", item.Title, err)
			}
			slots[i].rating = rating
			return nil
		}); err != nil {
			slots[i].failed = true
		}
	}
	pool.Wait()

	now := s.now()
	degraded := false
	totalCost := 0.0
	signals := make([]models.Signal, 0, len(candidates))

	for i, item := range candidates {
		totalCost += slots[i].cost
		rating := slots[i].rating
		if slots[i].failed || rating == nil {
			// Neutral defaults keep the pipeline fed during an outage.
			degraded = true
			rating = &itemRating{
				IsSubstantive:   true,
				Summary:         fallbackSummary(item),
				SubjectCategory: string(models.SubjectDefault),
				Sentiment:       string(models.SentimentNeutral),
				AuthorityRating: FallbackAuthority,
				SeverityRating:  FallbackSeverity,
			}
		}

		if !rating.IsSubstantive {
			continue
		}

		signals = append(signals, s.buildSignal(item, rating, now, i))
	}

	return signals, totalCost, degraded
}

// rateItem asks the provider for one structured rating.
func (s *Service) rateItem(ctx context.Context, companyName string, item interfaces.SearchResult) (*itemRating, float64, error) {
	if s.provider == nil {
		return nil, 0, interfaces.ErrNotConfigured
	}

	content := item.Content
	if len(content) > 1500 {
		content = content[:1500]
	}
	title := item.Title
	if len(title) > 200 {
		title = title[:200]
	}

	resp, err := s.provider.Invoke(ctx, &interfaces.AnalysisRequest{
		SystemInstruction: "You are an expert in media analysis and crisis management.",
		Prompt: fmt.Sprintf(
			"Rate this article about %s.\n\nTitle: %s\nURL: %s\nExcerpt: %s",
			companyName, title, item.URL, content),
		OutputSchema: ratingSchema,
		Temperature:  0.2,
	})
	if err != nil {
		return nil, 0, err
	}

	var rating itemRating
	if err := providers.ParseStructured(resp.Text, &rating); err != nil {
		return nil, resp.Cost, err
	}

	// Clamp ratings into the documented 1-5 range.
	rating.AuthorityRating = clampRating(rating.AuthorityRating)
	rating.SeverityRating = clampRating(rating.SeverityRating)

	return &rating, resp.Cost, nil
}

// buildSignal computes the deterministic scoring fields for one item.
func (s *Service) buildSignal(item interfaces.SearchResult, rating *itemRating, now time.Time, discoveryIndex int) models.Signal {
	subject := models.SubjectCategory(rating.SubjectCategory)
	sentiment := models.Sentiment(rating.Sentiment)
	switch sentiment {
	case models.SentimentNegative, models.SentimentNeutral, models.SentimentPositive:
	default:
		sentiment = models.SentimentNeutral
	}

	recency := RecencyMultiplier(item.PublishedAt, now)
	subjectRisk := SubjectRiskMultiplier(subject)
	sentimentWeight := SentimentWeight(sentiment)

	summary := rating.Summary
	if len(summary) > 300 {
		summary = summary[:300]
	}

	return models.Signal{
		ID:                    common.NewSignalID(),
		Title:                 item.Title,
		SourceURL:             item.URL,
		PublishedAt:           item.PublishedAt,
		RawContent:            item.Content,
		Summary:               summary,
		AuthorityRating:       rating.AuthorityRating,
		SeverityRating:        rating.SeverityRating,
		SubjectCategory:       subject,
		Sentiment:             sentiment,
		RecencyMultiplier:     recency,
		SubjectRiskMultiplier: subjectRisk,
		SentimentWeight:       sentimentWeight,
		ExposureScore:         ExposureScore(rating.AuthorityRating, rating.SeverityRating, subjectRisk, recency, sentimentWeight),
		DiscoveryIndex:        discoveryIndex,
	}
}

// groupSignals clusters scored signals by subject, caps group size and
// orders groups by summed exposure descending. The representative summary
// is the summary of the highest-scoring member, which is the first signal
// because input arrives sorted.
func (s *Service) groupSignals(signals []models.Signal) []models.TopicGroup {
	maxSize := s.config.MaxGroupSize
	if maxSize <= 0 {
		maxSize = 5
	}

	order := []models.SubjectCategory{}
	bySubject := map[models.SubjectCategory][]models.Signal{}
	for _, sig := range signals {
		if _, seen := bySubject[sig.SubjectCategory]; !seen {
			order = append(order, sig.SubjectCategory)
		}
		if len(bySubject[sig.SubjectCategory]) < maxSize {
			bySubject[sig.SubjectCategory] = append(bySubject[sig.SubjectCategory], sig)
		}
	}

	groups := make([]models.TopicGroup, 0, len(order))
	for _, subject := range order {
		members := bySubject[subject]
		exposure := 0.0
		for _, m := range members {
			exposure += m.ExposureScore
		}
		groups = append(groups, models.TopicGroup{
			Label:                 subjectLabel(subject),
			Subject:               subject,
			RepresentativeSummary: members[0].Summary,
			Signals:               members,
			GroupExposure:         exposure,
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].GroupExposure > groups[j].GroupExposure
	})

	return groups
}

// subjectLabel renders a display label for a subject category.
func subjectLabel(subject models.SubjectCategory) string {
	label := strings.ReplaceAll(string(subject), "_", " ")
	if label == "" {
		return "General"
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

func fallbackSummary(item interfaces.SearchResult) string {
	if item.Content != "" {
		if len(item.Content) > 300 {
			return item.Content[:300]
		}
		return item.Content
	}
	return item.Title
}

func clampRating(v int) int {
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}
