package analysis

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"claim-evaluator/internal/model"
)

type category struct {
	Name       string
	Keywords   []string
	LegalBasis string
	// Uplift estimates an unclaimed head as a share of the claimed total.
	Uplift   float64
	Priority model.Priority
}

var categories = []category{
	{
		Name:       "Extension of Time",
		Keywords:   []string{"extension of time", "eot", "prolongation", "delay"},
		LegalBasis: "Indian Contract Act 1872, Section 55; EOT clause of the contract",
		Uplift:     0.05,
		Priority:   model.PriorityHigh,
	},
	{
		Name:       "Price Escalation",
		Keywords:   []string{"escalation", "price variation", "price adjustment"},
		LegalBasis: "Price variation clause of the contract",
		Uplift:     0.10,
		Priority:   model.PriorityHigh,
	},
	{
		Name:       "Idle Machinery & Manpower",
		Keywords:   []string{"idle", "idling", "standby", "machinery", "manpower"},
		LegalBasis: "Indian Contract Act 1872, Section 73",
		Uplift:     0.04,
		Priority:   model.PriorityMedium,
	},
	{
		Name:       "Variation & Extra Work",
		Keywords:   []string{"variation", "extra work", "additional work", "change order", "extra item"},
		LegalBasis: "Variation clause of the contract; Indian Contract Act 1872, Section 70",
		Uplift:     0.06,
		Priority:   model.PriorityMedium,
	},
	{
		Name:       "Interest on Delayed Payment",
		Keywords:   []string{"interest", "delayed payment"},
		LegalBasis: "Arbitration and Conciliation Act 1996, Section 31(7)",
		Uplift:     0.12,
		Priority:   model.PriorityHigh,
	},
	{
		Name:       "Loss of Profit",
		Keywords:   []string{"loss of profit", "loss of opportunity", "profit"},
		LegalBasis: "Indian Contract Act 1872, Section 73 (Hadley v Baxendale principle)",
		Uplift:     0.05,
		Priority:   model.PriorityMedium,
	},
	{
		Name:       "Overheads",
		Keywords:   []string{"overhead", "head office", "site establishment"},
		LegalBasis: "Hudson / Emden formula for prolonged overheads",
		Uplift:     0.08,
		Priority:   model.PriorityMedium,
	},
}

var (
	annexurePattern = regexp.MustCompile(`\b(?i:annex(?:ure)?)\s*[-:.]?\s*([A-Z0-9]{1,4})\b`)
	annexureHeading = regexp.MustCompile(`^\s*(?i:annex(?:ure)?)\s*[-:.]?\s*([A-Z0-9]{1,4})\b`)
	datePattern     = regexp.MustCompile(`\b(\d{1,2})[./-](\d{1,2})[./-](\d{4})\b`)
	totalPattern    = regexp.MustCompile(`(?i)\b(grand\s+)?total\b`)
	clausePattern   = regexp.MustCompile(`(?i)\b(clause|section|article)\s+\d`)
	projectPattern  = regexp.MustCompile(`(?im)^\s*(?:project(?:\s+name)?|name\s+of\s+(?:the\s+)?work)\s*[:\-]\s*(.+?)\s*$`)
	contractPattern = regexp.MustCompile(`(?i)\b(?:contract|agreement)\s*(?:no\.?|number)\s*[:\-]?\s*([A-Z0-9][A-Z0-9/\-.]*[A-Z0-9])`)
)

const (
	descriptionLimit = 200
	evidenceLimit    = 5
	// totalTolerance is the relative gap between a stated total and the
	// itemized sum that is reported as a calculation error.
	totalTolerance = 0.01
)

// RuleStrategy is a deterministic keyword and amount extractor. The same
// documents always produce the same result.
type RuleStrategy struct{}

func NewRuleStrategy() *RuleStrategy { return &RuleStrategy{} }

func (*RuleStrategy) Name() string { return "rules" }

type docScan struct {
	filename     string
	lines        []string
	hasClauseRef bool
	statedTotal  float64
	itemSum      float64
}

type ruleRun struct {
	claims          []model.ClaimItem
	inconsistencies []model.Inconsistency
	cited           map[string]string // annexure id -> first citing document
	provided        map[string]bool
	seen            map[string]bool
	unquantified    map[string]bool
	meta            model.AnalysisMetadata
}

func (s *RuleStrategy) Analyze(ctx context.Context, docs []Input, report func(ProgressEvent)) (*model.AnalysisResult, error) {
	run := &ruleRun{
		cited:        make(map[string]string),
		provided:     make(map[string]bool),
		seen:         make(map[string]bool),
		unquantified: make(map[string]bool),
		meta:         model.AnalysisMetadata{Methodology: "Rule-based keyword and amount extraction"},
	}

	scans := make([]*docScan, 0, len(docs))
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report(ProgressEvent{
			Stage:              StageExtracting,
			Progress:           5 + 65*i/len(docs),
			Message:            fmt.Sprintf("Extracting claims from %s", doc.Filename),
			CurrentDocument:    doc.Filename,
			ProcessedDocuments: i,
		})
		scans = append(scans, run.scanDocument(doc))
	}

	report(ProgressEvent{Stage: StageValidating, Progress: 75, Message: "Checking documents for inconsistencies", ProcessedDocuments: len(docs)})
	for _, scan := range scans {
		run.checkTimeline(scan)
		run.checkTotals(scan)
	}
	run.checkReferences()

	report(ProgressEvent{Stage: StageRecommending, Progress: 90, Message: "Preparing recommendations", ProcessedDocuments: len(docs)})
	recs, enhanced := run.recommend(scans)

	meta := run.meta
	return &model.AnalysisResult{
		CurrentClaims:   run.claims,
		EnhancedClaims:  enhanced,
		Inconsistencies: run.inconsistencies,
		Recommendations: recs,
		Metadata:        &meta,
	}, nil
}

func (r *ruleRun) scanDocument(doc Input) *docScan {
	scan := &docScan{filename: doc.Filename}
	if id := annexureID(doc.Filename); id != "" {
		r.provided[id] = true
	}
	if r.meta.ProjectName == "" {
		if m := projectPattern.FindStringSubmatch(doc.Content); m != nil {
			r.meta.ProjectName = truncate(m[1], 120)
		}
	}
	if r.meta.ContractNumber == "" {
		if m := contractPattern.FindStringSubmatch(doc.Content); m != nil {
			r.meta.ContractNumber = m[1]
		}
	}

	for _, raw := range strings.Split(doc.Content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		scan.lines = append(scan.lines, line)
		if m := annexureHeading.FindStringSubmatch(line); m != nil {
			r.provided[strings.ToUpper(m[1])] = true
		}
		if clausePattern.MatchString(line) {
			scan.hasClauseRef = true
		}

		amounts := ExtractAmounts(line)
		if totalPattern.MatchString(line) {
			if len(amounts) > 0 {
				scan.statedTotal = amounts[len(amounts)-1].Value
			}
			continue
		}

		cat, ok := matchCategory(line)
		if !ok {
			continue
		}
		if len(amounts) == 0 {
			r.addUnquantified(doc.Filename, cat, line)
			continue
		}
		r.addClaim(scan, cat, line, amounts[0].Value)
	}
	return scan
}

func (r *ruleRun) addClaim(scan *docScan, cat category, line string, amount float64) {
	key := fmt.Sprintf("%s|%.2f", cat.Name, amount)
	if r.seen[key] {
		return
	}
	r.seen[key] = true
	scan.itemSum += amount

	item := model.ClaimItem{
		ID:          fmt.Sprintf("CLM-%03d", len(r.claims)+1),
		Category:    cat.Name,
		Description: truncate(line, descriptionLimit),
		Amount:      amount,
		Status:      model.ClaimStatusReview,
		Evidence:    []string{scan.filename},
		LegalBasis:  cat.LegalBasis,
	}
	if m := annexurePattern.FindStringSubmatch(line); m != nil {
		id := strings.ToUpper(m[1])
		item.Annexure = "Annexure " + id
		item.Status = model.ClaimStatusComplete
		if _, ok := r.cited[id]; !ok {
			r.cited[id] = scan.filename
		}
	}
	r.claims = append(r.claims, item)
}

// addUnquantified records a claim head that is mentioned without an amount,
// once per category and document.
func (r *ruleRun) addUnquantified(filename string, cat category, line string) {
	key := filename + "|" + cat.Name
	if r.unquantified[key] {
		return
	}
	r.unquantified[key] = true

	r.claims = append(r.claims, model.ClaimItem{
		ID:          fmt.Sprintf("CLM-%03d", len(r.claims)+1),
		Category:    cat.Name,
		Description: truncate(line, descriptionLimit),
		Amount:      0,
		Status:      model.ClaimStatusIncomplete,
		Evidence:    []string{filename},
		LegalBasis:  cat.LegalBasis,
	})
	r.addInconsistency(model.Inconsistency{
		Type:        model.InconsistencyMissingData,
		Severity:    model.SeverityMedium,
		Description: fmt.Sprintf("%s is claimed without a quantified amount", cat.Name),
		Location:    filename,
		Suggestion:  "State the claimed amount and attach the supporting computation",
	})
}

func (r *ruleRun) addInconsistency(inc model.Inconsistency) {
	inc.ID = fmt.Sprintf("INC-%03d", len(r.inconsistencies)+1)
	r.inconsistencies = append(r.inconsistencies, inc)
}

// checkTimeline flags a completion date that precedes a commencement date
// and dates outside any plausible contract period.
func (r *ruleRun) checkTimeline(scan *docScan) {
	var start, finish time.Time
	for _, line := range scan.lines {
		lower := strings.ToLower(line)
		for _, d := range parseDates(line) {
			if d.Year() < 1950 || d.Year() > 2100 {
				r.addInconsistency(model.Inconsistency{
					Type:        model.InconsistencyTimeline,
					Severity:    model.SeverityLow,
					Description: fmt.Sprintf("Implausible date %s", d.Format("02.01.2006")),
					Location:    scan.filename,
					Suggestion:  "Verify the date against the original correspondence",
				})
				continue
			}
			switch {
			case start.IsZero() && (strings.Contains(lower, "commence") || strings.Contains(lower, "start")):
				start = d
			case finish.IsZero() && strings.Contains(lower, "completion"):
				finish = d
			}
		}
	}
	if !start.IsZero() && !finish.IsZero() && finish.Before(start) {
		r.addInconsistency(model.Inconsistency{
			Type:     model.InconsistencyTimeline,
			Severity: model.SeverityHigh,
			Description: fmt.Sprintf("Completion date %s is before commencement date %s",
				finish.Format("02.01.2006"), start.Format("02.01.2006")),
			Location:   scan.filename,
			Suggestion: "Reconcile the project timeline before computing delay claims",
		})
	}
}

func (r *ruleRun) checkTotals(scan *docScan) {
	if scan.statedTotal <= 0 || scan.itemSum <= 0 {
		return
	}
	if math.Abs(scan.statedTotal-scan.itemSum)/scan.statedTotal <= totalTolerance {
		return
	}
	r.addInconsistency(model.Inconsistency{
		Type:     model.InconsistencyCalculationError,
		Severity: model.SeverityHigh,
		Description: fmt.Sprintf("Stated total %s does not match the itemized claims %s",
			FormatRupees(scan.statedTotal), FormatRupees(scan.itemSum)),
		Location:   scan.filename,
		Suggestion: "Recompute the summary and align it with the individual claim heads",
	})
}

func (r *ruleRun) checkReferences() {
	ids := make([]string, 0, len(r.cited))
	for id := range r.cited {
		if !r.provided[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		r.addInconsistency(model.Inconsistency{
			Type:        model.InconsistencyUnclearReference,
			Severity:    model.SeverityMedium,
			Description: fmt.Sprintf("Annexure %s is cited but not included in the submitted documents", id),
			Location:    r.cited[id],
			Suggestion:  fmt.Sprintf("Attach Annexure %s or correct the reference", id),
		})
	}
}

func (r *ruleRun) recommend(scans []*docScan) ([]model.Recommendation, []model.ClaimItem) {
	var recs []model.Recommendation
	add := func(rec model.Recommendation) {
		rec.ID = fmt.Sprintf("REC-%03d", len(recs)+1)
		recs = append(recs, rec)
	}

	claimed := make(map[string]bool)
	var total float64
	var unquantified, unsupported []string
	for _, c := range r.claims {
		claimed[c.Category] = true
		total += c.Amount
		switch c.Status {
		case model.ClaimStatusIncomplete:
			unquantified = append(unquantified, c.Category)
		case model.ClaimStatusReview:
			unsupported = append(unsupported, c.Description)
		}
	}

	if len(unquantified) > 0 {
		add(model.Recommendation{
			Type:           model.RecommendationEnhancement,
			Priority:       model.PriorityCritical,
			Title:          "Quantify unquantified claim heads",
			Description:    "Some claim heads are raised without an amount and cannot be awarded as submitted.",
			Evidence:       limit(unquantified, evidenceLimit),
			LegalBasis:     "Burden of proof on the claimant, Indian Evidence Act 1872, Section 101",
			Implementation: "Prepare a computation sheet for each head and cite it in the claim statement",
		})
	}
	if len(unsupported) > 0 {
		add(model.Recommendation{
			Type:           model.RecommendationEvidence,
			Priority:       model.PriorityHigh,
			Title:          "Link supporting annexures",
			Description:    fmt.Sprintf("%d quantified claims do not reference a supporting annexure.", len(unsupported)),
			Evidence:       limit(unsupported, evidenceLimit),
			LegalBasis:     "Indian Evidence Act 1872, Sections 61-65",
			Implementation: "Cross-reference each claim to correspondence, measurement books or site records",
		})
	}

	hasClause := false
	for _, s := range scans {
		hasClause = hasClause || s.hasClauseRef
	}
	if len(r.claims) > 0 && !hasClause {
		add(model.Recommendation{
			Type:           model.RecommendationLegalLanguage,
			Priority:       model.PriorityMedium,
			Title:          "Cite contract clauses",
			Description:    "No claim refers to a specific clause of the contract.",
			Evidence:       []string{},
			LegalBasis:     "Terms of the contract agreement",
			Implementation: "Quote the clause entitling each claim head next to its amount",
		})
	}

	var enhanced []model.ClaimItem
	if total > 0 {
		enhanced = append(enhanced, r.claims...)
		for _, cat := range categories {
			if claimed[cat.Name] {
				continue
			}
			value := math.Round(total * cat.Uplift)
			add(model.Recommendation{
				Type:           model.RecommendationNewClaim,
				Priority:       cat.Priority,
				Title:          "Add a claim for " + cat.Name,
				Description:    fmt.Sprintf("The submission has no %s claim; an estimated %s may be recoverable.", cat.Name, FormatRupees(value)),
				PotentialValue: &value,
				Evidence:       []string{},
				LegalBasis:     cat.LegalBasis,
				Implementation: "Collect the records for this head and quantify it from first principles",
			})
			enhanced = append(enhanced, model.ClaimItem{
				ID:          fmt.Sprintf("CLM-%03d", len(enhanced)+1),
				Category:    cat.Name,
				Description: "Proposed additional claim for " + cat.Name,
				Amount:      value,
				Status:      model.ClaimStatusNew,
				LegalBasis:  cat.LegalBasis,
				Methodology: fmt.Sprintf("Estimated at %.0f%% of the claimed total", cat.Uplift*100),
			})
		}
	}
	return recs, enhanced
}

func matchCategory(line string) (category, bool) {
	lower := strings.ToLower(line)
	for _, cat := range categories {
		for _, kw := range cat.Keywords {
			if containsWord(lower, kw) {
				return cat, true
			}
		}
	}
	return category{}, false
}

// containsWord reports whether kw occurs in s on word boundaries.
func containsWord(s, kw string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], kw)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(kw)
		if (start == 0 || !isWordByte(s[start-1])) && (end == len(s) || !isWordByte(s[end])) {
			return true
		}
		i = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

func parseDates(line string) []time.Time {
	var out []time.Time
	for _, m := range datePattern.FindAllStringSubmatch(line, -1) {
		d, err := time.Parse("2-1-2006", m[1]+"-"+m[2]+"-"+m[3])
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	return out
}

func annexureID(filename string) string {
	base := strings.ToUpper(strings.TrimSuffix(filename, filepath.Ext(filename)))
	if m := annexurePattern.FindStringSubmatch(strings.NewReplacer("_", " ", "-", " ").Replace(base)); m != nil {
		return strings.ToUpper(m[1])
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func limit(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
