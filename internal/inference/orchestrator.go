package inference

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"diagnosis-decoder/internal/fault"
	"diagnosis-decoder/internal/transcript"
)

// RiskLevel is the normalized risk classification for an encounter.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// ParseRiskLevel maps the twin's free-form risk label to a RiskLevel.
// Absent or unrecognized input defaults to LOW.
func ParseRiskLevel(s string) RiskLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(RiskHigh):
		return RiskHigh
	case string(RiskMedium):
		return RiskMedium
	default:
		return RiskLow
	}
}

// SymptomObservation is one observed symptom. Confidence is zero when the
// reporting source carries none.
type SymptomObservation struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// DiagnosisPrediction is one ranked candidate diagnosis after normalization.
// Score unifies the classifier's confidence and the twin's probability.
type DiagnosisPrediction struct {
	Disease    string  `json:"disease"`
	Score      float64 `json:"score"`
	IsEdgeCase bool    `json:"is_edge_case"`
}

// AnalysisResult is the unified view over both inference sources.
type AnalysisResult struct {
	Symptoms         []SymptomObservation  `json:"symptoms"`
	Predictions      []DiagnosisPrediction `json:"predictions"`
	RiskLevel        RiskLevel             `json:"risk_level"`
	NarrativeSummary string                `json:"narrative_summary"`
	EdgeCaseSeeds    []string              `json:"edge_case_seeds"`
}

// Orchestrator issues the two inference calls concurrently and joins them.
type Orchestrator struct {
	classifier ClassifierClient
	twin       TwinClient
}

// NewOrchestrator creates the orchestrator.
func NewOrchestrator(classifier ClassifierClient, twin TwinClient) *Orchestrator {
	return &Orchestrator{classifier: classifier, twin: twin}
}

// Analyze runs both inference calls against the same transcript and merges
// their results. The join is all-or-nothing: if either call fails the whole
// operation fails with the first error encountered and no partial result.
func (o *Orchestrator) Analyze(ctx context.Context, rawTranscript, patientID string) (*AnalysisResult, error) {
	if !transcript.IsUsable(rawTranscript) {
		return nil, fault.New(fault.ValidationFailed, "inference: transcript is empty")
	}
	text := transcript.Normalize(rawTranscript)

	var (
		clsResp  *ClassifierResponse
		twinResp *TwinResponse
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := o.classifier.Analyze(gctx, ClassifierRequest{Transcript: text})
		if err != nil {
			return err
		}
		clsResp = resp
		return nil
	})
	g.Go(func() error {
		resp, err := o.twin.Synthesize(gctx, TwinRequest{Transcript: text, PatientID: patientID})
		if err != nil {
			return err
		}
		twinResp = resp
		return nil
	})

	if err := g.Wait(); err != nil {
		zap.L().Warn("inference call failed", zap.Error(err))
		return nil, fault.Wrap(fault.AnalysisFailed, err, "inference: analysis failed")
	}

	result := merge(clsResp, twinResp)
	zap.L().Info("analysis complete",
		zap.Int("symptoms", len(result.Symptoms)),
		zap.Int("predictions", len(result.Predictions)),
		zap.String("risk", string(result.RiskLevel)))
	return result, nil
}

// merge performs all field normalization between the two source schemas.
func merge(cls *ClassifierResponse, twin *TwinResponse) *AnalysisResult {
	// Symptoms: classifier names first, then twin extras, first-seen order.
	// The twin carries per-symptom confidence; the classifier does not, and
	// a twin confidence is attached to a classifier-seen name when present.
	twinConfidence := make(map[string]float64, len(twin.ExtractedSymptoms))
	for _, s := range twin.ExtractedSymptoms {
		twinConfidence[normalizeName(s.Symptom)] = s.Confidence
	}

	var symptoms []SymptomObservation
	seenSymptoms := make(map[string]bool)
	for _, name := range cls.Symptoms {
		key := normalizeName(name)
		if key == "" || seenSymptoms[key] {
			continue
		}
		seenSymptoms[key] = true
		symptoms = append(symptoms, SymptomObservation{Name: strings.TrimSpace(name), Confidence: twinConfidence[key]})
	}
	for _, s := range twin.ExtractedSymptoms {
		key := normalizeName(s.Symptom)
		if key == "" || seenSymptoms[key] {
			continue
		}
		seenSymptoms[key] = true
		symptoms = append(symptoms, SymptomObservation{Name: strings.TrimSpace(s.Symptom), Confidence: s.Confidence})
	}

	// Predictions: the classifier list, each edge-case flag corroborated by
	// the twin flagging the same disease. Descending score, stable on ties.
	twinEdge := make(map[string]bool, len(twin.DiagnosisPredictions))
	for _, p := range twin.DiagnosisPredictions {
		if p.IsEdgeCase {
			twinEdge[normalizeName(p.Disease)] = true
		}
	}

	predictions := make([]DiagnosisPrediction, 0, len(cls.Predictions))
	for _, p := range cls.Predictions {
		predictions = append(predictions, DiagnosisPrediction{
			Disease:    p.Disease,
			Score:      p.Confidence,
			IsEdgeCase: p.IsEdgeCase || twinEdge[normalizeName(p.Disease)],
		})
	}
	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].Score > predictions[j].Score
	})

	// Edge-case seeds: classifier edge cases plus twin edge-flagged
	// diseases, deduped, first-seen order.
	var seeds []string
	seenSeeds := make(map[string]bool)
	addSeed := func(name string) {
		key := normalizeName(name)
		if key == "" || seenSeeds[key] {
			return
		}
		seenSeeds[key] = true
		seeds = append(seeds, strings.TrimSpace(name))
	}
	for _, name := range cls.EdgeCases {
		addSeed(name)
	}
	for _, p := range twin.DiagnosisPredictions {
		if p.IsEdgeCase {
			addSeed(p.Disease)
		}
	}

	return &AnalysisResult{
		Symptoms:         symptoms,
		Predictions:      predictions,
		RiskLevel:        ParseRiskLevel(twin.RiskScore),
		NarrativeSummary: twin.PatientStory,
		EdgeCaseSeeds:    seeds,
	}
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
