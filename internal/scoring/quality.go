package scoring

// QualityTier grades how usable the gathered evidence is
type QualityTier string

const (
	QualityClean   QualityTier = "CLEAN"
	QualityPartial QualityTier = "PARTIAL"
	QualitySparse  QualityTier = "SPARSE"
	QualityGarbage QualityTier = "GARBAGE"
)

// Quality thresholds
const (
	RelevantThreshold  = 0.5
	cleanMinRelevant   = 5
	cleanMinAverage    = 0.6
	partialMinRelevant = 3
	garbageMinDocs     = 5
	garbageMaxAverage  = 0.25
)

// AssessQuality grades a scored set:
//   - CLEAN: at least 5 relevant documents averaging 0.6 or more
//   - PARTIAL: at least 3 relevant documents
//   - GARBAGE: at least 5 documents whose average final score is below 0.25
//   - SPARSE: anything else, including an empty set
//
// A document is relevant when it is not degraded and its final score is at least 0.5.
func AssessQuality(scores []*DocumentScore) QualityTier {
	if len(scores) == 0 {
		return QualitySparse
	}

	var relevant int
	var relevantSum, totalSum float64
	for _, s := range scores {
		totalSum += s.Final
		if !s.Degraded && s.Final >= RelevantThreshold {
			relevant++
			relevantSum += s.Final
		}
	}

	if relevant >= cleanMinRelevant && relevantSum/float64(relevant) >= cleanMinAverage {
		return QualityClean
	}
	if relevant >= partialMinRelevant {
		return QualityPartial
	}
	if len(scores) >= garbageMinDocs && totalSum/float64(len(scores)) < garbageMaxAverage {
		return QualityGarbage
	}
	return QualitySparse
}

// CountUsable returns the number of non-degraded scores
func CountUsable(scores []*DocumentScore) int {
	n := 0
	for _, s := range scores {
		if !s.Degraded {
			n++
		}
	}
	return n
}
