package assessment

// AssessEvidence grades the gathered evidence. KEV listings count as an
// independent source.
func AssessEvidence(sources []DiscoveredSource, kev KevStatus) EvidenceQuality {
	var q EvidenceQuality
	for _, s := range sources {
		if s.Outcome != OutcomeFound {
			continue
		}
		q.SourcesFound++
		if s.Label == LabelIndependent {
			q.IndependentSources++
		} else {
			q.VendorSources++
		}
	}
	if kev.Listed() {
		q.SourcesFound++
		q.IndependentSources++
	}

	switch {
	case q.SourcesFound >= 3 && q.IndependentSources >= 1:
		q.Quality = "good"
	case q.SourcesFound >= 2:
		q.Quality = "moderate"
	case q.SourcesFound == 1:
		q.Quality = "limited"
	default:
		q.Quality = "insufficient"
	}
	return q
}

// DeriveBasis decides the evidence basis from the kinds of sources fetched.
func DeriveBasis(sources []DiscoveredSource, kev KevStatus) EvidenceBasis {
	q := AssessEvidence(sources, kev)
	switch {
	case q.VendorSources > 0 && q.IndependentSources > 0:
		return BasisMixed
	case q.IndependentSources > 0:
		return BasisIndependent
	case q.VendorSources > 0:
		return BasisVendorStated
	default:
		return BasisInsufficient
	}
}
