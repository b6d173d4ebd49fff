package debate

// NextKind is the round transition function. Given the session's last
// recorded round it returns the kind of round to run next, or ok=false
// when the debate should terminate successfully.
//
// The cycle is Draft -> Critique -> Synthesis -> Convergence, looping back
// to Critique until a convergence round reports converged. Refinement is
// reachable only through ShouldRefine; a refinement round is always
// followed by another convergence check.
func NextKind(last *Round) (kind RoundKind, ok bool) {
	if last == nil {
		return KindDraft, true
	}

	switch last.Kind {
	case KindDraft:
		return KindCritique, true
	case KindCritique:
		return KindSynthesis, true
	case KindSynthesis:
		return KindConvergence, true
	case KindRefinement:
		return KindConvergence, true
	case KindConvergence:
		if last.Convergence != nil && last.Convergence.Converged {
			return "", false
		}
		return KindCritique, true
	}

	// Unknown kind: fall back to critique so a corrupted history cannot
	// silently terminate the run.
	return KindCritique, true
}

// ShouldRefine decides whether a failed convergence check is close enough
// to the threshold to warrant a focused refinement round instead of a
// full debate cycle. Requires recursive refinement to be enabled and the
// configured depth not yet exhausted.
func ShouldRefine(cfg Config, last *Round, currentDepth int) bool {
	if !cfg.RecursiveRefinement {
		return false
	}
	if last == nil || last.Kind != KindConvergence || last.Convergence == nil {
		return false
	}
	if last.Convergence.Converged {
		return false
	}
	if currentDepth >= cfg.MaxRefinementDepth {
		return false
	}
	return cfg.ConvergenceThreshold-last.Convergence.Score <= cfg.RefinementMargin
}
