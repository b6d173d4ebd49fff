package orchestrator

import (
	"context"
	"sync"

	"github.com/Iron-Ham/quorum/internal/debate"
	"github.com/Iron-Ham/quorum/internal/provider"
)

// invokeResult pairs one participant's response (or failure) with its
// input position.
type invokeResult struct {
	participant debate.Participant
	response    *provider.Response
	err         error
}

// fanOut invokes every participant with its request and collects the
// results by input index: results[i] always corresponds to
// participants[i] no matter the completion order. With parallel false
// the calls run sequentially in input order and produce the same
// result set.
func (o *Orchestrator) fanOut(ctx context.Context, participants []debate.Participant, requests []provider.Request) []invokeResult {
	results := make([]invokeResult, len(participants))

	if !o.cfg.Parallel {
		for i, p := range participants {
			resp, err := o.invoker.Invoke(ctx, p, requests[i])
			results[i] = invokeResult{participant: p, response: resp, err: err}
		}
		return results
	}

	var wg sync.WaitGroup
	for i, p := range participants {
		wg.Add(1)
		go func(i int, p debate.Participant) {
			defer wg.Done()
			resp, err := o.invoker.Invoke(ctx, p, requests[i])
			results[i] = invokeResult{participant: p, response: resp, err: err}
		}(i, p)
	}
	wg.Wait()
	return results
}
