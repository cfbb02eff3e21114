package export

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kikiluvv/reelsmith/internal/project"
	"github.com/kikiluvv/reelsmith/internal/speechcache"
)

// prefetch synthesizes narration for all scenes in parallel so the
// sequential clip loop only sees cache hits. Failures are left for the loop
// to report; clip ordering is unaffected. The returned map holds the
// synthesis error per cache key so the loop does not retry a dead engine.
func (p *Pipeline) prefetch(ctx context.Context, snap *project.Project, jobs []job, opts Options) map[string]error {
	failed := make(map[string]error)
	if p.cache == nil || p.synth == nil {
		return failed
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.SynthesisWorkers)

	seen := make(map[string]bool)
	for i := range jobs {
		j := &jobs[i]
		if !p.wantsSpeech(j) {
			continue
		}
		text := j.scene.Narration
		speaker := p.speaker(snap, &j.scene, opts)
		key := speechcache.Key(text, speaker)
		if seen[key] || p.cache.Exists(text, speaker) {
			continue
		}
		seen[key] = true

		sceneID := j.scene.ID
		g.Go(func() error {
			if _, err := p.resolveSpeech(gctx, text, speaker); err != nil {
				p.logger.Debug().Err(err).Str("scene", sceneID).Msg("prefetch failed")
				if gctx.Err() == nil {
					mu.Lock()
					failed[key] = err
					mu.Unlock()
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	p.logger.Debug().
		Int("requested", len(seen)).
		Int("failed", len(failed)).
		Msg("narration prefetch done")
	return failed
}
