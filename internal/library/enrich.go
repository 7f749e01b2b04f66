package library

import (
	"context"
	"sync"

	"gamedeck/internal/artwork"
)

// ArtworkResolver resolves the artwork set for a title name.
type ArtworkResolver interface {
	ResolveSet(ctx context.Context, name string, policy artwork.Policy) artwork.Set
}

// EnrichedTitle pairs a title with its resolved artwork.
type EnrichedTitle struct {
	Title   `yaml:",inline"`
	Artwork artwork.Set `json:"artwork" yaml:"artwork"`
}

// Enrich resolves artwork for every title using at most concurrency workers.
// Results keep input order; a failed lookup leaves that title's artwork empty.
func Enrich(ctx context.Context, titles []Title, resolver ArtworkResolver, policy artwork.Policy, concurrency int) []EnrichedTitle {
	out := make([]EnrichedTitle, len(titles))
	for i, title := range titles {
		out[i].Title = title
	}
	if resolver == nil || len(titles) == 0 {
		return out
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	if concurrency > len(titles) {
		concurrency = len(titles)
	}

	jobs := make(chan int, len(titles))
	for i := range titles {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				out[i].Artwork = resolver.ResolveSet(ctx, titles[i].Name, policy)
			}
		}()
	}
	wg.Wait()
	return out
}
