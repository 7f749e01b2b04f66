package artwork

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"gamedeck/internal/logging"
	"gamedeck/internal/services"
)

const maxHeroURLs = 9

// Resolver applies the content policy on top of a Registry. Every lookup
// degrades to "no result" on failure; errors are logged, never returned.
type Resolver struct {
	registry   Registry
	logger     *slog.Logger
	dimensions []string
	maxHeroes  int
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithGridDimensions overrides the grid dimensions filter.
func WithGridDimensions(dims []string) ResolverOption {
	return func(r *Resolver) {
		if len(dims) > 0 {
			r.dimensions = append([]string(nil), dims...)
		}
	}
}

// WithMaxHeroes caps the number of hero URLs in a resolved set.
func WithMaxHeroes(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 && n <= maxHeroURLs {
			r.maxHeroes = n
		}
	}
}

// NewResolver wraps registry. A nil registry (no credential configured) makes
// every lookup return nothing without network I/O.
func NewResolver(registry Registry, logger *slog.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		registry:   registry,
		logger:     logging.NewComponentLogger(logger, "artwork"),
		dimensions: []string{"600x900"},
		maxHeroes:  maxHeroURLs,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Enabled reports whether a registry credential is configured.
func (r *Resolver) Enabled() bool {
	return r != nil && r.registry != nil
}

// Search returns the best registry match for name under policy.
func (r *Resolver) Search(ctx context.Context, name string, policy Policy) (Game, bool) {
	if !r.Enabled() || strings.TrimSpace(name) == "" {
		return Game{}, false
	}
	filter := policy.searchFilter()
	games, err := r.registry.SearchGames(ctx, name, filter)
	if err != nil {
		r.warn(ctx, "artwork search failed", "artwork_search_failed", err,
			logging.String("query", name), logging.String("nsfw", filter))
		return Game{}, false
	}
	if len(games) == 0 {
		r.logger.Debug("no registry match", logging.String("query", name))
		return Game{}, false
	}
	if policy.preferExplicit() && len(games) > 1 {
		sort.SliceStable(games, func(i, j int) bool {
			return games[i].Explicit && !games[j].Explicit
		})
	}
	return games[0], true
}

// FetchImages lists kind images for gameID. With an explicit-first policy the
// explicit subset of an nsfw=true request wins when non-empty; otherwise the
// non-explicit subset of an nsfw=false request is returned.
func (r *Resolver) FetchImages(ctx context.Context, kind Kind, gameID int64, policy Policy) []Image {
	if !r.Enabled() || gameID <= 0 {
		return nil
	}
	query := r.queryFor(kind)

	if policy.preferExplicit() {
		query.NSFW = nsfwTrue
		images, err := r.registry.Images(ctx, kind, gameID, query)
		if err != nil {
			r.warn(ctx, "explicit artwork fetch failed; falling back", "artwork_fallback", err,
				logging.String("kind", string(kind)), logging.Int64("game_id", gameID))
		} else if explicit := filterImages(images, true); len(explicit) > 0 {
			return explicit
		}
	}

	query.NSFW = nsfwFalse
	images, err := r.registry.Images(ctx, kind, gameID, query)
	if err != nil {
		r.warn(ctx, "artwork fetch failed", "artwork_fetch_failed", err,
			logging.String("kind", string(kind)), logging.Int64("game_id", gameID))
		return nil
	}
	return filterImages(images, false)
}

// ResolveSet searches for name and fetches grid, hero and logo artwork
// concurrently. Missing pieces are simply absent from the result.
func (r *Resolver) ResolveSet(ctx context.Context, name string, policy Policy) Set {
	game, ok := r.Search(ctx, name, policy)
	if !ok {
		return Set{}
	}

	var (
		wg                   sync.WaitGroup
		grids, heroes, logos []Image
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		grids = r.FetchImages(ctx, KindGrid, game.ID, policy)
	}()
	go func() {
		defer wg.Done()
		heroes = r.FetchImages(ctx, KindHero, game.ID, policy)
	}()
	go func() {
		defer wg.Done()
		logos = r.FetchImages(ctx, KindLogo, game.ID, policy)
	}()
	wg.Wait()

	set := Set{SourceRegistryID: game.ID}
	if len(grids) > 0 {
		set.PosterURL = grids[0].URL
	}
	for _, hero := range heroes {
		if len(set.HeroURLs) >= r.maxHeroes {
			break
		}
		set.HeroURLs = append(set.HeroURLs, hero.URL)
	}
	if len(logos) > 0 {
		set.LogoURL = logos[0].URL
	}
	return set
}

// Poster returns the first grid image URL of the best match for name.
func (r *Resolver) Poster(ctx context.Context, name string, policy Policy) (string, bool) {
	game, ok := r.Search(ctx, name, policy)
	if !ok {
		return "", false
	}
	grids := r.FetchImages(ctx, KindGrid, game.ID, policy)
	if len(grids) == 0 {
		return "", false
	}
	return grids[0].URL, true
}

func (r *Resolver) queryFor(kind Kind) ImageQuery {
	switch kind {
	case KindGrid:
		return ImageQuery{Dimensions: r.dimensions}
	case KindHero:
		return ImageQuery{Mimes: heroMimes}
	default:
		return ImageQuery{}
	}
}

func (r *Resolver) warn(ctx context.Context, msg, eventType string, err error, attrs ...logging.Attr) {
	attrs = append(attrs,
		logging.Error(err),
		logging.String(logging.FieldErrorHint, services.Hint(err)),
		logging.String(logging.FieldImpact, "title shown without this artwork"),
	)
	logging.WarnWithContext(logging.WithContext(ctx, r.logger), msg, eventType, attrs...)
}

func filterImages(images []Image, explicit bool) []Image {
	out := make([]Image, 0, len(images))
	for _, img := range images {
		if img.Explicit == explicit {
			out = append(out, img)
		}
	}
	return out
}
