package services

import (
	"context"
	"errors"
	"fmt"

	"selfAPI/internal/feedsync"
)

var ErrUnknownSource = errors.New("unknown sync source")

type SyncService struct {
	syncer   *feedsync.Syncer
	sources  map[string]feedsync.Source
	order    []string
	onChange func(collection string)
}

func NewSyncService(syncer *feedsync.Syncer, sources ...feedsync.Source) *SyncService {
	s := &SyncService{
		syncer:  syncer,
		sources: make(map[string]feedsync.Source, len(sources)),
	}
	for _, src := range sources {
		s.sources[src.Name()] = src
		s.order = append(s.order, src.Name())
	}
	return s
}

func (s *SyncService) SetOnChange(fn func(collection string)) {
	s.onChange = fn
}

func (s *SyncService) Sources() []string {
	return s.order
}

// Run syncs one source by name. The only error is an unknown name; sync
// outcomes are reported in the result.
func (s *SyncService) Run(ctx context.Context, name string) (*feedsync.Result, error) {
	src, ok := s.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}

	res := s.syncer.Run(ctx, src)
	if res.Wrote() && s.onChange != nil {
		s.onChange(src.Collection())
	}
	return res, nil
}

func (s *SyncService) RunAll(ctx context.Context) []*feedsync.Result {
	results := make([]*feedsync.Result, 0, len(s.order))
	for _, name := range s.order {
		res, _ := s.Run(ctx, name)
		results = append(results, res)
	}
	return results
}
