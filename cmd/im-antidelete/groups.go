package main

import (
	"context"
	"errors"

	"github.com/lzyats/im-antidelete/internal/antidelete"
	"github.com/lzyats/im-antidelete/internal/repo"
)

type subjectRepo interface {
	GetSubject(ctx context.Context, groupJID string) (string, error)
}

type subjectCache interface {
	Get(convID string) (string, bool)
	Set(convID, subject string)
}

// groupDirectory answers group metadata lookups from the cache, falling back
// to MySQL. Unknown groups are cached with an empty subject so a busy group
// missing from the table is not queried on every deletion.
type groupDirectory struct {
	repo  subjectRepo
	cache subjectCache
}

func (g *groupDirectory) GroupMetadata(ctx context.Context, convID string) (antidelete.GroupMetadata, error) {
	if s, ok := g.cache.Get(convID); ok {
		return antidelete.GroupMetadata{Subject: s}, nil
	}
	s, err := g.repo.GetSubject(ctx, convID)
	if errors.Is(err, repo.ErrGroupNotFound) {
		g.cache.Set(convID, "")
		return antidelete.GroupMetadata{}, nil
	}
	if err != nil {
		return antidelete.GroupMetadata{}, err
	}
	g.cache.Set(convID, s)
	return antidelete.GroupMetadata{Subject: s}, nil
}
