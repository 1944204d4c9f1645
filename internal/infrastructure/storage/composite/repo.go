package composite

import (
	"context"

	"perpexec/internal/application/port"
	"perpexec/internal/domain/model"
)

// Repo 将写操作扇出到多个后端；读取走第一个后端。
type Repo struct {
	repos []port.Repository
}

func New(repos ...port.Repository) *Repo {
	// nil repos are allowed; filter in constructor for safety
	out := make([]port.Repository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

func (r *Repo) SaveOrderResult(ctx context.Context, batchID int64, result model.OrderResult) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.SaveOrderResult(ctx, batchID, result); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) ListRecentResults(ctx context.Context, limit int) ([]model.OrderResult, error) {
	if len(r.repos) == 0 {
		return nil, nil
	}
	return r.repos[0].ListRecentResults(ctx, limit)
}

func (r *Repo) Close() error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ port.Repository = (*Repo)(nil)
