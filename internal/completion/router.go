package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"writing-assistant/internal/domain"
)

// Provider is one completion backend.
type Provider interface {
	Name() string
	Supports(model string) bool
	Complete(ctx context.Context, prompt, model string) (domain.Completion, error)
	ListModels(ctx context.Context) ([]domain.ModelInfo, error)
}

// Router sends each call to the first registered provider that supports the model.
type Router struct {
	providers []Provider
}

func NewRouter(providers ...Provider) (*Router, error) {
	r := &Router{}
	for _, p := range providers {
		if p == nil {
			return nil, errors.New("completion: provider must not be nil")
		}
		r.providers = append(r.providers, p)
	}
	if len(r.providers) == 0 {
		return nil, errors.New("completion: at least one provider is required")
	}
	return r, nil
}

func (r *Router) resolve(model string) (Provider, error) {
	model = strings.TrimSpace(model)
	for _, p := range r.providers {
		if p.Supports(model) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("completion: no provider for model %q: %w", model, domain.ErrModelUnavailable)
}

func (r *Router) Complete(ctx context.Context, prompt, model string) (domain.Completion, error) {
	p, err := r.resolve(model)
	if err != nil {
		return domain.Completion{}, err
	}
	out, err := p.Complete(ctx, prompt, model)
	if err != nil {
		return domain.Completion{}, fmt.Errorf("completion: %s: %w", p.Name(), err)
	}
	return out, nil
}

// Available reports whether some provider is configured for model. It makes no network calls.
func (r *Router) Available(model string) bool {
	_, err := r.resolve(model)
	return err == nil
}

// ListModels merges provider catalogues. A failing provider is skipped unless all fail.
func (r *Router) ListModels(ctx context.Context) ([]domain.ModelInfo, error) {
	var (
		models []domain.ModelInfo
		errs   []error
	)
	for _, p := range r.providers {
		list, err := p.ListModels(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		models = append(models, list...)
	}
	if len(errs) == len(r.providers) {
		return nil, fmt.Errorf("completion: list models: %w", errors.Join(errs...))
	}
	return models, nil
}
