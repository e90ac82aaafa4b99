package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// pinSource lazily loads the shared vault PIN from the parameter store and
// caches it for the process lifetime. A failed load is retried on the next
// request.
type pinSource struct {
	params ParamGetter
	name   string

	mu     sync.RWMutex
	loaded bool
	pin    string
}

func newPinSource(params ParamGetter, name string) *pinSource {
	return &pinSource{params: params, name: name}
}

func (p *pinSource) get(ctx context.Context) (string, error) {
	p.mu.RLock()
	if p.loaded {
		pin := p.pin
		p.mu.RUnlock()
		return pin, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return p.pin, nil
	}

	raw, err := p.params.GetParameter(ctx, p.name)
	if err != nil {
		return "", fmt.Errorf("usecase: load vault pin: %w", err)
	}
	pin := strings.TrimSpace(raw)
	if pin == "" {
		return "", errors.New("usecase: vault pin parameter is empty")
	}
	p.pin = pin
	p.loaded = true
	return pin, nil
}
