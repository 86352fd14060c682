package provider

import (
	"errors"
	"fmt"
)

// Selector holds one provider per variant and the currently active one.
// The active provider is never nil.
type Selector struct {
	providers map[Variant]Provider
	active    Variant
}

// NewSelector registers providers by their Variant and activates initial
func NewSelector(initial Variant, providers ...Provider) (*Selector, error) {
	s := &Selector{
		providers: make(map[Variant]Provider),
	}

	for _, p := range providers {
		if p == nil {
			continue
		}
		s.providers[p.Variant()] = p
	}

	if len(s.providers) == 0 {
		return nil, errors.New("selector needs at least one provider")
	}

	if err := s.SetActive(initial); err != nil {
		return nil, err
	}

	return s, nil
}

// SetActive switches the active provider. An unknown variant leaves the
// current provider in place.
func (s *Selector) SetActive(v Variant) error {
	if _, ok := s.providers[v]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownVariant, v)
	}
	s.active = v
	return nil
}

// Active returns the active provider
func (s *Selector) Active() Provider {
	return s.providers[s.active]
}

// ActiveVariant returns the variant of the active provider
func (s *Selector) ActiveVariant() Variant {
	return s.active
}
