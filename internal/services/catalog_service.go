package services

import (
	"fmt"
	"strings"

	"orderbot/internal/domain"
	"orderbot/internal/repos"
)

type CatalogService struct {
	Prods *repos.ProductRepo
}

func NewCatalogService(prods *repos.ProductRepo) *CatalogService {
	return &CatalogService{Prods: prods}
}

func (s *CatalogService) List() ([]domain.Product, error) {
	return s.Prods.List()
}

// Resolve matches a free-text token against the catalog: exact
// case-insensitive name match first, then case-insensitive substring. A
// single substring hit wins; several hits are an error carrying the candidate
// names so the user can be asked to pick one. Never "first match wins".
func (s *CatalogService) Resolve(token string) (domain.Product, error) {
	exact, err := s.Prods.FindExact(token)
	if err != nil {
		return domain.Product{}, err
	}
	if len(exact) == 1 {
		return exact[0], nil
	}

	subs, err := s.Prods.FindSubstring(token)
	if err != nil {
		return domain.Product{}, err
	}
	switch len(subs) {
	case 0:
		return domain.Product{}, fmt.Errorf("product %q: %w", token, domain.ErrNotFound)
	case 1:
		return subs[0], nil
	}

	names := make([]string, len(subs))
	for i, p := range subs {
		names[i] = p.Name
	}
	return domain.Product{}, fmt.Errorf("%q matches %s: %w",
		token, strings.Join(names, ", "), domain.ErrAmbiguousProduct)
}
