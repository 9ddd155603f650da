package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/jhoicas/portfolio-status-api/internal/domain"
)

var colorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// foldKey clave de comparación sin distinguir mayúsculas (case folding Unicode).
func foldKey(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

func required(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %s requerido", domain.ErrInvalidInput, field)
	}
	return nil
}

// unique comprueba que get(item) no se repita en items. Con skipEmpty se ignoran valores vacíos.
func unique[T any](items []T, field string, get func(T) string, skipEmpty bool) error {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		v := get(it)
		if skipEmpty && strings.TrimSpace(v) == "" {
			continue
		}
		k := foldKey(v)
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%w: %s %q ya existe", domain.ErrDuplicate, field, strings.TrimSpace(v))
		}
		seen[k] = struct{}{}
	}
	return nil
}

func uniqueIDs[T interface{ GetID() string }](items []T) error {
	return unique(items, "id", func(it T) string { return it.GetID() }, false)
}

func indexOf[T interface{ GetID() string }](items []T, id string) int {
	for i, it := range items {
		if it.GetID() == id {
			return i
		}
	}
	return -1
}

func notFound(kind, id string) error {
	return fmt.Errorf("%w: %s %s", domain.ErrNotFound, kind, id)
}
