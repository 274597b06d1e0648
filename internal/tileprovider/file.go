package tileprovider

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a registry override file:
//
//	default: osm
//	providers:
//	  - id: osm
//	    name: OpenStreetMap
//	    url: https://tile.openstreetmap.org/{z}/{x}/{y}.png
//	    attribution: "&copy; OpenStreetMap contributors"
//	    maxZoom: 19
type File struct {
	Default   string   `yaml:"default" validate:"required"`
	Providers []Config `yaml:"providers" validate:"required,min=1,dive"`
}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	providerIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("provider_id", func(fl validator.FieldLevel) bool {
			id := fl.Field().String()
			return id != AutoID && providerIDPattern.MatchString(id)
		})

		_ = v.RegisterValidation("tile_template", func(fl validator.FieldLevel) bool {
			u := fl.Field().String()
			if !strings.HasPrefix(u, "https://") && !strings.HasPrefix(u, "http://") {
				return false
			}
			return strings.Contains(u, "{z}") && strings.Contains(u, "{x}") && strings.Contains(u, "{y}")
		})

		validateInst = v
	})
	return validateInst
}

// Validate checks field rules, id uniqueness and that the default exists.
func (f *File) Validate() error {
	if err := validatorInstance().Struct(f); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) {
			fe := ves[0]
			return fmt.Errorf("%s failed validation for tag '%s'", strings.ToLower(fe.StructNamespace()), fe.Tag())
		}
		return err
	}

	seen := make(map[string]bool, len(f.Providers))
	for i, p := range f.Providers {
		if seen[p.ID] {
			return fmt.Errorf("providers[%d].id: duplicate provider id %q", i, p.ID)
		}
		seen[p.ID] = true
	}
	if !seen[f.Default] {
		return fmt.Errorf("default: provider %q is not defined", f.Default)
	}
	return nil
}

// Parse decodes and validates a registry document.
func Parse(data []byte) (*Registry, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid registry: %w", err)
	}
	return NewRegistry(f.Default, f.Providers...), nil
}

// LoadFile reads a registry document from disk.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return Parse(data)
}

// Marshal renders the registry in the File layout.
func Marshal(r *Registry) ([]byte, error) {
	return yaml.Marshal(File{Default: r.DefaultID(), Providers: r.List()})
}
