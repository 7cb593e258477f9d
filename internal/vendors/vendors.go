// Package vendors manages the YAML-backed vendor alias registry. Raw vendor
// spellings seen on documents and statement lines resolve to a canonical
// vendor with a default category; confirmed review decisions teach the
// registry new aliases.
package vendors

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"ledgermatch/internal/logging"
	"ledgermatch/internal/models"
	"ledgermatch/internal/textutils"
)

// registryFile is the vendor registry document as stored on disk.
type registryFile struct {
	Vendors []*models.Vendor `yaml:"vendors"`
}

// Registry is an in-memory vendor alias index with dirty-flag persistence.
type Registry struct {
	mu      sync.RWMutex
	path    string
	byAlias map[string]*models.Vendor
	byName  map[string]*models.Vendor
	vendors []*models.Vendor
	dirty   bool
	logger  logging.Logger
}

// NewRegistry creates an empty registry that saves to path.
func NewRegistry(path string, logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Registry{
		path:    path,
		byAlias: make(map[string]*models.Vendor),
		byName:  make(map[string]*models.Vendor),
		logger:  logger.WithField("component", "vendors.Registry"),
	}
}

// Load reads the registry file if it exists. A missing file is an empty
// registry, not an error.
func Load(filename string, logger logging.Logger) (*Registry, error) {
	path, found := FindConfigFile(filename)
	reg := NewRegistry(path, logger)
	if !found {
		reg.logger.Warn("vendors file not found, starting with empty registry",
			logging.Field{Key: "file", Value: filename})
		return reg, nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path comes from config
	if err != nil {
		return nil, fmt.Errorf("error reading vendors file: %w", err)
	}

	var doc registryFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing vendors file: %w", err)
	}

	for _, v := range doc.Vendors {
		reg.index(v)
	}
	reg.logger.Info("loaded vendor registry",
		logging.Field{Key: logging.FieldCount, Value: len(doc.Vendors)},
		logging.Field{Key: "file", Value: path})
	return reg, nil
}

// FindConfigFile looks for a registry file in the standard locations:
// the path itself, ./config/, ./database/, then ~/.config/ledgermatch/.
func FindConfigFile(filename string) (string, bool) {
	if filepath.IsAbs(filename) {
		_, err := os.Stat(filename)
		return filename, err == nil
	}

	locations := []string{
		filename,
		filepath.Join("config", filename),
		filepath.Join("database", filename),
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(homeDir, ".config", "ledgermatch", filename))
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, true
		}
	}
	return filename, false
}

// Resolve maps a raw vendor spelling to its canonical vendor. The lookup key
// is the normalized form, so "Sysco Foods Inc." and "SYSCO FOODS" resolve
// identically.
func (r *Registry) Resolve(raw string) (models.Vendor, bool) {
	key := textutils.NormalizeVendorName(raw)
	if key == "" {
		return models.Vendor{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.byAlias[key]; ok {
		return *v, true
	}
	if v, ok := r.byName[key]; ok {
		return *v, true
	}
	return models.Vendor{}, false
}

// Learn records raw as an alias of canonicalName, creating the vendor if it
// is new. Marks the registry dirty; Save persists it.
func (r *Registry) Learn(raw, canonicalName, defaultCategory string) models.Vendor {
	alias := textutils.NormalizeVendorName(raw)
	nameKey := textutils.NormalizeVendorName(canonicalName)

	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.byName[nameKey]
	if !ok {
		v = &models.Vendor{
			ID:              uuid.New().String(),
			CanonicalName:   canonicalName,
			DefaultCategory: defaultCategory,
			CreatedAt:       time.Now().UTC(),
		}
		r.vendors = append(r.vendors, v)
		r.byName[nameKey] = v
		r.dirty = true
	}
	if defaultCategory != "" && v.DefaultCategory == "" {
		v.DefaultCategory = defaultCategory
		r.dirty = true
	}
	if alias != "" && alias != nameKey && !v.HasAlias(alias) {
		v.Aliases = append(v.Aliases, alias)
		r.byAlias[alias] = v
		r.dirty = true
	}
	return *v
}

// All returns a copy of every registered vendor.
func (r *Registry) All() []models.Vendor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Vendor, 0, len(r.vendors))
	for _, v := range r.vendors {
		out = append(out, *v)
	}
	return out
}

// Save writes the registry back to disk if anything changed since the last
// save. Safe to call unconditionally at command exit.
func (r *Registry) Save() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.dirty {
		return nil
	}

	data, err := yaml.Marshal(registryFile{Vendors: r.vendors})
	if err != nil {
		return fmt.Errorf("error marshaling vendors: %w", err)
	}

	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, models.PermissionDirectory); err != nil {
			return fmt.Errorf("error creating vendors directory: %w", err)
		}
	}
	if err := os.WriteFile(r.path, data, models.PermissionDataFile); err != nil {
		return fmt.Errorf("error writing vendors file: %w", err)
	}

	r.dirty = false
	r.logger.Info("saved vendor registry",
		logging.Field{Key: logging.FieldCount, Value: len(r.vendors)},
		logging.Field{Key: "file", Value: r.path})
	return nil
}

// index adds a loaded vendor to the lookup maps.
func (r *Registry) index(v *models.Vendor) {
	r.vendors = append(r.vendors, v)
	r.byName[textutils.NormalizeVendorName(v.CanonicalName)] = v
	for _, alias := range v.Aliases {
		r.byAlias[textutils.NormalizeVendorName(alias)] = v
	}
}
