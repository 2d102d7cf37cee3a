package unused

import (
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"gopkg.in/yaml.v3"

	"github.com/panbanda/deadapi/pkg/classfile"
	"github.com/panbanda/deadapi/pkg/models"
)

// ObjectClass is the universal root type.
const ObjectClass = "java/lang/Object"

//go:embed data/jdk.yaml
var jdkTable []byte

// IsStandardLibraryClass reports whether the internal name belongs to the
// platform runtime.
func IsStandardLibraryClass(name string) bool {
	return strings.HasPrefix(name, "java/") || strings.HasPrefix(name, "javax/")
}

type stdClass struct {
	Super      string   `yaml:"super"`
	Abstract   bool     `yaml:"abstract"`
	Interface  bool     `yaml:"interface"`
	Interfaces []string `yaml:"interfaces"`
	Methods    []string `yaml:"methods"`
}

type stdTable struct {
	Version string              `yaml:"version"`
	Classes map[string]stdClass `yaml:"classes"`
}

// SignatureSet holds method signatures as name followed by descriptor.
type SignatureSet map[string]struct{}

// Contains reports whether sig is in the set.
func (s SignatureSet) Contains(sig string) bool {
	_, ok := s[sig]
	return ok
}

// StdlibTable answers which method signatures a standard-library class
// makes visible to its subclasses. Closures are computed on first use and
// cached.
type StdlibTable struct {
	version string
	classes map[string]stdClass
	cache   *lru.Cache[string, SignatureSet]
	logger  *slog.Logger

	mu     sync.Mutex
	missed map[string]struct{}
}

// DefaultStdlibCacheSize bounds the number of cached class closures.
const DefaultStdlibCacheSize = 1024

// LoadStdlibTable parses the embedded signature table.
func LoadStdlibTable(cacheSize int, logger *slog.Logger) (*StdlibTable, error) {
	return ParseStdlibTable(jdkTable, cacheSize, logger)
}

// ParseStdlibTable parses a signature table in the embedded YAML layout.
func ParseStdlibTable(data []byte, cacheSize int, logger *slog.Logger) (*StdlibTable, error) {
	var t stdTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse standard library table: %w", err)
	}
	if cacheSize <= 0 {
		cacheSize = DefaultStdlibCacheSize
	}
	cache, err := lru.New[string, SignatureSet](cacheSize)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StdlibTable{
		version: t.Version,
		classes: t.Classes,
		cache:   cache,
		logger:  logger,
		missed:  make(map[string]struct{}),
	}, nil
}

// Version returns the runtime version the table was generated from.
func (t *StdlibTable) Version() string {
	return t.version
}

// Methods returns the visible signatures of class: its own, those of its
// superclasses and, for abstract classes in the chain, those of their
// interfaces and the interfaces' direct super-interfaces. Unknown classes
// yield an empty set and are logged once.
func (t *StdlibTable) Methods(class string) SignatureSet {
	if sigs, ok := t.cache.Get(class); ok {
		return sigs
	}
	sigs := t.closure(class)
	t.cache.Add(class, sigs)
	return sigs
}

func (t *StdlibTable) closure(class string) SignatureSet {
	if _, ok := t.classes[class]; !ok {
		t.mu.Lock()
		_, logged := t.missed[class]
		t.missed[class] = struct{}{}
		t.mu.Unlock()
		if !logged {
			t.logger.Warn("standard library class not in signature table", "class", class, "table", t.version)
		}
		return SignatureSet{}
	}

	members := make(map[string]struct{})
	add := func(name string) {
		if _, ok := t.classes[name]; ok {
			members[name] = struct{}{}
		}
	}
	seen := make(map[string]struct{})
	for c := class; c != ""; {
		if _, dup := seen[c]; dup {
			break
		}
		seen[c] = struct{}{}
		decl, ok := t.classes[c]
		if !ok {
			break
		}
		add(c)
		if decl.Abstract || decl.Interface {
			for _, iface := range decl.Interfaces {
				add(iface)
				for _, superIface := range t.classes[iface].Interfaces {
					add(superIface)
				}
			}
		}
		c = decl.Super
	}

	sigs := make(SignatureSet)
	for name := range members {
		for _, m := range t.classes[name].Methods {
			sigs[m] = struct{}{}
		}
	}
	return sigs
}

// ExcludeInherited drops from subset, the candidate methods of cls, every
// method matching a visible method of cls's standard-library supertypes by
// name and descriptor. The universal root's methods are always dropped, even
// when a standard superclass is missing from the table. Standard interfaces
// are always consulted.
func (t *StdlibTable) ExcludeInherited(cls *classfile.Class, subset []models.MethodKey) []models.MethodKey {
	if len(subset) == 0 {
		return subset
	}
	sources := []SignatureSet{t.Methods(ObjectClass)}
	if IsStandardLibraryClass(cls.SuperName) && cls.SuperName != ObjectClass {
		sources = append(sources, t.Methods(cls.SuperName))
	}
	for _, iface := range cls.Interfaces {
		if IsStandardLibraryClass(iface) {
			sources = append(sources, t.Methods(iface))
		}
	}

	kept := subset[:0]
	for _, k := range subset {
		sig := k.Signature()
		inherited := false
		for _, s := range sources {
			if s.Contains(sig) {
				inherited = true
				break
			}
		}
		if !inherited {
			kept = append(kept, k)
		}
	}
	return kept
}
