// Package selection tracks the active product/version/language triple and
// derives the collection routing id for outbound queries.
package selection

import (
	"sync"
)

// Sentinel values used when no product is selected. Queries then go out
// without collection scoping.
const (
	NoCollection  = "none"
	NoProductName = "None"
)

// Collection describes one selectable documentation collection as returned
// by the backend's collection listing.
type Collection struct {
	Product         string   `json:"product"`
	ProductFullName string   `json:"product_full_name"`
	Version         []string `json:"version"`
	Language        string   `json:"language"`
}

// Change describes an effective context change. Exactly one is emitted per
// mutation that alters the active triple.
type Change struct {
	ProductFullName string
	Version         string
	// None is true when the change moved to the unscoped sentinel context.
	None bool
}

// Context holds the candidate collections and the active selection.
// Mutation happens only through the setters; every effective change invokes
// the registered change callbacks exactly once.
type Context struct {
	mu          sync.RWMutex
	collections []Collection

	product         string
	productFull     string
	versions        []string
	selectedVersion string
	language        string

	onChange []func(Change)
}

// NewContext creates an unscoped selection context.
func NewContext() *Context {
	return &Context{
		product:     NoProductName,
		productFull: NoProductName,
	}
}

// OnChange registers a callback for effective context changes.
func (c *Context) OnChange(fn func(Change)) {
	c.mu.Lock()
	c.onChange = append(c.onChange, fn)
	c.mu.Unlock()
}

// SetCollections replaces the candidate set. The active selection is left
// untouched; an empty set simply degrades to the unscoped sentinel.
func (c *Context) SetCollections(collections []Collection) {
	c.mu.Lock()
	c.collections = make([]Collection, len(collections))
	copy(c.collections, collections)
	c.mu.Unlock()
}

// Collections returns a copy of the candidate set.
func (c *Context) Collections() []Collection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Collection, len(c.collections))
	copy(out, c.collections)
	return out
}

// SetProduct selects a product by its short id. The version resets to the
// product's first available version and the language to the product's
// declared language. Unknown products are ignored.
func (c *Context) SetProduct(product string) {
	c.mu.Lock()
	col, ok := c.findLocked(product)
	if !ok {
		c.mu.Unlock()
		return
	}
	c.product = col.Product
	c.productFull = col.ProductFullName
	c.versions = col.Version
	c.selectedVersion = ""
	if len(col.Version) > 0 {
		c.selectedVersion = col.Version[0]
	}
	c.language = col.Language
	change := c.changeLocked()
	c.mu.Unlock()
	c.emit(change)
}

// SetVersion selects a version for the current product. A no-op when the
// version is unchanged or not offered by the product.
func (c *Context) SetVersion(version string) {
	c.mu.Lock()
	if version == c.selectedVersion || !contains(c.versions, version) {
		c.mu.Unlock()
		return
	}
	c.selectedVersion = version
	change := c.changeLocked()
	c.mu.Unlock()
	c.emit(change)
}

// SetLanguage selects a language. A no-op when unchanged.
func (c *Context) SetLanguage(language string) {
	c.mu.Lock()
	if language == c.language {
		c.mu.Unlock()
		return
	}
	c.language = language
	change := c.changeLocked()
	c.mu.Unlock()
	c.emit(change)
}

// Product returns the short id of the selected product, or the sentinel.
func (c *Context) Product() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.product
}

// ProductFullName returns the display name of the selected product, or the
// "None" sentinel when unscoped.
func (c *Context) ProductFullName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.productFull
}

// Version returns the selected version, empty when unscoped.
func (c *Context) Version() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selectedVersion
}

// Versions returns the versions offered by the selected product.
func (c *Context) Versions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.versions))
	copy(out, c.versions)
	return out
}

// Language returns the selected language, empty when unscoped.
func (c *Context) Language() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.language
}

// Scoped reports whether a real product is selected.
func (c *Context) Scoped() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scopedLocked()
}

// ContextID derives the collection routing id: product, language and version
// joined with "_", every rune outside [A-Za-z0-9_] replaced by "_". The id is
// a pure function of the active triple. Unscoped contexts yield "none".
func (c *Context) ContextID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.scopedLocked() {
		return NoCollection
	}
	return NormalizeID(c.product, c.language, c.selectedVersion)
}

// NormalizeID builds a routing id safe for use as an external key. Dots and
// dashes in version strings are the usual offenders and map to underscores.
func NormalizeID(product, language, version string) string {
	joined := product + "_" + language + "_" + version
	out := make([]rune, 0, len(joined))
	for _, r := range joined {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			out = append(out, r)
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}

func (c *Context) scopedLocked() bool {
	return c.product != "" && c.product != NoProductName && c.productFull != NoProductName
}

func (c *Context) findLocked(product string) (Collection, bool) {
	for _, col := range c.collections {
		if col.Product == product {
			return col, true
		}
	}
	return Collection{}, false
}

func (c *Context) changeLocked() Change {
	return Change{
		ProductFullName: c.productFull,
		Version:         c.selectedVersion,
		None:            !c.scopedLocked(),
	}
}

func (c *Context) emit(change Change) {
	c.mu.RLock()
	callbacks := make([]func(Change), len(c.onChange))
	copy(callbacks, c.onChange)
	c.mu.RUnlock()
	for _, fn := range callbacks {
		fn(change)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
