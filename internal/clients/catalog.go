package clients

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// AssetKind is the slot of a MediaSuggestion an asset can fill.
type AssetKind string

const (
	AssetImage AssetKind = "image"
	AssetVideo AssetKind = "video"
	AssetSound AssetKind = "sound"
)

// Asset is one entry of the media catalog.
type Asset struct {
	ID   string    `yaml:"id"`
	Kind AssetKind `yaml:"kind"`
	URL  string    `yaml:"url"`
	Tags []string  `yaml:"tags"`
}

// Catalog is the set of calming media the resolver can suggest.
type Catalog struct {
	Assets []Asset `yaml:"assets"`

	byID map[string]Asset
}

// LoadCatalog reads a YAML catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read media catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse media catalog: %w", err)
	}

	catalog.byID = make(map[string]Asset, len(catalog.Assets))
	for i, asset := range catalog.Assets {
		switch asset.Kind {
		case AssetImage, AssetVideo, AssetSound:
		default:
			return nil, fmt.Errorf("asset %d (%s): unknown kind %q", i, asset.ID, asset.Kind)
		}
		if asset.ID == "" || asset.URL == "" {
			return nil, fmt.Errorf("asset %d: id and url are required", i)
		}
		if _, dup := catalog.byID[asset.ID]; dup {
			return nil, fmt.Errorf("asset %s is defined twice", asset.ID)
		}
		for j, tag := range asset.Tags {
			asset.Tags[j] = strings.ToLower(strings.TrimSpace(tag))
		}
		catalog.Assets[i] = asset
		catalog.byID[asset.ID] = asset
	}
	return &catalog, nil
}

// Lookup returns the asset with id if it exists and has the wanted kind.
func (c *Catalog) Lookup(id string, kind AssetKind) (Asset, bool) {
	asset, ok := c.byID[id]
	if !ok || asset.Kind != kind {
		return Asset{}, false
	}
	return asset, true
}

// OfKind returns the assets of one kind in catalog order.
func (c *Catalog) OfKind(kind AssetKind) []Asset {
	var out []Asset
	for _, asset := range c.Assets {
		if asset.Kind == kind {
			out = append(out, asset)
		}
	}
	return out
}

// BestMatch picks the asset of kind whose tags occur most often in text.
// Ties keep catalog order; no tag hit means no suggestion.
func (c *Catalog) BestMatch(kind AssetKind, text string) (Asset, bool) {
	words := tokenize(text)
	var best Asset
	bestScore := 0
	for _, asset := range c.OfKind(kind) {
		score := 0
		for _, tag := range asset.Tags {
			score += words[tag]
		}
		if score > bestScore {
			best = asset
			bestScore = score
		}
	}
	return best, bestScore > 0
}

func tokenize(text string) map[string]int {
	counts := make(map[string]int)
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, word := range fields {
		counts[word]++
	}
	return counts
}
