package main

import (
	"fmt"
	"os"

	"github.com/fwojciec/propcrawl"
	"github.com/fwojciec/propcrawl/domaincom"
	"gopkg.in/yaml.v3"
)

// ShardsFile is the YAML layout of a shards file:
//
//	price_step: 50000
//	price_max: 2000000
//	price_bands:
//	  - {min: 2000000, max: 3000000}
//	suburbs:
//	  - testville-nsw-2000
type ShardsFile struct {
	PriceStep  int         `yaml:"price_step"`
	PriceMax   int         `yaml:"price_max"`
	PriceBands []PriceBand `yaml:"price_bands"`
	Suburbs    []string    `yaml:"suburbs"`
}

// PriceBand is an explicit price range.
type PriceBand struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// LoadShards reads the shard list from path. An empty path yields the
// default price-band ladder.
func LoadShards(path string) ([]propcrawl.Shard, error) {
	if path == "" {
		return domaincom.PriceBandShards(domaincom.DefaultPriceStep, domaincom.DefaultPriceMax), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read shards file: %w", err)
	}
	var f ShardsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, propcrawl.Errorf(propcrawl.EINVALID, "parse shards file %s: %v", path, err)
	}
	return f.Shards()
}

// Shards expands the file into shards: the ladder (when price_max is set),
// then explicit bands, then suburbs.
func (f *ShardsFile) Shards() ([]propcrawl.Shard, error) {
	var shards []propcrawl.Shard
	if f.PriceMax > 0 {
		shards = append(shards, domaincom.PriceBandShards(f.PriceStep, f.PriceMax)...)
	}
	for _, b := range f.PriceBands {
		if b.Max <= b.Min {
			return nil, propcrawl.Errorf(propcrawl.EINVALID, "price band %d-%d: max must exceed min", b.Min, b.Max)
		}
		shards = append(shards, domaincom.PriceBandShard(b.Min, b.Max))
	}
	for _, slug := range f.Suburbs {
		shards = append(shards, domaincom.SuburbShard(slug))
	}
	if len(shards) == 0 {
		return nil, propcrawl.Errorf(propcrawl.EINVALID, "shards file defines no shards")
	}
	return shards, nil
}

// selectShards keeps the shards whose keys are listed. No keys keeps all.
func selectShards(shards []propcrawl.Shard, keys []string) ([]propcrawl.Shard, error) {
	if len(keys) == 0 {
		return shards, nil
	}
	byKey := make(map[string]propcrawl.Shard, len(shards))
	for _, s := range shards {
		byKey[s.Key] = s
	}
	selected := make([]propcrawl.Shard, 0, len(keys))
	for _, k := range keys {
		s, ok := byKey[k]
		if !ok {
			return nil, propcrawl.Errorf(propcrawl.ENOTFOUND, "unknown shard %q", k)
		}
		selected = append(selected, s)
	}
	return selected, nil
}
