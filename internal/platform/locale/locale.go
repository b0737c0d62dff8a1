// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package locale provides the bot's message tables.

Architecture:

  - Catalog: One table per supported language, loaded from JSON documents shaped
    {"section": {"key": "text"}} and addressed as "section.key".
  - Embedded: English and Russian tables ship inside the binary.
  - Override: A directory of <lang>.json files may replace the embedded tables.
  - Resolve: A raw client language code is matched onto a supported tag once.
*/
package locale

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/text/language"
)

// DefaultMessage is returned for any key missing from a table.
const DefaultMessage = "Default message"

//go:embed messages/*.json
var embedded embed.FS

// Supported lists the languages with a message table. The first is the fallback.
var Supported = []language.Tag{language.English, language.Russian}

var matcher = language.NewMatcher(Supported)

// Resolve maps a client language code onto a supported language.
// Unknown or empty codes resolve to English.
func Resolve(code string) language.Tag {
	if code == "" {
		return Supported[0]
	}

	tag, err := language.Parse(code)
	if err != nil {
		return Supported[0]
	}

	_, index, confidence := matcher.Match(tag)
	if confidence == language.No {
		return Supported[0]
	}
	return Supported[index]
}

// # Catalog

// Catalog holds the flattened message tables, keyed by base language.
// It is immutable after construction and safe for concurrent use.
type Catalog struct {
	tables map[string]map[string]string
}

// NewCatalog loads the embedded tables. When dir is not empty, any <lang>.json
// found there replaces the embedded table for that language.
func NewCatalog(dir string) (*Catalog, error) {
	catalog := &Catalog{tables: make(map[string]map[string]string, len(Supported))}

	for _, tag := range Supported {
		base := baseOf(tag)

		data, err := fs.ReadFile(embedded, "messages/"+base+".json")
		if err != nil {
			return nil, fmt.Errorf("locale: read embedded %s table: %w", base, err)
		}

		if dir != "" {
			override, err := os.ReadFile(filepath.Join(dir, base+".json"))
			switch {
			case err == nil:
				data = override
			case !errors.Is(err, fs.ErrNotExist):
				return nil, fmt.Errorf("locale: read %s table: %w", base, err)
			}
		}

		table, err := parseTable(data)
		if err != nil {
			return nil, fmt.Errorf("locale: parse %s table: %w", base, err)
		}
		catalog.tables[base] = table
	}

	return catalog, nil
}

// Text returns the message for key in lang, falling back to the English table
// for unsupported languages and to [DefaultMessage] for unknown keys.
func (c *Catalog) Text(lang language.Tag, key string) string {
	table, ok := c.tables[baseOf(lang)]
	if !ok {
		table = c.tables[baseOf(Supported[0])]
	}

	if text, ok := table[key]; ok && text != "" {
		return text
	}
	return DefaultMessage
}

func parseTable(data []byte) (map[string]string, error) {
	var sections map[string]map[string]string
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, err
	}

	table := make(map[string]string)
	for section, entries := range sections {
		for key, text := range entries {
			table[section+"."+key] = text
		}
	}
	return table, nil
}

func baseOf(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}
