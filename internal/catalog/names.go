package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/osse101/cosmos-agent/internal/domain"
)

// Sentinel errors for item name loading
var (
	ErrMissingColumn = errors.New("missing column")
)

// ItemNames maps item IDs to display names. The zero value is usable and
// falls back to "Item #<id>".
type ItemNames struct {
	byID   map[domain.ItemID]string
	byName map[string]domain.ItemID
}

// NewItemNames builds a name table from an ID -> name map
func NewItemNames(names map[domain.ItemID]string) ItemNames {
	n := ItemNames{
		byID:   make(map[domain.ItemID]string, len(names)),
		byName: make(map[string]domain.ItemID, len(names)),
	}
	fold := cases.Fold()
	for id, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		n.byID[id] = name
		key := fold.String(name)
		if _, taken := n.byName[key]; !taken {
			n.byName[key] = id
		}
	}
	return n
}

// LoadItemNames reads an items CSV with at least "ID" and "Name" columns
func LoadItemNames(path string) (ItemNames, error) {
	f, err := os.Open(path)
	if err != nil {
		return ItemNames{}, fmt.Errorf("failed to open items file %s: %w", path, err)
	}
	defer f.Close()

	return ParseItemNames(f)
}

// ParseItemNames parses items CSV content
func ParseItemNames(r io.Reader) (ItemNames, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return ItemNames{}, fmt.Errorf("failed to read items header: %w", err)
	}

	idCol, nameCol := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "id":
			idCol = i
		case "name":
			nameCol = i
		}
	}
	if idCol < 0 || nameCol < 0 {
		return ItemNames{}, fmt.Errorf("%w: items file needs ID and Name", ErrMissingColumn)
	}

	names := make(map[domain.ItemID]string)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ItemNames{}, fmt.Errorf("failed to read items line %d: %w", line, err)
		}
		if idCol >= len(record) || nameCol >= len(record) {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(record[idCol]))
		if err != nil {
			continue
		}
		names[domain.ItemID(id)] = record[nameCol]
	}

	return NewItemNames(names), nil
}

// Name returns the raw name of item
func (n ItemNames) Name(id domain.ItemID) string {
	if name, ok := n.byID[id]; ok {
		return name
	}
	return fmt.Sprintf("Item #%d", id)
}

// DisplayName returns the title-cased name used in tables and grids
func (n ItemNames) DisplayName(id domain.ItemID) string {
	return cases.Title(language.English).String(n.Name(id))
}

// Lookup resolves a case-insensitive item name or a numeric ID
func (n ItemNames) Lookup(nameOrID string) (domain.ItemID, bool) {
	nameOrID = strings.TrimSpace(nameOrID)
	if id, err := strconv.Atoi(nameOrID); err == nil && id > 0 {
		return domain.ItemID(id), true
	}
	id, ok := n.byName[cases.Fold().String(nameOrID)]
	return id, ok
}

// Len returns the number of named items
func (n ItemNames) Len() int {
	return len(n.byID)
}
