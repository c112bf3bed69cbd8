package infra

import (
	"strings"

	"github.com/eliteGoblin/ultrafont/internal/domain"
)

var googleFontsCatalog = []domain.CatalogEntry{
	{Family: "Roboto", URL: "https://github.com/google/fonts/raw/main/apache/roboto/Roboto-Regular.ttf"},
	{Family: "Open Sans", URL: "https://github.com/google/fonts/raw/main/apache/opensans/OpenSans-Regular.ttf"},
	{Family: "Lato", URL: "https://github.com/google/fonts/raw/main/ofl/lato/Lato-Regular.ttf"},
	{Family: "Montserrat", URL: "https://github.com/google/fonts/raw/main/ofl/montserrat/Montserrat-Regular.ttf"},
	{Family: "Oswald", URL: "https://github.com/google/fonts/raw/main/ofl/oswald/Oswald-Regular.ttf"},
	{Family: "Raleway", URL: "https://github.com/google/fonts/raw/main/ofl/raleway/Raleway-Regular.ttf"},
	{Family: "Poppins", URL: "https://github.com/google/fonts/raw/main/ofl/poppins/Poppins-Regular.ttf"},
	{Family: "Nunito", URL: "https://github.com/google/fonts/raw/main/ofl/nunito/Nunito-Regular.ttf"},
	{Family: "Ubuntu", URL: "https://github.com/google/fonts/raw/main/ufl/ubuntu/Ubuntu-Regular.ttf"},
	{Family: "Playfair Display", URL: "https://github.com/google/fonts/raw/main/ofl/playfairdisplay/PlayfairDisplay-Regular.ttf"},
}

// StaticCatalog implements domain.Catalog over a fixed entry list.
type StaticCatalog struct {
	entries []domain.CatalogEntry
}

// NewGoogleFontsCatalog returns the built-in Google Fonts catalog.
func NewGoogleFontsCatalog() *StaticCatalog {
	return NewStaticCatalog(googleFontsCatalog)
}

// NewStaticCatalog creates a catalog over entries (for testing).
func NewStaticCatalog(entries []domain.CatalogEntry) *StaticCatalog {
	return &StaticCatalog{entries: append([]domain.CatalogEntry(nil), entries...)}
}

// All returns every entry in catalog order.
func (c *StaticCatalog) All() []domain.CatalogEntry {
	return append([]domain.CatalogEntry(nil), c.entries...)
}

// Search returns entries whose family contains query, case-insensitively.
// An empty query matches everything.
func (c *StaticCatalog) Search(query string) []domain.CatalogEntry {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []domain.CatalogEntry
	for _, e := range c.entries {
		if strings.Contains(strings.ToLower(e.Family), q) {
			out = append(out, e)
		}
	}
	return out
}

// Find returns the entry with exactly this family (case-insensitive).
func (c *StaticCatalog) Find(family string) (domain.CatalogEntry, bool) {
	for _, e := range c.entries {
		if strings.EqualFold(e.Family, family) {
			return e, true
		}
	}
	return domain.CatalogEntry{}, false
}

// FilenameFor returns the download file name for a family:
// spaces become underscores and ".ttf" is appended.
func FilenameFor(family string) string {
	return strings.ReplaceAll(family, " ", "_") + ".ttf"
}

var _ domain.Catalog = (*StaticCatalog)(nil)
