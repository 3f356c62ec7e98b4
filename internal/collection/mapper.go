package collection

import (
	"encoding/json"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"
	"gorm.io/datatypes"

	"collections/internal/met"
	"collections/internal/models"
)

const untitled = "Untitled"

type skipReason int

const (
	keep skipReason = iota
	skipNotPublicDomain
	skipNoImage
)

var yearPattern = regexp.MustCompile(`\b(\d{3,4})\b`)

// fromMetObject maps a catalog object to an item. Objects that are not public
// domain or carry no primary image are rejected with the reason.
func fromMetObject(obj met.Object) (models.CollectionItem, skipReason) {
	if !obj.IsPublicDomain {
		return models.CollectionItem{}, skipNotPublicDomain
	}
	image := strings.TrimSpace(obj.PrimaryImage)
	if image == "" {
		image = strings.TrimSpace(obj.PrimaryImageSmall)
	}
	if image == "" {
		return models.CollectionItem{}, skipNoImage
	}

	title := plainText(obj.Title)
	if title == "" {
		title = untitled
	}
	var year *int
	if obj.ObjectBeginDate != nil && *obj.ObjectBeginDate != 0 {
		y := *obj.ObjectBeginDate
		year = &y
	} else {
		year = yearFromText(obj.ObjectDate)
	}
	description := firstNonEmpty(plainText(obj.Medium), plainText(obj.Culture))

	item := models.CollectionItem{
		ExternalID:       strconv.Itoa(obj.ObjectID),
		MuseumID:         models.MuseumMet,
		Title:            title,
		Artist:           optional(plainText(obj.ArtistDisplayName)),
		Year:             year,
		Description:      optional(description),
		ImageURL:         &image,
		AdditionalImages: optional(joinList(obj.AdditionalImages)),
	}
	if len(obj.Raw) > 0 {
		item.Metadata = datatypes.JSON(obj.Raw)
	}
	return item, keep
}

type csvRow struct {
	Line             int
	ID               string
	Title            string
	Artist           string
	Year             string
	Description      string
	Medium           string
	Culture          string
	Department       string
	ImageURL         string
	AdditionalImages string
	Tags             string
	MuseumID         string
}

type metTag struct {
	Term string `json:"term"`
}

// csvMetadata mirrors the catalog object shape so consumers read both
// provenances the same way.
type csvMetadata struct {
	ObjectID          string   `json:"objectID"`
	Title             string   `json:"title"`
	ArtistDisplayName string   `json:"artistDisplayName"`
	ObjectDate        string   `json:"objectDate"`
	ObjectBeginDate   *int     `json:"objectBeginDate"`
	Medium            string   `json:"medium"`
	Culture           string   `json:"culture"`
	Department        string   `json:"department"`
	PrimaryImage      string   `json:"primaryImage"`
	PrimaryImageSmall string   `json:"primaryImageSmall"`
	AdditionalImages  []string `json:"additionalImages"`
	IsPublicDomain    bool     `json:"isPublicDomain"`
	Tags              []metTag `json:"tags"`
	ImportSource      string   `json:"importSource"`
	ImportedAt        string   `json:"importedAt"`
}

// fromCSVRow maps one CSV row. Image references that are neither remote URLs
// nor present in uploads are returned in missing and left out of the item.
func fromCSVRow(row csvRow, uploads map[string]string, importedAt time.Time) (item models.CollectionItem, missing []string) {
	externalID := strings.TrimSpace(row.ID)
	if externalID == "" {
		externalID = "csv-" + uuid.NewString()
	}
	title := plainText(row.Title)
	if title == "" {
		title = untitled
	}
	museumID := strings.TrimSpace(row.MuseumID)
	if museumID == "" {
		museumID = models.MuseumCustom
	}

	var year *int
	if y, err := strconv.Atoi(strings.TrimSpace(row.Year)); err == nil {
		year = &y
	}

	image, ok := resolveImage(row.ImageURL, uploads)
	if !ok {
		missing = append(missing, row.ImageURL)
	}
	extra := make([]string, 0)
	for _, ref := range splitList(row.AdditionalImages) {
		resolved, ok := resolveImage(ref, uploads)
		if !ok {
			missing = append(missing, ref)
			continue
		}
		extra = append(extra, resolved)
	}

	tags := make([]metTag, 0)
	for _, tag := range splitList(row.Tags) {
		tags = append(tags, metTag{Term: tag})
	}

	medium := plainText(row.Medium)
	culture := plainText(row.Culture)
	description := firstNonEmpty(plainText(row.Description), medium, culture)
	artist := plainText(row.Artist)

	meta := csvMetadata{
		ObjectID:          externalID,
		Title:             title,
		ArtistDisplayName: artist,
		ObjectDate:        strings.TrimSpace(row.Year),
		ObjectBeginDate:   year,
		Medium:            medium,
		Culture:           culture,
		Department:        strings.TrimSpace(row.Department),
		PrimaryImage:      image,
		PrimaryImageSmall: image,
		AdditionalImages:  extra,
		IsPublicDomain:    true,
		Tags:              tags,
		ImportSource:      "csv",
		ImportedAt:        importedAt.UTC().Format(time.RFC3339),
	}
	raw, _ := json.Marshal(meta)

	item = models.CollectionItem{
		ExternalID:       externalID,
		MuseumID:         museumID,
		Title:            title,
		Artist:           optional(artist),
		Year:             year,
		Description:      optional(description),
		ImageURL:         optional(image),
		AdditionalImages: optional(joinList(extra)),
		Metadata:         datatypes.JSON(raw),
	}
	return item, missing
}

// resolveImage returns remote URLs verbatim and maps local filenames through
// uploads. ok is false only when a local reference has no matching upload.
func resolveImage(ref string, uploads map[string]string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", true
	}
	if isRemote(ref) {
		return ref, true
	}
	if p, found := uploads[ref]; found {
		return p, true
	}
	if p, found := uploads[path.Base(strings.ReplaceAll(ref, "\\", "/"))]; found {
		return p, true
	}
	return "", false
}

func isRemote(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// plainText drops markup and entities and collapses whitespace.
func plainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "br", "p", "div", "li":
				b.WriteByte(' ')
			}
		}
	}
}

func yearFromText(s string) *int {
	m := yearPattern.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &y
}

func splitList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinList(items []string) string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return strings.Join(out, ",")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
