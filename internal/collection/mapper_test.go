package collection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collections/internal/met"
)

func TestFromMetObject(t *testing.T) {
	zero := 0
	obj := met.Object{
		ObjectID:          436535,
		Title:             "Wheat Field with <i>Cypresses</i>",
		ArtistDisplayName: "Vincent van Gogh",
		ObjectDate:        "1889",
		ObjectBeginDate:   &zero,
		Culture:           "Dutch",
		PrimaryImageSmall: "https://images.met.test/small.jpg",
		AdditionalImages:  []string{"https://images.met.test/a.jpg", " ", "https://images.met.test/b.jpg"},
		IsPublicDomain:    true,
		Raw:               []byte(`{"objectID":436535}`),
	}

	item, reason := fromMetObject(obj)
	require.Equal(t, keep, reason)
	assert.Equal(t, "436535", item.ExternalID)
	assert.Equal(t, "Wheat Field with Cypresses", item.Title)
	require.NotNil(t, item.Year)
	assert.Equal(t, 1889, *item.Year)
	require.NotNil(t, item.Description)
	assert.Equal(t, "Dutch", *item.Description)
	assert.Equal(t, "https://images.met.test/small.jpg", *item.ImageURL)
	assert.Equal(t, "https://images.met.test/a.jpg,https://images.met.test/b.jpg", *item.AdditionalImages)
	assert.JSONEq(t, `{"objectID":436535}`, string(item.Metadata))
	assert.Nil(t, item.AIKeywords)
}

func TestFromMetObject_Skips(t *testing.T) {
	_, reason := fromMetObject(met.Object{IsPublicDomain: false, PrimaryImage: "x"})
	assert.Equal(t, skipNotPublicDomain, reason)

	_, reason = fromMetObject(met.Object{IsPublicDomain: true})
	assert.Equal(t, skipNoImage, reason)
}

func TestFromMetObject_BeginDateWins(t *testing.T) {
	begin := 1600
	item, _ := fromMetObject(met.Object{IsPublicDomain: true, PrimaryImage: "x", ObjectBeginDate: &begin, ObjectDate: "1650"})
	assert.Equal(t, 1600, *item.Year)

	item, _ = fromMetObject(met.Object{IsPublicDomain: true, PrimaryImage: "x", ObjectDate: "n.d."})
	assert.Nil(t, item.Year)
	assert.Equal(t, "Untitled", item.Title)
}

func TestFromCSVRow_Defaults(t *testing.T) {
	item, missing := fromCSVRow(csvRow{Year: "c. 1900", ImageURL: "local.jpg"}, nil, time.Now())
	assert.Equal(t, "Untitled", item.Title)
	assert.Equal(t, "custom", item.MuseumID)
	assert.Nil(t, item.Year)
	assert.Nil(t, item.ImageURL)
	assert.Equal(t, []string{"local.jpg"}, missing)
}

func TestResolveImage(t *testing.T) {
	uploads := map[string]string{"a.png": "/api/uploads/1-a.png"}
	tests := []struct {
		ref    string
		want   string
		wantOK bool
	}{
		{"", "", true},
		{"HTTPS://cdn.test/x.jpg", "HTTPS://cdn.test/x.jpg", true},
		{"a.png", "/api/uploads/1-a.png", true},
		{"dir\\sub\\a.png", "/api/uploads/1-a.png", true},
		{"b.png", "", false},
	}
	for _, tt := range tests {
		got, ok := resolveImage(tt.ref, uploads)
		assert.Equal(t, tt.want, got, tt.ref)
		assert.Equal(t, tt.wantOK, ok, tt.ref)
	}
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Madonna and Child", plainText("<i>Madonna</i> and  Child"))
	assert.Equal(t, "Line one Line two", plainText("Line one<br>Line two"))
	assert.Equal(t, "Fish & Chips", plainText("Fish &amp; Chips"))
	assert.Equal(t, "plain", plainText("  plain  "))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList(" a, b;;c ,"))
	assert.Equal(t, []string{}, splitList(""))
}

func TestToItemResponse_BadMetadata(t *testing.T) {
	item, _ := fromCSVRow(csvRow{ID: "x"}, nil, time.Now())
	item.Metadata = []byte("{not json")
	resp := ToItemResponse(item)
	assert.Nil(t, resp.Metadata)
	assert.Equal(t, []string{}, resp.AdditionalImages)
}
