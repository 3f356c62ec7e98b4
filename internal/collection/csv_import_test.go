package collection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"collections/internal/models"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "import.csv")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func upload(name, body string) ImageUpload {
	return ImageUpload{
		Filename: name,
		Size:     int64(len(body)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewBufferString(body)), nil
		},
	}
}

func TestImportFromCSV_CreatesItems(t *testing.T) {
	env := newTestEnv(t)
	p := writeCSV(t, strings.Join([]string{
		" ID ,Title,Artist,Year,Medium,ImageURL,tags",
		"c-1,<i>Night</i> Scene,Hiroshige,1857,Woodblock,https://img.test/night.jpg,ukiyo-e; night ",
		",,,circa,,,",
	}, "\n"))

	res, err := env.svc.ImportFromCSV(context.Background(), p, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Stats.New)
	assert.Equal(t, 0, res.Stats.Removed)
	require.Len(t, res.Items, 2)

	first := res.Items[0]
	assert.Equal(t, "c-1", first.ExternalID)
	assert.Equal(t, "Night Scene", first.Title)
	assert.Equal(t, "custom", first.MuseumID)
	require.NotNil(t, first.Year)
	assert.Equal(t, 1857, *first.Year)
	require.NotNil(t, first.Description)
	assert.Equal(t, "Woodblock", *first.Description)
	require.NotNil(t, first.ImageURL)
	assert.Equal(t, "https://img.test/night.jpg", *first.ImageURL)

	meta, ok := first.Metadata.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "csv", meta["importSource"])
	assert.Equal(t, []any{map[string]any{"term": "ukiyo-e"}, map[string]any{"term": "night"}}, meta["tags"])

	second := res.Items[1]
	assert.True(t, strings.HasPrefix(second.ExternalID, "csv-"))
	assert.Equal(t, "Untitled", second.Title)
	assert.Nil(t, second.Year)

	_, err = os.Stat(p)
	assert.True(t, os.IsNotExist(err), "temp csv should be removed")
}

func TestImportFromCSV_ResolvesUploadedImages(t *testing.T) {
	env := newTestEnv(t)
	p := writeCSV(t, "id,title,imageUrl,additionalImages\n"+
		"u-1,Portrait,photos/front.png,back.png;missing.png\n"+
		"u-2,Lost,nowhere.jpg,\n")

	res, err := env.svc.ImportFromCSV(context.Background(), p, []ImageUpload{
		upload("front.png", "front-bytes"),
		upload("back.png", "back-bytes"),
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Len(t, env.images.objects, 2)

	item := res.Items[0]
	require.NotNil(t, item.ImageURL)
	assert.True(t, strings.HasPrefix(*item.ImageURL, "/api/uploads/"))
	assert.True(t, strings.HasSuffix(*item.ImageURL, "-front.png"))
	require.Len(t, item.AdditionalImages, 1)
	assert.True(t, strings.HasSuffix(item.AdditionalImages[0], "-back.png"))

	objectKey := "uploads/" + strings.TrimPrefix(*item.ImageURL, "/api/uploads/")
	assert.Equal(t, []byte("front-bytes"), env.images.objects[objectKey])

	assert.Nil(t, res.Items[1].ImageURL)
}

func TestImportFromCSV_FailedUploadLeavesImageUnmapped(t *testing.T) {
	env := newTestEnv(t)
	env.images.failFor = "broken.png"
	p := writeCSV(t, "id,title,imageUrl\nb-1,Broken,broken.png\n")

	res, err := env.svc.ImportFromCSV(context.Background(), p, []ImageUpload{upload("broken.png", "x")})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Nil(t, res.Items[0].ImageURL)
}

func TestImportFromCSV_ReimportUpdates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.ImportFromCSV(ctx, writeCSV(t, "id,title\nr-1,Old\n"), nil)
	require.NoError(t, err)
	res, err := env.svc.ImportFromCSV(ctx, writeCSV(t, "id,title\nr-1,New\n"), nil)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Stats.New)
	assert.Equal(t, 1, res.Stats.Updated)
	assert.Equal(t, "New", res.Items[0].Title)
}

func TestImportFromCSV_RowFailureIsolated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.svc.repo.db.Callback().Create().Before("gorm:create").Register("test:reject_row",
		func(tx *gorm.DB) {
			if item, ok := tx.Statement.Dest.(*models.CollectionItem); ok && item.ExternalID == "bad" {
				_ = tx.AddError(errors.New("constraint violated"))
			}
		}))
	p := writeCSV(t, "id,title\ngood-1,First\nbad,Broken\ngood-2,Second\n")

	res, err := env.svc.ImportFromCSV(ctx, p, nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 2, res.Stats.New)
	assert.Equal(t, 1, res.Stats.Failed)
	assert.Contains(t, res.Message, "1 rows failed")
	require.Len(t, res.Items, 2)
	assert.Equal(t, "good-1", res.Items[0].ExternalID)
	assert.Equal(t, "good-2", res.Items[1].ExternalID)

	_, err = env.svc.Repository().FindByExternalID(ctx, "bad")
	require.ErrorIs(t, err, ErrNotFound)
	page, err := env.svc.ListItems(ctx, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Pagination.TotalItems)
}

func TestImportFromCSV_MalformedIsRejected(t *testing.T) {
	env := newTestEnv(t)
	p := writeCSV(t, "id,title\n\"unterminated,quote\n")

	_, err := env.svc.ImportFromCSV(context.Background(), p, nil)
	require.ErrorIs(t, err, ErrInvalidCSV)

	_, statErr := os.Stat(p)
	assert.True(t, os.IsNotExist(statErr), "temp csv should be removed after a parse error")

	page, err := env.svc.ListItems(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Zero(t, page.Pagination.TotalItems)
}

func TestParseCSV(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		_, err := parseCSV(strings.NewReader(""))
		require.ErrorIs(t, err, ErrInvalidCSV)
	})
	t.Run("ragged row", func(t *testing.T) {
		_, err := parseCSV(strings.NewReader("id,title\n1,a,extra\n"))
		require.ErrorIs(t, err, ErrInvalidCSV)
	})
	t.Run("header only", func(t *testing.T) {
		rows, err := parseCSV(strings.NewReader("id,title\n"))
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
	t.Run("bom and case", func(t *testing.T) {
		rows, err := parseCSV(strings.NewReader("\ufeffID,TITLE,MuseumId\n9,Vase,demo\n"))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, csvRow{Line: 2, ID: "9", Title: "Vase", MuseumID: "demo"}, rows[0])
	})
}

func TestCSVMetadataShape(t *testing.T) {
	env := newTestEnv(t)
	p := writeCSV(t, "id,title,artist,year,department,imageUrl\nm-1,Vase,Anon,1720,Asian Art,https://img.test/v.jpg\n")

	res, err := env.svc.ImportFromCSV(context.Background(), p, nil)
	require.NoError(t, err)

	raw, err := json.Marshal(res.Items[0].Metadata)
	require.NoError(t, err)
	var meta csvMetadata
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, "m-1", meta.ObjectID)
	assert.Equal(t, "Anon", meta.ArtistDisplayName)
	assert.Equal(t, "Asian Art", meta.Department)
	assert.Equal(t, "https://img.test/v.jpg", meta.PrimaryImage)
	assert.True(t, meta.IsPublicDomain)
	require.NotNil(t, meta.ObjectBeginDate)
	assert.Equal(t, 1720, *meta.ObjectBeginDate)
	assert.NotEmpty(t, meta.ImportedAt)
}
