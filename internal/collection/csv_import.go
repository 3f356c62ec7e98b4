package collection

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"collections/internal/storage"
)

var ErrInvalidCSV = errors.New("invalid csv")

// ImageUpload is one image sent alongside a CSV file.
type ImageUpload struct {
	Filename    string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

type CSVImportStats struct {
	New     int `json:"new"`
	Updated int `json:"updated"`
	Removed int `json:"removed"`
	Failed  int `json:"failed"`
}

type CSVImportResult struct {
	Success bool           `json:"success"`
	Items   []ItemResponse `json:"items"`
	Stats   CSVImportStats `json:"stats"`
	Message string         `json:"message"`
}

// ImportFromCSV upserts every row of the CSV file at csvPath. The file is
// removed when the import ends. Images are stored first so rows can refer to
// them by filename.
func (s *Service) ImportFromCSV(ctx context.Context, csvPath string, images []ImageUpload) (*CSVImportResult, error) {
	defer func() {
		if err := os.Remove(csvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("remove temp csv", "path", csvPath, "error", err)
		}
	}()

	rows, err := readCSV(csvPath)
	if err != nil {
		return nil, err
	}

	uploads := s.storeImages(ctx, images)
	importedAt := s.now()

	res := &CSVImportResult{Items: []ItemResponse{}}
	for _, row := range rows {
		item, missing := fromCSVRow(row, uploads, importedAt)
		for _, ref := range missing {
			s.logger.Warn("csv image not found", "line", row.Line, "image", ref)
		}

		outcome, err := s.repo.Upsert(ctx, &item)
		if err != nil {
			res.Stats.Failed++
			s.logger.Warn("csv row upsert failed", "line", row.Line, "external_id", item.ExternalID, "error", err)
			continue
		}
		if outcome == OutcomeCreated {
			res.Stats.New++
		} else {
			res.Stats.Updated++
		}
		res.Items = append(res.Items, ToItemResponse(item))
	}

	res.Success = res.Stats.Failed == 0
	res.Message = fmt.Sprintf("Imported %d new, updated %d", res.Stats.New, res.Stats.Updated)
	if res.Stats.Failed > 0 {
		res.Message += fmt.Sprintf(", %d rows failed", res.Stats.Failed)
	}
	s.logger.Info("csv import complete",
		"rows", len(rows),
		"images", len(uploads),
		"new", res.Stats.New,
		"updated", res.Stats.Updated,
		"failed", res.Stats.Failed)
	return res, nil
}

// storeImages uploads images and maps each original filename to its public path.
func (s *Service) storeImages(ctx context.Context, images []ImageUpload) map[string]string {
	uploads := make(map[string]string, len(images))
	if len(images) == 0 {
		return uploads
	}
	if s.images == nil {
		s.logger.Warn("image store not configured, ignoring uploads", "count", len(images))
		return uploads
	}
	for _, img := range images {
		name := uuid.NewString()[:8] + "-" + storage.SafeName(img.Filename)
		if err := s.putImage(ctx, name, img); err != nil {
			s.logger.Warn("image upload failed", "filename", img.Filename, "error", err)
			continue
		}
		uploads[img.Filename] = s.uploadsPath + "/" + name
	}
	return uploads
}

func (s *Service) putImage(ctx context.Context, name string, img ImageUpload) error {
	rc, err := img.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	contentType := storage.GuessContentType(img.Filename, img.ContentType)
	return s.images.PutStream(ctx, storage.UploadObjectPath(name), rc, img.Size, contentType)
}

func readCSV(csvPath string) ([]csvRow, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return parseCSV(f)
}

func parseCSV(r io.Reader) ([]csvRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing header row", ErrInvalidCSV)
	}

	columns := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := columns[h]; !dup && h != "" {
			columns[h] = i
		}
	}
	cell := func(record []string, name string) string {
		i, ok := columns[strings.ToLower(name)]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	rows := make([]csvRow, 0, len(records)-1)
	for n, record := range records[1:] {
		if isBlank(record) {
			continue
		}
		rows = append(rows, csvRow{
			Line:             n + 2,
			ID:               cell(record, "id"),
			Title:            cell(record, "title"),
			Artist:           cell(record, "artist"),
			Year:             cell(record, "year"),
			Description:      cell(record, "description"),
			Medium:           cell(record, "medium"),
			Culture:          cell(record, "culture"),
			Department:       cell(record, "department"),
			ImageURL:         cell(record, "imageUrl"),
			AdditionalImages: cell(record, "additionalImages"),
			Tags:             cell(record, "tags"),
			MuseumID:         cell(record, "museumId"),
		})
	}
	return rows, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
