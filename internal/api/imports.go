package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"collections/internal/collection"
)

// departmentIDs accepts ids sent either as numbers or as numeric strings.
type departmentIDs []int

func (d *departmentIDs) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]int, 0, len(raw))
	for _, v := range raw {
		var n int
		if err := json.Unmarshal(v, &n); err == nil {
			out = append(out, n)
			continue
		}
		var str string
		if err := json.Unmarshal(v, &str); err != nil {
			return fmt.Errorf("department id %s: not a number", v)
		}
		n, err := strconv.Atoi(strings.TrimSpace(str))
		if err != nil {
			return fmt.Errorf("department id %q: not a number", str)
		}
		out = append(out, n)
	}
	*d = out
	return nil
}

type MetImportRequest struct {
	SearchTerm    string        `json:"searchTerm"`
	DepartmentIDs departmentIDs `json:"departmentIds"`
}

func (s *Server) importMet(c *gin.Context) {
	var req MetImportRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "message": err.Error()})
		return
	}

	result, err := s.Collections.ImportFromMet(c.Request.Context(), collection.MetImportRequest{
		SearchTerm:    req.SearchTerm,
		DepartmentIDs: req.DepartmentIDs,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "met import failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) importCSV(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		fh, err = c.FormFile("csv")
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "csv file required"})
		return
	}

	tmp, err := os.CreateTemp(s.TempDir, "import-*.csv")
	if err != nil {
		s.logger().Error("create temp csv failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store upload failed"})
		return
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	if err := c.SaveUploadedFile(fh, tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		s.logger().Error("save csv upload failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store upload failed"})
		return
	}

	var images []collection.ImageUpload
	if form, err := c.MultipartForm(); err == nil {
		images = imageUploads(form.File["images"])
	}

	result, err := s.Collections.ImportFromCSV(c.Request.Context(), tmpPath, images)
	if err != nil {
		if errors.Is(err, collection.ErrInvalidCSV) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid csv", "message": err.Error()})
			return
		}
		s.logger().Error("csv import failed", "filename", fh.Filename, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "csv import failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func imageUploads(files []*multipart.FileHeader) []collection.ImageUpload {
	out := make([]collection.ImageUpload, 0, len(files))
	for _, fh := range files {
		out = append(out, collection.ImageUpload{
			Filename:    fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return out
}
