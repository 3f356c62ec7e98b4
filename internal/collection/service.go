// Package collection imports artworks from the Met catalog and CSV uploads,
// enriches them with model-generated keywords and serves paginated listings.
package collection

import (
	"context"
	"io"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"collections/internal/cache"
	"collections/internal/graphflow"
	"collections/internal/met"
)

const DefaultImportLimit = 80

type Catalog interface {
	SearchIDs(ctx context.Context, q string, departmentIDs []int) ([]int, error)
	FetchObjects(ctx context.Context, ids []int) met.FetchResult
	Departments(ctx context.Context) ([]met.Department, error)
}

type KeywordExtractor interface {
	Extract(ctx context.Context, input graphflow.KeywordInput) ([]string, error)
}

type ImageStore interface {
	PutStream(ctx context.Context, objectPath string, r io.Reader, size int64, contentType string) error
}

type Options struct {
	Catalog  Catalog
	Keywords KeywordExtractor
	AICache  *cache.TTL[string]
	Images   ImageStore
	// PublicBaseURL turns uploaded image paths into URLs the model can fetch.
	PublicBaseURL string
	// UploadsPath is the public path prefix under which uploaded images are served.
	UploadsPath string
	ImportLimit int
	Logger      *slog.Logger
}

type Service struct {
	repo          *Repository
	catalog       Catalog
	keywords      KeywordExtractor
	aiCache       *cache.TTL[string]
	images        ImageStore
	publicBaseURL string
	uploadsPath   string
	importLimit   int
	logger        *slog.Logger
	now           func() time.Time
}

func NewService(db *gorm.DB, opts Options) *Service {
	if opts.ImportLimit < 1 {
		opts.ImportLimit = DefaultImportLimit
	}
	if opts.AICache == nil {
		opts.AICache = cache.New[string](24*time.Hour, 10*time.Minute)
	}
	if opts.UploadsPath == "" {
		opts.UploadsPath = "/api/uploads"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		repo:          NewRepository(db),
		catalog:       opts.Catalog,
		keywords:      opts.Keywords,
		aiCache:       opts.AICache,
		images:        opts.Images,
		publicBaseURL: opts.PublicBaseURL,
		uploadsPath:   opts.UploadsPath,
		importLimit:   opts.ImportLimit,
		logger:        opts.Logger.With("component", "collection"),
		now:           time.Now,
	}
}

func (s *Service) Repository() *Repository {
	return s.repo
}

func (s *Service) Departments(ctx context.Context) ([]met.Department, error) {
	return s.catalog.Departments(ctx)
}
