package collection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"collections/internal/cache"
	"collections/internal/db"
	"collections/internal/graphflow"
	"collections/internal/met"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Open(sqlite.Open(":memory:"))
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// each connection to :memory: is its own database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return gdb
}

// fakeClock hands out strictly increasing instants.
type fakeClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{cur: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

type fakeCatalog struct {
	ids       []int
	searchErr error
	objects   map[int]met.Object
	fetched   [][]int
	depts     []met.Department
}

func (f *fakeCatalog) SearchIDs(_ context.Context, _ string, _ []int) ([]int, error) {
	return f.ids, f.searchErr
}

func (f *fakeCatalog) FetchObjects(_ context.Context, ids []int) met.FetchResult {
	f.fetched = append(f.fetched, ids)
	var res met.FetchResult
	for _, id := range ids {
		obj, ok := f.objects[id]
		if !ok {
			res.Failed++
			continue
		}
		res.Objects = append(res.Objects, obj)
	}
	return res
}

func (f *fakeCatalog) Departments(_ context.Context) ([]met.Department, error) {
	return f.depts, nil
}

type fakeExtractor struct {
	calls    atomic.Int32
	keywords []string
	err      error
	inputs   []graphflow.KeywordInput
	mu       sync.Mutex
}

func (f *fakeExtractor) Extract(_ context.Context, input graphflow.KeywordInput) ([]string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.inputs = append(f.inputs, input)
	f.mu.Unlock()
	return f.keywords, f.err
}

type fakeImageStore struct {
	objects map[string][]byte
	failFor string
}

func (f *fakeImageStore) PutStream(_ context.Context, objectPath string, r io.Reader, _ int64, _ string) error {
	if f.failFor != "" && strings.HasSuffix(objectPath, f.failFor) {
		return errors.New("bucket unavailable")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[objectPath] = data
	return nil
}

type testEnv struct {
	svc       *Service
	catalog   *fakeCatalog
	extractor *fakeExtractor
	images    *fakeImageStore
	aiCache   *cache.TTL[string]
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		catalog:   &fakeCatalog{objects: map[int]met.Object{}},
		extractor: &fakeExtractor{keywords: []string{"oil", "landscape"}},
		images:    &fakeImageStore{},
		aiCache:   cache.New[string](time.Hour, time.Hour),
	}
	env.svc = NewService(newTestDB(t), Options{
		Catalog:       env.catalog,
		Keywords:      env.extractor,
		AICache:       env.aiCache,
		Images:        env.images,
		PublicBaseURL: "https://collections.example.org",
	})
	clock := newFakeClock()
	env.svc.now = clock.Now
	env.svc.repo.now = clock.Now
	return env
}

func metObject(id int, publicDomain bool, image string) met.Object {
	begin := 1850 + id
	return met.Object{
		ObjectID:          id,
		Title:             fmt.Sprintf("Study %d", id),
		ArtistDisplayName: "Unknown",
		ObjectDate:        "ca. 1850",
		ObjectBeginDate:   &begin,
		Medium:            "Oil on canvas",
		PrimaryImage:      image,
		IsPublicDomain:    publicDomain,
		Raw:               []byte(fmt.Sprintf(`{"objectID":%d,"isPublicDomain":%t}`, id, publicDomain)),
	}
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(newTestDB(t), Options{})
	require.Equal(t, DefaultImportLimit, svc.importLimit)
	require.Equal(t, "/api/uploads", svc.uploadsPath)
	require.NotNil(t, svc.aiCache)
	require.NotNil(t, svc.logger)
}

func TestDepartments_DelegatesToCatalog(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.depts = []met.Department{{DepartmentID: 11, DisplayName: "European Paintings"}}

	got, err := env.svc.Departments(context.Background())
	require.NoError(t, err)
	require.Equal(t, env.catalog.depts, got)
}
