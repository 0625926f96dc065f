package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-service/internal/domain"
)

func TestCoverImage_EarliestImageWins(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Camera")
	for i := 0; i < 9; i++ {
		f.addMedia(t, p.ID, domain.MediaTypeVideo, "https://cdn.example.com/clip.mp4")
	}
	first := f.addMedia(t, p.ID, domain.MediaTypeImage, "https://cdn.example.com/10.jpg")
	second := f.addMedia(t, p.ID, domain.MediaTypeImage, "https://cdn.example.com/11.jpg")
	require.Equal(t, int64(10), first.ID)
	require.Equal(t, int64(11), second.ID)

	got, err := f.productSvc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/10.jpg", got.CoverImageURL)

	all, err := f.productSvc.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "https://cdn.example.com/10.jpg", all[0].CoverImageURL)
}

func TestCoverImage_CreatedAtBeatsID(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Tripod")
	start := f.clock

	f.clock = start.Add(10 * time.Minute)
	f.addMedia(t, p.ID, domain.MediaTypeImage, "later.jpg")
	f.clock = start
	f.addMedia(t, p.ID, domain.MediaTypeImage, "earlier.jpg")

	got, err := f.productSvc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "earlier.jpg", got.CoverImageURL)
}

func TestCoverImage_BatchResolvesEachProduct(t *testing.T) {
	f := newFixture(t)
	a := f.addProduct(t, "a")
	b := f.addProduct(t, "b")
	c := f.addProduct(t, "c")
	f.addMedia(t, b.ID, domain.MediaTypeImage, "b1.jpg")
	f.addMedia(t, a.ID, domain.MediaTypeImage, "a1.jpg")
	f.addMedia(t, a.ID, domain.MediaTypeImage, "a2.jpg")
	f.addMedia(t, c.ID, domain.MediaTypeVideo, "c.mp4")

	products := []domain.Product{a, b, c, {Name: "unsaved"}}
	f.covers.ResolveAll(context.Background(), products)

	assert.Equal(t, "a1.jpg", products[0].CoverImageURL)
	assert.Equal(t, "b1.jpg", products[1].CoverImageURL)
	assert.Empty(t, products[2].CoverImageURL)
	assert.Empty(t, products[3].CoverImageURL)
}

type failingLookup struct{}

func (failingLookup) FindFirstImage(context.Context, int64) (*domain.ProductMedia, error) {
	return nil, errors.New("media store down")
}

func (failingLookup) FirstImages(context.Context, []int64) (map[int64]domain.ProductMedia, error) {
	return nil, errors.New("media store down")
}

func TestCoverImage_LookupFailureLeavesURLEmpty(t *testing.T) {
	r := NewCoverImageResolver(failingLookup{})

	p := domain.Product{ID: 1, Name: "x"}
	r.Resolve(context.Background(), &p)
	assert.Empty(t, p.CoverImageURL)

	ps := []domain.Product{{ID: 1}, {ID: 2}}
	r.ResolveAll(context.Background(), ps)
	assert.Empty(t, ps[0].CoverImageURL)
	assert.Empty(t, ps[1].CoverImageURL)
}
