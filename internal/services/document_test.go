package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"qualiflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDocumentFixture(t *testing.T) (*DocumentService, *models.Document, models.User) {
	t.Helper()
	db := newTestDB(t)
	svc := NewDocumentService(db, testLogger())
	user := seedUser(t, db, "uploader")
	branch := seedBranch(t, db, "HQ")

	doc, err := svc.CreateDocument(context.Background(), CreateDocumentInput{
		Title:       "Quality Manual",
		BranchID:    branch.ID,
		CreatedByID: user.ID,
		FileRef:     "blob-v1",
	})
	require.NoError(t, err)
	return svc, doc, user
}

func TestCreateDocumentStartsAtVersionOne(t *testing.T) {
	svc, doc, _ := newDocumentFixture(t)

	assert.Equal(t, uint(1), doc.CurrentVersion)

	got, err := svc.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, got.Versions, 1)
	assert.Equal(t, uint(1), got.Versions[0].Version)
	assert.Equal(t, "blob-v1", got.Versions[0].FileRef)
}

func TestAppendVersionSequential(t *testing.T) {
	svc, doc, user := newDocumentFixture(t)
	ctx := context.Background()

	const extra = 4
	for i := 0; i < extra; i++ {
		version, err := svc.AppendVersion(ctx, doc.ID, fmt.Sprintf("blob-v%d", i+2), "", user.ID)
		require.NoError(t, err)
		assert.Equal(t, uint(i+2), version.Version)
	}

	got, err := svc.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(extra+1), got.CurrentVersion)

	// versions come back descending and gapless: {N, N-1, ..., 1}
	require.Len(t, got.Versions, extra+1)
	for i, v := range got.Versions {
		assert.Equal(t, uint(extra+1-i), v.Version)
	}
}

func TestAppendVersionConcurrent(t *testing.T) {
	svc, doc, user := newDocumentFixture(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.AppendVersion(ctx, doc.ID, fmt.Sprintf("blob-c%d", n), "", user.ID)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	got, err := svc.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(workers+1), got.CurrentVersion)
	require.Len(t, got.Versions, workers+1)

	// no duplicates, no gaps
	seen := map[uint]bool{}
	for _, v := range got.Versions {
		assert.False(t, seen[v.Version], "version %d appeared twice", v.Version)
		seen[v.Version] = true
	}
	for want := uint(1); want <= workers+1; want++ {
		assert.True(t, seen[want], "version %d missing", want)
	}
}

func TestAppendVersionUnknownDocument(t *testing.T) {
	db := newTestDB(t)
	svc := NewDocumentService(db, testLogger())

	_, err := svc.AppendVersion(context.Background(), 999, "blob", "", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteDocumentCascadesVersions(t *testing.T) {
	svc, doc, user := newDocumentFixture(t)
	ctx := context.Background()

	_, err := svc.AppendVersion(ctx, doc.ID, "blob-v2", "", user.ID)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteDocument(ctx, doc.ID))

	_, err = svc.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var count int64
	require.NoError(t, svc.db.Model(&models.DocumentVersion{}).
		Where("document_id = ?", doc.ID).
		Count(&count).Error)
	assert.Zero(t, count)
}
