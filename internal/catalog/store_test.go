package catalog

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/jewelry-catalog-scraper/internal/models"
)

// fakeDB runs fn without a real transaction and remembers the outcome.
type fakeDB struct {
	committed  bool
	rolledBack bool
	pingErr    error
}

func (f *fakeDB) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	if err := fn(nil); err != nil {
		f.rolledBack = true
		return err
	}
	f.committed = true
	return nil
}

func (f *fakeDB) Ping(ctx context.Context) error {
	return f.pingErr
}

type MockProducts struct {
	mock.Mock
}

func (m *MockProducts) LoadExisting(ctx context.Context, site string) ([]*models.ProductRecord, error) {
	args := m.Called(ctx, site)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ProductRecord), args.Error(1)
}

func (m *MockProducts) ApplyWithTx(ctx context.Context, tx pgx.Tx, mutations []models.Mutation) error {
	args := m.Called(ctx, tx, mutations)
	return args.Error(0)
}

type MockRuns struct {
	mock.Mock
}

func (m *MockRuns) InsertWithTx(ctx context.Context, tx pgx.Tx, run *models.ScrapeRun) error {
	args := m.Called(ctx, tx, run)
	if args.Error(0) == nil {
		run.ID = "8a3c3f3e-0b8e-4c57-8e0e-9d8a3b0a2f10"
	}
	return args.Error(0)
}

type MockEvents struct {
	mock.Mock
}

func (m *MockEvents) PublishWithTx(ctx context.Context, tx pgx.Tx, run *models.ScrapeRun, mutations []models.Mutation) (int, error) {
	args := m.Called(ctx, tx, run, mutations)
	return args.Int(0), args.Error(1)
}

func newRun() *models.ScrapeRun {
	return &models.ScrapeRun{
		SourceSite: "orra",
		RunDate:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		StartedAt:  time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		Status:     models.RunCompleted,
	}
}

func TestStore_Commit(t *testing.T) {
	ctx := context.Background()
	mutations := []models.Mutation{
		{Kind: models.MutationInsert, Record: &models.ProductRecord{SourceSite: "orra", URL: "https://www.orra.co.in/p/1"}},
	}

	t.Run("writes run, mutations and events together", func(t *testing.T) {
		db := &fakeDB{}
		products, runs, pub := new(MockProducts), new(MockRuns), new(MockEvents)
		store := New(db, products, runs, pub, slog.Default())
		run := newRun()

		runs.On("InsertWithTx", ctx, nil, run).Return(nil)
		products.On("ApplyWithTx", ctx, nil, mutations).Return(nil)
		pub.On("PublishWithTx", ctx, nil, mock.MatchedBy(func(r *models.ScrapeRun) bool {
			return r.ID != ""
		}), mutations).Return(1, nil)

		require.NoError(t, store.Commit(ctx, run, mutations))
		assert.True(t, db.committed)

		runs.AssertExpectations(t)
		products.AssertExpectations(t)
		pub.AssertExpectations(t)
	})

	tests := []struct {
		name  string
		setup func(*MockProducts, *MockRuns, *MockEvents)
	}{
		{
			name: "run insert fails",
			setup: func(p *MockProducts, r *MockRuns, e *MockEvents) {
				r.On("InsertWithTx", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("boom"))
			},
		},
		{
			name: "mutation batch fails",
			setup: func(p *MockProducts, r *MockRuns, e *MockEvents) {
				r.On("InsertWithTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
				p.On("ApplyWithTx", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("boom"))
			},
		},
		{
			name: "outbox write fails",
			setup: func(p *MockProducts, r *MockRuns, e *MockEvents) {
				r.On("InsertWithTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
				p.On("ApplyWithTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
				e.On("PublishWithTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(0, errors.New("boom"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &fakeDB{}
			products, runs, pub := new(MockProducts), new(MockRuns), new(MockEvents)
			tt.setup(products, runs, pub)
			store := New(db, products, runs, pub, slog.Default())

			err := store.Commit(ctx, newRun(), mutations)
			assert.ErrorContains(t, err, "orra")
			assert.ErrorContains(t, err, "boom")
			assert.True(t, db.rolledBack)
			assert.False(t, db.committed)
		})
	}
}

func TestStore_LoadAndPing(t *testing.T) {
	ctx := context.Background()
	products := new(MockProducts)
	db := &fakeDB{pingErr: errors.New("idle timeout")}
	store := New(db, products, new(MockRuns), new(MockEvents), slog.Default())

	existing := []*models.ProductRecord{{SourceSite: "orra", URL: "https://www.orra.co.in/p/1"}}
	products.On("LoadExisting", ctx, "orra").Return(existing, nil)

	got, err := store.LoadExisting(ctx, "orra")
	require.NoError(t, err)
	assert.Equal(t, existing, got)

	assert.EqualError(t, store.Ping(ctx), "idle timeout")
}
