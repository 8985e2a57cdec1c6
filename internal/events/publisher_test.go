package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/jewelry-catalog-scraper/internal/database"
	"github.com/maltedev/jewelry-catalog-scraper/internal/models"
)

type MockOutbox struct {
	mock.Mock
}

func (m *MockOutbox) InsertWithTx(ctx context.Context, tx pgx.Tx, event *database.OutboxEvent) error {
	args := m.Called(ctx, tx, event)
	return args.Error(0)
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestPublisher(outbox OutboxWriter) *Publisher {
	p := NewPublisher(outbox, "", slog.Default())
	p.now = func() time.Time { return fixedNow }
	return p
}

func testRun() *models.ScrapeRun {
	return &models.ScrapeRun{
		ID:         "5f0c2a52-3c1e-4a4b-9a57-0f3c1f0d8a11",
		SourceSite: "senco",
		RunDate:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func bangle(url string) *models.ProductRecord {
	return &models.ProductRecord{
		SourceSite: "senco",
		Company:    "Senco",
		Name:       "Filigree Bangle",
		URL:        url,
		Category:   "Bangles",
		Price:      decimal.NewNullDecimal(decimal.RequireFromString("73250")),
		Currency:   models.StringPtr("INR"),
		Metal:      models.Metal{Type: models.MetalGold, Purity: models.IntPtr(22)},
		SeenCount:  1,
	}
}

func TestPublisher_Build(t *testing.T) {
	p := newTestPublisher(new(MockOutbox))

	mutations := []models.Mutation{
		{Kind: models.MutationInsert, Record: bangle("https://sencogoldanddiamonds.com/p/new")},
		{Kind: models.MutationReseen, Record: bangle("https://sencogoldanddiamonds.com/p/same"), PreviousFlag: models.FlagExisting},
		{Kind: models.MutationReseen, Record: bangle("https://sencogoldanddiamonds.com/p/back"), PreviousFlag: models.FlagDeleted},
		{Kind: models.MutationDelete, Record: bangle("https://sencogoldanddiamonds.com/p/gone"), PreviousFlag: models.FlagNew},
	}

	events, err := p.Build(testRun(), mutations)
	require.NoError(t, err)
	require.Len(t, events, 3)

	tests := []struct {
		eventType   EventType
		aggregateID string
	}{
		{EventProductDiscovered, "senco|https://sencogoldanddiamonds.com/p/new"},
		{EventProductRelisted, "senco|https://sencogoldanddiamonds.com/p/back"},
		{EventProductDelisted, "senco|https://sencogoldanddiamonds.com/p/gone"},
	}
	for i, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			assert.Equal(t, string(tt.eventType), events[i].EventType)
			assert.Equal(t, tt.aggregateID, events[i].AggregateID)
			assert.Equal(t, "product", events[i].AggregateType)
			assert.Equal(t, database.DefaultStream, events[i].TargetStream)
		})
	}
}

func TestPublisher_Payload(t *testing.T) {
	p := newTestPublisher(new(MockOutbox))

	rec := bangle("https://sencogoldanddiamonds.com/p/new")
	events, err := p.Build(testRun(), []models.Mutation{{Kind: models.MutationInsert, Record: rec}})
	require.NoError(t, err)
	require.Len(t, events, 1)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))

	assert.NotEmpty(t, payload["event_id"])
	assert.Equal(t, "PRODUCT_DISCOVERED", payload["event_type"])
	assert.Equal(t, "5f0c2a52-3c1e-4a4b-9a57-0f3c1f0d8a11", payload["run_id"])
	assert.Equal(t, "2024-03-01", payload["run_date"])
	assert.Equal(t, "Filigree Bangle", payload["name"])
	assert.Equal(t, "73250", payload["price"])
	assert.Equal(t, "INR", payload["currency"])
	assert.Equal(t, "Gold", payload["metal_type"])
	assert.EqualValues(t, 22, payload["purity"])
	assert.Equal(t, "scraper", payload["source"])

	t.Run("null price is omitted", func(t *testing.T) {
		rec := bangle("https://sencogoldanddiamonds.com/p/noprice")
		rec.Price = decimal.NullDecimal{}
		events, err := p.Build(testRun(), []models.Mutation{{Kind: models.MutationInsert, Record: rec}})
		require.NoError(t, err)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
		assert.NotContains(t, payload, "price")
	})
}

func TestPublisher_PublishWithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("writes every event", func(t *testing.T) {
		outbox := new(MockOutbox)
		p := newTestPublisher(outbox)

		outbox.On("InsertWithTx", ctx, mock.Anything, mock.AnythingOfType("*database.OutboxEvent")).Return(nil).Twice()

		n, err := p.PublishWithTx(ctx, nil, testRun(), []models.Mutation{
			{Kind: models.MutationInsert, Record: bangle("https://sencogoldanddiamonds.com/p/1")},
			{Kind: models.MutationDelete, Record: bangle("https://sencogoldanddiamonds.com/p/2")},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		outbox.AssertExpectations(t)
	})

	t.Run("nothing to publish", func(t *testing.T) {
		outbox := new(MockOutbox)
		p := newTestPublisher(outbox)

		n, err := p.PublishWithTx(ctx, nil, testRun(), []models.Mutation{
			{Kind: models.MutationReseen, Record: bangle("https://sencogoldanddiamonds.com/p/1"), PreviousFlag: models.FlagNew},
		})
		require.NoError(t, err)
		assert.Zero(t, n)
		outbox.AssertNotCalled(t, "InsertWithTx", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("insert failure aborts", func(t *testing.T) {
		outbox := new(MockOutbox)
		p := newTestPublisher(outbox)

		outbox.On("InsertWithTx", ctx, mock.Anything, mock.Anything).Return(errors.New("constraint"))

		_, err := p.PublishWithTx(ctx, nil, testRun(), []models.Mutation{
			{Kind: models.MutationInsert, Record: bangle("https://sencogoldanddiamonds.com/p/1")},
		})
		assert.ErrorContains(t, err, "PRODUCT_DISCOVERED")
	})
}
