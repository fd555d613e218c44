package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"vending-service/internal/change"
	"vending-service/internal/models"
	"vending-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	items map[int64]*models.Item
	coins map[models.Denomination]int
}

func (f *fakeStore) GetItemByID(_ context.Context, id int64) (*models.Item, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", models.ErrItemNotFound, id)
	}
	return item, nil
}

func (f *fakeStore) ListItems(_ context.Context, skip, take int) ([]models.Item, error) {
	items := make([]models.Item, 0, len(f.items))
	for _, item := range f.items {
		items = append(items, *item)
	}
	return items, nil
}

func (f *fakeStore) ListCoins(_ context.Context) ([]models.Coin, error) {
	coins := make([]models.Coin, 0, len(f.coins))
	for _, d := range models.Denominations {
		coins = append(coins, models.Coin{Value: d, Quantity: f.coins[d]})
	}
	return coins, nil
}

func (f *fakeStore) CompletePurchase(_ context.Context, itemID int64, inserted map[models.Denomination]int, changeDue int64) (change.Result, error) {
	for d, n := range inserted {
		f.coins[d] += n
	}
	f.items[itemID].Quantity--
	plan := change.Result{Coins: map[models.Denomination]int{}}
	if changeDue > 0 {
		plan = change.Plan(changeDue, f.coins)
		for d, n := range plan.Coins {
			f.coins[d] -= n
		}
	}
	return plan, nil
}

type fakeBuffer struct {
	coins map[models.Denomination]int
}

func (f *fakeBuffer) InsertCoin(_ context.Context, d models.Denomination) error {
	f.coins[d]++
	return nil
}

func (f *fakeBuffer) DrainCoins(_ context.Context) (map[models.Denomination]int, error) {
	drained := f.coins
	f.coins = make(map[models.Denomination]int)
	return drained, nil
}

type fakePublisher struct{}

func (fakePublisher) PublishOrderFulfilled(context.Context, *models.OrderFulfilledEvent) error {
	return nil
}
func (fakePublisher) PublishOrderRejected(context.Context, *models.OrderRejectedEvent) error {
	return nil
}
func (fakePublisher) PublishOrderCancelled(context.Context, *models.OrderCancelledEvent) error {
	return nil
}

func newTestRouter() (*gin.Engine, *fakeStore) {
	gin.SetMode(gin.TestMode)

	st := &fakeStore{
		items: map[int64]*models.Item{
			1: {ID: 1, Name: "Tea", Price: decimal.RequireFromString("1.3"), Quantity: 10},
		},
		coins: map[models.Denomination]int{
			models.OneEuro:    5,
			models.FiftyCent:  5,
			models.TwentyCent: 5,
			models.TenCent:    5,
		},
	}
	buf := &fakeBuffer{coins: make(map[models.Denomination]int)}
	svc := service.NewVendingService(st, buf, fakePublisher{})

	router := gin.New()
	NewHandler(svc).SetupRoutes(router)
	return router, st
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestInsertCoinEndpoint(t *testing.T) {
	router, _ := newTestRouter()

	w := postJSON(router, "/api/v1/coins/insert", InsertCoinRequest{Type: "OneEuro"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = postJSON(router, "/api/v1/coins/insert", InsertCoinRequest{Type: "TwoEuro"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(router, "/api/v1/coins/insert", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBuyOrderEndpoint(t *testing.T) {
	router, st := newTestRouter()

	for _, coin := range []string{"OneEuro", "TwentyCent", "TenCent"} {
		w := postJSON(router, "/api/v1/coins/insert", InsertCoinRequest{Type: coin})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := postJSON(router, "/api/v1/orders/buy", BuyOrderRequest{ItemID: 1})
	require.Equal(t, http.StatusOK, w.Code)

	var result models.OrderResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Succeeded)
	assert.Equal(t, models.NoteThankYou, result.Note)
	assert.Empty(t, result.ReturnedCoins)
	assert.Equal(t, 9, st.items[1].Quantity)
}

func TestBuyOrderRejectionIsStillOK(t *testing.T) {
	router, _ := newTestRouter()

	w := postJSON(router, "/api/v1/orders/buy", BuyOrderRequest{ItemID: 1})
	require.Equal(t, http.StatusOK, w.Code)

	var result models.OrderResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.False(t, result.Succeeded)
	assert.Equal(t, models.NoteNoCoinsInserted, result.Note)
}

func TestCancelOrderEndpoint(t *testing.T) {
	router, _ := newTestRouter()

	w := postJSON(router, "/api/v1/coins/insert", InsertCoinRequest{Type: "FiftyCent"})
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(router, "/api/v1/orders/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result models.CancelResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, map[string]int{"FiftyCent": 1}, result.Coins)
}

func TestGetCoinsEndpoint(t *testing.T) {
	router, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/coins", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var coins []CoinResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &coins))
	require.Len(t, coins, 4)
	assert.Equal(t, "OneEuro", coins[0].Type)
	assert.Equal(t, 5, coins[0].Quantity)
}

func TestGetItemsEndpoint(t *testing.T) {
	router, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items?skip=0&take=5", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var items []ItemResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Tea", items[0].Name)
	assert.InDelta(t, 1.3, items[0].Price, 1e-9)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/items?take=-1", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
