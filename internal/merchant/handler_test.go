package merchant

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/merchant_payouts/internal/ledger"
	"github.com/congo-pay/merchant_payouts/internal/logging"
	"github.com/congo-pay/merchant_payouts/internal/middleware"
	"github.com/congo-pay/merchant_payouts/pkg/dto"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	store := ledger.NewInMemory(ledger.DevelopmentAccount)
	ledger.Seed(store, ledger.Fixtures(time.Now(), dto.CurrencyGBP))

	h := NewHandler(store)
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(logging.Discard())})
	app.Get("/api/merchant", h.Merchant)
	app.Get("/api/merchant/activity", h.Activity)
	return app
}

func get(t *testing.T, app *fiber.App, path string, header map[string]string, out any) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			t.Fatalf("decode %s: %v", body, err)
		}
	}
	return resp.StatusCode
}

func TestMerchantReturnsBalances(t *testing.T) {
	app := newTestApp(t)

	var resp dto.MerchantResponse
	if status := get(t, app, "/api/merchant", nil, &resp); status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if resp.AvailableBalance != 500_000 || resp.PendingBalance != 25_000 || resp.Currency != dto.CurrencyGBP {
		t.Fatalf("unexpected balances %+v", resp)
	}
	if len(resp.Activity) != ledger.RecentActivityCount {
		t.Fatalf("expected %d embedded activities, got %d", ledger.RecentActivityCount, len(resp.Activity))
	}
}

func TestMerchantSimulatedError(t *testing.T) {
	app := newTestApp(t)
	var errResp dto.ErrorResponse
	status := get(t, app, "/api/merchant", map[string]string{simulateErrorHeader: "1"}, &errResp)
	if status != fiber.StatusInternalServerError || errResp.Error != "Internal Server Error" {
		t.Fatalf("expected simulated 500, got %d %+v", status, errResp)
	}
}

func TestActivityPagesAreDisjoint(t *testing.T) {
	app := newTestApp(t)

	var first dto.ActivityPage
	get(t, app, "/api/merchant/activity?limit=5", nil, &first)
	if len(first.Items) != 5 || !first.HasMore || first.NextCursor == nil {
		t.Fatalf("unexpected first page %+v", first)
	}

	var second dto.ActivityPage
	get(t, app, "/api/merchant/activity?limit=5&cursor="+*first.NextCursor, nil, &second)
	seen := map[string]bool{}
	for _, it := range first.Items {
		seen[it.ID] = true
	}
	for _, it := range second.Items {
		if seen[it.ID] {
			t.Fatalf("item %s appears on both pages", it.ID)
		}
	}
}

func TestMerchantWithCursorReturnsPage(t *testing.T) {
	app := newTestApp(t)
	var page dto.ActivityPage
	get(t, app, "/api/merchant?cursor=act_010&limit=3", nil, &page)
	if len(page.Items) != 3 || page.Items[0].ID != "act_011" {
		t.Fatalf("expected page after act_010, got %+v", page.Items)
	}
}

func TestActivityLastPageHasNoCursor(t *testing.T) {
	app := newTestApp(t)
	var page dto.ActivityPage
	get(t, app, "/api/merchant/activity?cursor=act_012&limit=15", nil, &page)
	if page.HasMore || page.NextCursor != nil || len(page.Items) != 3 {
		t.Fatalf("expected final page of 3 without cursor, got %+v", page)
	}
}
