package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareCountsRequests(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })
	app.Get("/boom", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusServiceUnavailable, "down") })

	before := testutil.ToFloat64(httpReqTotal.WithLabelValues("GET", "/ping", "200"))
	if _, err := app.Test(httptest.NewRequest("GET", "/ping", nil)); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if got := testutil.ToFloat64(httpReqTotal.WithLabelValues("GET", "/ping", "200")); got != before+1 {
		t.Fatalf("expected counter to increase by one, got %v -> %v", before, got)
	}

	if _, err := app.Test(httptest.NewRequest("GET", "/boom", nil)); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if got := testutil.ToFloat64(httpReqTotal.WithLabelValues("GET", "/boom", "503")); got < 1 {
		t.Fatalf("expected 503 to be recorded from the returned error")
	}
}

func TestPayoutCounters(t *testing.T) {
	before := testutil.ToFloat64(payoutsTotal.WithLabelValues("completed", "GBP"))
	PayoutCreated("completed", "GBP")
	if got := testutil.ToFloat64(payoutsTotal.WithLabelValues("completed", "GBP")); got != before+1 {
		t.Fatalf("payout counter not incremented")
	}
	PayoutRejected("insufficient_funds")
	if testutil.ToFloat64(payoutRejections.WithLabelValues("insufficient_funds")) < 1 {
		t.Fatalf("rejection counter not incremented")
	}
}
