package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/merchant_payouts/internal/logging"
	"github.com/congo-pay/merchant_payouts/pkg/dto"
)

func setupTestApp(t *testing.T) (*fiber.App, *int, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := logging.Discard()
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger)})
	app.Use(Idempotency(cache, time.Minute, logger))

	calls := 0
	app.Post("/resource", func(c *fiber.Ctx) error {
		calls++
		if strings.Contains(string(c.Body()), "fail") {
			return fiber.NewError(fiber.StatusServiceUnavailable, "Service temporarily unavailable")
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": calls})
	})

	cleanup := func() {
		cache.Close()
		mr.Close()
	}

	return app, &calls, cleanup
}

func post(t *testing.T, app *fiber.App, key, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/resource", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(payload)
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	app, _, cleanup := setupTestApp(t)
	defer cleanup()

	status, body := post(t, app, "", "{}")
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, status)
	}
	var decoded dto.ErrorResponse
	if err := json.Unmarshal([]byte(body), &decoded); err != nil || decoded.Error == "" {
		t.Fatalf("expected JSON error body, got %q", body)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, calls, cleanup := setupTestApp(t)
	defer cleanup()

	status, first := post(t, app, "abc123", `{"amount":100}`)
	if status != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, status)
	}

	status, second := post(t, app, "abc123", `{"amount":100}`)
	if status != fiber.StatusCreated {
		t.Fatalf("expected cached status %d got %d", fiber.StatusCreated, status)
	}
	if first != second {
		t.Fatalf("expected cached payload %s got %s", first, second)
	}
	if *calls != 1 {
		t.Fatalf("handler should run once, ran %d times", *calls)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	app, _, cleanup := setupTestApp(t)
	defer cleanup()

	if status, _ := post(t, app, "key-1", `{"amount":100}`); status != fiber.StatusCreated {
		t.Fatalf("first request failed with %d", status)
	}
	if status, _ := post(t, app, "key-1", `{"amount":200}`); status != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for mismatched body, got %d", status)
	}
}

func TestIdempotencyDoesNotStoreFailures(t *testing.T) {
	app, calls, cleanup := setupTestApp(t)
	defer cleanup()

	status, body := post(t, app, "key-2", `{"fail":true}`)
	if status != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", status)
	}
	if !strings.Contains(body, "Service temporarily unavailable") {
		t.Fatalf("unexpected body %s", body)
	}
	post(t, app, "key-2", `{"fail":true}`)
	if *calls != 2 {
		t.Fatalf("failed request should be retried, handler ran %d times", *calls)
	}
}
