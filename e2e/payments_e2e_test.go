//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"
)

// The suite expects a running service whose PAYAPP_API_URL points at the
// mock gateway below:
//
//	PAYAPP_API_URL=http://localhost:38085/oapi/apiLoad.html \
//	SQLITE_PATH=/tmp/kiosk-e2e.db ./kiosk-payments serve
const (
	defaultKioskHTTPBase = "http://localhost:48080"
	payappMockAddr       = "0.0.0.0:38085"
)

func kioskBaseURL() string {
	if value := strings.TrimSpace(os.Getenv("KIOSK_HTTP_BASE")); value != "" {
		return value
	}
	return defaultKioskHTTPBase
}

type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient(baseURL string) *httpClient {
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *httpClient) doJSON(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal failed: %v", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		t.Fatalf("build request failed: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response failed: %v", err)
	}
	return resp, data
}

func (c *httpClient) postForm(t *testing.T, path string, values url.Values) (*http.Response, []byte) {
	t.Helper()

	resp, err := c.client.Post(c.baseURL+path, "application/x-www-form-urlencoded", strings.NewReader(values.Encode()))
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response failed: %v", err)
	}
	return resp, data
}

// startPayAppMock serves the two PayApp commands the service issues. Every
// payrequest is accepted with a fresh transaction id.
func startPayAppMock(t *testing.T) {
	t.Helper()

	var counter int
	mux := http.NewServeMux()
	mux.HandleFunc("/oapi/apiLoad.html", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		switch r.Form.Get("cmd") {
		case "payrequest":
			counter++
			fmt.Fprintf(w, "state=1&mul_no=e2e-%d&payurl=%s", counter,
				url.QueryEscape("https://pay.example/e2e"))
		case "paycancel":
			fmt.Fprint(w, "state=1")
		default:
			fmt.Fprint(w, "state=0&errorMessage=unknown+cmd")
		}
	})

	srv := &http.Server{Addr: payappMockAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Errorf("payapp mock: %v", err)
		}
	}()
	t.Cleanup(func() { _ = srv.Close() })
	time.Sleep(100 * time.Millisecond)
}

func TestHealth(t *testing.T) {
	client := newHTTPClient(kioskBaseURL())

	resp, body := client.doJSON(t, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
}

func TestPaymentLifecycle(t *testing.T) {
	startPayAppMock(t)
	client := newHTTPClient(kioskBaseURL())

	// Create a payment; the service talks to the mock gateway.
	resp, body := client.doJSON(t, http.MethodPost, "/payments", map[string]any{
		"item_name":   "Phantom Chandelier",
		"amount":      40000,
		"payer_phone": "01012345678",
		"metadata": map[string]string{
			"name":              "Hong Gildong",
			"prop_id":           "3",
			"prop_name":         "Phantom Chandelier",
			"amount":            "40000",
			"privacy_agreement": "true",
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}

	var created struct {
		TransactionID string `json:"transaction_id"`
		PayURL        string `json:"pay_url"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.TransactionID == "" || created.PayURL == "" {
		t.Fatalf("incomplete create response: %s", body)
	}

	// Freshly created payment reads back pending.
	resp, body = client.doJSON(t, http.MethodGet, "/payments/"+created.TransactionID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if !bytes.Contains(body, []byte(`"status":"pending"`)) {
		t.Fatalf("expected pending payment, got %s", body)
	}

	// Replay the gateway feedback the way PayApp posts it.
	resp, body = client.postForm(t, "/payments/callback", url.Values{
		"mul_no":    {created.TransactionID},
		"pay_state": {"4"},
		"price":     {"40000"},
		"goodname":  {"Phantom Chandelier"},
	})
	if resp.StatusCode != http.StatusOK || string(body) != "SUCCESS" {
		t.Fatalf("expected 200 SUCCESS, got %d: %s", resp.StatusCode, body)
	}

	// A duplicate delivery gets the same answer.
	resp, body = client.postForm(t, "/payments/callback", url.Values{
		"mul_no":    {created.TransactionID},
		"pay_state": {"4"},
	})
	if resp.StatusCode != http.StatusOK || string(body) != "SUCCESS" {
		t.Fatalf("expected 200 SUCCESS on duplicate, got %d: %s", resp.StatusCode, body)
	}

	// The poller sees the terminal status and dispatches once.
	resp, body = client.doJSON(t, http.MethodPost, "/payments/"+created.TransactionID+"/wait", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var poll struct {
		Outcome string `json:"outcome"`
	}
	if err := json.Unmarshal(body, &poll); err != nil {
		t.Fatalf("decode poll response: %v", err)
	}
	if poll.Outcome != "completed" {
		t.Fatalf("expected completed, got %q", poll.Outcome)
	}

	// Manual check after completion reports the terminal status without
	// re-dispatching.
	resp, body = client.doJSON(t, http.MethodPost, "/payments/"+created.TransactionID+"/check", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var check struct {
		Outcome    string `json:"outcome"`
		Dispatched bool   `json:"dispatched"`
	}
	if err := json.Unmarshal(body, &check); err != nil {
		t.Fatalf("decode check response: %v", err)
	}
	if check.Outcome != "completed" || check.Dispatched {
		t.Fatalf("expected completed/dispatched=false, got %s", body)
	}

	// The booking created by dispatch is findable by the audience name.
	resp, body = client.doJSON(t, http.MethodGet, "/bookings?name=Hong+Gildong", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if !bytes.Contains(body, []byte(created.TransactionID)) {
		t.Fatalf("expected booking for %s, got %s", created.TransactionID, body)
	}
}

func TestCancelPendingPayment(t *testing.T) {
	startPayAppMock(t)
	client := newHTTPClient(kioskBaseURL())

	resp, body := client.doJSON(t, http.MethodPost, "/payments", map[string]any{
		"item_name":   "Cursed Violin",
		"amount":      20000,
		"payer_phone": "01098765432",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	var created struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	resp, body = client.doJSON(t, http.MethodPost, "/payments/"+created.TransactionID+"/cancel", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	resp, body = client.doJSON(t, http.MethodGet, "/payments/"+created.TransactionID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if !bytes.Contains(body, []byte(`"status":"failed"`)) {
		t.Fatalf("expected failed payment, got %s", body)
	}
}
