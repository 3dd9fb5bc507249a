package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inkforge/studio-fulfillment/internal/fulfillment"
	"github.com/inkforge/studio-fulfillment/internal/orders"
)

type stubFulfiller struct {
	rep *fulfillment.Report
	err error
}

func (s *stubFulfiller) Fulfill(_ context.Context, _ string) (*fulfillment.Report, error) {
	return s.rep, s.err
}

type stubStatusReader struct {
	status orders.Status
	err    error
}

func (s *stubStatusReader) GetStatus(_ context.Context, _ string) (orders.Status, error) {
	return s.status, s.err
}

func newTestServer(f Fulfiller, sr StatusReader) *httptest.Server {
	r := NewRouter()
	h := &FulfillmentHandler{Orchestrator: f, Orders: sr, Logger: zap.NewNop()}
	h.Register(r)
	return httptest.NewServer(r)
}

func TestFulfillEndpointReturnsReport(t *testing.T) {
	rep := &fulfillment.Report{
		OrderID:     "ord-1",
		Reference:   "ABC123",
		OrderStatus: orders.StatusProcessing,
		Ledger:      fulfillment.LedgerSection{Status: fulfillment.OutcomeCreated, EntryID: "entry-1"},
		Appointment: fulfillment.AppointmentSection{Status: fulfillment.OutcomeNothingToDo},
		Inventory:   fulfillment.InventorySection{Status: fulfillment.OutcomeNothingToDo},
	}
	srv := newTestServer(&stubFulfiller{rep: rep}, &stubStatusReader{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/orders/ord-1/fulfill", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Contains(t, body, "order_id")
	require.Contains(t, body, "financialTransaction")
	require.Contains(t, body, "appointment")
	require.Contains(t, body, "inventoryReservation")
}

func TestFulfillEndpointUnknownOrderIs404(t *testing.T) {
	srv := newTestServer(&stubFulfiller{err: orders.ErrNotFound}, &stubStatusReader{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/orders/missing/fulfill", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetOrderStatusFromRepo(t *testing.T) {
	srv := newTestServer(&stubFulfiller{}, &stubStatusReader{status: orders.StatusPending})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/orders/ord-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "pending", body["status"])
}

func TestGetOrderStatusUnknownOrderIs404(t *testing.T) {
	srv := newTestServer(&stubFulfiller{}, &stubStatusReader{err: orders.ErrNotFound})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/orders/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
