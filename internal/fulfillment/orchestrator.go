package fulfillment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/inkforge/studio-fulfillment/internal/appointments"
	"github.com/inkforge/studio-fulfillment/internal/inventory"
	kafkax "github.com/inkforge/studio-fulfillment/internal/kafka"
	"github.com/inkforge/studio-fulfillment/internal/ledger"
	"github.com/inkforge/studio-fulfillment/internal/orders"
)

const DefaultProducerTimeout = 10 * time.Second

type OrderStore interface {
	LoadAggregate(ctx context.Context, orderID string) (*orders.Aggregate, error)
	UpdateStatus(ctx context.Context, orderID string, from, to orders.Status) (bool, error)
}

type LedgerProducer interface {
	Record(ctx context.Context, agg *orders.Aggregate) (ledger.Result, error)
}

type AppointmentProducer interface {
	Schedule(ctx context.Context, agg *orders.Aggregate) (appointments.Result, error)
}

type InventoryProducer interface {
	Reserve(ctx context.Context, agg *orders.Aggregate) (inventory.Result, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Policy names the knobs the source behavior left implicit.
type Policy struct {
	// RequireStock makes a fully reserved inventory outcome part of
	// the pending->processing gate. Off by default: the observed
	// behavior only gates on ledger and appointment.
	RequireStock bool

	// ProducerTimeout bounds each producer independently. A timed-out
	// producer is reported failed; the other two are left running.
	ProducerTimeout time.Duration
}

// Orchestrator runs one fulfillment pass for an order: load the
// aggregate once, run the three producers concurrently, report every
// outcome, and apply the status transition rule.
type Orchestrator struct {
	Orders       OrderStore
	Ledger       LedgerProducer
	Appointments AppointmentProducer
	Inventory    InventoryProducer

	Cache     ReportCache // optional replay guard keyed by order reference
	Completed Publisher   // optional, order.fulfillment.completed
	Short     Publisher   // optional, order.stock.insufficient

	Policy  Policy
	Service string
	Logger  *zap.Logger
}

// Fulfill returns an error only when the aggregate cannot be loaded;
// every producer failure is captured inside the report instead.
func (o *Orchestrator) Fulfill(ctx context.Context, orderID string) (*Report, error) {
	log := o.logger()

	agg, err := o.Orders.LoadAggregate(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if o.Cache != nil {
		if rep, ok := o.Cache.Get(ctx, agg.Order.Reference); ok {
			rep.Replayed = true
			log.Info("fulfillment replayed",
				zap.String("order_id", agg.Order.ID),
				zap.String("reference", agg.Order.Reference))
			return rep, nil
		}
	}

	rep := &Report{
		OrderID:     agg.Order.ID,
		Reference:   agg.Order.Reference,
		OrderStatus: agg.Order.Status,
	}

	// Wait for all, fail none: each producer gets its own deadline and
	// writes its own section; no producer can abort the others.
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		pctx, cancel := o.producerCtx(ctx)
		defer cancel()
		rep.Ledger = o.runLedger(pctx, agg)
	}()
	go func() {
		defer wg.Done()
		pctx, cancel := o.producerCtx(ctx)
		defer cancel()
		rep.Appointment = o.runAppointment(pctx, agg)
	}()
	go func() {
		defer wg.Done()
		pctx, cancel := o.producerCtx(ctx)
		defer cancel()
		rep.Inventory = o.runInventory(pctx, agg)
	}()
	wg.Wait()

	gate := rep.ledgerOK() && rep.appointmentOK()
	if o.Policy.RequireStock {
		gate = gate && rep.inventoryOK()
	}
	if gate && agg.Order.Status == orders.StatusPending {
		updated, err := o.Orders.UpdateStatus(ctx, agg.Order.ID, orders.StatusPending, orders.StatusProcessing)
		if err != nil {
			log.Error("order status update failed",
				zap.String("order_id", agg.Order.ID), zap.Error(err))
		} else if updated {
			rep.StatusUpdated = true
			rep.OrderStatus = orders.StatusProcessing
		}
	}

	o.publish(rep)
	// Cache only once the transition outcome is settled: a report
	// stored while the order is still pending would short-circuit the
	// retry that has to finish the status update.
	settled := rep.StatusUpdated || agg.Order.Status != orders.StatusPending
	if o.Cache != nil && rep.ledgerOK() && rep.appointmentOK() && settled {
		o.Cache.Put(ctx, rep)
	}

	log.Info("fulfillment finished",
		zap.String("order_id", agg.Order.ID),
		zap.String("reference", agg.Order.Reference),
		zap.String("ledger", rep.Ledger.Status),
		zap.String("appointment", rep.Appointment.Status),
		zap.String("inventory", rep.Inventory.Status),
		zap.Bool("status_updated", rep.StatusUpdated))
	return rep, nil
}

func (o *Orchestrator) runLedger(ctx context.Context, agg *orders.Aggregate) LedgerSection {
	res, err := o.Ledger.Record(ctx, agg)
	if err != nil {
		o.logger().Warn("ledger producer failed",
			zap.String("order_id", agg.Order.ID), zap.Error(err))
		return LedgerSection{Status: OutcomeFailed, Error: err.Error()}
	}
	return LedgerSection{Status: OutcomeCreated, EntryID: res.EntryID, Replayed: res.Replayed}
}

func (o *Orchestrator) runAppointment(ctx context.Context, agg *orders.Aggregate) AppointmentSection {
	res, err := o.Appointments.Schedule(ctx, agg)
	if err != nil {
		o.logger().Warn("appointment producer failed",
			zap.String("order_id", agg.Order.ID), zap.Error(err))
		return AppointmentSection{Status: OutcomeFailed, Error: err.Error()}
	}
	if res.NothingToDo {
		return AppointmentSection{Status: OutcomeNothingToDo}
	}
	start, end := res.StartTime, res.EndTime
	return AppointmentSection{
		Status:          OutcomeCreated,
		AppointmentID:   res.AppointmentID,
		ArtistID:        res.ArtistID,
		StartTime:       &start,
		EndTime:         &end,
		DurationMinutes: res.DurationMinutes,
		Replayed:        res.Replayed,
	}
}

func (o *Orchestrator) runInventory(ctx context.Context, agg *orders.Aggregate) InventorySection {
	res, err := o.Inventory.Reserve(ctx, agg)
	if err != nil {
		o.logger().Warn("inventory producer failed",
			zap.String("order_id", agg.Order.ID), zap.Error(err))
		return InventorySection{Status: OutcomeFailed, Error: err.Error()}
	}
	if res.NothingToDo {
		return InventorySection{Status: OutcomeNothingToDo}
	}

	var sec InventorySection
	for _, it := range res.Items {
		ir := ItemReport{
			InventoryItemID: it.InventoryItemID,
			Name:            it.Name,
			Status:          string(it.Status),
			Requested:       it.Requested,
		}
		switch it.Status {
		case inventory.ItemReserved:
			rem := it.Remaining
			ir.Remaining = &rem
		case inventory.ItemInsufficient:
			avail := it.Available
			ir.Available = &avail
		case inventory.ItemFailed:
			if it.Err != nil {
				ir.Error = it.Err.Error()
			}
		}
		sec.Items = append(sec.Items, ir)
	}
	switch {
	case res.AllReserved():
		sec.Status = OutcomeReserved
	case len(res.ShortItems()) > 0:
		sec.Status = OutcomeInsufficientStock
	default:
		sec.Status = OutcomeFailed
	}
	return sec
}

func (o *Orchestrator) publish(rep *Report) {
	if o.Completed != nil {
		env := orders.Envelope{
			EventID:       uuid.NewString(),
			EventType:     orders.EventFulfillmentCompleted,
			EventVersion:  1,
			OccurredAt:    time.Now().UTC(),
			Producer:      o.Service,
			CorrelationID: rep.OrderID,
			Payload:       kafkax.MustMarshal(rep),
		}
		o.Completed.Publish(orders.PartitionKey(rep.OrderID), kafkax.MustMarshal(env),
			kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventFulfillmentCompleted)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}

	if o.Short == nil {
		return
	}
	var details []orders.StockShortDetail
	for _, it := range rep.Inventory.shortItems() {
		d := orders.StockShortDetail{InventoryItemID: it.InventoryItemID, Requested: it.Requested.String()}
		if it.Available != nil {
			d.Available = it.Available.String()
		}
		details = append(details, d)
	}
	if len(details) == 0 {
		return
	}
	env := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventStockInsufficient,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      o.Service,
		CorrelationID: rep.OrderID,
		Payload: kafkax.MustMarshal(orders.StockInsufficientPayload{
			OrderID: rep.OrderID, Reference: rep.Reference, Reason: "OUT_OF_STOCK", Details: details,
		}),
	}
	o.Short.Publish(orders.PartitionKey(rep.OrderID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventStockInsufficient)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (o *Orchestrator) producerCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	t := o.Policy.ProducerTimeout
	if t <= 0 {
		t = DefaultProducerTimeout
	}
	return context.WithTimeout(ctx, t)
}

func (o *Orchestrator) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}
