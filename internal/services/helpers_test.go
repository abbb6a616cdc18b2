package services

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/diewo77/bon-livraison/internal/models"
	"github.com/sirupsen/logrus"
)

// newTestService returns a service with a fixed clock advancing one minute
// per call and sequential ids.
func newTestService(t *testing.T) *InvoiceService {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	tr := NewTracker("tester", log)
	clock := time.Date(2025, 1, 18, 9, 0, 0, 0, time.UTC)
	tr.Now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	n := 0
	tr.NewID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return NewInvoiceService(tr, log)
}

func sampleInvoice(s *InvoiceService) models.Invoice {
	return s.NewInvoice(NewInvoiceParams{
		Number:    "BLH2504637",
		Date:      "2025-01-18",
		Reference: "Bon de livraison",
		Vendor:    "A",
		Client:    models.ClientInfo{ID: "c1", Code: "CL02169", Name: "STI THERMIQUE"},
		Items: []models.InvoiceItem{
			{Reference: "CBS1V1.5", Designation: "CABLE SV1V 5*1.5", Quantity: 300, Unit: "M", UnitPrice: 10.9, TvaRate: 20},
			{Reference: "CBS1V1.5", Designation: "CABLE SV1V 2*1.5", Quantity: 200, Unit: "M", UnitPrice: 4.4, TvaRate: 20},
		},
	})
}
