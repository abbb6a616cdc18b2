package db

import (
	"context"
	"errors"

	"github.com/diewo77/bon-livraison/internal/models"
	"github.com/diewo77/bon-livraison/internal/services"
)

// DefaultCompany is the issuing company installed on a fresh database.
func DefaultCompany() models.CompanyInfo {
	return models.CompanyInfo{
		Name:       "FATH AL MASSAR",
		Address:    "LOT 970 ROUTE DE SAFI | LOTISSEMENT AL MASSAR",
		Phone:      "05 24 20 54 00, 06 62 40 78 46 / 06 62 42 40 34",
		Fax:        "05 24 20 54 30",
		ICE:        "002914784000038",
		RC:         "121283 - I.F 50668141",
		ColorTheme: models.DefaultColorTheme,
		FontSize:   14,
	}
}

// DefaultInvoice is the delivery note installed on a fresh database.
func DefaultInvoice(svc *services.InvoiceService) models.Invoice {
	return svc.NewInvoice(services.NewInvoiceParams{
		Number:    "BLH2504637",
		Date:      "2025-01-18",
		Reference: "Bon de livraison",
		Vendor:    "LOUBNA",
		Client:    models.ClientInfo{ID: "1", Code: "CL02169", Name: "STI THERMIQUE"},
		Currency:  models.DefaultCurrency,
		TvaMode:   models.TvaModeExclusive,
		Items: []models.InvoiceItem{
			{Reference: "CBS1V1.5", Designation: "CABLE SV1V 5*1.5 ING-NEX", Quantity: 300, Unit: "M", UnitPrice: 10.9, TvaRate: 20},
			{Reference: "CBS1V1.5", Designation: "CABLE SV1V 2*1.5 ING-NEX", Quantity: 200, Unit: "M", UnitPrice: 4.4, TvaRate: 20},
			{Reference: "CBS1V2.5", Designation: "CABLE SV1V 2*2.5 ING-NEX", Quantity: 100, Unit: "M", UnitPrice: 7.35, TvaRate: 20},
			{Reference: "DVS1920", Designation: "SCOTCH GM 19*20 SIGMA/ORBUS/20YDS", Quantity: 40, Unit: "U", UnitPrice: 4.8, TvaRate: 20},
			{Reference: "JN1634/04N", Designation: "COLLIER COLSON 7,6*340 NOIR 1634/04N", Quantity: 500, Unit: "U", UnitPrice: 0.63, TvaRate: 20},
			{Reference: "JN1626/04N", Designation: "COLLIER COLSON 7,6*265 NOIR 1626/04N", Quantity: 3, Unit: "U", UnitPrice: 0.27, TvaRate: 20},
		},
	})
}

// Seed installs the default company, delivery note and empty client and
// archive lists. Records that already exist are left alone.
func Seed(ctx context.Context, s *Store, svc *services.InvoiceService) error {
	seeds := []struct {
		key   string
		value func() any
	}{
		{KeyCompany, func() any { return DefaultCompany() }},
		{KeyClients, func() any { return []models.ClientInfo{} }},
		{KeyInvoices, func() any { return []models.Invoice{} }},
	}
	for _, sd := range seeds {
		var existing any
		_, err := s.Get(ctx, sd.key, &existing)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := s.Put(ctx, sd.key, sd.value()); err != nil {
			return err
		}
	}

	var existing models.Invoice
	if _, err := s.Get(ctx, KeyInvoice, &existing); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	inv := DefaultInvoice(svc)
	if err := s.SaveInvoice(ctx, inv, 0); err != nil {
		return err
	}
	s.log.WithField("number", inv.Number).Info("seeded default delivery note")
	return nil
}
