package analytics

import (
	"context"

	"ms-ticketshop/internal/utils"
)

const reportTimeZone = "Europe/Warsaw"

// DBLayer is what the reports read from
type DBLayer interface {
	GetOrderTotalsByStatus(ctx context.Context) ([]StatusTotals, error)
	GetPaidOrders(ctx context.Context) ([]PaidOrder, error)
	GetTicketTotalsByType(ctx context.Context) ([]TypeTotals, error)
	GetScanTotalsByCheckpoint(ctx context.Context) ([]CheckpointTotals, error)
	CountScannedTickets(ctx context.Context) (int, error)
}

// Service handles analytics operations
type Service struct {
	db DBLayer
}

// NewService creates a new analytics service
func NewService(db DBLayer) *Service {
	return &Service{db: db}
}

// DailySalesMetrics contains paid sales for one Warsaw calendar day
type DailySalesMetrics struct {
	Date        string `json:"date"`
	Revenue     int64  `json:"revenue"`
	Orders      int    `json:"orders"`
	TicketsSold int    `json:"ticketsSold"`
}

// SalesReport is the organiser's view of the shop. Amounts are in grosze.
type SalesReport struct {
	OrdersByStatus []StatusTotals      `json:"ordersByStatus"`
	PaidOrders     int                 `json:"paidOrders"`
	PaidRevenue    int64               `json:"paidRevenue"`
	PromoOrders    int                 `json:"promoOrders"`
	TicketsSold    int                 `json:"ticketsSold"`
	TicketsIssued  []TypeTotals        `json:"ticketsIssued"`
	DailySales     []DailySalesMetrics `json:"dailySales"`
}

// ScanReport summarises gate traffic
type ScanReport struct {
	Checkpoints    []CheckpointTotals `json:"checkpoints"`
	TotalScans     int                `json:"totalScans"`
	TicketsScanned int                `json:"ticketsScanned"`
}

// GetSalesReport aggregates orders, revenue and issued tickets
func (s *Service) GetSalesReport(ctx context.Context) (*SalesReport, error) {
	byStatus, err := s.db.GetOrderTotalsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	paid, err := s.db.GetPaidOrders(ctx)
	if err != nil {
		return nil, err
	}
	byType, err := s.db.GetTicketTotalsByType(ctx)
	if err != nil {
		return nil, err
	}

	report := &SalesReport{
		OrdersByStatus: nonNil(byStatus),
		TicketsIssued:  nonNil(byType),
		DailySales:     []DailySalesMetrics{},
	}

	// paid is ordered by created_at, so days come out in order
	dayIndex := map[string]int{}
	for _, o := range paid {
		report.PaidOrders++
		report.PaidRevenue += o.TotalAmount
		report.TicketsSold += o.Quantity
		if o.PromoApplied {
			report.PromoOrders++
		}

		day := utils.FormatInZone(o.CreatedAt, reportTimeZone, "2006-01-02")
		i, ok := dayIndex[day]
		if !ok {
			i = len(report.DailySales)
			dayIndex[day] = i
			report.DailySales = append(report.DailySales, DailySalesMetrics{Date: day})
		}
		report.DailySales[i].Revenue += o.TotalAmount
		report.DailySales[i].Orders++
		report.DailySales[i].TicketsSold += o.Quantity
	}

	return report, nil
}

// GetScanReport aggregates the scan log per checkpoint
func (s *Service) GetScanReport(ctx context.Context) (*ScanReport, error) {
	checkpoints, err := s.db.GetScanTotalsByCheckpoint(ctx)
	if err != nil {
		return nil, err
	}
	scanned, err := s.db.CountScannedTickets(ctx)
	if err != nil {
		return nil, err
	}

	report := &ScanReport{Checkpoints: nonNil(checkpoints), TicketsScanned: scanned}
	for _, c := range checkpoints {
		report.TotalScans += c.Scans
	}
	return report, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
