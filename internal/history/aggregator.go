// Package history turns the flat order-slot feed into the calendar view
// consumed by summary UIs.
package history

import "fieldorder/backend/internal/domain"

// Aggregate maps a date-ordered slot feed to date -> {AM, PM} plus per-date
// quantity badges. A recorded zero-quantity order stays in the day mapping;
// only days whose total quantity is zero are left out of the badge set.
// Aggregation is idempotent: the same feed always yields the same view.
func Aggregate(slots []domain.OrderSlot) domain.OrderHistoryResponse {
	days := make(map[string]domain.DayOrders, len(slots))
	badges := make(map[string]int, len(slots))

	for _, slot := range slots {
		day := days[slot.Date]
		view := toView(slot)
		switch slot.Shift {
		case domain.ShiftAM:
			day.AM = view
		case domain.ShiftPM:
			day.PM = view
		default:
			continue
		}
		days[slot.Date] = day
	}

	for date, day := range days {
		total := 0
		if day.AM != nil {
			total += day.AM.Quantity
		}
		if day.PM != nil {
			total += day.PM.Quantity
		}
		if total > 0 {
			badges[date] = total
		}
	}

	return domain.OrderHistoryResponse{Days: days, Badges: badges}
}

func toView(slot domain.OrderSlot) *domain.OrderSlotView {
	return &domain.OrderSlotView{
		CustomerID:  slot.CustomerID,
		Date:        slot.Date,
		Shift:       slot.Shift,
		Quantity:    slot.Quantity,
		TotalAmount: float64(slot.TotalCents) / 100,
		CreatedAt:   slot.CreatedAt,
		UpdatedAt:   slot.UpdatedAt,
	}
}
