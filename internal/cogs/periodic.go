package cogs

// AccountPeriodic computes the simple inventory-delta COGS figure:
// begin + purchases − end. The beginning value is the prior closed
// period's persisted ending value (zero for the first-ever period);
// the ending value is a live snapshot of current stock, not a
// point-in-time reconstruction. Only confirmed invoices count as
// purchases, dated by confirmation time falling back to invoice date,
// inclusive at both range ends.
func AccountPeriodic(prior *ReportingPeriod, invoices []Invoice, inventory []InventoryItem, req ReportRequest) PeriodicResult {
	var begin float64
	if prior != nil && prior.Status == PeriodStatusClosed && prior.EndingInventoryValue != nil {
		begin = *prior.EndingInventoryValue
	}

	var purchases float64
	for _, inv := range invoices {
		if inv.Status != InvoiceConfirmed {
			continue
		}
		at := inv.EffectiveDate()
		if at.Before(req.StartAt) || at.After(req.EndAt) {
			continue
		}
		purchases += inv.TotalAmount
	}

	var end float64
	for _, item := range inventory {
		if item.DeletedAt != nil {
			continue
		}
		end += item.CurrentStock * item.UnitCost
	}

	begin = round2(begin)
	purchases = round2(purchases)
	end = round2(end)
	return PeriodicResult{
		BeginInventoryValue: begin,
		PurchasesValue:      purchases,
		EndInventoryValue:   end,
		PeriodicCOGSValue:   round2(begin + purchases - end),
	}
}
