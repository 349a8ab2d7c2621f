package entities

import (
	"management-web/internal/reconcile"
)

// StatusPending is the review state of freshly imported tickets.
const StatusPending = "pending"

func init() {
	register(Entity{
		Name:  "admin-tickets",
		Title: "Administrative tickets",
		Table: "admin_tickets",
		Specs: []reconcile.FieldSpec{
			{Name: "ticket_date", Label: "Date", Columns: []string{"ticket_date", "Date", "Ngày"}, Required: true, Coerce: reconcile.Date()},
			{Name: "ticket_type", Label: "Ticket type", Columns: []string{"ticket_type", "Ticket type", "Loại phiếu"}, Required: true, Coerce: reconcile.Text()},
			{Name: "ticket_code", Label: "Ticket code", Columns: []string{"ticket_code", "Ticket code", "Mã phiếu"}, Required: true, Coerce: reconcile.Text()},
			{Name: "shift", Label: "Shift", Columns: []string{"shift", "Shift", "Ca"}, Coerce: reconcile.Text()},
			{Name: "hours", Label: "Hours", Columns: []string{"hours", "Hours", "Số giờ"}, Coerce: reconcile.Number(reconcile.Min(0.01))},
			{Name: "reason", Label: "Reason", Columns: []string{"reason", "Reason", "Lý do"}, Required: true, Coerce: reconcile.Text()},
			{Name: "lunch", Label: "Lunch", Columns: []string{"lunch", "Lunch", "Cơm trưa"}, Coerce: reconcile.YesNo(false)},
			{Name: "transport", Label: "Transport", Columns: []string{"transport", "Transport", "Phương tiện"}, Coerce: reconcile.Text()},
			{Name: "status", Label: "Status", Columns: []string{"status", "Status", "Trạng thái"}, Coerce: reconcile.Text(), Default: StatusPending},
			{Name: "created_by", Label: "Created by", Columns: []string{"created_by", "Created by"}, Required: true, Coerce: reconcile.Text()},
		},
		KeyFields:  []string{"created_by", "ticket_date", "ticket_code", "shift"},
		CreateOnly: []string{"created_by", "status"},
		Validator: reconcile.Validators(
			reconcile.MaxLength("ticket_code", "Ticket code", 50),
			reconcile.Range("hours", "Hours", 0.01, 24),
		),
		Samples: []map[string]any{
			{"Date": "2025-01-06", "Ticket type": "Overtime", "Ticket code": "OT-01", "Shift": "Evening", "Hours": 2.5, "Reason": "Month end closing", "Lunch": "Không", "Transport": ""},
			{"Date": "2025-01-07", "Ticket type": "Leave", "Ticket code": "LV-01", "Shift": "Morning", "Hours": 4, "Reason": "Medical appointment", "Lunch": "Có", "Transport": "Motorbike"},
		},
	})
}
