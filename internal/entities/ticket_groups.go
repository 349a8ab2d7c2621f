package entities

import (
	"management-web/internal/reconcile"
)

func init() {
	register(Entity{
		Name:  "ticket-groups",
		Title: "Ticket groups",
		Table: "ticket_groups",
		Specs: []reconcile.FieldSpec{
			{Name: "ticket_type", Label: "Ticket type", Columns: []string{"ticket_type", "Ticket type", "Loại phiếu"}, Required: true, Coerce: reconcile.Text()},
			{Name: "group_code", Label: "Group code", Columns: []string{"group_code", "Group code", "Mã nhóm phiếu"}, Required: true, Coerce: reconcile.Text()},
			{Name: "group_name", Label: "Group name", Columns: []string{"group_name", "Group name", "Tên nhóm phiếu"}, Required: true, Coerce: reconcile.Text()},
			{Name: "monthly_quota", Label: "Monthly quota", Columns: []string{"monthly_quota", "Monthly quota", "Số lượng cho phép tháng"}, Coerce: reconcile.Number(reconcile.NonNegative(), reconcile.Integer())},
			{Name: "requires_hr_approval", Label: "Requires HR approval", Columns: []string{"requires_hr_approval", "Requires HR approval", "Cần HCNS duyệt"}, Coerce: reconcile.YesNo(false)},
			{Name: "night_shift", Label: "Night shift", Columns: []string{"night_shift", "Night shift", "Ca tối"}, Coerce: reconcile.YesNo(true)},
			{Name: "created_by", Label: "Created by", Columns: []string{"created_by", "Created by"}, Coerce: reconcile.Text()},
		},
		KeyFields:  []string{"group_code"},
		CreateOnly: []string{"created_by"},
		Validator:  reconcile.MaxLength("group_code", "Group code", 50),
		Samples: []map[string]any{
			{"Ticket type": "Overtime", "Group code": "OT", "Group name": "Overtime requests", "Monthly quota": 10, "Requires HR approval": "Có", "Night shift": ""},
			{"Ticket type": "Leave", "Group code": "LV", "Group name": "Leave requests", "Monthly quota": 4, "Requires HR approval": "Không", "Night shift": "Không"},
		},
	})
}
