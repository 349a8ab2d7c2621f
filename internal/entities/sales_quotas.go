package entities

import (
	"management-web/internal/reconcile"
)

func init() {
	register(Entity{
		Name:  "sales-quotas",
		Title: "Sales quotas",
		Table: "sales_quotas",
		Specs: []reconcile.FieldSpec{
			{Name: "year", Label: "Year", Columns: []string{"year", "Year", "Năm"}, Required: true, Coerce: reconcile.Number(reconcile.Integer(), reconcile.Min(2000), reconcile.Max(2100))},
			{Name: "month", Label: "Month", Columns: []string{"month", "Month", "Tháng"}, Required: true, Coerce: reconcile.Number(reconcile.Integer())},
			{Name: "employee_id", Label: "Employee ID", Columns: []string{"employee_id", "Employee ID", "Mã nhân viên"}, Required: true, Coerce: reconcile.Text()},
			{Name: "employee_name", Label: "Employee name", Columns: []string{"employee_name", "Employee name", "Tên nhân viên"}, Coerce: reconcile.Text()},
			{Name: "level", Label: "Level", Columns: []string{"level", "Level", "Cấp bậc"}, Coerce: reconcile.Text()},
			{Name: "revenue_target", Label: "Revenue target", Columns: []string{"revenue_target", "Revenue target", "Doanh số"}, Required: true, Coerce: reconcile.Number(reconcile.NonNegative())},
			{Name: "group_id", Label: "Group ID", Columns: []string{"group_id", "Group ID", "Mã nhóm"}, Required: true, Coerce: reconcile.Text()},
			{Name: "group_name", Label: "Group name", Columns: []string{"group_name", "Group name", "Tên nhóm"}, Coerce: reconcile.Text()},
			{Name: "description", Label: "Description", Columns: []string{"description", "Description", "Mô tả"}, Coerce: reconcile.Text()},
			{Name: "created_by", Label: "Created by", Columns: []string{"created_by", "Created by"}, Coerce: reconcile.Text()},
		},
		KeyFields:  []string{"employee_id", "year", "month", "group_id"},
		CreateOnly: []string{"created_by"},
		Validator:  reconcile.Range("month", "Month", 1, 12),
		Samples: []map[string]any{
			{"Year": 2025, "Month": 1, "Employee ID": "E001", "Employee name": "Linh Tran", "Level": "Senior", "Revenue target": 150000000, "Group ID": "G1", "Group name": "North"},
			{"Year": 2025, "Month": 1, "Employee ID": "E002", "Employee name": "Minh Pham", "Level": "Junior", "Revenue target": 80000000, "Group ID": "G1", "Group name": "North"},
		},
	})
}
