package entities

import (
	"management-web/internal/reconcile"
)

// ComplaintCategories enumerates the accepted complaint categories.
var ComplaintCategories = []string{"product", "delivery", "service", "billing"}

// ComplaintSeverities enumerates the accepted severities.
var ComplaintSeverities = []string{"low", "medium", "high"}

func init() {
	register(Entity{
		Name:  "customer-complaints",
		Title: "Customer complaints",
		Table: "customer_complaints",
		Specs: []reconcile.FieldSpec{
			{Name: "customer_code", Label: "Customer code", Columns: []string{"customer_code", "Customer code", "Mã khách hàng"}, Required: true, Coerce: reconcile.Text()},
			{Name: "phone", Label: "Phone", Columns: []string{"phone", "Phone", "SĐT khách"}, Coerce: reconcile.Text()},
			{Name: "complaint_date", Label: "Complaint date", Columns: []string{"complaint_date", "Complaint date", "Ngày"}, Required: true, Coerce: reconcile.Date()},
			{Name: "order_id", Label: "Order ID", Columns: []string{"order_id", "Order ID", "ID đơn hàng"}, Coerce: reconcile.Text()},
			{Name: "category", Label: "Category", Columns: []string{"category", "Category", "Loại"}, Required: true, Coerce: reconcile.Text()},
			{Name: "severity", Label: "Severity", Columns: []string{"severity", "Severity", "Mức độ"}, Coerce: reconcile.Text()},
			{Name: "description", Label: "Description", Columns: []string{"description", "Description", "Mô tả lỗi"}, Coerce: reconcile.Text()},
			{Name: "cost", Label: "Cost", Columns: []string{"cost", "Cost", "Chi phí"}, Coerce: reconcile.Number(reconcile.NonNegative()), Default: 0},
			{Name: "resolved", Label: "Resolved", Columns: []string{"resolved", "Resolved", "Đã xử lý"}, Coerce: reconcile.YesNo(true)},
			{Name: "resolution_note", Label: "Resolution note", Columns: []string{"resolution_note", "Resolution note", "Kết quả cuối cùng"}, Coerce: reconcile.Text()},
			{Name: "created_by", Label: "Created by", Columns: []string{"created_by", "Created by"}, Coerce: reconcile.Text()},
		},
		KeyFields:  []string{"customer_code", "complaint_date", "category"},
		CreateOnly: []string{"created_by"},
		Validator: reconcile.Validators(
			reconcile.OneOf("category", "Category", ComplaintCategories...),
			reconcile.OneOf("severity", "Severity", ComplaintSeverities...),
			reconcile.RequiredWhen("resolution_note", "Resolution note", "resolved", reconcile.Yes),
		),
		Samples: []map[string]any{
			{"Customer code": "C-1001", "Phone": "0901234567", "Complaint date": "2025-02-03", "Order ID": "SO-7781", "Category": "delivery", "Severity": "medium", "Description": "Parcel arrived late", "Cost": 0, "Resolved": "Có", "Resolution note": "Voucher issued"},
			{"Customer code": "C-1002", "Phone": "0907654321", "Complaint date": "2025-02-04", "Order ID": "SO-7790", "Category": "product", "Severity": "high", "Description": "Broken seal", "Cost": 120000, "Resolved": "", "Resolution note": ""},
		},
	})
}
