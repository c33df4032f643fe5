package shared

// Campus permissions declared for the academic modules.
const (
	PermCoursesView = "courses.view"
	PermCoursesEdit = "courses.edit"

	PermEnrollmentsView    = "enrollments.view"
	PermEnrollmentsEdit    = "enrollments.edit"
	PermEnrollmentsApprove = "enrollments.approve"

	PermPaymentsView   = "payments.view"
	PermPaymentsRecord = "payments.record"
	PermPaymentsRefund = "payments.refund"

	PermLibraryView = "library.view"
	PermLibraryLend = "library.lend"

	PermReportsView   = "reports.view"
	PermReportsExport = "reports.export"
)

// CampusScopes lists all permissions related to the campus modules.
func CampusScopes() []string {
	return []string{
		PermCoursesView,
		PermCoursesEdit,
		PermEnrollmentsView,
		PermEnrollmentsEdit,
		PermEnrollmentsApprove,
		PermPaymentsView,
		PermPaymentsRecord,
		PermPaymentsRefund,
		PermLibraryView,
		PermLibraryLend,
		PermReportsView,
		PermReportsExport,
	}
}
