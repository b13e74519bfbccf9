package customer

// Customer holds the billing contact fields resolved from the customer
// directory. The directory owns the full customer record; the scheduler only
// needs these fields to stamp invoices and notifications.
type Customer struct {
	ID    string `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
	Phone string `db:"phone" json:"phone"`
}
