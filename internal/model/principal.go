package model

// Principal is the verified identity attached to a request after the
// auth stage succeeds. Built from token claims, never persisted.
type Principal struct {
	ID        int64          `json:"id"`
	Email     string         `json:"email"`
	Name      string         `json:"name"`
	Role      string         `json:"role"`
	AccountID int64          `json:"account_id"`
	Status    string         `json:"status"`
	Account   AccountSummary `json:"account"`
}
