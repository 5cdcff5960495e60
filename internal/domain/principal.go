package domain

// Principal is the authenticated actor of a request. It owns exactly one account.
type Principal struct {
	Kind      OwnerKind `json:"kind"`
	AccountID int64     `json:"account_id"`
}
