package domain

// Listing is the subset of a marketplace listing the messaging core reads.
type Listing struct {
	ID       string `json:"id"`
	SellerID string `json:"seller_id"`
	Title    string `json:"title"`
}
