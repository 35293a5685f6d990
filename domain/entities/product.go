package entities

// ProductRecord represents one catalog item read from the product listing
type ProductRecord struct {
	Name      string `json:"Product Name"`
	ID        string `json:"ID"`
	Shade     string `json:"Shade"`
	Details   string `json:"Details"`
	Guarantee string `json:"Guarantee"`
}
