package catalog

// Product is a catalog record as returned by the remote API. ID is always set
// on records coming from the server.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	SKU         string  `json:"sku"`
	Cost        float64 `json:"cost"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Category    string  `json:"category"`
	Supplier    string  `json:"supplier"`
	Description string  `json:"description"`
}

// ProductInput is the create payload. The server assigns the id.
type ProductInput struct {
	Name        string  `json:"name"`
	SKU         string  `json:"sku"`
	Cost        float64 `json:"cost"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Category    string  `json:"category"`
	Supplier    string  `json:"supplier"`
	Description string  `json:"description"`
}

// WithID turns the input into a full record, used for updates.
func (in ProductInput) WithID(id int64) Product {
	return Product{
		ID:          id,
		Name:        in.Name,
		SKU:         in.SKU,
		Cost:        in.Cost,
		Price:       in.Price,
		Stock:       in.Stock,
		Category:    in.Category,
		Supplier:    in.Supplier,
		Description: in.Description,
	}
}

// Input strips the id from p.
func (p Product) Input() ProductInput {
	return ProductInput{
		Name:        p.Name,
		SKU:         p.SKU,
		Cost:        p.Cost,
		Price:       p.Price,
		Stock:       p.Stock,
		Category:    p.Category,
		Supplier:    p.Supplier,
		Description: p.Description,
	}
}

// PageRequest asks for one page of products. Page is 1-based.
type PageRequest struct {
	Page    int
	Size    int
	Sort    string
	Order   string
	Filters map[string]string
}

// Page is one slice of the catalog plus totals.
type Page struct {
	Data       []Product
	Total      int
	TotalPages int
}

// productWire is the validation boundary for server records: required
// fields are pointers so absence is detectable.
type productWire struct {
	ID          *int64   `json:"id" validate:"required"`
	Name        *string  `json:"name" validate:"required"`
	SKU         *string  `json:"sku" validate:"required"`
	Cost        *float64 `json:"cost" validate:"required"`
	Price       *float64 `json:"price" validate:"required"`
	Stock       *int     `json:"stock" validate:"required"`
	Category    *string  `json:"category"`
	Supplier    *string  `json:"supplier"`
	Description *string  `json:"description"`
}

func (w productWire) product() Product {
	return Product{
		ID:          *w.ID,
		Name:        *w.Name,
		SKU:         *w.SKU,
		Cost:        *w.Cost,
		Price:       *w.Price,
		Stock:       *w.Stock,
		Category:    deref(w.Category),
		Supplier:    deref(w.Supplier),
		Description: deref(w.Description),
	}
}

type pageWire struct {
	Content       []productWire `json:"content" validate:"required,dive"`
	TotalElements *int          `json:"totalElements" validate:"required"`
	TotalPages    *int          `json:"totalPages"`
	Number        *int          `json:"number"`
	Size          *int          `json:"size"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
