package domain

type Product struct {
	ID                 int      `json:"id"`
	Title              string   `json:"title"`
	Price              *string  `json:"price"`
	OriginalPrice      *string  `json:"original_price"`
	Rating             *float64 `json:"rating"`
	ReviewCount        *int     `json:"review_count"`
	SellerName         *string  `json:"seller_name"`
	ProductURL         *string  `json:"product_url"`
	ImageURL           *string  `json:"image_url"`
	ShippingInfo       *string  `json:"shipping_info"`
	DiscountPercentage *string  `json:"discount_percentage"`
}
