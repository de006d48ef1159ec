package products

type createProductRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Category    *string  `json:"category" validate:"omitempty,max=100"`
	Price       float64  `json:"price" validate:"gte=0"`
	ImageURL    *string  `json:"image_url" validate:"omitempty,url"`
	Supplier    *string  `json:"supplier" validate:"omitempty,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
}

type updateProductRequest struct {
	Name        *string  `json:"name" validate:"omitempty,max=200"`
	Category    *string  `json:"category" validate:"omitempty,max=100"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	ImageURL    *string  `json:"image_url" validate:"omitempty,url"`
	Supplier    *string  `json:"supplier" validate:"omitempty,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
}
