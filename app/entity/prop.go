package entity

// Prop is one item in the static props catalog shown on the kiosk.
type Prop struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	Description   string `json:"description"`
	OriginCity    string `json:"origin_city"`
	OriginCountry string `json:"origin_country"`
	ImageURL      string `json:"image_url"`
}
