package model

// Donor is a registered person eligible to donate blood (a "pessoa" upstream).
type Donor struct {
	ID          int64  `json:"id"`
	Name        string `json:"nome"`
	Street      string `json:"rua"`
	Number      string `json:"numero"`
	Complement  string `json:"complemento"`
	RG          string `json:"rg"`
	BloodTypeID int64  `json:"tipo_id"`
	CityID      int64  `json:"cidade_id"`
}

// Donation is a booked donation as returned by the upstream API.
type Donation struct {
	ID          int64            `json:"id"`
	Date        string           `json:"data"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
	DonorID     int64            `json:"pessoa_id"`
	LocationID  int64            `json:"local_id"`
	BloodTypeID int64            `json:"tipo_sanguineo"`
	Location    DonationLocation `json:"local"`
}
