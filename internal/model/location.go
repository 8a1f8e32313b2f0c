package model

// DonationLocation is a physical site accepting donations ("local de coleta").
type DonationLocation struct {
	ID         int64  `json:"id"`
	Name       string `json:"nome"`
	Street     string `json:"rua"`
	Number     string `json:"numero"`
	Complement string `json:"complemento,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
	CityID     int64  `json:"cidade_id"`
}

// Address renders "nome, rua, numero[, complemento]".
func (l DonationLocation) Address() string {
	s := l.Name + ", " + l.Street + ", " + l.Number
	if l.Complement != "" {
		s += ", " + l.Complement
	}
	return s
}
