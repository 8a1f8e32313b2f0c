package model

// State is a Brazilian federative unit.
type State struct {
	ID   int64  `json:"id"`
	Code string `json:"sigla"`
}

// City belongs to exactly one State.
type City struct {
	ID      int64  `json:"id"`
	Name    string `json:"nome"`
	StateID int64  `json:"estado_id"`
}

// BloodType is an ABO group plus Rh factor.
type BloodType struct {
	ID     int64  `json:"id"`
	Type   string `json:"tipo"`
	Factor string `json:"fator"`
}

// Label is the display form, e.g. "O+".
func (b BloodType) Label() string {
	return b.Type + b.Factor
}
