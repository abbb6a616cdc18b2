package models

// ClientInfo is the client snapshot embedded in an invoice. It is copied by
// value at edit time and never referenced.
type ClientInfo struct {
	ID       string `json:"id"`
	Code     string `json:"code" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Address  string `json:"address,omitempty"`
	Chantier string `json:"chantier,omitempty"`
	Mode     string `json:"mode,omitempty"`
	ICE      string `json:"ice,omitempty"`
	RC       string `json:"rc,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	City     string `json:"city,omitempty"`
	Country  string `json:"country,omitempty"`
}

// ClientField is one named attribute of a ClientInfo.
type ClientField struct {
	Key   string
	Value string
}

// Fields returns the client attributes keyed by their JSON names, in a
// stable order.
func (c ClientInfo) Fields() []ClientField {
	return []ClientField{
		{"id", c.ID},
		{"code", c.Code},
		{"name", c.Name},
		{"address", c.Address},
		{"chantier", c.Chantier},
		{"mode", c.Mode},
		{"ice", c.ICE},
		{"rc", c.RC},
		{"phone", c.Phone},
		{"email", c.Email},
		{"city", c.City},
		{"country", c.Country},
	}
}

// Set assigns the attribute named key. It returns false for unknown keys.
func (c *ClientInfo) Set(key, value string) bool {
	switch key {
	case "id":
		c.ID = value
	case "code":
		c.Code = value
	case "name":
		c.Name = value
	case "address":
		c.Address = value
	case "chantier":
		c.Chantier = value
	case "mode":
		c.Mode = value
	case "ice":
		c.ICE = value
	case "rc":
		c.RC = value
	case "phone":
		c.Phone = value
	case "email":
		c.Email = value
	case "city":
		c.City = value
	case "country":
		c.Country = value
	default:
		return false
	}
	return true
}
