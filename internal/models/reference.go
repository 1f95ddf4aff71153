package models

// Account is a customer account.
type Account struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Industry string `json:"industry,omitempty"`
}

func (a Account) GetID() string   { return a.ID }
func (a Account) GetName() string { return a.Name }

type SalesCycleType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s SalesCycleType) GetID() string   { return s.ID }
func (s SalesCycleType) GetName() string { return s.Name }

type Stage struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order,omitempty"`
}

func (s Stage) GetID() string   { return s.ID }
func (s Stage) GetName() string { return s.Name }

type UnitOfMeasure struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (u UnitOfMeasure) GetID() string   { return u.ID }
func (u UnitOfMeasure) GetName() string { return u.Name }
