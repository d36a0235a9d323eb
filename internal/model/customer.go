package model

import (
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const RoleCustomer = "customer"

// Customer buys against bills and may sign in to the customer portal.
type Customer struct {
	BaseModel
	Name       string `gorm:"type:varchar(255);not null" json:"name"`
	NameKey    string `gorm:"type:varchar(255);uniqueIndex;not null" json:"-"`
	Phone      string `gorm:"type:varchar(10);uniqueIndex;not null" json:"phone"`
	Email      string `gorm:"type:varchar(255)" json:"email,omitempty"`
	Address    string `gorm:"type:text" json:"address"`
	Role       string `gorm:"type:varchar(20);not null;default:'customer'" json:"role"`
	TotalBills int    `gorm:"not null;default:0" json:"total_bills"`
	Password   string `gorm:"type:varchar(255)" json:"-"`
}

func (c *Customer) SetPassword(password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	c.Password = string(hashed)
	return nil
}

func (c *Customer) CheckPassword(password string) bool {
	if c.Password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.Password), []byte(password)) == nil
}

// CustomerResponse is the portal view of a customer.
type CustomerResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Email      string    `json:"email,omitempty"`
	Address    string    `json:"address"`
	Role       string    `json:"role"`
	TotalBills int       `json:"total_bills"`
}

func (c *Customer) ToResponse() CustomerResponse {
	return CustomerResponse{
		ID:         c.ID,
		Name:       c.Name,
		Phone:      c.Phone,
		Email:      c.Email,
		Address:    c.Address,
		Role:       c.Role,
		TotalBills: c.TotalBills,
	}
}
