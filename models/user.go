package models

import "time"

type User struct {
	ID           string `gorm:"primaryKey" json:"id"`
	Email        string `gorm:"unique;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`

	// Default addresses used at checkout when the form leaves them blank.
	ShippingAddress string `json:"shipping_address"`
	BillingAddress  string `json:"billing_address"`

	Verified bool `gorm:"not null;default:false" json:"verified"`
	Active   bool `gorm:"not null;default:true" json:"active"`

	// One-time code sent by mail during registration.
	OTPCode      string     `json:"-"`
	OTPExpiresAt *time.Time `json:"-"`

	Cart      Cart      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Orders    []Order   `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
