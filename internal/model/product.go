package model

// Product is a catalog entry. Stock can only be opened for catalog names.
type Product struct {
	BaseModel
	Name    string `gorm:"type:varchar(255);not null" json:"name" validate:"required,max=255"`
	NameKey string `gorm:"type:varchar(255);uniqueIndex;not null" json:"-"`
}
