package models

import "gorm.io/gorm"

// Category is a lookup-only label for deadlines ("Insurance", "Vehicle",
// "Subscriptions"). Deadlines reference it weakly; deleting a category
// leaves deadlines untouched.
type Category struct {
	gorm.Model
	Name string `gorm:"not null"`
	Icon string `gorm:"not null;default:''"`
}
