package models

import (
	"time"

	"gorm.io/gorm"
)

// User is an operator or client-side account of the agency workspace.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Email     string         `gorm:"unique;not null" json:"email"`
	Name      string         `json:"name"`
	Role      string         `gorm:"default:'member'" json:"role"` // member, manager, admin
	Status    string         `gorm:"default:'active'" json:"status"`
	LastLogin *time.Time     `json:"last_login"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Creator is a talent managed by the agency.
type Creator struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Name       string         `gorm:"not null" json:"name"`
	Email      string         `gorm:"unique;not null" json:"email"`
	Handle     string         `gorm:"index" json:"handle"`
	Categories string         `json:"categories"` // comma separated
	Followers  int            `gorm:"default:0" json:"followers"`
	Status     string         `gorm:"default:'pending'" json:"status"` // pending, active, inactive
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	Invitations []Invitation `gorm:"foreignKey:CreatorID" json:"invitations,omitempty"`
}

// ClientAccount is the brand or company a casting is run for.
type ClientAccount struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null" json:"name"`
	Company   string         `json:"company"`
	Email     string         `json:"email"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Castings []Casting `gorm:"foreignKey:ClientID" json:"castings,omitempty"`
}

// Casting is a client project creators are invited to.
type Casting struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	PublicID    string         `gorm:"uniqueIndex;not null" json:"public_id"`
	ClientID    uint           `gorm:"index" json:"client_id"`
	Title       string         `gorm:"not null" json:"title"`
	Brief       string         `gorm:"type:text" json:"brief"`
	Category    string         `json:"category"`
	Budget      float64        `gorm:"default:0" json:"budget"`
	Location    string         `json:"location"`
	Deadline    *time.Time     `json:"deadline"`
	Status      string         `gorm:"default:'draft';index" json:"status"` // draft, pending, approved, rejected, completed
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Client      ClientAccount `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Invitations []Invitation  `gorm:"foreignKey:CastingID" json:"invitations,omitempty"`
}

// Invitation links a creator to a casting.
type Invitation struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CastingID   uint       `gorm:"index" json:"casting_id"`
	CreatorID   uint       `gorm:"index" json:"creator_id"`
	Status      string     `gorm:"default:'pending';index" json:"status"` // pending, accepted, declined
	Message     string     `gorm:"type:text" json:"message"`
	RespondedAt *time.Time `json:"responded_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Casting Casting `gorm:"foreignKey:CastingID" json:"casting,omitempty"`
	Creator Creator `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
}
