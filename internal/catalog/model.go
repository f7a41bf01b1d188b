// Package catalog defines the entities the registration tool manages and the
// rules every copy of them must satisfy before it is sent to the remote store.
package catalog

import "time"

// Entity names one of the synchronised collections.
type Entity string

const (
	EntityUsers         Entity = "users"
	EntityProducts      Entity = "products"
	EntityCategories    Entity = "categories"
	EntityLocations     Entity = "locations"
	EntityPurposes      Entity = "purposes"
	EntityRegistrations Entity = "registrations"
	EntityBadges        Entity = "user_badges"
)

// Entities lists the six collections in load order.
var Entities = []Entity{
	EntityUsers,
	EntityProducts,
	EntityCategories,
	EntityLocations,
	EntityPurposes,
	EntityRegistrations,
}

// Role is the permission level of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps free text to a role, defaulting to RoleUser.
func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// Record is implemented by every synchronised entity.
type Record interface {
	comparable
	Key() string
}

// User is a person that can register product usage. BadgeCode is joined in
// from the badge table and is "" when the user has no badge.
type User struct {
	Name      string `json:"name" validate:"required"`
	Role      Role   `json:"role" validate:"required,oneof=user admin"`
	BadgeCode string `json:"badgeCode"`
}

func (u User) Key() string { return u.Name }

// Badge maps a physical badge to a user display name.
type Badge struct {
	BadgeID   string `json:"badge_id" validate:"required"`
	UserName  string `json:"user_name" validate:"required"`
	UserEmail string `json:"user_email"`
}

// Product is a registrable item.
type Product struct {
	ID             string    `json:"id"`
	Name           string    `json:"name" validate:"required"`
	QRCode         string    `json:"qrcode,omitempty"`
	CategoryID     string    `json:"categoryId,omitempty"`
	AttachmentURL  string    `json:"attachmentUrl,omitempty"`
	AttachmentName string    `json:"attachmentName,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
}

func (p Product) Key() string { return p.ID }

// HasAttachment reports whether a file is linked to the product.
func (p Product) HasAttachment() bool { return p.AttachmentURL != "" }

// Category groups products. Products reference it weakly by id.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name" validate:"required"`
}

func (c Category) Key() string { return c.ID }

// Location is where a product was used.
type Location string

func (l Location) Key() string { return string(l) }

// Purpose is why a product was used.
type Purpose string

func (p Purpose) Key() string { return string(p) }

// Registration is an immutable usage record. Names are copied at submission
// time and are not rewritten when the referenced entity changes later.
type Registration struct {
	ID        string    `json:"id"`
	User      string    `json:"user" validate:"required"`
	Product   string    `json:"product" validate:"required"`
	Location  string    `json:"location" validate:"required"`
	Purpose   string    `json:"purpose" validate:"required"`
	Timestamp time.Time `json:"timestamp"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	QRCode    string    `json:"qrcode,omitempty"`
}

func (r Registration) Key() string { return r.ID }

// Day returns the UTC calendar day of the registration as YYYY-MM-DD.
func (r Registration) Day() string {
	if r.Timestamp.IsZero() {
		return r.Date
	}
	return r.Timestamp.UTC().Format(DateLayout)
}

const (
	// DateLayout is the stored registration date format.
	DateLayout = "2006-01-02"
	// TimeLayout is the stored registration time format.
	TimeLayout = "15:04"
)

// StampRegistration fills the server-side time fields of r from now.
func StampRegistration(r Registration, now time.Time, display *time.Location) Registration {
	if display == nil {
		display = time.UTC
	}
	r.Timestamp = now.UTC()
	r.Date = now.UTC().Format(DateLayout)
	r.Time = now.In(display).Format(TimeLayout)
	return r
}
