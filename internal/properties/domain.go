package properties

import (
	"fmt"
	"strings"
	"time"

	"github.com/propertyhub/propertyhub/internal/platform/httpx"
)

// ErrNotFound is returned when a listing does not exist or is not visible to the caller.
var ErrNotFound = fmt.Errorf("%w: property not found", httpx.ErrNotFound)

// ErrNotOwner is returned when a non-owner tries to change a listing.
var ErrNotOwner = fmt.Errorf("%w: only the owner can change this listing", httpx.ErrForbidden)

// PropertyType classifies the building.
type PropertyType string

const (
	TypeHouse      PropertyType = "house"
	TypeApartment  PropertyType = "apartment"
	TypeCondo      PropertyType = "condo"
	TypeTownhouse  PropertyType = "townhouse"
	TypeLand       PropertyType = "land"
	TypeCommercial PropertyType = "commercial"
)

// ListingType is sale or rent.
type ListingType string

const (
	ListingSale ListingType = "sale"
	ListingRent ListingType = "rent"
)

func parsePropertyType(raw string) (PropertyType, bool) {
	t := PropertyType(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case TypeHouse, TypeApartment, TypeCondo, TypeTownhouse, TypeLand, TypeCommercial:
		return t, true
	}
	return "", false
}

func parseListingType(raw string) (ListingType, bool) {
	t := ListingType(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case ListingSale, ListingRent:
		return t, true
	}
	return "", false
}

// Property is a listing.
type Property struct {
	ID           int64           `json:"id"`
	OwnerID      int64           `json:"ownerId"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	PropertyType PropertyType    `json:"propertyType"`
	ListingType  ListingType     `json:"listingType"`
	Price        float64         `json:"price"`
	Address      string          `json:"address"`
	City         string          `json:"city"`
	Province     string          `json:"province"`
	PostalCode   string          `json:"postalCode,omitempty"`
	Bedrooms     int             `json:"bedrooms"`
	Bathrooms    int             `json:"bathrooms"`
	AreaSqm      float64         `json:"areaSqm"`
	Images       []string        `json:"images"`
	ViewCount    int64           `json:"viewCount"`
	IsDeleted    bool            `json:"-"`
	State        State           `json:"-"`
	Featured     *FeaturedMarker `json:"featured,omitempty"`
	IsFeatured   bool            `json:"isFeatured"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// View is the JSON representation, flattening the state into the listing.
type View struct {
	Property
	StateSnapshot
}

// View returns the JSON representation.
func (p Property) View() View {
	return View{Property: p, StateSnapshot: p.State.Snapshot()}
}

// Views converts a slice for rendering.
func Views(items []Property) []View {
	out := make([]View, len(items))
	for i, p := range items {
		out[i] = p.View()
	}
	return out
}

// FeaturedMarker is a paid, time-boxed promotion of a listing.
type FeaturedMarker struct {
	PropertyID int64     `json:"propertyId"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
	Amount     float64   `json:"amount"`
	CreatedBy  int64     `json:"createdBy"`
}

// IsActive reports whether the marker covers now (start inclusive, end exclusive).
func (m FeaturedMarker) IsActive(now time.Time) bool {
	return !now.Before(m.StartDate) && now.Before(m.EndDate)
}

// Input is the create payload.
type Input struct {
	Title        string   `json:"title" validate:"required,max=200"`
	Description  string   `json:"description" validate:"required,max=5000"`
	PropertyType string   `json:"propertyType" validate:"required,oneof=house apartment condo townhouse land commercial"`
	ListingType  string   `json:"listingType" validate:"required,oneof=sale rent"`
	Price        float64  `json:"price" validate:"gt=0"`
	Address      string   `json:"address" validate:"required,max=255"`
	City         string   `json:"city" validate:"required,max=120"`
	Province     string   `json:"province" validate:"required,max=120"`
	PostalCode   string   `json:"postalCode" validate:"max=20"`
	Bedrooms     int      `json:"bedrooms" validate:"gte=0,max=100"`
	Bathrooms    int      `json:"bathrooms" validate:"gte=0,max=100"`
	AreaSqm      float64  `json:"areaSqm" validate:"gte=0"`
	Images       []string `json:"images" validate:"max=30,dive,url"`
}

// Patch is the partial update payload; nil fields are left unchanged.
type Patch struct {
	Title        *string   `json:"title" validate:"omitempty,min=1,max=200"`
	Description  *string   `json:"description" validate:"omitempty,min=1,max=5000"`
	PropertyType *string   `json:"propertyType" validate:"omitempty,oneof=house apartment condo townhouse land commercial"`
	ListingType  *string   `json:"listingType" validate:"omitempty,oneof=sale rent"`
	Price        *float64  `json:"price" validate:"omitempty,gt=0"`
	Address      *string   `json:"address" validate:"omitempty,min=1,max=255"`
	City         *string   `json:"city" validate:"omitempty,min=1,max=120"`
	Province     *string   `json:"province" validate:"omitempty,min=1,max=120"`
	PostalCode   *string   `json:"postalCode" validate:"omitempty,max=20"`
	Bedrooms     *int      `json:"bedrooms" validate:"omitempty,gte=0,max=100"`
	Bathrooms    *int      `json:"bathrooms" validate:"omitempty,gte=0,max=100"`
	AreaSqm      *float64  `json:"areaSqm" validate:"omitempty,gte=0"`
	Images       *[]string `json:"images" validate:"omitempty,max=30,dive,url"`
}

func (in Input) toProperty(ownerID int64) Property {
	images := in.Images
	if images == nil {
		images = []string{}
	}
	return Property{
		OwnerID:      ownerID,
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		PropertyType: PropertyType(in.PropertyType),
		ListingType:  ListingType(in.ListingType),
		Price:        in.Price,
		Address:      strings.TrimSpace(in.Address),
		City:         strings.TrimSpace(in.City),
		Province:     strings.TrimSpace(in.Province),
		PostalCode:   strings.TrimSpace(in.PostalCode),
		Bedrooms:     in.Bedrooms,
		Bathrooms:    in.Bathrooms,
		AreaSqm:      in.AreaSqm,
		Images:       images,
		State:        NewSubmittedState(),
	}
}

func (p Patch) apply(dst *Property) {
	setString := func(src *string, field *string) {
		if src != nil {
			*field = strings.TrimSpace(*src)
		}
	}
	setString(p.Title, &dst.Title)
	setString(p.Description, &dst.Description)
	setString(p.Address, &dst.Address)
	setString(p.City, &dst.City)
	setString(p.Province, &dst.Province)
	setString(p.PostalCode, &dst.PostalCode)
	if p.PropertyType != nil {
		dst.PropertyType = PropertyType(*p.PropertyType)
	}
	if p.ListingType != nil {
		dst.ListingType = ListingType(*p.ListingType)
	}
	if p.Price != nil {
		dst.Price = *p.Price
	}
	if p.Bedrooms != nil {
		dst.Bedrooms = *p.Bedrooms
	}
	if p.Bathrooms != nil {
		dst.Bathrooms = *p.Bathrooms
	}
	if p.AreaSqm != nil {
		dst.AreaSqm = *p.AreaSqm
	}
	if p.Images != nil {
		dst.Images = *p.Images
	}
}

func (p Property) asInput() Input {
	return Input{
		Title:        p.Title,
		Description:  p.Description,
		PropertyType: string(p.PropertyType),
		ListingType:  string(p.ListingType),
		Price:        p.Price,
		Address:      p.Address,
		City:         p.City,
		Province:     p.Province,
		PostalCode:   p.PostalCode,
		Bedrooms:     p.Bedrooms,
		Bathrooms:    p.Bathrooms,
		AreaSqm:      p.AreaSqm,
		Images:       p.Images,
	}
}
