package domain

import (
	"fmt"
	"strings"
)

type ItemType string

const (
	ItemTypeEbook  ItemType = "ebook"
	ItemTypeCourse ItemType = "course"
)

func ParseItemType(s string) (ItemType, error) {
	switch t := ItemType(strings.ToLower(strings.TrimSpace(s))); t {
	case ItemTypeEbook, ItemTypeCourse:
		return t, nil
	}
	return "", fmt.Errorf("unknown item type %q", s)
}

func (t ItemType) OrderType() OrderType {
	if t == ItemTypeCourse {
		return OrderTypeCourse
	}
	return OrderTypeEbook
}

type CartItem struct {
	ID            string   `json:"id"`
	Type          ItemType `json:"type"`
	Title         string   `json:"title"`
	Price         int64    `json:"price"`
	DiscountPrice *int64   `json:"discountPrice,omitempty"`
	Quantity      int      `json:"quantity"`
	IsPhysical    bool     `json:"isPhysical,omitempty"`
	CoverImageURL string   `json:"coverImageUrl,omitempty"`
}

// UnitPrice is discountPrice when present, otherwise price.
func (c CartItem) UnitPrice() int64 {
	if c.DiscountPrice != nil {
		return *c.DiscountPrice
	}
	return c.Price
}
