package model

import "time"

// UgcVideo represents a storefront video record owned by a shop.
type UgcVideo struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	// Ownership (immutable after create)
	Shop string `gorm:"type:varchar(255);index" json:"shop"` // Shop domain

	// Content info
	Title        string `gorm:"type:varchar(255)" json:"title"`          // Display title
	Description  string `gorm:"type:text" json:"description"`            // Optional description
	VideoUrl     string `gorm:"type:varchar(1024)" json:"video_url"`     // Playback URL
	ThumbnailUrl string `gorm:"type:varchar(1024)" json:"thumbnail_url"` // Preview image URL
	Duration     int    `gorm:"type:int;default:0" json:"duration"`      // Seconds
	SourceAuthor string `gorm:"type:varchar(255)" json:"source_author"`  // Original creator handle
	SourceType   string `gorm:"type:varchar(50)" json:"source_type"`     // upload/url/tiktok/instagram
	ProductId    string `gorm:"type:varchar(255)" json:"product_id"`     // Linked product (optional)

	// Storefront state
	SortOrder int  `gorm:"type:int;default:0" json:"sort_order"` // Feed position, ascending
	IsActive  bool `gorm:"default:true" json:"is_active"`        // Shown in public feed

	// Timestamps
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName sets custom table name
func (UgcVideo) TableName() string {
	return "tb_ugc_video"
}
