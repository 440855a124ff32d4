package dao

import (
	"fmt"

	"gorm.io/gorm"

	"ugc-video-service/database"
	"ugc-video-service/model"
)

// UgcVideoDAO data access layer for video records.
type UgcVideoDAO struct{}

// NewUgcVideoDAO creates a new DAO instance.
func NewUgcVideoDAO() *UgcVideoDAO {
	return &UgcVideoDAO{}
}

// Create inserts a new video record with the next sort order for the shop.
// Sort order assignment and insert run in one transaction.
func (dao *UgcVideoDAO) Create(video *model.UgcVideo) error {
	if video == nil {
		return fmt.Errorf("video is nil")
	}

	return database.DB.Transaction(func(tx *gorm.DB) error {
		var maxOrder int
		err := tx.Model(&model.UgcVideo{}).
			Where("shop = ?", video.Shop).
			Select("COALESCE(MAX(sort_order), 0)").
			Scan(&maxOrder).Error
		if err != nil {
			return err
		}
		video.SortOrder = maxOrder + 1
		return tx.Create(video).Error
	})
}

// GetByID fetches a video by primary key scoped to the owning shop.
func (dao *UgcVideoDAO) GetByID(shop string, id int64) (*model.UgcVideo, error) {
	var video model.UgcVideo
	err := database.DB.Where("shop = ? AND id = ?", shop, id).First(&video).Error
	if err != nil {
		return nil, err
	}
	return &video, nil
}

// ListByShop returns all videos for a shop ordered by sort order ascending.
func (dao *UgcVideoDAO) ListByShop(shop string) ([]*model.UgcVideo, error) {
	var videos []*model.UgcVideo
	err := database.DB.Where("shop = ?", shop).
		Order("sort_order ASC").
		Find(&videos).Error
	return videos, err
}

// ListActiveByShop returns active videos for a shop ordered by sort order ascending.
func (dao *UgcVideoDAO) ListActiveByShop(shop string) ([]*model.UgcVideo, error) {
	var videos []*model.UgcVideo
	err := database.DB.Where("shop = ? AND is_active = ?", shop, true).
		Order("sort_order ASC").
		Find(&videos).Error
	return videos, err
}

// UpdateActive sets the is_active flag on exactly one record.
func (dao *UgcVideoDAO) UpdateActive(shop string, id int64, active bool) error {
	return database.DB.Model(&model.UgcVideo{}).
		Where("shop = ? AND id = ?", shop, id).
		Update("is_active", active).Error
}

// Delete removes a video record. Remaining records keep their sort order.
func (dao *UgcVideoDAO) Delete(shop string, id int64) error {
	return database.DB.Where("shop = ? AND id = ?", shop, id).
		Delete(&model.UgcVideo{}).Error
}
