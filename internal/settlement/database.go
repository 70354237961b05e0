package settlement

import (
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreateSettlement(settlement *Settlement) error {
	return d.db.Create(settlement).Error
}

func (d *Database) GetSettlement(settlementID string) (*Settlement, error) {
	var settlement Settlement
	if err := d.db.Where("settlement_id = ?", settlementID).First(&settlement).Error; err != nil {
		return nil, err
	}
	return &settlement, nil
}

func (d *Database) GetClientSettlements(clientID string) ([]Settlement, error) {
	var settlements []Settlement
	if err := d.db.Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&settlements).Error; err != nil {
		return nil, err
	}
	return settlements, nil
}
